package housekeeping

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/nerrad567/stayflow-core/internal/audit"
	"github.com/nerrad567/stayflow-core/internal/lodging"
	"github.com/nerrad567/stayflow-core/internal/lodging/internal/cabin"
	"github.com/nerrad567/stayflow-core/internal/store"
)

// ReworkNote is appended to a task whose conference was rejected.
const ReworkNote = "rework required"

// Orchestrator owns the housekeeping task lifecycle and its effect on cabins.
// It holds no state of its own; every call is one store transaction.
type Orchestrator struct {
	store     store.Store
	publisher lodging.Publisher
	logger    lodging.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPublisher sets where committed task and cabin events go.
func WithPublisher(p lodging.Publisher) Option {
	return func(o *Orchestrator) { o.publisher = p }
}

// WithLogger sets the logger.
func WithLogger(l lodging.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New creates an Orchestrator over s.
func New(s store.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:     s,
		publisher: lodging.NopPublisher{},
		logger:    lodging.NopLogger{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CreateTaskRequest describes a manually scheduled task.
type CreateTaskRequest struct {
	CabinID      string                  `json:"cabinId" validate:"required"`
	StayID       string                  `json:"stayId,omitempty"`
	Type         lodging.TaskType        `json:"type" validate:"required,oneof=daily turnover"`
	AssignedTo   []string                `json:"assignedTo,omitempty" validate:"dive,required"`
	Checklist    []lodging.ChecklistItem `json:"checklist,omitempty" validate:"dive"`
	Observations string                  `json:"observations,omitempty"`
}

// TaskFilter narrows List. Zero fields match everything.
type TaskFilter struct {
	CabinID    string
	StayID     string
	Type       lodging.TaskType
	Status     lodging.TaskStatus
	AssignedTo string
}

// TaskPatch is an administrative override. Nil fields are left unchanged.
// No transition rules apply.
type TaskPatch struct {
	Status       *lodging.TaskStatus      `json:"status,omitempty"`
	Type         *lodging.TaskType        `json:"type,omitempty"`
	AssignedTo   *[]string                `json:"assignedTo,omitempty"`
	Checklist    *[]lodging.ChecklistItem `json:"checklist,omitempty"`
	Observations *string                  `json:"observations,omitempty"`
}

// CreateTask schedules a task outside the check-out flow. A turnover puts
// the cabin into cleaning and is refused while the cabin is occupied or
// already has an open turnover.
func (o *Orchestrator) CreateTask(ctx context.Context, propertyID string, req CreateTaskRequest) (*lodging.HousekeepingTask, error) {
	if err := lodging.Validate(req); err != nil {
		return nil, err
	}

	var created *lodging.HousekeepingTask
	err := o.run(ctx, propertyID, func(tx store.Tx, events *[]lodging.Event) error {
		c, err := cabin.Load(ctx, tx, req.CabinID)
		if err != nil {
			return err
		}
		if req.StayID != "" {
			stay, err := store.Get[lodging.Stay](ctx, tx, lodging.CollectionStays, req.StayID)
			if err != nil {
				return err
			}
			if stay.CabinID != req.CabinID {
				return fmt.Errorf("%w: stay %s is not in cabin %s", lodging.ErrInvalidInput, stay.ID, req.CabinID)
			}
		}

		task := newTask(tx, req.CabinID, req.StayID, req.Type)
		task.AssignedTo = dedupe(req.AssignedTo)
		task.Observations = req.Observations
		if len(req.Checklist) > 0 {
			task.Checklist = req.Checklist
		} else if req.Type == lodging.TaskDaily {
			task.Checklist = lodging.DefaultDailyChecklist()
		}

		if req.Type == lodging.TaskTurnover {
			if err := ensureNoOpenTurnover(ctx, tx, req.CabinID); err != nil {
				return err
			}
			ev, err := cabin.BeginCleaning(ctx, tx, c)
			if err != nil {
				return err
			}
			appendEvent(events, ev)
		}

		if err := insertTask(ctx, tx, task, "manual", events); err != nil {
			return err
		}
		created = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.logger.Info("housekeeping task created", "property_id", propertyID, "task_id", created.ID, "type", created.Type)
	return created, nil
}

// Get returns one task.
func (o *Orchestrator) Get(ctx context.Context, propertyID, taskID string) (*lodging.HousekeepingTask, error) {
	var task *lodging.HousekeepingTask
	err := o.store.RunTx(ctx, propertyID, func(tx store.Tx) error {
		var err error
		task, err = store.Get[lodging.HousekeepingTask](ctx, tx, lodging.CollectionTasks, taskID)
		return err
	})
	return task, err
}

// List returns tasks matching f in creation order.
func (o *Orchestrator) List(ctx context.Context, propertyID string, f TaskFilter) ([]lodging.HousekeepingTask, error) {
	var filters []store.Filter
	if f.CabinID != "" {
		filters = append(filters, store.Eq("cabinId", f.CabinID))
	}
	if f.StayID != "" {
		filters = append(filters, store.Eq("stayId", f.StayID))
	}
	if f.Type != "" {
		filters = append(filters, store.Eq("type", f.Type))
	}
	if f.Status != "" {
		filters = append(filters, store.Eq("status", f.Status))
	}

	var tasks []lodging.HousekeepingTask
	err := o.store.RunTx(ctx, propertyID, func(tx store.Tx) error {
		var err error
		tasks, err = store.Query[lodging.HousekeepingTask](ctx, tx, lodging.CollectionTasks, filters...)
		return err
	})
	if err != nil {
		return nil, err
	}
	if f.AssignedTo != "" {
		tasks = slices.DeleteFunc(tasks, func(t lodging.HousekeepingTask) bool {
			return !slices.Contains(t.AssignedTo, f.AssignedTo)
		})
	}
	return tasks, nil
}

// Assign replaces the task's assignee set.
func (o *Orchestrator) Assign(ctx context.Context, propertyID, taskID string, workerIDs []string) error {
	return o.mutate(ctx, propertyID, taskID, func(tx store.Tx, task *lodging.HousekeepingTask, events *[]lodging.Event) (string, map[string]any, error) {
		task.AssignedTo = dedupe(workerIDs)
		*events = append(*events, taskEvent(tx, lodging.EventTaskAssigned, task))
		return "task.assign", map[string]any{"assigned_to": task.AssignedTo}, nil
	})
}

// Start begins work on a pending task. The worker joins the assignee set
// if not already in it.
func (o *Orchestrator) Start(ctx context.Context, propertyID, taskID, workerID string) error {
	if workerID == "" {
		return fmt.Errorf("%w: worker id is required", lodging.ErrInvalidInput)
	}
	return o.mutate(ctx, propertyID, taskID, func(tx store.Tx, task *lodging.HousekeepingTask, events *[]lodging.Event) (string, map[string]any, error) {
		if task.Status != lodging.TaskPending {
			return "", nil, fmt.Errorf("%w: task %s is %s, start needs pending", lodging.ErrInvalidTransition, task.ID, task.Status)
		}
		if err := transition(task, lodging.TaskInProgress); err != nil {
			return "", nil, err
		}
		now := tx.Now()
		task.StartedAt = &now
		if !slices.Contains(task.AssignedTo, workerID) {
			task.AssignedTo = append(task.AssignedTo, workerID)
		}
		*events = append(*events, taskEvent(tx, lodging.EventTaskStarted, task))
		return "task.start", map[string]any{"worker_id": workerID}, nil
	})
}

// Finish submits a task for conference. The checklist is recorded as given;
// unchecked items do not block submission.
func (o *Orchestrator) Finish(ctx context.Context, propertyID, taskID string, checklist []lodging.ChecklistItem, observations string) error {
	for i := range checklist {
		if err := lodging.Validate(checklist[i]); err != nil {
			return err
		}
	}
	return o.mutate(ctx, propertyID, taskID, func(tx store.Tx, task *lodging.HousekeepingTask, events *[]lodging.Event) (string, map[string]any, error) {
		if task.Status != lodging.TaskInProgress {
			return "", nil, fmt.Errorf("%w: task %s is %s, finish needs in_progress", lodging.ErrInvalidTransition, task.ID, task.Status)
		}
		if err := transition(task, lodging.TaskWaitingConference); err != nil {
			return "", nil, err
		}
		now := tx.Now()
		task.FinishedAt = &now
		if checklist != nil {
			task.Checklist = checklist
		}
		task.AddObservation(observations)

		done, total := task.ChecklistProgress()
		*events = append(*events, taskEvent(tx, lodging.EventTaskFinished, task))
		return "task.finish", map[string]any{"checked": done, "total": total}, nil
	})
}

// Confer records the supervisor's verdict on a task waiting for conference.
// Approval completes the task and, for a turnover, frees the cabin in the
// same transaction. Rejection sends it back to in_progress with a rework note.
func (o *Orchestrator) Confer(ctx context.Context, propertyID, taskID, cabinID string, approved bool, note string) error {
	return o.mutate(ctx, propertyID, taskID, func(tx store.Tx, task *lodging.HousekeepingTask, events *[]lodging.Event) (string, map[string]any, error) {
		if cabinID != "" && cabinID != task.CabinID {
			return "", nil, fmt.Errorf("%w: task %s belongs to cabin %s, not %s", lodging.ErrInvalidInput, task.ID, task.CabinID, cabinID)
		}
		if task.Status != lodging.TaskWaitingConference {
			return "", nil, fmt.Errorf("%w: task %s is %s, conference needs waiting_conference", lodging.ErrInvalidTransition, task.ID, task.Status)
		}

		now := tx.Now()
		actor := audit.ActorFrom(ctx).ID
		details := map[string]any{"approved": approved}

		if !approved {
			if err := transition(task, lodging.TaskInProgress); err != nil {
				return "", nil, err
			}
			task.ReworkCount++
			reason := ReworkNote
			if note != "" {
				reason += ": " + note
			}
			task.AddObservation(reason)
			task.FinishedAt = nil
			details["rework_count"] = task.ReworkCount
			*events = append(*events, taskEvent(tx, lodging.EventTaskReworkRequested, task))
			return "task.rework", details, nil
		}

		if err := transition(task, lodging.TaskCompleted); err != nil {
			return "", nil, err
		}
		task.ConferredAt = &now
		task.ConferredBy = actor
		task.AddObservation(note)
		*events = append(*events, taskEvent(tx, lodging.EventTaskApproved, task))

		if task.Type == lodging.TaskTurnover {
			// The task row is written by mutate after this returns, so save it
			// first: Reconcile must not see it as still open.
			if err := saveTask(ctx, tx, task); err != nil {
				return "", nil, err
			}
			ev, err := cabin.Reconcile(ctx, tx, task.CabinID, "turnover_completed")
			if err != nil {
				return "", nil, err
			}
			appendEvent(events, ev)
		}
		return "task.approve", details, nil
	})
}

// Cancel withdraws a daily task. Turnover tasks leave the workflow only by
// conference or by undoing the check-out that created them.
func (o *Orchestrator) Cancel(ctx context.Context, propertyID, taskID, reason string) error {
	if reason == "" {
		return fmt.Errorf("%w: cancellation reason is required", lodging.ErrInvalidInput)
	}
	return o.mutate(ctx, propertyID, taskID, func(tx store.Tx, task *lodging.HousekeepingTask, events *[]lodging.Event) (string, map[string]any, error) {
		if task.Type == lodging.TaskTurnover {
			return "", nil, fmt.Errorf("%w: turnover task %s cannot be cancelled directly", lodging.ErrInvalidTransition, task.ID)
		}
		if err := cancelTask(tx, task, reason); err != nil {
			return "", nil, err
		}
		*events = append(*events, taskEvent(tx, lodging.EventTaskCancelled, task))
		return "task.cancel", map[string]any{"reason": reason}, nil
	})
}

// UpdateTask applies an administrative override, then re-derives the
// cabin's cleaning status from what is left open. An override that would
// open a turnover is refused while the cabin is occupied or already has one.
func (o *Orchestrator) UpdateTask(ctx context.Context, propertyID, taskID string, patch TaskPatch) error {
	if patch.Status != nil && !validStatus(*patch.Status) {
		return fmt.Errorf("%w: unknown task status %q", lodging.ErrInvalidInput, *patch.Status)
	}
	if patch.Type != nil && !patch.Type.Valid() {
		return fmt.Errorf("%w: unknown task type %q", lodging.ErrInvalidInput, *patch.Type)
	}

	return o.mutate(ctx, propertyID, taskID, func(tx store.Tx, task *lodging.HousekeepingTask, events *[]lodging.Event) (string, map[string]any, error) {
		details := map[string]any{}
		wasOpenTurnover := isOpenTurnover(task)
		if patch.Status != nil {
			details["status"] = map[string]any{"from": string(task.Status), "to": string(*patch.Status)}
			task.Status = *patch.Status
		}
		if patch.Type != nil {
			details["type"] = string(*patch.Type)
			task.Type = *patch.Type
		}
		if patch.AssignedTo != nil {
			task.AssignedTo = dedupe(*patch.AssignedTo)
			details["assigned_to"] = task.AssignedTo
		}
		if patch.Checklist != nil {
			task.Checklist = *patch.Checklist
			details["checklist"] = len(task.Checklist)
		}
		if patch.Observations != nil {
			task.Observations = *patch.Observations
		}

		if isOpenTurnover(task) && !wasOpenTurnover {
			c, err := cabin.Load(ctx, tx, task.CabinID)
			if err != nil {
				return "", nil, err
			}
			if c.Status == lodging.CabinOccupied {
				return "", nil, fmt.Errorf("%w: cabin %s is occupied by stay %s, turnover cannot be opened",
					lodging.ErrInvalidTransition, c.ID, c.CurrentStayID)
			}
			if err := ensureNoOpenTurnover(ctx, tx, task.CabinID); err != nil {
				return "", nil, err
			}
		}

		if err := saveTask(ctx, tx, task); err != nil {
			return "", nil, err
		}
		ev, err := cabin.Reconcile(ctx, tx, task.CabinID, "task_override")
		if err != nil {
			return "", nil, err
		}
		appendEvent(events, ev)
		*events = append(*events, taskEvent(tx, lodging.EventTaskUpdated, task))
		return "task.update", details, nil
	})
}

// DeleteTask removes a task outright and re-derives the cabin status.
func (o *Orchestrator) DeleteTask(ctx context.Context, propertyID, taskID string) error {
	return o.run(ctx, propertyID, func(tx store.Tx, events *[]lodging.Event) error {
		task, err := store.Get[lodging.HousekeepingTask](ctx, tx, lodging.CollectionTasks, taskID)
		if err != nil {
			return err
		}
		if err := tx.Delete(ctx, lodging.CollectionTasks, taskID); err != nil {
			return err
		}
		ev, err := cabin.Reconcile(ctx, tx, task.CabinID, "task_deleted")
		if err != nil {
			return err
		}
		appendEvent(events, ev)

		tx.Audit(audit.AuditLog{
			Action:     "task.delete",
			EntityType: "housekeeping_task",
			EntityID:   taskID,
			Details:    map[string]any{"cabin_id": task.CabinID, "status": string(task.Status), "type": string(task.Type)},
		})
		*events = append(*events, taskEvent(tx, lodging.EventTaskDeleted, task))
		return nil
	})
}

// run executes fn in a transaction and publishes the collected events once
// it commits.
func (o *Orchestrator) run(ctx context.Context, propertyID string, fn func(tx store.Tx, events *[]lodging.Event) error) error {
	var events []lodging.Event
	err := o.store.RunTx(ctx, propertyID, func(tx store.Tx) error {
		events = events[:0]
		return fn(tx, &events)
	})
	if err != nil {
		return err
	}
	o.publisher.Publish(ctx, events)
	return nil
}

// mutate loads a task, lets fn change it, then saves and audits it.
func (o *Orchestrator) mutate(
	ctx context.Context, propertyID, taskID string,
	fn func(tx store.Tx, task *lodging.HousekeepingTask, events *[]lodging.Event) (string, map[string]any, error),
) error {
	return o.run(ctx, propertyID, func(tx store.Tx, events *[]lodging.Event) error {
		task, err := store.Get[lodging.HousekeepingTask](ctx, tx, lodging.CollectionTasks, taskID)
		if err != nil {
			return err
		}
		action, details, err := fn(tx, task, events)
		if err != nil {
			return err
		}
		if err := saveTask(ctx, tx, task); err != nil {
			return err
		}
		tx.Audit(audit.AuditLog{
			Action:     action,
			EntityType: "housekeeping_task",
			EntityID:   task.ID,
			Details:    details,
		})
		return nil
	})
}

func saveTask(ctx context.Context, tx store.Tx, task *lodging.HousekeepingTask) error {
	task.UpdatedAt = tx.Now()
	if err := tx.Update(ctx, lodging.CollectionTasks, task.ID, task); err != nil {
		return fmt.Errorf("saving task %s: %w", task.ID, err)
	}
	return nil
}

func insertTask(ctx context.Context, tx store.Tx, task *lodging.HousekeepingTask, origin string, events *[]lodging.Event) error {
	if err := tx.Create(ctx, lodging.CollectionTasks, task.ID, task); err != nil {
		return fmt.Errorf("creating task: %w", err)
	}
	tx.Audit(audit.AuditLog{
		Action:     "task.create",
		EntityType: "housekeeping_task",
		EntityID:   task.ID,
		Details: map[string]any{
			"cabin_id": task.CabinID,
			"stay_id":  task.StayID,
			"type":     string(task.Type),
			"origin":   origin,
		},
	})
	*events = append(*events, taskEvent(tx, lodging.EventTaskCreated, task))
	return nil
}

func newTask(tx store.Tx, cabinID, stayID string, typ lodging.TaskType) *lodging.HousekeepingTask {
	now := tx.Now()
	return &lodging.HousekeepingTask{
		ID:         "task-" + uuid.NewString(),
		PropertyID: tx.PropertyID(),
		CabinID:    cabinID,
		StayID:     stayID,
		Type:       typ,
		Status:     lodging.TaskPending,
		AssignedTo: []string{},
		Checklist:  []lodging.ChecklistItem{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func transition(task *lodging.HousekeepingTask, to lodging.TaskStatus) error {
	next, err := task.Status.Transition(to)
	if err != nil {
		return fmt.Errorf("task %s: %w", task.ID, err)
	}
	task.Status = next
	return nil
}

func cancelTask(tx store.Tx, task *lodging.HousekeepingTask, reason string) error {
	if err := transition(task, lodging.TaskCancelled); err != nil {
		return err
	}
	now := tx.Now()
	task.CancelledAt = &now
	task.AddObservation("cancelled: " + reason)
	return nil
}

func ensureNoOpenTurnover(ctx context.Context, tx store.Tx, cabinID string) error {
	open, err := cabin.OpenTurnovers(ctx, tx, cabinID)
	if err != nil {
		return err
	}
	if len(open) > 0 {
		return fmt.Errorf("%w: cabin %s has %s (%s)", lodging.ErrDuplicateTurnover, cabinID, open[0].ID, open[0].Status)
	}
	return nil
}

func isOpenTurnover(task *lodging.HousekeepingTask) bool {
	return task.Type == lodging.TaskTurnover && !task.Status.Terminal()
}

func taskEvent(tx store.Tx, eventType string, task *lodging.HousekeepingTask) lodging.Event {
	return lodging.Event{
		Type:       eventType,
		PropertyID: tx.PropertyID(),
		Entity:     "housekeeping_task",
		EntityID:   task.ID,
		At:         tx.Now(),
		Data: map[string]any{
			"cabinId": task.CabinID,
			"stayId":  task.StayID,
			"type":    string(task.Type),
			"status":  string(task.Status),
		},
	}
}

func appendEvent(events *[]lodging.Event, ev *lodging.Event) {
	if ev != nil {
		*events = append(*events, *ev)
	}
}

func validStatus(s lodging.TaskStatus) bool {
	return slices.Contains(lodging.OpenTaskStatuses, s) || s.Terminal()
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
