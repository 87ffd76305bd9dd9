package housekeeping

import (
	"context"
	"fmt"

	"github.com/nerrad567/stayflow-core/internal/audit"
	"github.com/nerrad567/stayflow-core/internal/lodging"
	"github.com/nerrad567/stayflow-core/internal/store"
)

// The functions below run inside a transaction owned by the stay lifecycle.
// They never publish; the returned events go out with the caller's commit.

// StageTurnover creates the turnover task for a stay that has just checked
// out of cabinID. The cabin must already be in cleaning.
func StageTurnover(ctx context.Context, tx store.Tx, cabinID, stayID string) (*lodging.HousekeepingTask, []lodging.Event, error) {
	task := newTask(tx, cabinID, stayID, lodging.TaskTurnover)
	task.Checklist = lodging.DefaultTurnoverChecklist()

	var events []lodging.Event
	if err := insertTask(ctx, tx, task, "check_out", &events); err != nil {
		return nil, nil, err
	}
	return task, events, nil
}

// CancelPendingDaily cancels the cabin's daily tasks that nobody has started.
// Work already in progress or awaiting conference is left to finish.
func CancelPendingDaily(ctx context.Context, tx store.Tx, cabinID, reason string) ([]lodging.Event, error) {
	tasks, err := store.Query[lodging.HousekeepingTask](ctx, tx, lodging.CollectionTasks,
		store.Eq("cabinId", cabinID),
		store.Eq("type", lodging.TaskDaily),
		store.Eq("status", lodging.TaskPending),
	)
	if err != nil {
		return nil, fmt.Errorf("listing daily tasks for cabin %s: %w", cabinID, err)
	}

	events := make([]lodging.Event, 0, len(tasks))
	for i := range tasks {
		task := &tasks[i]
		if err := cancelTask(tx, task, reason); err != nil {
			return nil, err
		}
		if err := saveTask(ctx, tx, task); err != nil {
			return nil, err
		}
		tx.Audit(audit.AuditLog{
			Action:     "task.cancel",
			EntityType: "housekeeping_task",
			EntityID:   task.ID,
			Details:    map[string]any{"reason": reason, "cabin_id": cabinID},
		})
		events = append(events, taskEvent(tx, lodging.EventTaskCancelled, task))
	}
	return events, nil
}

// OpenTurnoversForStay lists the stay's turnover tasks that are not yet
// completed or cancelled.
func OpenTurnoversForStay(ctx context.Context, tx store.Tx, stayID string) ([]lodging.HousekeepingTask, error) {
	return store.Query[lodging.HousekeepingTask](ctx, tx, lodging.CollectionTasks,
		store.Eq("stayId", stayID),
		store.Eq("type", lodging.TaskTurnover),
		store.In("status", lodging.OpenTaskStatuses...),
	)
}

// CancelTurnoversForStay cancels every open turnover created for stayID,
// whatever its progress. The observation keeps the status and checklist
// progress the task had when it was withdrawn.
func CancelTurnoversForStay(ctx context.Context, tx store.Tx, stayID, reason string) ([]lodging.Event, error) {
	tasks, err := OpenTurnoversForStay(ctx, tx, stayID)
	if err != nil {
		return nil, fmt.Errorf("listing turnovers for stay %s: %w", stayID, err)
	}

	events := make([]lodging.Event, 0, len(tasks))
	for i := range tasks {
		task := &tasks[i]
		prev := task.Status
		done, total := task.ChecklistProgress()

		if err := cancelTask(tx, task, fmt.Sprintf("%s (was %s, checklist %d/%d)", reason, prev, done, total)); err != nil {
			return nil, err
		}
		if err := saveTask(ctx, tx, task); err != nil {
			return nil, err
		}
		tx.Audit(audit.AuditLog{
			Action:     "task.cancel",
			EntityType: "housekeeping_task",
			EntityID:   task.ID,
			Details: map[string]any{
				"reason":          reason,
				"stay_id":         stayID,
				"previous_status": string(prev),
				"checked":         done,
				"total":           total,
			},
		})
		events = append(events, taskEvent(tx, lodging.EventTaskCancelled, task))
	}
	return events, nil
}
