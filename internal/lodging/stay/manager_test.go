package stay

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/stayflow-core/internal/automation"
	"github.com/nerrad567/stayflow-core/internal/clock"
	"github.com/nerrad567/stayflow-core/internal/lodging"
	"github.com/nerrad567/stayflow-core/internal/lodging/housekeeping"
	"github.com/nerrad567/stayflow-core/internal/store"
	"github.com/nerrad567/stayflow-core/internal/store/storetest"
)

const prop = "pousada"

type fired struct {
	stayID string
	event  automation.TriggerEvent
}

// recordingAutomation remembers every trigger. Triggers fired inside a
// transaction that later rolls back are recorded too.
type recordingAutomation struct {
	mu        sync.Mutex
	fired     []fired
	discarded []string
}

func (r *recordingAutomation) Fire(_ context.Context, _ store.Tx, stayID string, event automation.TriggerEvent) *automation.QueuedMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fired = append(r.fired, fired{stayID, event})
	return &automation.QueuedMessage{ID: "msg-" + string(event)}
}

func (r *recordingAutomation) DiscardPending(_ context.Context, _ store.Tx, stayID, _ string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discarded = append(r.discarded, stayID)
	return 1, nil
}

func (r *recordingAutomation) events(stayID string) []automation.TriggerEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []automation.TriggerEvent
	for _, f := range r.fired {
		if f.stayID == stayID {
			out = append(out, f.event)
		}
	}
	return out
}

type harness struct {
	env  *storetest.Env
	auto *recordingAutomation
	mgr  *Manager
	hk   *housekeeping.Orchestrator
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	env := storetest.New(t, clock.NewManual(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)))
	auto := &recordingAutomation{}
	h := &harness{
		env:  env,
		auto: auto,
		mgr:  New(env.Store, auto, opts...),
		hk:   housekeeping.New(env.Store),
	}
	for _, id := range []string{"c1", "c2", "c3"} {
		if _, err := h.mgr.RegisterCabin(context.Background(), prop, CabinRequest{ID: id, Name: "Cabin " + id}); err != nil {
			t.Fatalf("RegisterCabin(%s): %v", id, err)
		}
	}
	return h
}

func (h *harness) book(t *testing.T, cabinID, checkIn, checkOut string) string {
	t.Helper()
	b, err := h.mgr.BookStay(context.Background(), prop, BookingRequest{
		Guest:    &GuestInput{FirstName: "Ana", LastName: "Souza", Phone: "+5511999990000"},
		CabinIDs: []string{cabinID},
		CheckIn:  checkIn,
		CheckOut: checkOut,
	})
	if err != nil {
		t.Fatalf("BookStay: %v", err)
	}
	return b.Stays[0].ID
}

// arrive books cabinID and takes the stay through pre-checkin and check-in.
func (h *harness) arrive(t *testing.T, cabinID string) string {
	t.Helper()
	ctx := context.Background()
	id := h.book(t, cabinID, "2025-06-10", "2025-06-13")
	if err := h.mgr.CompletePreCheckin(ctx, prop, id, PreCheckinRequest{}); err != nil {
		t.Fatalf("CompletePreCheckin: %v", err)
	}
	if err := h.mgr.CheckIn(ctx, prop, id); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	return id
}

func (h *harness) stay(t *testing.T, id string) *lodging.Stay {
	t.Helper()
	return storetest.Fetch[lodging.Stay](t, h.env.Store, prop, lodging.CollectionStays, id)
}

func (h *harness) cabin(t *testing.T, id string) *lodging.Cabin {
	t.Helper()
	return storetest.Fetch[lodging.Cabin](t, h.env.Store, prop, lodging.CollectionCabins, id)
}

func (h *harness) turnovers(t *testing.T, stayID string) []lodging.HousekeepingTask {
	t.Helper()
	return storetest.List[lodging.HousekeepingTask](t, h.env.Store, prop, lodging.CollectionTasks,
		store.Eq("stayId", stayID), store.Eq("type", lodging.TaskTurnover))
}

func TestCheckInCheckOutScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	id := h.book(t, "c1", "2025-06-10", "2025-06-13")
	s := h.stay(t, id)
	if s.Status != lodging.StayPending || len(s.AccessCode) != 5 || !s.AutomationFlags.PreCheckinSent {
		t.Fatalf("booked stay = %+v", s)
	}

	if err := h.mgr.CompletePreCheckin(ctx, prop, id, PreCheckinRequest{EstimatedArrival: "15:30"}); err != nil {
		t.Fatal(err)
	}
	if err := h.mgr.CheckIn(ctx, prop, id); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	s = h.stay(t, id)
	if s.Status != lodging.StayActive || s.CheckedInAt == nil {
		t.Fatalf("after check-in stay = %s at %v", s.Status, s.CheckedInAt)
	}
	if c := h.cabin(t, "c1"); c.Status != lodging.CabinOccupied || c.CurrentStayID != id {
		t.Fatalf("after check-in cabin = %s/%q", c.Status, c.CurrentStayID)
	}

	if err := h.mgr.CheckOut(ctx, prop, id); err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	s = h.stay(t, id)
	if s.Status != lodging.StayFinished || s.CheckedOutAt == nil {
		t.Errorf("after check-out stay = %s at %v", s.Status, s.CheckedOutAt)
	}
	if c := h.cabin(t, "c1"); c.Status != lodging.CabinCleaning || c.CurrentStayID != "" {
		t.Errorf("after check-out cabin = %s/%q", c.Status, c.CurrentStayID)
	}
	tasks := h.turnovers(t, id)
	if len(tasks) != 1 || tasks[0].Status != lodging.TaskPending || tasks[0].CabinID != "c1" {
		t.Fatalf("turnover tasks = %+v", tasks)
	}

	want := []automation.TriggerEvent{
		automation.EventBookingConfirmed,
		automation.EventPreCheckinDone,
		automation.EventWelcomeCheckin,
		automation.EventCheckoutThanks,
		automation.EventNPSSurvey,
	}
	got := h.auto.events(id)
	if len(got) != len(want) {
		t.Fatalf("fired = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fired[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestSecondCheckOutIsRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.arrive(t, "c1")

	if err := h.mgr.CheckOut(ctx, prop, id); err != nil {
		t.Fatal(err)
	}
	if err := h.mgr.CheckOut(ctx, prop, id); !errors.Is(err, lodging.ErrInvalidTransition) {
		t.Fatalf("second CheckOut = %v, want ErrInvalidTransition", err)
	}
	if n := len(h.turnovers(t, id)); n != 1 {
		t.Errorf("turnover tasks = %d, want 1", n)
	}
}

func TestConcurrentCheckOutAppliesOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.arrive(t, "c1")

	const callers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	start := make(chan struct{})
	for n := 0; n < callers; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := h.mgr.CheckOut(ctx, prop, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, lodging.ErrInvalidTransition), errors.Is(err, store.ErrConflict):
			default:
				t.Errorf("CheckOut = %v, want nil, ErrInvalidTransition or ErrConflict", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if successes != 1 {
		t.Errorf("successful checkouts = %d, want 1", successes)
	}
	if n := len(h.turnovers(t, id)); n != 1 {
		t.Errorf("turnover tasks = %d, want 1", n)
	}
	if s := h.stay(t, id); s.Status != lodging.StayFinished {
		t.Errorf("stay status = %s, want finished", s.Status)
	}
	if c := h.cabin(t, "c1"); c.Status != lodging.CabinCleaning || c.CurrentStayID != "" {
		t.Errorf("cabin = %s/%q, want cleaning with no stay", c.Status, c.CurrentStayID)
	}
}

func TestCheckIn(t *testing.T) {
	ctx := context.Background()

	t.Run("pending stay must complete pre-checkin", func(t *testing.T) {
		h := newHarness(t)
		id := h.book(t, "c1", "2025-06-10", "2025-06-13")
		if err := h.mgr.CheckIn(ctx, prop, id); !errors.Is(err, lodging.ErrInvalidTransition) {
			t.Fatalf("CheckIn(pending) = %v, want ErrInvalidTransition", err)
		}
		if c := h.cabin(t, "c1"); c.Status != lodging.CabinAvailable {
			t.Errorf("cabin = %s, want available", c.Status)
		}
	})

	t.Run("repeat only refreshes timestamp", func(t *testing.T) {
		h := newHarness(t)
		id := h.arrive(t, "c1")
		first := *h.stay(t, id).CheckedInAt

		h.env.Clock.Advance(10 * time.Minute)
		if err := h.mgr.CheckIn(ctx, prop, id); err != nil {
			t.Fatalf("repeat CheckIn: %v", err)
		}
		s := h.stay(t, id)
		if s.Status != lodging.StayActive || !s.CheckedInAt.After(first) {
			t.Errorf("stay = %s checkedInAt %v (first %v)", s.Status, s.CheckedInAt, first)
		}
		welcomes := 0
		for _, e := range h.auto.events(id) {
			if e == automation.EventWelcomeCheckin {
				welcomes++
			}
		}
		if welcomes != 1 {
			t.Errorf("welcome fired %d times, want 1", welcomes)
		}
	})

	t.Run("cabin still being cleaned", func(t *testing.T) {
		h := newHarness(t)
		if _, err := h.hk.CreateTask(ctx, prop, housekeeping.CreateTaskRequest{CabinID: "c1", Type: lodging.TaskTurnover}); err != nil {
			t.Fatal(err)
		}
		id := h.book(t, "c1", "2025-06-10", "2025-06-13")
		if err := h.mgr.CompletePreCheckin(ctx, prop, id, PreCheckinRequest{}); err != nil {
			t.Fatal(err)
		}
		if err := h.mgr.CheckIn(ctx, prop, id); !errors.Is(err, lodging.ErrInvalidTransition) {
			t.Fatalf("CheckIn(cleaning cabin) = %v, want ErrInvalidTransition", err)
		}
		if s := h.stay(t, id); s.Status != lodging.StayPreCheckinDone {
			t.Errorf("stay = %s, want pre_checkin_done", s.Status)
		}
	})
}

func TestCheckOutCancelsPendingDaily(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.arrive(t, "c1")

	pending, err := h.hk.CreateTask(ctx, prop, housekeeping.CreateTaskRequest{CabinID: "c1", Type: lodging.TaskDaily})
	if err != nil {
		t.Fatal(err)
	}
	started, err := h.hk.CreateTask(ctx, prop, housekeeping.CreateTaskRequest{CabinID: "c1", Type: lodging.TaskDaily})
	if err != nil {
		t.Fatal(err)
	}
	if err := h.hk.Start(ctx, prop, started.ID, "maria"); err != nil {
		t.Fatal(err)
	}

	if err := h.mgr.CheckOut(ctx, prop, id); err != nil {
		t.Fatal(err)
	}

	got := storetest.Fetch[lodging.HousekeepingTask](t, h.env.Store, prop, lodging.CollectionTasks, pending.ID)
	if got.Status != lodging.TaskCancelled || !strings.Contains(got.Observations, reasonSupersededByTurnover) {
		t.Errorf("pending daily = %s %q", got.Status, got.Observations)
	}
	if got := storetest.Fetch[lodging.HousekeepingTask](t, h.env.Store, prop, lodging.CollectionTasks, started.ID); got.Status != lodging.TaskInProgress {
		t.Errorf("started daily = %s, want in_progress", got.Status)
	}
}

func TestUndoCheckOut(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.arrive(t, "c1")

	if err := h.mgr.CheckOut(ctx, prop, id); err != nil {
		t.Fatal(err)
	}
	turnover := h.turnovers(t, id)[0]
	if err := h.hk.Start(ctx, prop, turnover.ID, "maria"); err != nil {
		t.Fatal(err)
	}

	if err := h.mgr.UndoCheckOut(ctx, prop, id, "c1"); err != nil {
		t.Fatalf("UndoCheckOut: %v", err)
	}

	s := h.stay(t, id)
	if s.Status != lodging.StayActive || s.CheckedOutAt != nil {
		t.Errorf("stay = %s checkedOutAt %v", s.Status, s.CheckedOutAt)
	}
	if c := h.cabin(t, "c1"); c.Status != lodging.CabinOccupied || c.CurrentStayID != id {
		t.Errorf("cabin = %s/%q, want occupied by %s", c.Status, c.CurrentStayID, id)
	}
	tasks := h.turnovers(t, id)
	if len(tasks) != 1 {
		t.Fatalf("turnover tasks = %d, want the cancelled one kept", len(tasks))
	}
	if tasks[0].Status != lodging.TaskCancelled || !strings.Contains(tasks[0].Observations, "was in_progress") {
		t.Errorf("turnover = %s %q", tasks[0].Status, tasks[0].Observations)
	}

	// Checking out again starts a fresh turnover.
	if err := h.mgr.CheckOut(ctx, prop, id); err != nil {
		t.Fatal(err)
	}
	open := 0
	for _, task := range h.turnovers(t, id) {
		if !task.Status.Terminal() {
			open++
		}
	}
	if open != 1 {
		t.Errorf("open turnovers = %d, want 1", open)
	}
}

func TestUndoCheckOutRejected(t *testing.T) {
	ctx := context.Background()

	t.Run("not finished", func(t *testing.T) {
		h := newHarness(t)
		id := h.arrive(t, "c1")
		if err := h.mgr.UndoCheckOut(ctx, prop, id, "c1"); !errors.Is(err, lodging.ErrInvalidTransition) {
			t.Errorf("UndoCheckOut(active) = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("wrong cabin", func(t *testing.T) {
		h := newHarness(t)
		id := h.arrive(t, "c1")
		if err := h.mgr.CheckOut(ctx, prop, id); err != nil {
			t.Fatal(err)
		}
		if err := h.mgr.UndoCheckOut(ctx, prop, id, "c2"); !errors.Is(err, lodging.ErrInvalidInput) {
			t.Errorf("UndoCheckOut(wrong cabin) = %v, want ErrInvalidInput", err)
		}
	})

	t.Run("cabin already re-let", func(t *testing.T) {
		h := newHarness(t)
		first := h.arrive(t, "c1")
		if err := h.mgr.CheckOut(ctx, prop, first); err != nil {
			t.Fatal(err)
		}
		approve(t, h, h.turnovers(t, first)[0].ID)

		next := h.book(t, "c1", "2025-06-20", "2025-06-22")
		if err := h.mgr.CompletePreCheckin(ctx, prop, next, PreCheckinRequest{}); err != nil {
			t.Fatal(err)
		}
		if err := h.mgr.CheckIn(ctx, prop, next); err != nil {
			t.Fatal(err)
		}
		if err := h.mgr.UndoCheckOut(ctx, prop, first, "c1"); !errors.Is(err, lodging.ErrInvalidTransition) {
			t.Fatalf("UndoCheckOut(re-let) = %v, want ErrInvalidTransition", err)
		}
		if c := h.cabin(t, "c1"); c.CurrentStayID != next {
			t.Errorf("cabin held by %q, want %s", c.CurrentStayID, next)
		}
	})

	t.Run("ad-hoc turnover on the cabin", func(t *testing.T) {
		h := newHarness(t)
		id := h.arrive(t, "c1")
		if err := h.mgr.CheckOut(ctx, prop, id); err != nil {
			t.Fatal(err)
		}
		approve(t, h, h.turnovers(t, id)[0].ID)
		if _, err := h.hk.CreateTask(ctx, prop, housekeeping.CreateTaskRequest{CabinID: "c1", Type: lodging.TaskTurnover}); err != nil {
			t.Fatal(err)
		}
		if err := h.mgr.UndoCheckOut(ctx, prop, id, "c1"); !errors.Is(err, lodging.ErrInvalidTransition) {
			t.Fatalf("UndoCheckOut = %v, want ErrInvalidTransition", err)
		}
	})
}

func approve(t *testing.T, h *harness, taskID string) {
	t.Helper()
	ctx := context.Background()
	if err := h.hk.Start(ctx, prop, taskID, "maria"); err != nil {
		t.Fatal(err)
	}
	if err := h.hk.Finish(ctx, prop, taskID, nil, ""); err != nil {
		t.Fatal(err)
	}
	if err := h.hk.Confer(ctx, prop, taskID, "", true, ""); err != nil {
		t.Fatal(err)
	}
}

func TestRejectedConferenceKeepsCabinCleaning(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.arrive(t, "c1")
	if err := h.mgr.CheckOut(ctx, prop, id); err != nil {
		t.Fatal(err)
	}
	task := h.turnovers(t, id)[0]
	if err := h.hk.Start(ctx, prop, task.ID, "maria"); err != nil {
		t.Fatal(err)
	}
	if err := h.hk.Finish(ctx, prop, task.ID, nil, ""); err != nil {
		t.Fatal(err)
	}

	if err := h.hk.Confer(ctx, prop, task.ID, "c1", false, ""); err != nil {
		t.Fatalf("Confer: %v", err)
	}
	got := h.turnovers(t, id)[0]
	if got.Status != lodging.TaskInProgress || got.Observations == "" {
		t.Errorf("task = %s %q", got.Status, got.Observations)
	}
	if c := h.cabin(t, "c1"); c.Status != lodging.CabinCleaning {
		t.Errorf("cabin = %s, want cleaning", c.Status)
	}
}

func TestCancelAndArchive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pending := h.book(t, "c1", "2025-06-10", "2025-06-13")
	if err := h.mgr.CancelStay(ctx, prop, pending, "guest called"); err != nil {
		t.Fatalf("CancelStay: %v", err)
	}
	s := h.stay(t, pending)
	if s.Status != lodging.StayCancelled || s.CancellationNotes != "guest called" || s.CancelledAt == nil {
		t.Errorf("cancelled stay = %+v", s)
	}
	if len(h.auto.discarded) != 1 || h.auto.discarded[0] != pending {
		t.Errorf("discarded = %v", h.auto.discarded)
	}
	if err := h.mgr.CancelStay(ctx, prop, pending, ""); !errors.Is(err, lodging.ErrInvalidTransition) {
		t.Errorf("second CancelStay = %v", err)
	}

	active := h.arrive(t, "c2")
	if err := h.mgr.CancelStay(ctx, prop, active, ""); !errors.Is(err, lodging.ErrInvalidTransition) {
		t.Errorf("CancelStay(active) = %v, want ErrInvalidTransition", err)
	}
	if err := h.mgr.ArchiveStay(ctx, prop, active); !errors.Is(err, lodging.ErrInvalidTransition) {
		t.Errorf("ArchiveStay(active) = %v, want ErrInvalidTransition", err)
	}
	if err := h.mgr.CheckOut(ctx, prop, active); err != nil {
		t.Fatal(err)
	}
	if err := h.mgr.ArchiveStay(ctx, prop, active); err != nil {
		t.Fatalf("ArchiveStay: %v", err)
	}
	if err := h.mgr.UndoCheckOut(ctx, prop, active, "c2"); !errors.Is(err, lodging.ErrInvalidTransition) {
		t.Errorf("UndoCheckOut(archived) = %v, want ErrInvalidTransition", err)
	}
}

func TestCompletePreCheckin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.book(t, "c1", "2025-06-10", "2025-06-13")

	adults := 2
	req := PreCheckinRequest{
		Guest:        GuestUpdate{Email: "ana@example.com", Document: "123.456.789-00"},
		Adults:       &adults,
		VehiclePlate: "ABC1D23",
	}
	if err := h.mgr.CompletePreCheckin(ctx, prop, id, req); err != nil {
		t.Fatal(err)
	}
	s := h.stay(t, id)
	if s.Status != lodging.StayPreCheckinDone || s.Adults != 2 || s.VehiclePlate != "ABC1D23" {
		t.Errorf("stay = %+v", s)
	}
	g := storetest.Fetch[lodging.Guest](t, h.env.Store, prop, lodging.CollectionGuests, s.GuestID)
	if g.FirstName != "Ana" || g.Email != "ana@example.com" || g.Phone == "" {
		t.Errorf("guest merge = %+v", g)
	}

	// Resubmission updates data without firing again.
	if err := h.mgr.CompletePreCheckin(ctx, prop, id, PreCheckinRequest{Notes: "late arrival"}); err != nil {
		t.Fatal(err)
	}
	count := 0
	for _, e := range h.auto.events(id) {
		if e == automation.EventPreCheckinDone {
			count++
		}
	}
	if count != 1 {
		t.Errorf("pre_checkin_done fired %d times", count)
	}

	bad := PreCheckinRequest{Guest: GuestUpdate{Email: "not-an-email"}}
	if err := h.mgr.CompletePreCheckin(ctx, prop, id, bad); !errors.Is(err, lodging.ErrInvalidInput) {
		t.Errorf("invalid email = %v, want ErrInvalidInput", err)
	}
}

func TestAuditFailureRollsBack(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.arrive(t, "c1")

	failing := store.NewSQLiteStore(h.env.DB.DB, h.env.Clock, failOn{action: "stay.check_out", next: h.env.Audit})
	mgr := New(failing, h.auto)

	err := mgr.CheckOut(ctx, prop, id)
	if !errors.Is(err, store.ErrIntegrity) {
		t.Fatalf("CheckOut = %v, want ErrIntegrity", err)
	}
	if s := h.stay(t, id); s.Status != lodging.StayActive {
		t.Errorf("stay = %s, want active", s.Status)
	}
	if c := h.cabin(t, "c1"); c.Status != lodging.CabinOccupied || c.CurrentStayID != id {
		t.Errorf("cabin = %s/%q, want occupied", c.Status, c.CurrentStayID)
	}
	if n := len(h.turnovers(t, id)); n != 0 {
		t.Errorf("turnover tasks = %d, want 0", n)
	}
}
