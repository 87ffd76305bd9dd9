package cabin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/stayflow-core/internal/clock"
	"github.com/nerrad567/stayflow-core/internal/lodging"
	"github.com/nerrad567/stayflow-core/internal/store"
	"github.com/nerrad567/stayflow-core/internal/store/storetest"
)

const prop = "pousada"

func setup(t *testing.T, cabins ...lodging.Cabin) *storetest.Env {
	t.Helper()
	env := storetest.New(t, clock.NewManual(time.Date(2025, 6, 13, 11, 0, 0, 0, time.UTC)))
	docs := make(map[string]lodging.Cabin, len(cabins))
	for _, c := range cabins {
		c.PropertyID = prop
		docs[c.ID] = c
	}
	storetest.Seed(t, env.Store, prop, lodging.CollectionCabins, docs)
	return env
}

func run(t *testing.T, env *storetest.Env, fn func(ctx context.Context, tx store.Tx) error) error {
	t.Helper()
	ctx := context.Background()
	return env.Store.RunTx(ctx, prop, func(tx store.Tx) error { return fn(ctx, tx) })
}

func TestOccupy(t *testing.T) {
	tests := []struct {
		name      string
		cabin     lodging.Cabin
		stayID    string
		wantErr   error
		wantEvent bool
	}{
		{"available", lodging.Cabin{ID: "c1", Status: lodging.CabinAvailable}, "s1", nil, true},
		{"same stay is a no-op", lodging.Cabin{ID: "c1", Status: lodging.CabinOccupied, CurrentStayID: "s1"}, "s1", nil, false},
		{"other stay", lodging.Cabin{ID: "c1", Status: lodging.CabinOccupied, CurrentStayID: "s0"}, "s1", lodging.ErrInvalidTransition, false},
		{"cleaning", lodging.Cabin{ID: "c1", Status: lodging.CabinCleaning}, "s1", lodging.ErrInvalidTransition, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setup(t, tt.cabin)
			err := run(t, env, func(ctx context.Context, tx store.Tx) error {
				c, err := Load(ctx, tx, "c1")
				if err != nil {
					return err
				}
				ev, err := Occupy(ctx, tx, c, tt.stayID)
				if (ev != nil) != tt.wantEvent {
					t.Errorf("event = %+v, wantEvent %v", ev, tt.wantEvent)
				}
				return err
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Occupy() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil {
				got := storetest.Fetch[lodging.Cabin](t, env.Store, prop, lodging.CollectionCabins, "c1")
				if got.Status != lodging.CabinOccupied || got.CurrentStayID != tt.stayID {
					t.Errorf("cabin = %s/%q, want occupied/%s", got.Status, got.CurrentStayID, tt.stayID)
				}
			}
		})
	}
}

func TestVacateAndRestore(t *testing.T) {
	env := setup(t, lodging.Cabin{ID: "c1", Status: lodging.CabinOccupied, CurrentStayID: "s1"})

	err := run(t, env, func(ctx context.Context, tx store.Tx) error {
		c, err := Load(ctx, tx, "c1")
		if err != nil {
			return err
		}
		if _, err := Vacate(ctx, tx, c, "s2"); !errors.Is(err, lodging.ErrInvalidTransition) {
			t.Errorf("Vacate(wrong stay) = %v, want ErrInvalidTransition", err)
		}
		_, err = Vacate(ctx, tx, c, "s1")
		return err
	})
	if err != nil {
		t.Fatalf("Vacate: %v", err)
	}
	got := storetest.Fetch[lodging.Cabin](t, env.Store, prop, lodging.CollectionCabins, "c1")
	if got.Status != lodging.CabinCleaning || got.CurrentStayID != "" {
		t.Fatalf("after Vacate cabin = %s/%q", got.Status, got.CurrentStayID)
	}

	err = run(t, env, func(ctx context.Context, tx store.Tx) error {
		c, err := Load(ctx, tx, "c1")
		if err != nil {
			return err
		}
		_, err = Restore(ctx, tx, c, "s1")
		return err
	})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	got = storetest.Fetch[lodging.Cabin](t, env.Store, prop, lodging.CollectionCabins, "c1")
	if got.Status != lodging.CabinOccupied || got.CurrentStayID != "s1" {
		t.Errorf("after Restore cabin = %s/%q, want occupied/s1", got.Status, got.CurrentStayID)
	}
}

func TestBeginCleaning(t *testing.T) {
	env := setup(t,
		lodging.Cabin{ID: "free", Status: lodging.CabinAvailable},
		lodging.Cabin{ID: "busy", Status: lodging.CabinOccupied, CurrentStayID: "s1"},
	)

	err := run(t, env, func(ctx context.Context, tx store.Tx) error {
		free, err := Load(ctx, tx, "free")
		if err != nil {
			return err
		}
		if _, err := BeginCleaning(ctx, tx, free); err != nil {
			return err
		}
		busy, err := Load(ctx, tx, "busy")
		if err != nil {
			return err
		}
		if _, err := BeginCleaning(ctx, tx, busy); !errors.Is(err, lodging.ErrInvalidTransition) {
			t.Errorf("BeginCleaning(occupied) = %v, want ErrInvalidTransition", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := storetest.Fetch[lodging.Cabin](t, env.Store, prop, lodging.CollectionCabins, "free"); got.Status != lodging.CabinCleaning {
		t.Errorf("free cabin = %s, want cleaning", got.Status)
	}
}

func TestReconcile(t *testing.T) {
	env := setup(t,
		lodging.Cabin{ID: "c1", Status: lodging.CabinCleaning},
		lodging.Cabin{ID: "c2", Status: lodging.CabinAvailable},
		lodging.Cabin{ID: "c3", Status: lodging.CabinOccupied, CurrentStayID: "s3"},
	)
	storetest.Seed(t, env.Store, prop, lodging.CollectionTasks, map[string]lodging.HousekeepingTask{
		"t1": {ID: "t1", CabinID: "c1", Type: lodging.TaskTurnover, Status: lodging.TaskCompleted},
		"t2": {ID: "t2", CabinID: "c2", Type: lodging.TaskTurnover, Status: lodging.TaskPending},
		"t3": {ID: "t3", CabinID: "c3", Type: lodging.TaskTurnover, Status: lodging.TaskPending},
		"t4": {ID: "t4", CabinID: "c1", Type: lodging.TaskDaily, Status: lodging.TaskPending},
	})

	err := run(t, env, func(ctx context.Context, tx store.Tx) error {
		for _, id := range []string{"c1", "c2", "c3"} {
			if _, err := Reconcile(ctx, tx, id, "test"); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	want := map[string]lodging.CabinStatus{
		"c1": lodging.CabinAvailable, // only a daily task remains open
		"c2": lodging.CabinCleaning,
		"c3": lodging.CabinOccupied,
	}
	for id, status := range want {
		if got := storetest.Fetch[lodging.Cabin](t, env.Store, prop, lodging.CollectionCabins, id); got.Status != status {
			t.Errorf("cabin %s = %s, want %s", id, got.Status, status)
		}
	}
}
