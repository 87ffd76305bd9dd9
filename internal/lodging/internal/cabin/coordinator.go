// Package cabin keeps cabin occupancy in step with the stays and
// housekeeping tasks that own it.
//
// Every function writes through the caller's transaction. The package is
// internal to lodging: only the stay and housekeeping packages move a cabin,
// and always in the same transaction as the change that justifies the move.
package cabin

import (
	"context"
	"fmt"

	"github.com/nerrad567/stayflow-core/internal/audit"
	"github.com/nerrad567/stayflow-core/internal/lodging"
	"github.com/nerrad567/stayflow-core/internal/store"
)

// Load reads a cabin.
func Load(ctx context.Context, tx store.Tx, id string) (*lodging.Cabin, error) {
	return store.Get[lodging.Cabin](ctx, tx, lodging.CollectionCabins, id)
}

// Occupy marks the cabin occupied by stayID. Repeating it for the stay that
// already holds the cabin changes nothing and returns a nil event.
func Occupy(ctx context.Context, tx store.Tx, c *lodging.Cabin, stayID string) (*lodging.Event, error) {
	if c.Status == lodging.CabinOccupied && c.CurrentStayID == stayID {
		return nil, nil
	}
	if c.Status != lodging.CabinAvailable {
		return nil, notReady(c)
	}
	return move(ctx, tx, c, lodging.CabinOccupied, stayID, "check_in")
}

// Vacate sends an occupied cabin to cleaning when its stay checks out.
func Vacate(ctx context.Context, tx store.Tx, c *lodging.Cabin, stayID string) (*lodging.Event, error) {
	if c.Status != lodging.CabinOccupied || c.CurrentStayID != stayID {
		return nil, fmt.Errorf("%w: cabin %s is %s with stay %q, not occupied by %s",
			lodging.ErrInvalidTransition, c.ID, c.Status, c.CurrentStayID, stayID)
	}
	return move(ctx, tx, c, lodging.CabinCleaning, "", "check_out")
}

// Restore hands the cabin back to stayID when its check-out is undone.
func Restore(ctx context.Context, tx store.Tx, c *lodging.Cabin, stayID string) (*lodging.Event, error) {
	if c.Status == lodging.CabinOccupied {
		if c.CurrentStayID == stayID {
			return nil, nil
		}
		return nil, notReady(c)
	}
	return move(ctx, tx, c, lodging.CabinOccupied, stayID, "undo_check_out")
}

// BeginCleaning moves an available cabin to cleaning for an ad-hoc turnover.
// An occupied cabin is refused: its stay must check out first.
func BeginCleaning(ctx context.Context, tx store.Tx, c *lodging.Cabin) (*lodging.Event, error) {
	switch c.Status {
	case lodging.CabinCleaning:
		return nil, nil
	case lodging.CabinOccupied:
		return nil, notReady(c)
	}
	return move(ctx, tx, c, lodging.CabinCleaning, "", "turnover_created")
}

// Reconcile derives an unoccupied cabin's status from its open turnover
// tasks: cleaning while one exists, available otherwise. Occupied cabins
// belong to their stay and are left alone.
func Reconcile(ctx context.Context, tx store.Tx, cabinID, reason string) (*lodging.Event, error) {
	c, err := Load(ctx, tx, cabinID)
	if err != nil {
		return nil, err
	}
	if c.Status == lodging.CabinOccupied {
		return nil, nil
	}

	open, err := OpenTurnovers(ctx, tx, cabinID)
	if err != nil {
		return nil, err
	}
	want := lodging.CabinAvailable
	if len(open) > 0 {
		want = lodging.CabinCleaning
	}
	if c.Status == want {
		return nil, nil
	}
	return move(ctx, tx, c, want, "", reason)
}

// OpenTurnovers lists the cabin's non-terminal turnover tasks.
func OpenTurnovers(ctx context.Context, tx store.Tx, cabinID string) ([]lodging.HousekeepingTask, error) {
	return store.Query[lodging.HousekeepingTask](ctx, tx, lodging.CollectionTasks,
		store.Eq("cabinId", cabinID),
		store.Eq("type", lodging.TaskTurnover),
		store.In("status", lodging.OpenTaskStatuses...),
	)
}

func move(ctx context.Context, tx store.Tx, c *lodging.Cabin, to lodging.CabinStatus, stayID, reason string) (*lodging.Event, error) {
	from := c.Status
	next, err := from.Transition(to)
	if err != nil {
		return nil, fmt.Errorf("cabin %s: %w", c.ID, err)
	}

	c.Status = next
	c.CurrentStayID = stayID
	c.UpdatedAt = tx.Now()
	if err := tx.Update(ctx, lodging.CollectionCabins, c.ID, c); err != nil {
		return nil, fmt.Errorf("saving cabin %s: %w", c.ID, err)
	}

	details := map[string]any{"from": string(from), "to": string(next), "reason": reason}
	if stayID != "" {
		details["stay_id"] = stayID
	}
	tx.Audit(audit.AuditLog{
		Action:     "cabin.status_changed",
		EntityType: "cabin",
		EntityID:   c.ID,
		Details:    details,
	})

	return &lodging.Event{
		Type:       lodging.EventCabinStatusChanged,
		PropertyID: tx.PropertyID(),
		Entity:     "cabin",
		EntityID:   c.ID,
		At:         tx.Now(),
		Data:       details,
	}, nil
}

func notReady(c *lodging.Cabin) error {
	if c.CurrentStayID != "" {
		return fmt.Errorf("%w: cabin %s is %s by stay %s", lodging.ErrInvalidTransition, c.ID, c.Status, c.CurrentStayID)
	}
	return fmt.Errorf("%w: cabin %s is %s", lodging.ErrInvalidTransition, c.ID, c.Status)
}
