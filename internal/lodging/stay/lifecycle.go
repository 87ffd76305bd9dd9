package stay

import (
	"context"
	"fmt"

	"github.com/nerrad567/stayflow-core/internal/audit"
	"github.com/nerrad567/stayflow-core/internal/automation"
	"github.com/nerrad567/stayflow-core/internal/lodging"
	"github.com/nerrad567/stayflow-core/internal/lodging/housekeeping"
	"github.com/nerrad567/stayflow-core/internal/lodging/internal/cabin"
	"github.com/nerrad567/stayflow-core/internal/store"
)

// Observation reasons written on tasks the stay lifecycle cancels.
const (
	reasonSupersededByTurnover = "superseded by turnover after check-out"
	reasonCheckOutUndone       = "check-out undone"
	reasonStayCancelled        = "stay cancelled"
)

// PreCheckinRequest is the data a guest submits before arrival.
type PreCheckinRequest struct {
	Guest            GuestUpdate `json:"guest"`
	Adults           *int        `json:"adults,omitempty" validate:"omitempty,min=1,max=20"`
	Children         *int        `json:"children,omitempty" validate:"omitempty,min=0,max=20"`
	EstimatedArrival string      `json:"estimatedArrival,omitempty" validate:"omitempty,datetime=15:04"`
	VehiclePlate     string      `json:"vehiclePlate,omitempty" validate:"max=16"`
	Notes            string      `json:"notes,omitempty" validate:"max=2000"`
}

// CheckIn marks the guest as arrived and the cabin as occupied. Repeating
// it on an active stay only refreshes the check-in time.
func (m *Manager) CheckIn(ctx context.Context, propertyID, stayID string) error {
	err := m.run(ctx, propertyID, func(tx store.Tx, events *[]lodging.Event) error {
		s, err := loadStay(ctx, tx, stayID)
		if err != nil {
			return err
		}
		now := tx.Now()

		if s.Status == lodging.StayActive {
			s.CheckedInAt = &now
			s.UpdatedAt = now
			if err := saveStay(ctx, tx, s); err != nil {
				return err
			}
			tx.Audit(audit.AuditLog{
				Action:     "stay.check_in_repeated",
				EntityType: "stay",
				EntityID:   s.ID,
			})
			return nil
		}

		if err := transition(s, lodging.StayActive); err != nil {
			return err
		}
		if s.CabinID == "" {
			return fmt.Errorf("%w: stay %s has no cabin", lodging.ErrInvalidInput, s.ID)
		}
		c, err := cabin.Load(ctx, tx, s.CabinID)
		if err != nil {
			return err
		}
		ev, err := cabin.Occupy(ctx, tx, c, s.ID)
		if err != nil {
			return err
		}
		appendEvent(events, ev)

		s.CheckedInAt = &now
		s.UpdatedAt = now
		if err := saveStay(ctx, tx, s); err != nil {
			return err
		}
		tx.Audit(audit.AuditLog{
			Action:     "stay.check_in",
			EntityType: "stay",
			EntityID:   s.ID,
			Details:    map[string]any{"cabin_id": s.CabinID},
		})
		*events = append(*events, stayEvent(tx, lodging.EventStayCheckedIn, s, nil))

		m.fire(ctx, tx, s.ID, automation.EventWelcomeCheckin)
		return nil
	})
	if err != nil {
		return err
	}
	m.logger.Info("stay checked in", "property_id", propertyID, "stay_id", stayID)
	return nil
}

// CheckOut finishes an active stay in one transaction: pending daily tasks
// on the cabin are cancelled, the cabin goes to cleaning and exactly one
// turnover task is created for it.
func (m *Manager) CheckOut(ctx context.Context, propertyID, stayID string) error {
	err := m.run(ctx, propertyID, func(tx store.Tx, events *[]lodging.Event) error {
		s, err := loadStay(ctx, tx, stayID)
		if err != nil {
			return err
		}
		if s.CabinID == "" {
			return fmt.Errorf("%w: stay %s has no cabin", lodging.ErrInvalidInput, s.ID)
		}
		if err := transition(s, lodging.StayFinished); err != nil {
			return err
		}

		cancelled, err := housekeeping.CancelPendingDaily(ctx, tx, s.CabinID, reasonSupersededByTurnover)
		if err != nil {
			return err
		}
		*events = append(*events, cancelled...)

		now := tx.Now()
		s.CheckedOutAt = &now
		s.UpdatedAt = now
		if err := saveStay(ctx, tx, s); err != nil {
			return err
		}

		c, err := cabin.Load(ctx, tx, s.CabinID)
		if err != nil {
			return err
		}
		ev, err := cabin.Vacate(ctx, tx, c, s.ID)
		if err != nil {
			return err
		}
		appendEvent(events, ev)

		task, staged, err := housekeeping.StageTurnover(ctx, tx, s.CabinID, s.ID)
		if err != nil {
			return err
		}
		*events = append(*events, staged...)

		tx.Audit(audit.AuditLog{
			Action:     "stay.check_out",
			EntityType: "stay",
			EntityID:   s.ID,
			Details: map[string]any{
				"cabin_id":         s.CabinID,
				"turnover_task_id": task.ID,
				"daily_cancelled":  len(cancelled),
				"has_open_folio":   s.HasOpenFolio,
			},
		})
		*events = append(*events, stayEvent(tx, lodging.EventStayCheckedOut, s, map[string]any{"turnoverTaskId": task.ID}))

		m.fire(ctx, tx, s.ID, automation.EventCheckoutThanks)
		m.fire(ctx, tx, s.ID, automation.EventNPSSurvey)
		return nil
	})
	if err != nil {
		return err
	}
	m.logger.Info("stay checked out", "property_id", propertyID, "stay_id", stayID)
	return nil
}

// UndoCheckOut reverses a check-out: the stay's open turnover tasks are
// cancelled whatever their progress, the stay is active again and the
// cabin is handed back to it. cabinID must be the stay's cabin.
func (m *Manager) UndoCheckOut(ctx context.Context, propertyID, stayID, cabinID string) error {
	err := m.run(ctx, propertyID, func(tx store.Tx, events *[]lodging.Event) error {
		s, err := loadStay(ctx, tx, stayID)
		if err != nil {
			return err
		}
		if s.Status != lodging.StayFinished {
			return fmt.Errorf("%w: stay %s is %s, undo needs finished", lodging.ErrInvalidTransition, s.ID, s.Status)
		}
		if cabinID != s.CabinID {
			return fmt.Errorf("%w: stay %s is in cabin %s, not %s", lodging.ErrInvalidInput, s.ID, s.CabinID, cabinID)
		}

		c, err := cabin.Load(ctx, tx, s.CabinID)
		if err != nil {
			return err
		}
		if c.Status == lodging.CabinOccupied {
			return fmt.Errorf("%w: cabin %s is occupied by stay %s", lodging.ErrInvalidTransition, c.ID, c.CurrentStayID)
		}
		open, err := cabin.OpenTurnovers(ctx, tx, s.CabinID)
		if err != nil {
			return err
		}
		for _, t := range open {
			if t.StayID != s.ID {
				return fmt.Errorf("%w: cabin %s has turnover %s not created by this check-out",
					lodging.ErrInvalidTransition, c.ID, t.ID)
			}
		}

		cancelled, err := housekeeping.CancelTurnoversForStay(ctx, tx, s.ID, reasonCheckOutUndone)
		if err != nil {
			return err
		}
		*events = append(*events, cancelled...)

		if err := transition(s, lodging.StayActive); err != nil {
			return err
		}
		s.CheckedOutAt = nil
		s.UpdatedAt = tx.Now()
		if err := saveStay(ctx, tx, s); err != nil {
			return err
		}

		ev, err := cabin.Restore(ctx, tx, c, s.ID)
		if err != nil {
			return err
		}
		appendEvent(events, ev)

		tx.Audit(audit.AuditLog{
			Action:     "stay.undo_check_out",
			EntityType: "stay",
			EntityID:   s.ID,
			Details:    map[string]any{"cabin_id": s.CabinID, "turnovers_cancelled": len(cancelled)},
		})
		*events = append(*events, stayEvent(tx, lodging.EventStayCheckOutUndone, s, nil))
		return nil
	})
	if err != nil {
		return err
	}
	m.logger.Info("check-out undone", "property_id", propertyID, "stay_id", stayID)
	return nil
}

// CancelStay cancels a stay before arrival. Messages still waiting in the
// queue for it are withdrawn.
func (m *Manager) CancelStay(ctx context.Context, propertyID, stayID, notes string) error {
	return m.run(ctx, propertyID, func(tx store.Tx, events *[]lodging.Event) error {
		s, err := loadStay(ctx, tx, stayID)
		if err != nil {
			return err
		}
		if err := transition(s, lodging.StayCancelled); err != nil {
			return err
		}
		now := tx.Now()
		s.CancelledAt = &now
		s.CancellationNotes = notes
		s.UpdatedAt = now
		if err := saveStay(ctx, tx, s); err != nil {
			return err
		}

		discarded := 0
		if m.automation != nil {
			discarded, err = m.automation.DiscardPending(ctx, tx, s.ID, reasonStayCancelled)
			if err != nil {
				return err
			}
		}

		tx.Audit(audit.AuditLog{
			Action:     "stay.cancel",
			EntityType: "stay",
			EntityID:   s.ID,
			Details:    map[string]any{"notes": notes, "messages_discarded": discarded},
		})
		*events = append(*events, stayEvent(tx, lodging.EventStayCancelled, s, nil))
		return nil
	})
}

// CompletePreCheckin merges the guest's submission into the guest and
// stay. The first submission moves the stay to pre_checkin_done; later
// ones only update data.
func (m *Manager) CompletePreCheckin(ctx context.Context, propertyID, stayID string, req PreCheckinRequest) error {
	if err := lodging.Validate(req); err != nil {
		return err
	}
	return m.run(ctx, propertyID, func(tx store.Tx, events *[]lodging.Event) error {
		s, err := loadStay(ctx, tx, stayID)
		if err != nil {
			return err
		}
		first := s.Status != lodging.StayPreCheckinDone
		if first {
			if err := transition(s, lodging.StayPreCheckinDone); err != nil {
				return err
			}
		}

		g, err := store.Get[lodging.Guest](ctx, tx, lodging.CollectionGuests, s.GuestID)
		if err != nil {
			return fmt.Errorf("guest of stay %s: %w", s.ID, err)
		}
		mergeGuest(g, req.Guest)
		g.UpdatedAt = tx.Now()
		if err := tx.Update(ctx, lodging.CollectionGuests, g.ID, g); err != nil {
			return fmt.Errorf("saving guest %s: %w", g.ID, err)
		}

		if req.Adults != nil {
			s.Adults = *req.Adults
		}
		if req.Children != nil {
			s.Children = *req.Children
		}
		if req.EstimatedArrival != "" {
			s.EstimatedArrival = req.EstimatedArrival
		}
		if req.VehiclePlate != "" {
			s.VehiclePlate = req.VehiclePlate
		}
		if req.Notes != "" {
			s.Notes = req.Notes
		}
		now := tx.Now()
		s.PreCheckinAt = &now
		s.UpdatedAt = now
		if err := saveStay(ctx, tx, s); err != nil {
			return err
		}

		tx.Audit(audit.AuditLog{
			Action:     "stay.pre_checkin",
			EntityType: "stay",
			EntityID:   s.ID,
			Details:    map[string]any{"first_submission": first},
		})
		if !first {
			return nil
		}
		*events = append(*events, stayEvent(tx, lodging.EventStayPreCheckin, s, nil))
		m.fire(ctx, tx, s.ID, automation.EventPreCheckinDone)
		return nil
	})
}

// ArchiveStay closes a finished stay for good.
func (m *Manager) ArchiveStay(ctx context.Context, propertyID, stayID string) error {
	return m.run(ctx, propertyID, func(tx store.Tx, events *[]lodging.Event) error {
		s, err := loadStay(ctx, tx, stayID)
		if err != nil {
			return err
		}
		if err := transition(s, lodging.StayArchived); err != nil {
			return err
		}
		now := tx.Now()
		s.ArchivedAt = &now
		s.UpdatedAt = now
		if err := saveStay(ctx, tx, s); err != nil {
			return err
		}
		tx.Audit(audit.AuditLog{
			Action:     "stay.archive",
			EntityType: "stay",
			EntityID:   s.ID,
		})
		*events = append(*events, stayEvent(tx, lodging.EventStayArchived, s, nil))
		return nil
	})
}

func loadStay(ctx context.Context, tx store.Tx, id string) (*lodging.Stay, error) {
	return store.Get[lodging.Stay](ctx, tx, lodging.CollectionStays, id)
}

func saveStay(ctx context.Context, tx store.Tx, s *lodging.Stay) error {
	if err := tx.Update(ctx, lodging.CollectionStays, s.ID, s); err != nil {
		return fmt.Errorf("saving stay %s: %w", s.ID, err)
	}
	return nil
}

func transition(s *lodging.Stay, to lodging.StayStatus) error {
	next, err := s.Status.Transition(to)
	if err != nil {
		return fmt.Errorf("stay %s: %w", s.ID, err)
	}
	s.Status = next
	return nil
}
