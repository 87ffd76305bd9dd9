package stay

import (
	"context"
	"errors"

	"github.com/nerrad567/stayflow-core/internal/audit"
	"github.com/nerrad567/stayflow-core/internal/automation"
	"github.com/nerrad567/stayflow-core/internal/lodging"
	"github.com/nerrad567/stayflow-core/internal/store"
)

// SendPreArrivalReminders nudges guests who have not completed pre-checkin.
// A stay checking in within two local calendar days gets the 48h reminder,
// within one day the 24h reminder; each fires at most once per stay. A
// stay first seen inside the 24h window gets only the 24h reminder.
//
// Each stay is its own transaction, so one failure does not hold back the
// rest. It returns how many reminders were fired.
func (m *Manager) SendPreArrivalReminders(ctx context.Context, propertyID string) (int, error) {
	var candidates []lodging.Stay
	err := m.store.RunTx(ctx, propertyID, func(tx store.Tx) error {
		var err error
		candidates, err = store.Query[lodging.Stay](ctx, tx, lodging.CollectionStays, store.Eq("status", lodging.StayPending))
		return err
	})
	if err != nil {
		return 0, err
	}

	fired := 0
	var errs []error
	for _, c := range candidates {
		if c.AutomationFlags.Send48h && c.AutomationFlags.Send24h {
			continue
		}
		sent, err := m.remind(ctx, propertyID, c.ID)
		if err != nil {
			m.logger.Warn("pre-arrival reminder failed", "property_id", propertyID, "stay_id", c.ID, "error", err)
			errs = append(errs, err)
			continue
		}
		if sent {
			fired++
		}
	}
	if fired > 0 {
		m.logger.Info("pre-arrival reminders fired", "property_id", propertyID, "count", fired)
	}
	return fired, errors.Join(errs...)
}

func (m *Manager) remind(ctx context.Context, propertyID, stayID string) (bool, error) {
	sent := false
	err := m.store.RunTx(ctx, propertyID, func(tx store.Tx) error {
		s, err := loadStay(ctx, tx, stayID)
		if err != nil {
			return err
		}
		if s.Status != lodging.StayPending {
			return nil
		}
		checkIn, err := lodging.ParseDate(s.CheckIn)
		if err != nil {
			return err
		}
		days := int(checkIn.Sub(m.calendar.Today(propertyID, tx.Now())).Hours() / 24)
		if days < 0 {
			return nil
		}

		var event automation.TriggerEvent
		switch {
		case days <= 1 && !s.AutomationFlags.Send24h:
			event = automation.EventPreCheckinReminder24h
			s.AutomationFlags.Send24h = true
			s.AutomationFlags.Send48h = true
		case days <= 2 && !s.AutomationFlags.Send48h:
			event = automation.EventPreCheckinReminder48h
			s.AutomationFlags.Send48h = true
		default:
			return nil
		}

		m.fire(ctx, tx, s.ID, event)
		s.AutomationFlags.RemindersCount++
		s.UpdatedAt = tx.Now()
		if err := saveStay(ctx, tx, s); err != nil {
			return err
		}
		tx.Audit(audit.AuditLog{
			Action:     "stay.reminder",
			EntityType: "stay",
			EntityID:   s.ID,
			Source:     audit.SourceScheduler,
			Details:    map[string]any{"event": string(event), "days_to_check_in": days},
		})
		sent = true
		return nil
	})
	return sent, err
}
