package automation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/nerrad567/stayflow-core/internal/audit"
	"github.com/nerrad567/stayflow-core/internal/store"
)

// ListMessages returns queued messages, optionally narrowed to one status,
// oldest first.
func (s *Scheduler) ListMessages(ctx context.Context, propertyID string, status MessageStatus) ([]QueuedMessage, error) {
	var filters []store.Filter
	if status != "" {
		filters = append(filters, store.Eq("status", status))
	}
	var out []QueuedMessage
	err := s.store.RunTx(ctx, propertyID, func(tx store.Tx) error {
		var err error
		out, err = store.Query[QueuedMessage](ctx, tx, CollectionMessages, filters...)
		return err
	})
	return out, err
}

// GetMessage returns one queued message.
func (s *Scheduler) GetMessage(ctx context.Context, propertyID, id string) (*QueuedMessage, error) {
	var msg *QueuedMessage
	err := s.store.RunTx(ctx, propertyID, func(tx store.Tx) error {
		var err error
		msg, err = store.Get[QueuedMessage](ctx, tx, CollectionMessages, id)
		return err
	})
	return msg, err
}

// RetryFailedMessage puts a failed message back in the queue with a clean
// attempt count, scheduled just before now so the next poll picks it up.
func (s *Scheduler) RetryFailedMessage(ctx context.Context, propertyID, id string) (*QueuedMessage, error) {
	var msg *QueuedMessage
	err := s.store.RunTx(ctx, propertyID, func(tx store.Tx) error {
		var err error
		msg, err = store.Get[QueuedMessage](ctx, tx, CollectionMessages, id)
		if err != nil {
			return err
		}
		if msg.Status != MessageFailed {
			return fmt.Errorf("%w: message %s is %s", ErrNotRetryable, id, msg.Status)
		}

		previous := msg.ErrorMessage
		msg.Status = MessagePending
		msg.Attempts = 0
		msg.ErrorMessage = ""
		msg.ScheduledFor = tx.Now().Add(-time.Second)
		msg.UpdatedAt = tx.Now()
		if err := tx.Update(ctx, CollectionMessages, id, msg); err != nil {
			return fmt.Errorf("requeueing message %s: %w", id, err)
		}
		tx.Audit(audit.AuditLog{
			Action:     "message.retry",
			EntityType: "queued_message",
			EntityID:   id,
			Details:    map[string]any{"previous_error": previous},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("failed message requeued", "property_id", propertyID, "message_id", id)
	return msg, nil
}

// Due returns up to limit pending messages whose time has come, earliest
// first. limit <= 0 means no limit.
func (s *Scheduler) Due(ctx context.Context, propertyID string, limit int) ([]QueuedMessage, error) {
	var due []QueuedMessage
	err := s.store.RunTx(ctx, propertyID, func(tx store.Tx) error {
		pending, err := store.Query[QueuedMessage](ctx, tx, CollectionMessages, store.Eq("status", MessagePending))
		if err != nil {
			return err
		}
		now := tx.Now()
		due = due[:0]
		for _, m := range pending {
			if m.Due(now) {
				due = append(due, m)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(due, func(i, j int) bool { return due[i].ScheduledFor.Before(due[j].ScheduledFor) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// MarkSent records a successful delivery.
func (s *Scheduler) MarkSent(ctx context.Context, propertyID, id string) error {
	return s.settle(ctx, propertyID, id, func(now time.Time, m *QueuedMessage) {
		m.Status = MessageSent
		m.SentAt = &now
		m.ErrorMessage = ""
	})
}

// MarkFailed records a delivery failure. The message stays failed until an
// operator retries it.
func (s *Scheduler) MarkFailed(ctx context.Context, propertyID, id, reason string) error {
	return s.settle(ctx, propertyID, id, func(_ time.Time, m *QueuedMessage) {
		m.Status = MessageFailed
		m.ErrorMessage = reason
	})
}

// settle applies a dispatch outcome. Messages that left pending in the
// meantime (discarded, already sent) are left alone.
func (s *Scheduler) settle(ctx context.Context, propertyID, id string, apply func(now time.Time, m *QueuedMessage)) error {
	return s.store.RunTx(ctx, propertyID, func(tx store.Tx) error {
		msg, err := store.Get[QueuedMessage](ctx, tx, CollectionMessages, id)
		if err != nil {
			return err
		}
		if msg.Status != MessagePending {
			s.logger.Warn("dispatch outcome for settled message ignored", "message_id", id, "status", msg.Status)
			return nil
		}
		apply(tx.Now(), msg)
		msg.Attempts++
		msg.UpdatedAt = tx.Now()
		if err := tx.Update(ctx, CollectionMessages, id, msg); err != nil {
			return fmt.Errorf("settling message %s: %w", id, err)
		}
		details := map[string]any{"status": string(msg.Status), "attempts": msg.Attempts}
		if msg.ErrorMessage != "" {
			details["error"] = msg.ErrorMessage
		}
		tx.Audit(audit.AuditLog{
			Action:     "message." + string(msg.Status),
			EntityType: "queued_message",
			EntityID:   id,
			Details:    details,
		})
		return nil
	})
}
