package automation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/nerrad567/stayflow-core/internal/audit"
	"github.com/nerrad567/stayflow-core/internal/lodging"
	"github.com/nerrad567/stayflow-core/internal/store"
)

// ZoneResolver gives the local time zone of a property.
type ZoneResolver interface {
	Location(propertyID string) *time.Location
}

// Config holds scheduling policy.
type Config struct {
	QuietHours QuietHours
	// RealTimeEvents are sent as soon as their delay elapses, even inside
	// quiet hours.
	RealTimeEvents []TriggerEvent
	Links          Links
}

// Scheduler turns trigger events into queued messages and administers the
// rules, templates and queue behind them.
//
// Thread Safety: all methods are safe for concurrent use; state lives in
// the store.
type Scheduler struct {
	store  store.Store
	cfg    Config
	zones  ZoneResolver
	logger lodging.Logger
}

// NewScheduler creates a Scheduler. zones may be nil, in which case every
// property is scheduled in UTC.
func NewScheduler(s store.Store, cfg Config, zones ZoneResolver, logger lodging.Logger) *Scheduler {
	if logger == nil {
		logger = lodging.NopLogger{}
	}
	return &Scheduler{store: s, cfg: cfg, zones: zones, logger: logger}
}

// Fire queues the message configured for event, inside the caller's
// transaction. Nothing about automation may fail the caller: an inactive or
// missing rule, a missing template, a guest without contact details and
// store errors are all logged and yield a nil message.
func (s *Scheduler) Fire(ctx context.Context, tx store.Tx, stayID string, event TriggerEvent) *QueuedMessage {
	log := []any{"property_id", tx.PropertyID(), "stay_id", stayID, "event", event}

	msg, reason, err := s.prepare(ctx, tx, stayID, event)
	switch {
	case err != nil:
		s.logger.Warn("automation trigger skipped", append(log, "error", err)...)
		return nil
	case msg == nil:
		s.logger.Debug("automation trigger ignored", append(log, "reason", reason)...)
		return nil
	}

	if err := tx.Create(ctx, CollectionMessages, msg.ID, msg); err != nil {
		s.logger.Warn("queueing automated message failed", append(log, "error", err)...)
		return nil
	}
	tx.Audit(audit.AuditLog{
		Action:     "message.queued",
		EntityType: "queued_message",
		EntityID:   msg.ID,
		Details: map[string]any{
			"stay_id":       stayID,
			"trigger_event": string(event),
			"channel":       string(msg.Channel),
			"scheduled_for": msg.ScheduledFor.Format(time.RFC3339),
		},
	})
	s.logger.Info("automated message queued", append(log, "message_id", msg.ID, "scheduled_for", msg.ScheduledFor)...)
	return msg
}

// prepare builds the message for event. A nil message with a reason means
// the trigger is a no-op.
func (s *Scheduler) prepare(ctx context.Context, tx store.Tx, stayID string, event TriggerEvent) (*QueuedMessage, string, error) {
	rule, err := store.Get[Rule](ctx, tx, CollectionRules, string(event))
	if errors.Is(err, store.ErrNotFound) {
		return nil, "no rule", nil
	}
	if err != nil {
		return nil, "", err
	}
	if !rule.Active {
		return nil, "rule inactive", nil
	}
	if rule.TemplateID == "" {
		return nil, "rule has no template", nil
	}

	tpl, err := store.Get[Template](ctx, tx, CollectionTemplates, rule.TemplateID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, "template missing", nil
	}
	if err != nil {
		return nil, "", err
	}

	stay, err := store.Get[lodging.Stay](ctx, tx, lodging.CollectionStays, stayID)
	if err != nil {
		return nil, "", err
	}
	guest, err := store.Get[lodging.Guest](ctx, tx, lodging.CollectionGuests, stay.GuestID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, "guest missing", nil
	}
	if err != nil {
		return nil, "", err
	}
	to := guest.Contact()
	if to == "" {
		return nil, "guest has no contact", nil
	}

	var cabin *lodging.Cabin
	if stay.CabinID != "" {
		cabin, err = store.Get[lodging.Cabin](ctx, tx, lodging.CollectionCabins, stay.CabinID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, "", err
		}
	}

	now := tx.Now()
	return &QueuedMessage{
		ID:           GenerateID("msg"),
		PropertyID:   tx.PropertyID(),
		StayID:       stay.ID,
		GuestID:      guest.ID,
		To:           to,
		Channel:      ChannelFor(to),
		Body:         Render(tpl.Body, Variables(guest, cabin, stay, s.cfg.Links)),
		IsAutomated:  true,
		TriggerEvent: event,
		TemplateID:   tpl.ID,
		ScheduledFor: s.ScheduleFor(tx.PropertyID(), event, now, rule.DelayMinutes),
		Status:       MessagePending,
		Attempts:     0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, "", nil
}

// ScheduleFor computes when a message for event should go out: now plus
// the delay, pushed past quiet hours unless event is a real-time event.
func (s *Scheduler) ScheduleFor(propertyID string, event TriggerEvent, now time.Time, delayMinutes int) time.Time {
	at := now.Add(time.Duration(delayMinutes) * time.Minute)
	if slices.Contains(s.cfg.RealTimeEvents, event) {
		return at.UTC()
	}
	return s.cfg.QuietHours.Defer(at, s.location(propertyID))
}

func (s *Scheduler) location(propertyID string) *time.Location {
	if s.zones == nil {
		return time.UTC
	}
	if loc := s.zones.Location(propertyID); loc != nil {
		return loc
	}
	return time.UTC
}

// DiscardPending fails every pending message of a stay, inside the caller's
// transaction. Used when a stay is cancelled before its messages go out.
func (s *Scheduler) DiscardPending(ctx context.Context, tx store.Tx, stayID, reason string) (int, error) {
	msgs, err := store.Query[QueuedMessage](ctx, tx, CollectionMessages,
		store.Eq("stayId", stayID),
		store.Eq("status", MessagePending),
	)
	if err != nil {
		return 0, fmt.Errorf("listing pending messages for stay %s: %w", stayID, err)
	}
	for i := range msgs {
		m := &msgs[i]
		m.Status = MessageFailed
		m.ErrorMessage = reason
		m.UpdatedAt = tx.Now()
		if err := tx.Update(ctx, CollectionMessages, m.ID, m); err != nil {
			return 0, fmt.Errorf("discarding message %s: %w", m.ID, err)
		}
		tx.Audit(audit.AuditLog{
			Action:     "message.discarded",
			EntityType: "queued_message",
			EntityID:   m.ID,
			Details:    map[string]any{"stay_id": stayID, "reason": reason},
		})
	}
	return len(msgs), nil
}
