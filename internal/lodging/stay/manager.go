package stay

import (
	"context"
	"time"

	"github.com/nerrad567/stayflow-core/internal/automation"
	"github.com/nerrad567/stayflow-core/internal/lodging"
	"github.com/nerrad567/stayflow-core/internal/store"
)

// DefaultAccessCodeRetries bounds access code generation per booking.
const DefaultAccessCodeRetries = 16

// Automation is the part of the message scheduler the stay lifecycle
// drives. Both calls run inside the caller's transaction.
type Automation interface {
	Fire(ctx context.Context, tx store.Tx, stayID string, event automation.TriggerEvent) *automation.QueuedMessage
	DiscardPending(ctx context.Context, tx store.Tx, stayID, reason string) (int, error)
}

// Calendar maps an instant to the property's local calendar date.
// *property.Directory satisfies it.
type Calendar interface {
	Today(propertyID string, now time.Time) time.Time
}

type utcCalendar struct{}

func (utcCalendar) Today(_ string, now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// Manager owns the stay state machine and drives the cabin, housekeeping
// and automation effects of each transition.
//
// Thread Safety: Manager holds no mutable state; concurrent calls on the
// same stay are serialised by the store.
type Manager struct {
	store      store.Store
	automation Automation
	calendar   Calendar
	publisher  lodging.Publisher
	logger     lodging.Logger
	newCode    func() (string, error)
	codeTries  int
}

// Option configures a Manager.
type Option func(*Manager)

// WithPublisher sets where committed events go.
func WithPublisher(p lodging.Publisher) Option {
	return func(m *Manager) { m.publisher = p }
}

// WithLogger sets the logger.
func WithLogger(l lodging.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithCalendar sets the local calendar used by the reminder sweep.
func WithCalendar(c Calendar) Option {
	return func(m *Manager) { m.calendar = c }
}

// WithAccessCodeRetries bounds how many codes a booking may draw before it
// fails with ErrCodeSpaceExhausted.
func WithAccessCodeRetries(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.codeTries = n
		}
	}
}

// WithCodeGenerator replaces the random access code source.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(m *Manager) { m.newCode = gen }
}

// New creates a Manager.
func New(s store.Store, auto Automation, opts ...Option) *Manager {
	m := &Manager{
		store:      s,
		automation: auto,
		calendar:   utcCalendar{},
		publisher:  lodging.NopPublisher{},
		logger:     lodging.NopLogger{},
		newCode:    GenerateAccessCode,
		codeTries:  DefaultAccessCodeRetries,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// run executes fn in a transaction and publishes the collected events once
// it commits.
func (m *Manager) run(ctx context.Context, propertyID string, fn func(tx store.Tx, events *[]lodging.Event) error) error {
	var events []lodging.Event
	err := m.store.RunTx(ctx, propertyID, func(tx store.Tx) error {
		events = events[:0]
		return fn(tx, &events)
	})
	if err != nil {
		return err
	}
	m.publisher.Publish(ctx, events)
	return nil
}

// fire queues an automated message when automation is configured.
func (m *Manager) fire(ctx context.Context, tx store.Tx, stayID string, event automation.TriggerEvent) {
	if m.automation == nil {
		return
	}
	m.automation.Fire(ctx, tx, stayID, event)
}

func stayEvent(tx store.Tx, eventType string, s *lodging.Stay, data map[string]any) lodging.Event {
	if data == nil {
		data = map[string]any{}
	}
	data["status"] = string(s.Status)
	data["cabinId"] = s.CabinID
	return lodging.Event{
		Type:       eventType,
		PropertyID: tx.PropertyID(),
		Entity:     "stay",
		EntityID:   s.ID,
		At:         tx.Now(),
		Data:       data,
	}
}

func appendEvent(events *[]lodging.Event, ev *lodging.Event) {
	if ev != nil {
		*events = append(*events, *ev)
	}
}
