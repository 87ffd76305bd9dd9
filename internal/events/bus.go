package events

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/stayflow-core/internal/automation"
	"github.com/nerrad567/stayflow-core/internal/dispatch"
	"github.com/nerrad567/stayflow-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/stayflow-core/internal/lodging"
)

// DefaultBufferSize is how many events may wait for delivery before new
// ones are dropped.
const DefaultBufferSize = 1024

// MQTTPublisher is the part of *mqtt.Client the bus uses.
type MQTTPublisher interface {
	PublishJSON(topic string, v any) error
}

// MetricsWriter is the part of *influxdb.Client the bus uses.
type MetricsWriter interface {
	WriteDomainEvent(propertyID, entity, eventType, status string, at time.Time)
	WriteDispatch(propertyID, channel, outcome string)
}

// Broadcaster pushes an event to connected live panels.
type Broadcaster interface {
	Broadcast(ev lodging.Event)
}

// Bus fans committed events out to MQTT, metrics and live panels.
//
// Publish never blocks the caller: events are queued and delivered in
// order by Run. When the queue is full the event is dropped and logged.
//
// Thread Safety: all methods are safe for concurrent use.
type Bus struct {
	mqtt    MQTTPublisher
	metrics MetricsWriter
	hub     Broadcaster
	logger  lodging.Logger

	queue   chan lodging.Event
	dropped uint64
	mu      sync.Mutex
}

// Option configures a Bus.
type Option func(*Bus)

// WithMQTT publishes events to the broker.
func WithMQTT(p MQTTPublisher) Option {
	return func(b *Bus) { b.mqtt = p }
}

// WithMetrics writes a point per event and per dispatched message.
func WithMetrics(w MetricsWriter) Option {
	return func(b *Bus) { b.metrics = w }
}

// WithBroadcaster pushes events to live panels.
func WithBroadcaster(h Broadcaster) Option {
	return func(b *Bus) { b.hub = h }
}

// WithLogger sets the logger.
func WithLogger(l lodging.Logger) Option {
	return func(b *Bus) { b.logger = l }
}

// WithBufferSize sets the queue length.
func WithBufferSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.queue = make(chan lodging.Event, n)
		}
	}
}

// NewBus creates a Bus. Sinks left unset are skipped.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		logger: lodging.NopLogger{},
		queue:  make(chan lodging.Event, DefaultBufferSize),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish implements lodging.Publisher.
func (b *Bus) Publish(_ context.Context, events []lodging.Event) {
	for _, ev := range events {
		select {
		case b.queue <- ev:
		default:
			b.mu.Lock()
			b.dropped++
			n := b.dropped
			b.mu.Unlock()
			b.logger.Warn("event queue full, event dropped", "type", ev.Type, "entity_id", ev.EntityID, "dropped_total", n)
		}
	}
}

// Run delivers queued events until ctx is done, then drains what is left.
func (b *Bus) Run(ctx context.Context) {
	for {
		select {
		case ev := <-b.queue:
			b.deliver(ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-b.queue:
					b.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

// Dropped returns how many events were lost to a full queue.
func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

func (b *Bus) deliver(ev lodging.Event) {
	if b.hub != nil {
		b.hub.Broadcast(ev)
	}
	if b.metrics != nil {
		status, _ := ev.Data["status"].(string)
		b.metrics.WriteDomainEvent(ev.PropertyID, ev.Entity, ev.Type, status, ev.At)
	}
	if b.mqtt != nil {
		topic := mqtt.Topics{}.Event(ev.PropertyID, ev.Entity, ev.Type)
		if err := b.mqtt.PublishJSON(topic, ev); err != nil {
			b.logger.Warn("event not published to mqtt", "topic", topic, "error", err)
		}
	}
}

// MessageDispatched implements dispatch.Metrics.
func (b *Bus) MessageDispatched(propertyID string, channel automation.Channel, outcome dispatch.Outcome) {
	if b.metrics != nil {
		b.metrics.WriteDispatch(propertyID, string(channel), string(outcome))
	}
}
