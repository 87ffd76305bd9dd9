package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/stayflow-core/internal/automation"
	"github.com/nerrad567/stayflow-core/internal/dispatch"
	"github.com/nerrad567/stayflow-core/internal/lodging"
)

type recordingSinks struct {
	mu        sync.Mutex
	topics    []string
	points    []string
	dispatch  []string
	broadcast []string
	mqttErr   error
}

func (r *recordingSinks) PublishJSON(topic string, _ any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	return r.mqttErr
}

func (r *recordingSinks) WriteDomainEvent(_, _, eventType, status string, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.points = append(r.points, eventType+"/"+status)
}

func (r *recordingSinks) WriteDispatch(_, channel, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatch = append(r.dispatch, channel+"/"+outcome)
}

func (r *recordingSinks) Broadcast(ev lodging.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcast = append(r.broadcast, ev.EntityID)
}

func sampleEvents() []lodging.Event {
	at := time.Date(2025, 6, 13, 11, 0, 0, 0, time.UTC)
	return []lodging.Event{
		{Type: lodging.EventStayCheckedOut, PropertyID: "pousada", Entity: "stay", EntityID: "s1", At: at, Data: map[string]any{"status": "finished"}},
		{Type: lodging.EventCabinStatusChanged, PropertyID: "pousada", Entity: "cabin", EntityID: "c1", At: at},
	}
}

func TestBusFansOutInOrder(t *testing.T) {
	sinks := &recordingSinks{mqttErr: errors.New("broker down")}
	bus := NewBus(WithMQTT(sinks), WithMetrics(sinks), WithBroadcaster(sinks))

	bus.Publish(context.Background(), sampleEvents())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Run(ctx) // drains the queue and returns

	want := []string{"stayflow/events/pousada/stay/stay.checked_out", "stayflow/events/pousada/cabin/cabin.status_changed"}
	if len(sinks.topics) != 2 || sinks.topics[0] != want[0] || sinks.topics[1] != want[1] {
		t.Errorf("topics = %v", sinks.topics)
	}
	if len(sinks.points) != 2 || sinks.points[0] != "stay.checked_out/finished" || sinks.points[1] != "cabin.status_changed/" {
		t.Errorf("points = %v", sinks.points)
	}
	if len(sinks.broadcast) != 2 || sinks.broadcast[0] != "s1" {
		t.Errorf("broadcast = %v", sinks.broadcast)
	}
}

func TestBusDropsWhenFull(t *testing.T) {
	bus := NewBus(WithBufferSize(1))
	bus.Publish(context.Background(), sampleEvents())
	if bus.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", bus.Dropped())
	}
}

func TestBusWithoutSinks(t *testing.T) {
	bus := NewBus()
	bus.Publish(context.Background(), sampleEvents())
	bus.MessageDispatched("pousada", automation.ChannelEmail, dispatch.OutcomeSent)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Run(ctx)
}

func TestMessageDispatched(t *testing.T) {
	sinks := &recordingSinks{}
	bus := NewBus(WithMetrics(sinks))
	bus.MessageDispatched("pousada", automation.ChannelWhatsApp, dispatch.OutcomeDeferred)
	if len(sinks.dispatch) != 1 || sinks.dispatch[0] != "whatsapp/deferred" {
		t.Errorf("dispatch points = %v", sinks.dispatch)
	}
}
