package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/nerrad567/stayflow-core/internal/automation"
	"github.com/nerrad567/stayflow-core/internal/lodging"
)

// BreakerSettings tune a Guarded sender.
type BreakerSettings struct {
	// MaxFailures is the number of consecutive failures that opens the breaker.
	MaxFailures uint32

	// Timeout is how long the breaker stays open before letting one
	// request through.
	Timeout time.Duration
}

// Guarded wraps a Sender in a circuit breaker. While the breaker is open
// Send fails fast with ErrUnavailable.
type Guarded struct {
	next    Sender
	breaker *gobreaker.CircuitBreaker
}

// Guard wraps next in a breaker called name.
func Guard(name string, next Sender, settings BreakerSettings, logger lodging.Logger) *Guarded {
	if settings.MaxFailures == 0 {
		settings.MaxFailures = 5
	}
	if logger == nil {
		logger = lodging.NopLogger{}
	}
	maxFailures := settings.MaxFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("transport breaker state change", "transport", name, "from", from.String(), "to", to.String())
		},
	})
	return &Guarded{next: next, breaker: cb}
}

// Send implements Sender.
func (g *Guarded) Send(ctx context.Context, msg *automation.QueuedMessage) error {
	_, err := g.breaker.Execute(func() (any, error) {
		return nil, g.next.Send(ctx, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrUnavailable
	}
	return err
}

// State reports the breaker state, for health output.
func (g *Guarded) State() string {
	return g.breaker.State().String()
}
