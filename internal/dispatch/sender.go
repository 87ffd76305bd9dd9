package dispatch

import (
	"context"
	"errors"

	"github.com/nerrad567/stayflow-core/internal/automation"
)

// ErrUnavailable is returned by a Sender that refused to try, e.g. because
// its circuit breaker is open. The message stays pending and its attempt
// count is not touched.
var ErrUnavailable = errors.New("dispatch: transport unavailable")

// Sender delivers one rendered message over one channel.
type Sender interface {
	Send(ctx context.Context, msg *automation.QueuedMessage) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg *automation.QueuedMessage) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, msg *automation.QueuedMessage) error {
	return f(ctx, msg)
}
