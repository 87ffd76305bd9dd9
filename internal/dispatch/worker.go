package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/nerrad567/stayflow-core/internal/automation"
	"github.com/nerrad567/stayflow-core/internal/lodging"
)

// DefaultBatchSize bounds how many due messages one property sends per run.
const DefaultBatchSize = 50

// Queue is the part of the automation scheduler the worker drains.
// *automation.Scheduler satisfies it.
type Queue interface {
	Due(ctx context.Context, propertyID string, limit int) ([]automation.QueuedMessage, error)
	MarkSent(ctx context.Context, propertyID, id string) error
	MarkFailed(ctx context.Context, propertyID, id, reason string) error
}

// Outcome is what happened to one message in a run.
type Outcome string

const (
	OutcomeSent     Outcome = "sent"
	OutcomeFailed   Outcome = "failed"
	OutcomeDeferred Outcome = "deferred"
)

// Metrics receives one call per message handled.
type Metrics interface {
	MessageDispatched(propertyID string, channel automation.Channel, outcome Outcome)
}

type nopMetrics struct{}

func (nopMetrics) MessageDispatched(string, automation.Channel, Outcome) {}

// Result counts the outcomes of one run.
type Result struct {
	Sent     int
	Failed   int
	Deferred int
}

// Worker sends due messages through the transport registered for their
// channel and records the outcome on the queue.
//
// Thread Safety: RunOnce may be called from several goroutines; a call that
// finds another run in progress returns immediately.
type Worker struct {
	queue      Queue
	properties func() []string
	senders    map[automation.Channel]Sender
	batch      int
	limiter    *rate.Limiter
	metrics    Metrics
	logger     lodging.Logger

	running sync.Mutex
}

// Option configures a Worker.
type Option func(*Worker)

// WithSender registers the transport for a channel.
func WithSender(ch automation.Channel, s Sender) Option {
	return func(w *Worker) { w.senders[ch] = s }
}

// WithBatchSize sets the per-property batch size.
func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batch = n
		}
	}
}

// WithRateLimit caps sends per second across all transports.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(w *Worker) {
		if perSecond > 0 {
			w.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(w *Worker) { w.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l lodging.Logger) Option {
	return func(w *Worker) { w.logger = l }
}

// NewWorker creates a Worker draining q for every property properties returns.
func NewWorker(q Queue, properties func() []string, opts ...Option) *Worker {
	w := &Worker{
		queue:      q,
		properties: properties,
		senders:    make(map[automation.Channel]Sender),
		batch:      DefaultBatchSize,
		metrics:    nopMetrics{},
		logger:     lodging.NopLogger{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// RunOnce sends one batch of due messages per property.
//
// A message whose transport is unavailable stays pending with its attempt
// count unchanged, and the rest of that channel is skipped for the run.
// A transport error marks the message failed; it is not retried until an
// operator asks for it.
func (w *Worker) RunOnce(ctx context.Context) (Result, error) {
	var res Result
	if !w.running.TryLock() {
		w.logger.Debug("dispatch run already in progress, skipping")
		return res, nil
	}
	defer w.running.Unlock()

	var errs []error
	for _, pid := range w.properties() {
		if err := w.runProperty(ctx, pid, &res); err != nil {
			errs = append(errs, fmt.Errorf("property %s: %w", pid, err))
		}
		if ctx.Err() != nil {
			break
		}
	}
	if res.Sent+res.Failed+res.Deferred > 0 {
		w.logger.Info("dispatch run complete", "sent", res.Sent, "failed", res.Failed, "deferred", res.Deferred)
	}
	return res, errors.Join(errs...)
}

func (w *Worker) runProperty(ctx context.Context, propertyID string, res *Result) error {
	due, err := w.queue.Due(ctx, propertyID, w.batch)
	if err != nil {
		return fmt.Errorf("listing due messages: %w", err)
	}

	unavailable := make(map[automation.Channel]bool)
	var errs []error
	for i := range due {
		msg := &due[i]
		if unavailable[msg.Channel] {
			res.Deferred++
			w.metrics.MessageDispatched(propertyID, msg.Channel, OutcomeDeferred)
			continue
		}
		outcome, err := w.deliver(ctx, propertyID, msg)
		if err != nil {
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		switch outcome {
		case OutcomeSent:
			res.Sent++
		case OutcomeFailed:
			res.Failed++
		case OutcomeDeferred:
			res.Deferred++
			unavailable[msg.Channel] = true
		}
		w.metrics.MessageDispatched(propertyID, msg.Channel, outcome)
	}
	return errors.Join(errs...)
}

// deliver sends one message and records the outcome. The returned error is
// about the queue or the context, never about the transport.
func (w *Worker) deliver(ctx context.Context, propertyID string, msg *automation.QueuedMessage) (Outcome, error) {
	sender, ok := w.senders[msg.Channel]
	if !ok {
		reason := fmt.Sprintf("no transport configured for channel %q", msg.Channel)
		return OutcomeFailed, w.queue.MarkFailed(ctx, propertyID, msg.ID, reason)
	}

	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	sendErr := sender.Send(ctx, msg)
	switch {
	case errors.Is(sendErr, ErrUnavailable):
		w.logger.Warn("transport unavailable, message left pending",
			"property_id", propertyID, "message_id", msg.ID, "channel", msg.Channel)
		return OutcomeDeferred, nil
	case sendErr != nil:
		w.logger.Warn("message dispatch failed",
			"property_id", propertyID, "message_id", msg.ID, "channel", msg.Channel, "error", sendErr)
		return OutcomeFailed, w.queue.MarkFailed(ctx, propertyID, msg.ID, sendErr.Error())
	}
	return OutcomeSent, w.queue.MarkSent(ctx, propertyID, msg.ID)
}
