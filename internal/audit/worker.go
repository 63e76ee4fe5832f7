package audit

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultBatchSize = 100
	defaultInterval  = 2 * time.Second
)

// Worker drains the outbox into a sink on an interval. Publishing is
// at-least-once: a batch that fails to publish stays in the outbox and is
// retried on the next tick.
type Worker struct {
	outbox   Outbox
	sink     Sink
	logger   *slog.Logger
	batch    int
	interval time.Duration
}

// WorkerOption configures the Worker.
type WorkerOption func(*Worker)

// WithBatchSize sets the maximum events drained per tick.
func WithBatchSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.batch = n
		}
	}
}

// WithInterval sets the drain interval.
func WithInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

func NewWorker(outbox Outbox, sink Sink, logger *slog.Logger, opts ...WorkerOption) *Worker {
	w := &Worker{
		outbox:   outbox,
		sink:     sink,
		logger:   logger,
		batch:    defaultBatchSize,
		interval: defaultInterval,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run drains until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Drain(ctx); err != nil {
				w.logger.ErrorContext(ctx, "audit outbox drain failed", "error", err)
			}
		}
	}
}

// Drain publishes one batch. Exposed so tests and shutdown paths can flush
// without the ticker.
func (w *Worker) Drain(ctx context.Context) error {
	events, err := w.outbox.NextBatch(ctx, w.batch)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}
	if err := w.sink.Publish(ctx, events); err != nil {
		return err
	}
	return w.outbox.MarkPublished(ctx, events)
}
