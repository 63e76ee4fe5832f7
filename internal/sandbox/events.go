package sandbox

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gatehouse/internal/entity"
)

// Phase marks whether a decision event fired before or after the decision
// was recorded.
type Phase string

const (
	PhasePre  Phase = "pre"
	PhasePost Phase = "post"
)

// DecisionEvent is published around every approve/deny. Pre events carry the
// status as it was before the decision; post events carry the final status.
type DecisionEvent struct {
	Phase     Phase
	Source    entity.Ref
	Status    Status
	Moderator string
	Reason    string
	At        time.Time
}

// Subscriber receives decision events. Subscribers run synchronously on the
// publishing goroutine; there is no delivery guarantee beyond the call
// itself.
type Subscriber func(ctx context.Context, ev DecisionEvent)

// Bus is the in-process decision event bus. External concerns (audit
// logging, cache invalidation) subscribe here instead of being wired into
// the merge engine.
type Bus struct {
	mu     sync.RWMutex
	subs   []Subscriber
	logger *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger}
}

func (b *Bus) Subscribe(fn Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

// Publish delivers the event to every subscriber in registration order. A
// panicking subscriber is logged and skipped so one consumer cannot take
// down a moderation decision.
func (b *Bus) Publish(ctx context.Context, ev DecisionEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	b.mu.RLock()
	subs := make([]Subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, fn := range subs {
		b.deliver(ctx, fn, ev)
	}
}

func (b *Bus) deliver(ctx context.Context, fn Subscriber, ev DecisionEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.ErrorContext(ctx, "decision event subscriber panicked",
				"source", ev.Source.String(),
				"phase", ev.Phase,
				"panic", r,
			)
		}
	}()
	fn(ctx, ev)
}
