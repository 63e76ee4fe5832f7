package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"gatehouse/internal/entity"
	"gatehouse/internal/sandbox"
	"gatehouse/pkg/requestcontext"
)

// Publisher captures structured audit events. It writes through the storage
// layer so tests can swap sinks easily. Audit is best-effort relative to the
// moderation flow: a failed append is logged, never propagated, because a
// decision must not fail on its paper trail.
type Publisher struct {
	store  Store
	logger *slog.Logger
}

func NewPublisher(store Store, logger *slog.Logger) *Publisher {
	return &Publisher{store: store, logger: logger}
}

// Emit appends the event, stamping time and correlation ID from context when
// unset.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if err := p.store.Append(ctx, event); err != nil {
		p.logger.ErrorContext(ctx, "audit append failed",
			"action", event.Action,
			"source", event.Source.String(),
			"error", err,
		)
	}
}

// Staged records an edit landing in the sandbox, on creation or update.
func (p *Publisher) Staged(ctx context.Context, source entity.Ref, actor string) {
	p.Emit(ctx, Event{
		Action: ActionStaged,
		Source: source,
		Actor:  actor,
	})
}

// Discarded records a sandbox record destroyed with its entity.
func (p *Publisher) Discarded(ctx context.Context, source entity.Ref, actor string) {
	p.Emit(ctx, Event{
		Action: ActionDiscarded,
		Source: source,
		Actor:  actor,
	})
}

// Submitted records a draft entering the moderation queue.
func (p *Publisher) Submitted(ctx context.Context, source entity.Ref, actor string) {
	p.Emit(ctx, Event{
		Action: ActionSubmitted,
		Source: source,
		Actor:  actor,
	})
}

// List returns the audit trail for one entity.
func (p *Publisher) List(ctx context.Context, source entity.Ref) ([]Event, error) {
	return p.store.ListBySource(ctx, source)
}

// DecisionSubscriber adapts the publisher to the decision event bus: every
// post-decision event becomes an audit entry. Pre events are skipped, they
// exist for consumers that need the prior status.
func DecisionSubscriber(p *Publisher) sandbox.Subscriber {
	return func(ctx context.Context, ev sandbox.DecisionEvent) {
		if ev.Phase != sandbox.PhasePost {
			return
		}
		action := ActionApproved
		if ev.Status == sandbox.StatusDenied {
			action = ActionDenied
		}
		p.Emit(ctx, Event{
			Timestamp: ev.At,
			Action:    action,
			Source:    ev.Source,
			Actor:     ev.Moderator,
			Status:    ev.Status.String(),
			Reason:    ev.Reason,
		})
	}
}
