package audit

import (
	"context"

	"gatehouse/internal/entity"
)

// Store is append-only persistence for audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySource(ctx context.Context, source entity.Ref) ([]Event, error)
}

// Outbox is implemented by stores that queue events for asynchronous
// publishing. The worker drains it and marks batches published once the
// sink accepts them.
type Outbox interface {
	NextBatch(ctx context.Context, limit int) ([]Event, error)
	MarkPublished(ctx context.Context, events []Event) error
}

// Sink receives drained outbox events; the Kafka producer implements it.
type Sink interface {
	Publish(ctx context.Context, events []Event) error
	Close()
}
