package sandbox

import (
	"context"

	"github.com/google/uuid"

	"gatehouse/internal/entity"
)

// Store persists sandbox records. Implementations return sentinel errors for
// missing records; services translate them into domain errors.
type Store interface {
	// Save upserts the record keyed by its source ref.
	Save(ctx context.Context, rec *Record) error
	FindByID(ctx context.Context, id uuid.UUID) (*Record, error)
	FindBySource(ctx context.Context, source entity.Ref) (*Record, error)
	// ListPending returns records enqueued for moderation: no decision
	// recorded and no longer drafts.
	ListPending(ctx context.Context, entityType string) ([]*Record, error)
	// DeleteBySource removes the record owned by an entity; used by the
	// delete cascade.
	DeleteBySource(ctx context.Context, source entity.Ref) error
}
