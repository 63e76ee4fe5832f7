package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gatehouse/internal/entity"
	"gatehouse/internal/sandbox/metrics"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/platform/sentinel"
)

// StatusCache is an optional fast path for the pending/denied query helpers.
// The Redis implementation lives in internal/sandbox/cache.
type StatusCache interface {
	GetStatus(ctx context.Context, source entity.Ref) (Status, bool, error)
	SetStatus(ctx context.Context, source entity.Ref, status Status) error
}

// Trail receives non-decision moderation actions for the audit log. Decision
// events reach audit through the bus instead.
type Trail interface {
	Submitted(ctx context.Context, source entity.Ref, actor string)
}

// Service is the moderator API: listing the queue, deciding records, and the
// status query helpers. Authorization of these calls belongs to the caller
// (HTTP middleware); permission checks inside the engine are advisory only.
type Service struct {
	registry  *Registry
	sandboxes Store
	merger    *Merger
	cache     StatusCache
	trail     Trail
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

// ServiceOption configures optional service collaborators.
type ServiceOption func(*Service)

// WithStatusCache wires the Redis-backed status fast path.
func WithStatusCache(cache StatusCache) ServiceOption {
	return func(s *Service) { s.cache = cache }
}

// WithTrail wires the audit trail for submissions.
func WithTrail(trail Trail) ServiceOption {
	return func(s *Service) { s.trail = trail }
}

func NewService(registry *Registry, sandboxes Store, merger *Merger, logger *slog.Logger, m *metrics.Metrics, opts ...ServiceOption) *Service {
	s := &Service{
		registry:  registry,
		sandboxes: sandboxes,
		merger:    merger,
		logger:    logger,
		metrics:   m,
		tracer:    otel.Tracer("gatehouse/internal/sandbox"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListPending returns the moderation queue for one entity type: records
// submitted for review with no decision recorded yet.
func (s *Service) ListPending(ctx context.Context, entityType string) ([]*Record, error) {
	ctx, span := s.tracer.Start(ctx, "moderation.ListPending",
		trace.WithAttributes(attribute.String("entity.type", entityType)))
	defer span.End()

	if _, ok := s.registry.Get(entityType); !ok {
		return nil, dErrors.New(dErrors.CodeNotFound,
			fmt.Sprintf("entity type %q is not registered for moderation", entityType))
	}
	pending, err := s.sandboxes.ListPending(ctx, entityType)
	if err != nil {
		return nil, fmt.Errorf("list pending %s records: %w", entityType, err)
	}
	return pending, nil
}

// Approve applies the record's staged snapshot and reports any fields the
// entity schema rejected, so the moderator can ask for a re-submit.
func (s *Service) Approve(ctx context.Context, recordID uuid.UUID, actor string) (*MergeResult, error) {
	ctx, span := s.tracer.Start(ctx, "moderation.Approve",
		trace.WithAttributes(attribute.String("record.id", recordID.String())))
	defer span.End()

	rec, err := s.record(ctx, recordID)
	if err != nil {
		return nil, err
	}
	result, err := s.merger.Approve(ctx, rec, actor, true)
	if err != nil {
		return nil, err
	}
	s.metrics.IncDecision(string(StatusApproved), "moderator")
	return result, nil
}

// Deny records a refusal; the entity keeps its last valid persisted state.
func (s *Service) Deny(ctx context.Context, recordID uuid.UUID, actor, reason string) error {
	ctx, span := s.tracer.Start(ctx, "moderation.Deny",
		trace.WithAttributes(attribute.String("record.id", recordID.String())))
	defer span.End()

	rec, err := s.record(ctx, recordID)
	if err != nil {
		return err
	}
	if err := s.merger.Deny(ctx, rec, actor, reason, true); err != nil {
		return err
	}
	s.metrics.IncDecision(string(StatusDenied), "moderator")
	return nil
}

// Submit pulls a draft record into the moderation queue. Returns false when
// the record was already submitted.
func (s *Service) Submit(ctx context.Context, recordID uuid.UUID, actor string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "moderation.Submit",
		trace.WithAttributes(attribute.String("record.id", recordID.String())))
	defer span.End()

	rec, err := s.record(ctx, recordID)
	if err != nil {
		return false, err
	}
	if !rec.Draft {
		return false, nil
	}
	rec.Draft = false
	if err := s.sandboxes.Save(ctx, rec); err != nil {
		return false, fmt.Errorf("persist submitted record: %w", err)
	}
	if s.trail != nil {
		s.trail.Submitted(ctx, rec.Source, actor)
	}
	return true, nil
}

// GetSnapshot returns the staged fields/store payload for inspection.
func (s *Service) GetSnapshot(ctx context.Context, recordID uuid.UUID) (Snapshot, error) {
	rec, err := s.record(ctx, recordID)
	if err != nil {
		return Snapshot{}, err
	}
	return rec.Snapshot(), nil
}

// IsPending reports whether the entity has an undecided staged change.
func (s *Service) IsPending(ctx context.Context, source entity.Ref) (bool, error) {
	status, err := s.statusOf(ctx, source)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return !status.Terminal(), nil
}

// IsDenied reports whether the entity's latest staged change was refused.
func (s *Service) IsDenied(ctx context.Context, source entity.Ref) (bool, error) {
	status, err := s.statusOf(ctx, source)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return status == StatusDenied, nil
}

func (s *Service) statusOf(ctx context.Context, source entity.Ref) (Status, error) {
	if s.cache != nil {
		status, hit, err := s.cache.GetStatus(ctx, source)
		if err != nil {
			s.logger.WarnContext(ctx, "status cache read failed, falling back to store",
				"source", source.String(), "error", err)
		} else if hit {
			return status, nil
		}
	}
	rec, err := s.sandboxes.FindBySource(ctx, source)
	if err != nil {
		return "", err
	}
	if s.cache != nil {
		if err := s.cache.SetStatus(ctx, source, rec.Status); err != nil {
			s.logger.WarnContext(ctx, "status cache write failed",
				"source", source.String(), "error", err)
		}
	}
	return rec.Status, nil
}

func (s *Service) record(ctx context.Context, recordID uuid.UUID) (*Record, error) {
	rec, err := s.sandboxes.FindByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(dErrors.CodeNotFound,
				fmt.Sprintf("no sandbox record %s", recordID), err)
		}
		return nil, fmt.Errorf("load sandbox record %s: %w", recordID, err)
	}
	return rec, nil
}
