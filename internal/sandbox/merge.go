package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"gatehouse/internal/entity"
	"gatehouse/internal/sandbox/metrics"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/platform/sentinel"
	"gatehouse/pkg/requestcontext"
)

// Default decision messages recorded on the sandbox when the caller supplies
// no reason of their own.
const (
	approvedMessage = "Congratulations, your edits have been approved."
	deniedMessage   = "Your edits have been refused."
)

// MergeResult reports the outcome of an approval write-back. RejectedFields
// lists staged fields that failed entity validation and were rolled back to
// their pre-merge values; everything else merged. Moderators use it to ask
// authors to re-submit the rejected values.
type MergeResult struct {
	RejectedFields []string `json:"rejected_fields"`
}

// Merger performs approve/deny decisions: it writes staged values back into
// the entity store with per-field validation and partial rollback, updates
// the record, and publishes pre/post decision events.
type Merger struct {
	registry  *Registry
	entities  entity.Store
	sandboxes Store
	bus       *Bus
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewMerger(registry *Registry, entities entity.Store, sandboxes Store, bus *Bus, logger *slog.Logger, m *metrics.Metrics) *Merger {
	return &Merger{
		registry:  registry,
		entities:  entities,
		sandboxes: sandboxes,
		bus:       bus,
		logger:    logger,
		metrics:   m,
	}
}

// Approve records an approval and applies the staged snapshot to the entity.
//
// The write-back is deliberately not all-or-nothing: each staged field is
// set on the entity, validation runs once over the full staged set, and only
// the rejected fields are rolled back to their pre-merge values. The entity
// is then saved with the bypass flag so the write does not re-enter staging.
// When persist is true the record itself is saved as well.
func (m *Merger) Approve(ctx context.Context, rec *Record, actor string, persist bool) (*MergeResult, error) {
	return m.approve(ctx, rec, actor, persist, nil)
}

// approve is the shared implementation. When src is non-nil the staged
// values are applied to that in-flight instance, so a write already in
// progress lands the merged state instead of clobbering it; the policy path
// uses this during staging. A nil src is loaded from the entity store.
func (m *Merger) approve(ctx context.Context, rec *Record, actor string, persist bool, src entity.Entity) (*MergeResult, error) {
	cfg, ok := m.registry.Get(rec.Source.Type)
	if !ok {
		return nil, dErrors.New(dErrors.CodeConfiguration,
			fmt.Sprintf("entity type %q is not registered for moderation", rec.Source.Type))
	}

	m.bus.Publish(ctx, DecisionEvent{Phase: PhasePre, Source: rec.Source, Status: rec.Status})

	now := requestcontext.Now(ctx)
	rec.Status = StatusApproved
	rec.DecidedAt = &now
	rec.Moderator = actor
	rec.Draft = false
	rec.Reason = approvedMessage
	rec.UpdatedAt = now

	start := time.Now()
	result, err := m.applySnapshot(ctx, cfg, rec, src)
	m.metrics.ObserveMergeLatency(time.Since(start))
	if err != nil {
		return nil, err
	}
	m.metrics.AddRejectedFields(len(result.RejectedFields))

	if persist {
		if err := m.sandboxes.Save(ctx, rec); err != nil {
			return nil, fmt.Errorf("persist sandbox record: %w", err)
		}
	}

	m.bus.Publish(ctx, DecisionEvent{
		Phase:     PhasePost,
		Source:    rec.Source,
		Status:    rec.Status,
		Moderator: actor,
		Reason:    rec.Reason,
	})
	return result, nil
}

// Deny records a refusal. The entity is never touched: it stays at its last
// valid persisted state.
func (m *Merger) Deny(ctx context.Context, rec *Record, actor, reason string, persist bool) error {
	if _, ok := m.registry.Get(rec.Source.Type); !ok {
		return dErrors.New(dErrors.CodeConfiguration,
			fmt.Sprintf("entity type %q is not registered for moderation", rec.Source.Type))
	}

	m.bus.Publish(ctx, DecisionEvent{Phase: PhasePre, Source: rec.Source, Status: rec.Status})

	rec.Status = StatusDenied
	rec.Moderator = actor
	rec.Draft = false
	if reason == "" {
		reason = deniedMessage
	}
	rec.Reason = reason
	rec.UpdatedAt = requestcontext.Now(ctx)

	if persist {
		if err := m.sandboxes.Save(ctx, rec); err != nil {
			return fmt.Errorf("persist sandbox record: %w", err)
		}
	}

	m.bus.Publish(ctx, DecisionEvent{
		Phase:     PhasePost,
		Source:    rec.Source,
		Status:    rec.Status,
		Moderator: actor,
		Reason:    rec.Reason,
	})
	return nil
}

// applySnapshot writes fields and store values onto the entity, validates
// the applied set, rolls back only the rejected fields, and commits with the
// bypass flag. Staged keys outside the configured field sets, or absent from
// the entity's current schema, are skipped.
func (m *Merger) applySnapshot(ctx context.Context, cfg Config, rec *Record, src entity.Entity) (*MergeResult, error) {
	if src == nil {
		loaded, err := m.entities.Get(ctx, rec.Source)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.Wrap(dErrors.CodeNotFound,
					fmt.Sprintf("entity %s no longer exists", rec.Source), err)
			}
			return nil, fmt.Errorf("load entity %s: %w", rec.Source, err)
		}
		src = loaded
	}

	original := make(map[string]any)
	var applied, rejected []string

	apply := func(name string, value any, allowed func(string) bool) {
		if !allowed(name) {
			return
		}
		current, ok := src.Field(name)
		if !ok {
			return
		}
		if err := src.SetField(name, value); err != nil {
			rejected = append(rejected, name)
			m.logger.WarnContext(ctx, "staged value rejected by entity",
				"source", rec.Source.String(), "field", name, "error", err)
			return
		}
		original[name] = current
		applied = append(applied, name)
	}

	for name, value := range rec.Fields {
		apply(name, value, cfg.monitors)
	}
	for name, value := range rec.Store {
		apply(name, value, cfg.stores)
	}

	fieldErrs, err := m.entities.ValidateFields(ctx, src, applied)
	if err != nil {
		return nil, fmt.Errorf("validate %s: %w", rec.Source, err)
	}
	for _, fe := range fieldErrs {
		prior, ok := original[fe.Field]
		if !ok {
			continue
		}
		if err := src.SetField(fe.Field, prior); err != nil {
			return nil, fmt.Errorf("roll back field %q on %s: %w", fe.Field, rec.Source, err)
		}
		rejected = append(rejected, fe.Field)
		m.logger.InfoContext(ctx, "merge rolled back rejected field",
			"source", rec.Source.String(), "field", fe.Field, "reason", fe.Message)
	}

	if err := m.entities.Save(ctx, src, true); err != nil {
		return nil, fmt.Errorf("commit entity %s: %w", rec.Source, err)
	}
	return &MergeResult{RejectedFields: sortedUnique(rejected)}, nil
}

func sortedUnique(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}
