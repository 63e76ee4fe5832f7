package sandbox

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"gatehouse/internal/entity"
	"gatehouse/internal/sandbox/metrics"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/platform/sentinel"
	"gatehouse/pkg/requestcontext"
)

// Engine intercepts entity lifecycle events for registered types: it
// populates the sandbox record, reverts unapproved edits before they land,
// and invokes the auto-approval policy.
//
// Staging failures never block the underlying entity write. Errors here are
// logged and the write proceeds; at worst the record waits for manual
// review. The one exception is deliberate: when the sandbox itself cannot be
// written during an update, the edit is not reverted either, because
// reverting without a staged copy would silently destroy it.
type Engine struct {
	registry    *Registry
	entities    entity.Store
	sandboxes   Store
	policy      *Policy
	invalidator StatusInvalidator
	trail       StagingTrail
	logger      *slog.Logger
	metrics     *metrics.Metrics
	locks       refLocks
}

// StatusInvalidator drops cached status entries the engine has made stale.
// Staging can move a decided record back to pending, so the cache must not
// keep answering with the old decision until its TTL runs out.
type StatusInvalidator interface {
	Invalidate(ctx context.Context, source entity.Ref) error
}

// StagingTrail receives staging lifecycle actions for the audit log.
// Decisions reach audit through the event bus instead.
type StagingTrail interface {
	Staged(ctx context.Context, source entity.Ref, actor string)
	Discarded(ctx context.Context, source entity.Ref, actor string)
}

// EngineOption configures optional engine collaborators.
type EngineOption func(*Engine)

// WithStatusInvalidator keeps the status cache coherent with staging.
func WithStatusInvalidator(inv StatusInvalidator) EngineOption {
	return func(e *Engine) { e.invalidator = inv }
}

// WithStagingTrail wires the audit trail for staged and discarded edits.
func WithStagingTrail(trail StagingTrail) EngineOption {
	return func(e *Engine) { e.trail = trail }
}

func NewEngine(registry *Registry, entities entity.Store, sandboxes Store, policy *Policy, logger *slog.Logger, m *metrics.Metrics, opts ...EngineOption) *Engine {
	e := &Engine{
		registry:  registry,
		entities:  entities,
		sandboxes: sandboxes,
		policy:    policy,
		logger:    logger,
		metrics:   m,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register validates the configuration, records it, and wires the engine's
// lifecycle hooks into the entity store. Any failure here is a configuration
// error: it fails fast at startup and never at request time.
func (e *Engine) Register(cfg Config) error {
	if err := e.registry.Add(cfg); err != nil {
		return err
	}
	registrar, ok := e.entities.(entity.HookRegistrar)
	if !ok {
		return dErrors.New(dErrors.CodeConfiguration,
			"entity store does not support lifecycle hooks")
	}
	if err := registrar.RegisterHooks(cfg.EntityType, &hooks{engine: e}); err != nil {
		return dErrors.Wrap(dErrors.CodeConfiguration,
			"entity store rejected moderation hooks for "+cfg.EntityType, err)
	}
	return nil
}

// hooks adapts the engine to the entity store's lifecycle contract.
type hooks struct {
	engine *Engine
}

func (h *hooks) AfterCreate(ctx context.Context, src entity.Entity) { h.engine.onCreate(ctx, src) }
func (h *hooks) BeforeWrite(ctx context.Context, src entity.Entity) { h.engine.onUpdate(ctx, src) }
func (h *hooks) AfterDelete(ctx context.Context, ref entity.Ref)    { h.engine.onDelete(ctx, ref) }

// onCreate runs once after the entity's first durable write: snapshot the
// raw input into a fresh record, overwrite the entity with the configured
// defaults, and hand the record to the policy.
func (e *Engine) onCreate(ctx context.Context, src entity.Entity) {
	ref := src.Ref()
	cfg, ok := e.registry.Get(ref.Type)
	if !ok {
		return
	}
	unlock := e.locks.lock(ref)
	defer unlock()

	rec := NewRecord(ref, requestcontext.Now(ctx))
	rec.Fields = captureFields(src, cfg.MonitoredFields)
	rec.Store = captureFields(src, cfg.StoreFields)
	if err := e.sandboxes.Save(ctx, rec); err != nil {
		e.logger.ErrorContext(ctx, "staging failed on create, entity left unmoderated",
			"source", ref.String(), "error", err)
		return
	}
	e.metrics.IncStaged(ref.Type, "create")
	e.invalidateStatus(ctx, ref)
	if e.trail != nil {
		e.trail.Staged(ctx, ref, stagingActor(ctx))
	}

	if len(cfg.DefaultValues) > 0 {
		for name, value := range cfg.DefaultValues {
			if _, present := src.Field(name); !present {
				continue
			}
			if err := src.SetField(name, value); err != nil {
				e.logger.WarnContext(ctx, "default value rejected by entity",
					"source", ref.String(), "field", name, "error", err)
			}
		}
		if err := e.entities.Save(ctx, src, true); err != nil {
			e.logger.ErrorContext(ctx, "default override write failed",
				"source", ref.String(), "error", err)
		}
	}

	e.policy.Evaluate(ctx, cfg, rec, src, e.resolveAuthors(ctx, cfg, src), true)
}

// onUpdate runs before an existing entity's write becomes durable: copy the
// about-to-be-written values into the record, revert the moderated surface
// of the in-flight entity to its last persisted state, and evaluate the
// policy. The caller's write then lands with only reviewed values.
func (e *Engine) onUpdate(ctx context.Context, src entity.Entity) {
	ref := src.Ref()
	cfg, ok := e.registry.Get(ref.Type)
	if !ok {
		return
	}
	unlock := e.locks.lock(ref)
	defer unlock()

	persisted, err := e.entities.Get(ctx, ref)
	if err != nil {
		e.logger.ErrorContext(ctx, "staging failed to load persisted state, write proceeds unstaged",
			"source", ref.String(), "error", err)
		return
	}

	rec, err := e.sandboxes.FindBySource(ctx, ref)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			e.logger.ErrorContext(ctx, "staging failed to load sandbox record, write proceeds unstaged",
				"source", ref.String(), "error", err)
			return
		}
		// Entity predates its type's registration; adopt it now.
		rec = NewRecord(ref, requestcontext.Now(ctx))
	}

	// Only the latest edit is retained: the snapshot overwrites any prior
	// pending payload.
	rec.Fields = captureFields(src, cfg.MonitoredFields)
	rec.Store = captureFields(src, cfg.StoreFields)
	if diff := Diff(cfg, rec, persisted); len(diff) > 0 {
		// A decided record re-enters pending only when the new edit
		// actually changes something.
		rec.Status = StatusPending
		rec.Moderator = ""
		rec.DecidedAt = nil
		rec.Reason = ""
	}
	rec.UpdatedAt = requestcontext.Now(ctx)

	if err := e.sandboxes.Save(ctx, rec); err != nil {
		e.logger.ErrorContext(ctx, "staging failed on update, write proceeds unstaged",
			"source", ref.String(), "error", err)
		return
	}
	e.metrics.IncStaged(ref.Type, "update")
	e.invalidateStatus(ctx, ref)
	if e.trail != nil {
		e.trail.Staged(ctx, ref, stagingActor(ctx))
	}

	revertFields(src, persisted, cfg.MonitoredFields)
	revertFields(src, persisted, cfg.StoreFields)

	e.policy.Evaluate(ctx, cfg, rec, src, e.resolveAuthors(ctx, cfg, src), false)
}

// onDelete cascades the record when its owning entity is destroyed.
func (e *Engine) onDelete(ctx context.Context, ref entity.Ref) {
	if _, ok := e.registry.Get(ref.Type); !ok {
		return
	}
	unlock := e.locks.lock(ref)
	defer unlock()

	if err := e.sandboxes.DeleteBySource(ctx, ref); err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			e.logger.ErrorContext(ctx, "sandbox cascade delete failed",
				"source", ref.String(), "error", err)
		}
		return
	}
	e.invalidateStatus(ctx, ref)
	if e.trail != nil {
		e.trail.Discarded(ctx, ref, stagingActor(ctx))
	}
}

// invalidateStatus is best-effort like the rest of staging: a cache that
// cannot be reached only costs a stale read until its TTL.
func (e *Engine) invalidateStatus(ctx context.Context, ref entity.Ref) {
	if e.invalidator == nil {
		return
	}
	if err := e.invalidator.Invalidate(ctx, ref); err != nil {
		e.logger.WarnContext(ctx, "status cache invalidation failed",
			"source", ref.String(), "error", err)
	}
}

func stagingActor(ctx context.Context) string {
	if actor, ok := entity.ActorFrom(ctx); ok {
		return actor.ID
	}
	return ""
}

// resolveAuthors decides whose permissions the policy consults: the acting
// user from the write context when the type allows approval by request,
// otherwise the entity's own declared authors.
func (e *Engine) resolveAuthors(ctx context.Context, cfg Config, src entity.Entity) []entity.Actor {
	if cfg.AutoApproveByRequest {
		if actor, ok := entity.ActorFrom(ctx); ok {
			return []entity.Actor{actor}
		}
	}
	return src.Authors()
}

func captureFields(src entity.Entity, names []string) map[string]any {
	values := make(map[string]any, len(names))
	for _, name := range names {
		if value, ok := src.Field(name); ok {
			values[name] = value
		}
	}
	return values
}

func revertFields(src, persisted entity.Entity, names []string) {
	for _, name := range names {
		value, ok := persisted.Field(name)
		if !ok {
			continue
		}
		// SetField cannot reject a value the entity already held.
		_ = src.SetField(name, value)
	}
}

// refLocks serializes moderation work per entity identity. The lock map only
// grows; entries are tiny and bounded by the number of distinct entities a
// process touches.
type refLocks struct {
	mu    sync.Mutex
	locks map[entity.Ref]*sync.Mutex
}

func (l *refLocks) lock(ref entity.Ref) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[entity.Ref]*sync.Mutex)
	}
	m, ok := l.locks[ref]
	if !ok {
		m = &sync.Mutex{}
		l.locks[ref] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
