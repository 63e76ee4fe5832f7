package entity

import (
	"context"
	"fmt"
	"sync"

	"gatehouse/pkg/platform/sentinel"
)

// FieldValidator checks a single field value against the entity schema.
type FieldValidator func(value any) error

// Definition describes one entity type to the in-memory store: its name and
// its per-field validators.
type Definition struct {
	Type       string
	Validators map[string]FieldValidator
}

// Cloner is required of entities persisted by the in-memory store so durable
// state is held as an independent copy rather than a shared pointer.
type Cloner interface {
	CloneEntity() Entity
}

// MemoryStore keeps durable entity state in process memory. It is the
// reference Store implementation used by the default wiring and by tests;
// it favors clarity over performance.
type MemoryStore struct {
	mu    sync.RWMutex
	defs  map[string]Definition
	hooks map[string]Hooks
	rows  map[Ref]Entity
}

func NewMemoryStore(defs ...Definition) *MemoryStore {
	s := &MemoryStore{
		defs:  make(map[string]Definition),
		hooks: make(map[string]Hooks),
		rows:  make(map[Ref]Entity),
	}
	for _, def := range defs {
		s.defs[def.Type] = def
	}
	return s
}

// RegisterHooks attaches lifecycle hooks for one entity type. Hooks fire only
// for types registered here; unknown types are rejected so misconfiguration
// surfaces at startup, not at request time.
func (s *MemoryStore) RegisterHooks(entityType string, hooks Hooks) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.defs[entityType]; !ok {
		return fmt.Errorf("entity type %q is not defined in this store", entityType)
	}
	if _, ok := s.hooks[entityType]; ok {
		return fmt.Errorf("hooks already registered for entity type %q", entityType)
	}
	s.hooks[entityType] = hooks
	return nil
}

func (s *MemoryStore) Get(_ context.Context, ref Ref) (Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[ref]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(row)
}

// Save persists the entity. Without the bypass flag, lifecycle hooks run
// around the write: BeforeWrite ahead of an update (and may mutate e before
// it lands), AfterCreate once after a first write.
func (s *MemoryStore) Save(ctx context.Context, e Entity, bypass bool) error {
	ref := e.Ref()
	if ref.IsZero() {
		return fmt.Errorf("entity has no ref")
	}

	s.mu.RLock()
	_, exists := s.rows[ref]
	hooks := s.hooks[ref.Type]
	s.mu.RUnlock()

	if bypass {
		hooks = nil
	}

	if hooks != nil && exists {
		hooks.BeforeWrite(ctx, e)
	}

	row, err := clone(e)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.rows[ref] = row
	s.mu.Unlock()

	if hooks != nil && !exists {
		hooks.AfterCreate(ctx, e)
	}
	return nil
}

// ValidateFields runs the type's per-field validators over the listed fields.
// Fields absent from the entity's current schema are skipped. The result is a
// list of rejected fields, never an error-per-field control flow.
func (s *MemoryStore) ValidateFields(_ context.Context, e Entity, fields []string) ([]FieldError, error) {
	s.mu.RLock()
	def, ok := s.defs[e.Ref().Type]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("entity type %q is not defined in this store", e.Ref().Type)
	}

	var rejected []FieldError
	for _, name := range fields {
		value, present := e.Field(name)
		if !present {
			continue
		}
		validate, ok := def.Validators[name]
		if !ok {
			continue
		}
		if err := validate(value); err != nil {
			rejected = append(rejected, FieldError{Field: name, Message: err.Error()})
		}
	}
	return rejected, nil
}

// Delete removes the entity and fires AfterDelete so owned moderation state
// cascades.
func (s *MemoryStore) Delete(ctx context.Context, ref Ref) error {
	s.mu.Lock()
	_, ok := s.rows[ref]
	delete(s.rows, ref)
	hooks := s.hooks[ref.Type]
	s.mu.Unlock()

	if !ok {
		return sentinel.ErrNotFound
	}
	if hooks != nil {
		hooks.AfterDelete(ctx, ref)
	}
	return nil
}

func clone(e Entity) (Entity, error) {
	c, ok := e.(Cloner)
	if !ok {
		return nil, fmt.Errorf("entity type %q does not implement entity.Cloner", e.Ref().Type)
	}
	return c.CloneEntity(), nil
}
