package sandbox

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"gatehouse/internal/entity"
	"gatehouse/pkg/platform/sentinel"
)

// MemoryStore is the in-memory Store used by the default wiring and by
// tests. Records are stored as independent clones so callers never share
// mutable state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	bySource map[entity.Ref]*Record
	byID     map[uuid.UUID]entity.Ref
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bySource: make(map[entity.Ref]*Record),
		byID:     make(map[uuid.UUID]entity.Ref),
	}
}

func (s *MemoryStore) Save(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bySource[rec.Source] = rec.Clone()
	s.byID[rec.ID] = rec.Source
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id uuid.UUID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	source, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	rec, ok := s.bySource[source]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) FindBySource(_ context.Context, source entity.Ref) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.bySource[source]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) ListPending(_ context.Context, entityType string) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var pending []*Record
	for _, rec := range s.bySource {
		if rec.Source.Type != entityType {
			continue
		}
		if rec.Draft || rec.Status.Terminal() {
			continue
		}
		pending = append(pending, rec.Clone())
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].UpdatedAt.Before(pending[j].UpdatedAt)
	})
	return pending, nil
}

func (s *MemoryStore) DeleteBySource(_ context.Context, source entity.Ref) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.bySource[source]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.bySource, source)
	delete(s.byID, rec.ID)
	return nil
}
