package audit

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"gatehouse/internal/entity"
)

// MemoryStore keeps the audit trail in process memory. It also implements
// Outbox so the worker pipeline can be exercised without Postgres.
type MemoryStore struct {
	mu        sync.Mutex
	events    []Event
	published map[int]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{published: make(map[int]bool)}
}

func (s *MemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *MemoryStore) ListBySource(_ context.Context, source entity.Ref) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, ev := range s.events {
		if ev.Source == source {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *MemoryStore) NextBatch(_ context.Context, limit int) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var batch []Event
	for i, ev := range s.events {
		if s.published[i] {
			continue
		}
		batch = append(batch, ev)
		if len(batch) == limit {
			break
		}
	}
	return batch, nil
}

func (s *MemoryStore) MarkPublished(_ context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make(map[uuid.UUID]bool, len(events))
	for _, ev := range events {
		ids[ev.ID] = true
	}
	for i, ev := range s.events {
		if ids[ev.ID] {
			s.published[i] = true
		}
	}
	return nil
}
