package tombstone

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"intakeguard/pkg/platform/sentinel"
)

// InMemoryStore keeps tombstones keyed by intake id. First write wins,
// matching the Postgres ON CONFLICT DO NOTHING behavior.
type InMemoryStore struct {
	mu         sync.RWMutex
	tombstones map[uuid.UUID]Tombstone
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{tombstones: make(map[uuid.UUID]Tombstone)}
}

func (s *InMemoryStore) Write(_ context.Context, t Tombstone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tombstones[t.IntakeID]; ok {
		return nil
	}
	s.tombstones[t.IntakeID] = t
	return nil
}

func (s *InMemoryStore) FindByIntake(_ context.Context, intakeID uuid.UUID) (*Tombstone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tombstones[intakeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &t, nil
}

// Count returns the number of stored tombstones; test helper.
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tombstones)
}
