package intake

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"intakeguard/pkg/platform/sentinel"
)

// InMemoryStore keeps intake records under a mutex. Used in unit tests and
// local development without Postgres.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[uuid.UUID]*Record)}
}

func (s *InMemoryStore) Create(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *rec
	s.records[rec.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *InMemoryStore) ListPendingConfirmation(_ context.Context) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Record
	for _, rec := range s.records {
		if rec.Status == StatusPendingConfirmation && !rec.ConfirmDeadlineAt.IsZero() {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemoryStore) Confirm(_ context.Context, id uuid.UUID, confirmedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if rec.Status != StatusPendingConfirmation {
		return sentinel.ErrInvalidState
	}
	rec.Status = StatusConfirmed
	rec.ConfirmedAt = &confirmedAt
	return nil
}

func (s *InMemoryStore) ExpireAndScrub(_ context.Context, id uuid.UUID, deletedAt time.Time, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if rec.Status != StatusPendingConfirmation {
		return sentinel.ErrInvalidState
	}
	rec.Status = StatusExpiredDeleted
	rec.Payload = json.RawMessage(`{}`)
	rec.DeletedAt = &deletedAt
	rec.DeletionReason = reason
	return nil
}

func (s *InMemoryStore) TouchLastNotified(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	rec.LastNotifiedAt = &at
	return nil
}
