package notification

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"intakeguard/pkg/platform/sentinel"
)

// InMemoryLedger mirrors the Postgres ledger's uniqueness behavior under a
// mutex.
type InMemoryLedger struct {
	mu      sync.RWMutex
	entries map[string]LedgerEntry
}

func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{entries: make(map[string]LedgerEntry)}
}

func (l *InMemoryLedger) Exists(_ context.Context, intakeID uuid.UUID, role Role, templateKey string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.entries[DedupeKey(intakeID, role, templateKey)]
	return ok, nil
}

func (l *InMemoryLedger) Record(_ context.Context, entry LedgerEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := entry.DedupeKey()
	if _, ok := l.entries[key]; ok {
		return sentinel.ErrConflict
	}
	l.entries[key] = entry
	return nil
}

// All returns every recorded entry; test helper.
func (l *InMemoryLedger) All() []LedgerEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]LedgerEntry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e)
	}
	return out
}
