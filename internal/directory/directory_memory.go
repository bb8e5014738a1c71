package directory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"intakeguard/internal/notification"
	"intakeguard/pkg/platform/sentinel"
)

// InMemoryDirectory holds addresses keyed by (role, party id).
type InMemoryDirectory struct {
	mu        sync.RWMutex
	addresses map[key]string
}

type key struct {
	role notification.Role
	id   uuid.UUID
}

func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{addresses: make(map[key]string)}
}

func (d *InMemoryDirectory) Put(role notification.Role, partyID uuid.UUID, email string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.addresses[key{role, partyID}] = email
}

func (d *InMemoryDirectory) EmailFor(_ context.Context, role notification.Role, partyID uuid.UUID) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	email, ok := d.addresses[key{role, partyID}]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return email, nil
}
