package tombstone

import (
	"context"

	"github.com/google/uuid"
)

// Store persists tombstones. Write is idempotent by intake id so a retried
// expiry (crash between tombstone and scrub) cannot create a duplicate audit
// record. There are deliberately no update or delete operations.
type Store interface {
	Write(ctx context.Context, t Tombstone) error
	FindByIntake(ctx context.Context, intakeID uuid.UUID) (*Tombstone, error)
}
