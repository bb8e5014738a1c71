package notification

import (
	"context"

	"github.com/google/uuid"
)

// Ledger is the append-only dedup log. Exists is the cheap pre-check; the
// real guarantee is Record returning sentinel.ErrConflict when an entry with
// the same dedupe key already exists, enforced by a storage-level uniqueness
// constraint rather than application logic (check-then-write is not atomic
// across concurrent invocations).
type Ledger interface {
	Exists(ctx context.Context, intakeID uuid.UUID, role Role, templateKey string) (bool, error)
	Record(ctx context.Context, entry LedgerEntry) error
}
