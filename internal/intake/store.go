package intake

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists intake records. Conditional updates return
// sentinel.ErrInvalidState when the record is not pending, so concurrent or
// repeated invocations become no-ops rather than double transitions.
type Store interface {
	Create(ctx context.Context, rec *Record) error
	FindByID(ctx context.Context, id uuid.UUID) (*Record, error)

	// ListPendingConfirmation returns every record with
	// status = pending_confirmation and a non-null confirmation deadline.
	ListPendingConfirmation(ctx context.Context) ([]*Record, error)

	// Confirm flips pending_confirmation -> confirmed.
	Confirm(ctx context.Context, id uuid.UUID, confirmedAt time.Time) error

	// ExpireAndScrub clears the payload and flips
	// pending_confirmation -> expired_deleted in a single conditional update.
	ExpireAndScrub(ctx context.Context, id uuid.UUID, deletedAt time.Time, reason string) error

	// TouchLastNotified updates advisory notification bookkeeping.
	TouchLastNotified(ctx context.Context, id uuid.UUID, at time.Time) error
}
