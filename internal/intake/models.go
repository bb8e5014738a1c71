package intake

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status tracks an intake through its confirmation lifecycle. Transitions are
// monotonic: pending_confirmation moves to exactly one of the terminal states
// and never back.
type Status string

const (
	StatusPendingConfirmation Status = "pending_confirmation"
	StatusConfirmed           Status = "confirmed"
	StatusExpiredDeleted      Status = "expired_deleted"
)

// DeletionReasonNotConfirmed is recorded when the confirmation window lapses.
const DeletionReasonNotConfirmed = "attorney_not_confirmed"

// Record is a submitted client intake awaiting attorney confirmation.
// Payload holds the sensitive content and must be empty once the record is
// expired_deleted.
type Record struct {
	ID         uuid.UUID
	CaseID     uuid.UUID
	ClientID   uuid.UUID
	AttorneyID uuid.UUID

	SubmittedAt       time.Time
	ConfirmDeadlineAt time.Time
	ConfirmedAt       *time.Time

	Status  Status
	Payload json.RawMessage

	DeletedAt      *time.Time
	DeletionReason string
	LastNotifiedAt *time.Time
}

// New builds a pending record, stamping the confirmation deadline at a fixed
// window from submission.
func New(caseID, clientID, attorneyID uuid.UUID, payload json.RawMessage, submittedAt time.Time, window time.Duration) *Record {
	return &Record{
		ID:                uuid.New(),
		CaseID:            caseID,
		ClientID:          clientID,
		AttorneyID:        attorneyID,
		SubmittedAt:       submittedAt,
		ConfirmDeadlineAt: submittedAt.Add(window),
		Status:            StatusPendingConfirmation,
		Payload:           payload,
	}
}

// Remaining reports the time left until the confirmation deadline. Negative
// once the deadline has passed.
func (r *Record) Remaining(now time.Time) time.Duration {
	return r.ConfirmDeadlineAt.Sub(now)
}

// Expired reports whether the deadline has passed without confirmation.
func (r *Record) Expired(now time.Time) bool {
	return r.Status == StatusPendingConfirmation && r.ConfirmedAt == nil && !r.ConfirmDeadlineAt.After(now)
}
