package tombstone

import (
	"time"

	"github.com/google/uuid"
)

// Tombstone is the permanent, non-sensitive audit record of an intake
// deletion. Created exactly once per expired intake and immutable
// thereafter; it carries identifiers and timestamps but never payload
// content.
type Tombstone struct {
	IntakeID          uuid.UUID
	CaseID            uuid.UUID
	ClientID          uuid.UUID
	AttorneyID        uuid.UUID
	SubmittedAt       time.Time
	ConfirmDeadlineAt time.Time
	ConfirmedAt       *time.Time
	DeletedAt         time.Time
	Reason            string
}
