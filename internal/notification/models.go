package notification

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role identifies which party a notification targets.
type Role string

const (
	RoleClient   Role = "client"
	RoleAttorney Role = "attorney"
)

// Channel records how a notification actually went out. "logged" means the
// attempt degraded to a log line (provider unconfigured, address missing, or
// a transport failure).
type Channel string

const (
	ChannelEmail  Channel = "email"
	ChannelLogged Channel = "logged"
)

// ReminderKey is the template key for a reminder at the given hours-before-
// deadline threshold, e.g. "attorney_24h".
func ReminderKey(role Role, thresholdHours int) string {
	return fmt.Sprintf("%s_%dh", role, thresholdHours)
}

// ExpiredKey is the template key for the deadline-expired notice.
func ExpiredKey(role Role) string {
	return fmt.Sprintf("%s_expired", role)
}

// DedupeKey builds the composite identity under which at most one ledger
// entry may exist.
func DedupeKey(intakeID uuid.UUID, role Role, templateKey string) string {
	return fmt.Sprintf("intake:%s:%s:%s", intakeID, role, templateKey)
}

// LedgerEntry is one notification attempt. Append-only.
type LedgerEntry struct {
	IntakeID    uuid.UUID
	CaseID      uuid.UUID
	RecipientID uuid.UUID
	Role        Role
	TemplateKey string
	Channel     Channel
	SentAt      time.Time
}

// DedupeKey returns the entry's composite identity.
func (e LedgerEntry) DedupeKey() string {
	return DedupeKey(e.IntakeID, e.Role, e.TemplateKey)
}
