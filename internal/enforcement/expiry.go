package enforcement

import (
	"context"
	"errors"
	"time"

	"intakeguard/internal/intake"
	"intakeguard/internal/notification"
	"intakeguard/internal/tombstone"
	"intakeguard/pkg/platform/sentinel"
)

// handleExpiry destroys an intake whose confirmation window has lapsed.
// Order matters: tombstone first (best-effort, idempotent by intake id),
// then the conditional scrub, then the dedup-guarded expired notices. The
// scrub is the only fatal step; if it fails the record stays pending and the
// whole sequence is retried on the next invocation.
func (e *Engine) handleExpiry(ctx context.Context, rec *intake.Record, now time.Time) error {
	// Defensive re-check; the query already filtered on these.
	if !rec.Expired(now) {
		return nil
	}

	e.logger.InfoContext(ctx, "confirmation window lapsed, deleting intake payload",
		"intake_id", rec.ID, "case_id", rec.CaseID, "deadline", rec.ConfirmDeadlineAt)

	err := e.tombstones.Write(ctx, tombstone.Tombstone{
		IntakeID:          rec.ID,
		CaseID:            rec.CaseID,
		ClientID:          rec.ClientID,
		AttorneyID:        rec.AttorneyID,
		SubmittedAt:       rec.SubmittedAt,
		ConfirmDeadlineAt: rec.ConfirmDeadlineAt,
		ConfirmedAt:       rec.ConfirmedAt,
		DeletedAt:         now,
		Reason:            intake.DeletionReasonNotConfirmed,
	})
	if err != nil {
		// The privacy deletion outweighs completeness of the audit trail.
		e.logger.ErrorContext(ctx, "tombstone write failed, proceeding with scrub",
			"intake_id", rec.ID, "error", err)
	}

	if err := e.intakes.ExpireAndScrub(ctx, rec.ID, now, intake.DeletionReasonNotConfirmed); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			// A concurrent invocation already expired (or an external actor
			// confirmed) this record; nothing left to do here.
			e.logger.InfoContext(ctx, "intake no longer pending, skipping scrub",
				"intake_id", rec.ID)
			return nil
		}
		return err
	}

	for _, role := range []notification.Role{notification.RoleAttorney, notification.RoleClient} {
		if _, err := e.notifyOnce(ctx, rec, role, notification.ExpiredKey(role), 0, now); err != nil {
			// Best-effort: the scrub already happened and the record drops
			// out of the pending set, so a missed notice is not revisited.
			e.logger.ErrorContext(ctx, "expired notice not recorded",
				"intake_id", rec.ID, "role", role, "error", err)
		}
	}
	return nil
}
