package enforcement

import (
	"context"
	"math"
	"time"

	"intakeguard/internal/intake"
	"intakeguard/internal/notification"
)

// handleReminders sends every due, not-yet-sent reminder for a record that
// is still inside its confirmation window. Iterating all thresholds at or
// below the remaining time (not just the nearest) gives catch-up semantics:
// after a gap in scheduler runs, a single invocation drains everything that
// came due during the gap.
func (e *Engine) handleReminders(ctx context.Context, rec *intake.Record, now time.Time) (int, error) {
	hoursRemaining := rec.Remaining(now).Hours()
	templateHours := int(math.Floor(hoursRemaining))
	sent := 0

	for _, threshold := range e.thresholds {
		if hoursRemaining > float64(threshold) {
			continue
		}
		for _, role := range []notification.Role{notification.RoleAttorney, notification.RoleClient} {
			wrote, err := e.notifyOnce(ctx, rec, role, notification.ReminderKey(role, threshold), templateHours, now)
			if err != nil {
				// One undeliverable reminder must not block the rest of the
				// catch-up set; it stays absent from the ledger and is
				// retried on the next invocation.
				e.logger.ErrorContext(ctx, "reminder not recorded",
					"intake_id", rec.ID, "role", role, "threshold_hours", threshold, "error", err)
				continue
			}
			if wrote {
				sent++
			}
		}
	}

	return sent, nil
}
