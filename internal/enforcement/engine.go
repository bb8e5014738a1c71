// Package enforcement implements the intake confirmation deadline engine: a
// periodically-invoked, idempotent batch that reminds both parties ahead of
// the confirmation deadline and destroys the sensitive payload once it
// passes. The engine keeps no state between invocations; repeat-suppression
// lives in the notification ledger and the store's status filter.
package enforcement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"intakeguard/internal/enforcement/metrics"
	"intakeguard/internal/intake"
	"intakeguard/internal/notification"
	"intakeguard/internal/tombstone"
	"intakeguard/pkg/platform/sentinel"
)

// Clock supplies the current time; injected so tests can simulate arbitrary
// elapsed time deterministically.
type Clock func() time.Time

// Dispatcher attempts one notification and reports the channel used.
type Dispatcher interface {
	Dispatch(ctx context.Context, req notification.SendRequest) notification.Channel
}

// TombstoneWriter persists the non-sensitive deletion audit record.
type TombstoneWriter interface {
	Write(ctx context.Context, t tombstone.Tombstone) error
}

// Lock guards against overlapping invocations. Optional; mutations remain
// safe without it.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// ErrRunInProgress is returned when another invocation holds the run lease.
var ErrRunInProgress = errors.New("enforcement run already in progress")

// DefaultThresholds are the reminder points in hours before the deadline,
// descending.
var DefaultThresholds = []int{24, 8, 4, 1}

// Summary is the structured result of one enforcement run.
type Summary struct {
	Processed     int `json:"processed"`
	Expired       int `json:"expired"`
	RemindersSent int `json:"reminders_sent"`
}

// Engine drives one enforcement pass over all pending intakes.
type Engine struct {
	intakes    intake.Store
	ledger     notification.Ledger
	tombstones TombstoneWriter
	dispatcher Dispatcher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	thresholds []int
	clock      Clock
	lock       Lock
	tracer     trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock function for testability.
func WithClock(clock Clock) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithThresholds overrides the reminder threshold set (hours, descending).
func WithThresholds(thresholds []int) Option {
	return func(e *Engine) {
		if len(thresholds) > 0 {
			e.thresholds = thresholds
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLock sets the invocation lease.
func WithLock(lock Lock) Option {
	return func(e *Engine) {
		e.lock = lock
	}
}

func NewEngine(
	intakes intake.Store,
	ledger notification.Ledger,
	tombstones TombstoneWriter,
	dispatcher Dispatcher,
	logger *slog.Logger,
	opts ...Option,
) *Engine {
	e := &Engine{
		intakes:    intakes,
		ledger:     ledger,
		tombstones: tombstones,
		dispatcher: dispatcher,
		logger:     logger,
		thresholds: DefaultThresholds,
		clock:      time.Now,
		tracer:     otel.Tracer("intakeguard/enforcement"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Run executes one enforcement pass. It is fatal only when the pending fetch
// fails or another invocation holds the lease; a failure on any single
// record is logged and must not prevent the remaining records from being
// processed.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	started := time.Now()
	ctx, span := e.tracer.Start(ctx, "enforcement.run")
	defer span.End()

	if e.lock != nil {
		acquired, err := e.lock.Acquire(ctx)
		if err != nil {
			// Lease is advisory; proceed without overlap protection.
			e.logger.WarnContext(ctx, "run lock unavailable, proceeding without it", "error", err)
		} else if !acquired {
			e.metrics.IncRun("lease_held")
			return Summary{}, ErrRunInProgress
		} else {
			defer func() {
				if err := e.lock.Release(ctx); err != nil {
					e.logger.WarnContext(ctx, "failed to release run lock", "error", err)
				}
			}()
		}
	}

	pending, err := e.intakes.ListPendingConfirmation(ctx)
	if err != nil {
		e.metrics.IncRun("fatal")
		return Summary{}, fmt.Errorf("query pending intakes: %w", err)
	}
	span.SetAttributes(attribute.Int("enforcement.pending", len(pending)))

	now := e.clock()
	var summary Summary
	summary.Processed = len(pending)

	for _, rec := range pending {
		expired, reminders, err := e.process(ctx, rec, now)
		if err != nil {
			// Fault isolation: keep going with the rest of the batch.
			e.metrics.IncRecord("failed")
			e.logger.ErrorContext(ctx, "failed to process intake",
				"intake_id", rec.ID, "error", err)
			continue
		}
		summary.Expired += expired
		summary.RemindersSent += reminders
	}

	e.metrics.IncRun("ok")
	e.metrics.ObserveRunDuration(time.Since(started))
	e.logger.InfoContext(ctx, "enforcement run complete",
		"processed", summary.Processed,
		"expired", summary.Expired,
		"reminders_sent", summary.RemindersSent,
	)
	return summary, nil
}

// process classifies one record and drives the matching handler. A panic in
// either handler is contained here so one poisoned record cannot abort the
// batch.
func (e *Engine) process(ctx context.Context, rec *intake.Record, now time.Time) (expired, reminders int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing intake %s: %v", rec.ID, r)
		}
	}()

	if rec.Expired(now) {
		if err := e.handleExpiry(ctx, rec, now); err != nil {
			return 0, 0, err
		}
		e.metrics.IncRecord("expired")
		return 1, 0, nil
	}

	sent, err := e.handleReminders(ctx, rec, now)
	if err != nil {
		return 0, 0, err
	}
	if sent > 0 {
		e.metrics.IncRecord("reminded")
	} else {
		e.metrics.IncRecord("noop")
	}
	return 0, sent, nil
}

// notifyOnce sends one dedup-guarded notification and records it; every new
// attempt also stamps last_notified_at on the record. Returns true when a
// new ledger entry was written. A constraint conflict from a racing
// invocation means the event was already handled and is not an error.
func (e *Engine) notifyOnce(ctx context.Context, rec *intake.Record, role notification.Role, templateKey string, hoursRemaining int, now time.Time) (bool, error) {
	exists, err := e.ledger.Exists(ctx, rec.ID, role, templateKey)
	if err != nil {
		return false, fmt.Errorf("check ledger for %s: %w", templateKey, err)
	}
	if exists {
		return false, nil
	}

	recipientID := rec.ClientID
	if role == notification.RoleAttorney {
		recipientID = rec.AttorneyID
	}

	// The attempt counts as handled whatever channel it lands on; writing
	// the ledger entry regardless is what prevents resend storms.
	channel := e.dispatcher.Dispatch(ctx, notification.SendRequest{
		IntakeID:       rec.ID,
		CaseID:         rec.CaseID,
		RecipientID:    recipientID,
		Role:           role,
		TemplateKey:    templateKey,
		HoursRemaining: hoursRemaining,
	})

	err = e.ledger.Record(ctx, notification.LedgerEntry{
		IntakeID:    rec.ID,
		CaseID:      rec.CaseID,
		RecipientID: recipientID,
		Role:        role,
		TemplateKey: templateKey,
		Channel:     channel,
		SentAt:      now,
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return false, nil
		}
		return false, fmt.Errorf("record ledger entry %s: %w", templateKey, err)
	}

	e.metrics.IncNotification(string(role), string(channel))

	if err := e.intakes.TouchLastNotified(ctx, rec.ID, now); err != nil {
		// Advisory bookkeeping only.
		e.logger.WarnContext(ctx, "failed to update last_notified_at",
			"intake_id", rec.ID, "error", err)
	}
	return true, nil
}
