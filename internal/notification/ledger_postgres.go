package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"intakeguard/pkg/platform/sentinel"
)

// PostgresLedger persists notification attempts. The unique index on
// dedupe_key is what actually guarantees at-most-one entry per
// (intake, role, template) across concurrent invocations.
type PostgresLedger struct {
	db *sql.DB
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) Exists(ctx context.Context, intakeID uuid.UUID, role Role, templateKey string) (bool, error) {
	var one int
	err := l.db.QueryRowContext(ctx,
		`SELECT 1 FROM notification_log WHERE dedupe_key = $1 LIMIT 1`,
		DedupeKey(intakeID, role, templateKey),
	).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check notification log: %w", err)
	}
	return true, nil
}

func (l *PostgresLedger) Record(ctx context.Context, entry LedgerEntry) error {
	query := `
		INSERT INTO notification_log (
			intake_id, case_id, recipient_id, role, template_key, channel, sent_at, dedupe_key
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := l.db.ExecContext(ctx, query,
		entry.IntakeID, entry.CaseID, entry.RecipientID,
		entry.Role, entry.TemplateKey, entry.Channel, entry.SentAt, entry.DedupeKey(),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("record notification: %w", err)
	}
	return nil
}
