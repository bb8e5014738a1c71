package tombstone

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"intakeguard/pkg/platform/sentinel"
)

// PostgresStore persists tombstones in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Write inserts the tombstone, keeping the first one on conflict. The
// unique constraint on intake_id makes retried expiries no-ops.
func (s *PostgresStore) Write(ctx context.Context, t Tombstone) error {
	query := `
		INSERT INTO intake_tombstones (
			intake_id, case_id, client_id, attorney_id,
			submitted_at, confirm_deadline_at, confirmed_at, deleted_at, reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (intake_id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		t.IntakeID, t.CaseID, t.ClientID, t.AttorneyID,
		t.SubmittedAt, t.ConfirmDeadlineAt, t.ConfirmedAt, t.DeletedAt, t.Reason,
	)
	if err != nil {
		return fmt.Errorf("write tombstone: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByIntake(ctx context.Context, intakeID uuid.UUID) (*Tombstone, error) {
	query := `
		SELECT intake_id, case_id, client_id, attorney_id,
		       submitted_at, confirm_deadline_at, confirmed_at, deleted_at, reason
		FROM intake_tombstones
		WHERE intake_id = $1
	`
	var t Tombstone
	var confirmedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, intakeID).Scan(
		&t.IntakeID, &t.CaseID, &t.ClientID, &t.AttorneyID,
		&t.SubmittedAt, &t.ConfirmDeadlineAt, &confirmedAt, &t.DeletedAt, &t.Reason,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find tombstone: %w", err)
	}
	if confirmedAt.Valid {
		t.ConfirmedAt = &confirmedAt.Time
	}
	return &t, nil
}
