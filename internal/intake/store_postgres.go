package intake

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"intakeguard/pkg/platform/sentinel"
)

// PostgresStore persists intake records in PostgreSQL. Status transitions are
// conditional updates so only one writer can flip a record out of
// pending_confirmation.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO intakes (
			id, case_id, client_id, attorney_id,
			submitted_at, confirm_deadline_at, status, payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.CaseID, rec.ClientID, rec.AttorneyID,
		rec.SubmittedAt, rec.ConfirmDeadlineAt, rec.Status, []byte(rec.Payload),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create intake: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	query := `
		SELECT id, case_id, client_id, attorney_id,
		       submitted_at, confirm_deadline_at, confirmed_at,
		       status, payload, deleted_at, deletion_reason, last_notified_at
		FROM intakes
		WHERE id = $1
	`
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find intake: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) ListPendingConfirmation(ctx context.Context) ([]*Record, error) {
	query := `
		SELECT id, case_id, client_id, attorney_id,
		       submitted_at, confirm_deadline_at, confirmed_at,
		       status, payload, deleted_at, deletion_reason, last_notified_at
		FROM intakes
		WHERE status = $1
		  AND confirmed_at IS NULL
		  AND confirm_deadline_at IS NOT NULL
	`
	rows, err := s.db.QueryContext(ctx, query, StatusPendingConfirmation)
	if err != nil {
		return nil, fmt.Errorf("list pending intakes: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending intake: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending intakes: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Confirm(ctx context.Context, id uuid.UUID, confirmedAt time.Time) error {
	query := `
		UPDATE intakes
		SET status = $2, confirmed_at = $3
		WHERE id = $1 AND status = $4
	`
	res, err := s.db.ExecContext(ctx, query, id, StatusConfirmed, confirmedAt, StatusPendingConfirmation)
	if err != nil {
		return fmt.Errorf("confirm intake: %w", err)
	}
	return s.requireTransition(ctx, res, id)
}

func (s *PostgresStore) ExpireAndScrub(ctx context.Context, id uuid.UUID, deletedAt time.Time, reason string) error {
	query := `
		UPDATE intakes
		SET status = $2,
		    payload = '{}'::jsonb,
		    deleted_at = $3,
		    deletion_reason = $4
		WHERE id = $1 AND status = $5
	`
	res, err := s.db.ExecContext(ctx, query, id, StatusExpiredDeleted, deletedAt, reason, StatusPendingConfirmation)
	if err != nil {
		return fmt.Errorf("expire intake: %w", err)
	}
	return s.requireTransition(ctx, res, id)
}

func (s *PostgresStore) TouchLastNotified(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE intakes SET last_notified_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("touch last notified: %w", err)
	}
	return nil
}

// requireTransition inspects a conditional status update. Zero rows means
// the transition did not happen here; a follow-up existence check tells a
// missing record (ErrNotFound) apart from one already in another status
// (ErrInvalidState), keeping this store's contract aligned with
// InMemoryStore.
func (s *PostgresStore) requireTransition(ctx context.Context, res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for intake %s: %w", id, err)
	}
	if n == 1 {
		return nil
	}
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM intakes WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check intake %s: %w", id, err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrInvalidState
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var confirmedAt, deletedAt, lastNotifiedAt sql.NullTime
	var deletionReason sql.NullString
	var payload []byte
	err := row.Scan(
		&rec.ID, &rec.CaseID, &rec.ClientID, &rec.AttorneyID,
		&rec.SubmittedAt, &rec.ConfirmDeadlineAt, &confirmedAt,
		&rec.Status, &payload, &deletedAt, &deletionReason, &lastNotifiedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Payload = payload
	if confirmedAt.Valid {
		rec.ConfirmedAt = &confirmedAt.Time
	}
	if deletedAt.Valid {
		rec.DeletedAt = &deletedAt.Time
	}
	if deletionReason.Valid {
		rec.DeletionReason = deletionReason.String
	}
	if lastNotifiedAt.Valid {
		rec.LastNotifiedAt = &lastNotifiedAt.Time
	}
	return &rec, nil
}
