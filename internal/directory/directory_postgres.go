// Package directory resolves contact addresses for case parties. The
// dispatcher treats a missing address as a normal outcome, not a failure.
package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"intakeguard/internal/notification"
	"intakeguard/pkg/platform/sentinel"
)

// PostgresDirectory reads addresses from the parties table.
type PostgresDirectory struct {
	db *sql.DB
}

func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

func (d *PostgresDirectory) EmailFor(ctx context.Context, role notification.Role, partyID uuid.UUID) (string, error) {
	var email sql.NullString
	err := d.db.QueryRowContext(ctx,
		`SELECT email FROM parties WHERE id = $1 AND role = $2`,
		partyID, role,
	).Scan(&email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", sentinel.ErrNotFound
		}
		return "", fmt.Errorf("lookup party email: %w", err)
	}
	if !email.Valid || email.String == "" {
		return "", sentinel.ErrNotFound
	}
	return email.String, nil
}
