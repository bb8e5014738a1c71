//go:build integration

package intake_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"intakeguard/internal/intake"
	"intakeguard/internal/notification"
	"intakeguard/internal/platform/postgres"
	"intakeguard/internal/tombstone"
	"intakeguard/pkg/platform/sentinel"
)

type PostgresStoreSuite struct {
	suite.Suite
	container  *tcpostgres.PostgresContainer
	db         *sql.DB
	intakes    *intake.PostgresStore
	ledger     *notification.PostgresLedger
	tombstones *tombstone.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("intakeguard"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.db, err = postgres.Open(ctx, dsn)
	s.Require().NoError(err)

	schema, err := os.ReadFile("../../migrations/001_init.sql")
	s.Require().NoError(err)
	_, err = s.db.ExecContext(ctx, string(schema))
	s.Require().NoError(err)

	s.intakes = intake.NewPostgresStore(s.db)
	s.ledger = notification.NewPostgresLedger(s.db)
	s.tombstones = tombstone.NewPostgresStore(s.db)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.db.Exec(`TRUNCATE intakes, notification_log, intake_tombstones, parties`)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newPending(submittedAt time.Time) *intake.Record {
	rec := intake.New(uuid.New(), uuid.New(), uuid.New(),
		json.RawMessage(`{"narrative":"sensitive"}`), submittedAt, 48*time.Hour)
	s.Require().NoError(s.intakes.Create(context.Background(), rec))
	return rec
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	rec := s.newPending(time.Now().UTC().Truncate(time.Microsecond))

	got, err := s.intakes.FindByID(ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(rec.ID, got.ID)
	s.Equal(intake.StatusPendingConfirmation, got.Status)
	s.JSONEq(`{"narrative":"sensitive"}`, string(got.Payload))
	s.True(got.ConfirmDeadlineAt.Equal(rec.ConfirmDeadlineAt))
}

func (s *PostgresStoreSuite) TestExpireAndScrubIsCompareAndSwap() {
	ctx := context.Background()
	now := time.Now().UTC()
	rec := s.newPending(now.Add(-49 * time.Hour))

	s.Require().NoError(s.intakes.ExpireAndScrub(ctx, rec.ID, now, intake.DeletionReasonNotConfirmed))

	got, err := s.intakes.FindByID(ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(intake.StatusExpiredDeleted, got.Status)
	s.JSONEq(`{}`, string(got.Payload))
	s.Require().NotNil(got.DeletedAt)

	// The losing writer of a race sees a zero-row update.
	err = s.intakes.ExpireAndScrub(ctx, rec.ID, now, intake.DeletionReasonNotConfirmed)
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)

	err = s.intakes.Confirm(ctx, rec.ID, now)
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)
}

func (s *PostgresStoreSuite) TestTransitionsOnUnknownIntakeReturnNotFound() {
	ctx := context.Background()
	now := time.Now().UTC()

	err := s.intakes.Confirm(ctx, uuid.New(), now)
	s.Require().ErrorIs(err, sentinel.ErrNotFound,
		"a missing record must not read as a state conflict")

	err = s.intakes.ExpireAndScrub(ctx, uuid.New(), now, intake.DeletionReasonNotConfirmed)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestPendingQueryExcludesConfirmedAndExpired() {
	ctx := context.Background()
	now := time.Now().UTC()

	pending := s.newPending(now)
	confirmed := s.newPending(now)
	expired := s.newPending(now.Add(-50 * time.Hour))

	s.Require().NoError(s.intakes.Confirm(ctx, confirmed.ID, now))
	s.Require().NoError(s.intakes.ExpireAndScrub(ctx, expired.ID, now, intake.DeletionReasonNotConfirmed))

	list, err := s.intakes.ListPendingConfirmation(ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(pending.ID, list[0].ID)
}

// TestLedgerUniquenessUnderConcurrency verifies the dedup guarantee lives in
// the database, not in application logic: concurrent writers of the same
// dedupe key get exactly one insert and conflict errors for the rest.
func (s *PostgresStoreSuite) TestLedgerUniquenessUnderConcurrency() {
	ctx := context.Background()
	entry := notification.LedgerEntry{
		IntakeID:    uuid.New(),
		CaseID:      uuid.New(),
		RecipientID: uuid.New(),
		Role:        notification.RoleAttorney,
		TemplateKey: notification.ReminderKey(notification.RoleAttorney, 24),
		Channel:     notification.ChannelEmail,
		SentAt:      time.Now().UTC(),
	}

	const writers = 10
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			errs[idx] = s.ledger.Record(ctx, entry)
		}(i)
	}
	wg.Wait()

	inserted := 0
	for _, err := range errs {
		if err == nil {
			inserted++
		} else {
			s.Require().ErrorIs(err, sentinel.ErrConflict)
		}
	}
	s.Equal(1, inserted)

	exists, err := s.ledger.Exists(ctx, entry.IntakeID, entry.Role, entry.TemplateKey)
	s.Require().NoError(err)
	s.True(exists)
}

func (s *PostgresStoreSuite) TestTombstoneWriteIsIdempotent() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	t := tombstone.Tombstone{
		IntakeID:          uuid.New(),
		CaseID:            uuid.New(),
		ClientID:          uuid.New(),
		AttorneyID:        uuid.New(),
		SubmittedAt:       now.Add(-50 * time.Hour),
		ConfirmDeadlineAt: now.Add(-2 * time.Hour),
		DeletedAt:         now,
		Reason:            intake.DeletionReasonNotConfirmed,
	}

	s.Require().NoError(s.tombstones.Write(ctx, t))

	// A retried expiry after a crash between tombstone and scrub must keep
	// the original record.
	later := t
	later.DeletedAt = now.Add(10 * time.Minute)
	s.Require().NoError(s.tombstones.Write(ctx, later))

	got, err := s.tombstones.FindByIntake(ctx, t.IntakeID)
	s.Require().NoError(err)
	s.True(got.DeletedAt.Equal(now))
	s.Nil(got.ConfirmedAt)

	var count int
	s.Require().NoError(s.db.QueryRow(`SELECT COUNT(*) FROM intake_tombstones WHERE intake_id = $1`, t.IntakeID).Scan(&count))
	s.Equal(1, count)
}
