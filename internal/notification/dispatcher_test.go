package notification_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intakeguard/internal/directory"
	"intakeguard/internal/notification"
)

type stubMailer struct {
	err      error
	lastTo   string
	lastSubj string
}

func (m *stubMailer) Send(_ context.Context, to, subject, _ string) error {
	m.lastTo = to
	m.lastSubj = subject
	return m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func request(role notification.Role) notification.SendRequest {
	return notification.SendRequest{
		IntakeID:       uuid.New(),
		CaseID:         uuid.New(),
		RecipientID:    uuid.New(),
		Role:           role,
		TemplateKey:    notification.ReminderKey(role, 24),
		HoursRemaining: 23,
	}
}

func TestDispatchDeliversEmail(t *testing.T) {
	dir := directory.NewInMemoryDirectory()
	mailer := &stubMailer{}
	d := notification.NewDispatcher(dir, mailer, discardLogger())

	req := request(notification.RoleAttorney)
	dir.Put(notification.RoleAttorney, req.RecipientID, "attorney@example.com")

	channel := d.Dispatch(context.Background(), req)

	assert.Equal(t, notification.ChannelEmail, channel)
	assert.Equal(t, "attorney@example.com", mailer.lastTo)
	assert.Contains(t, mailer.lastSubj, "23h")
}

func TestDispatchDegradesWhenAddressMissing(t *testing.T) {
	mailer := &stubMailer{}
	d := notification.NewDispatcher(directory.NewInMemoryDirectory(), mailer, discardLogger())

	channel := d.Dispatch(context.Background(), request(notification.RoleClient))

	assert.Equal(t, notification.ChannelLogged, channel)
	assert.Empty(t, mailer.lastTo, "no send attempt without an address")
}

func TestDispatchDegradesWhenRecipientUnknown(t *testing.T) {
	d := notification.NewDispatcher(directory.NewInMemoryDirectory(), &stubMailer{}, discardLogger())

	req := request(notification.RoleClient)
	req.RecipientID = uuid.Nil

	assert.Equal(t, notification.ChannelLogged, d.Dispatch(context.Background(), req))
}

func TestDispatchDegradesWhenMailerUnconfigured(t *testing.T) {
	dir := directory.NewInMemoryDirectory()
	d := notification.NewDispatcher(dir, nil, discardLogger())

	req := request(notification.RoleClient)
	dir.Put(notification.RoleClient, req.RecipientID, "client@example.com")

	assert.Equal(t, notification.ChannelLogged, d.Dispatch(context.Background(), req))
}

func TestDispatchSwallowsTransportErrors(t *testing.T) {
	dir := directory.NewInMemoryDirectory()
	mailer := &stubMailer{err: errors.New("timeout")}
	d := notification.NewDispatcher(dir, mailer, discardLogger())

	req := request(notification.RoleAttorney)
	dir.Put(notification.RoleAttorney, req.RecipientID, "attorney@example.com")

	assert.Equal(t, notification.ChannelLogged, d.Dispatch(context.Background(), req))
}

func TestDedupeKeyShape(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	key := notification.DedupeKey(id, notification.RoleAttorney, "attorney_8h")
	require.Equal(t, "intake:6ba7b810-9dad-11d1-80b4-00c04fd430c8:attorney:attorney_8h", key)
}

func TestTemplateKeys(t *testing.T) {
	assert.Equal(t, "client_24h", notification.ReminderKey(notification.RoleClient, 24))
	assert.Equal(t, "attorney_1h", notification.ReminderKey(notification.RoleAttorney, 1))
	assert.Equal(t, "client_expired", notification.ExpiredKey(notification.RoleClient))
}

func TestTemplatesDistinguishAudience(t *testing.T) {
	assert.Contains(t, notification.Subject("attorney_expired", 0), "Expired")
	assert.Contains(t, notification.Subject("attorney_8h", 7), "Attorney")
	assert.Contains(t, notification.Subject("client_8h", 7), "Intake Confirmation")
	assert.Contains(t, notification.Body("client_4h", 3), "Your attorney has")
	assert.Contains(t, notification.Body("attorney_4h", 3), "You have")
	assert.Contains(t, notification.Body("client_expired", 0), "permanently deleted")
}
