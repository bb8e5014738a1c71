package notification

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"intakeguard/pkg/platform/sentinel"
)

// Directory resolves a contact address for a party. Declared here, on the
// consumer side, so the dispatcher can be tested against any lookup source.
type Directory interface {
	EmailFor(ctx context.Context, role Role, partyID uuid.UUID) (string, error)
}

// SendRequest describes one notification to attempt.
type SendRequest struct {
	IntakeID       uuid.UUID
	CaseID         uuid.UUID
	RecipientID    uuid.UUID
	Role           Role
	TemplateKey    string
	HoursRemaining int
}

// Dispatcher attempts delivery and degrades instead of failing: an
// unresolvable address or a transport error downgrades the attempt to the
// logged channel. Dispatch never returns an error and never retries; the
// caller records the attempt in the ledger whatever the outcome, which is
// what stops resend storms across invocations.
type Dispatcher struct {
	directory Directory
	mailer    Mailer
	logger    *slog.Logger
}

func NewDispatcher(directory Directory, mailer Mailer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{directory: directory, mailer: mailer, logger: logger}
}

// Dispatch resolves the recipient and attempts a send, reporting the channel
// actually used.
func (d *Dispatcher) Dispatch(ctx context.Context, req SendRequest) Channel {
	if req.RecipientID == uuid.Nil {
		d.logger.WarnContext(ctx, "no recipient on record, logging notification only",
			"intake_id", req.IntakeID, "role", req.Role, "template", req.TemplateKey)
		return ChannelLogged
	}

	address, err := d.directory.EmailFor(ctx, req.Role, req.RecipientID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			d.logger.ErrorContext(ctx, "directory lookup failed",
				"intake_id", req.IntakeID, "role", req.Role, "error", err)
		}
		d.logger.InfoContext(ctx, "no address resolved, logging notification only",
			"intake_id", req.IntakeID, "role", req.Role, "template", req.TemplateKey)
		return ChannelLogged
	}

	if d.mailer == nil {
		d.logger.InfoContext(ctx, "no mail provider configured, logging notification only",
			"intake_id", req.IntakeID, "role", req.Role, "template", req.TemplateKey)
		return ChannelLogged
	}

	subject := Subject(req.TemplateKey, req.HoursRemaining)
	body := Body(req.TemplateKey, req.HoursRemaining)
	if err := d.mailer.Send(ctx, address, subject, body); err != nil {
		d.logger.ErrorContext(ctx, "notification send failed, falling back to log channel",
			"intake_id", req.IntakeID, "role", req.Role, "template", req.TemplateKey, "error", err)
		return ChannelLogged
	}

	return ChannelEmail
}
