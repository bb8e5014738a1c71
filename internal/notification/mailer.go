package notification

import "context"

// Mailer delivers one message to one address. Implementations must not retry
// internally; retry policy belongs to the next scheduled enforcement run.
// A nil Mailer on the Dispatcher means no provider is configured and every
// attempt degrades to the logged channel.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}
