// internal/mail/mailer.go
package mail

import "context"

// Message is one outbound email.
type Message struct {
	To      string
	ToName  string
	From    string
	Subject string
	HTML    string
}

// Mailer delivers a single message. The dispatch engine calls it once per
// pending recipient and records the outcome before moving on, so a failure
// here only fails that recipient.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
