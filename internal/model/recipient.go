// internal/model/recipient.go
package model

import "time"

// Recipient delivery statuses. A (newsletter, user) pair appears at most
// once in the ledger, enforced by a unique constraint.
const (
	RecipientPending   = "pending"
	RecipientSent      = "sent"
	RecipientFailed    = "failed"
	RecipientCancelled = "cancelled"
	RecipientBounced   = "bounced"
)

type NewsletterRecipient struct {
	ID           int        `db:"id" json:"id"`
	NewsletterID int        `db:"newsletter_id" json:"newsletter_id"`
	UserID       int        `db:"user_id" json:"user_id"`
	Status       string     `db:"status" json:"status"`
	SentAt       *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	ErrorMessage string     `db:"error_message" json:"error_message,omitempty"`

	// Joined user fields, populated by list/dispatch queries.
	Username string `db:"username" json:"username,omitempty"`
	Email    string `db:"email" json:"email,omitempty"`
}
