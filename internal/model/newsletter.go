// internal/model/newsletter.go
package model

import (
	"fmt"
	"time"
)

// Newsletter lifecycle statuses.
const (
	StatusDraft     = "draft"
	StatusSending   = "sending"
	StatusSent      = "sent"
	StatusCancelled = "cancelled"
)

// Audience selects which users a newsletter goes to.
type Audience string

const (
	AudienceAll    Audience = "all"    // every active user
	AudienceActive Audience = "active" // active users joined more than 7 days ago
	AudienceNew    Audience = "new"    // active users joined within the last 7 days
)

// NewUserWindow is how recently a user must have joined to count as "new".
const NewUserWindow = 7 * 24 * time.Hour

// ParseAudience validates an audience value from API input.
func ParseAudience(s string) (Audience, error) {
	switch Audience(s) {
	case AudienceAll, AudienceActive, AudienceNew:
		return Audience(s), nil
	}
	return "", fmt.Errorf("invalid audience %q: must be one of all, active, new", s)
}

type Newsletter struct {
	ID              int        `db:"id" json:"id"`
	Title           string     `db:"title" json:"title"`
	Subject         string     `db:"subject" json:"subject"`
	Content         string     `db:"content" json:"content"`
	Status          string     `db:"status" json:"status"`
	Audience        Audience   `db:"audience" json:"audience"`
	CreatedBy       int        `db:"created_by" json:"created_by"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	ScheduledAt     *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	SentAt          *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	TotalRecipients int        `db:"total_recipients" json:"total_recipients"`
	SentCount       int        `db:"sent_count" json:"sent_count"`
	FailedCount     int        `db:"failed_count" json:"failed_count"`
}

// IsTerminal reports whether the newsletter is eligible for retention cleanup.
func (n *Newsletter) IsTerminal() bool {
	return n.Status == StatusSent || n.Status == StatusCancelled
}

// Stats aggregates delivery outcomes across all newsletters.
type Stats struct {
	TotalNewsletters int     `json:"total_newsletters"`
	DraftCount       int     `json:"draft_count"`
	SendingCount     int     `json:"sending_count"`
	SentCount        int     `json:"sent_count"`
	CancelledCount   int     `json:"cancelled_count"`
	TotalRecipients  int     `json:"total_recipients"`
	TotalSent        int     `json:"total_sent"`
	TotalFailed      int     `json:"total_failed"`
	SuccessRate      float64 `json:"success_rate"`
}
