// internal/model/template.go
package model

import "time"

// NewsletterTemplate is a reusable subject/content pair an admin can stamp
// new draft newsletters from.
type NewsletterTemplate struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Subject   string    `db:"subject" json:"subject"`
	Content   string    `db:"content" json:"content"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
