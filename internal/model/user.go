// internal/model/user.go
package model

import "time"

// User is the slice of the account model the newsletter subsystem needs.
type User struct {
	ID         int       `db:"id" json:"id"`
	Username   string    `db:"username" json:"username"`
	Email      string    `db:"email" json:"email"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	DateJoined time.Time `db:"date_joined" json:"date_joined"`
}
