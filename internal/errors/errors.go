// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// ErrNotFound is a sentinel error for missing rows.
type ErrNotFound struct {
	Resource string
	ID       int
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s with ID %d not found", e.Resource, e.ID)
}

func NewNewsletterNotFound(id int) error {
	return &ErrNotFound{Resource: "newsletter", ID: id}
}

func NewTemplateNotFound(id int) error {
	return &ErrNotFound{Resource: "template", ID: id}
}

func NewUserNotFound(id int) error {
	return &ErrNotFound{Resource: "user", ID: id}
}

// ErrInvalidState means an operation was attempted on a newsletter whose
// status forbids it. No mutation happens when this is returned.
type ErrInvalidState struct {
	Action string
	Status string
}

func (e *ErrInvalidState) Error() string {
	return fmt.Sprintf("cannot %s newsletter in status %q", e.Action, e.Status)
}

func NewInvalidState(action, status string) error {
	return &ErrInvalidState{Action: action, Status: status}
}

// ErrValidation means the request payload was rejected before any row was
// written.
type ErrValidation struct {
	Msg string
}

func (e *ErrValidation) Error() string { return e.Msg }

func NewValidation(format string, args ...any) error {
	return &ErrValidation{Msg: fmt.Sprintf(format, args...)}
}

// Kind classification helpers for HTTP mapping.

func IsNotFound(err error) bool {
	var e *ErrNotFound
	return errors.As(err, &e)
}

func IsInvalidState(err error) bool {
	var e *ErrInvalidState
	return errors.As(err, &e)
}

func IsValidation(err error) bool {
	var e *ErrValidation
	return errors.As(err, &e)
}
