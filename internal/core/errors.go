package core

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyName        = errors.New("empty name")
	ErrNameTooLong      = errors.New("name too long (max 200 characters)")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidDate      = errors.New("invalid date, expected dd/mm/yyyy")
	ErrEmptyTitle       = errors.New("empty title")
	ErrEmptyText        = errors.New("empty comment text")
	ErrInvalidScore     = errors.New("score must be between 1 and 5")
	ErrEmptyID          = errors.New("empty id")
	ErrEmptyUserID      = errors.New("empty user id")
	ErrNotAuthenticated = errors.New("user not authenticated")
	ErrNotFound         = errors.New("not found")
)

// ValidationError reports bad user input. It is always raised before any
// store call and wraps one of the sentinel errors above.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// StoreError is a transport or permission failure reported by the backend.
type StoreError struct {
	Op         string
	Collection string
	Err        error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NotFoundError reports that the target document does not exist.
// It matches ErrNotFound with errors.Is.
type NotFoundError struct {
	Collection string
	ID         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s/%s: %v", e.Collection, e.ID, ErrNotFound)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
