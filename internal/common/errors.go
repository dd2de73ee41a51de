// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Ledger error kinds. Operations wrap one of these with context and callers
// match them with errors.Is.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrAlreadyExists     = errors.New("already exists")
	ErrNotFound          = errors.New("not found")
	ErrInvalidCredential = errors.New("invalid credentials")
	ErrInvalidState      = errors.New("invalid state")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Storage and configuration errors.
var (
	ErrDatabaseCorrupted = errors.New("database corrupted")
	ErrMissingConfig     = errors.New("missing configuration")
	ErrInvalidConfig     = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// Kind returns the ledger error kind wrapped by err, or nil when err carries none.
func Kind(err error) error {
	for _, kind := range []error{
		ErrInvalidArgument,
		ErrAlreadyExists,
		ErrNotFound,
		ErrInvalidCredential,
		ErrInvalidState,
		ErrInsufficientFunds,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
