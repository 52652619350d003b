// Package apperr defines the error kinds shared by the ledger, the catalog,
// the dispatcher and the HTTP layer.
//
// Each kind is a sentinel. Code that needs a user-facing message wraps a kind
// in an *Error:
//
//	return apperr.New(apperr.ErrOutOfStock, "Book is out of stock")
//
// Callers test with errors.Is against the kind and read the message with
// Message(err).
package apperr

import (
	"errors"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidReference   = errors.New("invalid reference")
	ErrOutOfStock         = errors.New("out of stock")
	ErrAlreadyReturned    = errors.New("already returned")
	ErrDuplicateLending   = errors.New("duplicate open lending")
	ErrConflict           = errors.New("conflict")
	ErrNotFound           = errors.New("not found")
	ErrNoResults          = errors.New("no results")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrLocked             = errors.New("locked")
	ErrRateLimited        = errors.New("rate limited")
	ErrMissingContactInfo = errors.New("missing contact info")
	ErrTransport          = errors.New("transport failure")
)

// Error pairs an error kind with a message that is safe to show to clients.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

// New returns an *Error of the given kind.
func New(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap returns an *Error of the given kind that keeps cause for logging.
func Wrap(kind error, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// Message returns the client-facing message carried by err, or fallback when
// err carries none.
func Message(err error, fallback string) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}
