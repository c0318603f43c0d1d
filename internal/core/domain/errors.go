package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind is the closed set of failure categories the auth engine surfaces.
// Every error crossing the usecase boundary carries exactly one kind so
// callers can dispatch exhaustively without type probing.
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"
	KindConflict         ErrorKind = "conflict"
	KindAuthentication   ErrorKind = "authentication"
	KindAuthorization    ErrorKind = "authorization"
	KindAccountLocked    ErrorKind = "account_locked"
	KindInvalidToken     ErrorKind = "invalid_token"
	KindTokenExpired     ErrorKind = "token_expired"
	KindRateLimit        ErrorKind = "rate_limit"
	KindDatabase         ErrorKind = "database"
	KindUniqueConstraint ErrorKind = "unique_constraint"
)

// Error is the tagged error variant used across the auth engine. Infrastructure
// failures are wrapped (and logged with full detail at the point of use); the
// Message field is always safe to show a caller.
type Error struct {
	Kind        ErrorKind
	Message     string
	LockedUntil *time.Time
	RetryAfter  time.Duration
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the error kind, or empty string for foreign errors.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// AsError returns the typed error when err carries one.
func AsError(err error) (*Error, bool) {
	var de *Error
	ok := errors.As(err, &de)
	return de, ok
}

func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func NewConflictError(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func NewAuthenticationError(message string) *Error {
	return &Error{Kind: KindAuthentication, Message: message}
}

func NewAuthorizationError(message string) *Error {
	return &Error{Kind: KindAuthorization, Message: message}
}

// NewAccountLockedError formats the caller-facing message from the lockout
// deadline, rounded up to whole minutes.
func NewAccountLockedError(lockedUntil time.Time, now time.Time) *Error {
	remaining := lockedUntil.Sub(now)
	minutes := int((remaining + time.Minute - 1) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	until := lockedUntil
	return &Error{
		Kind:        KindAccountLocked,
		Message:     fmt.Sprintf("account locked, try again in %d minute(s)", minutes),
		LockedUntil: &until,
	}
}

func NewInvalidTokenError(message string) *Error {
	return &Error{Kind: KindInvalidToken, Message: message}
}

func NewTokenExpiredError(message string) *Error {
	return &Error{Kind: KindTokenExpired, Message: message}
}

func NewRateLimitError(message string, retryAfter time.Duration) *Error {
	return &Error{Kind: KindRateLimit, Message: message, RetryAfter: retryAfter}
}

// NewDatabaseError wraps a store failure with a sanitized message; raw driver
// text stays server-side in the wrapped cause.
func NewDatabaseError(err error) *Error {
	return &Error{Kind: KindDatabase, Message: "storage operation failed", Err: err}
}

func NewUniqueConstraintError(message string, err error) *Error {
	return &Error{Kind: KindUniqueConstraint, Message: message, Err: err}
}
