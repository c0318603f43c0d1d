package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrUniqueViolation indicates a write hit a uniqueness constraint
	// (duplicate email or google id).
	ErrUniqueViolation = errors.New("repository: unique constraint violation")
)
