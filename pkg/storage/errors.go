package storage

import "errors"

// Sentinel errors for storage operations.
var (
	// ErrNotFound is returned when a user or task does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a unique constraint is violated,
	// e.g. creating a user with an email that is already taken.
	ErrConflict = errors.New("record already exists")
)
