package errors

import "errors"

var (
	ErrNotFound = errors.New("panel not found")

	ErrInvalidID = errors.New("invalid panel ID format")

	ErrVersionConflict = errors.New("panel was modified concurrently")

	// ErrLockHeld means another writer holds the panel lock.
	ErrLockHeld = errors.New("panel is locked by another operation")
)
