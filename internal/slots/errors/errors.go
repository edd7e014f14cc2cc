package errors

import "errors"

var (
	ErrNotFound = errors.New("slot not found")

	ErrInvalidID = errors.New("invalid slot ID format")

	// ErrVersionConflict means the slot changed between read and write.
	ErrVersionConflict = errors.New("slot was modified concurrently")
)
