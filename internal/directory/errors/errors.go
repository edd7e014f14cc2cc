package errors

import "errors"

var (
	ErrPanelistNotFound = errors.New("panelist not found")

	ErrApplicationNotFound = errors.New("application not found")

	ErrInvalidID = errors.New("invalid directory ID format")
)
