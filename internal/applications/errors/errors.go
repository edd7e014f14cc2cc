package errors

import "errors"

var (
	ErrApplicationNotFound = errors.New("application not found")

	ErrInterviewListNotFound = errors.New("interview list not found")

	ErrInvalidID = errors.New("invalid application or interview list ID format")
)
