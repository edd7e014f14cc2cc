package errors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound             = "NOT_FOUND"
	CodeValidation           = "VALIDATION_ERROR"
	CodeInternal             = "INTERNAL_ERROR"
	CodeInvalidInput         = "INVALID_INPUT"
	CodeDurationMismatch     = "DURATION_MISMATCH"
	CodeInsufficientCapacity = "INSUFFICIENT_CAPACITY"
	CodeSlotFull             = "SLOT_FULL"
	CodeAlreadyAssigned      = "ALREADY_ASSIGNED"
	CodeCapacityExceeded     = "CAPACITY_EXCEEDED"
	CodeConcurrencyConflict  = "CONCURRENCY_CONFLICT"
)

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func NotFoundWithID(resource, id string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func DurationMismatch(err error) *AppError {
	return &AppError{
		Code:       CodeDurationMismatch,
		Message:    "Panel duration does not match the panel time window",
		HTTPStatus: http.StatusUnprocessableEntity,
		Err:        err,
	}
}

func InsufficientCapacity(message string) *AppError {
	return &AppError{
		Code:       CodeInsufficientCapacity,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

func SlotFull(slotID string) *AppError {
	return &AppError{
		Code:       CodeSlotFull,
		Message:    "Slot is already full",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"slot_id": slotID},
	}
}

func AlreadyAssigned(occupant, slotID string) *AppError {
	return &AppError{
		Code:       CodeAlreadyAssigned,
		Message:    fmt.Sprintf("%s is already assigned to this slot", occupant),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"slot_id": slotID},
	}
}

func CapacityExceeded(message string) *AppError {
	return &AppError{
		Code:       CodeCapacityExceeded,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

func ConcurrencyConflict(message string, err error) *AppError {
	return &AppError{
		Code:       CodeConcurrencyConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
		Err:        err,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// HasCode reports whether err is, or wraps, an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}
