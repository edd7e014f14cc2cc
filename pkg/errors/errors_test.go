package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CodeValidation, "validation failed", http.StatusUnprocessableEntity)

	if err.Code != CodeValidation {
		t.Errorf("expected code %s, got %s", CodeValidation, err.Code)
	}
	if err.Message != "validation failed" {
		t.Errorf("expected message 'validation failed', got %s", err.Message)
	}
	if err.HTTPStatus != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d", http.StatusUnprocessableEntity, err.HTTPStatus)
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name: "without underlying error",
			appErr: &AppError{
				Code:    CodeNotFound,
				Message: "resource not found",
			},
			expected: "NOT_FOUND: resource not found",
		},
		{
			name: "with underlying error",
			appErr: &AppError{
				Code:    CodeInternal,
				Message: "internal error",
				Err:     errors.New("database connection failed"),
			},
			expected: "INTERNAL_ERROR: internal error (caused by: database connection failed)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.appErr.Error()
			if got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	appErr := Wrap(originalErr, CodeInternal, "wrapped", http.StatusInternalServerError)

	if errors.Unwrap(appErr) != originalErr {
		t.Errorf("Unwrap() should return original error")
	}
}

func TestBookingConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   string
		status int
	}{
		{"slot full", SlotFull("s1"), CodeSlotFull, http.StatusConflict},
		{"already assigned", AlreadyAssigned("Application", "s1"), CodeAlreadyAssigned, http.StatusConflict},
		{"capacity exceeded", CapacityExceeded("too many panelists"), CodeCapacityExceeded, http.StatusConflict},
		{"concurrency conflict", ConcurrencyConflict("lost race", nil), CodeConcurrencyConflict, http.StatusConflict},
		{"insufficient capacity", InsufficientCapacity("no room"), CodeInsufficientCapacity, http.StatusUnprocessableEntity},
		{"duration mismatch", DurationMismatch(errors.New("x")), CodeDurationMismatch, http.StatusUnprocessableEntity},
		{"not found", NotFoundWithID("Slot", "s1"), CodeNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("code = %s, want %s", tt.err.Code, tt.code)
			}
			if tt.err.StatusCode() != tt.status {
				t.Errorf("status = %d, want %d", tt.err.StatusCode(), tt.status)
			}
		})
	}
}

func TestHasCode_Wrapped(t *testing.T) {
	err := fmt.Errorf("transaction failed: %w", SlotFull("s1"))

	if !HasCode(err, CodeSlotFull) {
		t.Error("expected HasCode to see through fmt wrapping")
	}
	if HasCode(err, CodeNotFound) {
		t.Error("unexpected match for NOT_FOUND")
	}
	if HasCode(errors.New("plain"), CodeSlotFull) {
		t.Error("plain errors carry no code")
	}
}

func TestAsAppError(t *testing.T) {
	appErr := NotFound("Slot")
	if AsAppError(appErr) != appErr {
		t.Error("AsAppError should return the same AppError")
	}

	wrapped := fmt.Errorf("outer: %w", appErr)
	if AsAppError(wrapped) != appErr {
		t.Error("AsAppError should unwrap to the inner AppError")
	}

	plain := errors.New("boom")
	got := AsAppError(plain)
	if got.Code != CodeInternal || got.Err != plain {
		t.Errorf("expected internal wrapper, got %+v", got)
	}
}
