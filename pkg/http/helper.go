package http

import (
	"encoding/json"
	"net/http"
	apperrors "planner/pkg/errors"
	"strconv"
	"time"
)

// DecodeJSON decodes the request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.InvalidInput("Invalid request body: " + err.Error())
	}
	return nil
}

// QueryBool parses a boolean query parameter, returning fallback when it is absent.
func QueryBool(r *http.Request, key string, fallback bool) (bool, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, apperrors.InvalidInput("invalid " + key + " parameter: " + s)
	}
	return v, nil
}

// ParseDate accepts either RFC3339 or a bare YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, apperrors.InvalidInput("invalid date, must be RFC3339 or YYYY-MM-DD: " + s)
	}
	return t, nil
}
