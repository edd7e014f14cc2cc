package model

import (
	"bytes"
	"encoding/json"
)

// FieldState distinguishes "no change requested" from "clear existing value".
type FieldState uint8

const (
	FieldUnset FieldState = iota
	FieldClear
	FieldSet
)

// Field is a tri-state update field. A key missing from the JSON body leaves it Unset,
// an explicit null marks it Clear, and any other value marks it Set.
type Field[T any] struct {
	state FieldState
	value T
}

func Set[T any](v T) Field[T] {
	return Field[T]{state: FieldSet, value: v}
}

func Clear[T any]() Field[T] {
	return Field[T]{state: FieldClear}
}

func (f Field[T]) State() FieldState { return f.state }
func (f Field[T]) IsSet() bool       { return f.state == FieldSet }
func (f Field[T]) IsClear() bool     { return f.state == FieldClear }
func (f Field[T]) IsUnset() bool     { return f.state == FieldUnset }

// Value returns the carried value; it is the zero value unless IsSet.
func (f Field[T]) Value() T { return f.value }

// Apply writes the field into dst: Set assigns, Clear resets to the zero value, Unset is a no-op.
func (f Field[T]) Apply(dst *T) {
	switch f.state {
	case FieldSet:
		*dst = f.value
	case FieldClear:
		var zero T
		*dst = zero
	}
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		f.state = FieldClear
		f.value = zero
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	f.state = FieldSet
	f.value = v
	return nil
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if f.state != FieldSet {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}
