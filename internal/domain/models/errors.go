package models

import (
	"errors"
	"fmt"
)

// ErrMalformedInput is matched by every *InputError.
var ErrMalformedInput = errors.New("malformed input")

// InputError describes why an input table was rejected.
type InputError struct {
	Field  string
	Row    int
	Reason string
}

func (e *InputError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("malformed input: %s (row %d): %s", e.Field, e.Row, e.Reason)
	}
	return fmt.Sprintf("malformed input: %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrMalformedInput.
func (e *InputError) Unwrap() error { return ErrMalformedInput }

// NewColumnError reports a problem with a whole column.
func NewColumnError(field, reason string) *InputError {
	return &InputError{Field: field, Row: -1, Reason: reason}
}
