package schema

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrMissingFeature = errors.New("missing feature")
	ErrInvalidValue   = errors.New("invalid value")
	// ErrSchemaMismatch signals a programming defect, never bad user input.
	ErrSchemaMismatch = errors.New("schema mismatch")
)

// FieldError ties a validation failure to the observation field that caused it.
type FieldError struct {
	Field string
	Value any
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }
