package models

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced imprint does not exist or has
// already been archived.
var ErrNotFound = errors.New("not found")

// ErrDependencyUnavailable marks a failure of an external collaborator
// (semantic index, persistence). State-mutating operations abort on it;
// recall degrades gracefully instead.
var ErrDependencyUnavailable = errors.New("dependency unavailable")

// ValidationError reports malformed or out-of-range input. It is returned
// before any mutation; the stored state is left unchanged.
type ValidationError struct {
	Field      string
	Constraint string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Constraint)
}

// IsValidation returns true if err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
