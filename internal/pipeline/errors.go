package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks a malformed invocation. It is the only failure
	// surfaced to callers as such.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInternal hides every other fault behind a generic failure.
	ErrInternal = errors.New("internal error")
)

// InputError reports which request field was missing or malformed.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}
