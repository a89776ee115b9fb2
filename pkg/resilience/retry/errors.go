package retry

import (
	"errors"
	"fmt"
)

// ErrExhausted is matched by every *Error via errors.Is.
var ErrExhausted = errors.New("retries exhausted")

// Error is returned when every attempt failed with a retryable error.
type Error struct {
	// Attempts is the number of times the operation ran.
	Attempts int

	// Cause is the error from the final attempt.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("operation failed after %d attempts: %v", e.Attempts, e.Cause)
}

// Unwrap returns the final attempt's error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrExhausted.
func (e *Error) Is(target error) bool {
	return target == ErrExhausted
}
