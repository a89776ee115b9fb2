package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested row does not exist or belongs to
// another user.
var ErrNotFound = errors.New("not found")

var errMissingID = errors.New("missing id")

// Error reports a backend failure.
type Error struct {
	Backend   string // "memory", "sqlite" or "sqlite3"
	Operation string // e.g. "list_transactions"
	Cause     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("store error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(backend, operation string, cause error) *Error {
	return &Error{Backend: backend, Operation: operation, Cause: cause}
}
