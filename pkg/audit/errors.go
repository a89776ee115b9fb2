package audit

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("audit writer closed")

// Error reports a failed audit file operation.
type Error struct {
	Op    string // "open", "redact", "marshal", "write", "read"
	Path  string
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("audit %s failed: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("audit %s failed [path=%s]: %v", e.Op, e.Path, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}
