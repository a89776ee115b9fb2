package breaker

import (
	"errors"
	"fmt"
	"time"
)

// ErrOpen is matched by every *OpenError via errors.Is.
var ErrOpen = errors.New("circuit breaker is open")

// OpenError is returned when a call is rejected because the breaker is open,
// or because the half-open probe budget is already taken.
type OpenError struct {
	// Name identifies the breaker.
	Name string

	// State is the state observed when the call was rejected.
	State State

	// RetryAfter is the time left until the breaker will admit a probe.
	// It is zero when the rejection came from a saturated half-open state.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *OpenError) Error() string {
	if e.State == StateHalfOpen {
		return fmt.Sprintf("circuit breaker %q is half-open: probe limit reached", e.Name)
	}
	return fmt.Sprintf("circuit breaker %q is open (retry after %s)", e.Name, e.RetryAfter.Round(time.Millisecond))
}

// Is reports whether target is ErrOpen.
func (e *OpenError) Is(target error) bool {
	return target == ErrOpen
}
