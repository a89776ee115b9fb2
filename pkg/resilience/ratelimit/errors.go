package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

// ErrRateLimitExceeded is matched by every *ExceededError via errors.Is.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// ExceededError reports a denied acquisition. It is returned both when a
// non-blocking acquire finds the window full and when a blocking acquire
// times out.
type ExceededError struct {
	// Limit is the configured capacity per window.
	Limit int

	// Window is the configured window duration.
	Window time.Duration

	// RetryAfter is how long until the oldest admitted call leaves the window.
	RetryAfter time.Duration

	// TimedOut is true when a blocking acquire gave up after its timeout.
	TimedOut bool

	// Waited is how long a blocking acquire waited before giving up.
	Waited time.Duration
}

// Error implements the error interface.
func (e *ExceededError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("rate limit of %d per %s: timed out after %s", e.Limit, e.Window, e.Waited.Round(time.Millisecond))
	}
	return fmt.Sprintf("rate limit of %d per %s exceeded (retry after %s)", e.Limit, e.Window, e.RetryAfter.Round(time.Millisecond))
}

// Is reports whether target is ErrRateLimitExceeded.
func (e *ExceededError) Is(target error) bool {
	return target == ErrRateLimitExceeded
}
