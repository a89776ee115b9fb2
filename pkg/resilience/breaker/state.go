package breaker

// State is the position of a circuit breaker.
type State int

const (
	// StateClosed passes calls through and counts consecutive failures.
	StateClosed State = iota

	// StateOpen rejects calls until the recovery timeout has elapsed.
	StateOpen

	// StateHalfOpen admits a limited number of probe calls.
	StateHalfOpen
)

// String returns the lowercase state name used in logs and metrics.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}
