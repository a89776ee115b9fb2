package health

import (
	"context"
	"fmt"
	"os"

	"disputedesk-hq/guardrail/pkg/resilience/breaker"
)

// Pinger is implemented by backends that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck reports p's Ping result.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		return p.Ping(ctx)
	}
}

// BreakerCheck fails while b is open. Half-open counts as healthy because
// probe calls must be allowed through for the breaker to close.
func BreakerCheck(b *breaker.Breaker) CheckFunc {
	return func(context.Context) error {
		if state := b.State(); state == breaker.StateOpen {
			return fmt.Errorf("circuit %q is %s", b.Name(), state)
		}
		return nil
	}
}

// DirWritableCheck fails when a file cannot be created in dir.
func DirWritableCheck(dir string) CheckFunc {
	return func(context.Context) error {
		f, err := os.CreateTemp(dir, ".health-*")
		if err != nil {
			return fmt.Errorf("directory %q is not writable: %w", dir, err)
		}
		name := f.Name()
		f.Close()
		return os.Remove(name)
	}
}
