package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"disputedesk-hq/guardrail/internal/testutil"
	"disputedesk-hq/guardrail/pkg/resilience/breaker"
	"disputedesk-hq/guardrail/pkg/resilience/ratelimit"
	"disputedesk-hq/guardrail/pkg/resilience/retry"
)

var errUpstream = errors.New("upstream failed")

func noSleep(context.Context, time.Duration) error { return nil }

// ============================================================================
// Chain Tests
// ============================================================================

func TestChain_FirstMiddlewareIsOutermost(t *testing.T) {
	var order []string
	tag := func(name string) Middleware[int] {
		return func(next Operation[int]) Operation[int] {
			return func(ctx context.Context) (int, error) {
				order = append(order, name)
				return next(ctx)
			}
		}
	}

	op := Chain(func(context.Context) (int, error) {
		order = append(order, "op")
		return 1, nil
	}, tag("a"), tag("b"))

	if _, err := op(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := fmt.Sprint(order); got != "[a b op]" {
		t.Errorf("expected [a b op], got %s", got)
	}
}

// ============================================================================
// Protect Tests
// ============================================================================

func TestProtect_ConsumesOneTokenAcrossRetries(t *testing.T) {
	clock := testutil.NewFakeClock(time.Time{})
	g := Guard{
		Limiter: ratelimit.New(2, time.Minute, ratelimit.WithClock(clock.Now)),
		Breaker: breaker.New(breaker.Config{Name: "t", FailureThreshold: 10}, breaker.WithClock(clock.Now)),
		Retrier: retry.New(retry.Policy{MaxAttempts: 3}, retry.WithSleeper(noSleep)),
	}

	calls := 0
	got, err := Protect(context.Background(), g, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errUpstream
		}
		return "done", nil
	})
	if err != nil || got != "done" {
		t.Fatalf("expected done, got %q, %v", got, err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
	if remaining := g.Limiter.Remaining(); remaining != 1 {
		t.Errorf("expected one token consumed, %d remaining", remaining)
	}
}

func TestProtect_BreakerSeesEveryAttempt(t *testing.T) {
	clock := testutil.NewFakeClock(time.Time{})
	g := Guard{
		Breaker: breaker.New(breaker.Config{Name: "t", FailureThreshold: 2}, breaker.WithClock(clock.Now)),
		Retrier: retry.New(retry.Policy{MaxAttempts: 3}, retry.WithSleeper(noSleep)),
	}

	calls := 0
	_, err := Protect(context.Background(), g, func(context.Context) (int, error) {
		calls++
		return 0, errUpstream
	})

	if calls != 2 {
		t.Errorf("expected breaker to stop the third attempt, got %d calls", calls)
	}
	if g.Breaker.State() != breaker.StateOpen {
		t.Errorf("expected breaker open, got %s", g.Breaker.State())
	}
	if !errors.Is(err, retry.ErrExhausted) || !errors.Is(err, breaker.ErrOpen) {
		t.Errorf("expected exhausted retry wrapping ErrOpen, got %v", err)
	}
	if Classify(err) != KindCircuitOpen {
		t.Errorf("expected circuit_open, got %s", Classify(err))
	}
}

func TestProtect_RateLimitedSkipsOperation(t *testing.T) {
	clock := testutil.NewFakeClock(time.Time{})
	g := Guard{Limiter: ratelimit.New(1, time.Minute, ratelimit.WithClock(clock.Now))}
	_ = g.Limiter.TryAcquire()

	invoked := false
	_, err := Protect(context.Background(), g, func(context.Context) (int, error) {
		invoked = true
		return 0, nil
	})
	if invoked {
		t.Error("operation ran without a token")
	}
	if Classify(err) != KindRateLimited {
		t.Errorf("expected rate_limited, got %s", Classify(err))
	}
}

// ============================================================================
// Classification Tests
// ============================================================================

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindNone},
		{"canceled", fmt.Errorf("wrapped: %w", context.Canceled), KindCanceled},
		{"rate limited", &ratelimit.ExceededError{Limit: 1}, KindRateLimited},
		{"open", &breaker.OpenError{Name: "x"}, KindCircuitOpen},
		{"exhausted", &retry.Error{Attempts: 3, Cause: errUpstream}, KindRetriesExhausted},
		{"other", errUpstream, KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	if UserMessage(KindNone) != "" {
		t.Error("expected empty message for no error")
	}
	for _, kind := range []ErrorKind{KindRateLimited, KindCircuitOpen, KindRetriesExhausted, KindCanceled, KindOther} {
		if UserMessage(kind) == "" {
			t.Errorf("expected a message for %s", kind)
		}
	}
}
