package llm_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"disputedesk-hq/guardrail/internal/testutil"
	"disputedesk-hq/guardrail/internal/testutil/fakellm"
	"disputedesk-hq/guardrail/pkg/llm"
	"disputedesk-hq/guardrail/pkg/resilience"
	"disputedesk-hq/guardrail/pkg/resilience/breaker"
	"disputedesk-hq/guardrail/pkg/resilience/ratelimit"
	"disputedesk-hq/guardrail/pkg/resilience/retry"
)

func TestGuarded_RetriesThenSucceeds(t *testing.T) {
	clock := testutil.NewFakeClock(time.Time{})
	inv := fakellm.NewScriptedInvoker(
		fakellm.Fail(errors.New("503")),
		fakellm.Reply("hello"),
	)

	g := llm.Guarded(inv, resilience.Guard{
		Limiter: ratelimit.New(10, time.Minute, ratelimit.WithClock(clock.Now)),
		Breaker: breaker.New(breaker.Config{Name: "llm"}, breaker.WithClock(clock.Now)),
		Retrier: retry.New(retry.Policy{MaxAttempts: 3}, retry.WithSleeper(func(context.Context, time.Duration) error { return nil })),
	})

	resp, err := g.Invoke(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hello" {
		t.Errorf("expected hello, got %q", resp.Content)
	}
	if inv.Calls() != 2 {
		t.Errorf("expected 2 calls, got %d", inv.Calls())
	}
	if got := inv.LastMessages(); len(got) != 1 || got[0].Content != "hi" {
		t.Errorf("unexpected messages sent: %+v", got)
	}
}

func TestGuarded_OpenBreakerSkipsModel(t *testing.T) {
	clock := testutil.NewFakeClock(time.Time{})
	b := breaker.New(breaker.Config{Name: "llm", FailureThreshold: 1}, breaker.WithClock(clock.Now))
	_ = b.Call(context.Background(), func(context.Context) error { return errors.New("down") })

	inv := fakellm.NewScriptedInvoker(fakellm.Reply("unused"))
	g := llm.Guarded(inv, resilience.Guard{
		Breaker: b,
		Retrier: retry.New(retry.Policy{MaxAttempts: 2}, retry.WithSleeper(func(context.Context, time.Duration) error { return nil })),
	})

	_, err := g.Invoke(context.Background(), nil)
	if resilience.Classify(err) != resilience.KindCircuitOpen {
		t.Fatalf("expected circuit_open, got %v", err)
	}
	if inv.Calls() != 0 {
		t.Errorf("model should not be called while the breaker is open, got %d calls", inv.Calls())
	}
}

func TestInvokerFunc(t *testing.T) {
	f := llm.InvokerFunc(func(_ context.Context, msgs []llm.Message) (*llm.Response, error) {
		return &llm.Response{Content: msgs[0].Content}, nil
	})
	resp, err := f.Invoke(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "echo"}})
	if err != nil || resp.Content != "echo" {
		t.Fatalf("unexpected result %+v, %v", resp, err)
	}
}
