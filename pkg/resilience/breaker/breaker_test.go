package breaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"disputedesk-hq/guardrail/internal/testutil"
)

var errBoom = errors.New("boom")

func fail(context.Context) error    { return errBoom }
func succeed(context.Context) error { return nil }

type transitionLog struct {
	mu       sync.Mutex
	changes  []string
	rejected int
}

func (l *transitionLog) ObserveStateChange(_ string, from, to State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.changes = append(l.changes, from.String()+"->"+to.String())
}

func (l *transitionLog) ObserveRejected(string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rejected++
}

func newTestBreaker(clock *testutil.FakeClock, threshold, halfOpen int, opts ...Option) *Breaker {
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return New(Config{
		Name:             "test",
		FailureThreshold: threshold,
		RecoveryTimeout:  time.Minute,
		HalfOpenRequests: halfOpen,
	}, opts...)
}

// ============================================================================
// Closed State Tests
// ============================================================================

func TestBreaker_OpensAtThreshold(t *testing.T) {
	clock := testutil.NewFakeClock(time.Time{})
	b := newTestBreaker(clock, 3, 1)

	for i := 0; i < 2; i++ {
		if err := b.Call(context.Background(), fail); !errors.Is(err, errBoom) {
			t.Fatalf("expected operation error to pass through, got %v", err)
		}
		if b.State() != StateClosed {
			t.Fatalf("breaker opened early after %d failures", i+1)
		}
	}

	_ = b.Call(context.Background(), fail)
	if b.State() != StateOpen {
		t.Fatalf("expected open after 3 failures, got %s", b.State())
	}
}

func TestBreaker_SuccessResetsCounter(t *testing.T) {
	clock := testutil.NewFakeClock(time.Time{})
	b := newTestBreaker(clock, 3, 1)

	_ = b.Call(context.Background(), fail)
	_ = b.Call(context.Background(), fail)
	_ = b.Call(context.Background(), succeed)
	if b.Failures() != 0 {
		t.Fatalf("expected failures reset to 0, got %d", b.Failures())
	}

	_ = b.Call(context.Background(), fail)
	_ = b.Call(context.Background(), fail)
	if b.State() != StateClosed {
		t.Error("failures were not consecutive, breaker should stay closed")
	}
}

func TestBreaker_IsFailureFilter(t *testing.T) {
	errValidation := errors.New("validation")
	clock := testutil.NewFakeClock(time.Time{})
	b := New(Config{
		FailureThreshold: 1,
		IsFailure:        func(err error) bool { return !errors.Is(err, errValidation) },
	}, WithClock(clock.Now))

	err := b.Call(context.Background(), func(context.Context) error { return errValidation })
	if !errors.Is(err, errValidation) {
		t.Fatalf("expected validation error returned, got %v", err)
	}
	if b.State() != StateClosed {
		t.Error("excluded errors must not open the breaker")
	}
}

// ============================================================================
// Open and Half-Open Tests
// ============================================================================

func TestBreaker_OpenRejectsWithoutInvoking(t *testing.T) {
	clock := testutil.NewFakeClock(time.Time{})
	b := newTestBreaker(clock, 1, 1)
	_ = b.Call(context.Background(), fail)

	clock.Advance(30 * time.Second)

	invoked := false
	err := b.Call(context.Background(), func(context.Context) error {
		invoked = true
		return nil
	})
	if invoked {
		t.Error("operation must not run while open")
	}
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}

	var openErr *OpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("expected *OpenError, got %T", err)
	}
	if openErr.RetryAfter != 30*time.Second {
		t.Errorf("expected 30s retry after, got %v", openErr.RetryAfter)
	}
}

func TestBreaker_RecoveryMovesToHalfOpen(t *testing.T) {
	clock := testutil.NewFakeClock(time.Time{})
	b := newTestBreaker(clock, 1, 1)
	_ = b.Call(context.Background(), fail)

	clock.Advance(time.Minute)
	if b.State() != StateHalfOpen {
		t.Fatalf("expected half_open after recovery timeout, got %s", b.State())
	}

	invoked := false
	err := b.Call(context.Background(), func(context.Context) error {
		invoked = true
		return nil
	})
	if err != nil || !invoked {
		t.Fatalf("expected probe to run, invoked=%v err=%v", invoked, err)
	}
	if b.State() != StateClosed {
		t.Errorf("expected closed after successful probe, got %s", b.State())
	}
	if b.Failures() != 0 {
		t.Errorf("expected failures reset, got %d", b.Failures())
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := testutil.NewFakeClock(time.Time{})
	b := newTestBreaker(clock, 1, 1)
	_ = b.Call(context.Background(), fail)

	clock.Advance(time.Minute)
	_ = b.Call(context.Background(), fail)
	if b.State() != StateOpen {
		t.Fatalf("expected open after failed probe, got %s", b.State())
	}

	// Recovery is measured from the probe failure, not the original one.
	clock.Advance(59 * time.Second)
	if b.State() != StateOpen {
		t.Error("expected breaker to stay open until a full timeout after the probe")
	}
	clock.Advance(time.Second)
	if b.State() != StateHalfOpen {
		t.Error("expected half_open one timeout after the failed probe")
	}
}

func TestBreaker_HalfOpenRequiresConfiguredSuccesses(t *testing.T) {
	clock := testutil.NewFakeClock(time.Time{})
	b := newTestBreaker(clock, 1, 2)
	_ = b.Call(context.Background(), fail)
	clock.Advance(time.Minute)

	_ = b.Call(context.Background(), succeed)
	if b.State() != StateHalfOpen {
		t.Fatalf("one success of two should stay half_open, got %s", b.State())
	}
	_ = b.Call(context.Background(), succeed)
	if b.State() != StateClosed {
		t.Fatalf("expected closed after two successes, got %s", b.State())
	}
}

func TestBreaker_HalfOpenLimitsProbes(t *testing.T) {
	clock := testutil.NewFakeClock(time.Time{})
	b := newTestBreaker(clock, 1, 1)
	_ = b.Call(context.Background(), fail)
	clock.Advance(time.Minute)

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- b.Call(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	err := b.Call(context.Background(), succeed)
	var openErr *OpenError
	if !errors.As(err, &openErr) || openErr.State != StateHalfOpen {
		t.Fatalf("expected half-open rejection while probe in flight, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if b.State() != StateClosed {
		t.Errorf("expected closed after probe, got %s", b.State())
	}
}

// ============================================================================
// Execute, Reset and Observer Tests
// ============================================================================

func TestExecute_ReturnsValue(t *testing.T) {
	b := New(Config{Name: "exec"})
	got, err := Execute(context.Background(), b, func(context.Context) (int, error) {
		return 42, nil
	})
	if err != nil || got != 42 {
		t.Fatalf("expected 42, nil; got %d, %v", got, err)
	}
}

func TestBreaker_ResetAndObserver(t *testing.T) {
	clock := testutil.NewFakeClock(time.Time{})
	obs := &transitionLog{}
	b := newTestBreaker(clock, 1, 1, WithObserver(obs))

	_ = b.Call(context.Background(), fail)
	_ = b.Call(context.Background(), succeed)
	b.Reset()

	if b.State() != StateClosed || b.Failures() != 0 {
		t.Fatalf("expected closed with no failures after reset")
	}

	want := []string{"closed->open", "open->closed"}
	if len(obs.changes) != len(want) {
		t.Fatalf("expected transitions %v, got %v", want, obs.changes)
	}
	for i := range want {
		if obs.changes[i] != want[i] {
			t.Errorf("transition %d: expected %s, got %s", i, want[i], obs.changes[i])
		}
	}
	if obs.rejected != 1 {
		t.Errorf("expected 1 rejection, got %d", obs.rejected)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half_open"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
