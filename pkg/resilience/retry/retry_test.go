package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTransient = errors.New("transient")

type recordedSleeps struct {
	delays []time.Duration
}

func (r *recordedSleeps) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

// ============================================================================
// Backoff Tests
// ============================================================================

func TestRetrier_SucceedsAfterFailures(t *testing.T) {
	tests := []struct {
		name     string
		failures int
		want     []time.Duration
	}{
		{"first try", 0, nil},
		{"one failure", 1, []time.Duration{time.Second}},
		{"two failures", 2, []time.Duration{time.Second, 2 * time.Second}},
		{"three failures", 3, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sleeps := &recordedSleeps{}
			r := New(Policy{MaxAttempts: 5, BackoffBase: 2}, WithSleeper(sleeps.sleep))

			calls := 0
			got, err := DoValue(context.Background(), r, func(context.Context) (string, error) {
				calls++
				if calls <= tt.failures {
					return "", errTransient
				}
				return "ok", nil
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != "ok" {
				t.Errorf("expected ok, got %q", got)
			}
			if calls != tt.failures+1 {
				t.Errorf("expected %d calls, got %d", tt.failures+1, calls)
			}
			if len(sleeps.delays) != len(tt.want) {
				t.Fatalf("expected %d sleeps, got %v", len(tt.want), sleeps.delays)
			}
			for i := range tt.want {
				if sleeps.delays[i] != tt.want[i] {
					t.Errorf("sleep %d: expected %v, got %v", i, tt.want[i], sleeps.delays[i])
				}
			}
		})
	}
}

func TestRetrier_Backoff(t *testing.T) {
	r := New(Policy{BackoffBase: 3})
	want := []time.Duration{time.Second, 3 * time.Second, 9 * time.Second}
	for i, w := range want {
		if got := r.Backoff(i); got != w {
			t.Errorf("Backoff(%d) = %v, want %v", i, got, w)
		}
	}
}

// ============================================================================
// Exhaustion Tests
// ============================================================================

func TestRetrier_Exhausted(t *testing.T) {
	sleeps := &recordedSleeps{}
	r := New(Policy{MaxAttempts: 3, BackoffBase: 2}, WithSleeper(sleeps.sleep))

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return errTransient
	})

	if calls != 3 {
		t.Errorf("expected exactly 3 invocations, got %d", calls)
	}
	if len(sleeps.delays) != 2 {
		t.Errorf("expected 2 sleeps, got %d", len(sleeps.delays))
	}

	var retryErr *Error
	if !errors.As(err, &retryErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if retryErr.Attempts != 3 {
		t.Errorf("expected Attempts 3, got %d", retryErr.Attempts)
	}
	if !errors.Is(err, ErrExhausted) {
		t.Error("expected errors.Is(err, ErrExhausted)")
	}
	if !errors.Is(err, errTransient) {
		t.Error("expected last cause to be reachable through Unwrap")
	}
}

func TestRetrier_NonRetryableReturnedAsIs(t *testing.T) {
	errPermanent := errors.New("permanent")
	r := New(Policy{
		MaxAttempts: 5,
		Retryable:   func(err error) bool { return !errors.Is(err, errPermanent) },
	}, WithSleeper(func(context.Context, time.Duration) error { return nil }))

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return errPermanent
	})
	if err != errPermanent {
		t.Fatalf("expected permanent error unchanged, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single call, got %d", calls)
	}
}

func TestRetrier_ContextCancelledDuringSleep(t *testing.T) {
	r := New(Policy{MaxAttempts: 3, BackoffBase: 2})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := r.Do(ctx, func(context.Context) error { return errTransient })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("sleep did not honor context cancellation")
	}
}

func TestDefaultRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errTransient, true},
		{context.Canceled, false},
		{context.DeadlineExceeded, false},
	}
	for _, tt := range tests {
		if got := DefaultRetryable(tt.err); got != tt.want {
			t.Errorf("DefaultRetryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
