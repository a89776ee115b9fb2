// Package retry re-invokes a failing operation with exponential backoff.
//
// The delay before retry i (0-indexed) is BackoffBase^i seconds, so with the
// default base of 2 the waits are 1s, 2s, 4s, ... There is no jitter. All
// attempts run sequentially on the caller's goroutine and sleeps end early
// when the context is cancelled.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"
)

const (
	// DefaultMaxAttempts is the total number of invocations.
	DefaultMaxAttempts = 3

	// DefaultBackoffBase is the exponential base in seconds.
	DefaultBackoffBase = 2.0
)

// Policy describes how an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of invocations, including the first.
	MaxAttempts int

	// BackoffBase is the base of the exponential delay in seconds.
	BackoffBase float64

	// Retryable decides whether a failure is worth another attempt. Nil
	// retries everything except context cancellation.
	Retryable func(error) bool
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Observer receives attempt outcomes. It is implemented by the metrics
// collector.
type Observer interface {
	ObserveAttempt(attempt int, err error)
	ObserveExhausted(attempts int)
}

// Retrier applies a Policy. It holds no per-call state and may be shared.
type Retrier struct {
	policy   Policy
	sleep    Sleeper
	observer Observer
	logger   *slog.Logger
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithSleeper replaces the sleep function.
func WithSleeper(s Sleeper) Option {
	return func(r *Retrier) {
		if s != nil {
			r.sleep = s
		}
	}
}

// WithObserver attaches an attempt observer.
func WithObserver(o Observer) Option {
	return func(r *Retrier) {
		r.observer = o
	}
}

// WithLogger sets the logger used for retry warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retrier) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Retrier. Non-positive fields take the package defaults.
func New(policy Policy, opts ...Option) *Retrier {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultMaxAttempts
	}
	if policy.BackoffBase <= 0 {
		policy.BackoffBase = DefaultBackoffBase
	}
	if policy.Retryable == nil {
		policy.Retryable = DefaultRetryable
	}

	r := &Retrier{
		policy: policy,
		sleep:  sleepContext,
		logger: slog.Default().With("component", "retry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MaxAttempts returns the configured attempt budget.
func (r *Retrier) MaxAttempts() int {
	return r.policy.MaxAttempts
}

// Backoff returns the delay before retry attempt (0-indexed).
func (r *Retrier) Backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(r.policy.BackoffBase, float64(attempt)) * float64(time.Second))
}

// Do runs fn until it succeeds, returns a non-retryable error, or the
// attempt budget is spent. Exhaustion yields *Error wrapping the last
// failure; a non-retryable error is returned unchanged.
func (r *Retrier) Do(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < r.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := r.Backoff(attempt - 1)
			r.logger.Warn("operation failed, will retry",
				"attempt", attempt,
				"max_attempts", r.policy.MaxAttempts,
				"backoff", delay,
				"error", lastErr,
			)
			if err := r.sleep(ctx, delay); err != nil {
				return err
			}
		}

		err := fn(ctx)
		if r.observer != nil {
			r.observer.ObserveAttempt(attempt, err)
		}
		if err == nil {
			return nil
		}
		if !r.policy.Retryable(err) {
			return err
		}
		lastErr = err
	}

	r.logger.Error("operation failed, retries exhausted",
		"attempts", r.policy.MaxAttempts,
		"error", lastErr,
	)
	if r.observer != nil {
		r.observer.ObserveExhausted(r.policy.MaxAttempts)
	}
	return &Error{Attempts: r.policy.MaxAttempts, Cause: lastErr}
}

// DoValue is the value-returning form of Do.
func DoValue[T any](ctx context.Context, r *Retrier, fn func(context.Context) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = fn(ctx)
		return opErr
	})
	return result, err
}

// DefaultRetryable retries every error except context cancellation and
// deadline expiry.
func DefaultRetryable(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
