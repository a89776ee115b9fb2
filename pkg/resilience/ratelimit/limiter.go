package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultWindow is the rolling window used when none is configured.
	DefaultWindow = time.Minute

	// DefaultPollInterval bounds each sleep slice of a blocking acquire.
	DefaultPollInterval = 100 * time.Millisecond
)

// Observer receives acquisition outcomes. It is implemented by the metrics
// collector; a nil Observer is ignored.
type Observer interface {
	ObserveAcquire(granted bool, waited time.Duration)
}

// Limiter is a sliding-window rate limiter admitting at most capacity calls
// in any trailing window.
type Limiter struct {
	capacity     int
	window       time.Duration
	pollInterval time.Duration

	// stamps holds admission times in ascending order
	stamps []time.Time

	now      func() time.Time
	observer Observer

	mu sync.Mutex
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces the wall clock used for window arithmetic.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithPollInterval sets the maximum sleep slice of a blocking acquire.
func WithPollInterval(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.pollInterval = d
		}
	}
}

// WithObserver attaches an acquisition observer.
func WithObserver(o Observer) Option {
	return func(l *Limiter) {
		l.observer = o
	}
}

// New creates a limiter admitting capacity calls per window.
//
// A non-positive capacity is treated as 1 and a non-positive window as
// DefaultWindow.
//
// Example:
//
//	limiter := ratelimit.New(cfg.Resilience.RateLimitRPM, time.Minute)
func New(capacity int, window time.Duration, opts ...Option) *Limiter {
	if capacity <= 0 {
		capacity = 1
	}
	if window <= 0 {
		window = DefaultWindow
	}

	l := &Limiter{
		capacity:     capacity,
		window:       window,
		pollInterval: DefaultPollInterval,
		stamps:       make([]time.Time, 0, capacity),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire requests one admission.
//
// A nil return means the call was admitted and recorded. When the window is
// full and block is false, Acquire fails immediately with *ExceededError.
// When block is true it waits for capacity; a positive timeout bounds the
// wait and produces *ExceededError with TimedOut set, and ctx cancellation
// returns ctx.Err(). A zero timeout waits until ctx is done.
func (l *Limiter) Acquire(ctx context.Context, block bool, timeout time.Duration) error {
	start := time.Now()

	for {
		granted, retryAfter := l.admit()
		if granted {
			l.observe(true, time.Since(start))
			return nil
		}

		if !block {
			l.observe(false, 0)
			return &ExceededError{
				Limit:      l.Capacity(),
				Window:     l.window,
				RetryAfter: retryAfter,
			}
		}

		sleep := retryAfter
		if timeout > 0 {
			elapsed := time.Since(start)
			if elapsed >= timeout {
				l.observe(false, elapsed)
				return &ExceededError{
					Limit:      l.Capacity(),
					Window:     l.window,
					RetryAfter: retryAfter,
					TimedOut:   true,
					Waited:     elapsed,
				}
			}
			if remaining := timeout - elapsed; remaining < sleep {
				sleep = remaining
			}
		}
		if sleep > l.pollInterval {
			sleep = l.pollInterval
		}
		if sleep <= 0 {
			sleep = time.Millisecond
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			l.observe(false, time.Since(start))
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// TryAcquire is the non-blocking form of Acquire.
func (l *Limiter) TryAcquire() error {
	return l.Acquire(context.Background(), false, 0)
}

// admit runs one prune-check-admit cycle. When the window is full it
// returns the time until the oldest admission expires.
func (l *Limiter) admit() (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.pruneLocked(now)

	if len(l.stamps) < l.capacity {
		l.stamps = append(l.stamps, now)
		return true, 0
	}

	// The window can hold more than capacity entries after SetCapacity
	// shrinks it; the entry that must expire is the one that brings the
	// count back under the limit.
	idx := len(l.stamps) - l.capacity
	return false, l.stamps[idx].Add(l.window).Sub(now)
}

// pruneLocked drops admissions older than the window.
// Caller must hold the lock.
func (l *Limiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-l.window)

	i := 0
	for i < len(l.stamps) && l.stamps[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		l.stamps = l.stamps[i:]
	}
}

// Remaining returns how many calls can be admitted right now.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(l.now())
	if remaining := l.capacity - len(l.stamps); remaining > 0 {
		return remaining
	}
	return 0
}

// Capacity returns the configured calls per window.
func (l *Limiter) Capacity() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.capacity
}

// Window returns the window duration.
func (l *Limiter) Window() time.Duration {
	return l.window
}

// SetCapacity changes the capacity in place, keeping admitted history.
// Non-positive values are ignored.
func (l *Limiter) SetCapacity(capacity int) {
	if capacity <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.capacity = capacity
}

// Reset clears all admission history.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stamps = l.stamps[:0]
}

func (l *Limiter) observe(granted bool, waited time.Duration) {
	if l.observer != nil {
		l.observer.ObserveAcquire(granted, waited)
	}
}
