package breaker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultFailureThreshold is the consecutive failure count that opens
	// the breaker when none is configured.
	DefaultFailureThreshold = 5

	// DefaultRecoveryTimeout is how long an open breaker waits before
	// admitting a probe.
	DefaultRecoveryTimeout = 60 * time.Second

	// DefaultHalfOpenRequests is the number of successful probes needed to
	// close a half-open breaker.
	DefaultHalfOpenRequests = 1
)

// Config holds breaker thresholds.
type Config struct {
	// Name identifies the breaker in errors, logs and metrics.
	Name string

	// FailureThreshold is the number of consecutive failures that opens the
	// breaker.
	FailureThreshold int

	// RecoveryTimeout is measured from the most recent failure.
	RecoveryTimeout time.Duration

	// HalfOpenRequests bounds the probes admitted in half-open state and is
	// the number of successes required to close.
	HalfOpenRequests int

	// IsFailure decides whether an operation error counts against the
	// breaker. Nil counts every non-nil error.
	IsFailure func(error) bool
}

// Observer receives breaker events. It is implemented by the metrics
// collector.
type Observer interface {
	ObserveStateChange(name string, from, to State)
	ObserveRejected(name string)
}

// Breaker is a three-state circuit breaker. It is safe for concurrent use.
type Breaker struct {
	config Config

	mu                sync.Mutex
	state             State
	failures          int
	lastFailure       time.Time
	halfOpenSuccesses int
	halfOpenInFlight  int

	// generation changes on every transition so results of calls admitted
	// under an earlier state do not touch the current half-open counters
	generation uint64

	now      func() time.Time
	observer Observer
	logger   *slog.Logger
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

// WithObserver attaches an event observer.
func WithObserver(o Observer) Option {
	return func(b *Breaker) {
		b.observer = o
	}
}

// WithLogger sets the logger used for state transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Breaker) {
		if logger != nil {
			b.logger = logger
		}
	}
}

type transition struct {
	from, to State
}

// New creates a closed breaker. Zero thresholds are replaced by the
// package defaults.
func New(cfg Config, opts ...Option) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = DefaultRecoveryTimeout
	}
	if cfg.HalfOpenRequests <= 0 {
		cfg.HalfOpenRequests = DefaultHalfOpenRequests
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}

	b := &Breaker{
		config: cfg,
		state:  StateClosed,
		now:    time.Now,
		logger: slog.Default().With("component", "breaker"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the configured breaker name.
func (b *Breaker) Name() string {
	return b.config.Name
}

// State returns the current state, applying a pending Open to HalfOpen
// transition first.
func (b *Breaker) State() State {
	b.mu.Lock()
	tr := b.advanceLocked(b.now())
	state := b.state
	b.mu.Unlock()

	b.notify(tr)
	return state
}

// Failures returns the consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Call runs fn if the breaker admits it. The operation's own error is
// returned unchanged after it has been recorded. A rejected call returns
// *OpenError and fn is not invoked.
func (b *Breaker) Call(ctx context.Context, fn func(context.Context) error) error {
	gen, err := b.before()
	if err != nil {
		return err
	}

	opErr := fn(ctx)
	b.after(gen, opErr)
	return opErr
}

// Execute is the value-returning form of Call.
func Execute[T any](ctx context.Context, b *Breaker, fn func(context.Context) (T, error)) (T, error) {
	var result T
	err := b.Call(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = fn(ctx)
		return opErr
	})
	return result, err
}

// Reset forces the breaker closed and clears all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	var tr *transition
	if b.state != StateClosed {
		tr = b.setStateLocked(StateClosed)
	}
	b.failures = 0
	b.lastFailure = time.Time{}
	b.mu.Unlock()

	b.notify(tr)
}

// before decides admission and reserves a half-open probe slot.
func (b *Breaker) before() (uint64, error) {
	b.mu.Lock()
	now := b.now()
	tr := b.advanceLocked(now)

	var rejected *OpenError
	switch b.state {
	case StateOpen:
		rejected = &OpenError{
			Name:       b.config.Name,
			State:      StateOpen,
			RetryAfter: b.lastFailure.Add(b.config.RecoveryTimeout).Sub(now),
		}
	case StateHalfOpen:
		if b.halfOpenInFlight+b.halfOpenSuccesses >= b.config.HalfOpenRequests {
			rejected = &OpenError{Name: b.config.Name, State: StateHalfOpen}
		} else {
			b.halfOpenInFlight++
		}
	}
	gen := b.generation
	b.mu.Unlock()

	b.notify(tr)
	if rejected != nil {
		if b.observer != nil {
			b.observer.ObserveRejected(b.config.Name)
		}
		return 0, rejected
	}
	return gen, nil
}

// after records the outcome of an admitted call.
func (b *Breaker) after(gen uint64, opErr error) {
	failed := opErr != nil && b.isFailure(opErr)

	b.mu.Lock()
	now := b.now()
	current := gen == b.generation
	var tr *transition

	switch b.state {
	case StateClosed:
		if failed {
			b.failures++
			b.lastFailure = now
			if b.failures >= b.config.FailureThreshold {
				tr = b.setStateLocked(StateOpen)
			}
		} else {
			b.failures = 0
		}

	case StateHalfOpen:
		if !current {
			break
		}
		b.halfOpenInFlight--
		if failed {
			b.failures++
			b.lastFailure = now
			tr = b.setStateLocked(StateOpen)
		} else {
			b.halfOpenSuccesses++
			if b.halfOpenSuccesses >= b.config.HalfOpenRequests {
				b.failures = 0
				tr = b.setStateLocked(StateClosed)
			}
		}

	case StateOpen:
		// Calls admitted before the breaker opened still push recovery out.
		if failed {
			b.failures++
			b.lastFailure = now
		}
	}
	b.mu.Unlock()

	b.notify(tr)
}

// advanceLocked moves Open to HalfOpen once the recovery timeout has
// elapsed. Caller must hold the lock.
func (b *Breaker) advanceLocked(now time.Time) *transition {
	if b.state == StateOpen && now.Sub(b.lastFailure) >= b.config.RecoveryTimeout {
		return b.setStateLocked(StateHalfOpen)
	}
	return nil
}

// setStateLocked performs a transition. Caller must hold the lock.
func (b *Breaker) setStateLocked(to State) *transition {
	from := b.state
	b.state = to
	b.halfOpenSuccesses = 0
	b.halfOpenInFlight = 0
	b.generation++
	return &transition{from: from, to: to}
}

func (b *Breaker) notify(tr *transition) {
	if tr == nil {
		return
	}
	b.logger.Info("circuit breaker state changed",
		"breaker", b.config.Name,
		"from", tr.from.String(),
		"to", tr.to.String(),
	)
	if b.observer != nil {
		b.observer.ObserveStateChange(b.config.Name, tr.from, tr.to)
	}
}

func (b *Breaker) isFailure(err error) bool {
	if b.config.IsFailure == nil {
		return true
	}
	return b.config.IsFailure(err)
}
