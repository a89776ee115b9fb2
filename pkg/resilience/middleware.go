package resilience

import (
	"context"
	"time"

	"disputedesk-hq/guardrail/pkg/resilience/breaker"
	"disputedesk-hq/guardrail/pkg/resilience/ratelimit"
	"disputedesk-hq/guardrail/pkg/resilience/retry"
)

// Operation is a single external call.
type Operation[T any] func(ctx context.Context) (T, error)

// Middleware wraps an Operation.
type Middleware[T any] func(Operation[T]) Operation[T]

// Chain applies middleware to op with the first listed outermost.
func Chain[T any](op Operation[T], mws ...Middleware[T]) Operation[T] {
	for i := len(mws) - 1; i >= 0; i-- {
		op = mws[i](op)
	}
	return op
}

// RateLimited acquires one token from l before running the operation.
func RateLimited[T any](l *ratelimit.Limiter, block bool, timeout time.Duration) Middleware[T] {
	return func(next Operation[T]) Operation[T] {
		return func(ctx context.Context) (T, error) {
			if err := l.Acquire(ctx, block, timeout); err != nil {
				var zero T
				return zero, err
			}
			return next(ctx)
		}
	}
}

// Retried re-runs the operation according to r.
func Retried[T any](r *retry.Retrier) Middleware[T] {
	return func(next Operation[T]) Operation[T] {
		return func(ctx context.Context) (T, error) {
			return retry.DoValue(ctx, r, next)
		}
	}
}

// CircuitBroken runs the operation through b.
func CircuitBroken[T any](b *breaker.Breaker) Middleware[T] {
	return func(next Operation[T]) Operation[T] {
		return func(ctx context.Context) (T, error) {
			return breaker.Execute(ctx, b, next)
		}
	}
}

// Guard bundles the three primitives guarding one dependency. Nil fields
// are skipped.
type Guard struct {
	Limiter *ratelimit.Limiter
	Breaker *breaker.Breaker
	Retrier *retry.Retrier

	// Block makes rate-limit acquisition wait for capacity.
	Block bool

	// AcquireTimeout bounds a blocking acquisition; zero waits until the
	// context is done.
	AcquireTimeout time.Duration
}

// GuardMiddleware returns the guard's middleware in protection order.
func GuardMiddleware[T any](g Guard) []Middleware[T] {
	var mws []Middleware[T]
	if g.Limiter != nil {
		mws = append(mws, RateLimited[T](g.Limiter, g.Block, g.AcquireTimeout))
	}
	if g.Retrier != nil {
		mws = append(mws, Retried[T](g.Retrier))
	}
	if g.Breaker != nil {
		mws = append(mws, CircuitBroken[T](g.Breaker))
	}
	return mws
}

// Protect runs op under g: one rate-limit token, then up to MaxAttempts
// breaker-guarded attempts.
func Protect[T any](ctx context.Context, g Guard, op Operation[T]) (T, error) {
	return Chain(op, GuardMiddleware[T](g)...)(ctx)
}
