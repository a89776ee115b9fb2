// Package resilience composes the rate limiter, circuit breaker and retry
// primitives into middleware around a single external call.
//
// # Composition Order
//
// Protect acquires one rate-limit token, then retries the breaker-guarded
// operation:
//
//	rate limit -> retry -> circuit breaker -> operation
//
// Every attempt is therefore subject to the breaker's current state, and a
// burst of retries never consumes more than one rate-limit slot.
//
//	guard := resilience.Guard{
//	    Limiter: ratelimit.New(60, time.Minute),
//	    Breaker: breaker.New(breaker.Config{Name: "llm"}),
//	    Retrier: retry.New(retry.Policy{MaxAttempts: 3}),
//	    Block:   true,
//	    AcquireTimeout: 30 * time.Second,
//	}
//	resp, err := resilience.Protect(ctx, guard, invoke)
//
// Chain offers the same building blocks as ordinary middleware for callers
// that need a different order.
//
// # Error Classification
//
// Classify maps an error from any of the primitives onto an ErrorKind, and
// UserMessage turns that kind into the text shown to an end user.
package resilience
