// Package breaker isolates a failing dependency behind a three-state circuit
// breaker.
//
// # States
//
//	Closed   -> calls pass through; consecutive failures are counted
//	Open     -> calls are rejected with ErrOpen without running the operation
//	HalfOpen -> a bounded number of probe calls test whether the dependency
//	            has recovered
//
// Reaching FailureThreshold consecutive failures opens the breaker. Once
// RecoveryTimeout has elapsed since the last failure, the next observation
// (State or Call) moves it to HalfOpen. HalfOpenRequests successful probes
// close it again; any failed probe re-opens it with a fresh failure time.
//
// Transitions are evaluated lazily under the breaker mutex. There is no
// background timer goroutine.
//
// # Usage
//
//	b := breaker.New(breaker.Config{
//	    Name:             "llm",
//	    FailureThreshold: 5,
//	    RecoveryTimeout:  60 * time.Second,
//	    HalfOpenRequests: 1,
//	})
//
//	resp, err := breaker.Execute(ctx, b, func(ctx context.Context) (*llm.Response, error) {
//	    return invoker.Invoke(ctx, messages)
//	})
//	if errors.Is(err, breaker.ErrOpen) {
//	    // dependency is being given time to recover
//	}
package breaker
