// Package ratelimit bounds the rate of outbound calls with a sliding window.
//
// # Overview
//
// A Limiter admits at most Capacity calls in any trailing Window. It keeps the
// timestamps of admitted calls in order and prunes the expired ones lazily on
// every acquisition, so the limit holds over any rolling interval rather than
// over fixed calendar buckets.
//
//	limiter := ratelimit.New(60, time.Minute) // 60 calls per rolling minute
//
//	// Non-blocking: fail fast when the window is full
//	if err := limiter.Acquire(ctx, false, 0); err != nil {
//	    // errors.Is(err, ratelimit.ErrRateLimitExceeded)
//	}
//
//	// Blocking: wait up to 5s for the oldest call to leave the window
//	if err := limiter.Acquire(ctx, true, 5*time.Second); err != nil {
//	    // timed out or ctx cancelled
//	}
//
// # Blocking Acquisition
//
// A blocking caller computes how long until the oldest admitted call exits the
// window and sleeps in bounded slices (PollInterval, 100ms by default) outside
// the lock before re-checking. The last slice is clipped to the remaining
// timeout so the caller returns promptly instead of oversleeping.
//
// # Thread Safety
//
// The prune-check-admit sequence runs under a single mutex per Limiter. No
// sleeping or I/O happens while the lock is held.
package ratelimit
