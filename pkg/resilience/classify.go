package resilience

import (
	"context"
	"errors"

	"disputedesk-hq/guardrail/pkg/resilience/breaker"
	"disputedesk-hq/guardrail/pkg/resilience/ratelimit"
	"disputedesk-hq/guardrail/pkg/resilience/retry"
)

// ErrorKind groups failures from a guarded call.
type ErrorKind int

const (
	// KindNone is the kind of a nil error.
	KindNone ErrorKind = iota

	// KindRateLimited means no rate-limit token was available in time.
	KindRateLimited

	// KindCircuitOpen means the breaker rejected the call, possibly after
	// retrying.
	KindCircuitOpen

	// KindRetriesExhausted means every attempt failed.
	KindRetriesExhausted

	// KindCanceled means the caller's context ended.
	KindCanceled

	// KindOther is any other failure.
	KindOther
)

// String returns the kind name used in audit events and metrics.
func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindRateLimited:
		return "rate_limited"
	case KindCircuitOpen:
		return "circuit_open"
	case KindRetriesExhausted:
		return "retries_exhausted"
	case KindCanceled:
		return "canceled"
	default:
		return "other"
	}
}

// Classify maps err onto an ErrorKind. A breaker rejection wins over retry
// exhaustion so a call that spent all attempts against an open breaker is
// reported as circuit_open.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, ratelimit.ErrRateLimitExceeded):
		return KindRateLimited
	case errors.Is(err, breaker.ErrOpen):
		return KindCircuitOpen
	case errors.Is(err, retry.ErrExhausted):
		return KindRetriesExhausted
	default:
		return KindOther
	}
}

// UserMessage returns the text shown to an end user for a failure kind.
func UserMessage(kind ErrorKind) string {
	switch kind {
	case KindNone:
		return ""
	case KindRateLimited:
		return "We're receiving a lot of requests right now. Please wait a moment and try again."
	case KindCircuitOpen:
		return "Our assistant is temporarily unavailable. Please try again in a minute, or contact support if you need immediate help."
	case KindCanceled:
		return "Your request was cancelled before it could be completed. Please try again."
	default:
		return "I apologize, but I encountered an issue processing your request. Please try again, or if the problem persists, contact support."
	}
}
