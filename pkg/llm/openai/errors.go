package openai

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"disputedesk-hq/guardrail/pkg/resilience/retry"
)

// StatusError represents a non-2xx response from the endpoint.
type StatusError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the response body, truncated.
	Message string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("model endpoint error (status %d): %s", e.StatusCode, e.Message)
}

// AuthError represents an authentication failure (HTTP 401 or 403).
type AuthError struct {
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("model endpoint authentication failed: %s", e.Message)
}

// RateLimitError represents HTTP 429 from the endpoint.
type RateLimitError struct {
	// RetryAfter is the server's requested delay, or 0.
	RetryAfter time.Duration

	Message string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("model endpoint rate limit exceeded (retry after %s): %s", e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("model endpoint rate limit exceeded: %s", e.Message)
}

// ParseError represents a response body that could not be decoded.
type ParseError struct {
	RawResponse string
	Cause       error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("model endpoint response parse error: %v", e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether err is worth another attempt. Authentication
// failures, client errors and malformed requests are final; server errors,
// endpoint rate limits and transport errors are retried.
func Retryable(err error) bool {
	if !retry.DefaultRetryable(err) {
		return false
	}

	var authErr *AuthError
	if errors.As(err, &authErr) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}
