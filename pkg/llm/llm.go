// Package llm defines the boundary to the external language model.
//
// The model provider and agent framework live outside this module. They are
// reached through Invoker, and every call is expected to be wrapped by
// Guarded so it passes through the rate limiter, retry policy and circuit
// breaker.
package llm

import (
	"context"
	"errors"

	"disputedesk-hq/guardrail/pkg/resilience"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Response is the model's reply.
type Response struct {
	Content    string `json:"content"`
	Model      string `json:"model,omitempty"`
	TokensUsed int    `json:"tokens_used,omitempty"`
}

// ErrEmptyResponse is returned by callers that require content.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Invoker sends a conversation to the model.
type Invoker interface {
	Invoke(ctx context.Context, messages []Message) (*Response, error)
}

// InvokerFunc adapts a function to Invoker.
type InvokerFunc func(ctx context.Context, messages []Message) (*Response, error)

// Invoke implements Invoker.
func (f InvokerFunc) Invoke(ctx context.Context, messages []Message) (*Response, error) {
	return f(ctx, messages)
}

type guarded struct {
	next  Invoker
	guard resilience.Guard
}

// Guarded wraps next so each Invoke takes one rate-limit token and then
// retries the breaker-guarded call.
func Guarded(next Invoker, guard resilience.Guard) Invoker {
	return &guarded{next: next, guard: guard}
}

// Invoke implements Invoker.
func (g *guarded) Invoke(ctx context.Context, messages []Message) (*Response, error) {
	// Copy so retries always send the same conversation.
	msgs := make([]Message, len(messages))
	copy(msgs, messages)

	return resilience.Protect(ctx, g.guard, func(ctx context.Context) (*Response, error) {
		return g.next.Invoke(ctx, msgs)
	})
}
