// Package fakellm provides a scripted llm.Invoker for tests.
package fakellm

import (
	"context"
	"errors"
	"sync"

	"disputedesk-hq/guardrail/pkg/llm"
)

// ErrScriptExhausted is returned once a ScriptedInvoker has no steps left.
var ErrScriptExhausted = errors.New("scripted invoker: no more steps")

// Step is one scripted model outcome.
type Step struct {
	Response *llm.Response
	Err      error
}

// Reply scripts a successful response with content.
func Reply(content string) Step {
	return Step{Response: &llm.Response{Content: content, Model: "scripted"}}
}

// Fail scripts a failure.
func Fail(err error) Step {
	return Step{Err: err}
}

// ScriptedInvoker returns its steps in order and records what it was sent.
type ScriptedInvoker struct {
	mu    sync.Mutex
	steps []Step
	calls int
	last  []llm.Message
}

// NewScriptedInvoker creates an invoker that plays steps in order.
func NewScriptedInvoker(steps ...Step) *ScriptedInvoker {
	return &ScriptedInvoker{steps: steps}
}

// Invoke implements llm.Invoker.
func (s *ScriptedInvoker) Invoke(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	s.last = append([]llm.Message(nil), messages...)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.steps) == 0 {
		return nil, ErrScriptExhausted
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	return step.Response, step.Err
}

// Calls returns how many times Invoke ran.
func (s *ScriptedInvoker) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// LastMessages returns the messages from the most recent call.
func (s *ScriptedInvoker) LastMessages() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llm.Message(nil), s.last...)
}
