package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"disputedesk-hq/guardrail/pkg/audit"
	"disputedesk-hq/guardrail/pkg/config"
	"disputedesk-hq/guardrail/pkg/identity"
	"disputedesk-hq/guardrail/pkg/llm"
	"disputedesk-hq/guardrail/pkg/pii"
	"disputedesk-hq/guardrail/pkg/resilience"
	"disputedesk-hq/guardrail/pkg/sanitize"
	"disputedesk-hq/guardrail/pkg/telemetry/logging"
	"disputedesk-hq/guardrail/pkg/telemetry/tracing"
)

// FallbackReply is returned when the model answers with no content.
const FallbackReply = "I couldn't process your request."

// Turn outcomes that are not failures. Failed turns use the
// resilience.ErrorKind name.
const (
	OutcomeOK       = "ok"
	OutcomeOffTopic = "off_topic"
)

// Security event types written to the audit log.
const (
	EventInjectionSuspected = "prompt_injection_suspected"
	EventInputSanitized     = "input_sanitized"
	EventModelFailure       = "llm_failure"
)

// Observer receives one call per turn and per tool call. It is implemented
// by the metrics collector.
type Observer interface {
	ObserveTurn(outcome string, duration time.Duration)
	ObserveToolCall(tool string, err error)
}

// Config holds the settings HandleTurn reads on every turn.
type Config struct {
	// Model is recorded in audit entries when the response names none.
	Model string

	Tone          string
	ShowReasoning bool

	// MaxInputLength bounds the sanitized input, in characters.
	MaxInputLength int

	// RequireOnTopic answers off-topic input without calling the model.
	RequireOnTopic bool

	// HistoryLimit is the number of messages kept per user.
	HistoryLimit int

	// Matching supplies the tolerances quoted in the system prompt.
	Matching config.MatchingConfig
}

// ConfigFrom extracts the assistant settings from a loaded configuration.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Model:          cfg.Assistant.Model,
		Tone:           cfg.Assistant.ResponseTone,
		ShowReasoning:  cfg.Assistant.ShowReasoning,
		MaxInputLength: cfg.Sanitize.MaxInputLength,
		RequireOnTopic: cfg.Sanitize.RequireOnTopic,
		HistoryLimit:   cfg.Assistant.HistoryLimit,
		Matching:       cfg.Matching,
	}
}

// TurnResult is what the user sees after one turn.
type TurnResult struct {
	TurnID string

	// Reply is the redacted text shown to the user. It is set on failure
	// too, to the message for the failure kind.
	Reply string

	// Outcome is OutcomeOK, OutcomeOffTopic or a failure kind name.
	Outcome string

	// Kind is KindNone unless the model call failed.
	Kind resilience.ErrorKind

	// Warnings are the sanitizer's notes about the input.
	Warnings []string

	// Suspicious reports whether a prompt-injection pattern matched.
	Suspicious bool

	Model      string
	TokensUsed int
}

// Assistant runs user turns through the guardrails. It is safe for
// concurrent use by many users.
type Assistant struct {
	model    llm.Invoker
	auditor  *audit.Writer
	redactor *pii.Redactor
	history  *History
	tracer   *tracing.Tracer
	observer Observer
	now      func() time.Time
	newID    func() string
	logger   *slog.Logger

	mu  sync.RWMutex
	cfg Config
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithRedactor sets the redactor applied to input and replies. The default
// runs the pattern pass only.
func WithRedactor(r *pii.Redactor) Option {
	return func(a *Assistant) {
		a.redactor = r
	}
}

// WithTracer records a span per turn and per model call.
func WithTracer(t *tracing.Tracer) Option {
	return func(a *Assistant) {
		a.tracer = t
	}
}

// WithObserver attaches an observer.
func WithObserver(o Observer) Option {
	return func(a *Assistant) {
		a.observer = o
	}
}

// WithClock sets the time source used for the prompt and turn durations.
func WithClock(now func() time.Time) Option {
	return func(a *Assistant) {
		a.now = now
	}
}

// WithTurnIDs sets the turn id generator.
func WithTurnIDs(newID func() string) Option {
	return func(a *Assistant) {
		a.newID = newID
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assistant) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an assistant that calls model through guard.
func New(model llm.Invoker, guard resilience.Guard, auditor *audit.Writer, cfg Config, opts ...Option) *Assistant {
	a := &Assistant{
		model:   llm.Guarded(model, guard),
		auditor: auditor,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
		logger:  slog.Default().With("component", "assistant"),
		cfg:     cfg,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.redactor == nil {
		a.redactor = pii.NewRedactor(nil)
	}
	if a.tracer == nil {
		a.tracer = tracing.Noop()
	}
	a.history = NewHistory(cfg.HistoryLimit)
	return a
}

// SetConfig replaces the settings used by later turns.
func (a *Assistant) SetConfig(cfg Config) {
	a.mu.Lock()
	a.cfg = cfg
	a.mu.Unlock()
	a.history.SetLimit(cfg.HistoryLimit)
}

func (a *Assistant) config() Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// History returns the user's redacted conversation.
func (a *Assistant) History(id identity.Identity) []llm.Message {
	return a.history.Get(id.Hash())
}

// ClearHistory forgets the user's conversation.
func (a *Assistant) ClearHistory(id identity.Identity) {
	a.history.Clear(id.Hash())
}

// HandleTurn processes one user message. When the model call fails the
// result still carries the reply to show, and the error is returned
// alongside it.
func (a *Assistant) HandleTurn(ctx context.Context, id identity.Identity, input string) (*TurnResult, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	cfg := a.config()
	start := a.now()
	turnID := a.newID()

	ctx = audit.WithTurnID(ctx, turnID)
	ctx = logging.WithUserHash(ctx, id.Hash())
	ctx = logging.WithModel(ctx, cfg.Model)

	ctx, span := a.tracer.Start(ctx, tracing.SpanTurn)
	defer span.End()
	tracing.SetTurnAttributes(span, turnID, id.Hash())

	result := &TurnResult{TurnID: turnID, Model: cfg.Model}
	defer func() {
		tracing.SetOutcome(span, result.Outcome)
		if a.observer != nil {
			a.observer.ObserveTurn(result.Outcome, a.now().Sub(start))
		}
		a.logger.InfoContext(ctx, "turn completed",
			"outcome", result.Outcome,
			"duration_ms", a.now().Sub(start).Milliseconds(),
			"trace_id", tracing.TraceID(ctx),
		)
	}()

	clean := sanitize.Sanitize(input, sanitize.Options{MaxLength: cfg.MaxInputLength})
	result.Warnings = clean.Warnings
	result.Suspicious = clean.Suspicious()
	tracing.SetInputAttributes(span, clean.OriginalLength, clean.Truncated, categoryNames(clean))
	a.auditSanitization(ctx, id, clean)

	if cfg.RequireOnTopic {
		if ok, reply := sanitize.IsOnTopic(clean.Text); !ok {
			result.Reply = reply
			result.Outcome = OutcomeOffTopic
			return result, nil
		}
	}

	a.auditor.LogUserInput(ctx, id, clean.Text, map[string]any{
		"modified":  clean.Modified,
		"truncated": clean.Truncated,
	})
	redacted := a.redactor.Redact(clean.Text)

	msgs := a.conversation(cfg, id, redacted)
	a.auditor.LogLLMRequest(ctx, id, redacted, cfg.Model, map[string]any{
		"history_messages": len(msgs) - 2,
	})

	resp, err := a.invoke(ctx, msgs)
	if err != nil {
		kind := resilience.Classify(err)
		result.Kind = kind
		result.Outcome = kind.String()
		result.Reply = resilience.UserMessage(kind)
		tracing.SetError(span, err, kind.String())

		a.auditor.LogSecurityEvent(ctx, id, EventModelFailure,
			fmt.Sprintf("%s: %v", kind, err), failureSeverity(kind))
		a.logger.WarnContext(ctx, "model call failed", "kind", kind.String(), "error", err)
		return result, fmt.Errorf("turn %s: %w", turnID, err)
	}

	model := resp.Model
	if model == "" {
		model = cfg.Model
	}
	reply := resp.Content
	if strings.TrimSpace(reply) == "" {
		reply = FallbackReply
	}
	reply = a.redactor.Redact(reply)

	a.auditor.LogLLMResponse(ctx, id, reply, model, resp.TokensUsed, nil)
	a.history.Append(id.Hash(),
		llm.Message{Role: llm.RoleUser, Content: redacted},
		llm.Message{Role: llm.RoleAssistant, Content: reply},
	)

	result.Reply = reply
	result.Outcome = OutcomeOK
	result.Model = model
	result.TokensUsed = resp.TokensUsed
	tracing.SetStatus(span, nil)
	return result, nil
}

func (a *Assistant) invoke(ctx context.Context, msgs []llm.Message) (*llm.Response, error) {
	ctx, span := a.tracer.Start(ctx, tracing.SpanLLM)
	defer span.End()

	resp, err := a.model.Invoke(ctx, msgs)
	if err != nil {
		tracing.SetError(span, err, resilience.Classify(err).String())
		return nil, err
	}
	if resp == nil {
		resp = &llm.Response{}
	}
	tracing.SetLLMAttributes(span, resp.Model, resp.TokensUsed)
	tracing.SetStatus(span, nil)
	return resp, nil
}

// conversation builds the messages for one call: the system prompt, the
// user's history and the new redacted message.
func (a *Assistant) conversation(cfg Config, id identity.Identity, redacted string) []llm.Message {
	history := a.history.Get(id.Hash())

	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: SystemPrompt(PromptOptions{
		Now:             a.now(),
		Tone:            cfg.Tone,
		ShowReasoning:   cfg.ShowReasoning,
		AmountTolerance: cfg.Matching.AmountTolerancePercent,
		DateTolerance:   cfg.Matching.DateToleranceDays,
	})})
	msgs = append(msgs, history...)
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: redacted})
	return msgs
}

func (a *Assistant) auditSanitization(ctx context.Context, id identity.Identity, res sanitize.Result) {
	if len(res.Warnings) == 0 {
		return
	}
	a.logger.WarnContext(ctx, "input sanitization warnings", "warnings", res.Warnings)

	if res.Suspicious() {
		a.auditor.LogSecurityEvent(ctx, id, EventInjectionSuspected,
			fmt.Sprintf("categories=%s confidence=%.2f", strings.Join(categoryNames(res), ","), res.Confidence()),
			audit.SeverityWarning)
		return
	}
	a.auditor.LogSecurityEvent(ctx, id, EventInputSanitized, strings.Join(res.Warnings, "; "), audit.SeverityInfo)
}

func categoryNames(res sanitize.Result) []string {
	cats := res.Categories()
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = string(c)
	}
	return out
}

func failureSeverity(kind resilience.ErrorKind) audit.Severity {
	switch kind {
	case resilience.KindCanceled:
		return audit.SeverityInfo
	case resilience.KindRateLimited:
		return audit.SeverityWarning
	case resilience.KindCircuitOpen:
		return audit.SeverityCritical
	default:
		return audit.SeverityError
	}
}
