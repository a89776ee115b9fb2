package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"disputedesk-hq/guardrail/pkg/pii"
)

// Span names.
const (
	SpanTurn = "guardrail.turn"
	SpanLLM  = "guardrail.llm.invoke"
	SpanTool = "guardrail.tool"
)

// Attribute keys. Custom keys use the "guardrail.*" namespace.
const (
	AttrTurnID   = "guardrail.turn_id"
	AttrUserHash = "guardrail.user_hash"
	AttrOutcome  = "guardrail.outcome"

	AttrInputLength         = "guardrail.input.length"
	AttrInputTruncated      = "guardrail.input.truncated"
	AttrInjectionCategories = "guardrail.input.injection_categories"

	AttrModel      = "guardrail.llm.model"
	AttrTokensUsed = "guardrail.llm.tokens_used"

	AttrTool        = "guardrail.tool.name"
	AttrResultCount = "guardrail.tool.result_count"

	AttrErrorKind    = "guardrail.error.kind"
	AttrErrorMessage = "error.message"
)

// SetTurnAttributes sets the correlation attributes of a turn span.
func SetTurnAttributes(span trace.Span, turnID, userHash string) {
	span.SetAttributes(
		attribute.String(AttrTurnID, turnID),
		attribute.String(AttrUserHash, userHash),
	)
}

// SetInputAttributes records what sanitization found. Only lengths and
// category names are recorded, never the text.
func SetInputAttributes(span trace.Span, length int, truncated bool, categories []string) {
	attrs := []attribute.KeyValue{
		attribute.Int(AttrInputLength, length),
		attribute.Bool(AttrInputTruncated, truncated),
	}
	if len(categories) > 0 {
		attrs = append(attrs, attribute.StringSlice(AttrInjectionCategories, categories))
	}
	span.SetAttributes(attrs...)
}

// SetLLMAttributes sets model attributes. A tokensUsed of zero or less is
// omitted.
func SetLLMAttributes(span trace.Span, model string, tokensUsed int) {
	attrs := []attribute.KeyValue{attribute.String(AttrModel, model)}
	if tokensUsed > 0 {
		attrs = append(attrs, attribute.Int(AttrTokensUsed, tokensUsed))
	}
	span.SetAttributes(attrs...)
}

// SetToolAttributes sets tool attributes.
func SetToolAttributes(span trace.Span, tool string, resultCount int) {
	span.SetAttributes(
		attribute.String(AttrTool, tool),
		attribute.Int(AttrResultCount, resultCount),
	)
}

// SetOutcome records how a turn ended.
func SetOutcome(span trace.Span, outcome string) {
	span.SetAttributes(attribute.String(AttrOutcome, outcome))
}

// SetError marks the span as failed. The message is redacted before it is
// recorded.
func SetError(span trace.Span, err error, kind string) {
	if err == nil {
		return
	}
	msg := pii.RedactPatterns(err.Error())

	attrs := []attribute.KeyValue{
		attribute.Bool("error", true),
		attribute.String(AttrErrorMessage, msg),
	}
	if kind != "" {
		attrs = append(attrs, attribute.String(AttrErrorKind, kind))
	}
	span.SetAttributes(attrs...)
	span.AddEvent("exception", trace.WithAttributes(attribute.String("exception.message", msg)))
	span.SetStatus(codes.Error, msg)
}

// SetStatus sets the span status based on an error.
func SetStatus(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, pii.RedactPatterns(err.Error()))
	} else {
		span.SetStatus(codes.Ok, "")
	}
}
