package audit

import (
	"context"
	"unicode/utf8"

	"disputedesk-hq/guardrail/pkg/identity"
)

// LogUserInput records a message received from the user.
func (w *Writer) LogUserInput(ctx context.Context, id identity.Identity, message string, metadata map[string]any) {
	w.Log(ctx, id, EventUserInput, map[string]any{
		"message":        message,
		"message_length": utf8.RuneCountInString(message),
		"metadata":       metadataValue(metadata),
	}, SeverityNone)
}

// LogLLMRequest records a prompt sent to the model as a redacted preview.
func (w *Writer) LogLLMRequest(ctx context.Context, id identity.Identity, prompt, model string, metadata map[string]any) {
	w.Log(ctx, id, EventLLMRequest, map[string]any{
		"model":          model,
		"prompt_length":  utf8.RuneCountInString(prompt),
		"prompt_preview": w.preview(prompt),
		"metadata":       metadataValue(metadata),
	}, SeverityNone)
}

// LogLLMResponse records a model reply as a redacted preview. A tokensUsed
// of zero or less is recorded as null.
func (w *Writer) LogLLMResponse(ctx context.Context, id identity.Identity, response, model string, tokensUsed int, metadata map[string]any) {
	var tokens any
	if tokensUsed > 0 {
		tokens = tokensUsed
	}
	w.Log(ctx, id, EventLLMResponse, map[string]any{
		"model":            model,
		"response_length":  utf8.RuneCountInString(response),
		"response_preview": w.preview(response),
		"tokens_used":      tokens,
		"metadata":         metadataValue(metadata),
	}, SeverityNone)
}

// LogToolCall records a tool invocation. resultType names the kind of value
// returned; toolErr is the failure, if any.
func (w *Writer) LogToolCall(ctx context.Context, id identity.Identity, tool string, args map[string]any, resultType string, toolErr error) {
	var errText, result any
	sev := SeverityNone
	if toolErr != nil {
		errText = toolErr.Error()
		sev = SeverityWarning
	}
	if resultType != "" {
		result = resultType
	}
	if args == nil {
		args = map[string]any{}
	}

	w.Log(ctx, id, EventToolCall, map[string]any{
		"tool":        tool,
		"arguments":   args,
		"result_type": result,
		"error":       errText,
	}, sev)
}

// LogDisputeFlagged records a dispute raised for human review.
func (w *Writer) LogDisputeFlagged(ctx context.Context, id identity.Identity, transactionID, disputeID, reason string) {
	w.Log(ctx, id, EventDisputeFlagged, map[string]any{
		"transaction_id": transactionID,
		"dispute_id":     disputeID,
		"reason":         reason,
	}, SeverityInfo)
}

// LogSecurityEvent records a security-relevant observation such as a
// suspected prompt injection or an upstream outage.
func (w *Writer) LogSecurityEvent(ctx context.Context, id identity.Identity, eventType, details string, sev Severity) {
	if sev == SeverityNone {
		sev = SeverityWarning
	}
	w.Log(ctx, id, EventSecurity, map[string]any{
		"event_type": eventType,
		"details":    details,
	}, sev)
}

// preview redacts the full text, then keeps the first PreviewLength
// characters.
func (w *Writer) preview(text string) string {
	redacted := w.redactor.Redact(text)
	if utf8.RuneCountInString(redacted) <= w.cfg.PreviewLength {
		return redacted
	}

	n := 0
	for i := range redacted {
		if n == w.cfg.PreviewLength {
			return redacted[:i] + "..."
		}
		n++
	}
	return redacted
}

func metadataValue(m map[string]any) any {
	if len(m) == 0 {
		return nil
	}
	return m
}
