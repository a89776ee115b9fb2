package logging

import (
	"context"
	"log/slog"
	"strings"

	"disputedesk-hq/guardrail/pkg/pii"
)

// Masked replaces the value of an attribute whose key names a secret.
const Masked = "***"

// sensitiveKeys name secrets. A key matches when it equals one of them or
// contains it as a whole underscore-separated word, so "access_token"
// matches while "tokens_used" does not.
var sensitiveKeys = []string{
	"password", "passwd", "secret", "token",
	"api_key", "apikey", "authorization",
	"ssn", "card_number", "account_number", "routing_number",
	"private_key",
}

// ContextHandler adds correlation fields from the context and, when redact
// is set, scrubs PII from attribute values before passing records to the
// wrapped handler.
type ContextHandler struct {
	next   slog.Handler
	redact bool
}

// NewContextHandler wraps next.
func NewContextHandler(next slog.Handler, redact bool) *ContextHandler {
	return &ContextHandler{next: next, redact: redact}
}

// Enabled implements slog.Handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, h.redactString(r.Message), r.PC)

	if fields := extractContextFields(ctx); len(fields) > 0 {
		out.Add(fields...)
	}
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redactAttr(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

// WithAttrs implements slog.Handler.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redactAttr(a)
	}
	return &ContextHandler{next: h.next.WithAttrs(redacted), redact: h.redact}
}

// WithGroup implements slog.Handler.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{next: h.next.WithGroup(name), redact: h.redact}
}

func (h *ContextHandler) redactString(s string) string {
	if !h.redact {
		return s
	}
	return pii.RedactPatterns(s)
}

func (h *ContextHandler) redactAttr(a slog.Attr) slog.Attr {
	if !h.redact {
		return a
	}

	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		redacted := make([]slog.Attr, len(group))
		for i, g := range group {
			redacted[i] = h.redactAttr(g)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(redacted...)}
	}

	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, Masked)
	}

	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, pii.RedactPatterns(a.Value.String()))
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			return slog.String(a.Key, pii.RedactPatterns(err.Error()))
		}
	}
	return a
}

// isSensitiveKey checks if a key name indicates secret data.
func isSensitiveKey(key string) bool {
	lowerKey := "_" + strings.ReplaceAll(strings.ToLower(key), "-", "_") + "_"
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, "_"+sensitive+"_") {
			return true
		}
	}
	return false
}
