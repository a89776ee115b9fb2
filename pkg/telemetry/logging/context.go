package logging

import (
	"context"

	"disputedesk-hq/guardrail/pkg/audit"
)

type contextKey string

const (
	// UserHashKey is the context key for the hashed user identifier.
	UserHashKey contextKey = "user_hash"

	// ToolKey is the context key for the tool being executed.
	ToolKey contextKey = "tool"

	// ModelKey is the context key for model names.
	ModelKey contextKey = "model"
)

// WithUserHash adds a hashed user identifier to the context. Never store a
// raw user identifier here.
func WithUserHash(ctx context.Context, userHash string) context.Context {
	return context.WithValue(ctx, UserHashKey, userHash)
}

// GetUserHash retrieves the hashed user identifier from the context.
func GetUserHash(ctx context.Context) string {
	if v, ok := ctx.Value(UserHashKey).(string); ok {
		return v
	}
	return ""
}

// WithTool adds a tool name to the context.
func WithTool(ctx context.Context, tool string) context.Context {
	return context.WithValue(ctx, ToolKey, tool)
}

// GetTool retrieves the tool name from the context.
func GetTool(ctx context.Context) string {
	if v, ok := ctx.Value(ToolKey).(string); ok {
		return v
	}
	return ""
}

// WithModel adds a model name to the context.
func WithModel(ctx context.Context, model string) context.Context {
	return context.WithValue(ctx, ModelKey, model)
}

// GetModel retrieves the model name from the context.
func GetModel(ctx context.Context) string {
	if v, ok := ctx.Value(ModelKey).(string); ok {
		return v
	}
	return ""
}

// extractContextFields returns the correlation fields carried by ctx as
// slog attributes. The turn id is shared with the audit log so that log
// lines and audit entries of one turn can be joined.
func extractContextFields(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}

	var fields []any
	if turnID := audit.TurnID(ctx); turnID != "" {
		fields = append(fields, "turn_id", turnID)
	}
	if userHash := GetUserHash(ctx); userHash != "" {
		fields = append(fields, "user_hash", userHash)
	}
	if tool := GetTool(ctx); tool != "" {
		fields = append(fields, "tool", tool)
	}
	if model := GetModel(ctx); model != "" {
		fields = append(fields, "model", model)
	}
	return fields
}
