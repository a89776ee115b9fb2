package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"disputedesk-hq/guardrail/pkg/audit"
	"disputedesk-hq/guardrail/pkg/config"
)

func newTestLogger(t *testing.T, cfg Config) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	cfg.Writer = buf
	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return logger, buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("output is not a single JSON line: %v\n%s", err, buf.String())
	}
	return entry
}

// ============================================================================
// Construction
// ============================================================================

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"valid JSON config", Config{Level: "info", Format: "json", RedactPII: true}, false},
		{"valid text config", Config{Level: "debug", Format: "text"}, false},
		{"upper case values", Config{Level: "WARN", Format: "JSON"}, false},
		{"empty values default", Config{}, false},
		{"invalid log level", Config{Level: "invalid", Format: "json"}, true},
		{"invalid format", Config{Level: "info", Format: "console"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.Writer = &bytes.Buffer{}
			logger, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger == nil {
				t.Error("New() returned nil logger")
			}
		})
	}
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.LoggingConfig{Level: "debug", Format: "text", AddSource: true, RedactPII: true})
	if cfg.Level != "debug" || cfg.Format != "text" || !cfg.AddSource || !cfg.RedactPII {
		t.Errorf("FromConfig() = %+v", cfg)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		level    slog.Level
		wantLog  bool
	}{
		{"debug level logs debug", "debug", slog.LevelDebug, true},
		{"info level filters debug", "info", slog.LevelDebug, false},
		{"info level logs info", "info", slog.LevelInfo, true},
		{"warn level filters info", "warn", slog.LevelInfo, false},
		{"warn level logs warn", "warn", slog.LevelWarn, true},
		{"error level filters warn", "error", slog.LevelWarn, false},
		{"error level logs error", "error", slog.LevelError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newTestLogger(t, Config{Level: tt.logLevel, Format: "json"})
			logger.Log(context.Background(), tt.level, "test message")

			if got := strings.Contains(buf.String(), "test message"); got != tt.wantLog {
				t.Errorf("logged = %v, want %v, output=%s", got, tt.wantLog, buf.String())
			}
		})
	}
}

func TestLogger_TextFormat(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Level: "info", Format: "text"})
	logger.Info("hello", "k", "v")

	if !strings.Contains(buf.String(), "msg=hello") || !strings.Contains(buf.String(), "k=v") {
		t.Errorf("unexpected text output: %s", buf.String())
	}
}

// ============================================================================
// Redaction
// ============================================================================

func TestLogger_RedactsAttributes(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Level: "info", Format: "json", RedactPII: true})

	logger.Info("customer wrote to user@example.com",
		"message", "my card 4111 1111 1111 1111 was charged",
		"api_key", "sk-abcdef",
		"tokens_used", 42,
		"error", errors.New("lookup for 123-45-6789 failed"),
		slog.Group("request", slog.String("ssn", "123-45-6789"), slog.String("note", "call 555-123-4567")),
	)

	entry := decodeLine(t, buf)
	if entry["msg"] != "customer wrote to [REDACTED_EMAIL]" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["message"] != "my card [REDACTED_CREDIT_CARD] was charged" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["api_key"] != Masked {
		t.Errorf("api_key = %v, want %s", entry["api_key"], Masked)
	}
	if entry["tokens_used"] != float64(42) {
		t.Errorf("tokens_used = %v, want 42", entry["tokens_used"])
	}
	if entry["error"] != "lookup for [REDACTED_SSN] failed" {
		t.Errorf("error = %v", entry["error"])
	}

	group, ok := entry["request"].(map[string]any)
	if !ok {
		t.Fatalf("request group missing: %v", entry)
	}
	if group["ssn"] != Masked {
		t.Errorf("request.ssn = %v", group["ssn"])
	}
	if group["note"] != "call [REDACTED_PHONE]" {
		t.Errorf("request.note = %v", group["note"])
	}
}

func TestLogger_RedactsWithAttrs(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Level: "info", Format: "json", RedactPII: true})

	logger.With("contact", "user@example.com").Info("bound")

	if entry := decodeLine(t, buf); entry["contact"] != "[REDACTED_EMAIL]" {
		t.Errorf("contact = %v", entry["contact"])
	}
}

func TestLogger_RedactionDisabled(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Level: "info", Format: "json"})

	logger.Info("raw", "contact", "user@example.com", "password", "hunter2")

	entry := decodeLine(t, buf)
	if entry["contact"] != "user@example.com" || entry["password"] != "hunter2" {
		t.Errorf("values changed with redaction off: %v", entry)
	}
}

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"password", true},
		{"db_password", true},
		{"API_KEY", true},
		{"x-api-key", true},
		{"access_token", true},
		{"card_number", true},
		{"tokens_used", false},
		{"message", false},
		{"amount", false},
	}

	for _, tt := range tests {
		if got := isSensitiveKey(tt.key); got != tt.want {
			t.Errorf("isSensitiveKey(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

// ============================================================================
// Context fields
// ============================================================================

func TestLogger_ContextFields(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Level: "info", Format: "json", RedactPII: true})

	ctx := audit.WithTurnID(context.Background(), "turn-1")
	ctx = WithUserHash(ctx, "abc123")
	ctx = WithTool(ctx, "find_transactions")
	ctx = WithModel(ctx, "claude")

	logger.InfoContext(ctx, "tool executed")

	entry := decodeLine(t, buf)
	want := map[string]string{
		"turn_id":   "turn-1",
		"user_hash": "abc123",
		"tool":      "find_transactions",
		"model":     "claude",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %s", k, entry[k], v)
		}
	}
}

func TestContextGetters_Empty(t *testing.T) {
	ctx := context.Background()
	if GetUserHash(ctx) != "" || GetTool(ctx) != "" || GetModel(ctx) != "" {
		t.Error("empty context should yield empty fields")
	}
	if fields := extractContextFields(ctx); len(fields) != 0 {
		t.Errorf("extractContextFields() = %v, want none", fields)
	}
}
