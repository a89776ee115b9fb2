package config

import "time"

// Config is the root configuration structure for guardrail.
type Config struct {
	// Resilience configures the limiter, breaker and retry policy that
	// guard model calls.
	Resilience ResilienceConfig `yaml:"resilience"`

	// Matching configures transaction tolerance matching.
	Matching MatchingConfig `yaml:"matching"`

	// PII configures redaction.
	PII PIIConfig `yaml:"pii"`

	// Sanitize configures input sanitization.
	Sanitize SanitizeConfig `yaml:"sanitize"`

	// Audit configures the audit log writer and its retention.
	Audit AuditConfig `yaml:"audit"`

	// Store configures the transaction repository.
	Store StoreConfig `yaml:"store"`

	// Assistant configures the conversation layer.
	Assistant AssistantConfig `yaml:"assistant"`

	// Server configures the HTTP API started by serve.
	Server ServerConfig `yaml:"server"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ResilienceConfig contains fault-isolation settings.
type ResilienceConfig struct {
	// RateLimitRPM is the number of calls admitted per window.
	RateLimitRPM int `yaml:"rate_limit_rpm"`

	// RateLimitWindow is the sliding window length.
	RateLimitWindow time.Duration `yaml:"rate_limit_window"`

	// AcquireTimeout bounds how long a call waits for rate-limit capacity.
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`

	// BlockOnRateLimit waits for capacity instead of failing fast.
	BlockOnRateLimit bool `yaml:"block_on_rate_limit"`

	CircuitBreakerThreshold        int           `yaml:"circuit_breaker_threshold"`
	CircuitBreakerRecoveryTimeout  time.Duration `yaml:"circuit_breaker_recovery_timeout"`
	CircuitBreakerHalfOpenRequests int           `yaml:"circuit_breaker_half_open_requests"`

	// MaxRetries is the total number of attempts, including the first.
	MaxRetries int `yaml:"max_retries"`

	// RetryBackoffBase is b in the delay b^i seconds before retry i+1.
	RetryBackoffBase float64 `yaml:"retry_backoff_base"`
}

// MatchingConfig contains the tolerances applied by the transaction tools.
type MatchingConfig struct {
	AmountTolerancePercent float64 `yaml:"amount_tolerance_percent"`
	DateToleranceDays      int     `yaml:"date_tolerance_days"`

	// DefaultLimit is how many matches are shown when the caller gives no
	// limit.
	DefaultLimit int `yaml:"default_limit"`
}

// PIIConfig contains redaction settings.
type PIIConfig struct {
	// EntityPass runs the entity pass after the pattern pass.
	EntityPass bool `yaml:"entity_pass"`

	// NER enables the named-entity tagger inside the entity pass.
	NER bool `yaml:"ner"`

	// MinScore drops entity spans scored below it.
	MinScore float64 `yaml:"min_score"`
}

// SanitizeConfig contains input sanitization settings.
type SanitizeConfig struct {
	// MaxInputLength is the longest accepted input, in characters.
	MaxInputLength int `yaml:"max_input_length"`

	// RequireOnTopic answers off-topic messages with a canned reply
	// instead of calling the model.
	RequireOnTopic bool `yaml:"require_on_topic"`
}

// AuditConfig contains audit log settings.
type AuditConfig struct {
	// Dir holds the per-day partition files.
	Dir string `yaml:"dir"`

	// PreviewLength is the number of characters kept in previews.
	PreviewLength int `yaml:"preview_length"`

	// RetentionDays is how long partitions are kept. 0 keeps them forever.
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is a cron expression for retention pruning.
	PruneSchedule string `yaml:"prune_schedule"`
}

// StoreConfig selects the transaction repository.
type StoreConfig struct {
	// Driver is "memory", "sqlite" (pure Go) or "sqlite3" (cgo).
	Driver string `yaml:"driver"`

	// Path is the database file for the SQLite drivers.
	Path string `yaml:"path"`

	// BusyTimeout is the SQLite lock wait.
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// AssistantConfig contains conversation settings.
type AssistantConfig struct {
	// Model is recorded in audit entries when the response does not name
	// one.
	Model string `yaml:"model"`

	// ResponseTone is "formal" or "friendly".
	ResponseTone string `yaml:"response_tone"`

	// ShowReasoning asks the model to briefly explain its reasoning.
	ShowReasoning bool `yaml:"show_reasoning"`

	// HistoryLimit is the number of messages kept per user.
	HistoryLimit int `yaml:"history_limit"`

	// Endpoint is the base URL of an OpenAI-compatible chat completions
	// API. Empty disables the turn endpoint of serve.
	Endpoint string `yaml:"endpoint"`

	// APIKey is sent as a bearer token. Prefer the environment override.
	APIKey string `yaml:"api_key"`

	// Timeout bounds one model request.
	Timeout time.Duration `yaml:"timeout"`
}

// ServerConfig contains HTTP API server settings.
type ServerConfig struct {
	// ListenAddress is the host:port the API listens on.
	ListenAddress string `yaml:"listen_address"`

	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxBodyBytes bounds request bodies.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// TelemetryConfig contains logging, metrics and tracing settings.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is json or text.
	Format string `yaml:"format"`

	// AddSource includes the source location in records.
	AddSource bool `yaml:"add_source"`

	// RedactPII runs log attributes through the pattern pass.
	RedactPII bool `yaml:"redact_pii"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Namespace     string `yaml:"namespace"`
	Subsystem     string `yaml:"subsystem"`
	ListenAddress string `yaml:"listen_address"`
	Path          string `yaml:"path"`
}

// TracingConfig contains OpenTelemetry tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are recorded and exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler is "always", "never" or "ratio".
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample when Sampler is
	// "ratio". Use the "never" sampler rather than 0 to sample nothing.
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is reported as the service.name resource attribute.
	// Default: "guardrail"
	ServiceName string `yaml:"service_name"`

	// Insecure disables TLS to the collector.
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}
