package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GUARDRAIL_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies GUARDRAIL_* environment variable overrides. An empty path skips
// the file and starts from defaults.
//
// The loading sequence is:
// 1. Load YAML from file on top of defaults
// 2. Apply environment variable overrides
// 3. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if cfg, err = parse(data); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

// parse decodes YAML on top of Default and fills remaining zero values.
// Unknown fields are rejected so typos do not silently fall back to
// defaults.
func parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Values that fail to parse are ignored.
func applyEnvOverrides(cfg *Config) {
	// Resilience overrides
	envInt("RESILIENCE_RATE_LIMIT_RPM", &cfg.Resilience.RateLimitRPM)
	envDuration("RESILIENCE_RATE_LIMIT_WINDOW", &cfg.Resilience.RateLimitWindow)
	envDuration("RESILIENCE_ACQUIRE_TIMEOUT", &cfg.Resilience.AcquireTimeout)
	envBool("RESILIENCE_BLOCK_ON_RATE_LIMIT", &cfg.Resilience.BlockOnRateLimit)
	envInt("RESILIENCE_CIRCUIT_BREAKER_THRESHOLD", &cfg.Resilience.CircuitBreakerThreshold)
	envDuration("RESILIENCE_CIRCUIT_BREAKER_RECOVERY_TIMEOUT", &cfg.Resilience.CircuitBreakerRecoveryTimeout)
	envInt("RESILIENCE_CIRCUIT_BREAKER_HALF_OPEN_REQUESTS", &cfg.Resilience.CircuitBreakerHalfOpenRequests)
	envInt("RESILIENCE_MAX_RETRIES", &cfg.Resilience.MaxRetries)
	envFloat("RESILIENCE_RETRY_BACKOFF_BASE", &cfg.Resilience.RetryBackoffBase)

	// Matching overrides
	envFloat("MATCHING_AMOUNT_TOLERANCE_PERCENT", &cfg.Matching.AmountTolerancePercent)
	envInt("MATCHING_DATE_TOLERANCE_DAYS", &cfg.Matching.DateToleranceDays)
	envInt("MATCHING_DEFAULT_LIMIT", &cfg.Matching.DefaultLimit)

	// PII overrides
	envBool("PII_ENTITY_PASS", &cfg.PII.EntityPass)
	envBool("PII_NER", &cfg.PII.NER)
	envFloat("PII_MIN_SCORE", &cfg.PII.MinScore)

	// Sanitize overrides
	envInt("SANITIZE_MAX_INPUT_LENGTH", &cfg.Sanitize.MaxInputLength)
	envBool("SANITIZE_REQUIRE_ON_TOPIC", &cfg.Sanitize.RequireOnTopic)

	// Audit overrides
	envString("AUDIT_DIR", &cfg.Audit.Dir)
	envInt("AUDIT_PREVIEW_LENGTH", &cfg.Audit.PreviewLength)
	envInt("AUDIT_RETENTION_DAYS", &cfg.Audit.RetentionDays)
	envString("AUDIT_PRUNE_SCHEDULE", &cfg.Audit.PruneSchedule)

	// Store overrides
	envString("STORE_DRIVER", &cfg.Store.Driver)
	envString("STORE_PATH", &cfg.Store.Path)
	envDuration("STORE_BUSY_TIMEOUT", &cfg.Store.BusyTimeout)

	// Assistant overrides
	envString("ASSISTANT_MODEL", &cfg.Assistant.Model)
	envString("ASSISTANT_RESPONSE_TONE", &cfg.Assistant.ResponseTone)
	envBool("ASSISTANT_SHOW_REASONING", &cfg.Assistant.ShowReasoning)
	envInt("ASSISTANT_HISTORY_LIMIT", &cfg.Assistant.HistoryLimit)
	envString("ASSISTANT_ENDPOINT", &cfg.Assistant.Endpoint)
	envString("ASSISTANT_API_KEY", &cfg.Assistant.APIKey)
	envDuration("ASSISTANT_TIMEOUT", &cfg.Assistant.Timeout)

	// Server overrides
	envString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_LOGGING_REDACT_PII", &cfg.Telemetry.Logging.RedactPII)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_LISTEN_ADDRESS", &cfg.Telemetry.Metrics.ListenAddress)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_SAMPLER", &cfg.Telemetry.Tracing.Sampler)
	envFloat("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
}

func envString(key string, dst *string) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}

func envFloat(key string, dst *float64) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
