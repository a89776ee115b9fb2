package config

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError is a problem with one setting, addressed by its YAML path.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationError lists every FieldError found by Validate, in section order.
type ValidationError struct {
	Errors []FieldError
}

func (e ValidationError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "configuration validation failed"
	case 1:
		return "configuration validation failed: " + e.Errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, fe := range e.Errors {
		fmt.Fprintf(&b, "  - %s\n", fe.Error())
	}
	return b.String()
}

// rules accumulates field errors for one Validate call.
type rules struct {
	errs []FieldError
}

func (r *rules) fail(field, format string, args ...any) {
	r.errs = append(r.errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (r *rules) check(ok bool, field, format string, args ...any) {
	if !ok {
		r.fail(field, format, args...)
	}
}

func (r *rules) atLeastOne(field string, v int) {
	r.check(v >= 1, field, "must be at least 1")
}

func (r *rules) notNegative(field string, negative bool) {
	r.check(!negative, field, "cannot be negative")
}

func (r *rules) oneOf(field, got string, allowed ...string) {
	r.check(slices.Contains(allowed, got), field, "must be one of %s, got %q", strings.Join(allowed, ", "), got)
}

func (r *rules) fraction(field string, v float64) {
	r.check(v >= 0 && v <= 1, field, "must be between 0.0 and 1.0")
}

// Validate checks every section of cfg and reports all problems at once as a
// ValidationError.
func Validate(cfg *Config) error {
	r := &rules{}

	res := cfg.Resilience
	r.atLeastOne("resilience.rate_limit_rpm", res.RateLimitRPM)
	r.check(res.RateLimitWindow > 0, "resilience.rate_limit_window", "must be positive")
	r.notNegative("resilience.acquire_timeout", res.AcquireTimeout < 0)
	r.atLeastOne("resilience.circuit_breaker_threshold", res.CircuitBreakerThreshold)
	r.check(res.CircuitBreakerRecoveryTimeout > 0, "resilience.circuit_breaker_recovery_timeout", "must be positive")
	r.atLeastOne("resilience.circuit_breaker_half_open_requests", res.CircuitBreakerHalfOpenRequests)
	r.check(res.MaxRetries >= 1, "resilience.max_retries", "must be at least 1 (total attempts)")
	r.check(res.RetryBackoffBase >= 1, "resilience.retry_backoff_base", "must be at least 1, got %v", res.RetryBackoffBase)

	m := cfg.Matching
	r.check(m.AmountTolerancePercent >= 0 && m.AmountTolerancePercent <= 100,
		"matching.amount_tolerance_percent", "must be between 0 and 100")
	r.notNegative("matching.date_tolerance_days", m.DateToleranceDays < 0)
	r.atLeastOne("matching.default_limit", m.DefaultLimit)

	r.fraction("pii.min_score", cfg.PII.MinScore)
	r.atLeastOne("sanitize.max_input_length", cfg.Sanitize.MaxInputLength)

	validateAudit(r, cfg.Audit)
	validateStore(r, cfg.Store)
	validateAssistant(r, cfg.Assistant)

	srv := cfg.Server
	_, _, err := net.SplitHostPort(srv.ListenAddress)
	r.check(err == nil, "server.listen_address", "must be host:port, got %q", srv.ListenAddress)
	r.notNegative("server.shutdown_timeout", srv.ShutdownTimeout < 0)
	r.notNegative("server.max_body_bytes", srv.MaxBodyBytes < 0)

	validateTelemetry(r, cfg.Telemetry)

	if len(r.errs) > 0 {
		return ValidationError{Errors: r.errs}
	}
	return nil
}

func validateAudit(r *rules, a AuditConfig) {
	r.check(a.Dir != "", "audit.dir", "audit directory is required")
	r.atLeastOne("audit.preview_length", a.PreviewLength)
	r.notNegative("audit.retention_days", a.RetentionDays < 0)
	if a.PruneSchedule != "" {
		if _, err := cron.ParseStandard(a.PruneSchedule); err != nil {
			r.fail("audit.prune_schedule", "invalid cron expression %q: %v", a.PruneSchedule, err)
		}
	}
}

func validateStore(r *rules, s StoreConfig) {
	switch s.Driver {
	case "memory":
	case "sqlite", "sqlite3":
		r.check(s.Path != "", "store.path", "database path is required for the %s driver", s.Driver)
	default:
		r.oneOf("store.driver", s.Driver, "memory", "sqlite", "sqlite3")
	}
	r.notNegative("store.busy_timeout", s.BusyTimeout < 0)
}

func validateAssistant(r *rules, a AssistantConfig) {
	r.oneOf("assistant.response_tone", a.ResponseTone, "formal", "friendly")
	r.notNegative("assistant.history_limit", a.HistoryLimit < 0)
	r.notNegative("assistant.timeout", a.Timeout < 0)
	if a.Endpoint == "" {
		return
	}
	u, err := url.Parse(a.Endpoint)
	r.check(err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "",
		"assistant.endpoint", "must be an http(s) URL, got %q", a.Endpoint)
}

func validateTelemetry(r *rules, t TelemetryConfig) {
	r.oneOf("telemetry.logging.level", t.Logging.Level, "debug", "info", "warn", "error")
	r.oneOf("telemetry.logging.format", t.Logging.Format, "json", "text")

	if t.Metrics.Enabled {
		r.check(strings.HasPrefix(t.Metrics.Path, "/"), "telemetry.metrics.path", "must start with '/'")
		r.check(t.Metrics.ListenAddress != "", "telemetry.metrics.listen_address", "required when metrics are enabled")
	}
	if t.Tracing.Enabled {
		r.oneOf("telemetry.tracing.sampler", t.Tracing.Sampler, "always", "never", "ratio")
		r.fraction("telemetry.tracing.sample_ratio", t.Tracing.SampleRatio)
		r.check(t.Tracing.Endpoint != "", "telemetry.tracing.endpoint", "required when tracing is enabled")
	}
}
