package config

import "time"

// Default values for configuration fields.
const (
	// Resilience defaults
	DefaultRateLimitRPM                   = 60
	DefaultRateLimitWindow                = 60 * time.Second
	DefaultAcquireTimeout                 = 30 * time.Second
	DefaultBlockOnRateLimit               = true
	DefaultCircuitBreakerThreshold        = 5
	DefaultCircuitBreakerRecoveryTimeout  = 60 * time.Second
	DefaultCircuitBreakerHalfOpenRequests = 1
	DefaultMaxRetries                     = 3
	DefaultRetryBackoffBase               = 2.0

	// Matching defaults
	DefaultAmountTolerancePercent = 10.0
	DefaultDateToleranceDays      = 3
	DefaultMatchLimit             = 10

	// PII defaults
	DefaultPIIEntityPass = true
	DefaultPIINER        = true
	DefaultPIIMinScore   = 0.3

	// Sanitize defaults
	DefaultMaxInputLength = 5000
	DefaultRequireOnTopic = true

	// Audit defaults
	DefaultAuditDir           = "logs"
	DefaultAuditPreviewLength = 200
	DefaultAuditRetentionDays = 90
	DefaultAuditPruneSchedule = "0 3 * * *"

	// Store defaults
	DefaultStoreDriver      = "sqlite"
	DefaultStorePath        = "data/guardrail.db"
	DefaultStoreBusyTimeout = 5 * time.Second

	// Assistant defaults
	DefaultAssistantModel = "unknown"
	DefaultResponseTone   = "formal"
	DefaultHistoryLimit   = 20
	DefaultModelTimeout   = 30 * time.Second

	// Server defaults
	DefaultServerListenAddress   = "127.0.0.1:8080"
	DefaultServerReadTimeout     = 10 * time.Second
	DefaultServerWriteTimeout    = 90 * time.Second
	DefaultServerIdleTimeout     = 120 * time.Second
	DefaultServerShutdownTimeout = 15 * time.Second
	DefaultServerMaxBodyBytes    = 64 * 1024

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultLoggingRedactPII = true
	DefaultMetricsEnabled   = true
	DefaultMetricsNamespace = "guardrail"
	DefaultMetricsSubsystem = "core"
	DefaultMetricsAddress   = "127.0.0.1:9090"
	DefaultMetricsPath      = "/metrics"
	DefaultTracingSampler   = "ratio"
	DefaultTracingRatio     = 0.1
	DefaultTracingEndpoint  = "localhost:4317"
	DefaultTracingService   = "guardrail"
	DefaultTracingTimeout   = 10 * time.Second
)

// Default returns a configuration with every field at its default,
// including booleans.
func Default() *Config {
	cfg := &Config{
		Resilience: ResilienceConfig{BlockOnRateLimit: DefaultBlockOnRateLimit},
		PII: PIIConfig{
			EntityPass: DefaultPIIEntityPass,
			NER:        DefaultPIINER,
		},
		Sanitize: SanitizeConfig{RequireOnTopic: DefaultRequireOnTopic},
		Audit: AuditConfig{
			RetentionDays: DefaultAuditRetentionDays,
			PruneSchedule: DefaultAuditPruneSchedule,
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{RedactPII: DefaultLoggingRedactPII},
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets defaults for any fields that have zero values.
// Booleans, RetentionDays and PruneSchedule are left alone because their
// zero values are meaningful; use Default for those.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	r := &cfg.Resilience
	if r.RateLimitRPM == 0 {
		r.RateLimitRPM = DefaultRateLimitRPM
	}
	if r.RateLimitWindow == 0 {
		r.RateLimitWindow = DefaultRateLimitWindow
	}
	if r.AcquireTimeout == 0 {
		r.AcquireTimeout = DefaultAcquireTimeout
	}
	if r.CircuitBreakerThreshold == 0 {
		r.CircuitBreakerThreshold = DefaultCircuitBreakerThreshold
	}
	if r.CircuitBreakerRecoveryTimeout == 0 {
		r.CircuitBreakerRecoveryTimeout = DefaultCircuitBreakerRecoveryTimeout
	}
	if r.CircuitBreakerHalfOpenRequests == 0 {
		r.CircuitBreakerHalfOpenRequests = DefaultCircuitBreakerHalfOpenRequests
	}
	if r.MaxRetries == 0 {
		r.MaxRetries = DefaultMaxRetries
	}
	if r.RetryBackoffBase == 0 {
		r.RetryBackoffBase = DefaultRetryBackoffBase
	}

	m := &cfg.Matching
	if m.AmountTolerancePercent == 0 {
		m.AmountTolerancePercent = DefaultAmountTolerancePercent
	}
	if m.DateToleranceDays == 0 {
		m.DateToleranceDays = DefaultDateToleranceDays
	}
	if m.DefaultLimit == 0 {
		m.DefaultLimit = DefaultMatchLimit
	}

	if cfg.PII.MinScore == 0 {
		cfg.PII.MinScore = DefaultPIIMinScore
	}
	if cfg.Sanitize.MaxInputLength == 0 {
		cfg.Sanitize.MaxInputLength = DefaultMaxInputLength
	}

	if cfg.Audit.Dir == "" {
		cfg.Audit.Dir = DefaultAuditDir
	}
	if cfg.Audit.PreviewLength == 0 {
		cfg.Audit.PreviewLength = DefaultAuditPreviewLength
	}

	s := &cfg.Store
	if s.Driver == "" {
		s.Driver = DefaultStoreDriver
	}
	if s.Path == "" && s.Driver != "memory" {
		s.Path = DefaultStorePath
	}
	if s.BusyTimeout == 0 {
		s.BusyTimeout = DefaultStoreBusyTimeout
	}

	a := &cfg.Assistant
	if a.Model == "" {
		a.Model = DefaultAssistantModel
	}
	if a.ResponseTone == "" {
		a.ResponseTone = DefaultResponseTone
	}
	if a.HistoryLimit == 0 {
		a.HistoryLimit = DefaultHistoryLimit
	}
	if a.Timeout == 0 {
		a.Timeout = DefaultModelTimeout
	}

	srv := &cfg.Server
	if srv.ListenAddress == "" {
		srv.ListenAddress = DefaultServerListenAddress
	}
	if srv.ReadTimeout == 0 {
		srv.ReadTimeout = DefaultServerReadTimeout
	}
	if srv.WriteTimeout == 0 {
		srv.WriteTimeout = DefaultServerWriteTimeout
	}
	if srv.IdleTimeout == 0 {
		srv.IdleTimeout = DefaultServerIdleTimeout
	}
	if srv.ShutdownTimeout == 0 {
		srv.ShutdownTimeout = DefaultServerShutdownTimeout
	}
	if srv.MaxBodyBytes == 0 {
		srv.MaxBodyBytes = DefaultServerMaxBodyBytes
	}

	l := &cfg.Telemetry.Logging
	if l.Level == "" {
		l.Level = DefaultLoggingLevel
	}
	if l.Format == "" {
		l.Format = DefaultLoggingFormat
	}

	mc := &cfg.Telemetry.Metrics
	if mc.Namespace == "" {
		mc.Namespace = DefaultMetricsNamespace
	}
	if mc.Subsystem == "" {
		mc.Subsystem = DefaultMetricsSubsystem
	}
	if mc.ListenAddress == "" {
		mc.ListenAddress = DefaultMetricsAddress
	}
	if mc.Path == "" {
		mc.Path = DefaultMetricsPath
	}

	tc := &cfg.Telemetry.Tracing
	if tc.Sampler == "" {
		tc.Sampler = DefaultTracingSampler
	}
	if tc.SampleRatio == 0 {
		tc.SampleRatio = DefaultTracingRatio
	}
	if tc.Endpoint == "" {
		tc.Endpoint = DefaultTracingEndpoint
	}
	if tc.ServiceName == "" {
		tc.ServiceName = DefaultTracingService
	}
	if tc.Timeout == 0 {
		tc.Timeout = DefaultTracingTimeout
	}
}
