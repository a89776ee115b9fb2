package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"disputedesk-hq/guardrail/pkg/config"
	"disputedesk-hq/guardrail/pkg/telemetry/logging"
	"disputedesk-hq/guardrail/pkg/telemetry/metrics"
	"disputedesk-hq/guardrail/pkg/telemetry/tracing"
)

// Build identifies the running binary.
type Build struct {
	Version   string
	Commit    string
	BuildTime string
}

// Telemetry bundles the process-wide observability components.
type Telemetry struct {
	Logger  *slog.Logger
	Metrics *metrics.Collector
	Tracer  *tracing.Tracer
	Build   Build
}

// Option configures New.
type Option func(*options)

type options struct {
	logWriter io.Writer
	registry  *prometheus.Registry
	tracing   []tracing.Option
}

// WithLogWriter sends log output to w instead of stderr.
func WithLogWriter(w io.Writer) Option {
	return func(o *options) {
		o.logWriter = w
	}
}

// WithRegistry registers metrics on registry instead of a fresh one.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(o *options) {
		o.registry = registry
	}
}

// WithTracingOptions passes options to the tracer.
func WithTracingOptions(opts ...tracing.Option) Option {
	return func(o *options) {
		o.tracing = append(o.tracing, opts...)
	}
}

// New creates the logger, installs it as the slog default, and creates the
// metrics collector and tracer.
func New(cfg config.TelemetryConfig, build Build, opts ...Option) (*Telemetry, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	logCfg := logging.FromConfig(cfg.Logging)
	logCfg.Writer = o.logWriter
	logger, err := logging.Setup(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	tracerOpts := append([]tracing.Option{tracing.WithServiceVersion(build.Version), tracing.WithGlobal()}, o.tracing...)
	tracer, err := tracing.New(cfg.Tracing, tracerOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	return &Telemetry{
		Logger:  logger,
		Metrics: metrics.NewCollector(cfg.Metrics, o.registry),
		Tracer:  tracer,
		Build:   build,
	}, nil
}

// Shutdown flushes pending spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if err := t.Tracer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
	}
	return errors.Join(errs...)
}
