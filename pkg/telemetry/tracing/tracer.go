package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc/credentials/insecure"

	"disputedesk-hq/guardrail/pkg/config"
)

const scope = "disputedesk-hq/guardrail"

// Tracer starts the turn, model and tool spans. The zero provider means
// tracing is off and every span is a no-op.
type Tracer struct {
	trace.Tracer
	provider *sdktrace.TracerProvider
}

// Option configures New.
type Option func(*settings)

type settings struct {
	exporter sdktrace.SpanExporter
	version  string
	global   bool
}

// WithExporter exports spans synchronously to exp instead of OTLP.
func WithExporter(exp sdktrace.SpanExporter) Option {
	return func(s *settings) { s.exporter = exp }
}

// WithServiceVersion sets service.version on every span.
func WithServiceVersion(version string) Option {
	return func(s *settings) { s.version = version }
}

// WithGlobal also registers the provider and a W3C trace context
// propagator with the otel package.
func WithGlobal() Option {
	return func(s *settings) { s.global = true }
}

// Noop returns a tracer that records nothing.
func Noop() *Tracer {
	return &Tracer{Tracer: noop.NewTracerProvider().Tracer(scope)}
}

// New builds a tracer from cfg. A disabled config yields Noop. Callers own
// Shutdown.
func New(cfg config.TracingConfig, opts ...Option) (*Tracer, error) {
	if !cfg.Enabled {
		return Noop(), nil
	}
	s := settings{version: "dev"}
	for _, opt := range opts {
		opt(&s)
	}

	sampler, err := samplerFor(cfg)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}
	res, err := resource.New(context.Background(), resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(s.version),
	))
	if err != nil {
		return nil, fmt.Errorf("tracing: resource: %w", err)
	}

	var export sdktrace.TracerProviderOption
	if s.exporter != nil {
		export = sdktrace.WithSyncer(s.exporter)
	} else {
		exp, err := otlpExporter(cfg)
		if err != nil {
			return nil, err
		}
		export = sdktrace.WithBatcher(exp)
	}
	provider := sdktrace.NewTracerProvider(sdktrace.WithResource(res), sdktrace.WithSampler(sampler), export)

	if s.global {
		otel.SetTracerProvider(provider)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	}
	return &Tracer{Tracer: provider.Tracer(scope), provider: provider}, nil
}

// otlpExporter dials lazily, so an unreachable collector does not fail
// startup; spans are dropped until it comes up.
func otlpExporter(cfg config.TracingConfig) (*otlptrace.Exporter, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, otlptracegrpc.WithTimeout(cfg.Timeout))
	}
	exp, err := otlptrace.New(context.Background(), otlptracegrpc.NewClient(opts...))
	if err != nil {
		return nil, fmt.Errorf("tracing: otlp exporter for %s: %w", cfg.Endpoint, err)
	}
	return exp, nil
}

// Enabled reports whether spans are recorded and exported.
func (t *Tracer) Enabled() bool { return t.provider != nil }

// Shutdown flushes buffered spans.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// TraceID returns the hex trace id of the span in ctx, or "".
func TraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// SpanID returns the hex span id of the span in ctx, or "".
func SpanID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasSpanID() {
		return sc.SpanID().String()
	}
	return ""
}
