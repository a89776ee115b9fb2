// Package telemetry wires structured logging, Prometheus metrics and
// OpenTelemetry tracing from one configuration section.
//
// # Components
//
//   - logging: slog handler with PII redaction and turn correlation
//   - metrics: Prometheus collector implementing every component observer
//   - tracing: OpenTelemetry spans per turn, LLM call and tool call
//   - health: liveness and readiness endpoints
//
// # Usage
//
//	tel, err := telemetry.New(cfg.Telemetry, telemetry.Build{Version: version})
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	limiter := ratelimit.New(rpm, window, ratelimit.WithObserver(tel.Metrics))
//	ctx, span := tel.Tracer.Start(ctx, tracing.SpanTurn)
//	defer span.End()
//
// New installs the logger as the slog default, so components that call
// slog.Default() pick up redaction without further wiring.
package telemetry
