// Package tracing provides OpenTelemetry tracing for conversation turns.
//
// # Overview
//
// A Tracer wraps an OpenTelemetry TracerProvider configured from the
// telemetry.tracing section. When tracing is disabled every span is a
// no-op and costs almost nothing, so callers start spans unconditionally.
//
// # Spans
//
// The assistant records one span tree per turn:
//
//	guardrail.turn
//	├── guardrail.llm.invoke
//	└── guardrail.tool (one per tool call)
//
// Span attributes never carry user text. Identifiers are the hashed user
// id and the turn id shared with the audit log; error messages are passed
// through the PII pattern pass before they are recorded.
//
// # Export
//
// Spans are batched to an OTLP gRPC collector:
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    endpoint: localhost:4317
//	    insecure: true
//	    sampler: ratio
//	    sample_ratio: 0.1
//
// Tests pass their own exporter with WithExporter.
package tracing
