// Package metrics provides Prometheus metrics for the guardrail layer.
//
// # Overview
//
// Collector implements the observer interface of every guarded component,
// so one instance is handed to the rate limiter, the circuit breaker, the
// retry loop, the PII redactor, the audit writer and the assistant:
//
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//	limiter := ratelimit.New(cfg.Resilience.RateLimitRPM, time.Minute, ratelimit.WithObserver(collector))
//	b := breaker.New(breaker.Config{...}, breaker.WithObserver(collector))
//
// # Metrics Categories
//
//   - Resilience: rate limiter admissions and waits, breaker state and
//     transitions, retry attempts and exhaustion
//   - Privacy: redacted spans by pass and kind, audit writes and pruned
//     partitions
//   - Turns: handled turns by outcome and duration, tool calls by tool
//
// # Exposition
//
// Handler serves the collector's registry in the Prometheus text or
// OpenMetrics format:
//
//	http.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// No metric carries user text or identifiers as a label.
package metrics
