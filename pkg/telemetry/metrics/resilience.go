package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"disputedesk-hq/guardrail/pkg/config"
	"disputedesk-hq/guardrail/pkg/resilience/breaker"
)

// ResilienceMetrics tracks the rate limiter, circuit breakers and retries.
//
// Metrics:
//   - guardrail_core_rate_limit_acquires_total: Admissions by result
//   - guardrail_core_rate_limit_wait_seconds: Time spent waiting for a slot
//   - guardrail_core_breaker_state: Current state (0=closed, 1=open, 2=half_open)
//   - guardrail_core_breaker_transitions_total: State changes
//   - guardrail_core_breaker_rejected_total: Calls refused while open
//   - guardrail_core_retry_attempts_total: Attempts by kind and result
//   - guardrail_core_retry_exhausted_total: Operations that ran out of attempts
type ResilienceMetrics struct {
	acquires *prometheus.CounterVec
	waits    prometheus.Histogram

	breakerState       *prometheus.GaugeVec
	breakerTransitions *prometheus.CounterVec
	breakerRejected    *prometheus.CounterVec

	retryAttempts  *prometheus.CounterVec
	retryExhausted prometheus.Counter
}

// NewResilienceMetrics creates and registers resilience metrics with the
// provided registry.
func NewResilienceMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *ResilienceMetrics {
	rm := &ResilienceMetrics{
		acquires: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rate_limit_acquires_total",
				Help:      "Rate limiter admission decisions by result",
			},
			[]string{"result"},
		),

		waits: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rate_limit_wait_seconds",
				Help:      "Time callers spent waiting for a rate limit slot",
				// Waits range from immediate to a full window.
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 30, 60},
			},
		),

		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=open, 2=half_open)",
			},
			[]string{"name"},
		),

		breakerTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "breaker_transitions_total",
				Help:      "Circuit breaker state transitions",
			},
			[]string{"name", "from", "to"},
		),

		breakerRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "breaker_rejected_total",
				Help:      "Calls rejected because the circuit was open",
			},
			[]string{"name"},
		),

		retryAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "retry_attempts_total",
				Help:      "Attempts made by the retry loop by kind (first, retry) and result",
			},
			[]string{"kind", "result"},
		),

		retryExhausted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "retry_exhausted_total",
				Help:      "Operations that failed after every attempt",
			},
		),
	}

	registry.MustRegister(
		rm.acquires,
		rm.waits,
		rm.breakerState,
		rm.breakerTransitions,
		rm.breakerRejected,
		rm.retryAttempts,
		rm.retryExhausted,
	)

	return rm
}

// RecordAcquire records one admission decision.
func (rm *ResilienceMetrics) RecordAcquire(granted bool, waited time.Duration) {
	result := "granted"
	if !granted {
		result = "rejected"
	}
	rm.acquires.WithLabelValues(result).Inc()
	rm.waits.Observe(waited.Seconds())
}

// RecordTransition records a breaker state change and updates the state
// gauge.
func (rm *ResilienceMetrics) RecordTransition(name string, from, to breaker.State) {
	rm.breakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
	rm.breakerState.WithLabelValues(name).Set(float64(to))
}

// RecordAttempt records one attempt of a retried operation.
func (rm *ResilienceMetrics) RecordAttempt(attempt int, err error) {
	kind := "first"
	if attempt > 1 {
		kind = "retry"
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	rm.retryAttempts.WithLabelValues(kind, result).Inc()
}
