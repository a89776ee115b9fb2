package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"disputedesk-hq/guardrail/pkg/config"
	"disputedesk-hq/guardrail/pkg/pii"
	"disputedesk-hq/guardrail/pkg/resilience/breaker"
)

// maxToolLabels bounds the tool label on tool call metrics.
const maxToolLabels = 64

// Collector owns the registry and every metric of the process. All methods
// are safe for concurrent use and do nothing when metrics are disabled.
type Collector struct {
	on       bool
	registry *prometheus.Registry

	resilience *ResilienceMetrics
	privacy    *PrivacyMetrics
	turns      *TurnMetrics

	toolLabels *CardinalityLimiter
}

// NewCollector creates a collector. If registry is nil a fresh registry is
// created.
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}

	return &Collector{
		on:         cfg.Enabled,
		registry:   registry,
		resilience: NewResilienceMetrics(cfg, registry),
		privacy:    NewPrivacyMetrics(cfg, registry),
		turns:      NewTurnMetrics(cfg, registry),
		toolLabels: NewCardinalityLimiter(maxToolLabels),
	}
}

// Enabled reports whether the collector records anything.
func (c *Collector) Enabled() bool {
	return c.on
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveAcquire records a rate limiter admission decision.
func (c *Collector) ObserveAcquire(granted bool, waited time.Duration) {
	if !c.on {
		return
	}
	c.resilience.RecordAcquire(granted, waited)
}

// ObserveStateChange records a circuit breaker transition.
func (c *Collector) ObserveStateChange(name string, from, to breaker.State) {
	if !c.on {
		return
	}
	c.resilience.RecordTransition(name, from, to)
}

// ObserveRejected records a call refused by an open breaker.
func (c *Collector) ObserveRejected(name string) {
	if !c.on {
		return
	}
	c.resilience.breakerRejected.WithLabelValues(name).Inc()
}

// ObserveAttempt records one retry attempt and its outcome.
func (c *Collector) ObserveAttempt(attempt int, err error) {
	if !c.on {
		return
	}
	c.resilience.RecordAttempt(attempt, err)
}

// ObserveExhausted records a retry loop that ran out of attempts.
func (c *Collector) ObserveExhausted(attempts int) {
	if !c.on {
		return
	}
	c.resilience.retryExhausted.Inc()
}

// ObserveRedaction records one redacted span.
func (c *Collector) ObserveRedaction(pass string, kind pii.Kind) {
	if !c.on {
		return
	}
	c.privacy.redactions.WithLabelValues(pass, string(kind)).Inc()
}

// ObserveAuditWrite records an audit log append.
func (c *Collector) ObserveAuditWrite(event string, err error) {
	if !c.on {
		return
	}
	c.privacy.RecordAuditWrite(event, err)
}

// ObserveAuditPruned records a retention run.
func (c *Collector) ObserveAuditPruned(removed int) {
	if !c.on {
		return
	}
	c.privacy.auditPruned.Add(float64(removed))
	c.privacy.auditPruneRuns.Inc()
}

// ObserveTurn records a handled conversation turn.
func (c *Collector) ObserveTurn(outcome string, duration time.Duration) {
	if !c.on {
		return
	}
	c.turns.RecordTurn(outcome, duration)
}

// ObserveToolCall records a tool execution.
func (c *Collector) ObserveToolCall(tool string, err error) {
	if !c.on {
		return
	}
	if !c.toolLabels.Allow(tool) {
		tool = "other"
	}
	c.turns.RecordToolCall(tool, err)
}

// CardinalityLimiter admits at most a fixed number of distinct label
// values. Values seen before the limit was hit stay admitted.
type CardinalityLimiter struct {
	limit int

	mu   sync.Mutex
	seen map[string]struct{}
}

func NewCardinalityLimiter(limit int) *CardinalityLimiter {
	return &CardinalityLimiter{limit: limit, seen: make(map[string]struct{})}
}

// Allow reports whether value may be used as a label.
func (l *CardinalityLimiter) Allow(value string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seen[value]; ok {
		return true
	}
	if len(l.seen) >= l.limit {
		return false
	}
	l.seen[value] = struct{}{}
	return true
}

// Count returns the number of admitted values.
func (l *CardinalityLimiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}
