package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"disputedesk-hq/guardrail/pkg/config"
)

// PrivacyMetrics tracks PII redaction and the audit log.
//
// Metrics:
//   - guardrail_core_pii_redactions_total: Redacted spans by pass and kind
//   - guardrail_core_audit_writes_total: Audit appends by event and status
//   - guardrail_core_audit_pruned_partitions_total: Partitions removed by retention
//   - guardrail_core_audit_prune_runs_total: Retention runs
type PrivacyMetrics struct {
	redactions     *prometheus.CounterVec
	auditWrites    *prometheus.CounterVec
	auditPruned    prometheus.Counter
	auditPruneRuns prometheus.Counter
}

// NewPrivacyMetrics creates and registers privacy metrics with the provided
// registry.
func NewPrivacyMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *PrivacyMetrics {
	pm := &PrivacyMetrics{
		redactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "pii_redactions_total",
				Help:      "Redacted PII spans by pass (pattern, entity) and kind",
			},
			[]string{"pass", "kind"},
		),

		auditWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "audit_writes_total",
				Help:      "Audit log appends by event and status",
			},
			[]string{"event", "status"},
		),

		auditPruned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "audit_pruned_partitions_total",
				Help:      "Audit partitions removed by retention",
			},
		),

		auditPruneRuns: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "audit_prune_runs_total",
				Help:      "Completed audit retention runs",
			},
		),
	}

	registry.MustRegister(
		pm.redactions,
		pm.auditWrites,
		pm.auditPruned,
		pm.auditPruneRuns,
	)

	return pm
}

// RecordAuditWrite records one audit append.
func (pm *PrivacyMetrics) RecordAuditWrite(event string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	pm.auditWrites.WithLabelValues(event, status).Inc()
}
