package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"disputedesk-hq/guardrail/pkg/config"
)

// TurnMetrics tracks conversation turns and tool calls.
//
// Metrics:
//   - guardrail_core_turns_total: Turns by outcome
//   - guardrail_core_turn_duration_seconds: Turn latency by outcome
//   - guardrail_core_tool_calls_total: Tool executions by tool and status
type TurnMetrics struct {
	turns        *prometheus.CounterVec
	turnDuration *prometheus.HistogramVec
	toolCalls    *prometheus.CounterVec
}

// NewTurnMetrics creates and registers turn metrics with the provided
// registry.
func NewTurnMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *TurnMetrics {
	tm := &TurnMetrics{
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "turns_total",
				Help:      "Conversation turns by outcome",
			},
			[]string{"outcome"},
		),

		turnDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "turn_duration_seconds",
				Help:      "Turn latency in seconds",
				// LLM turns take 100ms to 30s.
				Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
			},
			[]string{"outcome"},
		),

		toolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "tool_calls_total",
				Help:      "Tool executions by tool and status",
			},
			[]string{"tool", "status"},
		),
	}

	registry.MustRegister(
		tm.turns,
		tm.turnDuration,
		tm.toolCalls,
	)

	return tm
}

// RecordTurn records one handled turn.
func (tm *TurnMetrics) RecordTurn(outcome string, duration time.Duration) {
	tm.turns.WithLabelValues(outcome).Inc()
	tm.turnDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordToolCall records one tool execution.
func (tm *TurnMetrics) RecordToolCall(tool string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	tm.toolCalls.WithLabelValues(tool, status).Inc()
}
