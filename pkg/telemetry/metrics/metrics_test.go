package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"disputedesk-hq/guardrail/pkg/config"
	"disputedesk-hq/guardrail/pkg/pii"
	"disputedesk-hq/guardrail/pkg/resilience/breaker"
	"disputedesk-hq/guardrail/pkg/resilience/ratelimit"
)

func testConfig() config.MetricsConfig {
	return config.MetricsConfig{
		Enabled:   true,
		Namespace: "test",
		Subsystem: "metrics",
	}
}

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	return NewCollector(testConfig(), prometheus.NewRegistry())
}

// ============================================================================
// Construction
// ============================================================================

func TestCollector_NewCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewCollector(testConfig(), registry)

	if collector.Registry() != registry {
		t.Error("collector registry not set correctly")
	}
	if !collector.Enabled() {
		t.Error("collector should be enabled")
	}
}

func TestCollector_DefaultNames(t *testing.T) {
	collector := NewCollector(config.MetricsConfig{Enabled: true}, nil)
	collector.ObserveExhausted(3)

	want := `
# HELP guardrail_core_retry_exhausted_total Operations that failed after every attempt
# TYPE guardrail_core_retry_exhausted_total counter
guardrail_core_retry_exhausted_total 1
`
	if err := testutil.GatherAndCompare(collector.Registry(), strings.NewReader(want), "guardrail_core_retry_exhausted_total"); err != nil {
		t.Error(err)
	}
}

// ============================================================================
// Resilience
// ============================================================================

func TestCollector_ObserveAcquire(t *testing.T) {
	c := newTestCollector(t)

	c.ObserveAcquire(true, 0)
	c.ObserveAcquire(true, 2*time.Second)
	c.ObserveAcquire(false, 30*time.Second)

	if got := testutil.ToFloat64(c.resilience.acquires.WithLabelValues("granted")); got != 2 {
		t.Errorf("granted = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.resilience.acquires.WithLabelValues("rejected")); got != 1 {
		t.Errorf("rejected = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(c.resilience.waits); got != 1 {
		t.Errorf("wait histogram series = %d, want 1", got)
	}
}

func TestCollector_BreakerMetrics(t *testing.T) {
	c := newTestCollector(t)

	c.ObserveStateChange("llm", breaker.StateClosed, breaker.StateOpen)
	if got := testutil.ToFloat64(c.resilience.breakerState.WithLabelValues("llm")); got != 1 {
		t.Errorf("state = %v, want 1 (open)", got)
	}

	c.ObserveStateChange("llm", breaker.StateOpen, breaker.StateHalfOpen)
	if got := testutil.ToFloat64(c.resilience.breakerState.WithLabelValues("llm")); got != 2 {
		t.Errorf("state = %v, want 2 (half_open)", got)
	}

	c.ObserveRejected("llm")
	c.ObserveRejected("llm")

	if got := testutil.ToFloat64(c.resilience.breakerTransitions.WithLabelValues("llm", "closed", "open")); got != 1 {
		t.Errorf("closed->open transitions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.resilience.breakerRejected.WithLabelValues("llm")); got != 2 {
		t.Errorf("rejected = %v, want 2", got)
	}
}

func TestCollector_RetryMetrics(t *testing.T) {
	c := newTestCollector(t)
	boom := errors.New("boom")

	tests := []struct {
		attempt int
		err     error
		kind    string
		result  string
	}{
		{1, boom, "first", "error"},
		{2, boom, "retry", "error"},
		{3, nil, "retry", "success"},
	}

	for _, tt := range tests {
		c.ObserveAttempt(tt.attempt, tt.err)
		if got := testutil.ToFloat64(c.resilience.retryAttempts.WithLabelValues(tt.kind, tt.result)); got < 1 {
			t.Errorf("attempt %d: %s/%s = %v, want >= 1", tt.attempt, tt.kind, tt.result, got)
		}
	}

	c.ObserveExhausted(3)
	if got := testutil.ToFloat64(c.resilience.retryExhausted); got != 1 {
		t.Errorf("exhausted = %v, want 1", got)
	}
}

// ============================================================================
// Privacy and turns
// ============================================================================

func TestCollector_PrivacyMetrics(t *testing.T) {
	c := newTestCollector(t)

	c.ObserveRedaction(pii.PassPattern, pii.KindCreditCard)
	c.ObserveRedaction(pii.PassEntity, pii.KindPerson)
	c.ObserveAuditWrite("user_input", nil)
	c.ObserveAuditWrite("user_input", errors.New("disk full"))
	c.ObserveAuditPruned(3)
	c.ObserveAuditPruned(0)

	if got := testutil.ToFloat64(c.privacy.redactions.WithLabelValues("pattern", "credit_card")); got != 1 {
		t.Errorf("pattern/credit_card = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.privacy.redactions.WithLabelValues("entity", "person")); got != 1 {
		t.Errorf("entity/person = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.privacy.auditWrites.WithLabelValues("user_input", "error")); got != 1 {
		t.Errorf("audit errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.privacy.auditPruned); got != 3 {
		t.Errorf("pruned = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.privacy.auditPruneRuns); got != 2 {
		t.Errorf("prune runs = %v, want 2", got)
	}
}

func TestCollector_TurnMetrics(t *testing.T) {
	c := newTestCollector(t)

	c.ObserveTurn("answered", 1200*time.Millisecond)
	c.ObserveTurn("off_topic", time.Millisecond)
	c.ObserveToolCall("find_transactions", nil)
	c.ObserveToolCall("flag_dispute", errors.New("duplicate"))

	if got := testutil.ToFloat64(c.turns.turns.WithLabelValues("answered")); got != 1 {
		t.Errorf("answered = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.turns.toolCalls.WithLabelValues("flag_dispute", "error")); got != 1 {
		t.Errorf("flag_dispute errors = %v, want 1", got)
	}
}

func TestCollector_ToolLabelCardinality(t *testing.T) {
	c := newTestCollector(t)

	for i := 0; i < maxToolLabels+5; i++ {
		c.ObserveToolCall("tool_"+strings.Repeat("x", i), nil)
	}

	if got := testutil.ToFloat64(c.turns.toolCalls.WithLabelValues("other", "ok")); got != 5 {
		t.Errorf("other = %v, want 5", got)
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	c := NewCollector(cfg, prometheus.NewRegistry())

	c.ObserveAcquire(true, 0)
	c.ObserveRejected("llm")
	c.ObserveAuditWrite("user_input", nil)
	c.ObserveTurn("answered", time.Second)

	if got := testutil.ToFloat64(c.resilience.acquires.WithLabelValues("granted")); got != 0 {
		t.Errorf("disabled collector recorded acquire: %v", got)
	}
	if got := testutil.ToFloat64(c.turns.turns.WithLabelValues("answered")); got != 0 {
		t.Errorf("disabled collector recorded turn: %v", got)
	}
}

// ============================================================================
// Wiring
// ============================================================================

func TestCollector_WiredIntoComponents(t *testing.T) {
	c := newTestCollector(t)

	limiter := ratelimit.New(1, time.Minute, ratelimit.WithObserver(c))
	if err := limiter.TryAcquire(); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	if err := limiter.TryAcquire(); err == nil {
		t.Fatal("second acquire should be rejected")
	}

	b := breaker.New(breaker.Config{Name: "llm", FailureThreshold: 1, RecoveryTimeout: time.Minute, HalfOpenRequests: 1},
		breaker.WithObserver(c))
	_ = b.Call(context.Background(), func(context.Context) error { return errors.New("down") })
	_ = b.Call(context.Background(), func(context.Context) error { return nil })

	if got := testutil.ToFloat64(c.resilience.acquires.WithLabelValues("rejected")); got != 1 {
		t.Errorf("limiter rejections = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.resilience.breakerRejected.WithLabelValues("llm")); got != 1 {
		t.Errorf("breaker rejections = %v, want 1", got)
	}
}

// ============================================================================
// HTTP
// ============================================================================

func TestCollector_Handler(t *testing.T) {
	c := newTestCollector(t)
	c.ObserveRejected("llm")

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `test_metrics_breaker_rejected_total{name="llm"} 1`) {
		t.Errorf("metrics output missing breaker counter:\n%s", body)
	}
}

func TestCollector_HandlerDisabled(t *testing.T) {
	c := NewCollector(config.MetricsConfig{Enabled: false}, nil)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCardinalityLimiter(t *testing.T) {
	cl := NewCardinalityLimiter(2)

	if !cl.Allow("a") || !cl.Allow("b") {
		t.Fatal("first two label sets should be allowed")
	}
	if cl.Allow("c") {
		t.Error("third label set should be rejected")
	}
	if !cl.Allow("a") {
		t.Error("known label set should stay allowed")
	}
	if cl.Count() != 2 {
		t.Errorf("Count() = %d, want 2", cl.Count())
	}
}
