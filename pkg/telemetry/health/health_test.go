package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"disputedesk-hq/guardrail/pkg/resilience/breaker"
	"disputedesk-hq/guardrail/pkg/resilience/ratelimit"
	"disputedesk-hq/guardrail/pkg/store"
)

// ============================================================================
// Checker
// ============================================================================

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		want    time.Duration
	}{
		{"default timeout", 0, 5 * time.Second},
		{"custom timeout", 10 * time.Second, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if c := New(tt.timeout); c.timeout != tt.want {
				t.Errorf("timeout = %v, want %v", c.timeout, tt.want)
			}
		})
	}
}

func TestChecker_RegisterAndList(t *testing.T) {
	c := New(time.Second)
	c.RegisterCheck("store", func(context.Context) error { return nil })
	c.RegisterCheck("audit_dir", func(context.Context) error { return nil })
	c.UnregisterCheck("missing")

	names := c.ListChecks()
	if len(names) != 2 || names[0] != "audit_dir" || names[1] != "store" {
		t.Errorf("ListChecks() = %v", names)
	}

	c.UnregisterCheck("store")
	if len(c.ListChecks()) != 1 {
		t.Errorf("expected 1 check after unregister, got %v", c.ListChecks())
	}
}

func TestChecker_CheckReadiness(t *testing.T) {
	tests := []struct {
		name     string
		checks   map[string]CheckFunc
		advisory map[string]CheckFunc
		want     string
	}{
		{"no checks", nil, nil, StatusReady},
		{
			"all healthy",
			map[string]CheckFunc{
				"a": func(context.Context) error { return nil },
				"b": func(context.Context) error { return nil },
			},
			nil,
			StatusReady,
		},
		{
			"critical failing",
			map[string]CheckFunc{
				"a": func(context.Context) error { return nil },
				"b": func(context.Context) error { return errors.New("down") },
			},
			map[string]CheckFunc{"circuit": func(context.Context) error { return errors.New("open") }},
			StatusUnhealthy,
		},
		{
			"advisory failing",
			map[string]CheckFunc{"a": func(context.Context) error { return nil }},
			map[string]CheckFunc{"circuit": func(context.Context) error { return errors.New("open") }},
			StatusDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(time.Second)
			for name, check := range tt.checks {
				c.RegisterCheck(name, check)
			}
			for name, check := range tt.advisory {
				c.RegisterAdvisory(name, check)
			}

			status := c.CheckReadiness(context.Background())
			if status.Status != tt.want {
				t.Errorf("status = %s, want %s", status.Status, tt.want)
			}
			if len(status.Checks) != len(tt.checks)+len(tt.advisory) {
				t.Errorf("got %d results", len(status.Checks))
			}
			if status.Ready() != (tt.want != StatusUnhealthy) {
				t.Errorf("Ready() = %v for %s", status.Ready(), status.Status)
			}
		})
	}
}

func TestChecker_CheckTimeout(t *testing.T) {
	c := New(20 * time.Millisecond)
	c.RegisterCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return nil
	})

	status := c.CheckReadiness(context.Background())
	result := status.Checks["slow"]
	if result.Status != StatusUnhealthy || result.Message != ErrCheckTimeout.Error() {
		t.Errorf("slow check = %+v", result)
	}
}

// ============================================================================
// Component checks
// ============================================================================

func TestBreakerCheck(t *testing.T) {
	b := breaker.New(breaker.Config{Name: "llm", FailureThreshold: 1, RecoveryTimeout: time.Minute, HalfOpenRequests: 1})
	check := BreakerCheck(b)

	if err := check(context.Background()); err != nil {
		t.Fatalf("closed breaker should be healthy: %v", err)
	}

	_ = b.Call(context.Background(), func(context.Context) error { return errors.New("upstream down") })
	if err := check(context.Background()); err == nil {
		t.Error("open breaker should be unhealthy")
	}
}

func TestPingCheck(t *testing.T) {
	st := store.NewMemoryStore()
	if err := PingCheck(st)(context.Background()); err != nil {
		t.Errorf("memory store ping = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := PingCheck(st)(ctx); err == nil {
		t.Error("cancelled ping should fail")
	}
}

func TestDirWritableCheck(t *testing.T) {
	if err := DirWritableCheck(t.TempDir())(context.Background()); err != nil {
		t.Errorf("temp dir should be writable: %v", err)
	}
	missing := filepath.Join(t.TempDir(), "missing")
	if err := DirWritableCheck(missing)(context.Background()); err == nil {
		t.Error("missing dir should fail")
	}
}

// ============================================================================
// HTTP
// ============================================================================

func TestHandlers(t *testing.T) {
	c := New(time.Second)
	failing := false
	c.RegisterCheck("store", func(context.Context) error {
		if failing {
			return errors.New("unreachable")
		}
		return nil
	})

	mux := http.NewServeMux()
	Register(mux, c, nil, "1.2.3", "abc123", "2025-01-15")

	tests := []struct {
		name     string
		method   string
		path     string
		failing  bool
		wantCode int
	}{
		{"liveness", http.MethodGet, "/health", false, http.StatusOK},
		{"readiness ok", http.MethodGet, "/ready", false, http.StatusOK},
		{"readiness failing", http.MethodGet, "/ready", true, http.StatusServiceUnavailable},
		{"version", http.MethodGet, "/version", false, http.StatusOK},
		{"head liveness", http.MethodHead, "/health", false, http.StatusOK},
		{"post rejected", http.MethodPost, "/health", false, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failing = tt.failing
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestVersionHandler_Body(t *testing.T) {
	rec := httptest.NewRecorder()
	VersionHandler("1.2.3", "abc123", "2025-01-15")(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var info VersionInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	if info.Version != "1.2.3" || info.Commit != "abc123" || info.GoVersion == "" {
		t.Errorf("version info = %+v", info)
	}
}

func TestLimitedHandler(t *testing.T) {
	limiter := ratelimit.New(2, time.Minute)
	h := LimitedHandler(New(0).LivenessHandler(), limiter)

	codes := make([]int, 3)
	for i := range codes {
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		codes[i] = rec.Code
	}

	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("request %d status = %d, want %d", i, codes[i], want[i])
		}
	}
}
