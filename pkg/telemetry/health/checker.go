package health

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// Overall and per-check status values.
const (
	StatusOK        = "ok"
	StatusReady     = "ready"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

const defaultCheckTimeout = 5 * time.Second

// ErrCheckTimeout is reported for a check that outlives the check timeout.
var ErrCheckTimeout = errors.New("health check timeout")

// CheckFunc returns nil when the component is usable.
type CheckFunc func(ctx context.Context) error

// CheckResult is the outcome of one check.
type CheckResult struct {
	Status   string        `json:"status"`
	Message  string        `json:"message,omitempty"`
	Advisory bool          `json:"advisory,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// HealthStatus is the body of /health and /ready.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Ready reports whether the instance should receive traffic. A degraded
// instance is still ready: only advisory checks failed.
func (s HealthStatus) Ready() bool {
	switch s.Status {
	case StatusOK, StatusReady, StatusDegraded:
		return true
	}
	return false
}

type registration struct {
	check    CheckFunc
	advisory bool
}

// Checker runs readiness checks. Critical checks take the instance out of
// rotation when they fail; advisory checks only mark it degraded.
type Checker struct {
	timeout time.Duration
	now     func() time.Time

	mu     sync.RWMutex
	checks map[string]registration
}

// New returns a checker that gives each check timeout to finish, 5s when
// zero.
func New(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}
	return &Checker{timeout: timeout, now: time.Now, checks: make(map[string]registration)}
}

// RegisterCheck adds or replaces a critical check.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.register(name, registration{check: check})
}

// RegisterAdvisory adds or replaces a check whose failure degrades the
// instance without making it unready, such as an open circuit to the model.
func (c *Checker) RegisterAdvisory(name string, check CheckFunc) {
	c.register(name, registration{check: check, advisory: true})
}

func (c *Checker) register(name string, r registration) {
	c.mu.Lock()
	c.checks[name] = r
	c.mu.Unlock()
}

func (c *Checker) UnregisterCheck(name string) {
	c.mu.Lock()
	delete(c.checks, name)
	c.mu.Unlock()
}

// ListChecks returns the registered names in order.
func (c *Checker) ListChecks() []string {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	c.mu.RUnlock()
	sort.Strings(names)
	return names
}

// CheckLiveness reports that the process can answer at all.
func (c *Checker) CheckLiveness(context.Context) HealthStatus {
	return HealthStatus{Status: StatusOK, Timestamp: c.now()}
}

// CheckReadiness runs every check in parallel and folds the results:
// unhealthy if a critical check failed, degraded if only advisory ones did.
func (c *Checker) CheckReadiness(ctx context.Context) HealthStatus {
	c.mu.RLock()
	regs := make(map[string]registration, len(c.checks))
	for name, r := range c.checks {
		regs[name] = r
	}
	c.mu.RUnlock()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[string]CheckResult, len(regs))
	)
	for name, r := range regs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := c.run(ctx, r.check)
			res.Advisory = r.advisory
			mu.Lock()
			results[name] = res
			mu.Unlock()
		}()
	}
	wg.Wait()

	status := StatusReady
	for _, res := range results {
		if res.Status != StatusUnhealthy {
			continue
		}
		if !res.Advisory {
			status = StatusUnhealthy
			break
		}
		status = StatusDegraded
	}
	return HealthStatus{Status: status, Checks: results, Timestamp: c.now()}
}

// run executes check on its own goroutine so a check that ignores its
// context still cannot hold the probe past the timeout.
func (c *Checker) run(ctx context.Context, check CheckFunc) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() { done <- check(ctx) }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ErrCheckTimeout
	}

	res := CheckResult{Status: StatusOK, Duration: time.Since(start)}
	if err != nil {
		res.Status = StatusUnhealthy
		res.Message = err.Error()
	}
	return res
}
