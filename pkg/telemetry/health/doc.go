// Package health provides liveness and readiness endpoints for the serve
// command.
//
// # Endpoints
//
//   - /health: Liveness probe, always ok while the process runs
//   - /ready: Readiness probe, runs every registered check
//   - /version: Build information
//
// # Checks
//
// A failing critical check makes /ready answer 503. A failing advisory
// check only reports the instance as degraded:
//
//	checker := health.New(5 * time.Second)
//	checker.RegisterCheck("store", health.PingCheck(st))
//	checker.RegisterCheck("audit_dir", health.DirWritableCheck(cfg.Audit.Dir))
//	checker.RegisterAdvisory("circuit", health.BreakerCheck(b))
//
// An open circuit is advisory: every replica shares the same model endpoint,
// and tool calls keep working while the breaker recovers.
//
// Probe handlers are throttled by a sliding-window limiter so a
// misconfigured prober cannot turn readiness checks into store load.
package health
