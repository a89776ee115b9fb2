package health

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"

	"disputedesk-hq/guardrail/pkg/resilience/ratelimit"
)

// VersionInfo is the body of /version.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// probe produces a status code and JSON body for one endpoint.
type probe func(ctx context.Context) (int, any)

func (p probe) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	code, body := p(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if r.Method == http.MethodHead {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// LivenessHandler answers 200 while the process is up.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return probe(func(ctx context.Context) (int, any) {
		return http.StatusOK, c.CheckLiveness(ctx)
	}).ServeHTTP
}

// ReadinessHandler runs the checks and answers 503 when a critical one
// fails.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return probe(func(ctx context.Context) (int, any) {
		status := c.CheckReadiness(ctx)
		if !status.Ready() {
			return http.StatusServiceUnavailable, status
		}
		return http.StatusOK, status
	}).ServeHTTP
}

// VersionHandler reports build information.
func VersionHandler(version, commit, buildTime string) http.HandlerFunc {
	info := VersionInfo{Version: version, Commit: commit, BuildTime: buildTime, GoVersion: runtime.Version()}
	return probe(func(context.Context) (int, any) {
		return http.StatusOK, info
	}).ServeHTTP
}

// LimitedHandler answers 429 while limiter has no free slot. A nil limiter
// leaves handler unthrottled.
func LimitedHandler(handler http.HandlerFunc, limiter *ratelimit.Limiter) http.HandlerFunc {
	if limiter == nil {
		return handler
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if limiter.TryAcquire() != nil {
			w.Header().Set("Retry-After", "1")
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		handler(w, r)
	}
}

// Register mounts GET (and HEAD) /health, /ready and /version on mux; other
// methods get 405 from the mux. All three share limiter, which may be nil.
func Register(mux *http.ServeMux, c *Checker, limiter *ratelimit.Limiter, version, commit, buildTime string) {
	routes := map[string]http.HandlerFunc{
		"GET /health":  c.LivenessHandler(),
		"GET /ready":   c.ReadinessHandler(),
		"GET /version": VersionHandler(version, commit, buildTime),
	}
	for pattern, h := range routes {
		mux.HandleFunc(pattern, LimitedHandler(h, limiter))
	}
}
