package metrics

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the collector's registry in the Prometheus text or
// OpenMetrics format. A disabled collector answers 404 so a scrape target
// left in place after metrics are turned off fails loudly.
func (c *Collector) Handler() http.Handler {
	if !c.Enabled() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
		ErrorLog:          exposeLogger{},
	})
}

// exposeLogger sends promhttp errors to slog.
type exposeLogger struct{}

func (exposeLogger) Println(v ...any) {
	slog.Warn("metrics exposition error", "component", "metrics", "error", fmt.Sprint(v...))
}
