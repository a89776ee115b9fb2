package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"disputedesk-hq/guardrail/pkg/assistant"
	"disputedesk-hq/guardrail/pkg/audit"
	"disputedesk-hq/guardrail/pkg/cli"
	"disputedesk-hq/guardrail/pkg/config"
	"disputedesk-hq/guardrail/pkg/llm/openai"
	"disputedesk-hq/guardrail/pkg/resilience/ratelimit"
	"disputedesk-hq/guardrail/pkg/server"
	"disputedesk-hq/guardrail/pkg/telemetry"
	"disputedesk-hq/guardrail/pkg/telemetry/health"
)

const (
	healthCheckTimeout  = 5 * time.Second
	probeRequestsPerMin = 600
)

var serveFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the guardrail API server",
	Long: `Start the HTTP API that runs user turns and tools through the guardrails.

Metrics, /health, /ready and /version are served on telemetry.metrics.listen_address,
or on the API address when that is empty. When a config file is given it is
watched and rate limits, tolerances and assistant settings are reloaded on change.

Examples:
  # Start with defaults and GUARDRAIL_* variables
  guardrail serve

  # Start with a config file
  guardrail serve --config /etc/guardrail/config.yaml

  # Override listen address
  guardrail serve --listen 0.0.0.0:8080

  # Validate config without starting
  guardrail serve --dry-run`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	serveCmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config without starting the server")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError(cfgFile, err)
	}
	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}
	if serveFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = serveFlags.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError(cfgFile, err)
	}

	out := cmd.OutOrStdout()
	if serveFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	tel, err := telemetry.New(cfg.Telemetry, telemetry.Build{Version: Version, Commit: GitCommit, BuildTime: BuildDate})
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(ctx); err != nil {
			slog.Warn("telemetry shutdown failed", "error", err)
		}
	}()
	collector := tel.Metrics

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

	st, err := openStore(cfg.Store)
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	defer st.Close()

	redactor := newRedactor(cfg.PII, collector)
	auditor, err := audit.NewWriter(audit.Config{
		Dir:           cfg.Audit.Dir,
		PreviewLength: cfg.Audit.PreviewLength,
		EntityPass:    cfg.PII.EntityPass,
	}, audit.WithRedactor(redactor), audit.WithObserver(collector))
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	defer auditor.Close()

	if cfg.Audit.RetentionDays > 0 && cfg.Audit.PruneSchedule != "" {
		scheduler := audit.NewScheduler(audit.NewPruner(audit.RetentionConfig{
			Dir:           cfg.Audit.Dir,
			RetentionDays: cfg.Audit.RetentionDays,
			PruneSchedule: cfg.Audit.PruneSchedule,
		}, audit.WithPruneObserver(collector)))
		if err := scheduler.Start(ctx); err != nil {
			slog.Warn("failed to start audit retention scheduler", "error", err)
		} else {
			defer scheduler.Stop()
		}
	}

	guard := newGuard(cfg.Resilience, collector)

	var turns *assistant.Assistant
	if cfg.Assistant.Endpoint != "" {
		model := openai.New(openai.Config{
			BaseURL: cfg.Assistant.Endpoint,
			APIKey:  cfg.Assistant.APIKey,
			Model:   cfg.Assistant.Model,
			Timeout: cfg.Assistant.Timeout,
		})
		turns = assistant.New(model, guard, auditor, assistant.ConfigFrom(cfg),
			assistant.WithRedactor(redactor),
			assistant.WithTracer(tel.Tracer),
			assistant.WithObserver(collector),
		)
	} else {
		slog.Warn("assistant.endpoint is not set, turn endpoints are disabled")
	}

	tools := assistant.NewTools(st, st, auditor, cfg.Matching,
		assistant.WithToolTracer(tel.Tracer),
		assistant.WithToolObserver(collector),
	)

	apiMux := http.NewServeMux()
	server.NewAPI(turns, tools).Register(apiMux)

	opsMux := apiMux
	if cfg.Telemetry.Metrics.ListenAddress != "" && cfg.Telemetry.Metrics.ListenAddress != cfg.Server.ListenAddress {
		opsMux = http.NewServeMux()
	}
	if collector.Enabled() {
		opsMux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
	}
	checker := health.New(healthCheckTimeout)
	checker.RegisterCheck("store", health.PingCheck(st))
	checker.RegisterAdvisory("circuit", health.BreakerCheck(guard.Breaker))
	checker.RegisterCheck("audit_dir", health.DirWritableCheck(cfg.Audit.Dir))
	health.Register(opsMux, checker, ratelimit.New(probeRequestsPerMin, time.Minute), Version, GitCommit, BuildDate)

	servers := []*server.Server{
		server.New(server.ConfigFrom("api", cfg.Server), server.Wrap(apiMux, cfg.Server.MaxBodyBytes)),
	}
	if opsMux != apiMux {
		opsCfg := server.ConfigFrom("ops", cfg.Server)
		opsCfg.ListenAddress = cfg.Telemetry.Metrics.ListenAddress
		servers = append(servers, server.New(opsCfg, opsMux))
	}

	if cfgFile != "" {
		watcher, err := config.NewWatcher(cfgFile, cfg, 0)
		if err != nil {
			slog.Warn("config hot reload unavailable", "error", err)
		} else {
			defer watcher.Stop()
			go func() {
				if err := watcher.Watch(ctx, func(next *config.Config) {
					applyReload(next, guard.Limiter, tools, turns)
				}); err != nil {
					slog.Error("config watcher failed", "error", err)
				}
			}()
		}
	}

	fmt.Fprintf(out, "Guardrail %s\n", Version)
	fmt.Fprintf(out, "✓ Store ready (%s)\n", cfg.Store.Driver)
	fmt.Fprintf(out, "✓ Audit log in %s\n", cfg.Audit.Dir)
	for _, line := range serverAddresses(cfg, opsMux != apiMux) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	if err := runServers(ctx, servers); err != nil {
		return cli.NewCommandError("serve", err)
	}
	fmt.Fprintln(out, "✓ Server stopped")
	return nil
}

// applyReload pushes the settings that can change without a restart.
// Listen addresses, the store and the audit directory need a restart.
func applyReload(cfg *config.Config, limiter *ratelimit.Limiter, tools *assistant.Tools, turns *assistant.Assistant) {
	limiter.SetCapacity(cfg.Resilience.RateLimitRPM)
	tools.SetMatching(cfg.Matching)
	if turns != nil {
		turns.SetConfig(assistant.ConfigFrom(cfg))
	}
	slog.Info("runtime settings reloaded",
		"rate_limit_rpm", cfg.Resilience.RateLimitRPM,
		"amount_tolerance_percent", cfg.Matching.AmountTolerancePercent,
		"date_tolerance_days", cfg.Matching.DateToleranceDays,
	)
}

func serverAddresses(cfg *config.Config, separateOps bool) []string {
	ops := cfg.Server.ListenAddress
	if separateOps {
		ops = cfg.Telemetry.Metrics.ListenAddress
	}
	lines := []string{
		fmt.Sprintf("✓ API listening on %s", cfg.Server.ListenAddress),
		fmt.Sprintf("✓ Health endpoint: http://%s/health", ops),
	}
	if cfg.Telemetry.Metrics.Enabled {
		lines = append(lines, fmt.Sprintf("✓ Metrics endpoint: http://%s%s", ops, cfg.Telemetry.Metrics.Path))
	}
	return lines
}

// runServers starts every server and returns once ctx is done and all of
// them have shut down, or as soon as one fails. A failure cancels the rest.
func runServers(ctx context.Context, servers []*server.Server) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, srv := range servers {
		wg.Add(1)
		go func(srv *server.Server) {
			defer wg.Done()
			if err := srv.Start(ctx); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				cancel()
			}
		}(srv)
	}
	wg.Wait()
	return errors.Join(errs...)
}
