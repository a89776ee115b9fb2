package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"disputedesk-hq/guardrail/pkg/config"
	"disputedesk-hq/guardrail/pkg/llm/openai"
	"disputedesk-hq/guardrail/pkg/pii"
	"disputedesk-hq/guardrail/pkg/resilience"
	"disputedesk-hq/guardrail/pkg/resilience/breaker"
	"disputedesk-hq/guardrail/pkg/resilience/ratelimit"
	"disputedesk-hq/guardrail/pkg/resilience/retry"
	"disputedesk-hq/guardrail/pkg/store"
	"disputedesk-hq/guardrail/pkg/telemetry/metrics"
)

// backend is what serve and match need from a store.
type backend interface {
	store.Repository
	store.DisputeStore
	Ping(ctx context.Context) error
	Close() error
}

// openStore opens the configured repository. The SQLite drivers create the
// database directory when it is missing.
func openStore(cfg config.StoreConfig) (backend, error) {
	switch cfg.Driver {
	case "memory":
		return store.NewMemoryStore(), nil
	case store.DriverModernc, store.DriverMattn:
		if dir := filepath.Dir(cfg.Path); cfg.Path != ":memory:" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		return store.NewSQLiteStore(store.SQLiteConfig{
			Driver:      cfg.Driver,
			Path:        cfg.Path,
			BusyTimeout: cfg.BusyTimeout,
		})
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
}

// newRedactor builds the redactor described by cfg. A nil collector
// records nothing.
func newRedactor(cfg config.PIIConfig, collector *metrics.Collector) *pii.Redactor {
	var opts []pii.RedactorOption
	if collector != nil {
		opts = append(opts, pii.WithObserver(collector))
	}
	if !cfg.EntityPass {
		return pii.NewRedactor(nil, opts...)
	}

	engineOpts := []pii.EngineOption{pii.WithMinScore(cfg.MinScore)}
	if cfg.NER {
		tagger, err := pii.NewProseTagger()
		if err != nil {
			slog.Warn("named-entity tagger unavailable, person and location names rely on heuristics", "error", err)
		} else {
			engineOpts = append(engineOpts, pii.WithTagger(tagger))
		}
	}
	return pii.NewRedactor(pii.NewEngine(engineOpts...), opts...)
}

// newGuard builds the limiter, breaker and retrier for model calls.
func newGuard(cfg config.ResilienceConfig, collector *metrics.Collector) resilience.Guard {
	return resilience.Guard{
		Limiter: ratelimit.New(cfg.RateLimitRPM, cfg.RateLimitWindow,
			ratelimit.WithObserver(collector)),
		Breaker: breaker.New(breaker.Config{
			Name:             "llm",
			FailureThreshold: cfg.CircuitBreakerThreshold,
			RecoveryTimeout:  cfg.CircuitBreakerRecoveryTimeout,
			HalfOpenRequests: cfg.CircuitBreakerHalfOpenRequests,
		}, breaker.WithObserver(collector)),
		Retrier: retry.New(retry.Policy{
			MaxAttempts: cfg.MaxRetries,
			BackoffBase: cfg.RetryBackoffBase,
			Retryable:   openai.Retryable,
		}, retry.WithObserver(collector)),
		Block:          cfg.BlockOnRateLimit,
		AcquireTimeout: cfg.AcquireTimeout,
	}
}
