package audit

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RetentionConfig contains configuration for the retention pruner.
type RetentionConfig struct {
	// Dir holds the partition files.
	Dir string

	// RetentionDays is the number of days to retain partitions.
	// 0 means keep them forever.
	RetentionDays int

	// PruneSchedule is a cron expression for scheduling pruning.
	// Example: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string
}

// PruneObserver receives the number of partitions removed per run.
type PruneObserver interface {
	ObserveAuditPruned(removed int)
}

// Pruner deletes partitions older than the retention period.
type Pruner struct {
	config   RetentionConfig
	now      func() time.Time
	observer PruneObserver
	logger   *slog.Logger
}

// PrunerOption configures a Pruner.
type PrunerOption func(*Pruner)

// WithPruneClock sets the time source that defines "today".
func WithPruneClock(now func() time.Time) PrunerOption {
	return func(p *Pruner) {
		p.now = now
	}
}

// WithPruneObserver attaches an observer.
func WithPruneObserver(o PruneObserver) PrunerOption {
	return func(p *Pruner) {
		p.observer = o
	}
}

// NewPruner creates a retention pruner.
func NewPruner(cfg RetentionConfig, opts ...PrunerOption) *Pruner {
	if cfg.Dir == "" {
		cfg.Dir = DefaultDir
	}
	p := &Pruner{
		config: cfg,
		now:    time.Now,
		logger: slog.Default().With("component", "audit.retention"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Partitions lists the partition files in dir, oldest first.
func Partitions(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := partitionDay(e.Name()); ok {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// partitionDay parses the day encoded in a partition file name.
func partitionDay(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return time.Time{}, false
	}
	day, err := time.Parse(dayLayout, strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix))
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}

// Expired returns the partition paths whose day is more than
// retentionDays before now's UTC day. Non-partition paths are skipped and a
// non-positive retention expires nothing.
func Expired(paths []string, retentionDays int, now time.Time) []string {
	if retentionDays <= 0 {
		return nil
	}
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	cutoff := today.AddDate(0, 0, -retentionDays)

	var out []string
	for _, path := range paths {
		day, ok := partitionDay(filepath.Base(path))
		if ok && day.Before(cutoff) {
			out = append(out, path)
		}
	}
	return out
}

// Prune removes partitions whose day is more than RetentionDays before
// today and returns how many were removed. Today's partition is never
// removed.
func (p *Pruner) Prune(ctx context.Context) (int, error) {
	if p.config.RetentionDays <= 0 {
		p.logger.Debug("retention disabled, nothing to prune")
		return 0, nil
	}

	files, err := Partitions(p.config.Dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, &Error{Op: "read", Path: p.config.Dir, Cause: err}
	}

	expired := Expired(files, p.config.RetentionDays, p.now())
	p.logger.Debug("pruning by age",
		"expired", len(expired),
		"retention_days", p.config.RetentionDays,
	)

	removed := 0
	for _, path := range expired {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := os.Remove(path); err != nil {
			return removed, &Error{Op: "remove", Path: path, Cause: err}
		}
		removed++
	}

	if p.observer != nil {
		p.observer.ObserveAuditPruned(removed)
	}
	if removed > 0 {
		p.logger.Info("audit pruning completed",
			"removed", removed,
			"retention_days", p.config.RetentionDays,
		)
	}
	return removed, nil
}

// Scheduler runs a Pruner on a cron schedule.
type Scheduler struct {
	pruner  *Pruner
	cron    *cron.Cron
	mu      sync.Mutex
	logger  *slog.Logger
	running bool
}

// NewScheduler creates a retention scheduler.
func NewScheduler(pruner *Pruner) *Scheduler {
	return &Scheduler{
		pruner: pruner,
		cron:   cron.New(),
		logger: slog.Default().With("component", "audit.scheduler"),
	}
}

// Start schedules pruning on the pruner's PruneSchedule and stops when ctx
// is cancelled. An empty schedule does nothing.
//
// Common cron expressions:
//   - "0 3 * * *"    - Daily at 3 AM
//   - "0 */6 * * *"  - Every 6 hours
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedule := s.pruner.config.PruneSchedule
	if schedule == "" {
		s.logger.Info("prune schedule not configured, skipping scheduler")
		return nil
	}
	if s.running {
		return nil
	}

	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}

	if _, err := s.cron.AddFunc(schedule, func() { s.run(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("retention scheduler started",
		"schedule", schedule,
		"retention_days", s.pruner.config.RetentionDays,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	if _, err := s.pruner.Prune(ctx); err != nil {
		s.logger.Error("scheduled pruning failed", "error", err)
	}
}

// Stop stops the scheduler and waits for a running prune to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("retention scheduler stopped")
	}
}

// IsRunning reports whether the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled pruning time, or nil.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
