package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guardrail.yaml")
	if err := os.WriteFile(path, []byte("resilience:\n  rate_limit_rpm: 10\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	initial, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path, initial, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Stop()

	var got atomic.Int64
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Watch(ctx, func(cfg *Config) {
		got.Store(int64(cfg.Resilience.RateLimitRPM))
	})

	// Give the watcher time to register the directory.
	time.Sleep(50 * time.Millisecond)

	// Unrelated files in the directory are ignored.
	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: y\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("resilience:\n  rate_limit_rpm: 25\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, func() bool { return got.Load() == 25 }) {
		t.Fatalf("callback not invoked with new config, last = %d", got.Load())
	}
	if w.Current().Resilience.RateLimitRPM != 25 {
		t.Errorf("Current() = %d", w.Current().Resilience.RateLimitRPM)
	}

	// An invalid file leaves the previous configuration in place.
	if err := os.WriteFile(path, []byte("resilience:\n  rate_limit_rpm: -5\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	if w.Current().Resilience.RateLimitRPM != 25 || got.Load() != 25 {
		t.Errorf("invalid config was applied: current=%d callback=%d", w.Current().Resilience.RateLimitRPM, got.Load())
	}
}

func TestWatcher_StopEndsWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guardrail.yaml")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path, Default(), 0)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- w.Watch(context.Background(), nil) }()
	waitFor(t, w.watching)

	if err := w.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after Stop")
	}
}

func TestDebouncer_CoalescesBursts(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var calls, last atomic.Int64
	for i := 1; i <= 5; i++ {
		i := i
		d.Trigger(func() {
			calls.Add(1)
			last.Store(int64(i))
		})
	}

	if !waitFor(t, func() bool { return calls.Load() > 0 }) {
		t.Fatal("debounced callback never ran")
	}
	time.Sleep(60 * time.Millisecond)
	if calls.Load() != 1 || last.Load() != 5 {
		t.Errorf("expected only the last callback once, got calls=%d last=%d", calls.Load(), last.Load())
	}
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var ran atomic.Bool
	d.Trigger(func() { ran.Store(true) })
	d.Stop()
	d.Trigger(func() { ran.Store(true) })

	time.Sleep(60 * time.Millisecond)
	if ran.Load() {
		t.Error("callback ran after Stop")
	}
}
