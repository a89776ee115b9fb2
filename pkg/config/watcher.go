package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceInterval is the quiet period before a reload.
const DefaultDebounceInterval = 100 * time.Millisecond

var errWatching = errors.New("config: watcher already running")

// Watcher reloads a configuration file when it changes. It watches the
// parent directory because editors often save by renaming a temp file over
// the original, which drops a watch placed on the file itself.
type Watcher struct {
	path    string
	fs      *fsnotify.Watcher
	settle  *Debouncer
	logger  *slog.Logger
	current atomic.Pointer[Config]

	mu     sync.Mutex
	cancel context.CancelFunc
	exited chan struct{}
}

// NewWatcher creates a watcher for path. initial is what Current returns
// until the first successful reload.
func NewWatcher(path string, initial *Config, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounceInterval
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %q: %w", path, err)
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: fsnotify: %w", err)
	}

	w := &Watcher{
		path:   abs,
		fs:     fs,
		settle: NewDebouncer(debounce),
		logger: slog.Default().With("component", "config.watcher", "path", abs),
	}
	w.current.Store(initial)
	return w, nil
}

// Current returns the most recently loaded configuration.
func (w *Watcher) Current() *Config {
	return w.current.Load()
}

// Watch blocks until ctx is done or Stop is called. Once writes to the file
// settle it is reloaded with environment overrides; a config that loads and
// validates becomes current and is handed to onChange, anything else is
// logged and ignored.
func (w *Watcher) Watch(ctx context.Context, onChange func(*Config)) error {
	ctx, err := w.begin(ctx)
	if err != nil {
		return err
	}
	defer w.end()

	dir := filepath.Dir(w.path)
	if err := w.fs.Add(dir); err != nil {
		return fmt.Errorf("config: watch %q: %w", dir, err)
	}
	w.logger.Info("watching config for changes", "debounce", w.settle.interval)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("config watcher stopped")
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return errors.New("config: fsnotify events closed")
			}
			if w.concerns(ev) {
				w.logger.Debug("config file changed", "op", ev.Op.String())
				w.settle.Trigger(func() { w.reload(onChange) })
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return errors.New("config: fsnotify errors closed")
			}
			w.logger.Warn("fsnotify error", "error", err)
		}
	}
}

func (w *Watcher) begin(parent context.Context) (context.Context, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return nil, errWatching
	}
	ctx, cancel := context.WithCancel(parent)
	w.cancel = cancel
	w.exited = make(chan struct{})
	return ctx, nil
}

func (w *Watcher) end() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cancel()
	w.cancel = nil
	close(w.exited)
}

// watching reports whether Watch is running.
func (w *Watcher) watching() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancel != nil
}

// concerns filters events down to content changes of the watched file.
func (w *Watcher) concerns(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	name, err := filepath.Abs(ev.Name)
	return err == nil && name == w.path
}

func (w *Watcher) reload(onChange func(*Config)) {
	next, err := LoadConfigWithEnvOverrides(w.path)
	if err != nil {
		w.logger.Error("config reload rejected, previous config stays active", "error", err)
		return
	}
	w.current.Store(next)
	w.logger.Info("config reloaded")
	if onChange != nil {
		onChange(next)
	}
}

// Stop ends a running Watch, waits for it to return and closes the
// underlying fsnotify watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	cancel, exited := w.cancel, w.exited
	w.mu.Unlock()
	if cancel != nil {
		cancel()
		<-exited
	}
	w.settle.Stop()
	if err := w.fs.Close(); err != nil {
		return fmt.Errorf("config: close fsnotify: %w", err)
	}
	return nil
}

// Debouncer runs only the last of a burst of callbacks, once interval has
// passed without a new Trigger.
type Debouncer struct {
	interval time.Duration

	mu    sync.Mutex
	gen   uint64
	timer *time.Timer
	done  bool
}

func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Trigger replaces any pending callback with fn and restarts the quiet
// period.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done {
		return
	}
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		current := !d.done && gen == d.gen
		d.mu.Unlock()
		if current {
			fn()
		}
	})
}

// Stop drops the pending callback and ignores later triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.done = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
