package audit

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"disputedesk-hq/guardrail/pkg/identity"
	"disputedesk-hq/guardrail/pkg/pii"
)

// Defaults for Config.
const (
	DefaultDir           = "logs"
	DefaultPreviewLength = 200
)

const (
	filePrefix = "audit_"
	fileSuffix = ".jsonl"
	dayLayout  = "2006-01-02"
)

// PartitionName returns the file name of the partition for day.
func PartitionName(day time.Time) string {
	return filePrefix + day.Format(dayLayout) + fileSuffix
}

// Config configures a Writer.
type Config struct {
	// Dir holds the partition files. Default: "logs"
	Dir string

	// PreviewLength is the number of characters kept in prompt and
	// response previews. Default: 200
	PreviewLength int

	// EntityPass also runs the named-entity pass over payload text.
	EntityPass bool
}

// Writer appends audit entries. It is safe for concurrent use; entries
// from concurrent callers are serialized so each line is written whole.
type Writer struct {
	cfg      Config
	redactor *pii.Redactor
	now      func() time.Time
	newID    func() string
	observer Observer
	logger   *slog.Logger

	mu       sync.Mutex
	file     *os.File
	day      string
	prevHash string
	closed   bool
}

// Option configures a Writer.
type Option func(*Writer)

// WithClock sets the time source for timestamps and partitions.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) {
		w.now = now
	}
}

// WithRedactor replaces the redactor built from Config.
func WithRedactor(r *pii.Redactor) Option {
	return func(w *Writer) {
		w.redactor = r
	}
}

// WithObserver attaches a write observer.
func WithObserver(o Observer) Option {
	return func(w *Writer) {
		w.observer = o
	}
}

// WithLogger sets the logger that receives write failures.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Writer) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWriter creates the audit directory if needed and returns a writer.
// Partition files are opened lazily on first write.
func NewWriter(cfg Config, opts ...Option) (*Writer, error) {
	if cfg.Dir == "" {
		cfg.Dir = DefaultDir
	}
	if cfg.PreviewLength <= 0 {
		cfg.PreviewLength = DefaultPreviewLength
	}

	w := &Writer{
		cfg:    cfg,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
		logger: slog.Default().With("component", "audit"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.redactor == nil {
		if cfg.EntityPass {
			w.redactor = pii.NewRedactor(pii.SharedEngine())
		} else {
			w.redactor = pii.NewRedactor(nil)
		}
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, &Error{Op: "open", Path: cfg.Dir, Cause: err}
	}
	return w, nil
}

// Dir returns the partition directory.
func (w *Writer) Dir() string {
	return w.cfg.Dir
}

// Log writes an entry and reports failures as a console warning only.
func (w *Writer) Log(ctx context.Context, id identity.Identity, kind EventKind, payload map[string]any, sev Severity) {
	if err := w.Write(ctx, id, kind, payload, sev); err != nil {
		w.logger.Warn("failed to write audit entry",
			"event", string(kind),
			"user_hash", id.Hash(),
			"error", err,
		)
	}
}

// Write redacts payload, stamps and chains the entry and appends it to the
// current day's partition.
func (w *Writer) Write(ctx context.Context, id identity.Identity, kind EventKind, payload map[string]any, sev Severity) (err error) {
	defer func() {
		if w.observer != nil {
			w.observer.ObserveAuditWrite(string(kind), err)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			err = &Error{Op: "redact", Cause: fmt.Errorf("payload value panicked: %v", r)}
		}
	}()

	entry := w.redactPayload(payload)
	now := w.now()
	entry[FieldID] = w.newID()
	entry[FieldTimestamp] = now.Format(time.RFC3339Nano)
	entry[FieldUserHash] = id.Hash()
	entry[FieldEvent] = string(kind)
	if sev != SeverityNone {
		entry[FieldSeverity] = string(sev)
	} else {
		delete(entry, FieldSeverity)
	}
	if turn := TurnID(ctx); turn != "" {
		entry[FieldTurnID] = turn
	} else {
		delete(entry, FieldTurnID)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if err := w.rotate(now); err != nil {
		return err
	}

	line, hash, err := sealEntry(entry, w.prevHash)
	if err != nil {
		return &Error{Op: "marshal", Cause: err}
	}
	line = append(line, '\n')

	// One Write per entry on an O_APPEND file keeps lines whole.
	if _, err := w.file.Write(line); err != nil {
		return &Error{Op: "write", Path: w.file.Name(), Cause: err}
	}
	w.prevHash = hash
	return nil
}

// rotate opens the partition for now's day, resuming its hash chain.
// Callers hold w.mu.
func (w *Writer) rotate(now time.Time) error {
	day := now.Format(dayLayout)
	if w.file != nil && day == w.day {
		return nil
	}

	path := filepath.Join(w.cfg.Dir, PartitionName(now))
	prev, err := lastHash(path)
	if err != nil {
		// The chain cannot be resumed; start a new one so auditing continues.
		w.logger.Warn("audit partition has an unreadable tail, starting a new chain",
			"path", path,
			"error", err,
		)
		prev = ""
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return &Error{Op: "open", Path: path, Cause: err}
	}

	if w.file != nil {
		w.file.Close()
	}
	w.file = f
	w.day = day
	w.prevHash = prev
	return nil
}

// Close closes the current partition. Further writes fail with ErrClosed.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closed = true
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	if err != nil {
		return &Error{Op: "close", Path: filepath.Join(w.cfg.Dir, filePrefix+w.day+fileSuffix), Cause: err}
	}
	return nil
}

// redactPayload masks sensitive keys and redacts every string value.
func (w *Writer) redactPayload(payload map[string]any) map[string]any {
	masked := pii.RedactFields(payload)
	if masked == nil {
		return make(map[string]any)
	}
	for k, v := range masked {
		masked[k] = w.redactValue(v)
	}
	return masked
}

func (w *Writer) redactValue(v any) any {
	switch val := v.(type) {
	case string:
		return w.redactor.Redact(val)
	case map[string]any:
		for k, inner := range val {
			val[k] = w.redactValue(inner)
		}
		return val
	case []map[string]any:
		for i, inner := range val {
			val[i] = w.redactValue(inner).(map[string]any)
		}
		return val
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = w.redactValue(inner)
		}
		return out
	case []string:
		out := make([]string, len(val))
		for i, s := range val {
			out[i] = w.redactor.Redact(s)
		}
		return out
	case error:
		if nilPointer(val) {
			return nil
		}
		return w.redactor.Redact(val.Error())
	case fmt.Stringer:
		if nilPointer(val) {
			return nil
		}
		return w.redactor.Redact(val.String())
	default:
		return v
	}
}

// nilPointer reports whether v is a typed nil pointer, on which value
// receiver methods such as (*time.Time).String panic.
func nilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
