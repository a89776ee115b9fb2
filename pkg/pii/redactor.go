package pii

import (
	"log/slog"
)

// Pass names reported to an Observer.
const (
	PassPattern = "pattern"
	PassEntity  = "entity"
)

// Observer receives one call per redacted span. It is implemented by the
// metrics collector.
type Observer interface {
	ObserveRedaction(pass string, kind Kind)
}

// Redactor applies the pattern pass and, when it has an engine, the entity
// pass. It is safe for concurrent use.
type Redactor struct {
	engine     *Engine
	entityPass bool
	observer   Observer
	logger     *slog.Logger
}

// RedactorOption configures a Redactor.
type RedactorOption func(*Redactor)

// WithEntityPass enables or disables the entity pass in Redact. It is
// enabled by default whenever an engine is supplied.
func WithEntityPass(enabled bool) RedactorOption {
	return func(r *Redactor) {
		r.entityPass = enabled
	}
}

// WithObserver attaches a redaction observer.
func WithObserver(o Observer) RedactorOption {
	return func(r *Redactor) {
		r.observer = o
	}
}

// WithLogger sets the logger used when a recognizer fails.
func WithLogger(logger *slog.Logger) RedactorOption {
	return func(r *Redactor) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRedactor creates a redactor. A nil engine limits it to the pattern
// pass.
func NewRedactor(engine *Engine, opts ...RedactorOption) *Redactor {
	r := &Redactor{
		engine:     engine,
		entityPass: engine != nil,
		logger:     slog.Default().With("component", "pii"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.engine == nil {
		r.entityPass = false
	}
	return r
}

// EntityPass reports whether Redact runs the entity pass.
func (r *Redactor) EntityPass() bool {
	return r.entityPass
}

// Redact runs the pattern pass and then, if enabled, the entity pass.
func (r *Redactor) Redact(text string) string {
	if text == "" {
		return text
	}

	text = r.RedactPatterns(text)
	if r.entityPass {
		text = r.RedactEntities(text)
	}
	return text
}

// RedactPatterns runs only the pattern pass.
func (r *Redactor) RedactPatterns(text string) string {
	if r.observer == nil {
		return redactPatterns(text, nil)
	}
	return redactPatterns(text, func(k Kind) {
		r.observer.ObserveRedaction(PassPattern, k)
	})
}

// RedactEntities runs only the entity pass. Without an engine the text is
// returned unchanged.
func (r *Redactor) RedactEntities(text string) string {
	if text == "" || r.engine == nil {
		return text
	}

	spans := r.analyze(text)
	if r.observer != nil {
		for _, s := range spans {
			r.observer.ObserveRedaction(PassEntity, s.Kind)
		}
	}
	return replaceSpans(text, spans)
}

// Detect reports personal data in text without changing it. Offsets refer
// to text as given.
func (r *Redactor) Detect(text string) []Match {
	if text == "" {
		return nil
	}

	seen := make(map[[2]int]bool)
	matches := detectPatterns(text, seen)

	if r.engine == nil {
		return matches
	}
	for _, s := range r.analyze(text) {
		key := [2]int{s.Start, s.End}
		if seen[key] {
			continue
		}
		seen[key] = true
		matches = append(matches, Match{
			Kind:  s.Kind,
			Text:  text[s.Start:s.End],
			Start: s.Start,
			End:   s.End,
		})
	}
	return matches
}

// analyze runs the engine, degrading to the spans it could find when a
// recognizer fails.
func (r *Redactor) analyze(text string) []Span {
	spans, err := r.engine.Analyze(text)
	if err != nil {
		r.logger.Warn("entity recognition degraded", "error", err)
	}
	return spans
}
