package pii

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// DefaultMinScore drops low-confidence spans, such as bare digit runs that
// only count as bank or passport numbers next to a context word.
const DefaultMinScore = 0.3

// Span is an entity recognized by the engine.
type Span struct {
	Kind       Kind
	Start      int
	End        int
	Score      float64
	Recognizer string
}

// Recognizer finds spans of one or more kinds in text.
type Recognizer interface {
	Name() string
	Recognize(text string) ([]Span, error)
}

// RecognizerError reports a recognizer that failed. The engine still returns
// the spans found by the others.
type RecognizerError struct {
	Recognizer string
	Cause      error
}

// Error implements the error interface.
func (e *RecognizerError) Error() string {
	return fmt.Sprintf("recognizer %q failed: %v", e.Recognizer, e.Cause)
}

// Unwrap returns the underlying error.
func (e *RecognizerError) Unwrap() error {
	return e.Cause
}

// Engine runs a set of recognizers and resolves their overlapping spans.
// It is safe for concurrent use once built.
type Engine struct {
	recognizers []Recognizer
	minScore    float64
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	tagger     Tagger
	extra      []Recognizer
	minScore   float64
	noDefaults bool
}

// WithTagger adds a named-entity tagger for person and location names.
func WithTagger(t Tagger) EngineOption {
	return func(o *engineOptions) {
		o.tagger = t
	}
}

// WithRecognizers adds recognizers after the built-in set.
func WithRecognizers(rs ...Recognizer) EngineOption {
	return func(o *engineOptions) {
		o.extra = append(o.extra, rs...)
	}
}

// WithMinScore sets the score below which spans are discarded.
func WithMinScore(score float64) EngineOption {
	return func(o *engineOptions) {
		o.minScore = score
	}
}

// WithoutDefaultRecognizers starts from an empty recognizer set.
func WithoutDefaultRecognizers() EngineOption {
	return func(o *engineOptions) {
		o.noDefaults = true
	}
}

// NewEngine builds an engine with the built-in recognizers, the optional
// tagger and any extra recognizers.
func NewEngine(opts ...EngineOption) *Engine {
	o := engineOptions{minScore: DefaultMinScore}
	for _, opt := range opts {
		opt(&o)
	}

	var rs []Recognizer
	if !o.noDefaults {
		rs = append(rs, defaultRecognizers()...)
	}
	if o.tagger != nil {
		rs = append(rs, &taggerRecognizer{tagger: o.tagger})
	}
	rs = append(rs, o.extra...)

	return &Engine{recognizers: rs, minScore: o.minScore}
}

var sharedEngine = sync.OnceValue(func() *Engine {
	logger := slog.Default().With("component", "pii")

	tagger, err := NewProseTagger()
	if err != nil {
		logger.Warn("named-entity tagger unavailable, person and location names rely on heuristics",
			"error", err,
		)
		return NewEngine()
	}
	return NewEngine(WithTagger(tagger))
})

// SharedEngine returns the process-wide engine, constructing it on first use.
func SharedEngine() *Engine {
	return sharedEngine()
}

// Recognizers returns the names of the engine's recognizers in run order.
func (e *Engine) Recognizers() []string {
	names := make([]string, len(e.recognizers))
	for i, r := range e.recognizers {
		names[i] = r.Name()
	}
	return names
}

// Analyze returns non-overlapping spans in text ordered by position. Spans
// touching an existing sentinel are ignored. A non-nil error lists failed
// recognizers; the spans from the rest are still returned.
func (e *Engine) Analyze(text string) ([]Span, error) {
	if text == "" {
		return nil, nil
	}

	protected := sentinelPattern.FindAllStringIndex(text, -1)

	var candidates []Span
	var errs []error
	for _, r := range e.recognizers {
		spans, err := r.Recognize(text)
		if err != nil {
			errs = append(errs, &RecognizerError{Recognizer: r.Name(), Cause: err})
			continue
		}
		for _, s := range spans {
			if s.Score < e.minScore || s.Start >= s.End {
				continue
			}
			if touchesAny(s, protected) {
				continue
			}
			if strings.TrimSpace(text[s.Start:s.End]) == "" {
				continue
			}
			candidates = append(candidates, s)
		}
	}

	return resolveOverlaps(candidates), errors.Join(errs...)
}

// resolveOverlaps keeps the highest-scoring span of each overlapping group,
// preferring the longer span on equal scores.
func resolveOverlaps(spans []Span) []Span {
	if len(spans) == 0 {
		return nil
	}

	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].Score != spans[j].Score {
			return spans[i].Score > spans[j].Score
		}
		li, lj := spans[i].End-spans[i].Start, spans[j].End-spans[j].Start
		if li != lj {
			return li > lj
		}
		return spans[i].Start < spans[j].Start
	})

	kept := make([]Span, 0, len(spans))
	for _, s := range spans {
		if !overlapsAny(s, kept) {
			kept = append(kept, s)
		}
	}

	sort.Slice(kept, func(i, j int) bool {
		return kept[i].Start < kept[j].Start
	})
	return kept
}

func overlapsAny(s Span, kept []Span) bool {
	for _, k := range kept {
		if s.Start < k.End && k.Start < s.End {
			return true
		}
	}
	return false
}

// touchesAny reports whether s overlaps or is adjacent to any range.
func touchesAny(s Span, ranges [][]int) bool {
	for _, r := range ranges {
		if s.Start <= r[1] && r[0] <= s.End {
			return true
		}
	}
	return false
}

// replaceSpans substitutes each span's sentinel. Spans must be sorted and
// non-overlapping.
func replaceSpans(text string, spans []Span) string {
	if len(spans) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	cursor := 0
	for _, s := range spans {
		b.WriteString(text[cursor:s.Start])
		b.WriteString(s.Kind.Sentinel())
		cursor = s.End
	}
	b.WriteString(text[cursor:])
	return b.String()
}
