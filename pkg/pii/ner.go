package pii

import (
	"fmt"
	"strings"

	"github.com/jdkato/prose/v2"
)

// TaggedEntity is a named entity found by a Tagger.
type TaggedEntity struct {
	Text  string
	Label string
}

// Tagger labels named entities in text. Labels PERSON and GPE (or LOCATION)
// are redacted; others are ignored.
type Tagger interface {
	Entities(text string) ([]TaggedEntity, error)
}

// TaggerFunc adapts a function to the Tagger interface.
type TaggerFunc func(text string) ([]TaggedEntity, error)

// Entities implements Tagger.
func (f TaggerFunc) Entities(text string) ([]TaggedEntity, error) {
	return f(text)
}

// ProseTagger tags entities with the averaged-perceptron model bundled with
// prose. The model is loaded once and shared by every call.
type ProseTagger struct {
	model *prose.Model
}

// NewProseTagger loads the prose entity model.
func NewProseTagger() (*ProseTagger, error) {
	doc, err := prose.NewDocument("Jane Doe lives in Boston.",
		prose.WithSegmentation(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load entity model: %w", err)
	}
	return &ProseTagger{model: doc.Model}, nil
}

// Entities implements Tagger.
func (t *ProseTagger) Entities(text string) ([]TaggedEntity, error) {
	doc, err := prose.NewDocument(text,
		prose.UsingModel(t.model),
		prose.WithSegmentation(false),
	)
	if err != nil {
		return nil, err
	}

	ents := doc.Entities()
	out := make([]TaggedEntity, 0, len(ents))
	for _, ent := range ents {
		out = append(out, TaggedEntity{Text: ent.Text, Label: ent.Label})
	}
	return out, nil
}

// taggerRecognizer turns tagger output into spans. Taggers report entity
// text without offsets, so each entity is located by searching forward from
// the end of the previous one.
type taggerRecognizer struct {
	tagger Tagger
}

const taggerScore = 0.85

func (r *taggerRecognizer) Name() string {
	return "ner"
}

func (r *taggerRecognizer) Recognize(text string) ([]Span, error) {
	ents, err := r.tagger.Entities(text)
	if err != nil {
		return nil, err
	}

	var spans []Span
	cursor := 0
	for _, ent := range ents {
		kind, ok := entityKind(ent.Label)
		if !ok || strings.TrimSpace(ent.Text) == "" {
			continue
		}

		idx := strings.Index(text[cursor:], ent.Text)
		start := cursor + idx
		if idx < 0 {
			// Tokenization can reorder; fall back to the first occurrence.
			start = strings.Index(text, ent.Text)
			if start < 0 {
				continue
			}
		}
		end := start + len(ent.Text)

		spans = append(spans, Span{
			Kind:       kind,
			Start:      start,
			End:        end,
			Score:      taggerScore,
			Recognizer: r.Name(),
		})
		if end > cursor {
			cursor = end
		}
	}
	return spans, nil
}

func entityKind(label string) (Kind, bool) {
	switch strings.ToUpper(label) {
	case "PERSON", "PER":
		return KindPerson, true
	case "GPE", "LOC", "LOCATION":
		return KindLocation, true
	default:
		return "", false
	}
}
