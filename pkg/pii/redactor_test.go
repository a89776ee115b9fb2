package pii

import (
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
)

// fixedTagger reports each configured entity that appears in the text.
func fixedTagger(ents ...TaggedEntity) Tagger {
	return TaggerFunc(func(text string) ([]TaggedEntity, error) {
		var out []TaggedEntity
		for _, e := range ents {
			if strings.Contains(text, e.Text) {
				out = append(out, e)
			}
		}
		return out, nil
	})
}

type countingObserver struct {
	mu     sync.Mutex
	counts map[string]int
}

func (o *countingObserver) ObserveRedaction(pass string, kind Kind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.counts == nil {
		o.counts = make(map[string]int)
	}
	o.counts[pass+":"+string(kind)]++
}

// ============================================================================
// Entity Pass Tests
// ============================================================================

func TestRedactor_EntityPass(t *testing.T) {
	engine := NewEngine(WithTagger(fixedTagger(
		TaggedEntity{Text: "Alice", Label: "PERSON"},
		TaggedEntity{Text: "Boston", Label: "GPE"},
		TaggedEntity{Text: "Acme", Label: "ORGANIZATION"},
	)))
	r := NewRedactor(engine)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "tagged names and relative date",
			input: "Alice moved to Boston last week",
			want:  "[REDACTED_PERSON] moved to [REDACTED_LOCATION] [REDACTED_DATETIME]",
		},
		{
			name:  "other labels ignored",
			input: "Acme charged me",
			want:  "Acme charged me",
		},
		{
			name:  "honorific",
			input: "Please call Dr. Jane Doe at 555-123-4567 on 2025-01-15",
			want:  "Please call Dr. [REDACTED_PERSON] at [REDACTED_PHONE] on [REDACTED_DATETIME]",
		},
		{
			name:  "bank number with context",
			input: "my checking account 12345678 was debited",
			want:  "my checking account [REDACTED_BANK_ACCOUNT] was debited",
		},
		{
			name:  "digits without context kept",
			input: "order 12345678 shipped",
			want:  "order 12345678 shipped",
		},
		{
			name:  "passport with context",
			input: "my passport number A12345678",
			want:  "my passport number [REDACTED_PASSPORT]",
		},
		{
			name:  "ip address",
			input: "login from 192.168.1.20",
			want:  "login from [REDACTED_IP]",
		},
		{
			name:  "street address",
			input: "ship it to 42 Elm Street please",
			want:  "ship it to [REDACTED_LOCATION] please",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Redact(tt.input); got != tt.want {
				t.Errorf("Redact(%q)\n got: %q\nwant: %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRedactor_RedactEntitiesIBAN(t *testing.T) {
	r := NewRedactor(NewEngine())
	got := r.RedactEntities("Send to DE89 3704 0044 0532 0130 00 please")
	if got != "Send to [REDACTED_IBAN] please" {
		t.Errorf("unexpected IBAN redaction: %q", got)
	}
}

func TestRedactor_Idempotent(t *testing.T) {
	engine := NewEngine(WithTagger(fixedTagger(
		TaggedEntity{Text: "Alice", Label: "PERSON"},
	)))
	r := NewRedactor(engine)

	in := "Alice paid with 4111 1111 1111 1111 yesterday, email alice@example.com"
	once := r.Redact(in)
	if twice := r.Redact(once); twice != once {
		t.Errorf("not idempotent:\n once: %q\ntwice: %q", once, twice)
	}
}

func TestRedactor_SkipsSentinels(t *testing.T) {
	engine := NewEngine(WithTagger(fixedTagger(
		TaggedEntity{Text: "REDACTED_PERSON", Label: "PERSON"},
	)))
	r := NewRedactor(engine)

	in := "[REDACTED_PERSON] called about a refund"
	if got := r.RedactEntities(in); got != in {
		t.Errorf("sentinel was re-redacted: %q", got)
	}
}

func TestRedactor_TaggerFailureDegrades(t *testing.T) {
	errModel := errors.New("model unavailable")
	engine := NewEngine(WithTagger(TaggerFunc(func(string) ([]TaggedEntity, error) {
		return nil, errModel
	})))

	spans, err := engine.Analyze("reach me at jane@example.org")
	var recErr *RecognizerError
	if !errors.As(err, &recErr) || !errors.Is(err, errModel) {
		t.Fatalf("expected recognizer error wrapping model error, got %v", err)
	}
	if len(spans) != 1 || spans[0].Kind != KindEmail {
		t.Fatalf("expected email span despite tagger failure, got %+v", spans)
	}

	r := NewRedactor(engine)
	if got := r.RedactEntities("reach me at jane@example.org"); got != "reach me at [REDACTED_EMAIL]" {
		t.Errorf("unexpected redaction: %q", got)
	}
}

func TestRedactor_WithoutEngine(t *testing.T) {
	r := NewRedactor(nil, WithEntityPass(true))
	if r.EntityPass() {
		t.Error("entity pass cannot be enabled without an engine")
	}
	if got := r.Redact("Dr. Jane Doe, SSN 123-45-6789"); got != "Dr. Jane Doe, SSN [REDACTED_SSN]" {
		t.Errorf("unexpected redaction: %q", got)
	}
	if got := r.Redact(""); got != "" {
		t.Errorf("expected empty output, got %q", got)
	}
}

func TestRedactor_EntityPassDisabled(t *testing.T) {
	r := NewRedactor(NewEngine(), WithEntityPass(false))
	if got := r.Redact("Dr. Jane Doe"); got != "Dr. Jane Doe" {
		t.Errorf("entity pass ran while disabled: %q", got)
	}
}

// ============================================================================
// Detection Tests
// ============================================================================

func TestRedactor_Detect(t *testing.T) {
	r := NewRedactor(NewEngine())
	text := "Card: 4111-1111-1111-1111, SSN 123-45-6789, email test@example.com"

	matches := r.Detect(text)
	want := []struct {
		kind Kind
		text string
	}{
		{KindCreditCard, "4111-1111-1111-1111"},
		{KindSSN, "123-45-6789"},
		{KindEmail, "test@example.com"},
	}
	if len(matches) != len(want) {
		t.Fatalf("expected %d matches, got %+v", len(want), matches)
	}
	for i, w := range want {
		m := matches[i]
		if m.Kind != w.kind || m.Text != w.text {
			t.Errorf("match %d: expected %s %q, got %s %q", i, w.kind, w.text, m.Kind, m.Text)
		}
		if text[m.Start:m.End] != m.Text {
			t.Errorf("match %d: offsets %d:%d do not select %q", i, m.Start, m.End, m.Text)
		}
	}
	if matches[0].Start != 6 {
		t.Errorf("expected card at offset 6, got %d", matches[0].Start)
	}
}

func TestRedactor_DetectEntitiesAfterPatterns(t *testing.T) {
	r := NewRedactor(NewEngine())
	matches := r.Detect("call 555-123-4567 from 10.0.0.7")

	if len(matches) != 2 {
		t.Fatalf("expected phone and ip, got %+v", matches)
	}
	if matches[0].Kind != KindPhone || matches[1].Kind != KindIP {
		t.Errorf("expected pattern match before entity match, got %s then %s", matches[0].Kind, matches[1].Kind)
	}
}

func TestRedactor_DetectEmpty(t *testing.T) {
	r := NewRedactor(NewEngine())
	if matches := r.Detect(""); len(matches) != 0 {
		t.Errorf("expected no matches, got %+v", matches)
	}
}

func TestRedactor_Observer(t *testing.T) {
	obs := &countingObserver{}
	r := NewRedactor(NewEngine(), WithObserver(obs))

	r.Redact("Card: 4111-1111-1111-1111, SSN 123-45-6789, from 10.0.0.7")

	if obs.counts["pattern:credit_card"] != 1 || obs.counts["pattern:ssn"] != 1 {
		t.Errorf("unexpected pattern counts: %v", obs.counts)
	}
	if obs.counts["entity:ip"] != 1 {
		t.Errorf("expected one ip entity, got %v", obs.counts)
	}
}

// ============================================================================
// Engine Tests
// ============================================================================

func TestResolveOverlaps(t *testing.T) {
	spans := []Span{
		{Kind: KindBankAccount, Start: 0, End: 10, Score: 0.65},
		{Kind: KindCreditCard, Start: 0, End: 10, Score: 1.0},
		{Kind: KindPerson, Start: 20, End: 25, Score: 0.85},
		{Kind: KindLocation, Start: 20, End: 30, Score: 0.85},
		{Kind: KindDateTime, Start: 40, End: 45, Score: 0.6},
	}

	got := resolveOverlaps(spans)
	want := []Kind{KindCreditCard, KindLocation, KindDateTime}
	if len(got) != len(want) {
		t.Fatalf("expected %d spans, got %+v", len(want), got)
	}
	for i, k := range want {
		if got[i].Kind != k {
			t.Errorf("span %d: expected %s, got %s", i, k, got[i].Kind)
		}
	}
}

func TestEngine_CustomRecognizersOnly(t *testing.T) {
	engine := NewEngine(WithoutDefaultRecognizers(), WithRecognizers(&PatternRecognizer{
		RecognizerName: "ticket",
		Kind:           Kind("ticket"),
		Score:          0.9,
		Patterns:       []*regexp.Regexp{regexp.MustCompile(`TCK-\d+`)},
	}))

	if names := engine.Recognizers(); len(names) != 1 || names[0] != "ticket" {
		t.Fatalf("unexpected recognizers: %v", names)
	}

	r := NewRedactor(engine)
	if got := r.RedactEntities("see TCK-42 from 10.0.0.7"); got != "see [REDACTED] from 10.0.0.7" {
		t.Errorf("unexpected redaction: %q", got)
	}
}

func TestSharedEngine_Once(t *testing.T) {
	if testing.Short() {
		t.Skip("loads the entity model")
	}

	var wg sync.WaitGroup
	engines := make([]*Engine, 8)
	for i := range engines {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			engines[i] = SharedEngine()
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(engines); i++ {
		if engines[i] != engines[0] {
			t.Fatal("SharedEngine constructed more than one engine")
		}
	}
}
