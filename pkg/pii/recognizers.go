package pii

import (
	"net/netip"
	"regexp"
	"strings"
)

// contextWindow is how many bytes before a candidate are searched for
// context words.
const contextWindow = 48

// PatternRecognizer finds one kind with regular expressions, an optional
// validator and optional context words.
type PatternRecognizer struct {
	// RecognizerName identifies the recognizer in errors.
	RecognizerName string

	Kind     Kind
	Patterns []*regexp.Regexp

	// Group selects a submatch as the span; zero uses the whole match.
	Group int

	// Score is assigned to every validated candidate.
	Score float64

	// Validate rejects candidates that only look right.
	Validate func(candidate string) bool

	// Context words raise a candidate to ContextScore when one appears
	// shortly before it.
	Context      []string
	ContextScore float64
}

// Name implements Recognizer.
func (r *PatternRecognizer) Name() string {
	return r.RecognizerName
}

// Recognize implements Recognizer.
func (r *PatternRecognizer) Recognize(text string) ([]Span, error) {
	var spans []Span
	lower := ""
	if len(r.Context) > 0 {
		lower = strings.ToLower(text)
	}

	for _, re := range r.Patterns {
		for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[2*r.Group], loc[2*r.Group+1]
			if start < 0 {
				continue
			}
			candidate := text[start:end]
			if r.Validate != nil && !r.Validate(candidate) {
				continue
			}

			score := r.Score
			if len(r.Context) > 0 && hasContext(lower, start, r.Context) {
				score = r.ContextScore
			}
			spans = append(spans, Span{
				Kind:       r.Kind,
				Start:      start,
				End:        end,
				Score:      score,
				Recognizer: r.RecognizerName,
			})
		}
	}
	return spans, nil
}

func hasContext(lower string, start int, words []string) bool {
	from := start - contextWindow
	if from < 0 {
		from = 0
	}
	window := lower[from:start]
	for _, w := range words {
		if strings.Contains(window, w) {
			return true
		}
	}
	return false
}

func defaultRecognizers() []Recognizer {
	return []Recognizer{
		&PatternRecognizer{
			RecognizerName: "credit_card",
			Kind:           KindCreditCard,
			Patterns:       []*regexp.Regexp{regexp.MustCompile(`\b(?:\d[ -]?){12,18}\d\b`)},
			Score:          1.0,
			Validate:       luhnValid,
		},
		&PatternRecognizer{
			RecognizerName: "iban",
			Kind:           KindIBAN,
			Patterns:       []*regexp.Regexp{regexp.MustCompile(`\b[A-Z]{2}\d{2}(?: ?[A-Z0-9]{4}){2,7}(?: ?[A-Z0-9]{1,3})?\b`)},
			Score:          1.0,
			Validate:       ibanValid,
		},
		&PatternRecognizer{
			RecognizerName: "email",
			Kind:           KindEmail,
			Patterns:       []*regexp.Regexp{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)},
			Score:          1.0,
		},
		&PatternRecognizer{
			RecognizerName: "us_ssn",
			Kind:           KindSSN,
			Patterns:       []*regexp.Regexp{regexp.MustCompile(`\b\d{3}[- .]\d{2}[- .]\d{4}\b`)},
			Score:          0.5,
			Validate:       ssnValid,
		},
		&PatternRecognizer{
			RecognizerName: "us_itin",
			Kind:           KindITIN,
			Patterns:       []*regexp.Regexp{regexp.MustCompile(`\b9\d{2}[- ]?(?:5\d|6[0-5]|7\d|8[0-8]|9[0-2]|9[4-9])[- ]?\d{4}\b`)},
			Score:          0.5,
		},
		&PatternRecognizer{
			RecognizerName: "phone",
			Kind:           KindPhone,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?:\+\d{1,3}[-.\s]?)?\(?\b\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`),
			},
			Score: 0.6,
		},
		&PatternRecognizer{
			RecognizerName: "us_bank_number",
			Kind:           KindBankAccount,
			Patterns:       []*regexp.Regexp{regexp.MustCompile(`\b\d{8,17}\b`)},
			Score:          0.05,
			Context:        []string{"account", "acct", "bank", "checking", "savings"},
			ContextScore:   0.65,
		},
		&PatternRecognizer{
			RecognizerName: "us_passport",
			Kind:           KindPassport,
			Patterns:       []*regexp.Regexp{regexp.MustCompile(`\b[A-Z]\d{8}\b|\b\d{9}\b`)},
			Score:          0.05,
			Context:        []string{"passport"},
			ContextScore:   0.7,
		},
		&PatternRecognizer{
			RecognizerName: "us_driver_license",
			Kind:           KindDriverLicense,
			Patterns:       []*regexp.Regexp{regexp.MustCompile(`\b[A-Z]{1,2}\d{4,12}\b`)},
			Score:          0.05,
			Context:        []string{"driver", "license", "licence", "dmv"},
			ContextScore:   0.65,
		},
		&PatternRecognizer{
			RecognizerName: "ip_address",
			Kind:           KindIP,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
				regexp.MustCompile(`(?i)\b[0-9a-f]{0,4}(?::[0-9a-f]{0,4}){2,7}\b`),
			},
			Score:    0.9,
			Validate: ipValid,
		},
		&PatternRecognizer{
			RecognizerName: "date_time",
			Kind:           KindDateTime,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}(?:[T ]\d{2}:\d{2}(?::\d{2})?)?\b`),
				regexp.MustCompile(`\b\d{1,2}/\d{1,2}/(?:\d{4}|\d{2})\b`),
				regexp.MustCompile(`\b(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|June?|July?|Aug(?:ust)?|Sep(?:t(?:ember)?)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)\.? \d{1,2}(?:st|nd|rd|th)?(?:,? \d{4})?\b`),
				regexp.MustCompile(`\b\d{1,2}:\d{2}(?::\d{2})?\s?(?:[AaPp]\.?[Mm]\b\.?)?`),
				regexp.MustCompile(`(?i)\b(?:yesterday|today|tonight|tomorrow|(?:last|this|next)\s+(?:night|week|weekend|month|year|monday|tuesday|wednesday|thursday|friday|saturday|sunday)|\d+\s+(?:days?|weeks?|months?|years?)\s+ago)\b`),
			},
			Score: 0.6,
		},
		&PatternRecognizer{
			RecognizerName: "honorific_name",
			Kind:           KindPerson,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`\b(?:Mr|Mrs|Ms|Miss|Mx|Dr|Prof)\.?\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`),
				regexp.MustCompile(`(?i:\bmy name is|\bname:)\s*([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`),
			},
			Group: 1,
			Score: 0.7,
		},
		&PatternRecognizer{
			RecognizerName: "street_address",
			Kind:           KindLocation,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`\b\d{1,5}\s+(?:[A-Z][a-z]+\s+){1,3}(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr|Court|Ct|Way|Place|Pl)\b\.?`),
				regexp.MustCompile(`\b[A-Z][a-z]+(?:\s[A-Z][a-z]+)?,\s?[A-Z]{2}\s\d{5}(?:-\d{4})?\b`),
			},
			Score: 0.6,
		},
	}
}

// luhnValid reports whether the digits of s pass the Luhn checksum.
func luhnValid(s string) bool {
	digits := onlyDigits(s)
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// ibanValid checks length and the ISO 13616 mod-97 checksum.
func ibanValid(s string) bool {
	iban := strings.ToUpper(strings.ReplaceAll(s, " ", ""))
	if len(iban) < 15 || len(iban) > 34 {
		return false
	}

	rearranged := iban[4:] + iban[:4]
	remainder := 0
	for _, c := range rearranged {
		switch {
		case c >= '0' && c <= '9':
			remainder = (remainder*10 + int(c-'0')) % 97
		case c >= 'A' && c <= 'Z':
			v := int(c-'A') + 10
			remainder = (remainder*100 + v) % 97
		default:
			return false
		}
	}
	return remainder == 1
}

// ssnValid rejects numbers the SSA never issues.
func ssnValid(s string) bool {
	digits := onlyDigits(s)
	if len(digits) != 9 {
		return false
	}

	area, group, serial := digits[:3], digits[3:5], digits[5:]
	if area == "000" || area == "666" || area[0] == '9' {
		return false
	}
	if group == "00" || serial == "0000" {
		return false
	}
	return strings.Count(digits, digits[:1]) != len(digits)
}

func ipValid(s string) bool {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return false
	}
	return !addr.IsUnspecified()
}

func onlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, c := range s {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}
