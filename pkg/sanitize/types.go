package sanitize

// Category classifies a suspicious input pattern.
type Category string

const (
	CategoryInstructionOverride Category = "instruction_override"
	CategoryPromptExtraction    Category = "prompt_extraction"
	CategoryRoleManipulation    Category = "role_manipulation"
	CategoryDelimiterInjection  Category = "delimiter_injection"
	CategoryEscapeAttempt       Category = "escape_attempt"
)

// Finding is one suspicious pattern found in the input.
type Finding struct {
	// Category is the kind of manipulation the pattern suggests.
	Category Category

	// Pattern is the expression that matched.
	Pattern string
}

// Result is the outcome of Sanitize.
type Result struct {
	// Text is the sanitized input.
	Text string

	// Modified reports whether Text differs from the input.
	Modified bool

	// Warnings are human-readable notes, one per change or finding.
	Warnings []string

	// Findings lists every suspicious pattern that matched.
	Findings []Finding

	// Truncated reports whether the input exceeded the maximum length.
	Truncated bool

	// OriginalLength is the input length in characters.
	OriginalLength int
}

// Suspicious reports whether any injection pattern matched.
func (r Result) Suspicious() bool {
	return len(r.Findings) > 0
}

// Categories returns the distinct categories found, in detection order.
func (r Result) Categories() []Category {
	var out []Category
	seen := make(map[Category]bool)
	for _, f := range r.Findings {
		if !seen[f.Category] {
			seen[f.Category] = true
			out = append(out, f.Category)
		}
	}
	return out
}

// Confidence grows with the number of distinct categories matched.
func (r Result) Confidence() float64 {
	switch n := len(r.Categories()); {
	case n >= 3:
		return 0.95
	case n == 2:
		return 0.85
	case n == 1:
		return 0.75
	default:
		return 0
	}
}
