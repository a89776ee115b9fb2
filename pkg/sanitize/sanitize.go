package sanitize

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxLength bounds input size to prevent context stuffing.
const DefaultMaxLength = 5000

// TruncationMarker is appended to truncated input.
const TruncationMarker = "... [truncated]"

type rule struct {
	re       *regexp.Regexp
	category Category
}

var injectionRules = []rule{
	{regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|above|prior)\s+(instructions?|prompts?)`), CategoryInstructionOverride},
	{regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|above|prior)`), CategoryInstructionOverride},
	{regexp.MustCompile(`(?i)forget\s+(everything|all)`), CategoryInstructionOverride},

	{regexp.MustCompile(`(?i)(show|print|display|reveal|output)\s+(me\s+)?(your\s+)?(system\s+)?prompt`), CategoryPromptExtraction},
	{regexp.MustCompile(`(?i)what\s+(are|is)\s+your\s+(instructions?|prompt)`), CategoryPromptExtraction},
	{regexp.MustCompile(`(?i)repeat\s+(your\s+)?(initial\s+)?(instructions?|prompt)`), CategoryPromptExtraction},

	{regexp.MustCompile(`(?i)you\s+are\s+now\s+a`), CategoryRoleManipulation},
	{regexp.MustCompile(`(?i)pretend\s+(to\s+be|you're)`), CategoryRoleManipulation},
	{regexp.MustCompile(`(?i)act\s+as\s+(if|a)`), CategoryRoleManipulation},
	{regexp.MustCompile(`(?i)roleplay\s+as`), CategoryRoleManipulation},

	{regexp.MustCompile("(?i)```\\s*(system|assistant|user)\\s*\\n"), CategoryDelimiterInjection},
	{regexp.MustCompile(`(?i)<\|?(system|assistant|user)\|?>`), CategoryDelimiterInjection},

	{regexp.MustCompile(`(?i)\\n\\n.*system:`), CategoryEscapeAttempt},
}

// dangerousChars are removed outright.
var dangerousChars = []struct {
	char string
	name string
}{
	{"\x00", `'\x00'`},
	{"\x1b", `'\x1b'`},
}

var spaceRun = regexp.MustCompile(` {3,}`)

// Options tunes Sanitize.
type Options struct {
	// MaxLength is the maximum input length in characters. Default: 5000
	MaxLength int
}

// Sanitize removes dangerous characters, detects suspicious patterns,
// collapses runs of three or more spaces to two and truncates input longer
// than MaxLength. Patterns are matched against the raw input so removed
// characters cannot be used to split a phrase.
func Sanitize(text string, opts Options) Result {
	maxLen := opts.MaxLength
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}

	res := Result{
		Text:           text,
		OriginalLength: utf8.RuneCountInString(text),
	}

	for _, dc := range dangerousChars {
		if strings.Contains(res.Text, dc.char) {
			res.Text = strings.ReplaceAll(res.Text, dc.char, "")
			res.Modified = true
			res.Warnings = append(res.Warnings, "Removed dangerous character: "+dc.name)
		}
	}

	for _, r := range injectionRules {
		if r.re.MatchString(text) {
			res.Findings = append(res.Findings, Finding{Category: r.category, Pattern: r.re.String()})
			res.Warnings = append(res.Warnings, "Suspicious pattern detected: "+string(r.category))
		}
	}

	if collapsed := spaceRun.ReplaceAllString(res.Text, "  "); collapsed != res.Text {
		res.Text = collapsed
		res.Modified = true
	}

	if utf8.RuneCountInString(res.Text) > maxLen {
		res.Text = truncateRunes(res.Text, maxLen) + TruncationMarker
		res.Modified = true
		res.Truncated = true
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("Input truncated from %d to %d characters", res.OriginalLength, maxLen))
	}

	return res
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
