package pii

import (
	"regexp"
)

// Rule is one pattern-pass rule.
type Rule struct {
	Kind        Kind
	Pattern     *regexp.Regexp
	Replacement string
}

// patternRules run in this order. The account rule must stay last.
var patternRules = []Rule{
	{
		Kind:        KindCreditCard,
		Pattern:     regexp.MustCompile(`\b(?:\d{4}[-\s]?){3}\d{4}\b`),
		Replacement: "[REDACTED_CREDIT_CARD]",
	},
	{
		Kind:        KindSSN,
		Pattern:     regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
		Replacement: "[REDACTED_SSN]",
	},
	{
		Kind:        KindEmail,
		Pattern:     regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`),
		Replacement: "[REDACTED_EMAIL]",
	},
	{
		Kind:        KindPhone,
		Pattern:     regexp.MustCompile(`\b(?:\+1[-.\s]?)?\(?[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}\b`),
		Replacement: "[REDACTED_PHONE]",
	},
	{
		Kind:        KindRoutingNumber,
		Pattern:     regexp.MustCompile(`\b[0-3]\d{8}\b`),
		Replacement: "[REDACTED_ROUTING]",
	},
	{
		Kind:        KindBankAccount,
		Pattern:     regexp.MustCompile(`\b\d{9,17}\b`),
		Replacement: "[REDACTED_ACCOUNT]",
	},
}

// sentinelPattern matches any redaction sentinel.
var sentinelPattern = regexp.MustCompile(`\[REDACTED(?:_[A-Z_]+)?\]`)

// PatternRules returns a copy of the ordered pattern-pass rules.
func PatternRules() []Rule {
	rules := make([]Rule, len(patternRules))
	copy(rules, patternRules)
	return rules
}

// RedactPatterns applies the pattern pass to text.
func RedactPatterns(text string) string {
	return redactPatterns(text, nil)
}

// redactPatterns applies each rule in order, reporting every replacement
// to onMatch when it is non-nil.
func redactPatterns(text string, onMatch func(Kind)) string {
	if text == "" {
		return text
	}

	for _, rule := range patternRules {
		if onMatch == nil {
			text = rule.Pattern.ReplaceAllLiteralString(text, rule.Replacement)
			continue
		}
		text = rule.Pattern.ReplaceAllStringFunc(text, func(string) string {
			onMatch(rule.Kind)
			return rule.Replacement
		})
	}
	return text
}

// detectPatterns reports pattern-pass matches in the original text, in
// rule order, skipping ranges already reported.
func detectPatterns(text string, seen map[[2]int]bool) []Match {
	var matches []Match
	for _, rule := range patternRules {
		for _, loc := range rule.Pattern.FindAllStringIndex(text, -1) {
			key := [2]int{loc[0], loc[1]}
			if seen[key] {
				continue
			}
			seen[key] = true
			matches = append(matches, Match{
				Kind:  rule.Kind,
				Text:  text[loc[0]:loc[1]],
				Start: loc[0],
				End:   loc[1],
			})
		}
	}
	return matches
}
