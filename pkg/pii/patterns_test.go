package pii

import (
	"testing"
)

// ============================================================================
// Pattern Pass Tests
// ============================================================================

func TestRedactPatterns(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty",
			input: "",
			want:  "",
		},
		{
			name:  "card ssn email",
			input: "Card: 4111-1111-1111-1111, SSN 123-45-6789, email test@example.com",
			want:  "Card: [REDACTED_CREDIT_CARD], SSN [REDACTED_SSN], email [REDACTED_EMAIL]",
		},
		{
			name:  "card with spaces",
			input: "my card 4111 1111 1111 1111 was charged",
			want:  "my card [REDACTED_CREDIT_CARD] was charged",
		},
		{
			name:  "phone formats",
			input: "call 555-123-4567 or +1 555.123.4567",
			want:  "call [REDACTED_PHONE] or +1 [REDACTED_PHONE]",
		},
		{
			name:  "routing before account",
			input: "routing 021000021 account 123456789012",
			want:  "routing [REDACTED_ROUTING] account [REDACTED_ACCOUNT]",
		},
		{
			name:  "nine digits outside routing range",
			input: "ref 456789012",
			want:  "ref [REDACTED_ACCOUNT]",
		},
		{
			name:  "amounts and short numbers untouched",
			input: "I was charged $45.99 twice on order 12345",
			want:  "I was charged $45.99 twice on order 12345",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RedactPatterns(tt.input); got != tt.want {
				t.Errorf("RedactPatterns(%q)\n got: %q\nwant: %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRedactPatterns_Idempotent(t *testing.T) {
	inputs := []string{
		"Card: 4111-1111-1111-1111, SSN 123-45-6789, email test@example.com",
		"call 555-123-4567, account 987654321012345",
		"nothing sensitive here",
	}
	for _, in := range inputs {
		once := RedactPatterns(in)
		if twice := RedactPatterns(once); twice != once {
			t.Errorf("not idempotent:\n once: %q\ntwice: %q", once, twice)
		}
	}
}

func TestPatternRules_Order(t *testing.T) {
	want := []Kind{KindCreditCard, KindSSN, KindEmail, KindPhone, KindRoutingNumber, KindBankAccount}
	rules := PatternRules()
	if len(rules) != len(want) {
		t.Fatalf("expected %d rules, got %d", len(want), len(rules))
	}
	for i, k := range want {
		if rules[i].Kind != k {
			t.Errorf("rule %d: expected %s, got %s", i, k, rules[i].Kind)
		}
	}

	// Mutating the copy must not affect redaction.
	rules[0].Replacement = "x"
	if got := RedactPatterns("4111 1111 1111 1111"); got != "[REDACTED_CREDIT_CARD]" {
		t.Errorf("rule table was mutated through PatternRules: %q", got)
	}
}

func TestKind_Sentinel(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindIBAN, "[REDACTED_IBAN]"},
		{KindBankAccount, "[REDACTED_BANK_ACCOUNT]"},
		{KindDriverLicense, "[REDACTED_LICENSE]"},
		{KindDateTime, "[REDACTED_DATETIME]"},
		{Kind("unknown"), "[REDACTED]"},
	}
	for _, tt := range tests {
		if got := tt.kind.Sentinel(); got != tt.want {
			t.Errorf("%s.Sentinel() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
