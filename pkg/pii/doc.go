// Package pii finds and redacts personally identifiable information before
// text reaches a language model, a log line or the audit trail.
//
// # Two Passes
//
// The pattern pass (RedactPatterns) applies six fixed regular-expression
// rules in a fixed order: credit card, SSN, email, phone, routing number and
// finally the broad 9-17 digit bank account rule. Each match becomes a
// sentinel such as [REDACTED_CREDIT_CARD]. The order matters: the specific
// rules must claim their digits before the catch-all account rule runs.
//
// The entity pass (Redactor.RedactEntities) runs an Engine of recognizers
// over the taxonomy used by the audit and assistant layers: validated card
// numbers (Luhn), IBANs (mod-97), bank numbers, SSNs and ITINs, email and
// phone, passport and driver license numbers near their context words, IP
// addresses, dates, and person and location names. Names come from a
// named-entity tagger (ProseTagger) plus deterministic honorific and street
// address recognizers.
//
//	redactor := pii.NewRedactor(pii.SharedEngine())
//	safe := redactor.Redact("Card 4111 1111 1111 1111, call Dr. Jane Doe")
//	// "Card [REDACTED_CREDIT_CARD], call Dr. [REDACTED_PERSON]"
//
// Both passes leave existing sentinels alone, so redacting already redacted
// text is a no-op.
//
// # Detection
//
// Redactor.Detect reports what would be redacted as Match values with byte
// offsets into the original text: pattern matches first, in rule order,
// then entity matches, with duplicate (Start, End) ranges removed.
//
// # Shared Engine
//
// Loading the tagger model is expensive. SharedEngine builds the process-wide
// engine at most once, even when first called from many goroutines. Tests and
// callers needing isolation construct their own with NewEngine.
package pii
