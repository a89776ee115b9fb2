package pii

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RedactedValue replaces sensitive field values.
const RedactedValue = "[REDACTED]"

// sensitiveFields are masked by RedactFields regardless of their value.
var sensitiveFields = map[string]bool{
	"card_number": true,
	"card_last4":  true,
	"ssn":         true,
	"email":       true,
	"phone":       true,
	"password":    true,
	"api_key":     true,
	"token":       true,
	"secret":      true,
}

// HashUserID returns the first 12 hex characters of the SHA-256 of userID.
func HashUserID(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])[:12]
}

// MaskCardNumber keeps only the last four characters of a card number.
func MaskCardNumber(card string) string {
	if card == "" {
		return ""
	}
	if len(card) <= 4 {
		return "****" + card
	}
	return "****" + card[len(card)-4:]
}

// MaskAmount hides everything but the cents of an amount, e.g. $**.99.
func MaskAmount(amount decimal.Decimal) string {
	cents := amount.Abs().Shift(2).IntPart() % 100
	return fmt.Sprintf("$**.%02d", cents)
}

// MaskAmountString is MaskAmount for unparsed input. Unparseable values
// become $**.XX.
func MaskAmountString(amount string) string {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return "$**.XX"
	}
	return MaskAmount(d)
}

// RedactFields returns a copy of data with sensitive keys masked, recursing
// into nested maps and slices of maps. card_last4 keeps its digits behind a
// mask prefix.
func RedactFields(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}

	out := make(map[string]any, len(data))
	for key, value := range data {
		lower := strings.ToLower(key)
		if sensitiveFields[lower] {
			out[key] = maskField(lower, value)
			continue
		}
		out[key] = redactValue(value)
	}
	return out
}

func maskField(key string, value any) any {
	if key != "card_last4" {
		return RedactedValue
	}
	s := fmt.Sprint(value)
	if value == nil || s == "" {
		return RedactedValue
	}
	return "****" + s
}

func redactValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return RedactFields(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			if m, ok := item.(map[string]any); ok {
				out[i] = RedactFields(m)
			} else {
				out[i] = item
			}
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(v))
		for i, m := range v {
			out[i] = RedactFields(m)
		}
		return out
	default:
		return value
	}
}
