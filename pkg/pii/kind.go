package pii

// Kind names a category of personal data.
type Kind string

// Pattern-pass kinds.
const (
	KindCreditCard    Kind = "credit_card"
	KindSSN           Kind = "ssn"
	KindEmail         Kind = "email"
	KindPhone         Kind = "phone"
	KindBankAccount   Kind = "bank_account"
	KindRoutingNumber Kind = "routing_number"
)

// Entity-pass kinds.
const (
	KindPerson        Kind = "person"
	KindLocation      Kind = "location"
	KindDateTime      Kind = "datetime"
	KindIP            Kind = "ip"
	KindPassport      Kind = "passport"
	KindDriverLicense Kind = "driver_license"
	KindIBAN          Kind = "iban"
	KindITIN          Kind = "itin"
)

// sentinels maps each kind to its replacement text in the entity pass.
var sentinels = map[Kind]string{
	KindCreditCard:    "[REDACTED_CREDIT_CARD]",
	KindSSN:           "[REDACTED_SSN]",
	KindEmail:         "[REDACTED_EMAIL]",
	KindPhone:         "[REDACTED_PHONE]",
	KindBankAccount:   "[REDACTED_BANK_ACCOUNT]",
	KindRoutingNumber: "[REDACTED_ROUTING]",
	KindPerson:        "[REDACTED_PERSON]",
	KindLocation:      "[REDACTED_LOCATION]",
	KindDateTime:      "[REDACTED_DATETIME]",
	KindIP:            "[REDACTED_IP]",
	KindPassport:      "[REDACTED_PASSPORT]",
	KindDriverLicense: "[REDACTED_LICENSE]",
	KindIBAN:          "[REDACTED_IBAN]",
	KindITIN:          "[REDACTED_ITIN]",
}

// DefaultSentinel replaces spans of unknown kind.
const DefaultSentinel = "[REDACTED]"

// Sentinel returns the entity-pass replacement for k.
func (k Kind) Sentinel() string {
	if s, ok := sentinels[k]; ok {
		return s
	}
	return DefaultSentinel
}

// Match is one detected piece of personal data. Start and End are byte
// offsets into the analyzed text.
type Match struct {
	Kind  Kind   `json:"type"`
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}
