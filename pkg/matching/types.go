package matching

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is a transaction's settlement state.
type Status string

const (
	StatusPosted   Status = "posted"
	StatusPending  Status = "pending"
	StatusRefunded Status = "refunded"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPosted, StatusPending, StatusRefunded:
		return true
	}
	return false
}

// Transaction is a card transaction on a customer's account.
type Transaction struct {
	ID         string           `json:"id" yaml:"id"`
	UserID     string           `json:"user_id" yaml:"user_id"`
	Amount     decimal.Decimal  `json:"amount" yaml:"amount"`
	Currency   string           `json:"currency" yaml:"currency"`
	Date       time.Time        `json:"date" yaml:"date"`
	MerchantID string           `json:"merchant_id" yaml:"merchant_id"`
	Reason     string           `json:"reason" yaml:"reason"`
	Category   string           `json:"category" yaml:"category"`
	CardLast4  string           `json:"card_last4" yaml:"card_last4"`
	Location   string           `json:"location,omitempty" yaml:"location,omitempty"`
	Fees       *decimal.Decimal `json:"fees,omitempty" yaml:"fees,omitempty"`
	Status     Status           `json:"status" yaml:"status"`
}

// DisplayAmount formats the amount with its currency, e.g. "USD 45.99".
func (t Transaction) DisplayAmount() string {
	currency := t.Currency
	if currency == "" {
		currency = "USD"
	}
	return currency + " " + t.Amount.StringFixed(2)
}

// Merchant is a business that appears on statements.
type Merchant struct {
	ID                     string   `json:"id" yaml:"id"`
	Name                   string   `json:"name" yaml:"name"`
	Category               string   `json:"category" yaml:"category"`
	Description            string   `json:"description" yaml:"description"`
	Address                string   `json:"address,omitempty" yaml:"address,omitempty"`
	Phone                  string   `json:"phone,omitempty" yaml:"phone,omitempty"`
	Website                string   `json:"website,omitempty" yaml:"website,omitempty"`
	CommonTransactionTypes []string `json:"common_transaction_types,omitempty" yaml:"common_transaction_types,omitempty"`
	KnownAliases           []string `json:"known_aliases,omitempty" yaml:"known_aliases,omitempty"`
	ParentCompany          string   `json:"parent_company,omitempty" yaml:"parent_company,omitempty"`
	DisputeRate            float64  `json:"dispute_rate" yaml:"dispute_rate"`
}

// MatchesName reports whether query is a case-insensitive substring of the
// merchant's name or any of its aliases.
func (m Merchant) MatchesName(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return false
	}
	if strings.Contains(strings.ToLower(m.Name), q) {
		return true
	}
	for _, alias := range m.KnownAliases {
		if strings.Contains(strings.ToLower(alias), q) {
			return true
		}
	}
	return false
}

// ResolveMerchantIDs returns the ids of merchants matching name. The result
// is never nil, so used as Criteria.MerchantIDs an unknown name matches no
// transaction instead of lifting the merchant filter.
func ResolveMerchantIDs(merchants []Merchant, name string) []string {
	ids := []string{}
	for _, m := range merchants {
		if m.MatchesName(name) {
			ids = append(ids, m.ID)
		}
	}
	return ids
}
