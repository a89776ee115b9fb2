package matching

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Criteria describes the transactions being looked for. Nil pointers, nil
// slices and empty strings leave that dimension unfiltered.
type Criteria struct {
	Amount                 *decimal.Decimal
	AmountTolerancePercent float64

	Date              *time.Time
	DateToleranceDays int

	// MerchantIDs restricts matches to these merchants. A non-nil empty
	// slice matches nothing.
	MerchantIDs []string

	Category string
	Status   Status
}

// IsEmpty reports whether no criterion is set.
func (c Criteria) IsEmpty() bool {
	return c.Amount == nil && c.Date == nil && c.MerchantIDs == nil && c.Category == "" && c.Status == ""
}

// Matches reports whether t satisfies every set criterion.
func (c Criteria) Matches(t Transaction) bool {
	if c.Amount != nil && !AmountWithin(t.Amount, *c.Amount, c.AmountTolerancePercent) {
		return false
	}
	if c.Date != nil && !DateWithin(t.Date, *c.Date, c.DateToleranceDays) {
		return false
	}
	if c.MerchantIDs != nil && !slices.Contains(c.MerchantIDs, t.MerchantID) {
		return false
	}
	if c.Category != "" && t.Category != c.Category {
		return false
	}
	if c.Status != "" && t.Status != c.Status {
		return false
	}
	return true
}

// AmountWithin reports whether amount is within tolerancePercent of target,
// measured relative to target. The boundary is inclusive. A zero on either
// side only matches a zero on the other.
func AmountWithin(amount, target decimal.Decimal, tolerancePercent float64) bool {
	if amount.IsZero() || target.IsZero() {
		return amount.IsZero() && target.IsZero()
	}

	tol := decimal.NewFromFloat(tolerancePercent)
	if tol.IsNegative() {
		tol = decimal.Zero
	}

	// |amount - target| * 100 <= tol * |target|
	diff := amount.Sub(target).Abs().Mul(hundred)
	return diff.LessThanOrEqual(tol.Mul(target.Abs()))
}

// DateWithin reports whether the calendar dates of t and target are at most
// toleranceDays apart. t is read in target's time zone.
func DateWithin(t, target time.Time, toleranceDays int) bool {
	if toleranceDays < 0 {
		toleranceDays = 0
	}
	days := CalendarDays(t.In(target.Location()), target)
	if days < 0 {
		days = -days
	}
	return days <= toleranceDays
}

// CalendarDays returns the signed number of calendar days from b to a,
// ignoring the time of day.
func CalendarDays(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(da.Sub(db).Hours() / 24)
}

// Result holds every matching record and the true match count.
type Result struct {
	Transactions []Transaction
	Total        int
}

// Match returns the records satisfying c, in input order.
func Match(records []Transaction, c Criteria) Result {
	out := make([]Transaction, 0, len(records))
	for _, t := range records {
		if c.Matches(t) {
			out = append(out, t)
		}
	}
	return Result{Transactions: out, Total: len(out)}
}

// Page is a truncated view of a Result.
type Page struct {
	Transactions []Transaction
	Total        int
	Shown        int
	Limit        int
}

// Limit returns at most k records. A non-positive k keeps all of them.
func (r Result) Limit(k int) Page {
	shown := r.Transactions
	if k > 0 && len(shown) > k {
		shown = shown[:k]
	}
	return Page{
		Transactions: shown,
		Total:        r.Total,
		Shown:        len(shown),
		Limit:        k,
	}
}

// Truncated reports whether records were left out.
func (p Page) Truncated() bool {
	return p.Shown < p.Total
}

// Summary describes the page for an end user.
func (p Page) Summary() string {
	switch {
	case p.Total == 0:
		return "No matching transactions found."
	case p.Total == 1:
		return "Found 1 matching transaction."
	case p.Truncated():
		return fmt.Sprintf("Found %d matching transactions. Showing top %d.", p.Total, p.Shown)
	default:
		return fmt.Sprintf("Found %d matching transactions.", p.Total)
	}
}
