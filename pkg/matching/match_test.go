package matching

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 14, 30, 0, 0, time.UTC)
}

// ============================================================================
// Amount Tests
// ============================================================================

func TestAmountWithin(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		target string
		tol    float64
		want   bool
	}{
		{"exact", "50.00", "50", 10, true},
		{"lower bound", "45.00", "50", 10, true},
		{"upper bound", "55.00", "50", 10, true},
		{"just below", "44.99", "50", 10, false},
		{"just above", "55.01", "50", 10, false},
		{"zero tolerance exact", "19.99", "19.99", 0, true},
		{"zero tolerance off by a cent", "19.98", "19.99", 0, false},
		{"zero record zero target", "0", "0", 10, true},
		{"zero record nonzero target", "0", "5", 100, false},
		{"nonzero record zero target", "5", "0", 100, false},
		{"negative amounts", "-48", "-50", 10, true},
		{"negative tolerance treated as zero", "49", "50", -5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AmountWithin(amt(tt.amount), amt(tt.target), tt.tol)
			if got != tt.want {
				t.Errorf("AmountWithin(%s, %s, %v) = %v, want %v", tt.amount, tt.target, tt.tol, got, tt.want)
			}
		})
	}
}

func TestMatch_AmountSet(t *testing.T) {
	records := []Transaction{
		{ID: "t1", Amount: amt("45")},
		{ID: "t2", Amount: amt("50")},
		{ID: "t3", Amount: amt("56")},
	}

	res := Match(records, Criteria{Amount: ptr(amt("50")), AmountTolerancePercent: 10})
	if res.Total != 2 {
		t.Fatalf("expected 2 matches, got %d", res.Total)
	}
	if res.Transactions[0].ID != "t1" || res.Transactions[1].ID != "t2" {
		t.Errorf("expected t1 and t2 in input order, got %v", ids(res.Transactions))
	}
}

// ============================================================================
// Date Tests
// ============================================================================

func TestDateWithin(t *testing.T) {
	target := day(2025, time.January, 15)
	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{"same day different time", time.Date(2025, 1, 15, 0, 1, 0, 0, time.UTC), true},
		{"three days before", day(2025, time.January, 12), true},
		{"three days after late evening", time.Date(2025, 1, 18, 23, 59, 0, 0, time.UTC), true},
		{"four days before", day(2025, time.January, 11), false},
		{"four days after", day(2025, time.January, 19), false},
		{"across month boundary", day(2025, time.February, 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DateWithin(tt.date, target, 3); got != tt.want {
				t.Errorf("DateWithin(%s) = %v, want %v", tt.date.Format(time.RFC3339), got, tt.want)
			}
		})
	}
}

func TestCalendarDays_DST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("time zone data unavailable: %v", err)
	}
	a := time.Date(2025, time.March, 10, 12, 0, 0, 0, loc)
	b := time.Date(2025, time.March, 8, 12, 0, 0, 0, loc)
	if got := CalendarDays(a, b); got != 2 {
		t.Errorf("expected 2 days across DST change, got %d", got)
	}
}

// ============================================================================
// Combined Criteria Tests
// ============================================================================

func TestMatch_Criteria(t *testing.T) {
	records := []Transaction{
		{ID: "t1", Amount: amt("49.99"), Date: day(2025, 1, 14), MerchantID: "m1", Category: "subscription", Status: StatusPosted},
		{ID: "t2", Amount: amt("49.99"), Date: day(2025, 1, 14), MerchantID: "m2", Category: "subscription", Status: StatusPosted},
		{ID: "t3", Amount: amt("49.99"), Date: day(2025, 1, 2), MerchantID: "m1", Category: "subscription", Status: StatusPosted},
		{ID: "t4", Amount: amt("12.00"), Date: day(2025, 1, 14), MerchantID: "m1", Category: "food", Status: StatusPending},
	}

	tests := []struct {
		name     string
		criteria Criteria
		want     []string
	}{
		{"no criteria matches all", Criteria{}, []string{"t1", "t2", "t3", "t4"}},
		{"merchant", Criteria{MerchantIDs: []string{"m1"}}, []string{"t1", "t3", "t4"}},
		{"empty merchant list matches nothing", Criteria{MerchantIDs: []string{}}, nil},
		{"category", Criteria{Category: "food"}, []string{"t4"}},
		{"status", Criteria{Status: StatusPosted}, []string{"t1", "t2", "t3"}},
		{
			"all combined",
			Criteria{
				Amount:                 ptr(amt("50")),
				AmountTolerancePercent: 10,
				Date:                   ptr(day(2025, 1, 15)),
				DateToleranceDays:      3,
				MerchantIDs:            []string{"m1"},
				Category:               "subscription",
				Status:                 StatusPosted,
			},
			[]string{"t1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Match(records, tt.criteria)
			got := ids(res.Transactions)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("expected %v, got %v", tt.want, got)
					break
				}
			}
			if res.Total != len(tt.want) {
				t.Errorf("expected total %d, got %d", len(tt.want), res.Total)
			}
		})
	}
}

func TestCriteria_IsEmpty(t *testing.T) {
	if !(Criteria{AmountTolerancePercent: 10, DateToleranceDays: 3}).IsEmpty() {
		t.Error("tolerances alone do not make criteria non-empty")
	}
	if (Criteria{Category: "food"}).IsEmpty() {
		t.Error("category criterion should count")
	}
}

// ============================================================================
// Page Tests
// ============================================================================

func TestResult_Limit(t *testing.T) {
	records := make([]Transaction, 14)
	for i := range records {
		records[i] = Transaction{ID: string(rune('a' + i))}
	}
	res := Match(records, Criteria{})

	tests := []struct {
		name    string
		result  Result
		limit   int
		shown   int
		summary string
	}{
		{"truncated", res, 10, 10, "Found 14 matching transactions. Showing top 10."},
		{"fits", res, 20, 14, "Found 14 matching transactions."},
		{"no limit", res, 0, 14, "Found 14 matching transactions."},
		{"single", Match(records[:1], Criteria{}), 10, 1, "Found 1 matching transaction."},
		{"none", Match(nil, Criteria{}), 10, 0, "No matching transactions found."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := tt.result.Limit(tt.limit)
			if page.Shown != tt.shown || len(page.Transactions) != tt.shown {
				t.Errorf("expected %d shown, got %d", tt.shown, page.Shown)
			}
			if page.Total != tt.result.Total {
				t.Errorf("total changed by limit: %d != %d", page.Total, tt.result.Total)
			}
			if got := page.Summary(); got != tt.summary {
				t.Errorf("Summary() = %q, want %q", got, tt.summary)
			}
		})
	}
}

// ============================================================================
// Merchant Tests
// ============================================================================

func TestMerchant_MatchesName(t *testing.T) {
	m := Merchant{ID: "m1", Name: "Amazon Prime", KnownAliases: []string{"AMZN Mktp", "Amazon.com"}}

	tests := []struct {
		query string
		want  bool
	}{
		{"amazon", true},
		{"PRIME", true},
		{"amzn", true},
		{"mktp", true},
		{"netflix", false},
		{"  ", false},
	}
	for _, tt := range tests {
		if got := m.MatchesName(tt.query); got != tt.want {
			t.Errorf("MatchesName(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestResolveMerchantIDs(t *testing.T) {
	merchants := []Merchant{
		{ID: "m1", Name: "Netflix"},
		{ID: "m2", Name: "Spotify", KnownAliases: []string{"SPOTIFY USA"}},
		{ID: "m3", Name: "Netflix DVD"},
	}
	got := ResolveMerchantIDs(merchants, "netflix")
	if len(got) != 2 || got[0] != "m1" || got[1] != "m3" {
		t.Errorf("expected [m1 m3], got %v", got)
	}

	none := ResolveMerchantIDs(merchants, "hulu")
	if none == nil || len(none) != 0 {
		t.Fatalf("expected an empty non-nil slice, got %#v", none)
	}
	records := []Transaction{{ID: "t1", MerchantID: "m1"}, {ID: "t2", MerchantID: "m2"}}
	if res := Match(records, Criteria{MerchantIDs: none}); res.Total != 0 {
		t.Errorf("unknown merchant matched %d transactions, want 0", res.Total)
	}
}

func TestTransaction_DisplayAmount(t *testing.T) {
	if got := (Transaction{Amount: amt("45.5")}).DisplayAmount(); got != "USD 45.50" {
		t.Errorf("DisplayAmount() = %q", got)
	}
	if got := (Transaction{Amount: amt("10"), Currency: "EUR"}).DisplayAmount(); got != "EUR 10.00" {
		t.Errorf("DisplayAmount() = %q", got)
	}
}

func ids(txns []Transaction) []string {
	var out []string
	for _, t := range txns {
		out = append(out, t.ID)
	}
	return out
}
