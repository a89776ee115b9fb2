// Package matching finds the transactions a customer is describing.
//
// Customers rarely quote an exact amount or date: "about fifty dollars,
// sometime last week". Match applies tolerance-based criteria to a set of
// records and returns every record that satisfies all of them:
//
//   - Amount: |record - target| <= tolerance% x |target|, inclusive, in
//     exact decimal arithmetic. A zero amount only matches a zero amount.
//   - Date: whole calendar days between the two dates <= tolerance days.
//   - Merchant, category and status: exact membership or equality.
//
// Unset criteria do not filter. The engine is pure: no I/O, no clock, no
// shared state.
//
//	res := matching.Match(txns, matching.Criteria{
//	    Amount:                 &fifty,
//	    AmountTolerancePercent: 10,
//	    Date:                   &day,
//	    DateToleranceDays:      3,
//	})
//	page := res.Limit(10)
//	fmt.Println(page.Summary()) // "Found 14 matching transactions. Showing top 10."
package matching
