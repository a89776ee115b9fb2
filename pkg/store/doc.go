// Package store provides the transaction, merchant and dispute repository
// behind the assistant's tools.
//
// Two backends implement Store:
//
//   - MemoryStore keeps everything in maps and is used by tests and demos.
//   - SQLiteStore persists to a SQLite database through either the pure-Go
//     driver ("sqlite", modernc.org/sqlite) or the cgo driver ("sqlite3",
//     github.com/mattn/go-sqlite3).
//
// Both backends apply matching.Match for amount and date tolerances, so a
// query returns the same records regardless of backend. SQLiteStore pushes
// the exact-match filters (user, merchant, category, status) into SQL first.
//
// Transactions are returned newest first. Every query is scoped to a user id;
// there is no way to list another user's transactions.
package store
