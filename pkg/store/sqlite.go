package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver "sqlite3" (cgo)
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // SQLite driver "sqlite" (pure Go)

	"disputedesk-hq/guardrail/pkg/matching"
)

// Supported database/sql driver names.
const (
	DriverModernc = "sqlite"
	DriverMattn   = "sqlite3"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS merchants (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	website TEXT NOT NULL DEFAULT '',
	common_transaction_types TEXT NOT NULL DEFAULT '[]',
	known_aliases TEXT NOT NULL DEFAULT '[]',
	parent_company TEXT NOT NULL DEFAULT '',
	dispute_rate REAL NOT NULL DEFAULT 0,
	seq INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	amount TEXT NOT NULL,
	currency TEXT NOT NULL DEFAULT 'USD',
	date TEXT NOT NULL,
	merchant_id TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	card_last4 TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	fees TEXT,
	status TEXT NOT NULL DEFAULT 'posted'
);

CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions(user_id, date DESC);

CREATE TABLE IF NOT EXISTS disputes (
	id TEXT PRIMARY KEY,
	transaction_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	created_at TEXT NOT NULL,
	complaint TEXT NOT NULL,
	context TEXT NOT NULL DEFAULT '[]',
	status TEXT NOT NULL,
	resolution_notes TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_disputes_user ON disputes(user_id, created_at DESC);
`

const transactionColumns = `id, user_id, amount, currency, date, merchant_id, reason, category, card_last4, location, fees, status`

const merchantColumns = `id, name, category, description, address, phone, website, common_transaction_types, known_aliases, parent_company, dispute_rate`

// SQLiteConfig configures a SQLiteStore.
type SQLiteConfig struct {
	// Driver is DriverModernc (default) or DriverMattn.
	Driver string

	// Path is the database file, or ":memory:".
	Path string

	// BusyTimeout is how long to wait for locks. Default: 5 seconds
	BusyTimeout time.Duration
}

// SQLiteStore is a Store backed by SQLite.
type SQLiteStore struct {
	db     *sql.DB
	driver string
}

// NewSQLiteStore opens (and if needed creates) the database and its schema.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverModernc
	}
	if cfg.Driver != DriverModernc && cfg.Driver != DriverMattn {
		return nil, fmt.Errorf("unsupported sqlite driver %q (want %q or %q)", cfg.Driver, DriverModernc, DriverMattn)
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	db, err := sql.Open(cfg.Driver, cfg.Path)
	if err != nil {
		return nil, newError(cfg.Driver, "open", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{db: db, driver: cfg.Driver}
	if err := s.init(cfg); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init(cfg SQLiteConfig) error {
	if cfg.Path != ":memory:" {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return newError(s.driver, "init", fmt.Errorf("failed to enable WAL mode: %w", err))
		}
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", cfg.BusyTimeout.Milliseconds())); err != nil {
		return newError(s.driver, "init", fmt.Errorf("failed to set busy timeout: %w", err))
	}
	if _, err := s.db.Exec(schema); err != nil {
		return newError(s.driver, "init", fmt.Errorf("failed to create schema: %w", err))
	}
	return nil
}

// Driver returns the database/sql driver in use.
func (s *SQLiteStore) Driver() string {
	return s.driver
}

// PutMerchants inserts or replaces merchants.
func (s *SQLiteStore) PutMerchants(ctx context.Context, merchants ...matching.Merchant) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return newError(s.driver, "put_merchants", err)
	}
	defer tx.Rollback()

	for _, m := range merchants {
		types, err := json.Marshal(nonNil(m.CommonTransactionTypes))
		if err != nil {
			return newError(s.driver, "put_merchants", err)
		}
		aliases, err := json.Marshal(nonNil(m.KnownAliases))
		if err != nil {
			return newError(s.driver, "put_merchants", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO merchants (`+merchantColumns+`, seq)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM merchants))
			ON CONFLICT (id) DO UPDATE SET
				name = excluded.name,
				category = excluded.category,
				description = excluded.description,
				address = excluded.address,
				phone = excluded.phone,
				website = excluded.website,
				common_transaction_types = excluded.common_transaction_types,
				known_aliases = excluded.known_aliases,
				parent_company = excluded.parent_company,
				dispute_rate = excluded.dispute_rate`,
			m.ID, m.Name, m.Category, m.Description, m.Address, m.Phone, m.Website,
			string(types), string(aliases), m.ParentCompany, m.DisputeRate,
		)
		if err != nil {
			return newError(s.driver, "put_merchants", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return newError(s.driver, "put_merchants", err)
	}
	return nil
}

// PutTransactions inserts or replaces transactions.
func (s *SQLiteStore) PutTransactions(ctx context.Context, txns ...matching.Transaction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return newError(s.driver, "put_transactions", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return newError(s.driver, "put_transactions", err)
	}
	defer stmt.Close()

	for _, t := range txns {
		var fees sql.NullString
		if t.Fees != nil {
			fees = sql.NullString{String: t.Fees.String(), Valid: true}
		}
		status := t.Status
		if status == "" {
			status = matching.StatusPosted
		}
		currency := t.Currency
		if currency == "" {
			currency = "USD"
		}

		_, err := stmt.ExecContext(ctx,
			t.ID, t.UserID, t.Amount.String(), currency, t.Date.UTC().Format(timeLayout),
			t.MerchantID, t.Reason, t.Category, t.CardLast4, t.Location, fees, string(status),
		)
		if err != nil {
			return newError(s.driver, "put_transactions", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return newError(s.driver, "put_transactions", err)
	}
	return nil
}

// ListTransactions implements Repository.
func (s *SQLiteStore) ListTransactions(ctx context.Context, userID string, c matching.Criteria) (matching.Result, error) {
	if c.MerchantIDs != nil && len(c.MerchantIDs) == 0 {
		return matching.Result{Transactions: []matching.Transaction{}}, nil
	}

	var b strings.Builder
	args := []any{userID}
	b.WriteString(`SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = ?`)

	if c.Category != "" {
		b.WriteString(` AND category = ?`)
		args = append(args, c.Category)
	}
	if c.Status != "" {
		b.WriteString(` AND status = ?`)
		args = append(args, string(c.Status))
	}
	if len(c.MerchantIDs) > 0 {
		b.WriteString(` AND merchant_id IN (?` + strings.Repeat(`, ?`, len(c.MerchantIDs)-1) + `)`)
		for _, id := range c.MerchantIDs {
			args = append(args, id)
		}
	}
	b.WriteString(` ORDER BY date DESC, id ASC`)

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return matching.Result{}, newError(s.driver, "list_transactions", err)
	}
	defer rows.Close()

	var txns []matching.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return matching.Result{}, newError(s.driver, "list_transactions", err)
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return matching.Result{}, newError(s.driver, "list_transactions", err)
	}

	// Amount and date tolerances need exact decimal and calendar arithmetic.
	return matching.Match(txns, c), nil
}

// GetTransaction implements Repository.
func (s *SQLiteStore) GetTransaction(ctx context.Context, userID, id string) (*matching.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID)

	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, newError(s.driver, "get_transaction", err)
	}
	return t, nil
}

// ListMerchants implements Repository.
func (s *SQLiteStore) ListMerchants(ctx context.Context) ([]matching.Merchant, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+merchantColumns+` FROM merchants ORDER BY seq`)
	if err != nil {
		return nil, newError(s.driver, "list_merchants", err)
	}
	defer rows.Close()

	var out []matching.Merchant
	for rows.Next() {
		m, err := scanMerchant(rows)
		if err != nil {
			return nil, newError(s.driver, "list_merchants", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, newError(s.driver, "list_merchants", err)
	}
	return out, nil
}

// GetMerchant implements Repository.
func (s *SQLiteStore) GetMerchant(ctx context.Context, id string) (*matching.Merchant, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+merchantColumns+` FROM merchants WHERE id = ?`, id)

	m, err := scanMerchant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, newError(s.driver, "get_merchant", err)
	}
	return m, nil
}

// FindMerchants implements Repository. Alias matching needs the decoded
// alias list, so filtering happens after the query.
func (s *SQLiteStore) FindMerchants(ctx context.Context, name string) ([]matching.Merchant, error) {
	all, err := s.ListMerchants(ctx)
	if err != nil {
		return nil, err
	}
	return filterMerchants(all, name), nil
}

// SaveDispute implements DisputeStore.
func (s *SQLiteStore) SaveDispute(ctx context.Context, d *Dispute) error {
	if d == nil || d.ID == "" {
		return newError(s.driver, "save_dispute", errMissingID)
	}

	convo, err := json.Marshal(nonNil(d.Context))
	if err != nil {
		return newError(s.driver, "save_dispute", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO disputes (id, transaction_id, user_id, created_at, complaint, context, status, resolution_notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.TransactionID, d.UserID, d.CreatedAt.UTC().Format(timeLayout),
		d.Complaint, string(convo), string(d.Status), d.ResolutionNotes,
	)
	if err != nil {
		return newError(s.driver, "save_dispute", err)
	}
	return nil
}

// GetDispute implements DisputeStore.
func (s *SQLiteStore) GetDispute(ctx context.Context, id string) (*Dispute, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, transaction_id, user_id, created_at, complaint, context, status, resolution_notes
		FROM disputes WHERE id = ?`, id)

	d, err := scanDispute(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, newError(s.driver, "get_dispute", err)
	}
	return d, nil
}

// ListDisputes implements DisputeStore.
func (s *SQLiteStore) ListDisputes(ctx context.Context, userID string) ([]Dispute, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, user_id, created_at, complaint, context, status, resolution_notes
		FROM disputes WHERE user_id = ? ORDER BY created_at DESC, id ASC`, userID)
	if err != nil {
		return nil, newError(s.driver, "list_disputes", err)
	}
	defer rows.Close()

	out := make([]Dispute, 0)
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, newError(s.driver, "list_disputes", err)
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, newError(s.driver, "list_disputes", err)
	}
	return out, nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return newError(s.driver, "ping", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (*matching.Transaction, error) {
	var (
		t            matching.Transaction
		amount, date string
		status       string
		fees         sql.NullString
	)
	if err := row.Scan(&t.ID, &t.UserID, &amount, &t.Currency, &date, &t.MerchantID,
		&t.Reason, &t.Category, &t.CardLast4, &t.Location, &fees, &status); err != nil {
		return nil, err
	}

	var err error
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("transaction %s: invalid amount %q: %w", t.ID, amount, err)
	}
	if t.Date, err = time.Parse(timeLayout, date); err != nil {
		return nil, fmt.Errorf("transaction %s: invalid date %q: %w", t.ID, date, err)
	}
	if fees.Valid {
		f, err := decimal.NewFromString(fees.String)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: invalid fees %q: %w", t.ID, fees.String, err)
		}
		t.Fees = &f
	}
	t.Status = matching.Status(status)
	return &t, nil
}

func scanMerchant(row scanner) (*matching.Merchant, error) {
	var (
		m              matching.Merchant
		types, aliases string
	)
	if err := row.Scan(&m.ID, &m.Name, &m.Category, &m.Description, &m.Address, &m.Phone,
		&m.Website, &types, &aliases, &m.ParentCompany, &m.DisputeRate); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(types), &m.CommonTransactionTypes); err != nil {
		return nil, fmt.Errorf("merchant %s: invalid transaction types: %w", m.ID, err)
	}
	if err := json.Unmarshal([]byte(aliases), &m.KnownAliases); err != nil {
		return nil, fmt.Errorf("merchant %s: invalid aliases: %w", m.ID, err)
	}
	return &m, nil
}

func scanDispute(row scanner) (*Dispute, error) {
	var (
		d                  Dispute
		created, convo, st string
	)
	if err := row.Scan(&d.ID, &d.TransactionID, &d.UserID, &created, &d.Complaint,
		&convo, &st, &d.ResolutionNotes); err != nil {
		return nil, err
	}

	var err error
	if d.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("dispute %s: invalid created_at %q: %w", d.ID, created, err)
	}
	if err := json.Unmarshal([]byte(convo), &d.Context); err != nil {
		return nil, fmt.Errorf("dispute %s: invalid context: %w", d.ID, err)
	}
	d.Status = DisputeStatus(st)
	return &d, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
