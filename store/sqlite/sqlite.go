/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements orders.Repository and the finance repositories (accounts,
  financial records, client credits, closure snapshots) on one SQLite
  database. The same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

KEY TABLES:
  orders:            Order aggregates (payments in a child table)
  payments:          One row per order payment, insertion order preserved
  accounts:          Cash registers and bank accounts with stored balances
  financial_records: Append-mostly ledger; logical delete via deleted flag
  client_credits:    UNIQUE(origin_record_id) enforces credit idempotency
  cash_closures:     Immutable snapshots, breakdowns stored as JSON

LOGICAL DELETE:
  financial_records rows are never removed. Payment reversal sets
  deleted = 1; every aggregate and the default List exclude those rows.

IDEMPOTENCY:
  CreateCredit relies on the UNIQUE index on origin_record_id: on conflict
  it reads back and returns the existing credit instead of failing, so a
  retried overpayment conversion never duplicates a credit.

WAL MODE:
  SQLite is opened with WAL for better concurrency: audit and closure reads
  don't block payment writes.

USAGE:
  store, err := sqlite.New("./data/orderdesk.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - finance/store.go: interface definitions
  - finance/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/vantage/order-engine/finance"
	"github.com/vantage/order-engine/orders"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		receipt TEXT NOT NULL,
		client_id TEXT NOT NULL,
		description TEXT,
		estimated_total TEXT NOT NULL,
		real_invoice_total TEXT,
		invoice_number TEXT,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		received_at TEXT,
		delivered_at TEXT,
		cancelled_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_orders_client ON orders(client_id);
	CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL REFERENCES orders(id),
		position INTEGER NOT NULL,
		amount TEXT NOT NULL,
		account_id TEXT NOT NULL,
		method TEXT NOT NULL,
		reference TEXT,
		notes TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_order ON payments(order_id, position);

	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		balance TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS financial_records (
		id TEXT PRIMARY KEY,
		record_type TEXT NOT NULL,
		source TEXT NOT NULL,
		direction TEXT NOT NULL,
		amount TEXT NOT NULL,
		reference TEXT NOT NULL,
		method TEXT,
		client_id TEXT,
		order_id TEXT,
		payment_id TEXT,
		account_id TEXT,
		initial_payment INTEGER NOT NULL DEFAULT 0,
		notes TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		deleted INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_records_account ON financial_records(account_id);
	CREATE INDEX IF NOT EXISTS idx_records_order ON financial_records(order_id);
	CREATE INDEX IF NOT EXISTS idx_records_payment ON financial_records(payment_id);
	CREATE INDEX IF NOT EXISTS idx_records_created ON financial_records(created_at);

	CREATE TABLE IF NOT EXISTS client_credits (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		origin_record_id TEXT NOT NULL,
		notes TEXT,
		created_at TEXT NOT NULL
	);

	-- CRITICAL: a credit must never be created twice for the same origin
	CREATE UNIQUE INDEX IF NOT EXISTS idx_credits_origin
		ON client_credits(origin_record_id);
	CREATE INDEX IF NOT EXISTS idx_credits_client ON client_credits(client_id);

	CREATE TABLE IF NOT EXISTS cash_closures (
		id TEXT PRIMARY KEY,
		from_date TEXT NOT NULL,
		to_date TEXT NOT NULL,
		total_income TEXT NOT NULL,
		total_expense TEXT NOT NULL,
		net TEXT NOT NULL,
		detail_json TEXT NOT NULL,
		notes TEXT,
		generated_by TEXT,
		generated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// =============================================================================
// ORDER REPOSITORY
// =============================================================================

// Get loads an order and its payments. Returns nil when it doesn't exist.
func (s *Store) Get(ctx context.Context, id finance.OrderID) (*orders.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, receipt, client_id, description, estimated_total,
		       real_invoice_total, invoice_number, status, created_at,
		       received_at, delivered_at, cancelled_at
		FROM orders WHERE id = ?`, string(id))

	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	payments, err := s.loadPayments(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Payments = payments
	return order, nil
}

// Save upserts the order and rewrites its payment rows. The payment list is
// small, so replace is simpler and safer than diffing.
func (s *Store) Save(ctx context.Context, order orders.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var realTotal any
	if order.RealInvoiceTotal != nil {
		realTotal = order.RealInvoiceTotal.String()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, receipt, client_id, description, estimated_total,
		                    real_invoice_total, invoice_number, status, created_at,
		                    received_at, delivered_at, cancelled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			receipt = excluded.receipt,
			client_id = excluded.client_id,
			description = excluded.description,
			estimated_total = excluded.estimated_total,
			real_invoice_total = excluded.real_invoice_total,
			invoice_number = excluded.invoice_number,
			status = excluded.status,
			received_at = excluded.received_at,
			delivered_at = excluded.delivered_at,
			cancelled_at = excluded.cancelled_at`,
		string(order.ID), order.Receipt, string(order.ClientID), order.Description,
		order.EstimatedTotal.String(), realTotal, order.InvoiceNumber,
		string(order.Status), formatTime(order.CreatedAt),
		nullableTime(order.ReceivedAt), nullableTime(order.DeliveredAt),
		nullableTime(order.CancelledAt))
	if err != nil {
		return fmt.Errorf("save order: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE order_id = ?`, string(order.ID)); err != nil {
		return fmt.Errorf("clear payments: %w", err)
	}
	for i, p := range order.Payments {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO payments (id, order_id, position, amount, account_id,
			                      method, reference, notes, created_by, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			string(p.ID), string(order.ID), i, p.Amount.String(), string(p.AccountID),
			string(p.Method), p.Reference, p.Notes, p.CreatedBy, formatTime(p.CreatedAt))
		if err != nil {
			return fmt.Errorf("save payment: %w", err)
		}
	}

	return tx.Commit()
}

// List returns all orders with their payments, newest first.
func (s *Store) List(ctx context.Context) ([]orders.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, receipt, client_id, description, estimated_total,
		       real_invoice_total, invoice_number, status, created_at,
		       received_at, delivered_at, cancelled_at
		FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []orders.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		payments, err := s.loadPayments(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Payments = payments
	}
	return result, nil
}

func scanOrder(row rowScanner) (*orders.Order, error) {
	var (
		o                                  orders.Order
		id, clientID, status               string
		estimated                          string
		realTotal, description, invoiceNum sql.NullString
		createdAt                          string
		receivedAt, deliveredAt, cancelled sql.NullString
	)
	err := row.Scan(&id, &o.Receipt, &clientID, &description, &estimated,
		&realTotal, &invoiceNum, &status, &createdAt,
		&receivedAt, &deliveredAt, &cancelled)
	if err != nil {
		return nil, err
	}

	o.ID = finance.OrderID(id)
	o.ClientID = finance.ClientID(clientID)
	o.Description = description.String
	o.EstimatedTotal = parseDecimal(estimated)
	if realTotal.Valid {
		d := parseDecimal(realTotal.String)
		o.RealInvoiceTotal = &d
	}
	o.InvoiceNumber = invoiceNum.String
	o.Status = orders.Status(status)
	o.CreatedAt = parseTime(createdAt)
	o.ReceivedAt = optionalTime(receivedAt)
	o.DeliveredAt = optionalTime(deliveredAt)
	o.CancelledAt = optionalTime(cancelled)
	return &o, nil
}

func optionalTime(v sql.NullString) *time.Time {
	if !v.Valid {
		return nil
	}
	t := parseTime(v.String)
	return &t
}

func (s *Store) loadPayments(ctx context.Context, orderID finance.OrderID) ([]orders.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, amount, account_id, method, reference, notes, created_by, created_at
		FROM payments WHERE order_id = ? ORDER BY position`, string(orderID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []orders.Payment
	for rows.Next() {
		var (
			p                        orders.Payment
			id, amount, account      string
			method                   string
			reference, notes, author sql.NullString
			createdAt                string
		)
		if err := rows.Scan(&id, &amount, &account, &method, &reference, &notes, &author, &createdAt); err != nil {
			return nil, err
		}
		p.ID = finance.PaymentID(id)
		p.Amount = parseDecimal(amount)
		p.AccountID = finance.AccountID(account)
		p.Method = finance.PaymentMethod(method)
		p.Reference = reference.String
		p.Notes = notes.String
		p.CreatedBy = author.String
		p.CreatedAt = parseTime(createdAt)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// =============================================================================
// ACCOUNT REPOSITORY
// =============================================================================

func (s *Store) GetAll(ctx context.Context) ([]finance.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, balance, active, created_at FROM accounts ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []finance.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *acct)
	}
	return accounts, rows.Err()
}

func (s *Store) GetAccount(ctx context.Context, id finance.AccountID) (*finance.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, type, balance, active, created_at FROM accounts WHERE id = ?`, string(id))
	acct, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return acct, err
}

func scanAccount(row rowScanner) (*finance.Account, error) {
	var (
		a                    finance.Account
		id, accType, balance string
		active               int
		createdAt            string
	)
	if err := row.Scan(&id, &a.Name, &accType, &balance, &active, &createdAt); err != nil {
		return nil, err
	}
	a.ID = finance.AccountID(id)
	a.Type = finance.AccountType(accType)
	a.Balance = parseDecimal(balance)
	a.Active = active == 1
	a.CreatedAt = parseTime(createdAt)
	return &a, nil
}

func (s *Store) SaveAccount(ctx context.Context, account finance.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := 0
	if account.Active {
		active = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, type, balance, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			balance = excluded.balance,
			active = excluded.active`,
		string(account.ID), account.Name, string(account.Type),
		account.Balance.String(), active, formatTime(account.CreatedAt))
	return err
}

func (s *Store) UpdateBalance(ctx context.Context, id finance.AccountID, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE accounts SET balance = ? WHERE id = ?`,
		balance.String(), string(id))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return finance.ErrAccountNotFound
	}
	return nil
}

// =============================================================================
// FINANCIAL RECORD REPOSITORY
// =============================================================================

func (s *Store) CreateRecord(ctx context.Context, r finance.FinancialRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	initial := 0
	if r.InitialPayment {
		initial = 1
	}
	deleted := 0
	if r.Deleted {
		deleted = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO financial_records (id, record_type, source, direction, amount,
			reference, method, client_id, order_id, payment_id, account_id,
			initial_payment, notes, created_by, created_at, version, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(r.ID), string(r.Type), string(r.Source), string(r.Direction),
		r.Amount.String(), r.Reference, string(r.Method), string(r.ClientID),
		string(r.OrderID), string(r.PaymentID), string(r.AccountID),
		initial, r.Notes, r.CreatedBy, formatTime(r.CreatedAt), r.Version, deleted)
	return err
}

func (s *Store) GetRecord(ctx context.Context, id finance.RecordID) (*finance.FinancialRecord, error) {
	records, err := s.queryRecords(ctx, `WHERE id = ?`, string(id))
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

func (s *Store) UpdateAmount(ctx context.Context, id finance.RecordID, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE financial_records SET amount = ?, version = version + 1
		WHERE id = ? AND deleted = 0`, amount.String(), string(id))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return finance.ErrRecordNotFound
	}
	return nil
}

func (s *Store) DeleteRecord(ctx context.Context, id finance.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE financial_records SET deleted = 1 WHERE id = ?`, string(id))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return finance.ErrRecordNotFound
	}
	return nil
}

func (s *Store) FindByPayment(ctx context.Context, paymentID finance.PaymentID) (*finance.FinancialRecord, error) {
	records, err := s.queryRecords(ctx, `WHERE payment_id = ? AND deleted = 0`, string(paymentID))
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

func (s *Store) ListRecords(ctx context.Context, filter finance.RecordFilter) ([]finance.FinancialRecord, error) {
	var (
		conds []string
		args  []any
	)
	if !filter.IncludeDeleted {
		conds = append(conds, "deleted = 0")
	}
	if filter.AccountID != "" {
		conds = append(conds, "account_id = ?")
		args = append(args, string(filter.AccountID))
	}
	if filter.ClientID != "" {
		conds = append(conds, "client_id = ?")
		args = append(args, string(filter.ClientID))
	}
	if filter.OrderID != "" {
		conds = append(conds, "order_id = ?")
		args = append(args, string(filter.OrderID))
	}
	if filter.From != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, formatTime(*filter.From))
	}
	if filter.To != nil {
		conds = append(conds, "created_at <= ?")
		args = append(args, formatTime(*filter.To))
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	return s.queryRecords(ctx, where+" ORDER BY created_at", args...)
}

func (s *Store) queryRecords(ctx context.Context, whereClause string, args ...any) ([]finance.FinancialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, record_type, source, direction, amount, reference, method,
		       client_id, order_id, payment_id, account_id, initial_payment,
		       notes, created_by, created_at, version, deleted
		FROM financial_records ` + whereClause

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []finance.FinancialRecord
	for rows.Next() {
		var (
			r                                      finance.FinancialRecord
			id, recType, source, direction, amount string
			method, clientID, orderID, pid, acct   sql.NullString
			notes, author                          sql.NullString
			initial, deleted                       int
			createdAt                              string
		)
		err := rows.Scan(&id, &recType, &source, &direction, &amount, &r.Reference,
			&method, &clientID, &orderID, &pid, &acct, &initial,
			&notes, &author, &createdAt, &r.Version, &deleted)
		if err != nil {
			return nil, err
		}
		r.ID = finance.RecordID(id)
		r.Type = finance.RecordType(recType)
		r.Source = finance.RecordSource(source)
		r.Direction = finance.Direction(direction)
		r.Amount = parseDecimal(amount)
		r.Method = finance.PaymentMethod(method.String)
		r.ClientID = finance.ClientID(clientID.String)
		r.OrderID = finance.OrderID(orderID.String)
		r.PaymentID = finance.PaymentID(pid.String)
		r.AccountID = finance.AccountID(acct.String)
		r.InitialPayment = initial == 1
		r.Notes = notes.String
		r.CreatedBy = author.String
		r.CreatedAt = parseTime(createdAt)
		r.Deleted = deleted == 1
		records = append(records, r)
	}
	return records, rows.Err()
}

// =============================================================================
// CLIENT CREDIT REPOSITORY
// =============================================================================

// CreateCredit inserts a credit, or returns the existing one when a credit
// with the same origin record already exists. The UNIQUE index makes the
// check-and-insert race-free.
func (s *Store) CreateCredit(ctx context.Context, credit finance.ClientCredit) (finance.ClientCredit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO client_credits (id, client_id, amount, origin_record_id, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(origin_record_id) DO NOTHING`,
		string(credit.ID), string(credit.ClientID), credit.Amount.String(),
		string(credit.OriginRecordID), credit.Notes, formatTime(credit.CreatedAt))
	if err != nil {
		return finance.ClientCredit{}, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, client_id, amount, origin_record_id, notes, created_at
		FROM client_credits WHERE origin_record_id = ?`, string(credit.OriginRecordID))
	return scanCredit(row)
}

func (s *Store) GetByClient(ctx context.Context, clientID finance.ClientID) ([]finance.ClientCredit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, client_id, amount, origin_record_id, notes, created_at
		FROM client_credits WHERE client_id = ? ORDER BY created_at`, string(clientID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var credits []finance.ClientCredit
	for rows.Next() {
		c, err := scanCredit(rows)
		if err != nil {
			return nil, err
		}
		credits = append(credits, c)
	}
	return credits, rows.Err()
}

func scanCredit(row rowScanner) (finance.ClientCredit, error) {
	var (
		c                    finance.ClientCredit
		id, clientID, amount string
		origin               string
		notes                sql.NullString
		createdAt            string
	)
	if err := row.Scan(&id, &clientID, &amount, &origin, &notes, &createdAt); err != nil {
		return finance.ClientCredit{}, err
	}
	c.ID = finance.CreditID(id)
	c.ClientID = finance.ClientID(clientID)
	c.Amount = parseDecimal(amount)
	c.OriginRecordID = finance.RecordID(origin)
	c.Notes = notes.String
	c.CreatedAt = parseTime(createdAt)
	return c, nil
}

// =============================================================================
// CLOSURE SNAPSHOT REPOSITORY
// =============================================================================

// closureDetail is the JSON blob holding the snapshot breakdowns. Totals get
// their own columns so summary listings don't parse JSON.
type closureDetail struct {
	Accounts       []finance.AccountClosureBalance           `json:"accounts"`
	IncomeBySource finance.IncomeBySource                    `json:"income_by_source"`
	IncomeByMethod map[finance.PaymentMethod]decimal.Decimal `json:"income_by_method"`
	ByUser         []finance.UserActivity                    `json:"by_user"`
	Movements      []finance.FinancialRecord                 `json:"movements"`
}

func (s *Store) SaveSnapshot(ctx context.Context, snap finance.ClosureSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	detail, err := json.Marshal(closureDetail{
		Accounts:       snap.Accounts,
		IncomeBySource: snap.IncomeBySource,
		IncomeByMethod: snap.IncomeByMethod,
		ByUser:         snap.ByUser,
		Movements:      snap.Movements,
	})
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cash_closures (id, from_date, to_date, total_income,
			total_expense, net, detail_json, notes, generated_by, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(snap.ID), formatTime(snap.From), formatTime(snap.To),
		snap.TotalIncome.String(), snap.TotalExpense.String(), snap.Net.String(),
		string(detail), snap.Notes, snap.GeneratedBy, formatTime(snap.GeneratedAt))
	return err
}

func (s *Store) GetSnapshot(ctx context.Context, id finance.SnapshotID) (*finance.ClosureSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, from_date, to_date, total_income, total_expense, net,
		       detail_json, notes, generated_by, generated_at
		FROM cash_closures WHERE id = ?`, string(id))

	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Store) ListSnapshots(ctx context.Context) ([]finance.ClosureSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, from_date, to_date, total_income, total_expense, net,
		       detail_json, notes, generated_by, generated_at
		FROM cash_closures ORDER BY generated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []finance.ClosureSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, *snap)
	}
	return snaps, rows.Err()
}

func scanSnapshot(row rowScanner) (*finance.ClosureSnapshot, error) {
	var (
		snap                         finance.ClosureSnapshot
		id, from, to                 string
		income, expense, net, detail string
		notes, author                sql.NullString
		generatedAt                  string
	)
	err := row.Scan(&id, &from, &to, &income, &expense, &net, &detail,
		&notes, &author, &generatedAt)
	if err != nil {
		return nil, err
	}

	snap.ID = finance.SnapshotID(id)
	snap.From = parseTime(from)
	snap.To = parseTime(to)
	snap.TotalIncome = parseDecimal(income)
	snap.TotalExpense = parseDecimal(expense)
	snap.Net = parseDecimal(net)
	snap.Notes = notes.String
	snap.GeneratedBy = author.String
	snap.GeneratedAt = parseTime(generatedAt)

	var d closureDetail
	if err := json.Unmarshal([]byte(detail), &d); err != nil {
		return nil, fmt.Errorf("decode closure detail: %w", err)
	}
	snap.Accounts = d.Accounts
	snap.IncomeBySource = d.IncomeBySource
	snap.IncomeByMethod = d.IncomeByMethod
	snap.ByUser = d.ByUser
	snap.Movements = d.Movements
	return &snap, nil
}
