/*
Package finance provides the core financial engine for the order desk.

PURPOSE:
  This package contains the domain types and pure algorithms that keep an
  order's payment history, account balances, the financial-record ledger,
  and client credits mutually consistent. Everything here is storage-free:
  records in, aggregates out.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money helpers: decimal amounts compared with a fixed 0.01 tolerance
  - Account: a cash register or bank account with a stored running balance
  - FinancialRecord: one immutable money movement, the source of truth
  - ClientCredit: a standing balance owed to a client

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere, never float arithmetic
  2. Tolerance: amounts arrive as floats from JSON, so every comparison
     against a limit uses Epsilon rather than exact equality
  3. Type Safety: strong ID types prevent mixing order/payment/record ids
  4. Append-mostly ledger: records are created, amount-corrected once for
     a payment edit, or logically deleted on reversal - never rewritten

SEE ALSO:
  - record.go: FinancialRecord constructors and reference numbers
  - queries.go: pure folds over record lists
  - closure.go: cash-closure snapshot builder
  - audit.go: balance recomputation and drift detection
*/
package finance

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Decimal amounts with a fixed comparison tolerance
// =============================================================================

// Epsilon is the tolerance used everywhere money is compared. Amounts enter
// the system as JSON floats, so sums can carry sub-cent noise.
var Epsilon = decimal.NewFromFloat(0.01)

// ApproxEqual reports whether a and b differ by at most Epsilon.
func ApproxEqual(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Epsilon)
}

// ApproxZero reports whether a is within Epsilon of zero.
func ApproxZero(a decimal.Decimal) bool {
	return a.Abs().LessThanOrEqual(Epsilon)
}

// ExceedsWithTolerance reports whether amount is strictly greater than
// limit + Epsilon. This is the check behind every ExceedsPending rejection.
func ExceedsWithTolerance(amount, limit decimal.Decimal) bool {
	return amount.GreaterThan(limit.Add(Epsilon))
}

// MoneyFromFloat converts an incoming JSON float to a decimal amount.
func MoneyFromFloat(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type OrderID string
type PaymentID string
type RecordID string
type AccountID string
type ClientID string
type CreditID string
type SnapshotID string

// =============================================================================
// ACCOUNT - Cash register or bank account
// =============================================================================

type AccountType string

const (
	AccountCash AccountType = "CASH"
	AccountBank AccountType = "BANK"
)

// Account holds a stored running balance. The balance is mutated only as a
// side effect of ledger-entry creation/update/deletion; production reads
// never derive it. Only the auditor recomputes it, for comparison.
type Account struct {
	ID        AccountID
	Name      string
	Type      AccountType
	Balance   decimal.Decimal
	Active    bool
	CreatedAt time.Time
}

// =============================================================================
// FINANCIAL RECORD - One immutable money movement
// =============================================================================

type RecordType string

const (
	RecordPayment    RecordType = "PAYMENT"
	RecordAdjustment RecordType = "ADJUSTMENT"
	RecordExpense    RecordType = "EXPENSE"
)

type RecordSource string

const (
	SourceOrderPayment RecordSource = "ORDER_PAYMENT"
	SourceManual       RecordSource = "MANUAL"
	SourceAdjustment   RecordSource = "ADJUSTMENT"
)

type Direction string

const (
	DirectionIncome  Direction = "INCOME"
	DirectionExpense Direction = "EXPENSE"
)

type PaymentMethod string

const (
	MethodCash     PaymentMethod = "cash"
	MethodCard     PaymentMethod = "card"
	MethodTransfer PaymentMethod = "transfer"
	MethodCheck    PaymentMethod = "check"
)

// FinancialRecord is one append-mostly ledger entry. Every payment
// creation/edit/removal must have a matching record with the same PaymentID,
// or the system is inconsistent (detectable by the auditor, never healed
// silently).
type FinancialRecord struct {
	ID        RecordID
	Type      RecordType
	Source    RecordSource
	Direction Direction
	Amount    decimal.Decimal

	// Reference is a synthesized human-readable reference number,
	// e.g. "PAY-R01042-1717426800" or "MANUAL-1717426800".
	Reference string

	Method    PaymentMethod
	ClientID  ClientID
	OrderID   OrderID
	PaymentID PaymentID

	// AccountID is empty for movements that touch no stored balance
	// (e.g. overpayment-to-credit adjustments).
	AccountID AccountID

	// InitialPayment marks the first payment on an order. The closure
	// report splits income into initial vs later order payments on it.
	InitialPayment bool

	Notes     string
	CreatedBy string
	CreatedAt time.Time

	// Version counts amount corrections. Starts at 1.
	Version int

	// Deleted marks a logical delete (payment reversal). Deleted records
	// stay in the read model but are excluded from every aggregate.
	Deleted bool
}

// Signed returns the record's contribution to a balance: positive for
// income, negative for expense. Deleted records contribute zero.
func (r FinancialRecord) Signed() decimal.Decimal {
	if r.Deleted {
		return decimal.Zero
	}
	if r.Direction == DirectionExpense {
		return r.Amount.Neg()
	}
	return r.Amount
}

// =============================================================================
// CLIENT CREDIT - Standing balance owed to a client
// =============================================================================

// ClientCredit is created when a payment exceeds an order's pending balance
// or a reception settlement shows an overpayment. OriginRecordID is the
// idempotency key: a credit must never be created twice for the same origin.
type ClientCredit struct {
	ID             CreditID
	ClientID       ClientID
	Amount         decimal.Decimal
	OriginRecordID RecordID
	Notes          string
	CreatedAt      time.Time
}
