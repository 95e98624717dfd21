/*
store.go - Repository interfaces consumed by the financial engine

PURPOSE:
  The engine never talks to a database directly. The orchestrator, auditor,
  and closure service receive these interfaces; storage technology is
  swappable and unit tests run against in-memory fakes. One store struct
  typically implements all of them.

IMPLEMENTATIONS:
  - finance/store/memory.go: in-memory (tests, dev mode)
  - store/sqlite: production SQLite

CONSISTENCY NOTE:
  There is no multi-repository transaction. Order, account, and record
  writes are three independent calls; the payment orchestrator sequences
  them and compensates on failure. The balance auditor exists to surface
  the drift that model cannot rule out.
*/
package finance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ACCOUNT REPOSITORY
// =============================================================================

type AccountRepository interface {
	GetAll(ctx context.Context) ([]Account, error)

	// GetAccount returns nil (no error) when the account doesn't exist.
	GetAccount(ctx context.Context, id AccountID) (*Account, error)

	SaveAccount(ctx context.Context, account Account) error

	// UpdateBalance overwrites the stored running balance. This is the
	// most exposed write in the system: its rollback is a second, equally
	// fallible write.
	UpdateBalance(ctx context.Context, id AccountID, balance decimal.Decimal) error
}

// =============================================================================
// FINANCIAL RECORD REPOSITORY
// =============================================================================

// RecordFilter narrows ListRecords. Zero fields are ignored. From/To are
// compared against the record creation timestamp as-is; callers wanting
// calendar-day scoping truncate afterwards (see InDateRange).
type RecordFilter struct {
	AccountID      AccountID
	ClientID       ClientID
	OrderID        OrderID
	From           *time.Time
	To             *time.Time
	IncludeDeleted bool
}

type RecordRepository interface {
	CreateRecord(ctx context.Context, record FinancialRecord) error

	// GetRecord returns nil (no error) when the record doesn't exist.
	GetRecord(ctx context.Context, id RecordID) (*FinancialRecord, error)

	// UpdateAmount corrects a record's amount (payment edit) and bumps its
	// version counter.
	UpdateAmount(ctx context.Context, id RecordID, amount decimal.Decimal) error

	// DeleteRecord marks a record logically deleted (payment reversal).
	// The record stays in the read model.
	DeleteRecord(ctx context.Context, id RecordID) error

	// FindByPayment locates the live record referencing an order payment.
	// Returns nil (no error) when there is none - the caller decides
	// whether that is an inconsistency.
	FindByPayment(ctx context.Context, paymentID PaymentID) (*FinancialRecord, error)

	ListRecords(ctx context.Context, filter RecordFilter) ([]FinancialRecord, error)
}

// =============================================================================
// CLIENT CREDIT REPOSITORY
// =============================================================================

type CreditRepository interface {
	// CreateCredit is idempotent on OriginRecordID: a second call with the
	// same origin returns the existing credit instead of creating another.
	CreateCredit(ctx context.Context, credit ClientCredit) (ClientCredit, error)

	GetByClient(ctx context.Context, clientID ClientID) ([]ClientCredit, error)
}

// =============================================================================
// CLOSURE SNAPSHOT REPOSITORY
// =============================================================================

type SnapshotRepository interface {
	// SaveSnapshot persists a closure snapshot. Snapshots are immutable:
	// there is no update, re-generation creates a new one.
	SaveSnapshot(ctx context.Context, snapshot ClosureSnapshot) error

	// GetSnapshot returns nil (no error) when the snapshot doesn't exist.
	GetSnapshot(ctx context.Context, id SnapshotID) (*ClosureSnapshot, error)

	ListSnapshots(ctx context.Context) ([]ClosureSnapshot, error)
}
