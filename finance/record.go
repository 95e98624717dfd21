/*
record.go - Financial record factory

PURPOSE:
  Constructs ledger entries with synthesized reference numbers and creation
  timestamps. The factory is the only place records are born; the orchestrator
  and the manual-movement handler both go through it so every record carries
  the same shape.

REFERENCE NUMBERS:
  Payment:    PAY-<order receipt>-<unix seconds>
  Adjustment: ADJ-<order receipt>-<unix seconds>
  Manual:     MANUAL-<unix seconds>

SEE ALSO:
  - types.go: FinancialRecord
  - queries.go: aggregation over record lists
*/
package finance

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// RECORD FACTORY
// =============================================================================

// RecordFactory builds FinancialRecords. Clock and id generation are
// injectable so tests get deterministic records.
type RecordFactory struct {
	now   func() time.Time
	newID func() RecordID
}

func NewRecordFactory() *RecordFactory {
	return &RecordFactory{
		now:   time.Now,
		newID: func() RecordID { return RecordID(uuid.NewString()) },
	}
}

// NewRecordFactoryAt creates a factory with an injected clock and id
// generator, for deterministic tests.
func NewRecordFactoryAt(now func() time.Time, newID func() RecordID) *RecordFactory {
	return &RecordFactory{now: now, newID: newID}
}

// PaymentRecordInput describes an order payment to be recorded.
type PaymentRecordInput struct {
	OrderID      OrderID
	OrderReceipt string
	ClientID     ClientID
	PaymentID    PaymentID
	AccountID    AccountID
	Method       PaymentMethod
	Amount       decimal.Decimal
	Initial      bool
	Notes        string
	Actor        string
}

// PaymentRecord constructs an income record for an order payment.
func (f *RecordFactory) PaymentRecord(p PaymentRecordInput) FinancialRecord {
	now := f.now()
	return FinancialRecord{
		ID:             f.newID(),
		Type:           RecordPayment,
		Source:         SourceOrderPayment,
		Direction:      DirectionIncome,
		Amount:         p.Amount,
		Reference:      fmt.Sprintf("PAY-%s-%d", p.OrderReceipt, now.Unix()),
		Method:         p.Method,
		ClientID:       p.ClientID,
		OrderID:        p.OrderID,
		PaymentID:      p.PaymentID,
		AccountID:      p.AccountID,
		InitialPayment: p.Initial,
		Notes:          p.Notes,
		CreatedBy:      p.Actor,
		CreatedAt:      now,
		Version:        1,
	}
}

// AdjustmentRecordInput describes a credit-generating adjustment.
type AdjustmentRecordInput struct {
	OrderID      OrderID
	OrderReceipt string
	ClientID     ClientID
	Amount       decimal.Decimal
	Notes        string
	Actor        string
}

// AdjustmentRecord constructs an income record for credit generation:
// overpayment excess or reception-time under-invoicing. Adjustment records
// carry no account - they move no physical money, they create a liability
// toward the client.
func (f *RecordFactory) AdjustmentRecord(p AdjustmentRecordInput) FinancialRecord {
	now := f.now()
	return FinancialRecord{
		ID:        f.newID(),
		Type:      RecordAdjustment,
		Source:    SourceAdjustment,
		Direction: DirectionIncome,
		Amount:    p.Amount,
		Reference: fmt.Sprintf("ADJ-%s-%d", p.OrderReceipt, now.Unix()),
		ClientID:  p.ClientID,
		OrderID:   p.OrderID,
		Notes:     p.Notes,
		CreatedBy: p.Actor,
		CreatedAt: now,
		Version:   1,
	}
}

// ManualRecordInput describes a manual income or expense movement.
type ManualRecordInput struct {
	Direction Direction
	Amount    decimal.Decimal
	Method    PaymentMethod
	AccountID AccountID
	Notes     string
	Actor     string
}

// ManualRecord constructs a manual movement; the caller chooses the
// direction (manual income vs expense).
func (f *RecordFactory) ManualRecord(p ManualRecordInput) FinancialRecord {
	recordType := RecordPayment
	if p.Direction == DirectionExpense {
		recordType = RecordExpense
	}
	now := f.now()
	return FinancialRecord{
		ID:        f.newID(),
		Type:      recordType,
		Source:    SourceManual,
		Direction: p.Direction,
		Amount:    p.Amount,
		Reference: fmt.Sprintf("MANUAL-%d", now.Unix()),
		Method:    p.Method,
		AccountID: p.AccountID,
		Notes:     p.Notes,
		CreatedBy: p.Actor,
		CreatedAt: now,
		Version:   1,
	}
}
