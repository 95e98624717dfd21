/*
Package orders holds the order aggregate and the pure payment ledger over it.

PURPOSE:
  An Order owns its Payments (insertion order = chronological). Everything
  derived - paid amount, pending balance, settlement state - is computed
  from the payment list, never stored. The mutation surface is ledger.go;
  nothing else appends, edits, or removes payments.

INVARIANT:
  paid = sum(payments.amount)
  pending = effectiveTotal - paid, where effectiveTotal is the real invoice
  total once recorded at reception, otherwise the estimated total.
  pending may be negative: that sign carries meaning (a client credit of
  abs(pending)), so Settlement() exposes it as a tagged result instead.

SEE ALSO:
  - ledger.go: AddPayment / EditPayment / RemovePayment / lifecycle ops
  - reception.go: settlement when the real invoice differs from paid
*/
package orders

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vantage/order-engine/finance"
)

// =============================================================================
// STATUS - ordered -> received -> delivered, cancellable before reception
// =============================================================================

type Status string

const (
	StatusOrdered   Status = "ordered"
	StatusReceived  Status = "received"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// =============================================================================
// PAYMENT - Owned by the order, referenced by ledger records via its id
// =============================================================================

type Payment struct {
	ID        finance.PaymentID
	Amount    decimal.Decimal
	AccountID finance.AccountID
	Method    finance.PaymentMethod
	Reference string
	Notes     string
	CreatedBy string
	CreatedAt time.Time
}

// =============================================================================
// ORDER
// =============================================================================

type Order struct {
	ID       finance.OrderID
	Receipt  string
	ClientID finance.ClientID

	Description    string
	EstimatedTotal decimal.Decimal

	// RealInvoiceTotal is set once, at reception.
	RealInvoiceTotal *decimal.Decimal
	InvoiceNumber    string

	Status   Status
	Payments []Payment

	CreatedAt   time.Time
	ReceivedAt  *time.Time
	DeliveredAt *time.Time
	CancelledAt *time.Time
}

// EffectiveTotal is the real invoice total once recorded, otherwise the
// estimated total.
func (o Order) EffectiveTotal() decimal.Decimal {
	if o.RealInvoiceTotal != nil {
		return *o.RealInvoiceTotal
	}
	return o.EstimatedTotal
}

// PaidAmount sums the payment list.
func (o Order) PaidAmount() decimal.Decimal {
	paid := decimal.Zero
	for _, p := range o.Payments {
		paid = paid.Add(p.Amount)
	}
	return paid
}

// PendingAmount is effective total minus paid. Negative means the client
// overpaid; prefer Settlement() over inspecting the sign.
func (o Order) PendingAmount() decimal.Decimal {
	return o.EffectiveTotal().Sub(o.PaidAmount())
}

// FindPayment returns the index and payment for an id, or (-1, nil).
func (o Order) FindPayment(id finance.PaymentID) (int, *Payment) {
	for i := range o.Payments {
		if o.Payments[i].ID == id {
			return i, &o.Payments[i]
		}
	}
	return -1, nil
}

// Open reports whether the order still accepts payment mutations.
func (o Order) Open() bool {
	return o.Status == StatusOrdered || o.Status == StatusReceived
}

// clonePayments gives ledger operations a list they can mutate without
// aliasing the caller's order.
func (o Order) clonePayments() []Payment {
	out := make([]Payment, len(o.Payments))
	copy(out, o.Payments)
	return out
}

// =============================================================================
// SETTLEMENT - Tagged view of the pending balance
// =============================================================================

type SettlementKind string

const (
	// Settled: paid matches the effective total within tolerance.
	Settled SettlementKind = "settled"
	// Owing: the client still owes Amount.
	Owing SettlementKind = "owing"
	// Credited: the client overpaid by Amount.
	Credited SettlementKind = "credited"
)

type Settlement struct {
	Kind   SettlementKind
	Amount decimal.Decimal
}

// Settlement classifies the pending balance instead of leaking its sign.
func (o Order) Settlement() Settlement {
	pending := o.PendingAmount()
	switch {
	case finance.ApproxZero(pending):
		return Settlement{Kind: Settled, Amount: decimal.Zero}
	case pending.IsNegative():
		return Settlement{Kind: Credited, Amount: pending.Abs()}
	default:
		return Settlement{Kind: Owing, Amount: pending}
	}
}

// =============================================================================
// REPOSITORY
// =============================================================================

type Repository interface {
	// Get returns nil (no error) when the order doesn't exist.
	Get(ctx context.Context, id finance.OrderID) (*Order, error)

	// Save upserts the full order aggregate, payments included.
	Save(ctx context.Context, order Order) error

	List(ctx context.Context) ([]Order, error)
}
