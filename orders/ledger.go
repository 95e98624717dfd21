/*
ledger.go - Pure operations over one order's payment list

PURPOSE:
  The only mutation surface for payments. Every operation takes an order
  (and the account the payment touches) by value and returns updated
  copies; nothing is persisted here. The payment orchestrator sequences
  persistence around these functions.

POLICY NOTE:
  AddPayment is strict: an amount beyond pending + tolerance is rejected.
  The overpayment-to-credit conversion lives one level up, in the payment
  orchestrator, which splits the request before calling in. This primitive
  is also used directly for out-of-band payment edits where no credit
  conversion is wanted.

SEE ALSO:
  - reception.go: reception settlement
  - payments/service.go: the orchestrator built on these primitives
*/
package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vantage/order-engine/finance"
)

// =============================================================================
// LEDGER - Clock and id generation injectable for deterministic tests
// =============================================================================

type Ledger struct {
	now   func() time.Time
	newID func() finance.PaymentID
}

func NewLedger() *Ledger {
	return &Ledger{
		now:   time.Now,
		newID: func() finance.PaymentID { return finance.PaymentID(uuid.NewString()) },
	}
}

func NewLedgerAt(now func() time.Time, newID func() finance.PaymentID) *Ledger {
	return &Ledger{now: now, newID: newID}
}

// AddPaymentInput carries the non-monetary payment attributes.
type AddPaymentInput struct {
	Method    finance.PaymentMethod
	Reference string
	Notes     string
	Actor     string
}

// AddPayment appends a payment to the order and increases the account
// balance by the same amount.
//
// Fails with ErrInvalidAmount for amount <= 0 and ExceedsPendingError for
// amount > pending + Epsilon. The persisted amount is clamped to
// min(amount, pending) to absorb rounding noise.
func (l *Ledger) AddPayment(order Order, account finance.Account, amount decimal.Decimal, in AddPaymentInput) (Order, finance.Account, Payment, error) {
	if !amount.IsPositive() {
		return order, account, Payment{}, finance.ErrInvalidAmount
	}
	if !order.Open() {
		return order, account, Payment{}, finance.ErrOrderClosed
	}

	pending := order.PendingAmount()
	if finance.ExceedsWithTolerance(amount, pending) {
		return order, account, Payment{}, &finance.ExceedsPendingError{
			OrderID:   order.ID,
			Requested: amount,
			Pending:   pending,
		}
	}

	// Clamp so float noise near the exact pending amount never pushes the
	// order into a phantom credit.
	clamped := decimal.Min(amount, pending)

	payment := Payment{
		ID:        l.newID(),
		Amount:    clamped,
		AccountID: account.ID,
		Method:    in.Method,
		Reference: in.Reference,
		Notes:     in.Notes,
		CreatedBy: in.Actor,
		CreatedAt: l.now(),
	}

	order.Payments = append(order.clonePayments(), payment)
	account.Balance = account.Balance.Add(clamped)
	return order, account, payment, nil
}

// EditPayment changes a payment's amount. The pending check runs against
// the delta (newAmount - originalAmount); the account balance shifts by the
// delta, which can be negative.
func (l *Ledger) EditPayment(order Order, account finance.Account, paymentID finance.PaymentID, newAmount decimal.Decimal) (Order, finance.Account, error) {
	if !newAmount.IsPositive() {
		return order, account, finance.ErrInvalidAmount
	}

	idx, payment := order.FindPayment(paymentID)
	if payment == nil {
		return order, account, finance.ErrPaymentNotFound
	}
	if payment.AccountID != account.ID {
		return order, account, &finance.AccountMismatchError{
			PaymentID: paymentID,
			Expected:  payment.AccountID,
			Got:       account.ID,
		}
	}

	delta := newAmount.Sub(payment.Amount)
	pending := order.PendingAmount()
	if finance.ExceedsWithTolerance(delta, pending) {
		return order, account, &finance.ExceedsPendingError{
			OrderID:   order.ID,
			Requested: delta,
			Pending:   pending,
		}
	}

	order.Payments = order.clonePayments()
	order.Payments[idx].Amount = newAmount
	account.Balance = account.Balance.Add(delta)
	return order, account, nil
}

// RemovePayment drops a payment from the order and decreases the account
// balance by the removed amount.
func (l *Ledger) RemovePayment(order Order, account finance.Account, paymentID finance.PaymentID) (Order, finance.Account, error) {
	idx, payment := order.FindPayment(paymentID)
	if payment == nil {
		return order, account, finance.ErrPaymentNotFound
	}
	if payment.AccountID != account.ID {
		return order, account, &finance.AccountMismatchError{
			PaymentID: paymentID,
			Expected:  payment.AccountID,
			Got:       account.ID,
		}
	}

	amount := payment.Amount
	payments := order.clonePayments()
	order.Payments = append(payments[:idx], payments[idx+1:]...)
	account.Balance = account.Balance.Sub(amount)
	return order, account, nil
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// ReceiveOrder records the real invoice total and advances the order to
// received. It deliberately does NOT validate the invoice total against
// what was already paid - under/over-payment is legal and settled by
// ComputeReceptionAdjustment.
func (l *Ledger) ReceiveOrder(order Order, realInvoiceTotal decimal.Decimal, invoiceNumber string) (Order, error) {
	if order.Status != StatusOrdered {
		return order, finance.ErrAlreadyReceived
	}
	if !realInvoiceTotal.IsPositive() {
		return order, finance.ErrInvalidInvoiceTotal
	}

	now := l.now()
	total := realInvoiceTotal
	order.RealInvoiceTotal = &total
	order.InvoiceNumber = invoiceNumber
	order.Status = StatusReceived
	order.ReceivedAt = &now
	return order, nil
}

// DeliverOrder advances received -> delivered.
func (l *Ledger) DeliverOrder(order Order) (Order, error) {
	if order.Status != StatusReceived {
		return order, finance.ErrNotYetReceived
	}
	now := l.now()
	order.Status = StatusDelivered
	order.DeliveredAt = &now
	return order, nil
}

// CancelOrder cancels an order that has not been received yet.
func (l *Ledger) CancelOrder(order Order) (Order, error) {
	if order.Status != StatusOrdered {
		return order, finance.ErrAlreadyReceived
	}
	now := l.now()
	order.Status = StatusCancelled
	order.CancelledAt = &now
	return order, nil
}
