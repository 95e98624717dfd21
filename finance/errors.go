/*
errors.go - Centralized error types for the financial engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Domain packages wrap these sentinels with additional context.

ERROR CATEGORIES:
  1. Validation errors - rejected before any write is attempted
  2. Structural errors - abort the whole operation, no partial writes
  3. Consistency errors - a write sequence was left half-applied

USAGE:
  Callers branch with errors.Is:

    if errors.Is(err, finance.ErrExceedsPending) {
        // surface the limit to the user
    }

SEE ALSO:
  - orders/ledger.go: returns the validation/structural sentinels
  - payments/service.go: wraps mid-sequence failures in InconsistencyError
*/
package finance

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmount is returned for zero or negative money amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrMissingReference is returned when a non-cash payment carries no
	// external reference (card voucher, transfer id, check number).
	ErrMissingReference = errors.New("non-cash payment requires a reference")

	// ErrExceedsPending is returned when a payment (or payment edit delta)
	// exceeds the order's pending balance beyond tolerance.
	ErrExceedsPending = errors.New("amount exceeds pending balance")

	// ErrPaymentNotFound is returned when a payment id is not on the order.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrAccountMismatch is returned when a payment mutation supplies an
	// account other than the payment's original account.
	ErrAccountMismatch = errors.New("payment belongs to a different account")

	// ErrOrderNotFound is returned when a referenced order doesn't exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrAccountNotFound is returned when a referenced account doesn't exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrRecordNotFound is returned when a referenced ledger record doesn't exist.
	ErrRecordNotFound = errors.New("financial record not found")

	// ErrAlreadyReceived is returned when receiving an order whose status
	// already advanced past ordered.
	ErrAlreadyReceived = errors.New("order already received")

	// ErrInvalidInvoiceTotal is returned when the real invoice total is not
	// a positive finite number.
	ErrInvalidInvoiceTotal = errors.New("invalid invoice total")

	// ErrNotYetReceived is returned when delivering an order that has not
	// been received at reception.
	ErrNotYetReceived = errors.New("order not yet received")

	// ErrOrderClosed is returned when mutating a cancelled or delivered order.
	ErrOrderClosed = errors.New("order is closed")

	// ErrInconsistentLedger is returned when the ledger and the order/account
	// state disagree: a payment with no matching record, or a compensating
	// write that itself failed. The discrepancy is detectable via the
	// balance auditor; it is never healed silently.
	ErrInconsistentLedger = errors.New("ledger is inconsistent with order state")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ExceedsPendingError reports how far a requested amount overshoots.
type ExceedsPendingError struct {
	OrderID   OrderID
	Requested decimal.Decimal
	Pending   decimal.Decimal
}

func (e *ExceedsPendingError) Error() string {
	return fmt.Sprintf("amount %s exceeds pending balance %s on order %s",
		e.Requested.StringFixed(2), e.Pending.StringFixed(2), e.OrderID)
}

func (e *ExceedsPendingError) Unwrap() error { return ErrExceedsPending }

// AccountMismatchError reports which account a payment actually belongs to.
type AccountMismatchError struct {
	PaymentID PaymentID
	Expected  AccountID
	Got       AccountID
}

func (e *AccountMismatchError) Error() string {
	return fmt.Sprintf("payment %s belongs to account %s, not %s",
		e.PaymentID, e.Expected, e.Got)
}

func (e *AccountMismatchError) Unwrap() error { return ErrAccountMismatch }

// InconsistencyError is surfaced when a multi-write operation failed partway
// and the compensating write also failed. Step names the write that failed;
// Cause is the underlying persistence error.
type InconsistencyError struct {
	Op      string
	Step    string
	OrderID OrderID
	Cause   error
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("%s left order %s inconsistent at step %q: %v",
		e.Op, e.OrderID, e.Step, e.Cause)
}

func (e *InconsistencyError) Unwrap() error { return ErrInconsistentLedger }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrMissingReference) ||
		errors.Is(err, ErrExceedsPending) ||
		errors.Is(err, ErrAccountMismatch) ||
		errors.Is(err, ErrAlreadyReceived) ||
		errors.Is(err, ErrInvalidInvoiceTotal) ||
		errors.Is(err, ErrNotYetReceived) ||
		errors.Is(err, ErrOrderClosed)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrPaymentNotFound) ||
		errors.Is(err, ErrRecordNotFound)
}

// IsInconsistency returns true if the error signals ledger drift that the
// balance auditor should be able to surface.
func IsInconsistency(err error) bool {
	return errors.Is(err, ErrInconsistentLedger)
}
