/*
reception.go - Settlement when the real invoice differs from what was paid

PURPOSE:
  At goods reception the supplier's real invoice replaces the estimate. By
  then the client may have paid more or less than the real total. This
  calculator classifies the difference; the payment orchestrator applies it
  (receives the order and, on overpayment, creates the client credit).
*/
package orders

import (
	"github.com/shopspring/decimal"

	"github.com/vantage/order-engine/finance"
)

// =============================================================================
// RECEPTION ADJUSTMENT
// =============================================================================

type AdjustmentKind string

const (
	AdjustmentExact             AdjustmentKind = "EXACT"
	AdjustmentCredit            AdjustmentKind = "CREDIT"
	AdjustmentAdditionalPayment AdjustmentKind = "ADDITIONAL_PAYMENT"
)

type ReceptionAdjustment struct {
	Kind                    AdjustmentKind
	NewPending              decimal.Decimal
	CreditGenerated         decimal.Decimal
	AdditionalPaymentNeeded decimal.Decimal
}

// ComputeReceptionAdjustment classifies the settlement for a real invoice
// total against what was already paid. Pure; mutates nothing.
//
//	|real - paid| within tolerance -> EXACT, all deltas zero
//	real < paid                    -> CREDIT of the overpayment
//	real > paid                    -> ADDITIONAL_PAYMENT of the shortfall
func ComputeReceptionAdjustment(order Order, realInvoiceTotal decimal.Decimal) (ReceptionAdjustment, error) {
	if !realInvoiceTotal.IsPositive() {
		return ReceptionAdjustment{}, finance.ErrInvalidInvoiceTotal
	}

	difference := realInvoiceTotal.Sub(order.PaidAmount())

	switch {
	case finance.ApproxZero(difference):
		return ReceptionAdjustment{
			Kind:                    AdjustmentExact,
			NewPending:              decimal.Zero,
			CreditGenerated:         decimal.Zero,
			AdditionalPaymentNeeded: decimal.Zero,
		}, nil
	case difference.IsNegative():
		return ReceptionAdjustment{
			Kind:            AdjustmentCredit,
			NewPending:      decimal.Zero,
			CreditGenerated: difference.Abs(),
		}, nil
	default:
		return ReceptionAdjustment{
			Kind:                    AdjustmentAdditionalPayment,
			NewPending:              difference,
			AdditionalPaymentNeeded: difference,
		}, nil
	}
}
