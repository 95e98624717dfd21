package orders_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantage/order-engine/finance"
	"github.com/vantage/order-engine/orders"
)

// =============================================================================
// RECEPTION ADJUSTMENT
// =============================================================================

func TestReceptionAdjustment_AdditionalPaymentNeeded(t *testing.T) {
	// GIVEN: Estimate 50, client paid 20
	// WHEN: Received with a real invoice of 30
	// THEN: The client owes the 10 difference as an additional payment

	ledger := newTestLedger()
	order := newTestOrder("50")
	account := newTestAccount("0")

	order, _, _, err := ledger.AddPayment(order, account, amt("20"), orders.AddPaymentInput{})
	require.NoError(t, err)

	adj, err := orders.ComputeReceptionAdjustment(order, amt("30"))
	require.NoError(t, err)

	assert.Equal(t, orders.AdjustmentAdditionalPayment, adj.Kind)
	assert.True(t, adj.AdditionalPaymentNeeded.Equal(amt("10")))
	assert.True(t, adj.NewPending.Equal(amt("10")))
}

func TestReceptionAdjustment_CreditGenerated(t *testing.T) {
	// GIVEN: Estimate 50, client paid 40
	// WHEN: Received with a real invoice of 30
	// THEN: The 10 overpayment becomes a client credit

	ledger := newTestLedger()
	order := newTestOrder("50")
	account := newTestAccount("0")

	order, _, _, err := ledger.AddPayment(order, account, amt("40"), orders.AddPaymentInput{})
	require.NoError(t, err)

	adj, err := orders.ComputeReceptionAdjustment(order, amt("30"))
	require.NoError(t, err)

	assert.Equal(t, orders.AdjustmentCredit, adj.Kind)
	assert.True(t, adj.CreditGenerated.Equal(amt("10")), "credit is the absolute overpayment, got %s", adj.CreditGenerated)
	assert.True(t, adj.NewPending.IsZero())
}

func TestReceptionAdjustment_ExactWithinTolerance(t *testing.T) {
	// GIVEN: Client paid 30.005
	// WHEN: Received with a real invoice of 30.00 (difference under a cent)
	// THEN: EXACT - no credit, no additional payment

	ledger := newTestLedger()
	order := newTestOrder("50")
	account := newTestAccount("0")

	order, _, _, err := ledger.AddPayment(order, account, amt("30.005"), orders.AddPaymentInput{})
	require.NoError(t, err)

	adj, err := orders.ComputeReceptionAdjustment(order, amt("30"))
	require.NoError(t, err)

	assert.Equal(t, orders.AdjustmentExact, adj.Kind)
	assert.True(t, adj.CreditGenerated.IsZero())
	assert.True(t, adj.AdditionalPaymentNeeded.IsZero())
}

func TestReceptionAdjustment_NothingPaid(t *testing.T) {
	// An order received before any payment: the whole invoice is pending.

	order := newTestOrder("50")

	adj, err := orders.ComputeReceptionAdjustment(order, amt("45"))
	require.NoError(t, err)

	assert.Equal(t, orders.AdjustmentAdditionalPayment, adj.Kind)
	assert.True(t, adj.AdditionalPaymentNeeded.Equal(amt("45")))
}

func TestReceptionAdjustment_InvalidTotalRejected(t *testing.T) {
	order := newTestOrder("50")

	_, err := orders.ComputeReceptionAdjustment(order, decimal.Zero)
	assert.ErrorIs(t, err, finance.ErrInvalidInvoiceTotal)

	_, err = orders.ComputeReceptionAdjustment(order, amt("-5"))
	assert.ErrorIs(t, err, finance.ErrInvalidInvoiceTotal)
}
