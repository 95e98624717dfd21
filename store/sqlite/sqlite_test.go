package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantage/order-engine/finance"
	"github.com/vantage/order-engine/orders"
	"github.com/vantage/order-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testTime = time.Date(2026, time.June, 3, 12, 0, 0, 0, time.UTC)

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// =============================================================================
// ORDERS
// =============================================================================

func TestOrders_SaveAndGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	real := amt("140")
	receivedAt := testTime.Add(time.Hour)
	order := orders.Order{
		ID:               "ord-1",
		Receipt:          "R01042",
		ClientID:         "cli-1",
		Description:      "spare parts",
		EstimatedTotal:   amt("150"),
		RealInvoiceTotal: &real,
		InvoiceNumber:    "INV-77",
		Status:           orders.StatusReceived,
		CreatedAt:        testTime,
		ReceivedAt:       &receivedAt,
		Payments: []orders.Payment{
			{ID: "pay-1", Amount: amt("50"), AccountID: "acc-cash", Method: finance.MethodCash, CreatedBy: "ana", CreatedAt: testTime},
			{ID: "pay-2", Amount: amt("30"), AccountID: "acc-bank", Method: finance.MethodTransfer, Reference: "TRX-1", CreatedAt: testTime.Add(time.Minute)},
		},
	}
	require.NoError(t, store.Save(ctx, order))

	loaded, err := store.Get(ctx, "ord-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, "R01042", loaded.Receipt)
	assert.True(t, loaded.EstimatedTotal.Equal(amt("150")))
	require.NotNil(t, loaded.RealInvoiceTotal)
	assert.True(t, loaded.RealInvoiceTotal.Equal(amt("140")))
	assert.Equal(t, orders.StatusReceived, loaded.Status)
	require.NotNil(t, loaded.ReceivedAt)
	assert.True(t, loaded.ReceivedAt.Equal(receivedAt))

	// Payment order is insertion order, not id or amount order.
	require.Len(t, loaded.Payments, 2)
	assert.Equal(t, finance.PaymentID("pay-1"), loaded.Payments[0].ID)
	assert.Equal(t, finance.PaymentID("pay-2"), loaded.Payments[1].ID)
	assert.True(t, loaded.PaidAmount().Equal(amt("80")))
}

func TestOrders_SaveReplacesPayments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	order := orders.Order{
		ID: "ord-1", Receipt: "R1", ClientID: "cli-1",
		EstimatedTotal: amt("100"), Status: orders.StatusOrdered, CreatedAt: testTime,
		Payments: []orders.Payment{
			{ID: "pay-1", Amount: amt("50"), AccountID: "acc-cash", Method: finance.MethodCash, CreatedAt: testTime},
		},
	}
	require.NoError(t, store.Save(ctx, order))

	// Remove the payment and save again.
	order.Payments = nil
	require.NoError(t, store.Save(ctx, order))

	loaded, err := store.Get(ctx, "ord-1")
	require.NoError(t, err)
	assert.Len(t, loaded.Payments, 0)
}

func TestOrders_GetMissingReturnsNil(t *testing.T) {
	store := newTestStore(t)

	order, err := store.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, order)
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func TestAccounts_SaveGetUpdateBalance(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	account := finance.Account{
		ID: "acc-cash", Name: "Main Register", Type: finance.AccountCash,
		Balance: amt("100"), Active: true, CreatedAt: testTime,
	}
	require.NoError(t, store.SaveAccount(ctx, account))

	require.NoError(t, store.UpdateBalance(ctx, "acc-cash", amt("130")))

	loaded, err := store.GetAccount(ctx, "acc-cash")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.True(t, loaded.Balance.Equal(amt("130")))
	assert.Equal(t, finance.AccountCash, loaded.Type)
	assert.True(t, loaded.Active)
}

func TestAccounts_UpdateBalanceMissingAccount(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateBalance(context.Background(), "nope", amt("10"))
	assert.ErrorIs(t, err, finance.ErrAccountNotFound)
}

// =============================================================================
// FINANCIAL RECORDS
// =============================================================================

func paymentRecord(id, paymentID, accountID, amount string) finance.FinancialRecord {
	return finance.FinancialRecord{
		ID:        finance.RecordID(id),
		Type:      finance.RecordPayment,
		Source:    finance.SourceOrderPayment,
		Direction: finance.DirectionIncome,
		Amount:    amt(amount),
		Reference: "PAY-R1-1",
		Method:    finance.MethodCash,
		ClientID:  "cli-1",
		OrderID:   "ord-1",
		PaymentID: finance.PaymentID(paymentID),
		AccountID: finance.AccountID(accountID),
		CreatedAt: testTime,
		Version:   1,
	}
}

func TestRecords_LogicalDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRecord(ctx, paymentRecord("rec-1", "pay-1", "acc-cash", "50")))
	require.NoError(t, store.DeleteRecord(ctx, "rec-1"))

	// Default listing excludes deleted rows.
	live, err := store.ListRecords(ctx, finance.RecordFilter{})
	require.NoError(t, err)
	assert.Len(t, live, 0)

	// The row still exists for history.
	all, err := store.ListRecords(ctx, finance.RecordFilter{IncludeDeleted: true})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Deleted)

	// FindByPayment only sees live records.
	found, err := store.FindByPayment(ctx, "pay-1")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRecords_UpdateAmountBumpsVersion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRecord(ctx, paymentRecord("rec-1", "pay-1", "acc-cash", "50")))
	require.NoError(t, store.UpdateAmount(ctx, "rec-1", amt("30")))

	record, err := store.GetRecord(ctx, "rec-1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, record.Amount.Equal(amt("30")))
	assert.Equal(t, 2, record.Version)
}

func TestRecords_UpdateAmountOnDeletedFails(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRecord(ctx, paymentRecord("rec-1", "pay-1", "acc-cash", "50")))
	require.NoError(t, store.DeleteRecord(ctx, "rec-1"))

	err := store.UpdateAmount(ctx, "rec-1", amt("30"))
	assert.ErrorIs(t, err, finance.ErrRecordNotFound)
}

func TestRecords_FilterByAccountAndDateRange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	early := paymentRecord("rec-1", "pay-1", "acc-cash", "50")
	early.CreatedAt = testTime

	late := paymentRecord("rec-2", "pay-2", "acc-cash", "30")
	late.CreatedAt = testTime.AddDate(0, 0, 2)

	other := paymentRecord("rec-3", "pay-3", "acc-bank", "70")
	other.CreatedAt = testTime

	require.NoError(t, store.CreateRecord(ctx, early))
	require.NoError(t, store.CreateRecord(ctx, late))
	require.NoError(t, store.CreateRecord(ctx, other))

	cash, err := store.ListRecords(ctx, finance.RecordFilter{AccountID: "acc-cash"})
	require.NoError(t, err)
	assert.Len(t, cash, 2)

	to := testTime.AddDate(0, 0, 1)
	scoped, err := store.ListRecords(ctx, finance.RecordFilter{AccountID: "acc-cash", To: &to})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, finance.RecordID("rec-1"), scoped[0].ID)
}

// =============================================================================
// CLIENT CREDITS
// =============================================================================

func TestCredits_IdempotentOnOrigin(t *testing.T) {
	// Two inserts with the same origin record collapse into one row; the
	// second call returns the existing credit.

	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.CreateCredit(ctx, finance.ClientCredit{
		ID: "cr-1", ClientID: "cli-1", Amount: amt("20"),
		OriginRecordID: "rec-1", CreatedAt: testTime,
	})
	require.NoError(t, err)
	assert.Equal(t, finance.CreditID("cr-1"), first.ID)

	second, err := store.CreateCredit(ctx, finance.ClientCredit{
		ID: "cr-2", ClientID: "cli-1", Amount: amt("20"),
		OriginRecordID: "rec-1", CreatedAt: testTime,
	})
	require.NoError(t, err)
	assert.Equal(t, finance.CreditID("cr-1"), second.ID, "existing credit wins")

	credits, err := store.GetByClient(ctx, "cli-1")
	require.NoError(t, err)
	assert.Len(t, credits, 1)
}

// =============================================================================
// CLOSURE SNAPSHOTS
// =============================================================================

func TestSnapshots_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	snap := finance.ClosureSnapshot{
		ID:           "snap-1",
		From:         testTime,
		To:           testTime,
		TotalIncome:  amt("170"),
		TotalExpense: amt("30"),
		Net:          amt("140"),
		Accounts: []finance.AccountClosureBalance{
			{AccountID: "acc-cash", AccountName: "Main Register", Type: finance.AccountCash, Movement: amt("70"), Reported: amt("70")},
		},
		IncomeBySource: finance.IncomeBySource{
			InitialPayments: amt("100"),
			LaterPayments:   amt("50"),
			Adjustments:     amt("20"),
		},
		IncomeByMethod: map[finance.PaymentMethod]decimal.Decimal{
			finance.MethodCash: amt("150"),
		},
		ByUser: []finance.UserActivity{
			{User: "ana", Count: 3, Total: amt("90")},
		},
		Movements: []finance.FinancialRecord{
			paymentRecord("rec-1", "pay-1", "acc-cash", "50"),
		},
		Notes:       "shift end",
		GeneratedBy: "ana",
		GeneratedAt: testTime,
	}
	require.NoError(t, store.SaveSnapshot(ctx, snap))

	loaded, err := store.GetSnapshot(ctx, "snap-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.True(t, loaded.TotalIncome.Equal(amt("170")))
	assert.True(t, loaded.Net.Equal(amt("140")))
	require.Len(t, loaded.Accounts, 1)
	assert.True(t, loaded.Accounts[0].Movement.Equal(amt("70")))
	assert.True(t, loaded.IncomeBySource.InitialPayments.Equal(amt("100")))
	assert.True(t, loaded.IncomeByMethod[finance.MethodCash].Equal(amt("150")))
	require.Len(t, loaded.ByUser, 1)
	assert.Equal(t, 3, loaded.ByUser[0].Count)
	require.Len(t, loaded.Movements, 1)
	assert.Equal(t, "shift end", loaded.Notes)

	list, err := store.ListSnapshots(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

// =============================================================================
// END-TO-END THROUGH THE AUDITOR
// =============================================================================

func TestSQLiteStore_FeedsAuditor(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveAccount(ctx, finance.Account{
		ID: "acc-cash", Name: "Main Register", Type: finance.AccountCash,
		Balance: amt("50"), Active: true, CreatedAt: testTime,
	}))
	require.NoError(t, store.CreateRecord(ctx, paymentRecord("rec-1", "pay-1", "acc-cash", "50")))

	report, err := finance.NewAuditor(store, store).Run(ctx)
	require.NoError(t, err)
	assert.False(t, report.HasDiscrepancies())

	// Drift the stored balance and the audit notices.
	require.NoError(t, store.UpdateBalance(ctx, "acc-cash", amt("80")))
	report, err = finance.NewAuditor(store, store).Run(ctx)
	require.NoError(t, err)
	assert.True(t, report.HasDiscrepancies())
}
