package finance_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantage/order-engine/finance"
)

// =============================================================================
// SNAPSHOT BUILDER
// =============================================================================

func closureRecords() []finance.FinancialRecord {
	initial := incomeRecord("r1", "100", "acc-cash")
	initial.InitialPayment = true
	initial.CreatedBy = "ana"
	initial.CreatedAt = baseTime

	later := incomeRecord("r2", "50", "acc-bank")
	later.Method = finance.MethodTransfer
	later.CreatedBy = "ben"
	later.CreatedAt = baseTime.Add(2 * time.Hour)

	adjustment := finance.FinancialRecord{
		ID:        "r3",
		Type:      finance.RecordAdjustment,
		Source:    finance.SourceAdjustment,
		Direction: finance.DirectionIncome,
		Amount:    amt("20"),
		Reference: "ADJ-R1-1",
		CreatedBy: "ana",
		CreatedAt: baseTime.Add(3 * time.Hour),
		Version:   1,
	}

	expense := expenseRecord("r4", "30", "acc-cash")
	expense.CreatedBy = "ana"
	expense.CreatedAt = baseTime.Add(4 * time.Hour)

	return []finance.FinancialRecord{initial, later, adjustment, expense}
}

func closureAccounts() []finance.Account {
	return []finance.Account{
		{ID: "acc-cash", Name: "Main Register", Type: finance.AccountCash, Balance: amt("70")},
		{ID: "acc-bank", Name: "Bank", Type: finance.AccountBank, Balance: amt("50")},
	}
}

func TestBuildSnapshot_Totals(t *testing.T) {
	snap := finance.BuildSnapshot(baseTime, baseTime, closureRecords(), closureAccounts(), "shift end", "ana")

	assert.True(t, snap.TotalIncome.Equal(amt("170")), "income includes the adjustment, got %s", snap.TotalIncome)
	assert.True(t, snap.TotalExpense.Equal(amt("30")))
	assert.True(t, snap.Net.Equal(amt("140")))
	assert.Equal(t, "shift end", snap.Notes)
	assert.Equal(t, "ana", snap.GeneratedBy)
}

func TestBuildSnapshot_IncomeBySource(t *testing.T) {
	snap := finance.BuildSnapshot(baseTime, baseTime, closureRecords(), closureAccounts(), "", "")

	assert.True(t, snap.IncomeBySource.InitialPayments.Equal(amt("100")))
	assert.True(t, snap.IncomeBySource.LaterPayments.Equal(amt("50")))
	assert.True(t, snap.IncomeBySource.Adjustments.Equal(amt("20")))
	assert.True(t, snap.IncomeBySource.Manual.IsZero())
}

func TestBuildSnapshot_IncomeByMethod(t *testing.T) {
	snap := finance.BuildSnapshot(baseTime, baseTime, closureRecords(), closureAccounts(), "", "")

	assert.True(t, snap.IncomeByMethod[finance.MethodCash].Equal(amt("100")))
	assert.True(t, snap.IncomeByMethod[finance.MethodTransfer].Equal(amt("50")))
	// The adjustment has no method; it must not appear under any key.
	_, hasEmpty := snap.IncomeByMethod[finance.PaymentMethod("")]
	assert.False(t, hasEmpty)
}

func TestBuildSnapshot_AccountMovements(t *testing.T) {
	snap := finance.BuildSnapshot(baseTime, baseTime, closureRecords(), closureAccounts(), "", "")

	require.Len(t, snap.Accounts, 2)
	byID := map[finance.AccountID]finance.AccountClosureBalance{}
	for _, a := range snap.Accounts {
		byID[a.AccountID] = a
	}

	// cash: +100 income, -30 expense; the adjustment touches no account
	assert.True(t, byID["acc-cash"].Movement.Equal(amt("70")))
	assert.True(t, byID["acc-cash"].Reported.Equal(amt("70")))
	assert.True(t, byID["acc-bank"].Movement.Equal(amt("50")))
}

func TestBuildSnapshot_UserActivity(t *testing.T) {
	snap := finance.BuildSnapshot(baseTime, baseTime, closureRecords(), closureAccounts(), "", "")

	require.Len(t, snap.ByUser, 2)
	assert.Equal(t, "ana", snap.ByUser[0].User)
	assert.Equal(t, 3, snap.ByUser[0].Count)
	// ana: +100 + 20 - 30
	assert.True(t, snap.ByUser[0].Total.Equal(amt("90")))
	assert.Equal(t, "ben", snap.ByUser[1].User)
	assert.Equal(t, 1, snap.ByUser[1].Count)
}

func TestBuildSnapshot_MovementsMostRecentFirst(t *testing.T) {
	snap := finance.BuildSnapshot(baseTime, baseTime, closureRecords(), closureAccounts(), "", "")

	require.Len(t, snap.Movements, 4)
	assert.Equal(t, finance.RecordID("r4"), snap.Movements[0].ID)
	assert.Equal(t, finance.RecordID("r1"), snap.Movements[3].ID)
}

func TestBuildSnapshot_ScopesToCalendarDays(t *testing.T) {
	// A record from the previous day is excluded even when "from" carries a
	// mid-day timestamp.

	records := closureRecords()
	stray := incomeRecord("r9", "999", "acc-cash")
	stray.CreatedAt = baseTime.AddDate(0, 0, -1)
	records = append(records, stray)

	from := baseTime.Add(9 * time.Hour)
	snap := finance.BuildSnapshot(from, from, records, closureAccounts(), "", "")

	assert.Len(t, snap.Movements, 4)
	assert.True(t, snap.TotalIncome.Equal(amt("170")))
}
