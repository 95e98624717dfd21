package finance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantage/order-engine/finance"
)

// =============================================================================
// BALANCE AUDIT
// =============================================================================

func TestAuditBalances_CleanWhenLedgerMatches(t *testing.T) {
	// GIVEN: A register whose stored balance equals the sum of its records
	// WHEN: The audit runs
	// THEN: No discrepancies

	accounts := []finance.Account{
		{ID: "acc-cash", Name: "Main Register", Type: finance.AccountCash, Balance: amt("70")},
	}
	records := []finance.FinancialRecord{
		incomeRecord("r1", "100", "acc-cash"),
		expenseRecord("r2", "30", "acc-cash"),
	}

	report := finance.AuditBalances(accounts, records)

	require.Len(t, report.Rows, 1)
	assert.False(t, report.HasDiscrepancies())
	assert.False(t, report.Rows[0].Discrepant)
	assert.True(t, report.Rows[0].Difference.IsZero())
}

func TestAuditBalances_DetectsDrift(t *testing.T) {
	// GIVEN: A register reporting 100 while the ledger only explains 70
	// WHEN: The audit runs
	// THEN: One discrepancy with a +30 difference

	accounts := []finance.Account{
		{ID: "acc-cash", Name: "Main Register", Type: finance.AccountCash, Balance: amt("100")},
	}
	records := []finance.FinancialRecord{
		incomeRecord("r1", "100", "acc-cash"),
		expenseRecord("r2", "30", "acc-cash"),
	}

	report := finance.AuditBalances(accounts, records)

	require.Len(t, report.Rows, 1)
	assert.True(t, report.HasDiscrepancies())
	assert.Equal(t, 1, report.Discrepancies)
	assert.True(t, report.Rows[0].Discrepant)
	assert.True(t, report.Rows[0].Difference.Equal(amt("30")))
}

func TestAuditBalances_SubCentDriftTolerated(t *testing.T) {
	accounts := []finance.Account{
		{ID: "acc-cash", Balance: amt("70.005")},
	}
	records := []finance.FinancialRecord{
		incomeRecord("r1", "70", "acc-cash"),
	}

	report := finance.AuditBalances(accounts, records)
	assert.False(t, report.HasDiscrepancies())
}

func TestAuditBalances_AdjustmentRecordsInvisible(t *testing.T) {
	// Credit adjustments carry no account. Generating a credit must never
	// make an account look out of balance.

	accounts := []finance.Account{
		{ID: "acc-cash", Balance: amt("100")},
	}
	adjustment := finance.FinancialRecord{
		ID:        "adj-1",
		Type:      finance.RecordAdjustment,
		Source:    finance.SourceAdjustment,
		Direction: finance.DirectionIncome,
		Amount:    amt("20"),
		CreatedAt: baseTime,
		Version:   1,
	}
	records := []finance.FinancialRecord{
		incomeRecord("r1", "100", "acc-cash"),
		adjustment,
	}

	report := finance.AuditBalances(accounts, records)
	assert.False(t, report.HasDiscrepancies())
}

func TestAuditBalances_DeletedRecordsInvisible(t *testing.T) {
	// A reverted payment's record is logically deleted; the calculated
	// balance must not count it.

	accounts := []finance.Account{
		{ID: "acc-cash", Balance: amt("100")},
	}
	deleted := incomeRecord("r2", "40", "acc-cash")
	deleted.Deleted = true
	records := []finance.FinancialRecord{
		incomeRecord("r1", "100", "acc-cash"),
		deleted,
	}

	report := finance.AuditBalances(accounts, records)
	assert.False(t, report.HasDiscrepancies())
}

func TestAuditBalances_NoAccounts(t *testing.T) {
	report := finance.AuditBalances(nil, nil)
	assert.Empty(t, report.Rows)
	assert.False(t, report.HasDiscrepancies())
}
