/*
queries.go - Pure folds over financial record lists

PURPOSE:
  Every balance and breakdown the system shows is a fold over a list of
  records. Logically-deleted records contribute nothing. Empty input yields
  zero aggregates, never an error.

SEE ALSO:
  - closure.go: composes these folds into the cash-closure snapshot
  - audit.go: compares AccountBalance against stored balances
*/
package finance

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TOTALS
// =============================================================================

// TotalIncome sums the amounts of live income records.
func TotalIncome(records []FinancialRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		if !r.Deleted && r.Direction == DirectionIncome {
			total = total.Add(r.Amount)
		}
	}
	return total
}

// TotalExpense sums the amounts of live expense records (as a positive number).
func TotalExpense(records []FinancialRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		if !r.Deleted && r.Direction == DirectionExpense {
			total = total.Add(r.Amount)
		}
	}
	return total
}

// NetBalance is income minus expense.
func NetBalance(records []FinancialRecord) decimal.Decimal {
	return TotalIncome(records).Sub(TotalExpense(records))
}

// AccountBalance folds the records belonging to one account:
// income adds, expense subtracts.
func AccountBalance(records []FinancialRecord, accountID AccountID) decimal.Decimal {
	balance := decimal.Zero
	for _, r := range records {
		// Records with no account (credit adjustments) belong to no
		// balance, even when asked about the empty id.
		if r.AccountID == "" || r.AccountID != accountID {
			continue
		}
		balance = balance.Add(r.Signed())
	}
	return balance
}

// =============================================================================
// FILTERS
// =============================================================================

// ByClient returns the live records associated with a client.
func ByClient(records []FinancialRecord, clientID ClientID) []FinancialRecord {
	return filter(records, func(r FinancialRecord) bool {
		return !r.Deleted && r.ClientID == clientID
	})
}

// ByOrder returns the live records associated with an order.
func ByOrder(records []FinancialRecord, orderID OrderID) []FinancialRecord {
	return filter(records, func(r FinancialRecord) bool {
		return !r.Deleted && r.OrderID == orderID
	})
}

// ByAccount returns the live records owned by an account.
func ByAccount(records []FinancialRecord, accountID AccountID) []FinancialRecord {
	return filter(records, func(r FinancialRecord) bool {
		return !r.Deleted && r.AccountID == accountID
	})
}

// InDateRange returns the live records whose creation date falls within
// [from, to], compared at calendar-day granularity.
func InDateRange(records []FinancialRecord, from, to time.Time) []FinancialRecord {
	fromDay := truncateToDay(from)
	toDay := truncateToDay(to)
	return filter(records, func(r FinancialRecord) bool {
		if r.Deleted {
			return false
		}
		day := truncateToDay(r.CreatedAt)
		return !day.Before(fromDay) && !day.After(toDay)
	})
}

func filter(records []FinancialRecord, keep func(FinancialRecord) bool) []FinancialRecord {
	var out []FinancialRecord
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// =============================================================================
// CASH FLOW SUMMARY
// =============================================================================

// CashFlowSummary is the composite grouped view: totals plus per-source and
// per-account breakdowns.
type CashFlowSummary struct {
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	Net          decimal.Decimal
	BySource     map[RecordSource]decimal.Decimal
	ByAccount    map[AccountID]decimal.Decimal
}

// SummarizeCashFlow folds a record list into a CashFlowSummary. Per-source
// amounts are signed; per-account amounts are the account's net movement.
func SummarizeCashFlow(records []FinancialRecord) CashFlowSummary {
	summary := CashFlowSummary{
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
		BySource:     make(map[RecordSource]decimal.Decimal),
		ByAccount:    make(map[AccountID]decimal.Decimal),
	}
	for _, r := range records {
		if r.Deleted {
			continue
		}
		if r.Direction == DirectionIncome {
			summary.TotalIncome = summary.TotalIncome.Add(r.Amount)
		} else {
			summary.TotalExpense = summary.TotalExpense.Add(r.Amount)
		}
		summary.BySource[r.Source] = summary.BySource[r.Source].Add(r.Signed())
		if r.AccountID != "" {
			summary.ByAccount[r.AccountID] = summary.ByAccount[r.AccountID].Add(r.Signed())
		}
	}
	summary.Net = summary.TotalIncome.Sub(summary.TotalExpense)
	return summary
}
