/*
audit.go - Balance auditor

PURPOSE:
  The system's sole automated consistency check. For each account it
  recomputes the balance implied by the ledger (income adds, expense
  subtracts) and compares it against the stored running balance. Drift
  beyond Epsilon is flagged; nothing is repaired.

WHY IT EXISTS:
  Order, account, and record writes are three independent calls with no
  shared transaction. When a later write fails after an earlier one
  succeeded, the stored balance can drift from the ledger. This auditor is
  how that drift becomes visible.

SEE ALSO:
  - queries.go: AccountBalance fold
  - api/scheduler.go: runs this on an interval
*/
package finance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AUDIT REPORT
// =============================================================================

// AuditRow compares one account's stored balance with the ledger.
// Difference is reported minus calculated: positive means the stored
// balance claims more money than the ledger explains.
type AuditRow struct {
	AccountID   AccountID
	AccountName string
	Type        AccountType
	Reported    decimal.Decimal
	Calculated  decimal.Decimal
	Difference  decimal.Decimal
	Discrepant  bool
}

type AuditReport struct {
	Rows          []AuditRow
	Discrepancies int
	RanAt         time.Time
}

// HasDiscrepancies reports whether any account drifted.
func (r AuditReport) HasDiscrepancies() bool { return r.Discrepancies > 0 }

// =============================================================================
// PURE AUDIT
// =============================================================================

// AuditBalances recomputes each account's balance from the record list and
// flags drift beyond Epsilon. Read-only and side-effect free.
func AuditBalances(accounts []Account, records []FinancialRecord) AuditReport {
	report := AuditReport{RanAt: time.Now()}
	for _, acct := range accounts {
		calculated := AccountBalance(records, acct.ID)
		diff := acct.Balance.Sub(calculated)
		row := AuditRow{
			AccountID:   acct.ID,
			AccountName: acct.Name,
			Type:        acct.Type,
			Reported:    acct.Balance,
			Calculated:  calculated,
			Difference:  diff,
			Discrepant:  diff.Abs().GreaterThan(Epsilon),
		}
		if row.Discrepant {
			report.Discrepancies++
		}
		report.Rows = append(report.Rows, row)
	}
	return report
}

// =============================================================================
// AUDITOR SERVICE
// =============================================================================

// Auditor loads accounts and records and runs the comparison. Safe to call
// on demand, repeatedly, and concurrently with writes.
type Auditor struct {
	Accounts AccountRepository
	Records  RecordRepository
}

func NewAuditor(accounts AccountRepository, records RecordRepository) *Auditor {
	return &Auditor{Accounts: accounts, Records: records}
}

func (a *Auditor) Run(ctx context.Context) (AuditReport, error) {
	accounts, err := a.Accounts.GetAll(ctx)
	if err != nil {
		return AuditReport{}, err
	}
	records, err := a.Records.ListRecords(ctx, RecordFilter{})
	if err != nil {
		return AuditReport{}, err
	}
	return AuditBalances(accounts, records), nil
}
