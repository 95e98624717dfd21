/*
closure.go - Cash closure snapshot builder

PURPOSE:
  Produces the immutable end-of-shift financial report: totals, per-account
  balances, income broken down by source and payment method, per-user
  activity, and the full movement detail. Once built, a snapshot is never
  recomputed from live data - re-generation creates a new snapshot.

DATE SCOPE:
  Records are filtered to [from, to] at calendar-day granularity. A record
  stamped 2025-03-10T23:59 belongs to the 2025-03-10 closure.

INITIAL VS LATER:
  The income-by-source split between initial and later order payments reads
  the record's InitialPayment flag, set at payment-creation time.

SEE ALSO:
  - queries.go: the folds this builder composes
  - store.go: SnapshotRepository
*/
package finance

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// SNAPSHOT - Immutable closure report
// =============================================================================

// AccountClosureBalance is one account's net movement within the closure range.
type AccountClosureBalance struct {
	AccountID   AccountID
	AccountName string
	Type        AccountType
	Movement    decimal.Decimal
	// Reported is the account's stored balance at closure time.
	Reported decimal.Decimal
}

// IncomeBySource splits period income by where it came from.
type IncomeBySource struct {
	InitialPayments decimal.Decimal
	LaterPayments   decimal.Decimal
	Adjustments     decimal.Decimal
	Manual          decimal.Decimal
}

// UserActivity summarizes one user's movements in the period.
type UserActivity struct {
	User  string
	Count int
	Total decimal.Decimal
}

// ClosureSnapshot is a value object; nothing mutates it after BuildSnapshot.
type ClosureSnapshot struct {
	ID   SnapshotID
	From time.Time
	To   time.Time

	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	Net          decimal.Decimal

	Accounts       []AccountClosureBalance
	IncomeBySource IncomeBySource
	IncomeByMethod map[PaymentMethod]decimal.Decimal
	ByUser         []UserActivity

	// Movements is the full detail list, most recent first.
	Movements []FinancialRecord

	Notes       string
	GeneratedBy string
	GeneratedAt time.Time
}

// =============================================================================
// BUILDER
// =============================================================================

// BuildSnapshot computes a closure snapshot over already-persisted records.
// Pure: safe to call repeatedly and concurrently with writes (the report is
// at worst slightly stale, never wrong for the data it saw).
func BuildSnapshot(from, to time.Time, records []FinancialRecord, accounts []Account, notes, actor string) ClosureSnapshot {
	scoped := InDateRange(records, from, to)

	snap := ClosureSnapshot{
		ID:             SnapshotID(uuid.NewString()),
		From:           truncateToDay(from),
		To:             truncateToDay(to),
		TotalIncome:    TotalIncome(scoped),
		TotalExpense:   TotalExpense(scoped),
		IncomeByMethod: make(map[PaymentMethod]decimal.Decimal),
		Notes:          notes,
		GeneratedBy:    actor,
		GeneratedAt:    time.Now(),
	}
	snap.Net = snap.TotalIncome.Sub(snap.TotalExpense)

	for _, acct := range accounts {
		snap.Accounts = append(snap.Accounts, AccountClosureBalance{
			AccountID:   acct.ID,
			AccountName: acct.Name,
			Type:        acct.Type,
			Movement:    AccountBalance(scoped, acct.ID),
			Reported:    acct.Balance,
		})
	}

	byUser := make(map[string]*UserActivity)
	for _, r := range scoped {
		if r.Direction == DirectionIncome {
			switch r.Source {
			case SourceOrderPayment:
				if r.InitialPayment {
					snap.IncomeBySource.InitialPayments = snap.IncomeBySource.InitialPayments.Add(r.Amount)
				} else {
					snap.IncomeBySource.LaterPayments = snap.IncomeBySource.LaterPayments.Add(r.Amount)
				}
			case SourceAdjustment:
				snap.IncomeBySource.Adjustments = snap.IncomeBySource.Adjustments.Add(r.Amount)
			case SourceManual:
				snap.IncomeBySource.Manual = snap.IncomeBySource.Manual.Add(r.Amount)
			}
			if r.Method != "" {
				snap.IncomeByMethod[r.Method] = snap.IncomeByMethod[r.Method].Add(r.Amount)
			}
		}

		user := r.CreatedBy
		if user == "" {
			user = "unknown"
		}
		activity, ok := byUser[user]
		if !ok {
			activity = &UserActivity{User: user}
			byUser[user] = activity
		}
		activity.Count++
		activity.Total = activity.Total.Add(r.Signed())
	}

	for _, activity := range byUser {
		snap.ByUser = append(snap.ByUser, *activity)
	}
	sort.Slice(snap.ByUser, func(i, j int) bool {
		return snap.ByUser[i].User < snap.ByUser[j].User
	})

	snap.Movements = append(snap.Movements, scoped...)
	sort.Slice(snap.Movements, func(i, j int) bool {
		return snap.Movements[i].CreatedAt.After(snap.Movements[j].CreatedAt)
	})

	return snap
}

// =============================================================================
// CLOSURE SERVICE - Loads, builds, persists
// =============================================================================

// ClosureService performs the closing action: read the period's records and
// accounts, build the snapshot, persist it.
type ClosureService struct {
	Records   RecordRepository
	Accounts  AccountRepository
	Snapshots SnapshotRepository
}

func NewClosureService(records RecordRepository, accounts AccountRepository, snapshots SnapshotRepository) *ClosureService {
	return &ClosureService{Records: records, Accounts: accounts, Snapshots: snapshots}
}

// Close builds and persists a snapshot for [from, to].
func (s *ClosureService) Close(ctx context.Context, from, to time.Time, notes, actor string) (ClosureSnapshot, error) {
	// Load the whole closing day; BuildSnapshot re-filters at day
	// granularity anyway.
	loadFrom := truncateToDay(from)
	loadTo := truncateToDay(to).AddDate(0, 0, 1)
	records, err := s.Records.ListRecords(ctx, RecordFilter{From: &loadFrom, To: &loadTo})
	if err != nil {
		return ClosureSnapshot{}, err
	}
	accounts, err := s.Accounts.GetAll(ctx)
	if err != nil {
		return ClosureSnapshot{}, err
	}

	snap := BuildSnapshot(from, to, records, accounts, notes, actor)
	if err := s.Snapshots.SaveSnapshot(ctx, snap); err != nil {
		return ClosureSnapshot{}, err
	}
	return snap, nil
}
