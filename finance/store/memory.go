// Package store provides in-memory repository implementations for tests
// and dev mode. All methods copy on the way out so callers never alias
// internal state.
package store

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vantage/order-engine/finance"
	"github.com/vantage/order-engine/orders"
)

// =============================================================================
// MEMORY STORE - Implements every repository interface
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	orders    map[finance.OrderID]orders.Order
	accounts  map[finance.AccountID]finance.Account
	records   []finance.FinancialRecord
	credits   map[finance.RecordID]finance.ClientCredit // keyed by origin record
	snapshots map[finance.SnapshotID]finance.ClosureSnapshot
}

func NewMemory() *Memory {
	return &Memory{
		orders:    make(map[finance.OrderID]orders.Order),
		accounts:  make(map[finance.AccountID]finance.Account),
		credits:   make(map[finance.RecordID]finance.ClientCredit),
		snapshots: make(map[finance.SnapshotID]finance.ClosureSnapshot),
	}
}

// =============================================================================
// ORDER REPOSITORY
// =============================================================================

func (m *Memory) Get(ctx context.Context, id finance.OrderID) (*orders.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	out := order
	out.Payments = append([]orders.Payment(nil), order.Payments...)
	return &out, nil
}

func (m *Memory) Save(ctx context.Context, order orders.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order.Payments = append([]orders.Payment(nil), order.Payments...)
	m.orders[order.ID] = order
	return nil
}

func (m *Memory) List(ctx context.Context) ([]orders.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]orders.Order, 0, len(m.orders))
	for _, order := range m.orders {
		order.Payments = append([]orders.Payment(nil), order.Payments...)
		out = append(out, order)
	}
	return out, nil
}

// =============================================================================
// ACCOUNT REPOSITORY
// =============================================================================

func (m *Memory) GetAll(ctx context.Context) ([]finance.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]finance.Account, 0, len(m.accounts))
	for _, acct := range m.accounts {
		out = append(out, acct)
	}
	return out, nil
}

func (m *Memory) GetAccount(ctx context.Context, id finance.AccountID) (*finance.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acct, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	return &acct, nil
}

func (m *Memory) SaveAccount(ctx context.Context, account finance.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
	return nil
}

func (m *Memory) UpdateBalance(ctx context.Context, id finance.AccountID, balance decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[id]
	if !ok {
		return finance.ErrAccountNotFound
	}
	acct.Balance = balance
	m.accounts[id] = acct
	return nil
}

// =============================================================================
// RECORD REPOSITORY
// =============================================================================

func (m *Memory) CreateRecord(ctx context.Context, record finance.FinancialRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *Memory) GetRecord(ctx context.Context, id finance.RecordID) (*finance.FinancialRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.records {
		if r.ID == id {
			out := r
			return &out, nil
		}
	}
	return nil, nil
}

func (m *Memory) UpdateAmount(ctx context.Context, id finance.RecordID, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ID == id {
			m.records[i].Amount = amount
			m.records[i].Version++
			return nil
		}
	}
	return finance.ErrRecordNotFound
}

func (m *Memory) DeleteRecord(ctx context.Context, id finance.RecordID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ID == id {
			m.records[i].Deleted = true
			return nil
		}
	}
	return finance.ErrRecordNotFound
}

func (m *Memory) FindByPayment(ctx context.Context, paymentID finance.PaymentID) (*finance.FinancialRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.records {
		if r.PaymentID == paymentID && !r.Deleted {
			out := r
			return &out, nil
		}
	}
	return nil, nil
}

func (m *Memory) ListRecords(ctx context.Context, filter finance.RecordFilter) ([]finance.FinancialRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []finance.FinancialRecord
	for _, r := range m.records {
		if matches(r, filter) {
			out = append(out, r)
		}
	}
	return out, nil
}

func matches(r finance.FinancialRecord, f finance.RecordFilter) bool {
	if r.Deleted && !f.IncludeDeleted {
		return false
	}
	if f.AccountID != "" && r.AccountID != f.AccountID {
		return false
	}
	if f.ClientID != "" && r.ClientID != f.ClientID {
		return false
	}
	if f.OrderID != "" && r.OrderID != f.OrderID {
		return false
	}
	if f.From != nil && r.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && r.CreatedAt.After(*f.To) {
		return false
	}
	return true
}

// =============================================================================
// CREDIT REPOSITORY - Idempotent on origin record id
// =============================================================================

func (m *Memory) CreateCredit(ctx context.Context, credit finance.ClientCredit) (finance.ClientCredit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.credits[credit.OriginRecordID]; ok {
		return existing, nil
	}
	m.credits[credit.OriginRecordID] = credit
	return credit, nil
}

func (m *Memory) GetByClient(ctx context.Context, clientID finance.ClientID) ([]finance.ClientCredit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []finance.ClientCredit
	for _, c := range m.credits {
		if c.ClientID == clientID {
			out = append(out, c)
		}
	}
	return out, nil
}

// =============================================================================
// SNAPSHOT REPOSITORY
// =============================================================================

func (m *Memory) SaveSnapshot(ctx context.Context, snapshot finance.ClosureSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snapshot.ID] = snapshot
	return nil
}

func (m *Memory) GetSnapshot(ctx context.Context, id finance.SnapshotID) (*finance.ClosureSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snapshots[id]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (m *Memory) ListSnapshots(ctx context.Context) ([]finance.ClosureSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]finance.ClosureSnapshot, 0, len(m.snapshots))
	for _, s := range m.snapshots {
		out = append(out, s)
	}
	return out, nil
}
