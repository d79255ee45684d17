package mocks

import (
	"context"
	"sync"

	"github.com/example/bizmarket/internal/domain/inventory"
)

// MockInventoryStore is an in-memory inventory.Store for testing.
// RecordSale is all-or-nothing and serialized per store, like the row lock
// in the Postgres implementation.
type MockInventoryStore struct {
	mu        sync.RWMutex
	products  map[int64]inventory.Product
	ledger    []inventory.SaleLedgerEntry
	movements []inventory.MovementLog

	GetCalls    []int64
	RecordCalls int
	GetErr      error
	RecordErr   error

	// BeforeRecord runs at the start of RecordSale, without the lock held.
	BeforeRecord func(entry *inventory.SaleLedgerEntry)
}

// NewMockInventoryStore creates a new MockInventoryStore
func NewMockInventoryStore() *MockInventoryStore {
	return &MockInventoryStore{
		products: make(map[int64]inventory.Product),
	}
}

func (m *MockInventoryStore) GetProduct(_ context.Context, productID int64) (*inventory.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetCalls = append(m.GetCalls, productID)
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	p, ok := m.products[productID]
	if !ok {
		return nil, inventory.ErrProductNotFound
	}
	return &p, nil
}

func (m *MockInventoryStore) RecordSale(_ context.Context, entry *inventory.SaleLedgerEntry, movement *inventory.MovementLog) error {
	if m.BeforeRecord != nil {
		m.BeforeRecord(entry)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.RecordCalls++
	if m.RecordErr != nil {
		return m.RecordErr
	}
	p, ok := m.products[entry.ProductID]
	if !ok {
		return inventory.ErrProductNotFound
	}
	for _, e := range m.ledger {
		if e.OrderID == entry.OrderID {
			return inventory.ErrDuplicateSale
		}
	}

	movement.QuantityBefore = p.Stock
	p.Stock = max(0, p.Stock-entry.Quantity)
	movement.QuantityAfter = p.Stock
	p.UpdatedAt = entry.CreatedAt
	p.Version++
	m.products[p.ID] = p

	entry.ID = int64(len(m.ledger) + 1)
	m.ledger = append(m.ledger, *entry)
	movement.ID = int64(len(m.movements) + 1)
	m.movements = append(m.movements, *movement)
	return nil
}

func (m *MockInventoryStore) ListMovements(_ context.Context, productID int64, limit int) ([]inventory.MovementLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []inventory.MovementLog
	for i := len(m.movements) - 1; i >= 0 && len(out) < limit; i-- {
		if m.movements[i].ProductID == productID {
			out = append(out, m.movements[i])
		}
	}
	return out, nil
}

// PutProduct stores a product for test setup
func (m *MockInventoryStore) PutProduct(p inventory.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

// Product returns the stored copy of a product
func (m *MockInventoryStore) Product(productID int64) inventory.Product {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.products[productID]
}

// Ledger returns every recorded sale ledger entry
func (m *MockInventoryStore) Ledger() []inventory.SaleLedgerEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]inventory.SaleLedgerEntry(nil), m.ledger...)
}

// Movements returns every recorded movement log row
func (m *MockInventoryStore) Movements() []inventory.MovementLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]inventory.MovementLog(nil), m.movements...)
}
