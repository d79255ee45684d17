package mocks

import (
	"context"
	"slices"
	"sync"

	"github.com/example/bizmarket/internal/domain/order"
)

// MockOrderStore is an in-memory order.Store for testing
type MockOrderStore struct {
	mu     sync.RWMutex
	orders map[int64]order.Order
	nextID int64

	// For tracking calls in tests
	SaveCalls []order.Order
	CreateErr error
	GetErr    error
	SaveErr   error

	// BeforeSave runs inside Save before the version check, without the lock held.
	BeforeSave func(o *order.Order)
}

// NewMockOrderStore creates a new MockOrderStore
func NewMockOrderStore() *MockOrderStore {
	return &MockOrderStore{
		orders: make(map[int64]order.Order),
	}
}

// Create assigns an id and version 1
func (m *MockOrderStore) Create(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.nextID++
	o.ID = m.nextID
	o.Version = 1
	m.orders[o.ID] = *o
	return nil
}

// Get returns a copy of the stored order
func (m *MockOrderStore) Get(_ context.Context, orderID int64) (*order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.GetErr != nil {
		return nil, m.GetErr
	}
	o, ok := m.orders[orderID]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return &o, nil
}

// Save applies the optimistic version check
func (m *MockOrderStore) Save(_ context.Context, o *order.Order) error {
	if m.BeforeSave != nil {
		m.BeforeSave(o)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveCalls = append(m.SaveCalls, *o)
	if m.SaveErr != nil {
		return m.SaveErr
	}
	current, ok := m.orders[o.ID]
	if !ok {
		return order.ErrOrderNotFound
	}
	if current.Version != o.Version {
		return order.ErrConflict
	}
	o.Version++
	m.orders[o.ID] = *o
	return nil
}

func (m *MockOrderStore) ListByBuyer(_ context.Context, buyerID int64) ([]order.Order, error) {
	return m.list(func(o order.Order) bool { return o.BuyerID == buyerID }), nil
}

func (m *MockOrderStore) ListBySeller(_ context.Context, sellerID int64) ([]order.Order, error) {
	return m.list(func(o order.Order) bool { return o.SellerID == sellerID }), nil
}

func (m *MockOrderStore) list(match func(order.Order) bool) []order.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []order.Order
	for _, o := range m.orders {
		if match(o) {
			out = append(out, o)
		}
	}
	slices.SortFunc(out, func(a, b order.Order) int { return int(b.ID - a.ID) })
	return out
}

// Put stores an order as-is for test setup
func (m *MockOrderStore) Put(o order.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.Version == 0 {
		o.Version = 1
	}
	m.orders[o.ID] = o
	m.nextID = max(m.nextID, o.ID)
}

// Snapshot returns the stored copy of an order
func (m *MockOrderStore) Snapshot(orderID int64) (order.Order, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[orderID]
	return o, ok
}
