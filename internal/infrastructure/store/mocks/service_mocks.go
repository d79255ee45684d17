package mocks

import (
	"context"
	"sync"

	"github.com/example/bizmarket/internal/domain/inventory"
)

// NotifyCall records parameters passed to Notify
type NotifyCall struct {
	RecipientID int64
	Title       string
	Message     string
	Link        string
	Category    string
}

// MockNotifier records notifications instead of persisting them
type MockNotifier struct {
	mu        sync.Mutex
	Calls     []NotifyCall
	NotifyErr error
}

func (m *MockNotifier) Notify(_ context.Context, recipientID int64, title, message, link, category string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, NotifyCall{
		RecipientID: recipientID,
		Title:       title,
		Message:     message,
		Link:        link,
		Category:    category,
	})
	return m.NotifyErr
}

func (m *MockNotifier) NotifyCalls() []NotifyCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]NotifyCall(nil), m.Calls...)
}

// PublishCall records parameters passed to Publish
type PublishCall struct {
	Key   string
	Event any
}

// MockPublisher stands in for the Kafka producer
type MockPublisher struct {
	mu         sync.Mutex
	Calls      []PublishCall
	PublishErr error
}

func (m *MockPublisher) Publish(_ context.Context, key string, event any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, PublishCall{Key: key, Event: event})
	return m.PublishErr
}

func (m *MockPublisher) PublishCalls() []PublishCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PublishCall(nil), m.Calls...)
}

// MockReducer records sales handed to inventory
type MockReducer struct {
	mu        sync.Mutex
	Sales     []inventory.Sale
	ReduceErr error
}

func (m *MockReducer) ReduceInventory(_ context.Context, sale inventory.Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sales = append(m.Sales, sale)
	return m.ReduceErr
}

func (m *MockReducer) Calls() []inventory.Sale {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]inventory.Sale(nil), m.Sales...)
}
