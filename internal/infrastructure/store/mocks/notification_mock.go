package mocks

import (
	"context"
	"sync"

	"github.com/example/bizmarket/internal/domain/inventory"
	"github.com/example/bizmarket/internal/notification"
)

// MockNotificationStore is an in-memory notification.Store for testing
type MockNotificationStore struct {
	mu    sync.RWMutex
	items []notification.Notification

	CreateErr error
}

func NewMockNotificationStore() *MockNotificationStore {
	return &MockNotificationStore{}
}

func (m *MockNotificationStore) Create(_ context.Context, n *notification.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.items = append(m.items, *n)
	return nil
}

func (m *MockNotificationStore) ListForUser(_ context.Context, recipientID int64, unreadOnly bool, limit int) ([]notification.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []notification.Notification
	for i := len(m.items) - 1; i >= 0 && len(out) < limit; i-- {
		n := m.items[i]
		if n.RecipientID != recipientID || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (m *MockNotificationStore) MarkRead(_ context.Context, recipientID int64, notificationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.items {
		if m.items[i].ID == notificationID && m.items[i].RecipientID == recipientID {
			m.items[i].IsRead = true
			return nil
		}
	}
	return notification.ErrNotFound
}

// All returns every stored notification in insertion order
func (m *MockNotificationStore) All() []notification.Notification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]notification.Notification(nil), m.items...)
}

// PushCall records parameters passed to Push
type PushCall struct {
	RecipientID int64
	Payload     any
}

// MockPusher records pushes; it satisfies both notification.Pusher and inventory.Pusher
type MockPusher struct {
	mu      sync.Mutex
	Calls   []PushCall
	PushErr error
}

var (
	_ notification.Pusher = (*MockPusher)(nil)
	_ inventory.Pusher    = (*MockPusher)(nil)
)

func (m *MockPusher) Push(_ context.Context, recipientID int64, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, PushCall{RecipientID: recipientID, Payload: payload})
	return m.PushErr
}

func (m *MockPusher) PushCalls() []PushCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PushCall(nil), m.Calls...)
}
