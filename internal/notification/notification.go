package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNotFound          = errors.New("notification not found")
	ErrRecipientNotFound = errors.New("recipient not found")
)

const (
	CategoryOrder     = "order"
	CategoryInventory = "inventory"
)

// Notification is a persisted inbox entry.
type Notification struct {
	ID          string    `json:"id"`
	RecipientID int64     `json:"recipient_id"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Link        string    `json:"link"`
	Category    string    `json:"category"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

// Pushed is the payload delivered to a recipient's live channel.
type Pushed struct {
	Type         string       `json:"type"`
	Notification Notification `json:"notification"`
}

type Store interface {
	Create(ctx context.Context, n *Notification) error
	ListForUser(ctx context.Context, recipientID int64, unreadOnly bool, limit int) ([]Notification, error)
	// MarkRead returns ErrNotFound when the notification does not exist or
	// belongs to another recipient.
	MarkRead(ctx context.Context, recipientID int64, notificationID string) error
}

type Pusher interface {
	Push(ctx context.Context, recipientID int64, payload any) error
}

const defaultListLimit = 50

// Notifier writes the inbox row first and then pushes it to the live channel.
// Only the write can fail the caller.
type Notifier struct {
	store  Store
	pusher Pusher
	logger *zap.Logger
	now    func() time.Time
}

func NewNotifier(store Store, pusher Pusher, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		store:  store,
		pusher: pusher,
		logger: logger.Named("notification"),
		now:    time.Now,
	}
}

func (n *Notifier) Notify(ctx context.Context, recipientID int64, title, message, link, category string) error {
	entry := &Notification{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		Title:       title,
		Message:     message,
		Link:        link,
		Category:    category,
		CreatedAt:   n.now().UTC(),
	}
	if err := n.store.Create(ctx, entry); err != nil {
		return fmt.Errorf("persist notification for user %d: %w", recipientID, err)
	}

	if n.pusher == nil {
		return nil
	}
	if err := n.pusher.Push(ctx, recipientID, Pushed{Type: "notification", Notification: *entry}); err != nil {
		n.logger.Warn("push notification failed",
			zap.Int64("recipient_id", recipientID),
			zap.String("notification_id", entry.ID),
			zap.Error(err))
	}
	return nil
}

func (n *Notifier) ListForUser(ctx context.Context, recipientID int64, unreadOnly bool) ([]Notification, error) {
	return n.store.ListForUser(ctx, recipientID, unreadOnly, defaultListLimit)
}

func (n *Notifier) MarkRead(ctx context.Context, recipientID int64, notificationID string) error {
	return n.store.MarkRead(ctx, recipientID, notificationID)
}
