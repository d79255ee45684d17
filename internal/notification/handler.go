package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/bizmarket/internal/domain/order"
	"github.com/example/bizmarket/internal/email"
)

// Recipient is the contact data needed to email a user.
type Recipient struct {
	ID    int64
	Name  string
	Email string
}

type Directory interface {
	GetRecipient(ctx context.Context, userID int64) (*Recipient, error)
}

type Mailer interface {
	SendStatusUpdate(to string, update email.StatusUpdate) error
	SendNotification(to string, msg email.Message) error
}

// Handler emails users about order activity. It is fed by the Kafka consumer
// and by the Lambda stream processor.
type Handler struct {
	mailer    Mailer
	directory Directory
	logger    *zap.Logger
}

func NewHandler(mailer Mailer, directory Directory, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		mailer:    mailer,
		directory: directory,
		logger:    logger.Named("notifier"),
	}
}

// HandleEvent processes an order event from Kafka.
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event order.StatusChanged
	if err := json.Unmarshal(value, &event); err != nil {
		h.logger.Error("unmarshal event", zap.ByteString("key", key), zap.Error(err))
		return err
	}

	switch event.EventType {
	case order.EventOrderPlaced, order.EventOrderStatusChanged:
		return h.handleStatusChanged(ctx, event)
	}
	return nil
}

func (h *Handler) handleStatusChanged(ctx context.Context, e order.StatusChanged) error {
	log := h.logger.With(zap.Int64("order_id", e.OrderID), zap.Int64("recipient_id", e.RecipientID))

	recipient, ok, err := h.lookup(ctx, e.RecipientID)
	if err != nil || !ok {
		return err
	}

	update := email.StatusUpdate{
		OrderID:        e.OrderID,
		RecipientName:  recipient.Name,
		ProductName:    e.ProductName,
		Quantity:       e.Quantity,
		TotalPrice:     e.TotalPrice,
		PreviousStatus: string(e.PreviousState),
		Status:         string(e.Status),
	}
	if err := h.mailer.SendStatusUpdate(recipient.Email, update); err != nil {
		log.Error("send status email failed", zap.Error(err))
		return err
	}

	log.Info("status email sent", zap.String("status", string(e.Status)))
	return nil
}

// HandleNotification emails an inbox entry to its recipient.
func (h *Handler) HandleNotification(ctx context.Context, n Notification) error {
	log := h.logger.With(zap.String("notification_id", n.ID), zap.Int64("recipient_id", n.RecipientID))

	recipient, ok, err := h.lookup(ctx, n.RecipientID)
	if err != nil || !ok {
		return err
	}

	msg := email.Message{
		RecipientName: recipient.Name,
		Title:         n.Title,
		Body:          n.Message,
		Link:          n.Link,
	}
	if err := h.mailer.SendNotification(recipient.Email, msg); err != nil {
		log.Error("send notification email failed", zap.Error(err))
		return err
	}

	log.Info("notification email sent")
	return nil
}

// lookup returns ok=false without error for unknown users so the message is
// not redelivered forever.
func (h *Handler) lookup(ctx context.Context, userID int64) (*Recipient, bool, error) {
	recipient, err := h.directory.GetRecipient(ctx, userID)
	if errors.Is(err, ErrRecipientNotFound) {
		h.logger.Warn("recipient not found", zap.Int64("recipient_id", userID))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("look up recipient %d: %w", userID, err)
	}
	if recipient.Email == "" {
		h.logger.Warn("recipient has no email address", zap.Int64("recipient_id", userID))
		return nil, false, nil
	}
	return recipient, true, nil
}
