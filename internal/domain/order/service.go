package order

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/example/bizmarket/internal/domain/inventory"
)

const NotificationCategory = "order"

// Store persists orders.
type Store interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, orderID int64) (*Order, error)

	// Save writes o only if the stored version still equals o.Version, then
	// bumps o.Version. A mismatch returns ErrConflict.
	Save(ctx context.Context, o *Order) error

	ListByBuyer(ctx context.Context, buyerID int64) ([]Order, error)
	ListBySeller(ctx context.Context, sellerID int64) ([]Order, error)
}

// ProductReader resolves the product an order is placed for.
type ProductReader interface {
	GetProduct(ctx context.Context, productID int64) (*inventory.Product, error)
}

type InventoryReducer interface {
	ReduceInventory(ctx context.Context, sale inventory.Sale) error
}

type Notifier interface {
	Notify(ctx context.Context, recipientID int64, title, message, link, category string) error
}

// EventPublisher matches the Kafka producer.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type PlaceOrder struct {
	BuyerID   int64 `json:"buyer_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type Service struct {
	orders    Store
	products  ProductReader
	reducer   InventoryReducer
	notifier  Notifier
	publisher EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

type Option func(*Service)

func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("order")
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(orders Store, products ProductReader, reducer InventoryReducer, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		orders:   orders,
		products: products,
		reducer:  reducer,
		notifier: notifier,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Place creates a Pending order for the buyer, snapshotting the product's
// name and price.
func (s *Service) Place(ctx context.Context, cmd PlaceOrder) (*Order, error) {
	if cmd.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.products.GetProduct(ctx, cmd.ProductID)
	if err != nil {
		return nil, err
	}
	if product.SellerID == cmd.BuyerID {
		return nil, ErrSelfOrder
	}

	now := s.now()
	o := &Order{
		BuyerID:     cmd.BuyerID,
		SellerID:    product.SellerID,
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    cmd.Quantity,
		UnitPrice:   product.UnitPrice,
		TotalPrice:  product.UnitPrice.Mul(decimal.NewFromInt(int64(cmd.Quantity))),
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.notify(ctx, o, o.SellerID, "New order received",
		fmt.Sprintf("You have a new order for %d x %s.", o.Quantity, o.ProductName))
	s.publish(ctx, o, EventOrderPlaced, "", o.BuyerID)

	return o, nil
}

// Get returns the order if the user is one of its parties.
func (s *Service) Get(ctx context.Context, orderID, actingUserID int64) (*Order, error) {
	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.IsParty(actingUserID) {
		return nil, ErrForbidden
	}
	return o, nil
}

// ListForUser lists the orders the user placed, or received as a seller.
func (s *Service) ListForUser(ctx context.Context, userID int64, asSeller bool) ([]Order, error) {
	if asSeller {
		return s.orders.ListBySeller(ctx, userID)
	}
	return s.orders.ListByBuyer(ctx, userID)
}

// RequestTransition moves an order to the requested status on behalf of the
// acting user. Inventory and notification failures are logged and do not fail
// the call; the saved status is the outcome.
func (s *Service) RequestTransition(ctx context.Context, orderID int64, requested Status, actingUserID int64) (*Order, error) {
	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeTransition(o, requested, actingUserID); err != nil {
		return nil, err
	}
	return s.apply(ctx, o, requested, actingUserID)
}

// Cancel cancels the order. Either party may cancel up to Preparing; after
// that only the seller gets past authorization.
func (s *Service) Cancel(ctx context.Context, orderID, actingUserID int64) (*Order, error) {
	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeCancel(o, actingUserID); err != nil {
		return nil, err
	}
	return s.apply(ctx, o, StatusCancelled, actingUserID)
}

// ReapplyInventory re-runs the inventory reduction of a received order. The
// reduction is idempotent per order, so this only repairs a missing write.
func (s *Service) ReapplyInventory(ctx context.Context, orderID, actingUserID int64) error {
	o, err := s.load(ctx, orderID)
	if err != nil {
		return err
	}
	if actingUserID != o.SellerID {
		return ErrForbidden
	}
	if o.Status != StatusReceived {
		return fmt.Errorf("%w: order %d is %s, not %s", ErrInvalidTransition, o.ID, o.Status, StatusReceived)
	}
	return s.reducer.ReduceInventory(ctx, saleOf(o))
}

func (s *Service) load(ctx context.Context, orderID int64) (*Order, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load order %d: %w", orderID, err)
	}
	return o, nil
}

func (s *Service) apply(ctx context.Context, o *Order, requested Status, actingUserID int64) (*Order, error) {
	if !IsValidTransition(o.Status, requested) {
		return nil, fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, o.Status, requested)
	}

	previous := o.Status
	reduce := o.enter(requested, s.now())

	if err := s.orders.Save(ctx, o); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("save order %d: %w", o.ID, err)
	}

	log := s.logger.With(zap.Int64("order_id", o.ID), zap.Int64("actor_id", actingUserID))
	log.Info("order status changed",
		zap.String("from", string(previous)),
		zap.String("to", string(requested)))

	if reduce {
		if err := s.reducer.ReduceInventory(ctx, saleOf(o)); err != nil {
			log.Error("reduce inventory failed", zap.Int64("product_id", o.ProductID), zap.Error(err))
		}
	}

	recipient := o.Counterparty(actingUserID)
	title, message := statusMessage(o)
	s.notify(ctx, o, recipient, title, message)
	s.publish(ctx, o, EventOrderStatusChanged, previous, actingUserID)

	return o, nil
}

func (s *Service) notify(ctx context.Context, o *Order, recipientID int64, title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, recipientID, title, message, orderLink(o.ID), NotificationCategory); err != nil {
		s.logger.Error("notify failed",
			zap.Int64("order_id", o.ID),
			zap.Int64("recipient_id", recipientID),
			zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, o *Order, eventType string, previous Status, actingUserID int64) {
	if s.publisher == nil {
		return
	}
	event := StatusChanged{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		OrderID:       o.ID,
		BuyerID:       o.BuyerID,
		SellerID:      o.SellerID,
		ActorID:       actingUserID,
		RecipientID:   o.Counterparty(actingUserID),
		ProductName:   o.ProductName,
		Quantity:      o.Quantity,
		TotalPrice:    o.TotalPrice.StringFixed(2),
		PreviousState: previous,
		Status:        o.Status,
		OccurredAt:    o.UpdatedAt,
	}
	if err := s.publisher.Publish(ctx, strconv.FormatInt(o.ID, 10), event); err != nil {
		s.logger.Warn("publish order event failed",
			zap.Int64("order_id", o.ID),
			zap.String("event_type", eventType),
			zap.Error(err))
	}
}

func authorizeTransition(o *Order, requested Status, actingUserID int64) error {
	if requested == StatusReceived {
		if actingUserID != o.BuyerID {
			return ErrForbidden
		}
		// A finished order is left for the transition table to refuse.
		if o.Status != StatusDelivered && !o.Status.IsTerminal() {
			return ErrForbidden
		}
		return nil
	}
	if actingUserID != o.SellerID {
		return ErrForbidden
	}
	return nil
}

func authorizeCancel(o *Order, actingUserID int64) error {
	if o.Status.pastPreparing() {
		if actingUserID != o.SellerID {
			return ErrForbidden
		}
		return nil
	}
	if !o.IsParty(actingUserID) {
		return ErrForbidden
	}
	return nil
}

func saleOf(o *Order) inventory.Sale {
	return inventory.Sale{
		OrderID:    o.ID,
		ProductID:  o.ProductID,
		BuyerID:    o.BuyerID,
		SellerID:   o.SellerID,
		Quantity:   o.Quantity,
		UnitPrice:  o.UnitPrice,
		TotalPrice: o.TotalPrice,
	}
}

func orderLink(orderID int64) string {
	return fmt.Sprintf("/orders/%d", orderID)
}

func statusMessage(o *Order) (string, string) {
	switch o.Status {
	case StatusAccepted:
		return "Order accepted", fmt.Sprintf("Your order #%d for %s has been accepted.", o.ID, o.ProductName)
	case StatusPreparing:
		return "Order being prepared", fmt.Sprintf("Your order #%d for %s is being prepared.", o.ID, o.ProductName)
	case StatusShipping:
		return "Order shipped", fmt.Sprintf("Your order #%d for %s is on its way.", o.ID, o.ProductName)
	case StatusDelivered:
		return "Order delivered", fmt.Sprintf("Your order #%d for %s has been delivered. Please confirm receipt.", o.ID, o.ProductName)
	case StatusReceived:
		return "Order received", fmt.Sprintf("The buyer confirmed receipt of order #%d for %s.", o.ID, o.ProductName)
	case StatusRejected:
		return "Order rejected", fmt.Sprintf("Your order #%d for %s was rejected by the seller.", o.ID, o.ProductName)
	case StatusCancelled:
		return "Order cancelled", fmt.Sprintf("Order #%d for %s has been cancelled.", o.ID, o.ProductName)
	}
	return "Order updated", fmt.Sprintf("Order #%d is now %s.", o.ID, o.Status)
}
