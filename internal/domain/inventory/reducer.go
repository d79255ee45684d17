package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Sale is the part of a received order that inventory needs.
type Sale struct {
	OrderID    int64
	ProductID  int64
	BuyerID    int64
	SellerID   int64
	Quantity   int
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
}

// MovementPushed is the payload sent to the seller's live channel.
type MovementPushed struct {
	Type     string      `json:"type"`
	Movement MovementLog `json:"movement"`
}

type Reducer struct {
	store  Store
	pusher Pusher
	logger *zap.Logger
	now    func() time.Time
}

func NewReducer(store Store, pusher Pusher, logger *zap.Logger) *Reducer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reducer{
		store:  store,
		pusher: pusher,
		logger: logger.Named("inventory"),
		now:    time.Now,
	}
}

// WithClock overrides the time source.
func (r *Reducer) WithClock(now func() time.Time) *Reducer {
	r.now = now
	return r
}

// ReduceInventory turns a received order into a stock decrement, one sale
// ledger entry and one movement log row. Stock is clamped at zero.
// Running it twice for the same order is a no-op.
func (r *Reducer) ReduceInventory(ctx context.Context, sale Sale) error {
	log := r.logger.With(zap.Int64("order_id", sale.OrderID), zap.Int64("product_id", sale.ProductID))
	now := r.now()

	entry := &SaleLedgerEntry{
		OrderID:    sale.OrderID,
		ProductID:  sale.ProductID,
		BuyerID:    sale.BuyerID,
		SellerID:   sale.SellerID,
		Quantity:   sale.Quantity,
		UnitPrice:  sale.UnitPrice,
		TotalPrice: sale.TotalPrice,
		CreatedAt:  now,
	}
	movement := &MovementLog{
		ProductID: sale.ProductID,
		SellerID:  sale.SellerID,
		Type:      MovementSale,
		Reference: fmt.Sprintf("Order #%d", sale.OrderID),
		CreatedAt: now,
	}

	err := r.store.RecordSale(ctx, entry, movement)
	switch {
	case errors.Is(err, ErrProductNotFound):
		log.Warn("product missing for received order, inventory left untouched")
		return nil
	case errors.Is(err, ErrDuplicateSale):
		log.Info("sale already recorded for order, skipping")
		return nil
	case err != nil:
		return fmt.Errorf("save inventory for order %d: %w", sale.OrderID, err)
	}

	if movement.QuantityBefore < sale.Quantity {
		log.Warn("stock clamped at zero",
			zap.Int("quantity_before", movement.QuantityBefore),
			zap.Int("quantity_ordered", sale.Quantity))
	}

	if r.pusher != nil {
		payload := MovementPushed{Type: "inventory.movement", Movement: *movement}
		if err := r.pusher.Push(ctx, sale.SellerID, payload); err != nil {
			log.Warn("push inventory movement failed", zap.Error(err))
		}
	}

	return nil
}
