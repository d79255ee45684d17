package order

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrForbidden         = errors.New("user is not allowed to perform this action on the order")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrConflict          = errors.New("order was modified concurrently")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrSelfOrder         = errors.New("buyer cannot order their own product")
)

type Order struct {
	ID          int64           `json:"id"`
	BuyerID     int64           `json:"buyer_id"`
	SellerID    int64           `json:"seller_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	PreparedAt  *time.Time      `json:"prepared_at,omitempty"`
	ShippedAt   *time.Time      `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time      `json:"delivered_at,omitempty"`
	ReceivedAt  *time.Time      `json:"received_at,omitempty"`

	// Version is the optimistic concurrency token. Stores bump it on every save.
	Version int `json:"version"`
}

// IsParty reports whether the user is the buyer or the seller of the order.
func (o *Order) IsParty(userID int64) bool {
	return userID == o.BuyerID || userID == o.SellerID
}

// Counterparty returns the party that did not act.
func (o *Order) Counterparty(actingUserID int64) int64 {
	if actingUserID == o.SellerID {
		return o.BuyerID
	}
	return o.SellerID
}

// enterEffect describes what happens when an order enters a status.
type enterEffect struct {
	timestamp       func(o *Order) **time.Time
	reduceInventory bool
}

var enterEffects = map[Status]enterEffect{
	StatusPreparing: {timestamp: func(o *Order) **time.Time { return &o.PreparedAt }},
	StatusShipping:  {timestamp: func(o *Order) **time.Time { return &o.ShippedAt }},
	StatusDelivered: {timestamp: func(o *Order) **time.Time { return &o.DeliveredAt }},
	StatusReceived: {
		timestamp:       func(o *Order) **time.Time { return &o.ReceivedAt },
		reduceInventory: true,
	},
}

// enter moves the order into status s at now and applies the on-enter effect.
// It returns true when the caller must reduce inventory.
func (o *Order) enter(s Status, now time.Time) bool {
	o.Status = s
	o.UpdatedAt = now

	effect, ok := enterEffects[s]
	if !ok {
		return false
	}
	if effect.timestamp != nil {
		if ts := effect.timestamp(o); *ts == nil {
			t := now
			*ts = &t
		}
	}
	return effect.reduceInventory
}
