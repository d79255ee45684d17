package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrDuplicateSale   = errors.New("sale already recorded for order")
	ErrForbidden       = errors.New("only the product's seller may view its inventory")
)

type MovementType string

const (
	MovementSale MovementType = "Sale"
)

type Product struct {
	ID        int64           `json:"id"`
	SellerID  int64           `json:"seller_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Stock     int             `json:"stock"`
	Version   int             `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// SaleLedgerEntry is written once per received order and never changed.
type SaleLedgerEntry struct {
	ID         int64           `json:"id"`
	OrderID    int64           `json:"order_id"`
	ProductID  int64           `json:"product_id"`
	BuyerID    int64           `json:"buyer_id"`
	SellerID   int64           `json:"seller_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
}

// MovementLog is an append-only audit row of a stock change.
type MovementLog struct {
	ID             int64        `json:"id"`
	ProductID      int64        `json:"product_id"`
	SellerID       int64        `json:"seller_id"`
	QuantityBefore int          `json:"quantity_before"`
	QuantityAfter  int          `json:"quantity_after"`
	Type           MovementType `json:"movement_type"`
	Reference      string       `json:"reference"`
	CreatedAt      time.Time    `json:"created_at"`
}

// Store persists products and their sale audit trail.
type Store interface {
	GetProduct(ctx context.Context, productID int64) (*Product, error)

	// RecordSale locks the product row, decrements its stock by
	// entry.Quantity clamped at zero, and writes both audit rows in one
	// transaction. It fills movement.QuantityBefore and QuantityAfter from
	// the locked row. It returns ErrProductNotFound when the product is gone
	// and ErrDuplicateSale when the order already has a ledger entry.
	RecordSale(ctx context.Context, entry *SaleLedgerEntry, movement *MovementLog) error

	ListMovements(ctx context.Context, productID int64, limit int) ([]MovementLog, error)
}

// Pusher delivers a payload to a user's live channel.
type Pusher interface {
	Push(ctx context.Context, recipientID int64, payload any) error
}
