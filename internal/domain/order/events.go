package order

import "time"

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
)

// StatusChanged is published after a transition has been saved.
type StatusChanged struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	OrderID       int64     `json:"order_id"`
	BuyerID       int64     `json:"buyer_id"`
	SellerID      int64     `json:"seller_id"`
	ActorID       int64     `json:"actor_id"`
	RecipientID   int64     `json:"recipient_id"`
	ProductName   string    `json:"product_name"`
	Quantity      int       `json:"quantity"`
	TotalPrice    string    `json:"total_price"`
	PreviousState Status    `json:"previous_status"`
	Status        Status    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Name is carried as the event_type header so consumers can route without
// decoding the body.
func (e StatusChanged) Name() string { return e.EventType }
