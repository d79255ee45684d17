package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/bizmarket/internal/api/middleware"
	"github.com/example/bizmarket/internal/domain/inventory"
	"github.com/example/bizmarket/internal/domain/order"
	"github.com/example/bizmarket/internal/notification"
)

var errBadRequest = errors.New("bad request")

type OrderService interface {
	Place(ctx context.Context, cmd order.PlaceOrder) (*order.Order, error)
	Get(ctx context.Context, orderID, actingUserID int64) (*order.Order, error)
	ListForUser(ctx context.Context, userID int64, asSeller bool) ([]order.Order, error)
	RequestTransition(ctx context.Context, orderID int64, requested order.Status, actingUserID int64) (*order.Order, error)
	Cancel(ctx context.Context, orderID, actingUserID int64) (*order.Order, error)
	ReapplyInventory(ctx context.Context, orderID, actingUserID int64) error
}

type InventoryService interface {
	Movements(ctx context.Context, productID, actingUserID int64, limit int) ([]inventory.MovementLog, error)
}

type NotificationService interface {
	ListForUser(ctx context.Context, recipientID int64, unreadOnly bool) ([]notification.Notification, error)
	MarkRead(ctx context.Context, recipientID int64, notificationID string) error
}

// Subscriber streams raw push payloads for a user.
type Subscriber interface {
	Subscribe(ctx context.Context, recipientID int64) (<-chan []byte, func() error, error)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Handlers struct {
	orders        OrderService
	inventory     InventoryService
	notifications NotificationService
	subscriber    Subscriber
	checks        map[string]HealthCheck
	logger        *zap.Logger
}

func NewHandlers(orders OrderService, inv InventoryService, notifications NotificationService, subscriber Subscriber, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		orders:        orders,
		inventory:     inv,
		notifications: notifications,
		subscriber:    subscriber,
		checks:        make(map[string]HealthCheck),
		logger:        logger.Named("api"),
	}
}

// WithHealthCheck registers a dependency check for /healthz.
func (h *Handlers) WithHealthCheck(name string, check HealthCheck) *Handlers {
	h.checks[name] = check
	return h
}

// Order Handlers

func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID int64 `json:"product_id"`
		Quantity  int   `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, errBadRequest)
		return
	}

	o, err := h.orders.Place(r.Context(), order.PlaceOrder{
		BuyerID:   middleware.GetUserID(r.Context()),
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, viewOf(o))
}

func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	var asSeller bool
	switch r.URL.Query().Get("as") {
	case "", "buyer":
	case "seller":
		asSeller = true
	default:
		h.respondError(w, r, errBadRequest)
		return
	}

	orders, err := h.orders.ListForUser(r.Context(), middleware.GetUserID(r.Context()), asSeller)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	views := make([]orderView, 0, len(orders))
	for i := range orders {
		views = append(views, viewOf(&orders[i]))
	}
	respondJSON(w, http.StatusOK, views)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	o, err := h.orders.Get(r.Context(), id, middleware.GetUserID(r.Context()))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, viewOf(o))
}

func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, errBadRequest)
		return
	}
	status, ok := order.ParseStatus(req.Status)
	if !ok {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown status " + strconv.Quote(req.Status)})
		return
	}

	o, err := h.orders.RequestTransition(r.Context(), id, status, middleware.GetUserID(r.Context()))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, viewOf(o))
}

func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	o, err := h.orders.Cancel(r.Context(), id, middleware.GetUserID(r.Context()))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, viewOf(o))
}

func (h *Handlers) ReapplyInventory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.orders.ReapplyInventory(r.Context(), id, middleware.GetUserID(r.Context())); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Inventory Handlers

func (h *Handlers) ListProductMovements(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			h.respondError(w, r, errBadRequest)
			return
		}
		limit = v
	}

	movements, err := h.inventory.Movements(r.Context(), id, middleware.GetUserID(r.Context()), limit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if movements == nil {
		movements = []inventory.MovementLog{}
	}
	respondJSON(w, http.StatusOK, movements)
}

// Health

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	failed := map[string]string{}
	for name, check := range h.checks {
		if err := check(r.Context()); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		respondJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "failed": failed})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Helper functions

// orderView is an order as returned to clients, with the statuses it can
// move to next.
type orderView struct {
	*order.Order
	AllowedNext []order.Status `json:"allowed_next"`
}

func viewOf(o *order.Order) orderView {
	return orderView{Order: o, AllowedNext: order.AllowedTransitions(o.Status)}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (h *Handlers) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.respondError(w, r, errBadRequest)
		return 0, false
	}
	return id, true
}

// respondError maps domain errors onto HTTP statuses.
func (h *Handlers) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, inventory.ErrProductNotFound),
		errors.Is(err, notification.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, order.ErrForbidden),
		errors.Is(err, inventory.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, order.ErrInvalidTransition):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, order.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, order.ErrSelfOrder),
		errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		message = "internal server error"
	}
	respondJSON(w, status, map[string]string{"error": message})
}
