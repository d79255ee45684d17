package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/bizmarket/internal/auth"
	"github.com/example/bizmarket/internal/auth/authtest"
	"github.com/example/bizmarket/internal/domain/inventory"
	"github.com/example/bizmarket/internal/domain/order"
	"github.com/example/bizmarket/internal/infrastructure/store/mocks"
	"github.com/example/bizmarket/internal/notification"
)

const (
	buyerID    int64 = 10
	sellerID   int64 = 20
	strangerID int64 = 30
	productID  int64 = 100
)

type fakeSubscriber struct {
	payloads [][]byte
	err      error
	closed   bool
}

func (s *fakeSubscriber) Subscribe(_ context.Context, _ int64) (<-chan []byte, func() error, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	ch := make(chan []byte, len(s.payloads))
	for _, p := range s.payloads {
		ch <- p
	}
	close(ch)
	return ch, func() error { s.closed = true; return nil }, nil
}

const testSecret = "test-secret-key-0123456789abcdef"

type testServer struct {
	router     http.Handler
	orders     *mocks.MockOrderStore
	inv        *mocks.MockInventoryStore
	inbox      *mocks.MockNotificationStore
	subscriber *fakeSubscriber
	handlers   *Handlers
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	s := &testServer{
		orders:     mocks.NewMockOrderStore(),
		inv:        mocks.NewMockInventoryStore(),
		inbox:      mocks.NewMockNotificationStore(),
		subscriber: &fakeSubscriber{},
	}
	s.inv.PutProduct(inventory.Product{
		ID:        productID,
		SellerID:  sellerID,
		Name:      "Rice Flour 5kg",
		UnitPrice: decimal.RequireFromString("7.25"),
		Stock:     10,
		Version:   1,
	})

	notifier := notification.NewNotifier(s.inbox, nil, nil)
	reducer := inventory.NewReducer(s.inv, nil, nil)
	svc := order.NewService(s.orders, s.inv, reducer, notifier)
	s.handlers = NewHandlers(svc, reducer, notifier, s.subscriber, nil)
	s.router = NewRouter(s.handlers, auth.NewJWTService(testSecret), nil)
	return s
}

func (s *testServer) do(t *testing.T, userID int64, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != 0 {
		token := authtest.Sign(t, testSecret, authtest.Claims{UserID: userID, Email: "user@example.com", Role: auth.RoleCustomer})
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) seed(status order.Status) {
	s.orders.Put(order.Order{
		ID:          1,
		BuyerID:     buyerID,
		SellerID:    sellerID,
		ProductID:   productID,
		ProductName: "Rice Flour 5kg",
		Quantity:    4,
		UnitPrice:   decimal.RequireFromString("7.25"),
		TotalPrice:  decimal.RequireFromString("29"),
		Status:      status,
		Version:     1,
	})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body["error"]
}

func TestPlaceOrder(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, buyerID, http.MethodPost, "/orders", map[string]any{"product_id": productID, "quantity": 3})
	require.Equal(t, http.StatusCreated, rec.Code)

	var got order.Order
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, buyerID, got.BuyerID)
	assert.Equal(t, sellerID, got.SellerID)
	assert.Equal(t, order.StatusPending, got.Status)
	assert.True(t, decimal.RequireFromString("21.75").Equal(got.TotalPrice))
}

func TestPlaceOrder_Rejections(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		userID int64
		body   any
		want   int
	}{
		{"zero quantity", buyerID, map[string]any{"product_id": productID, "quantity": 0}, http.StatusBadRequest},
		{"own product", sellerID, map[string]any{"product_id": productID, "quantity": 1}, http.StatusBadRequest},
		{"unknown product", buyerID, map[string]any{"product_id": 999, "quantity": 1}, http.StatusNotFound},
		{"malformed body", buyerID, "not an object", http.StatusBadRequest},
		{"anonymous", 0, map[string]any{"product_id": productID, "quantity": 1}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.userID, http.MethodPost, "/orders", tt.body)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestUpdateOrderStatus_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  order.Status
		userID  int64
		path    string
		body    any
		saveErr error
		want    int
	}{
		{"seller accepts", order.StatusPending, sellerID, "/orders/1/status", map[string]string{"status": "Accepted"}, nil, http.StatusOK},
		{"status is case insensitive", order.StatusPending, sellerID, "/orders/1/status", map[string]string{"status": "accepted"}, nil, http.StatusOK},
		{"buyer cannot accept", order.StatusPending, buyerID, "/orders/1/status", map[string]string{"status": "Accepted"}, nil, http.StatusForbidden},
		{"stranger", order.StatusPending, strangerID, "/orders/1/status", map[string]string{"status": "Accepted"}, nil, http.StatusForbidden},
		{"skipping ahead", order.StatusPending, sellerID, "/orders/1/status", map[string]string{"status": "Shipping"}, nil, http.StatusUnprocessableEntity},
		{"unknown status", order.StatusPending, sellerID, "/orders/1/status", map[string]string{"status": "Teleported"}, nil, http.StatusBadRequest},
		{"missing order", order.StatusPending, sellerID, "/orders/2/status", map[string]string{"status": "Accepted"}, nil, http.StatusNotFound},
		{"bad id", order.StatusPending, sellerID, "/orders/abc/status", map[string]string{"status": "Accepted"}, nil, http.StatusBadRequest},
		{"concurrent update", order.StatusPending, sellerID, "/orders/1/status", map[string]string{"status": "Accepted"}, order.ErrConflict, http.StatusConflict},
		{"storage failure", order.StatusPending, sellerID, "/orders/1/status", map[string]string{"status": "Accepted"}, errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.seed(tt.status)
			s.orders.SaveErr = tt.saveErr

			rec := s.do(t, tt.userID, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusInternalServerError {
				assert.Equal(t, "internal server error", decodeError(t, rec))
			}
		})
	}
}

func TestReceivedReducesStockThroughAPI(t *testing.T) {
	s := newTestServer(t)
	s.seed(order.StatusDelivered)

	rec := s.do(t, buyerID, http.MethodPost, "/orders/1/status", map[string]string{"status": "Received"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 6, s.inv.Product(productID).Stock)

	rec = s.do(t, sellerID, http.MethodPost, "/orders/1/inventory/reapply", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 6, s.inv.Product(productID).Stock)
	assert.Len(t, s.inv.Ledger(), 1)

	rec = s.do(t, buyerID, http.MethodPost, "/orders/1/inventory/reapply", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOrderResponsesCarryAllowedNext(t *testing.T) {
	s := newTestServer(t)
	s.seed(order.StatusPending)

	var got struct {
		Status      order.Status   `json:"status"`
		AllowedNext []order.Status `json:"allowed_next"`
	}
	rec := s.do(t, buyerID, http.MethodGet, "/orders/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, order.StatusPending, got.Status)
	assert.Equal(t, []order.Status{order.StatusAccepted, order.StatusCancelled, order.StatusRejected}, got.AllowedNext)

	rec = s.do(t, sellerID, http.MethodPost, "/orders/1/status", map[string]string{"status": "Rejected"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"allowed_next":[]`)
}

func TestListProductMovements(t *testing.T) {
	s := newTestServer(t)
	s.seed(order.StatusDelivered)
	require.Equal(t, http.StatusOK, s.do(t, buyerID, http.MethodPost, "/orders/1/status", map[string]string{"status": "Received"}).Code)

	rec := s.do(t, sellerID, http.MethodGet, "/products/100/movements", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var movements []inventory.MovementLog
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&movements))
	require.Len(t, movements, 1)
	assert.Equal(t, 10, movements[0].QuantityBefore)
	assert.Equal(t, 6, movements[0].QuantityAfter)
	assert.Equal(t, "Order #1", movements[0].Reference)

	tests := []struct {
		name   string
		userID int64
		path   string
		want   int
	}{
		{"buyer", buyerID, "/products/100/movements", http.StatusForbidden},
		{"stranger", strangerID, "/products/100/movements", http.StatusForbidden},
		{"unknown product", sellerID, "/products/999/movements", http.StatusNotFound},
		{"bad id", sellerID, "/products/abc/movements", http.StatusBadRequest},
		{"bad limit", sellerID, "/products/100/movements?limit=-1", http.StatusBadRequest},
		{"with limit", sellerID, "/products/100/movements?limit=5", http.StatusOK},
		{"anonymous", 0, "/products/100/movements", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.do(t, tt.userID, http.MethodGet, tt.path, nil).Code)
		})
	}
}

func TestListProductMovements_EmptyIsArray(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, sellerID, http.MethodGet, "/products/100/movements", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestCancelOrder(t *testing.T) {
	s := newTestServer(t)
	s.seed(order.StatusAccepted)

	rec := s.do(t, strangerID, http.MethodPost, "/orders/1/cancel", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, buyerID, http.MethodPost, "/orders/1/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got order.Order
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, order.StatusCancelled, got.Status)

	rec = s.do(t, sellerID, http.MethodPost, "/orders/1/cancel", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGetAndListOrders(t *testing.T) {
	s := newTestServer(t)
	s.seed(order.StatusPending)

	assert.Equal(t, http.StatusOK, s.do(t, buyerID, http.MethodGet, "/orders/1", nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, strangerID, http.MethodGet, "/orders/1", nil).Code)

	var list []order.Order
	rec := s.do(t, sellerID, http.MethodGet, "/orders?as=seller", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Len(t, list, 1)

	rec = s.do(t, sellerID, http.MethodGet, "/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, s.do(t, sellerID, http.MethodGet, "/orders?as=admin", nil).Code)
}

func TestNotificationsEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.seed(order.StatusPending)

	require.Equal(t, http.StatusOK, s.do(t, sellerID, http.MethodPost, "/orders/1/status", map[string]string{"status": "Accepted"}).Code)

	var inbox []notification.Notification
	rec := s.do(t, buyerID, http.MethodGet, "/notifications?unread=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&inbox))
	require.Len(t, inbox, 1)
	assert.Equal(t, "/orders/1", inbox[0].Link)

	assert.Equal(t, http.StatusNotFound, s.do(t, sellerID, http.MethodPost, "/notifications/"+inbox[0].ID+"/read", nil).Code)
	assert.Equal(t, http.StatusNoContent, s.do(t, buyerID, http.MethodPost, "/notifications/"+inbox[0].ID+"/read", nil).Code)

	rec = s.do(t, buyerID, http.MethodGet, "/notifications?unread=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, s.do(t, buyerID, http.MethodGet, "/notifications?unread=maybe", nil).Code)
}

func TestStreamNotifications(t *testing.T) {
	s := newTestServer(t)
	s.subscriber.payloads = [][]byte{[]byte(`{"type":"notification"}`)}

	rec := s.do(t, buyerID, http.MethodGet, "/notifications/stream", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.True(t, strings.Contains(rec.Body.String(), "data: {\"type\":\"notification\"}\n\n"))
	assert.True(t, s.subscriber.closed)
}

func TestStreamNotifications_SubscribeFailure(t *testing.T) {
	s := newTestServer(t)
	s.subscriber.err = errors.New("redis: connection refused")

	rec := s.do(t, buyerID, http.MethodGet, "/notifications/stream", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	s.handlers.WithHealthCheck("postgres", func(context.Context) error { return nil })

	rec := s.do(t, 0, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	s.handlers.WithHealthCheck("redis", func(context.Context) error { return errors.New("dial tcp: refused") })
	rec = s.do(t, 0, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis")
}
