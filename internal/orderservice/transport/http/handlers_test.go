package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepangreenberg/order-processor/internal/orderservice/domain"
	ordertransport "github.com/stepangreenberg/order-processor/internal/orderservice/transport/http"
	"github.com/stepangreenberg/order-processor/internal/platform/uow"
)

type fakeRepo struct {
	orders map[string]*domain.Order
}

func (f *fakeRepo) GetByID(ctx context.Context, q uow.Querier, orderID string) (*domain.Order, bool, error) {
	o, ok := f.orders[orderID]
	return o, ok, nil
}

func (f *fakeRepo) Upsert(ctx context.Context, q uow.Querier, o *domain.Order) error {
	f.orders[o.OrderID] = o
	return nil
}

func TestGet_ReturnsNotFoundForUnknownOrder(t *testing.T) {
	repo := &fakeRepo{orders: map[string]*domain.Order{}}
	h := &ordertransport.Handlers{Repo: repo}

	r := chi.NewRouter()
	r.Get("/orders/{order_id}", h.Get)

	req := httptest.NewRequest(http.MethodGet, "/orders/missing", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGet_ReturnsStoredOrder(t *testing.T) {
	o := domain.NewOrder("order-1", "cust-1", []domain.Item{{SKU: "widget", Quantity: 1, Price: 5}})
	repo := &fakeRepo{orders: map[string]*domain.Order{"order-1": o}}
	h := &ordertransport.Handlers{Repo: repo}

	r := chi.NewRouter()
	r.Get("/orders/{order_id}", h.Get)

	req := httptest.NewRequest(http.MethodGet, "/orders/order-1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "order-1", body["order_id"])
	assert.Equal(t, "pending", body["status"])
}
