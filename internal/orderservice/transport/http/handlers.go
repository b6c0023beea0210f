// Package http is the minimal external-collaborator surface of
// SPEC_FULL.md §4.12: just enough of spec.md §6's HTTP contract for
// the Order service binary to be runnable end to end.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stepangreenberg/order-processor/internal/orderservice/application"
	"github.com/stepangreenberg/order-processor/internal/orderservice/domain"
	ordercache "github.com/stepangreenberg/order-processor/internal/orderservice/infrastructure/cache"
	"github.com/stepangreenberg/order-processor/internal/platform/broker"
)

type orderView struct {
	OrderID     string  `json:"order_id"`
	CustomerID  string  `json:"customer_id"`
	Status      string  `json:"status"`
	TotalAmount float64 `json:"total_amount"`
	Version     int     `json:"version"`
	FailReason  string  `json:"fail_reason,omitempty"`
}

func toView(o *domain.Order) orderView {
	return orderView{
		OrderID:     o.OrderID,
		CustomerID:  o.CustomerID,
		Status:      string(o.Status),
		TotalAmount: o.Total,
		Version:     o.Version,
		FailReason:  o.FailReason,
	}
}

type Handlers struct {
	CreateOrder *application.CreateOrderUseCase
	Repo        application.Repository
	Pool        *pgxpool.Pool
	BrokerConn  *broker.Conn
	Cache       *ordercache.OrderCache // optional
}

type createOrderRequest struct {
	OrderID    string `json:"order_id"`
	CustomerID string `json:"customer_id"`
	Items      []struct {
		SKU      string  `json:"sku"`
		Quantity int     `json:"quantity"`
		Price    float64 `json:"price"`
	} `json:"items"`
}

func (h *Handlers) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid JSON body")
		return
	}

	items := make([]domain.Item, len(req.Items))
	for i, it := range req.Items {
		items[i] = domain.Item{SKU: it.SKU, Quantity: it.Quantity, Price: it.Price}
	}

	before, _, err := h.Repo.GetByID(r.Context(), h.Pool, req.OrderID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	existedBefore := before != nil

	o, err := h.CreateOrder.Execute(r.Context(), application.CreateOrderInput{
		OrderID:    req.OrderID,
		CustomerID: req.CustomerID,
		Items:      items,
	})
	if err != nil {
		var appErr *domain.AppError
		if errors.As(err, &appErr) && appErr.Code == domain.CodeValidation {
			writeError(w, http.StatusUnprocessableEntity, appErr.Message)
			return
		}
		writeError(w, http.StatusInternalServerError, "create order failed")
		return
	}

	status := http.StatusCreated
	if existedBefore {
		status = http.StatusOK
	}
	writeJSON(w, status, toView(o))
}

func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")

	if h.Cache != nil {
		if o, hit := h.Cache.Get(r.Context(), orderID); hit {
			writeJSON(w, http.StatusOK, toView(o))
			return
		}
	}

	o, found, err := h.Repo.GetByID(r.Context(), h.Pool, orderID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if h.Cache != nil {
		h.Cache.Set(r.Context(), o)
	}
	writeJSON(w, http.StatusOK, toView(o))
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Pool.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	if h.BrokerConn == nil || h.BrokerConn.Connection.IsClosed() {
		writeError(w, http.StatusServiceUnavailable, "broker unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
