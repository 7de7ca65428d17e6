package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type OrderLookup interface {
	GetOrder(ctx context.Context, orderID int64) (domain.Order, error)
}

type PendingLister interface {
	ListPending(ctx context.Context, userID int64) ([]domain.SubmittedOrder, error)
}

type OrdersHandler struct {
	orders  OrderLookup
	pending PendingLister
	timeout time.Duration
}

// NewOrdersHandler builds the handler. pending may be nil when no ledger is configured.
func NewOrdersHandler(orders OrderLookup, pending PendingLister, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		pending: pending,
		timeout: timeout,
	}
}

// GET /api/v1/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if getUserIDFromContext(r.Context()) == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orderID, err := strconv.ParseInt(chi.URLParam(r, "order_id"), 10, 64)
	if err != nil || orderID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a positive integer")
		return
	}

	order, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// GET /api/v1/orders/pending
func (h *OrdersHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}
	if h.pending == nil {
		respondError(w, http.StatusNotImplemented, "ledger_disabled", "order ledger is not configured")
		return
	}

	orders, err := h.pending.ListPending(ctx, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if orders == nil {
		orders = []domain.SubmittedOrder{}
	}
	respondJSON(w, http.StatusOK, orders)
}
