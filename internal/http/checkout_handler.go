package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/service"
)

type CheckoutHandler struct {
	sessions SessionProvider
	timeout  time.Duration
}

func NewCheckoutHandler(sessions SessionProvider, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		sessions: sessions,
		timeout:  timeout,
	}
}

type CheckoutResponseDTO struct {
	Status       domain.CheckoutStatus   `json:"status"`
	PaymentState domain.PaymentState     `json:"payment_state"`
	Session      *domain.CheckoutSession `json:"session,omitempty"`
	Error        string                  `json:"error,omitempty"`
	Totals       domain.Totals           `json:"totals"`
	Terminal     bool                    `json:"terminal"`
}

// GET /api/v1/checkout
func (h *CheckoutHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	us, ok := resolveSession(w, r, h.sessions)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, checkoutResponse(us, us.Checkout.Session()))
}

// POST /api/v1/checkout
func (h *CheckoutHandler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	us, ok := resolveSession(w, r, h.sessions)
	if !ok {
		return
	}

	session, err := us.Checkout.Checkout(ctx)
	if err != nil {
		if session == nil {
			handleServiceError(w, r, err)
			return
		}
		status, resp := errorResponse(r, err)
		body := checkoutResponse(us, session)
		resp.Checkout = &body
		respondJSON(w, status, resp)
		return
	}

	respondJSON(w, http.StatusCreated, checkoutResponse(us, session))
}

// POST /api/v1/checkout/payment
func (h *CheckoutHandler) Pay(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	us, ok := resolveSession(w, r, h.sessions)
	if !ok {
		return
	}

	var form domain.PaymentForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	session, err := us.Checkout.Pay(ctx, form)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, checkoutResponse(us, session))
}

// DELETE /api/v1/checkout
func (h *CheckoutHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	us, ok := resolveSession(w, r, h.sessions)
	if !ok {
		return
	}

	if err := us.Checkout.Abandon(); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func checkoutResponse(us *service.UserSession, session *domain.CheckoutSession) CheckoutResponseDTO {
	resp := CheckoutResponseDTO{
		Status:       us.Checkout.Status(),
		PaymentState: us.Checkout.PaymentState(),
		Session:      session,
		Totals:       us.Checkout.Totals(),
	}
	resp.Terminal = resp.Status.IsTerminal()
	if session != nil {
		resp.Error = session.ErrorMessage()
	}
	return resp
}
