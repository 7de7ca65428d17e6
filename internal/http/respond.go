package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/gateway"
	"github.com/fjod/go_cart/storefront/internal/logger"
)

type ErrorResponse struct {
	Error   string              `json:"error"`
	Code    string              `json:"code,omitempty"`
	Details string              `json:"details,omitempty"`
	Fields  []domain.FieldError `json:"fields,omitempty"`
	// Checkout carries the session state when a checkout step failed part way.
	Checkout *CheckoutResponseDTO `json:"checkout,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Base().Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError converts domain errors to HTTP status codes.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := errorResponse(r, err)
	respondJSON(w, status, resp)
}

func errorResponse(r *http.Request, err error) (int, ErrorResponse) {
	var (
		pv  *domain.PaymentValidationError
		oce *domain.OrderCreationError
		pfe *domain.PaymentFinalizationError
		ne  *domain.NetworkError
		se  *gateway.StatusError
	)

	fail := func(status int, code, message string) (int, ErrorResponse) {
		return status, ErrorResponse{Error: message, Code: code}
	}

	switch {
	case errors.As(err, &pv):
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error:  err.Error(),
			Code:   "payment_validation_failed",
			Fields: pv.Fields,
		}
	case errors.Is(err, domain.ErrNotConfirmed):
		return fail(http.StatusPreconditionRequired, "confirmation_required", "repeat the request with X-Confirm: true")
	case errors.Is(err, domain.ErrOutOfStock):
		return fail(http.StatusConflict, "out_of_stock", err.Error())
	case errors.Is(err, domain.ErrInsufficientStock):
		return fail(http.StatusConflict, "insufficient_stock", err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, domain.ErrInvalidQuantityChange):
		return fail(http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, domain.ErrInvalidPromoCode):
		return fail(http.StatusUnprocessableEntity, "invalid_promo_code", err.Error())
	case errors.Is(err, domain.ErrEmptyCart):
		return fail(http.StatusConflict, "empty_cart", err.Error())
	case errors.Is(err, domain.ErrIllegalTransition):
		return fail(http.StatusConflict, "illegal_transition", err.Error())
	case errors.Is(err, gateway.ErrOrderNotFound):
		return fail(http.StatusNotFound, "not_found", err.Error())
	case errors.As(err, &oce):
		return fail(http.StatusBadGateway, "order_creation_failed", err.Error())
	case errors.As(err, &pfe):
		return fail(http.StatusBadGateway, "payment_finalization_failed", err.Error())
	case errors.As(err, &se):
		return fail(http.StatusBadGateway, "backend_error", err.Error())
	case errors.As(err, &ne):
		return fail(http.StatusServiceUnavailable, "service_unavailable", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return fail(http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		logger.FromCtx(r.Context()).Error("request failed", "error", err)
		return fail(http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
