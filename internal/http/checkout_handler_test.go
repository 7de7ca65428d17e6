package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fillCart(t *testing.T, env *testEnv, userID int64) {
	t.Helper()
	cart := env.session(t, userID).Cart
	require.NoError(t, cart.AddItem(context.Background(), product(1, 25, 3), 1))
	require.NoError(t, cart.AddItem(context.Background(), product(2, 10, 5), 2))
}

func TestGetCheckout_Browsing(t *testing.T) {
	env := newTestEnv(t)
	handler := NewCheckoutHandler(env.sessions, 5*time.Second)

	rec := httptest.NewRecorder()
	handler.GetCheckout(rec, withUser(httptest.NewRequest(http.MethodGet, "/", nil), 1))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[CheckoutResponseDTO](t, rec)
	assert.Equal(t, domain.CheckoutStatusBrowsing, resp.Status)
	assert.Equal(t, domain.PaymentStateIdle, resp.PaymentState)
	assert.Nil(t, resp.Session)
}

func TestStartCheckout_EmptyCart(t *testing.T) {
	env := newTestEnv(t)
	handler := NewCheckoutHandler(env.sessions, 5*time.Second)

	rec := httptest.NewRecorder()
	handler.StartCheckout(rec, withUser(httptest.NewRequest(http.MethodPost, "/", nil), 1))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "empty_cart", decode[ErrorResponse](t, rec).Code)
}

func TestCheckoutAndPay_HappyPath(t *testing.T) {
	env := newTestEnv(t)
	fillCart(t, env, 1)
	handler := NewCheckoutHandler(env.sessions, 5*time.Second)

	rec := httptest.NewRecorder()
	handler.StartCheckout(rec, withUser(httptest.NewRequest(http.MethodPost, "/", nil), 1))

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode[CheckoutResponseDTO](t, rec)
	assert.Equal(t, domain.CheckoutStatusAwaitingPayment, resp.Status)
	require.NotNil(t, resp.Session)
	assert.Equal(t, []int64{501, 502}, resp.Session.SubmittedOrderIDs)
	assert.Equal(t, int64(502), resp.Session.LastOrderID)
	assert.True(t, decimal.NewFromInt(94).Equal(resp.Totals.Total), "total %s", resp.Totals.Total)

	req := httptest.NewRequest(http.MethodPost, "/", jsonBody(t, validForm()))
	rec = httptest.NewRecorder()
	handler.Pay(rec, withUser(req, 1))

	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[CheckoutResponseDTO](t, rec)
	assert.Equal(t, domain.CheckoutStatusConfirmed, resp.Status)
	assert.Equal(t, domain.PaymentStateCompleted, resp.PaymentState)
	assert.Equal(t, []int64{502}, env.gateway.completed)
	assert.True(t, env.session(t, 1).Cart.IsEmpty())
}

func TestPay_InvalidForm(t *testing.T) {
	env := newTestEnv(t)
	fillCart(t, env, 1)
	handler := NewCheckoutHandler(env.sessions, 5*time.Second)

	rec := httptest.NewRecorder()
	handler.StartCheckout(rec, withUser(httptest.NewRequest(http.MethodPost, "/", nil), 1))
	require.Equal(t, http.StatusCreated, rec.Code)

	form := validForm()
	form.CVV = "12"
	form.Expiry = "13/30"
	rec = httptest.NewRecorder()
	handler.Pay(rec, withUser(httptest.NewRequest(http.MethodPost, "/", jsonBody(t, form)), 1))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "payment_validation_failed", resp.Code)
	fields := make([]string, 0, len(resp.Fields))
	for _, f := range resp.Fields {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"expiry", "cvv"}, fields)
	assert.Empty(t, env.gateway.completed)
	assert.False(t, env.session(t, 1).Cart.IsEmpty())
}

func TestPay_BeforeCheckout(t *testing.T) {
	env := newTestEnv(t)
	handler := NewCheckoutHandler(env.sessions, 5*time.Second)

	rec := httptest.NewRecorder()
	handler.Pay(rec, withUser(httptest.NewRequest(http.MethodPost, "/", jsonBody(t, validForm())), 1))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "illegal_transition", decode[ErrorResponse](t, rec).Code)
}

func TestStartCheckout_GatewayFailure(t *testing.T) {
	env := newTestEnv(t)
	fillCart(t, env, 1)
	env.gateway.createErr = &domain.OrderCreationError{ProductID: 1, StatusCode: 500, Message: "boom"}
	handler := NewCheckoutHandler(env.sessions, 5*time.Second)

	rec := httptest.NewRecorder()
	handler.StartCheckout(rec, withUser(httptest.NewRequest(http.MethodPost, "/", nil), 1))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, domain.CheckoutStatusSubmissionFailed, env.session(t, 1).Checkout.Status())

	env.gateway.createErr = &domain.NetworkError{Op: "create order", Err: errors.New("connection refused")}
	rec = httptest.NewRecorder()
	handler.StartCheckout(rec, withUser(httptest.NewRequest(http.MethodPost, "/", nil), 1))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStartCheckout_PartialFailureKeepsSubmittedOrders(t *testing.T) {
	env := newTestEnv(t)
	fillCart(t, env, 1)
	env.gateway.failOn = map[int64]error{
		2: &domain.OrderCreationError{ProductID: 2, StatusCode: 500, Message: "boom"},
	}
	handler := NewCheckoutHandler(env.sessions, 5*time.Second)

	rec := httptest.NewRecorder()
	handler.StartCheckout(rec, withUser(httptest.NewRequest(http.MethodPost, "/", nil), 1))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "order_creation_failed", resp.Code)
	require.NotNil(t, resp.Checkout)
	assert.Equal(t, domain.CheckoutStatusSubmissionFailed, resp.Checkout.Status)
	assert.True(t, resp.Checkout.Terminal)
	require.NotNil(t, resp.Checkout.Session)
	assert.Equal(t, []int64{501}, resp.Checkout.Session.SubmittedOrderIDs)
	assert.Equal(t, int64(501), resp.Checkout.Session.LastOrderID)
	assert.NotEmpty(t, resp.Checkout.Error)
}

func TestAbandon(t *testing.T) {
	env := newTestEnv(t)
	fillCart(t, env, 1)
	handler := NewCheckoutHandler(env.sessions, 5*time.Second)

	rec := httptest.NewRecorder()
	handler.Abandon(rec, withUser(httptest.NewRequest(http.MethodDelete, "/", nil), 1))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	handler.StartCheckout(rec, withUser(httptest.NewRequest(http.MethodPost, "/", nil), 1))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	handler.Abandon(rec, withUser(httptest.NewRequest(http.MethodDelete, "/", nil), 1))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, domain.CheckoutStatusBrowsing, env.session(t, 1).Checkout.Status())
	assert.False(t, env.session(t, 1).Cart.IsEmpty())
}
