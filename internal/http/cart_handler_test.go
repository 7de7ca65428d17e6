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

func TestGetCart_Unauthorized(t *testing.T) {
	env := newTestEnv(t)
	handler := NewCartHandler(env.sessions, env.catalog, 5*time.Second)

	rec := httptest.NewRecorder()
	handler.GetCart(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "unauthorized", resp.Code)
}

func TestGetCart_Empty(t *testing.T) {
	env := newTestEnv(t)
	handler := NewCartHandler(env.sessions, env.catalog, 5*time.Second)

	rec := httptest.NewRecorder()
	handler.GetCart(rec, withUser(httptest.NewRequest(http.MethodGet, "/", nil), 1))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[CartResponseDTO](t, rec)
	assert.Empty(t, resp.Items)
	assert.True(t, resp.Totals.Total.IsZero())
	assert.True(t, resp.Totals.Shipping.IsZero())
}

func TestAddItem_Success(t *testing.T) {
	env := newTestEnv(t, product(1, 25, 3))
	handler := NewCartHandler(env.sessions, env.catalog, 5*time.Second)

	req := httptest.NewRequest(http.MethodPost, "/", jsonBody(t, AddItemRequestDTO{ProductID: 1, Quantity: 2}))
	rec := httptest.NewRecorder()
	handler.AddItem(rec, withUser(req, 1))

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode[CartResponseDTO](t, rec)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 2, resp.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(99).Equal(resp.Totals.Total), "total %s", resp.Totals.Total)
}

func TestAddItem_DefaultsQuantityToOne(t *testing.T) {
	env := newTestEnv(t, product(1, 25, 3))
	handler := NewCartHandler(env.sessions, env.catalog, 5*time.Second)

	req := httptest.NewRequest(http.MethodPost, "/", jsonBody(t, map[string]any{"product_id": 1}))
	rec := httptest.NewRecorder()
	handler.AddItem(rec, withUser(req, 1))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, env.session(t, 1).Cart.Lines()[0].Quantity)
}

func TestAddItem_OutOfStock(t *testing.T) {
	env := newTestEnv(t, product(1, 25, 0))
	handler := NewCartHandler(env.sessions, env.catalog, 5*time.Second)

	req := httptest.NewRequest(http.MethodPost, "/", jsonBody(t, AddItemRequestDTO{ProductID: 1, Quantity: 1}))
	rec := httptest.NewRecorder()
	handler.AddItem(rec, withUser(req, 1))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "out_of_stock", decode[ErrorResponse](t, rec).Code)
	assert.True(t, env.session(t, 1).Cart.IsEmpty())
}

func TestAddItem_InsufficientStock(t *testing.T) {
	env := newTestEnv(t, product(1, 25, 2))
	handler := NewCartHandler(env.sessions, env.catalog, 5*time.Second)
	require.NoError(t, env.session(t, 1).Cart.AddItem(context.Background(), product(1, 25, 2), 2))

	req := httptest.NewRequest(http.MethodPost, "/", jsonBody(t, AddItemRequestDTO{ProductID: 1, Quantity: 1}))
	rec := httptest.NewRecorder()
	handler.AddItem(rec, withUser(req, 1))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "insufficient_stock", decode[ErrorResponse](t, rec).Code)
}

func TestAddItem_RefreshesCatalogOnMiss(t *testing.T) {
	env := newTestEnv(t)
	env.catalog.pending = []domain.Product{product(9, 5, 4)}
	handler := NewCartHandler(env.sessions, env.catalog, 5*time.Second)

	req := httptest.NewRequest(http.MethodPost, "/", jsonBody(t, AddItemRequestDTO{ProductID: 9, Quantity: 1}))
	rec := httptest.NewRecorder()
	handler.AddItem(rec, withUser(req, 1))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, env.catalog.refreshes)
}

func TestAddItem_UnknownProduct(t *testing.T) {
	env := newTestEnv(t)
	env.catalog.refreshErr = errors.New("backend down")
	handler := NewCartHandler(env.sessions, env.catalog, 5*time.Second)

	req := httptest.NewRequest(http.MethodPost, "/", jsonBody(t, AddItemRequestDTO{ProductID: 9, Quantity: 1}))
	rec := httptest.NewRecorder()
	handler.AddItem(rec, withUser(req, 1))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "product_not_found", decode[ErrorResponse](t, rec).Code)
}

func TestAddItem_InvalidBody(t *testing.T) {
	env := newTestEnv(t)
	handler := NewCartHandler(env.sessions, env.catalog, 5*time.Second)

	rec := httptest.NewRecorder()
	handler.AddItem(rec, withUser(httptest.NewRequest(http.MethodPost, "/", nil), 1))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateQuantity_ClampsAtStock(t *testing.T) {
	env := newTestEnv(t, product(1, 25, 2))
	handler := NewCartHandler(env.sessions, env.catalog, 5*time.Second)
	require.NoError(t, env.session(t, 1).Cart.AddItem(context.Background(), product(1, 25, 2), 2))

	req := httptest.NewRequest(http.MethodPatch, "/", jsonBody(t, UpdateQuantityRequestDTO{Change: "inc"}))
	req = withURLParam(withUser(req, 1), "product_id", "1")
	rec := httptest.NewRecorder()
	handler.UpdateQuantity(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[CartResponseDTO](t, rec)
	assert.Equal(t, 2, resp.Items[0].Quantity)
}

func TestUpdateQuantity_InvalidChange(t *testing.T) {
	env := newTestEnv(t)
	handler := NewCartHandler(env.sessions, env.catalog, 5*time.Second)

	req := httptest.NewRequest(http.MethodPatch, "/", jsonBody(t, UpdateQuantityRequestDTO{Change: "double"}))
	req = withURLParam(withUser(req, 1), "product_id", "1")
	rec := httptest.NewRecorder()
	handler.UpdateQuantity(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_quantity", decode[ErrorResponse](t, rec).Code)
}

func TestUpdateQuantity_InvalidProductID(t *testing.T) {
	env := newTestEnv(t)
	handler := NewCartHandler(env.sessions, env.catalog, 5*time.Second)

	req := httptest.NewRequest(http.MethodPatch, "/", jsonBody(t, UpdateQuantityRequestDTO{Change: "inc"}))
	req = withURLParam(withUser(req, 1), "product_id", "abc")
	rec := httptest.NewRecorder()
	handler.UpdateQuantity(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_product_id", decode[ErrorResponse](t, rec).Code)
}

func TestRemoveItem_RequiresConfirmation(t *testing.T) {
	env := newTestEnv(t)
	handler := NewCartHandler(env.sessions, env.catalog, 5*time.Second)
	require.NoError(t, env.session(t, 1).Cart.AddItem(context.Background(), product(1, 25, 3), 1))

	req := withURLParam(withUser(httptest.NewRequest(http.MethodDelete, "/", nil), 1), "product_id", "1")
	rec := httptest.NewRecorder()
	handler.RemoveItem(rec, req)

	assert.Equal(t, http.StatusPreconditionRequired, rec.Code)
	assert.Len(t, env.session(t, 1).Cart.Lines(), 1)

	rec = httptest.NewRecorder()
	handler.RemoveItem(rec, withConfirm(req))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.session(t, 1).Cart.IsEmpty())
}

func TestClearCart_Confirmed(t *testing.T) {
	env := newTestEnv(t)
	handler := NewCartHandler(env.sessions, env.catalog, 5*time.Second)
	require.NoError(t, env.session(t, 1).Cart.AddItem(context.Background(), product(1, 25, 3), 1))

	rec := httptest.NewRecorder()
	handler.ClearCart(rec, withConfirm(withUser(httptest.NewRequest(http.MethodDelete, "/", nil), 1)))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, env.session(t, 1).Cart.IsEmpty())
}

func TestApplyPromo(t *testing.T) {
	env := newTestEnv(t)
	handler := NewCartHandler(env.sessions, env.catalog, 5*time.Second)
	require.NoError(t, env.session(t, 1).Cart.AddItem(context.Background(), product(1, 100, 3), 1))

	req := httptest.NewRequest(http.MethodPost, "/", jsonBody(t, ApplyPromoRequestDTO{Code: "save50"}))
	rec := httptest.NewRecorder()
	handler.ApplyPromo(rec, withUser(req, 1))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[CartResponseDTO](t, rec)
	assert.True(t, decimal.NewFromInt(50).Equal(resp.Promotion.Discount))
	assert.True(t, decimal.NewFromInt(99).Equal(resp.Totals.Total), "total %s", resp.Totals.Total)

	req = httptest.NewRequest(http.MethodPost, "/", jsonBody(t, ApplyPromoRequestDTO{Code: "BOGUS"}))
	rec = httptest.NewRecorder()
	handler.ApplyPromo(rec, withUser(req, 1))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.True(t, env.session(t, 1).Checkout.Promotion().Discount.IsZero())
}
