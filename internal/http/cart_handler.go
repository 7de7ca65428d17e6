package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/go-chi/chi/v5"
)

// SessionProvider resolves the per-user services.
type SessionProvider interface {
	Get(ctx context.Context, userID int64) (*service.UserSession, error)
}

// Catalog is the product snapshot the shell reads from.
type Catalog interface {
	Products() []domain.Product
	Product(id int64) (domain.Product, bool)
	Refresh(ctx context.Context) ([]domain.Product, error)
	UpdatedAt() time.Time
}

type CartHandler struct {
	sessions SessionProvider
	catalog  Catalog
	timeout  time.Duration
}

func NewCartHandler(sessions SessionProvider, catalog Catalog, timeout time.Duration) *CartHandler {
	return &CartHandler{
		sessions: sessions,
		catalog:  catalog,
		timeout:  timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Change string `json:"change"`
}

type ApplyPromoRequestDTO struct {
	Code string `json:"code"`
}

type CartResponseDTO struct {
	Items     []domain.CartLine     `json:"items"`
	Totals    domain.Totals         `json:"totals"`
	Promotion domain.PromotionState `json:"promotion"`
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	us, ok := h.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(us))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	us, ok := h.session(w, r)
	if !ok {
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	product, ok := lookupProduct(ctx, h.catalog, req.ProductID)
	if !ok {
		respondError(w, http.StatusNotFound, "product_not_found", "product is not in the catalog")
		return
	}

	if err := us.Cart.AddItem(ctx, product, req.Quantity); err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, cartResponse(us))
}

// PATCH /api/v1/cart/items/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	us, ok := h.session(w, r)
	if !ok {
		return
	}

	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	change, err := domain.ParseQuantityChange(req.Change)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if err := us.Cart.UpdateQuantity(ctx, productID, change); err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(us))
}

// DELETE /api/v1/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	us, ok := h.session(w, r)
	if !ok {
		return
	}

	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	if err := us.Cart.RemoveItem(ctx, productID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(us))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	us, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := us.Cart.Clear(ctx); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/cart/promo
func (h *CartHandler) ApplyPromo(w http.ResponseWriter, r *http.Request) {
	us, ok := h.session(w, r)
	if !ok {
		return
	}

	var req ApplyPromoRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if _, err := us.Checkout.ApplyPromo(req.Code); err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(us))
}

func (h *CartHandler) session(w http.ResponseWriter, r *http.Request) (*service.UserSession, bool) {
	return resolveSession(w, r, h.sessions)
}

func resolveSession(w http.ResponseWriter, r *http.Request, sessions SessionProvider) (*service.UserSession, bool) {
	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return nil, false
	}

	us, err := sessions.Get(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return nil, false
	}
	return us, true
}

func cartResponse(us *service.UserSession) CartResponseDTO {
	items := us.Cart.Lines()
	if items == nil {
		items = []domain.CartLine{}
	}
	return CartResponseDTO{
		Items:     items,
		Totals:    us.Checkout.Totals(),
		Promotion: us.Checkout.Promotion(),
	}
}

// lookupProduct reads the catalog snapshot, refreshing once on a miss.
func lookupProduct(ctx context.Context, catalog Catalog, id int64) (domain.Product, bool) {
	if p, ok := catalog.Product(id); ok {
		return p, true
	}
	if _, err := catalog.Refresh(ctx); err != nil {
		return domain.Product{}, false
	}
	return catalog.Product(id)
}

func productIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return 0, false
	}
	return productID, true
}
