package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type WishlistHandler struct {
	sessions SessionProvider
	catalog  Catalog
	timeout  time.Duration
}

func NewWishlistHandler(sessions SessionProvider, catalog Catalog, timeout time.Duration) *WishlistHandler {
	return &WishlistHandler{sessions: sessions, catalog: catalog, timeout: timeout}
}

type WishlistToggleResponseDTO struct {
	ProductID int64             `json:"product_id"`
	Saved     bool              `json:"saved"`
	Items     []domain.CartLine `json:"items"`
}

// GET /api/v1/wishlist
func (h *WishlistHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	us, ok := resolveSession(w, r, h.sessions)
	if !ok {
		return
	}
	items := us.Wishlist.Items()
	if items == nil {
		items = []domain.CartLine{}
	}
	respondJSON(w, http.StatusOK, items)
}

// POST /api/v1/wishlist/{product_id}
func (h *WishlistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	us, ok := resolveSession(w, r, h.sessions)
	if !ok {
		return
	}

	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	product, ok := lookupProduct(ctx, h.catalog, productID)
	if !ok {
		respondError(w, http.StatusNotFound, "product_not_found", "product is not in the catalog")
		return
	}

	saved, err := us.Wishlist.Toggle(ctx, product)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	items := us.Wishlist.Items()
	if items == nil {
		items = []domain.CartLine{}
	}
	respondJSON(w, http.StatusOK, WishlistToggleResponseDTO{ProductID: productID, Saved: saved, Items: items})
}
