package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type ProductHandler struct {
	catalog Catalog
	timeout time.Duration
}

func NewProductHandler(catalog Catalog, timeout time.Duration) *ProductHandler {
	return &ProductHandler{catalog: catalog, timeout: timeout}
}

// GET /api/v1/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products := h.catalog.Products()
	if len(products) == 0 {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		fresh, err := h.catalog.Refresh(ctx)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		products = fresh
	}
	if products == nil {
		products = []domain.Product{}
	}
	if at := h.catalog.UpdatedAt(); !at.IsZero() {
		w.Header().Set("Last-Modified", at.UTC().Format(http.TimeFormat))
	}
	respondJSON(w, http.StatusOK, products)
}
