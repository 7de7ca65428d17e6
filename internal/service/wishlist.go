package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/repository"
)

// WishlistService keeps a set of saved products in its own slot, same shape as the cart.
type WishlistService struct {
	mu    sync.Mutex
	repo  repository.CartRepository
	key   string
	items []domain.CartLine
}

func NewWishlistService(ctx context.Context, repo repository.CartRepository, key string) (*WishlistService, error) {
	items, err := repo.GetCart(ctx, key)
	if err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		return nil, fmt.Errorf("load wishlist %s: %w", key, err)
	}
	return &WishlistService{repo: repo, key: key, items: items}, nil
}

// Toggle adds the product if absent and removes it otherwise. It reports whether
// the product is in the wishlist afterwards.
func (w *WishlistService) Toggle(ctx context.Context, product domain.Product) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	idx := indexOf(w.items, product.ID)
	var next []domain.CartLine
	if idx >= 0 {
		next = append(next, w.items[:idx]...)
		next = append(next, w.items[idx+1:]...)
	} else {
		next = append(append(next, w.items...), domain.CartLine{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Stock:     product.Stock,
			Quantity:  1,
		})
	}

	if err := w.repo.SaveCart(ctx, w.key, next); err != nil {
		return idx >= 0, fmt.Errorf("save wishlist: %w", err)
	}
	w.items = next
	return idx < 0, nil
}

func (w *WishlistService) Contains(productID int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return indexOf(w.items, productID) >= 0
}

func (w *WishlistService) Items() []domain.CartLine {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]domain.CartLine(nil), w.items...)
}
