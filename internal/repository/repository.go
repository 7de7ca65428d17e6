package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

var ErrCartNotFound = errors.New("cart not found")

// CartRepository is the durable key-value slot behind the cart and wishlist.
// Each Save replaces the whole slot in a single write, so a second reader
// never observes a partially written cart.
// Only the cart and wishlist services use it; nothing else touches the slot.
type CartRepository interface {
	GetCart(ctx context.Context, key string) ([]domain.CartLine, error)
	SaveCart(ctx context.Context, key string, lines []domain.CartLine) error
	DeleteCart(ctx context.Context, key string) error
}

func CartKey(owner string) string {
	return fmt.Sprintf("cart:%s", owner)
}

func WishlistKey(owner string) string {
	return fmt.Sprintf("wishlist:%s", owner)
}

func encodeLines(lines []domain.CartLine) ([]byte, error) {
	if lines == nil {
		lines = []domain.CartLine{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return nil, fmt.Errorf("marshal cart failed: %w", err)
	}
	return data, nil
}

func decodeLines(data []byte) ([]domain.CartLine, error) {
	var lines []domain.CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return lines, nil
}
