package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/shopspring/decimal"
)

// UserSession bundles the per-user services behind the HTTP shell.
type UserSession struct {
	Cart     *CartService
	Wishlist *WishlistService
	Checkout *CheckoutService
}

type RegistryConfig struct {
	Repo        repository.CartRepository
	Checkout    CheckoutDeps
	ShippingFee decimal.Decimal
	Confirmer   Confirmer
}

// SessionRegistry lazily builds one UserSession per user and keeps it for
// the life of the process.
type SessionRegistry struct {
	cfg RegistryConfig

	mu       sync.Mutex
	sessions map[int64]*UserSession
}

func NewSessionRegistry(cfg RegistryConfig) *SessionRegistry {
	return &SessionRegistry{
		cfg:      cfg,
		sessions: make(map[int64]*UserSession),
	}
}

func (r *SessionRegistry) Get(ctx context.Context, userID int64) (*UserSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if us, ok := r.sessions[userID]; ok {
		return us, nil
	}

	owner := strconv.FormatInt(userID, 10)
	opts := []CartOption{
		WithConfirmer(r.cfg.Confirmer),
		WithCartMetrics(r.cfg.Checkout.Metrics),
	}
	if !r.cfg.ShippingFee.IsZero() {
		opts = append(opts, WithShippingFee(r.cfg.ShippingFee))
	}
	if r.cfg.Checkout.Logger != nil {
		opts = append(opts, WithCartLogger(r.cfg.Checkout.Logger.With("user_id", userID)))
	}

	cart, err := NewCartService(ctx, r.cfg.Repo, repository.CartKey(owner), opts...)
	if err != nil {
		return nil, fmt.Errorf("open cart for user %d: %w", userID, err)
	}

	wishlist, err := NewWishlistService(ctx, r.cfg.Repo, repository.WishlistKey(owner))
	if err != nil {
		return nil, fmt.Errorf("open wishlist for user %d: %w", userID, err)
	}

	us := &UserSession{
		Cart:     cart,
		Wishlist: wishlist,
		Checkout: NewCheckoutService(userID, cart, r.cfg.Checkout),
	}
	r.sessions[userID] = us
	return us, nil
}
