package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/shopspring/decimal"
)

var DefaultShippingFee = decimal.NewFromInt(49)

// Action names a destructive cart operation that needs confirmation.
type Action string

const (
	ActionClearCart  Action = "clear_cart"
	ActionRemoveItem Action = "remove_item"
)

type Confirmer interface {
	Confirm(ctx context.Context, action Action) bool
}

type ConfirmFunc func(ctx context.Context, action Action) bool

func (f ConfirmFunc) Confirm(ctx context.Context, action Action) bool {
	return f(ctx, action)
}

// AlwaysConfirm approves every action.
var AlwaysConfirm Confirmer = ConfirmFunc(func(context.Context, Action) bool { return true })

type CartOption func(*CartService)

func WithShippingFee(fee decimal.Decimal) CartOption {
	return func(s *CartService) { s.shippingFee = fee }
}

func WithConfirmer(c Confirmer) CartOption {
	return func(s *CartService) {
		if c != nil {
			s.confirmer = c
		}
	}
}

func WithCartLogger(l *slog.Logger) CartOption {
	return func(s *CartService) { s.log = l }
}

func WithCartMetrics(m *metrics.Metrics) CartOption {
	return func(s *CartService) { s.metrics = m }
}

// CartService owns one persisted cart. Every mutation is written through to
// the repository before it becomes visible; a failed write leaves the
// previous lines in place.
type CartService struct {
	mu    sync.Mutex
	repo  repository.CartRepository
	key   string
	lines []domain.CartLine

	shippingFee decimal.Decimal
	confirmer   Confirmer
	log         *slog.Logger
	metrics     *metrics.Metrics
}

// NewCartService rehydrates the cart stored under key. A missing slot is an empty cart.
func NewCartService(ctx context.Context, repo repository.CartRepository, key string, opts ...CartOption) (*CartService, error) {
	s := &CartService{
		repo:        repo,
		key:         key,
		shippingFee: DefaultShippingFee,
		confirmer:   AlwaysConfirm,
		log:         logger.New("cart"),
	}
	for _, opt := range opts {
		opt(s)
	}

	lines, err := repo.GetCart(ctx, key)
	if err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		return nil, fmt.Errorf("load cart %s: %w", key, err)
	}
	s.lines = sanitize(lines)
	return s, nil
}

// sanitize drops lines that can no longer be bought and clamps the rest into [1, stock].
func sanitize(lines []domain.CartLine) []domain.CartLine {
	out := make([]domain.CartLine, 0, len(lines))
	seen := make(map[int64]bool, len(lines))
	for _, l := range lines {
		if l.Stock <= 0 || seen[l.ProductID] {
			continue
		}
		seen[l.ProductID] = true
		l.Quantity = clamp(l.Quantity, 1, l.Stock)
		out = append(out, l)
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Lines returns a copy of the cart in display order.
func (s *CartService) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.CartLine(nil), s.lines...)
}

func (s *CartService) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines) == 0
}

func (s *CartService) AddItem(ctx context.Context, product domain.Product, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.addItem(ctx, product, qty)
	s.metrics.CartMutation("add_item", err)
	return err
}

func (s *CartService) addItem(ctx context.Context, product domain.Product, qty int) error {
	if qty < 1 {
		return domain.ErrInvalidQuantity
	}
	if product.Stock <= 0 {
		return domain.ErrOutOfStock
	}

	next := append([]domain.CartLine(nil), s.lines...)
	idx := indexOf(next, product.ID)
	if idx < 0 {
		next = append(next, domain.CartLine{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Stock:     product.Stock,
			Quantity:  min(qty, product.Stock),
		})
		return s.commit(ctx, next)
	}

	line := next[idx]
	if line.Quantity+qty > product.Stock {
		return fmt.Errorf("%w: product %d has %d in stock, cart holds %d",
			domain.ErrInsufficientStock, product.ID, product.Stock, line.Quantity)
	}
	line.Quantity += qty
	// refresh the snapshot from the product the caller just saw
	line.Stock = product.Stock
	next[idx] = line
	return s.commit(ctx, next)
}

// UpdateQuantity moves a line by one unit and clamps it into [1, stock].
// Unknown products are ignored.
func (s *CartService) UpdateQuantity(ctx context.Context, productID int64, change domain.QuantityChange) error {
	if change != domain.Increment && change != domain.Decrement {
		return domain.ErrInvalidQuantityChange
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.lines, productID)
	if idx < 0 {
		return nil
	}

	next := append([]domain.CartLine(nil), s.lines...)
	line := next[idx]
	q := clamp(line.Quantity+int(change), 1, line.Stock)
	if q == line.Quantity {
		return nil
	}
	line.Quantity = q
	next[idx] = line

	err := s.commit(ctx, next)
	s.metrics.CartMutation("update_quantity", err)
	return err
}

// RemoveItem deletes the line for productID once the confirmer approves. Removing
// a product that is not in the cart succeeds.
func (s *CartService) RemoveItem(ctx context.Context, productID int64) error {
	if !s.confirmer.Confirm(ctx, ActionRemoveItem) {
		return domain.ErrNotConfirmed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.lines, productID)
	if idx < 0 {
		return nil
	}

	next := make([]domain.CartLine, 0, len(s.lines)-1)
	next = append(next, s.lines[:idx]...)
	next = append(next, s.lines[idx+1:]...)

	err := s.commit(ctx, next)
	s.metrics.CartMutation("remove_item", err)
	return err
}

// Clear empties the cart and erases its slot once the confirmer approves.
func (s *CartService) Clear(ctx context.Context) error {
	if !s.confirmer.Confirm(ctx, ActionClearCart) {
		return domain.ErrNotConfirmed
	}
	return s.clear(ctx)
}

func (s *CartService) clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.repo.DeleteCart(ctx, s.key)
	if errors.Is(err, repository.ErrCartNotFound) {
		err = nil
	}
	s.metrics.CartMutation("clear", err)
	if err != nil {
		s.log.Error("cart clear failed", "key", s.key, "error", err)
		return fmt.Errorf("clear cart: %w", err)
	}
	s.lines = nil
	return nil
}

// removePaid subtracts the paid quantities and drops lines that reach zero.
// An empty result erases the slot like clear. It skips the confirmer.
func (s *CartService) removePaid(ctx context.Context, paid []domain.CartLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	paidQty := make(map[int64]int, len(paid))
	for _, l := range paid {
		paidQty[l.ProductID] += l.Quantity
	}

	next := make([]domain.CartLine, 0, len(s.lines))
	for _, l := range s.lines {
		l.Quantity -= paidQty[l.ProductID]
		if l.Quantity > 0 {
			next = append(next, l)
		}
	}

	var err error
	if len(next) == 0 {
		err = s.repo.DeleteCart(ctx, s.key)
		if errors.Is(err, repository.ErrCartNotFound) {
			err = nil
		}
		if err == nil {
			s.lines = nil
		}
	} else {
		err = s.commit(ctx, next)
	}
	s.metrics.CartMutation("remove_paid", err)
	if err != nil {
		s.log.Error("cart update after payment failed", "key", s.key, "error", err)
		return fmt.Errorf("remove paid lines: %w", err)
	}
	return nil
}

// ComputeTotals prices the current cart with the given discount.
func (s *CartService) ComputeTotals(discount decimal.Decimal) domain.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return computeTotals(s.lines, s.shippingFee, discount)
}

func computeTotals(lines []domain.CartLine, shippingFee, discount decimal.Decimal) domain.Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Subtotal())
	}

	shipping := decimal.Zero
	if subtotal.IsPositive() {
		shipping = shippingFee
	}

	total := subtotal.Add(shipping).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return domain.Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Discount: discount,
		Total:    total,
	}
}

// commit persists next and only then swaps it in. Callers hold s.mu.
func (s *CartService) commit(ctx context.Context, next []domain.CartLine) error {
	if err := s.repo.SaveCart(ctx, s.key, next); err != nil {
		s.log.Error("cart save failed", "key", s.key, "error", err)
		return fmt.Errorf("save cart: %w", err)
	}
	s.lines = next
	return nil
}

func indexOf(lines []domain.CartLine, productID int64) int {
	for i, l := range lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}
