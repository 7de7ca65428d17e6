package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	mu         sync.Mutex
	products   map[int64]domain.Product
	pending    []domain.Product
	refreshErr error
	refreshes  int
	updatedAt  time.Time
}

func newFakeCatalog(products ...domain.Product) *fakeCatalog {
	c := &fakeCatalog{products: make(map[int64]domain.Product)}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (c *fakeCatalog) Products() []domain.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.Product
	for _, p := range c.products {
		out = append(out, p)
	}
	return out
}

func (c *fakeCatalog) Product(id int64) (domain.Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	return p, ok
}

func (c *fakeCatalog) UpdatedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updatedAt
}

// Refresh publishes the pending products, simulating a backend that gained items.
func (c *fakeCatalog) Refresh(context.Context) ([]domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshes++
	if c.refreshErr != nil {
		return nil, c.refreshErr
	}
	for _, p := range c.pending {
		c.products[p.ID] = p
	}
	c.pending = nil
	c.updatedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var out []domain.Product
	for _, p := range c.products {
		out = append(out, p)
	}
	return out, nil
}

type fakeGateway struct {
	mu        sync.Mutex
	nextID    int64
	createErr error
	// failOn rejects orders for a single product.
	failOn    map[int64]error
	orders    map[int64]domain.Order
	completed []int64
}

func (g *fakeGateway) CreateOrder(_ context.Context, req domain.OrderRequest) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return 0, g.createErr
	}
	if err := g.failOn[req.ProductID]; err != nil {
		return 0, err
	}
	g.nextID++
	if g.orders == nil {
		g.orders = make(map[int64]domain.Order)
	}
	g.orders[g.nextID] = domain.Order{ID: g.nextID, ProductID: req.ProductID, Quantity: req.Quantity, Status: domain.OrderStatusPending}
	return g.nextID, nil
}

func (g *fakeGateway) CompleteOrder(_ context.Context, orderID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.completed = append(g.completed, orderID)
	return nil
}

func product(id int64, price int64, stock int) domain.Product {
	return domain.Product{ID: id, Name: "product", Price: decimal.NewFromInt(price), Stock: stock}
}

func validForm() domain.PaymentForm {
	return domain.PaymentForm{
		CardNumber:     "4242 4242 4242 4242",
		Expiry:         "12/30",
		CVV:            "123",
		CardholderName: "Jane Doe",
	}
}

type testEnv struct {
	sessions *service.SessionRegistry
	catalog  *fakeCatalog
	gateway  *fakeGateway
	repo     *repository.MemoryRepository
}

func newTestEnv(t *testing.T, products ...domain.Product) *testEnv {
	t.Helper()
	env := &testEnv{
		catalog: newFakeCatalog(products...),
		gateway: &fakeGateway{nextID: 500},
		repo:    repository.NewMemoryRepository(),
	}
	env.sessions = service.NewSessionRegistry(service.RegistryConfig{
		Repo:      env.repo,
		Confirmer: HeaderConfirmer,
		Checkout: service.CheckoutDeps{
			Gateway:      env.gateway,
			Promotions:   service.NewPromotionEvaluator(service.DefaultPromoCodes()),
			PaymentDelay: time.Millisecond,
			Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		},
	})
	return env
}

func (e *testEnv) session(t *testing.T, userID int64) *service.UserSession {
	t.Helper()
	us, err := e.sessions.Get(context.Background(), userID)
	require.NoError(t, err)
	return us
}

func withUser(r *http.Request, userID int64) *http.Request {
	return r.WithContext(contextWithUserID(r.Context(), userID))
}

func withConfirm(r *http.Request) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), confirmedKey, true))
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}
