package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterDeps struct {
	Sessions       SessionProvider
	Catalog        Catalog
	Orders         OrderLookup
	Pending        PendingLister
	Auth           *Authenticator
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Logger         *slog.Logger
	RequestTimeout time.Duration
}

func NewRouter(d RouterDeps) chi.Router {
	cartHandler := NewCartHandler(d.Sessions, d.Catalog, d.RequestTimeout)
	checkoutHandler := NewCheckoutHandler(d.Sessions, d.RequestTimeout)
	wishlistHandler := NewWishlistHandler(d.Sessions, d.Catalog, d.RequestTimeout)
	productHandler := NewProductHandler(d.Catalog, d.RequestTimeout)
	ordersHandler := NewOrdersHandler(d.Orders, d.Pending, d.RequestTimeout)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(Metrics(d.Metrics))
	if d.RequestTimeout > 0 {
		r.Use(middleware.Timeout(d.RequestTimeout))
	}
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", productHandler.ListProducts)

		r.Group(func(r chi.Router) {
			r.Use(d.Auth.Middleware)
			r.Use(ConfirmMiddleware)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Delete("/", cartHandler.ClearCart)
				r.Post("/items", cartHandler.AddItem)
				r.Patch("/items/{product_id}", cartHandler.UpdateQuantity)
				r.Delete("/items/{product_id}", cartHandler.RemoveItem)
				r.Post("/promo", cartHandler.ApplyPromo)
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", wishlistHandler.GetWishlist)
				r.Post("/{product_id}", wishlistHandler.Toggle)
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Get("/", checkoutHandler.GetCheckout)
				r.Post("/", checkoutHandler.StartCheckout)
				r.Delete("/", checkoutHandler.Abandon)
				r.Post("/payment", checkoutHandler.Pay)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/pending", ordersHandler.ListPending)
				r.Get("/{order_id}", ordersHandler.GetOrder)
			})
		})
	})

	return r
}
