package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"golang.org/x/sync/singleflight"
)

// Source lists the current catalog.
type Source interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
}

// Poller keeps an in-memory snapshot of the catalog. The snapshot only
// changes on Refresh; stock values are as fresh as the last successful poll.
type Poller struct {
	source   Source
	interval time.Duration
	sfg      singleflight.Group // concurrent refreshes share one request
	log      *slog.Logger

	mu        sync.RWMutex
	products  []domain.Product
	byID      map[int64]domain.Product
	updatedAt time.Time
}

func NewPoller(source Source, interval time.Duration, log *slog.Logger) *Poller {
	if log == nil {
		log = logger.New("catalog")
	}
	return &Poller{
		source:   source,
		interval: interval,
		log:      log,
		byID:     make(map[int64]domain.Product),
	}
}

// Run refreshes immediately and then on every tick until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	if _, err := p.Refresh(ctx); err != nil {
		p.log.Warn("catalog refresh failed", "error", err)
	}
	if p.interval <= 0 {
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.Refresh(ctx); err != nil {
				p.log.Warn("catalog refresh failed", "error", err)
			}
		}
	}
}

// Refresh fetches the catalog and swaps the snapshot. A failed fetch keeps the old one.
func (p *Poller) Refresh(ctx context.Context) ([]domain.Product, error) {
	v, err, _ := p.sfg.Do("catalog", func() (interface{}, error) {
		products, err := p.source.ListProducts(ctx)
		if err != nil {
			return nil, err
		}

		byID := make(map[int64]domain.Product, len(products))
		for _, pr := range products {
			byID[pr.ID] = pr
		}

		p.mu.Lock()
		p.products = products
		p.byID = byID
		p.updatedAt = time.Now()
		p.mu.Unlock()

		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]domain.Product(nil), v.([]domain.Product)...), nil
}

func (p *Poller) Products() []domain.Product {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]domain.Product(nil), p.products...)
}

func (p *Poller) Product(id int64) (domain.Product, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pr, ok := p.byID[id]
	return pr, ok
}

// UpdatedAt is zero until the first successful refresh.
func (p *Poller) UpdatedAt() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.updatedAt
}
