package service

import (
	"context"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// OrderGateway is the remote order API. Implementations return
// *domain.OrderCreationError, *domain.PaymentFinalizationError or *domain.NetworkError.
type OrderGateway interface {
	CreateOrder(ctx context.Context, req domain.OrderRequest) (int64, error)
	CompleteOrder(ctx context.Context, orderID int64) error
}

type CatalogGateway interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event domain.CheckoutEvent) error
}

// OrderLedger records orders created during checkout so partial submissions can be reconciled.
type OrderLedger interface {
	RecordSubmission(ctx context.Context, order domain.SubmittedOrder) error
	MarkCompleted(ctx context.Context, orderID int64) error
}
