package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusCompleted OrderStatus = "COMPLETED"
)

// OrderRequest creates one remote order for a single cart line.
type OrderRequest struct {
	UserID         int64
	ProductID      int64
	Quantity       int
	IdempotencyKey string
}

// Order is the remote order record. The storefront references it, never owns it.
type Order struct {
	ID          int64       `json:"id"`
	ProductID   int64       `json:"product_id"`
	ProductName string      `json:"product_name,omitempty"`
	Quantity    int         `json:"quantity"`
	Status      OrderStatus `json:"status"`
}

// SubmittedOrder is the local ledger entry for an order created during checkout.
type SubmittedOrder struct {
	OrderID    int64       `json:"order_id"`
	CheckoutID uuid.UUID   `json:"checkout_id"`
	UserID     int64       `json:"user_id"`
	ProductID  int64       `json:"product_id"`
	Quantity   int         `json:"quantity"`
	Status     OrderStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}
