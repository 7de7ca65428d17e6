package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CheckoutEventType string

const (
	EventCheckoutConfirmed        CheckoutEventType = "checkout.confirmed"
	EventCheckoutSubmissionFailed CheckoutEventType = "checkout.submission_failed"
)

// CheckoutEvent is published when a checkout session reaches a terminal state.
type CheckoutEvent struct {
	Type        CheckoutEventType `json:"event_type"`
	CheckoutID  uuid.UUID         `json:"checkout_id"`
	UserID      int64             `json:"user_id"`
	OrderIDs    []int64           `json:"order_ids"`
	LastOrderID int64             `json:"last_order_id,omitempty"`
	Total       decimal.Decimal   `json:"total"`
	Error       string            `json:"error,omitempty"`
	OccurredAt  time.Time         `json:"occurred_at"`
}
