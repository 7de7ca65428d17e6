package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/google/uuid"
)

// SubmissionResult describes how far a submission got. On failure it still
// carries the orders created before the failing line.
type SubmissionResult struct {
	LastOrderID       int64   `json:"last_order_id,omitempty"`
	HasLastOrder      bool    `json:"has_last_order"`
	SubmittedCount    int     `json:"submitted_count"`
	SubmittedOrderIDs []int64 `json:"submitted_order_ids"`
}

type OrderSequencer struct {
	gateway OrderGateway
	ledger  OrderLedger
	log     *slog.Logger
}

// NewOrderSequencer builds a sequencer. ledger may be nil.
func NewOrderSequencer(gateway OrderGateway, ledger OrderLedger, log *slog.Logger) *OrderSequencer {
	if log == nil {
		log = logger.New("order-sequencer")
	}
	return &OrderSequencer{gateway: gateway, ledger: ledger, log: log}
}

// Submit creates one order per line without idempotency keys.
func (s *OrderSequencer) Submit(ctx context.Context, lines []domain.CartLine, userID int64) (SubmissionResult, error) {
	return s.SubmitCheckout(ctx, uuid.Nil, lines, userID)
}

// SubmitCheckout creates one order per line, in cart order, one at a time.
// It stops at the first failure and never undoes orders already created.
// Each request carries the key "<checkoutID>:<productID>" unless checkoutID is nil.
func (s *OrderSequencer) SubmitCheckout(ctx context.Context, checkoutID uuid.UUID, lines []domain.CartLine, userID int64) (SubmissionResult, error) {
	res := SubmissionResult{SubmittedOrderIDs: make([]int64, 0, len(lines))}

	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return res, &domain.NetworkError{Op: "create order", Err: err}
		}

		req := domain.OrderRequest{
			UserID:    userID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		}
		if checkoutID != uuid.Nil {
			req.IdempotencyKey = IdempotencyKey(checkoutID, line.ProductID)
		}

		orderID, err := s.gateway.CreateOrder(ctx, req)
		if err != nil {
			err = asSubmissionError(line.ProductID, err)
			s.log.Warn("order submission stopped",
				"checkout_id", checkoutID, "product_id", line.ProductID,
				"submitted", res.SubmittedCount, "error", err)
			return res, err
		}

		res.SubmittedOrderIDs = append(res.SubmittedOrderIDs, orderID)
		res.SubmittedCount++
		res.LastOrderID = orderID
		res.HasLastOrder = true

		s.record(ctx, domain.SubmittedOrder{
			OrderID:    orderID,
			CheckoutID: checkoutID,
			UserID:     userID,
			ProductID:  line.ProductID,
			Quantity:   line.Quantity,
			Status:     domain.OrderStatusPending,
			CreatedAt:  time.Now().UTC(),
		})
	}

	return res, nil
}

func IdempotencyKey(checkoutID uuid.UUID, productID int64) string {
	return fmt.Sprintf("%s:%d", checkoutID, productID)
}

// record writes to the ledger. A ledger outage must not fail an order the backend already accepted.
func (s *OrderSequencer) record(ctx context.Context, order domain.SubmittedOrder) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.RecordSubmission(ctx, order); err != nil {
		s.log.Error("ledger record failed", "order_id", order.OrderID, "error", err)
	}
}

func asSubmissionError(productID int64, err error) error {
	var oce *domain.OrderCreationError
	var ne *domain.NetworkError
	if errors.As(err, &oce) || errors.As(err, &ne) {
		return err
	}
	return &domain.OrderCreationError{ProductID: productID, Message: err.Error(), Err: err}
}
