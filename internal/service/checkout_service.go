package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckoutDeps are shared by every user's checkout. Ledger, Events and Metrics may be nil.
type CheckoutDeps struct {
	Gateway      OrderGateway
	Promotions   *PromotionEvaluator
	Ledger       OrderLedger
	Events       EventPublisher
	Metrics      *metrics.Metrics
	PaymentDelay time.Duration
	Logger       *slog.Logger
}

// CheckoutService drives one user's checkout lifecycle over their cart.
// The lock is never held across a gateway call; Submitting and Paying
// reject re-entry instead.
type CheckoutService struct {
	userID    int64
	cart      *CartService
	promos    *PromotionEvaluator
	sequencer *OrderSequencer
	payment   *PaymentSimulator
	ledger    OrderLedger
	events    EventPublisher
	metrics   *metrics.Metrics
	log       *slog.Logger

	mu      sync.Mutex
	status  domain.CheckoutStatus
	session *domain.CheckoutSession
	promo   domain.PromotionState
}

func NewCheckoutService(userID int64, cart *CartService, deps CheckoutDeps) *CheckoutService {
	log := deps.Logger
	if log == nil {
		log = logger.New("checkout")
	}
	log = log.With("user_id", userID)

	promos := deps.Promotions
	if promos == nil {
		promos = NewPromotionEvaluator(nil)
	}

	delay := deps.PaymentDelay
	if delay == 0 {
		delay = DefaultPaymentDelay
	}

	return &CheckoutService{
		userID:    userID,
		cart:      cart,
		promos:    promos,
		sequencer: NewOrderSequencer(deps.Gateway, deps.Ledger, log),
		payment: NewPaymentSimulator(deps.Gateway,
			WithPaymentDelay(delay),
			WithCartClearer(cart),
			WithPaymentLogger(log),
		),
		ledger:  deps.Ledger,
		events:  deps.Events,
		metrics: deps.Metrics,
		log:     log,
		status:  domain.CheckoutStatusBrowsing,
		promo:   domain.PromotionState{Discount: decimal.Zero},
	}
}

func (s *CheckoutService) Status() domain.CheckoutStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Session returns a copy of the current session, or nil while browsing.
func (s *CheckoutService) Session() *domain.CheckoutSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Clone()
}

func (s *CheckoutService) PaymentState() domain.PaymentState {
	return s.payment.State()
}

// ApplyPromo replaces the active code. An unknown code clears any discount.
func (s *CheckoutService) ApplyPromo(code string) (domain.PromotionState, error) {
	discount, err := s.promos.Evaluate(code)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.promo = domain.PromotionState{Discount: decimal.Zero}
		return s.promo, err
	}
	s.promo = domain.PromotionState{Code: code, Discount: discount}
	return s.promo, nil
}

func (s *CheckoutService) Promotion() domain.PromotionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.promo
}

func (s *CheckoutService) Totals() domain.Totals {
	return s.cart.ComputeTotals(s.Promotion().Discount)
}

// Checkout submits one order per cart line. After a failed submission the
// retry reuses the session id, so idempotency keys repeat for the same lines.
func (s *CheckoutService) Checkout(ctx context.Context) (*domain.CheckoutSession, error) {
	s.mu.Lock()
	if !domain.CanTransitionTo(s.status, domain.CheckoutStatusSubmitting) {
		status := s.status
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: checkout from %s", domain.ErrIllegalTransition, status)
	}

	lines := s.cart.Lines()
	if len(lines) == 0 {
		s.mu.Unlock()
		s.metrics.CheckoutSubmitted("empty")
		return nil, domain.ErrEmptyCart
	}

	id := uuid.New()
	if s.status == domain.CheckoutStatusSubmissionFailed && s.session != nil {
		id = s.session.ID
	}
	total := computeTotals(lines, s.cart.shippingFee, s.promo.Discount).Total
	s.status = domain.CheckoutStatusSubmitting
	s.session = &domain.CheckoutSession{
		ID:     id,
		UserID: s.userID,
		Status: domain.CheckoutStatusSubmitting,
		Total:  total,
	}
	s.mu.Unlock()

	s.log.Info("checkout submitting", "checkout_id", id, "lines", len(lines))
	res, err := s.sequencer.SubmitCheckout(ctx, id, lines, s.userID)
	s.metrics.OrdersCreated(res.SubmittedCount)

	s.mu.Lock()
	s.session.SubmittedOrderIDs = res.SubmittedOrderIDs
	s.session.LastOrderID = res.LastOrderID
	s.session.HasLastOrder = res.HasLastOrder
	s.session.Lines = lines[:res.SubmittedCount]
	if err != nil {
		s.transition(domain.CheckoutStatusSubmissionFailed)
		s.session.Err = err
	} else {
		s.transition(domain.CheckoutStatusAwaitingPayment)
	}
	snapshot := s.session.Clone()
	s.mu.Unlock()

	if err != nil {
		s.metrics.CheckoutSubmitted("submission_failed")
		s.log.Warn("checkout submission failed", "checkout_id", id,
			"submitted", res.SubmittedCount, "error", err)
		s.publish(ctx, domain.EventCheckoutSubmissionFailed, snapshot, total)
		return snapshot, err
	}

	s.metrics.CheckoutSubmitted("awaiting_payment")
	s.log.Info("checkout awaiting payment", "checkout_id", id, "last_order_id", res.LastOrderID)
	return snapshot, nil
}

// Pay runs the payment simulator for the last submitted order. Invalid card
// details return the session to AwaitingPayment so the form can be retried.
func (s *CheckoutService) Pay(ctx context.Context, form domain.PaymentForm) (*domain.CheckoutSession, error) {
	s.mu.Lock()
	if !domain.CanTransitionTo(s.status, domain.CheckoutStatusPaying) {
		status := s.status
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: pay from %s", domain.ErrIllegalTransition, status)
	}
	s.transition(domain.CheckoutStatusPaying)
	s.session.Err = nil
	orderID := s.session.LastOrderID
	id := s.session.ID
	total := s.session.Total
	paid := append([]domain.CartLine(nil), s.session.Lines...)
	s.mu.Unlock()

	start := time.Now()
	err := s.payment.Pay(ctx, orderID, form, paid)

	s.mu.Lock()
	switch {
	case err == nil:
		s.transition(domain.CheckoutStatusConfirmed)
		s.promo = domain.PromotionState{Discount: decimal.Zero}
	case domain.IsValidationError(err):
		s.transition(domain.CheckoutStatusAwaitingPayment)
		s.session.Err = err
	default:
		s.transition(domain.CheckoutStatusPaymentFailed)
		s.session.Err = err
	}
	snapshot := s.session.Clone()
	s.mu.Unlock()

	switch {
	case err == nil:
		s.metrics.PaymentProcessed("confirmed", time.Since(start))
		s.log.Info("checkout confirmed", "checkout_id", id, "order_id", orderID)
		s.markCompleted(ctx, orderID)
		s.publish(ctx, domain.EventCheckoutConfirmed, snapshot, total)
	case domain.IsValidationError(err):
		s.metrics.PaymentProcessed("invalid", time.Since(start))
	default:
		s.metrics.PaymentProcessed("failed", time.Since(start))
		s.log.Warn("payment failed", "checkout_id", id, "order_id", orderID, "error", err)
	}
	return snapshot, err
}

// Abandon drops the session and returns to browsing. The cart is kept.
func (s *CheckoutService) Abandon() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !domain.CanTransitionTo(s.status, domain.CheckoutStatusBrowsing) {
		return fmt.Errorf("%w: abandon from %s", domain.ErrIllegalTransition, s.status)
	}
	s.status = domain.CheckoutStatusBrowsing
	s.session = nil
	s.payment.Reset()
	return nil
}

// transition moves the state machine. Callers hold s.mu and have checked the edge.
func (s *CheckoutService) transition(to domain.CheckoutStatus) {
	s.log.Debug("checkout transition", "from", s.status, "to", to)
	s.status = to
	if s.session != nil {
		s.session.Status = to
	}
}

func (s *CheckoutService) markCompleted(ctx context.Context, orderID int64) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.MarkCompleted(ctx, orderID); err != nil {
		s.log.Error("ledger mark completed failed", "order_id", orderID, "error", err)
	}
}

func (s *CheckoutService) publish(ctx context.Context, typ domain.CheckoutEventType, session *domain.CheckoutSession, total decimal.Decimal) {
	if s.events == nil || session == nil {
		return
	}
	event := domain.CheckoutEvent{
		Type:        typ,
		CheckoutID:  session.ID,
		UserID:      s.userID,
		OrderIDs:    session.SubmittedOrderIDs,
		LastOrderID: session.LastOrderID,
		Total:       total,
		Error:       session.ErrorMessage(),
		OccurredAt:  time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Error("publish checkout event failed", "event_type", typ, "checkout_id", session.ID, "error", err)
	}
}
