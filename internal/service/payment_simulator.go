package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
)

const DefaultPaymentDelay = 1800 * time.Millisecond

type cartClearer interface {
	removePaid(ctx context.Context, paid []domain.CartLine) error
}

type PaymentOption func(*PaymentSimulator)

func WithPaymentDelay(d time.Duration) PaymentOption {
	return func(p *PaymentSimulator) { p.delay = d }
}

// WithCartClearer takes the paid lines out of cart after a completed payment.
func WithCartClearer(cart *CartService) PaymentOption {
	return func(p *PaymentSimulator) { p.clearer = cart }
}

func WithPaymentLogger(l *slog.Logger) PaymentOption {
	return func(p *PaymentSimulator) { p.log = l }
}

// PaymentSimulator is the demo gateway: it validates a card form, waits a
// fixed delay and then completes one order on the backend.
type PaymentSimulator struct {
	gateway OrderGateway
	delay   time.Duration
	clearer cartClearer
	log     *slog.Logger

	mu    sync.Mutex
	state domain.PaymentState
}

func NewPaymentSimulator(gateway OrderGateway, opts ...PaymentOption) *PaymentSimulator {
	p := &PaymentSimulator{
		gateway: gateway,
		delay:   DefaultPaymentDelay,
		log:     logger.New("payment"),
		state:   domain.PaymentStateIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *PaymentSimulator) State() domain.PaymentState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *PaymentSimulator) setState(s domain.PaymentState) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func (p *PaymentSimulator) Reset() {
	p.setState(domain.PaymentStateIdle)
}

// Pay validates form and completes orderID. Validation failures leave the
// simulator in Validating and never reach the gateway. On success the paid
// lines are removed from the cart; anything added since submission stays.
func (p *PaymentSimulator) Pay(ctx context.Context, orderID int64, form domain.PaymentForm, paid []domain.CartLine) error {
	p.setState(domain.PaymentStateValidating)
	if err := ValidatePaymentForm(form); err != nil {
		return err
	}

	p.setState(domain.PaymentStateProcessing)

	if err := p.wait(ctx); err != nil {
		p.setState(domain.PaymentStateFailed)
		return &domain.PaymentFinalizationError{OrderID: orderID, Message: "payment interrupted", Err: err}
	}

	if err := p.gateway.CompleteOrder(ctx, orderID); err != nil {
		p.setState(domain.PaymentStateFailed)
		err = asFinalizationError(orderID, err)
		p.log.Warn("payment failed", "order_id", orderID, "error", err)
		return err
	}

	p.setState(domain.PaymentStateCompleted)
	p.log.Info("payment completed", "order_id", orderID)

	if p.clearer != nil {
		// the order is paid; the cart update must not depend on the caller staying connected
		if err := p.clearer.removePaid(context.WithoutCancel(ctx), paid); err != nil {
			p.log.Error("cart clear after payment failed", "order_id", orderID, "error", err)
		}
	}
	return nil
}

func (p *PaymentSimulator) wait(ctx context.Context) error {
	if p.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(p.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func asFinalizationError(orderID int64, err error) error {
	var pfe *domain.PaymentFinalizationError
	if errors.As(err, &pfe) {
		return err
	}
	return &domain.PaymentFinalizationError{OrderID: orderID, Message: err.Error(), Err: err}
}

// ValidatePaymentForm checks every field and reports all failures at once.
// Spaces between card number groups are ignored.
func ValidatePaymentForm(form domain.PaymentForm) error {
	var fields []domain.FieldError

	card := strings.ReplaceAll(form.CardNumber, " ", "")
	if len(card) != 16 || !allDigits(card) {
		fields = append(fields, domain.FieldError{Field: "card_number", Message: "enter a valid 16-digit card number"})
	}

	if !validExpiry(form.Expiry) {
		fields = append(fields, domain.FieldError{Field: "expiry", Message: "enter expiry in MM/YY format"})
	}

	if len(form.CVV) != 3 || !allDigits(form.CVV) {
		fields = append(fields, domain.FieldError{Field: "cvv", Message: "enter valid 3-digit CVV"})
	}

	if strings.TrimSpace(form.CardholderName) == "" {
		fields = append(fields, domain.FieldError{Field: "cardholder_name", Message: "enter cardholder name"})
	}

	if len(fields) > 0 {
		return &domain.PaymentValidationError{Fields: fields}
	}
	return nil
}

func validExpiry(s string) bool {
	if len(s) != 5 || s[2] != '/' {
		return false
	}
	mm, yy := s[:2], s[3:]
	if !allDigits(mm) || !allDigits(yy) {
		return false
	}
	month := int(mm[0]-'0')*10 + int(mm[1]-'0')
	return month >= 1 && month <= 12
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return false
		}
	}
	return s != ""
}
