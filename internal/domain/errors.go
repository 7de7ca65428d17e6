package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrOutOfStock            = errors.New("product is out of stock")
	ErrInsufficientStock     = errors.New("requested quantity exceeds available stock")
	ErrInvalidQuantity       = errors.New("quantity must be at least 1")
	ErrInvalidQuantityChange = errors.New("quantity change must be inc or dec")
	ErrInvalidPromoCode      = errors.New("invalid promo code")
	ErrEmptyCart             = errors.New("cart is empty, nothing to checkout")
	ErrIllegalTransition     = errors.New("illegal transition of checkout status")
	ErrNotConfirmed          = errors.New("action was not confirmed")
)

// FieldError is a single rejected payment form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// PaymentValidationError lists every payment field that failed validation.
type PaymentValidationError struct {
	Fields []FieldError
}

func (e *PaymentValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return "payment validation failed: " + strings.Join(msgs, "; ")
}

// Has reports whether field is among the failures.
func (e *PaymentValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// OrderCreationError is returned when the backend refuses to create an order.
type OrderCreationError struct {
	ProductID  int64
	StatusCode int
	Message    string
	Err        error
}

func (e *OrderCreationError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("create order for product %d failed with status %d: %s", e.ProductID, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("create order for product %d failed: %v", e.ProductID, e.Err)
	default:
		return fmt.Sprintf("create order for product %d failed: %s", e.ProductID, e.Message)
	}
}

func (e *OrderCreationError) Unwrap() error {
	return e.Err
}

// PaymentFinalizationError is returned when the backend refuses to complete an order.
type PaymentFinalizationError struct {
	OrderID    int64
	StatusCode int
	Message    string
	Err        error
}

func (e *PaymentFinalizationError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("complete order %d failed with status %d: %s", e.OrderID, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("complete order %d failed: %v", e.OrderID, e.Err)
	default:
		return fmt.Sprintf("complete order %d failed: %s", e.OrderID, e.Message)
	}
}

func (e *PaymentFinalizationError) Unwrap() error {
	return e.Err
}

// NetworkError wraps a transport failure talking to the backend.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsValidationError is true for errors that are recovered locally and leave state untouched.
func IsValidationError(err error) bool {
	var pv *PaymentValidationError
	return errors.Is(err, ErrOutOfStock) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrInvalidPromoCode) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidQuantityChange) ||
		errors.As(err, &pv)
}
