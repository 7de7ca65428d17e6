package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckoutSession is the transient, in-memory record of one checkout attempt.
type CheckoutSession struct {
	ID                uuid.UUID       `json:"checkout_id"`
	UserID            int64           `json:"user_id"`
	Status            CheckoutStatus  `json:"status"`
	SubmittedOrderIDs []int64         `json:"submitted_order_ids"`
	LastOrderID       int64           `json:"last_order_id,omitempty"`
	HasLastOrder      bool            `json:"has_last_order"`
	Lines             []CartLine      `json:"lines"` // frozen at submission
	Total             decimal.Decimal `json:"total"`
	Err               error           `json:"-"`
}

// ErrorMessage is the user-visible form of the session error.
func (s CheckoutSession) ErrorMessage() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// Clone returns a copy safe to hand out of the controller.
func (s *CheckoutSession) Clone() *CheckoutSession {
	if s == nil {
		return nil
	}
	c := *s
	c.SubmittedOrderIDs = append([]int64(nil), s.SubmittedOrderIDs...)
	c.Lines = append([]CartLine(nil), s.Lines...)
	return &c
}
