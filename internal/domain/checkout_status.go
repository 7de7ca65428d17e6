package domain

type CheckoutStatus string

const (
	CheckoutStatusBrowsing         CheckoutStatus = "BROWSING"
	CheckoutStatusSubmitting       CheckoutStatus = "SUBMITTING"
	CheckoutStatusAwaitingPayment  CheckoutStatus = "AWAITING_PAYMENT"
	CheckoutStatusPaying           CheckoutStatus = "PAYING"
	CheckoutStatusConfirmed        CheckoutStatus = "CONFIRMED"
	CheckoutStatusSubmissionFailed CheckoutStatus = "SUBMISSION_FAILED"
	CheckoutStatusPaymentFailed    CheckoutStatus = "PAYMENT_FAILED"
)

var transitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusBrowsing:         {CheckoutStatusSubmitting},
	CheckoutStatusSubmitting:       {CheckoutStatusAwaitingPayment, CheckoutStatusSubmissionFailed},
	CheckoutStatusAwaitingPayment:  {CheckoutStatusPaying, CheckoutStatusBrowsing},
	CheckoutStatusPaying:           {CheckoutStatusConfirmed, CheckoutStatusPaymentFailed, CheckoutStatusAwaitingPayment},
	CheckoutStatusConfirmed:        {CheckoutStatusBrowsing, CheckoutStatusSubmitting},
	CheckoutStatusSubmissionFailed: {CheckoutStatusSubmitting, CheckoutStatusBrowsing},
	CheckoutStatusPaymentFailed:    {CheckoutStatusPaying, CheckoutStatusBrowsing},
}

// CanTransitionTo reports whether the checkout lifecycle allows from -> to.
func CanTransitionTo(from, to CheckoutStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal is true for the states that end a checkout session.
func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusConfirmed || s == CheckoutStatusSubmissionFailed || s == CheckoutStatusPaymentFailed
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}
