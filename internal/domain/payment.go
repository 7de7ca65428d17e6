package domain

// PaymentForm carries the synthetic card details of the demo gateway.
type PaymentForm struct {
	CardNumber     string `json:"card_number"`
	Expiry         string `json:"expiry"`
	CVV            string `json:"cvv"`
	CardholderName string `json:"cardholder_name"`
}

type PaymentState string

const (
	PaymentStateIdle       PaymentState = "IDLE"
	PaymentStateValidating PaymentState = "VALIDATING"
	PaymentStateProcessing PaymentState = "PROCESSING"
	PaymentStateCompleted  PaymentState = "COMPLETED"
	PaymentStateFailed     PaymentState = "FAILED"
)
