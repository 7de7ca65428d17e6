package domain

import "github.com/shopspring/decimal"

// Product is the catalog view of an item as returned by the backend.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	Description string          `json:"description,omitempty"`
}

// CartLine is one product entry in the cart. Stock is the snapshot seen
// when the line was last added, not a live value.
type CartLine struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Stock     int             `json:"stock"`
	Quantity  int             `json:"quantity"`
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// QuantityChange is the only step the cart accepts for in-place edits.
type QuantityChange int

const (
	Decrement QuantityChange = -1
	Increment QuantityChange = 1
)

// ParseQuantityChange accepts "inc"/"dec" as sent by the storefront.
func ParseQuantityChange(s string) (QuantityChange, error) {
	switch s {
	case "inc", "+1", "increment":
		return Increment, nil
	case "dec", "-1", "decrement":
		return Decrement, nil
	default:
		return 0, ErrInvalidQuantityChange
	}
}

type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// PromotionState is derived from the last applied code and never persisted.
type PromotionState struct {
	Code     string          `json:"code,omitempty"`
	Discount decimal.Decimal `json:"discount"`
}
