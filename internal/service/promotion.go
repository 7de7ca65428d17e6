package service

import (
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultPromoCodes is used when no table is configured.
func DefaultPromoCodes() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"SAVE50":  decimal.NewFromInt(50),
		"SAVE100": decimal.NewFromInt(100),
	}
}

// PromotionEvaluator maps a promo code to a flat discount. Codes never stack and never expire.
type PromotionEvaluator struct {
	codes map[string]decimal.Decimal
}

func NewPromotionEvaluator(codes map[string]decimal.Decimal) *PromotionEvaluator {
	if len(codes) == 0 {
		codes = DefaultPromoCodes()
	}
	normalized := make(map[string]decimal.Decimal, len(codes))
	for code, discount := range codes {
		normalized[strings.ToUpper(code)] = discount
	}
	return &PromotionEvaluator{codes: normalized}
}

// Evaluate matches code case-insensitively. Surrounding whitespace is not trimmed.
func (p *PromotionEvaluator) Evaluate(code string) (decimal.Decimal, error) {
	discount, ok := p.codes[strings.ToUpper(code)]
	if !ok || code == "" {
		return decimal.Zero, domain.ErrInvalidPromoCode
	}
	return discount, nil
}
