// Package pricing computes booking totals from line items and discounts.
//
// All arithmetic uses shopspring/decimal at full precision. Rounding to two
// places happens only in FormatMoney.
package pricing

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// LineItem is one priced service on a booking.
type LineItem struct {
	Name           string          `json:"name" validate:"required"`
	Category       string          `json:"category,omitempty"`
	UnitPrice      decimal.Decimal `json:"price"`
	SelectedOption string          `json:"selectedOption,omitempty"`
}

// DiscountKind distinguishes bundle discounts from promo codes.
type DiscountKind string

const (
	KindBundle DiscountKind = "bundle"
	KindPromo  DiscountKind = "promo"
)

// Discount describes a bundle or promo discount. FixedValue wins over
// Percentage when both are set. Promo discounts only honor FixedValue.
type Discount struct {
	Kind       DiscountKind     `json:"kind,omitempty" validate:"omitempty,oneof=bundle promo"`
	Name       string           `json:"name,omitempty"`
	Code       string           `json:"code,omitempty"`
	Percentage *decimal.Decimal `json:"percentage,omitempty"`
	FixedValue *decimal.Decimal `json:"fixedValue,omitempty"`
}

// Summary holds unrounded booking totals.
type Summary struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	BundleDiscount decimal.Decimal `json:"bundleDiscount"`
	PromoDiscount  decimal.Decimal `json:"promoDiscount"`
	Total          decimal.Decimal `json:"total"`
}

// Summarize totals items and applies the bundle discount, then the promo.
// Custom bundles never discount. The total is clamped at zero.
func Summarize(items []LineItem, bundle, promo *Discount, customBundle bool) Summary {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.UnitPrice)
	}

	bundleValue := decimal.Zero
	if bundle != nil && !customBundle {
		switch {
		case bundle.FixedValue != nil:
			bundleValue = *bundle.FixedValue
		case bundle.Percentage != nil:
			bundleValue = subtotal.Mul(*bundle.Percentage).Div(hundred)
		}
	}

	promoValue := decimal.Zero
	if promo != nil && promo.FixedValue != nil {
		promoValue = *promo.FixedValue
	}

	total := subtotal.Sub(bundleValue).Sub(promoValue)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Summary{
		Subtotal:       subtotal,
		BundleDiscount: bundleValue,
		PromoDiscount:  promoValue,
		Total:          total,
	}
}

// FormatMoney renders d as symbol plus exactly two decimal places. Negative
// amounts put the sign before the symbol.
func FormatMoney(symbol string, d decimal.Decimal) string {
	if d.IsNegative() {
		return "-" + symbol + d.Neg().StringFixed(2)
	}
	return symbol + d.StringFixed(2)
}

// Formatted is a Summary rendered for display.
type Formatted struct {
	Subtotal       string `json:"subtotal"`
	BundleDiscount string `json:"bundleDiscount"`
	PromoDiscount  string `json:"promoDiscount"`
	Total          string `json:"total"`
}

// Format renders every amount with FormatMoney.
func (s Summary) Format(symbol string) Formatted {
	return Formatted{
		Subtotal:       FormatMoney(symbol, s.Subtotal),
		BundleDiscount: FormatMoney(symbol, s.BundleDiscount),
		PromoDiscount:  FormatMoney(symbol, s.PromoDiscount),
		Total:          FormatMoney(symbol, s.Total),
	}
}
