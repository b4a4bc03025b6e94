// Package pricing derives order totals from cart lines. Every screen that
// shows money (cart summary, checkout review, order payload) goes through Summarize.
package pricing

import (
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	FreeShippingThreshold = decimal.NewFromInt(50)
	FlatShippingFee       = decimal.RequireFromString("4.99")
	TaxRate               = decimal.RequireFromString("0.07")
)

type Totals struct {
	ItemCount  int             `json:"itemCount"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Shipping   decimal.Decimal `json:"shipping"`
	Tax        decimal.Decimal `json:"tax"`
	GrandTotal decimal.Decimal `json:"grandTotal"`
}

func Summarize(items []domain.CartLineItem) Totals {
	count, subtotal := domain.SumLines(items)
	shipping := ShippingFor(subtotal)
	if len(items) == 0 {
		shipping = decimal.Zero
	}
	tax := TaxFor(subtotal)
	return Totals{
		ItemCount:  count,
		Subtotal:   subtotal,
		Shipping:   shipping,
		Tax:        tax,
		GrandTotal: subtotal.Add(shipping).Add(tax),
	}
}

// ShippingFor is free at or above the threshold.
func ShippingFor(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(FreeShippingThreshold) {
		return decimal.Zero
	}
	return FlatShippingFee
}

// TaxFor rounds to cents.
func TaxFor(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(TaxRate).Round(2)
}
