package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrInvalidCartState = errors.New("invalid cart state")

// CartLineItem is one product entry in the cart. ProductID is unique within a cart.
type CartLineItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	ImageRef  string          `json:"imageRef"`
	Quantity  int             `json:"quantity"`
}

func (i CartLineItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CartState holds the line items plus projections derived from them.
// TotalItemCount and TotalPrice are never set directly, use NewCartState.
type CartState struct {
	Items          []CartLineItem  `json:"items"`
	TotalItemCount int             `json:"totalItemCount"`
	TotalPrice     decimal.Decimal `json:"totalPrice"`
}

func EmptyCart() CartState {
	return CartState{Items: []CartLineItem{}, TotalPrice: decimal.Zero}
}

// NewCartState builds a state from items and recomputes the totals.
func NewCartState(items []CartLineItem) CartState {
	count, subtotal := SumLines(items)
	cp := make([]CartLineItem, len(items))
	copy(cp, items)
	return CartState{Items: cp, TotalItemCount: count, TotalPrice: subtotal}
}

// SumLines returns the total quantity and the sum of line totals.
func SumLines(items []CartLineItem) (int, decimal.Decimal) {
	count := 0
	subtotal := decimal.Zero
	for _, it := range items {
		count += it.Quantity
		subtotal = subtotal.Add(it.LineTotal())
	}
	return count, subtotal
}

func (s CartState) IsEmpty() bool {
	return len(s.Items) == 0
}

// Find returns the index of the line with productID.
func (s CartState) Find(productID string) (int, bool) {
	for i, it := range s.Items {
		if it.ProductID == productID {
			return i, true
		}
	}
	return -1, false
}

func (s CartState) Clone() CartState {
	return NewCartState(s.Items)
}

// Validate checks the structural invariants of a cart loaded from outside.
func (s CartState) Validate() error {
	seen := make(map[string]struct{}, len(s.Items))
	for i, it := range s.Items {
		if it.ProductID == "" {
			return fmt.Errorf("%w: item %d has empty productId", ErrInvalidCartState, i)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: item %s has quantity %d", ErrInvalidCartState, it.ProductID, it.Quantity)
		}
		if it.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: item %s has negative price", ErrInvalidCartState, it.ProductID)
		}
		if _, dup := seen[it.ProductID]; dup {
			return fmt.Errorf("%w: duplicate productId %s", ErrInvalidCartState, it.ProductID)
		}
		seen[it.ProductID] = struct{}{}
	}
	return nil
}
