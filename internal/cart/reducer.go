package cart

import (
	"errors"
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

var (
	ErrInvalidItem     = errors.New("invalid cart item")
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

type actionKind int

const (
	actionAdd actionKind = iota
	actionRemove
	actionUpdateQuantity
	actionClear
)

func (k actionKind) String() string {
	switch k {
	case actionAdd:
		return "add"
	case actionRemove:
		return "remove"
	case actionUpdateQuantity:
		return "update_quantity"
	case actionClear:
		return "clear"
	}
	return "unknown"
}

type action struct {
	kind      actionKind
	item      domain.CartLineItem
	productID string
	quantity  int
}

// reduce is pure: it never mutates state and always recomputes totals.
func reduce(state domain.CartState, a action) (domain.CartState, error) {
	switch a.kind {
	case actionAdd:
		if err := validateItem(a.item); err != nil {
			return state, err
		}
		items := copyItems(state.Items)
		if i, ok := state.Find(a.item.ProductID); ok {
			items[i].Quantity += a.item.Quantity
		} else {
			items = append(items, a.item)
		}
		return domain.NewCartState(items), nil

	case actionRemove:
		items := make([]domain.CartLineItem, 0, len(state.Items))
		for _, it := range state.Items {
			if it.ProductID != a.productID {
				items = append(items, it)
			}
		}
		return domain.NewCartState(items), nil

	case actionUpdateQuantity:
		if a.quantity <= 0 {
			return state, fmt.Errorf("%w: got %d", ErrInvalidQuantity, a.quantity)
		}
		items := copyItems(state.Items)
		if i, ok := state.Find(a.productID); ok {
			items[i].Quantity = a.quantity
		}
		return domain.NewCartState(items), nil

	case actionClear:
		return domain.EmptyCart(), nil
	}
	return state, fmt.Errorf("unknown cart action %d", a.kind)
}

func validateItem(item domain.CartLineItem) error {
	switch {
	case item.ProductID == "":
		return fmt.Errorf("%w: productId is required", ErrInvalidItem)
	case item.Quantity <= 0:
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidItem)
	case item.UnitPrice.IsNegative():
		return fmt.Errorf("%w: unit price must not be negative", ErrInvalidItem)
	}
	return nil
}

func copyItems(items []domain.CartLineItem) []domain.CartLineItem {
	out := make([]domain.CartLineItem, len(items), len(items)+1)
	copy(out, items)
	return out
}
