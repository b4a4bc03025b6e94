package checkout

import (
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/pricing"
)

// State is a read-only snapshot of the flow for rendering.
type State struct {
	Active        bool                `json:"active"`
	Step          domain.CheckoutStep `json:"step,omitempty"`
	Shipping      domain.ShippingInfo `json:"shipping"`
	Payment       domain.PaymentInfo  `json:"payment"`
	PaymentMethod string              `json:"paymentMethod"`
	Notes         string              `json:"notes,omitempty"`
	LastError     string              `json:"lastError,omitempty"`
	Order         *domain.Order       `json:"order,omitempty"`
}

type Preview struct {
	Items  []domain.OrderItem `json:"items"`
	Totals pricing.Totals     `json:"totals"`
}

func previewOf(cart domain.CartState) Preview {
	return Preview{
		Items:  domain.OrderItemsFromCart(cart.Items),
		Totals: pricing.Summarize(cart.Items),
	}
}

func (f *Flow) snapshotLocked() State {
	s := State{
		Active:        f.active,
		Step:          f.step,
		Shipping:      f.shipping,
		Payment:       f.payment.Masked(),
		PaymentMethod: PaymentMethodCOD,
		Notes:         f.notes,
	}
	if f.lastErr != nil {
		s.LastError = f.lastErr.Error()
	}
	if f.order != nil {
		o := *f.order
		s.Order = &o
	}
	return s
}
