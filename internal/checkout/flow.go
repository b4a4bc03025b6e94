// Package checkout implements the multi-step checkout flow:
// shipping, payment, review, then a single guarded order submission.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/pricing"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// PaymentMethodCOD is the only tag the order service accepts, payment itself is simulated.
const PaymentMethodCOD = "COD"

var (
	ErrLoginRequired      = errors.New("login required to check out")
	ErrEmptyCart          = errors.New("cart is empty, nothing to checkout")
	ErrNoCheckout         = errors.New("no checkout in progress")
	ErrIllegalTransition  = errors.New("illegal checkout transition")
	ErrSubmissionInFlight = errors.New("order submission already in flight")
	ErrAbandoned          = errors.New("checkout was abandoned")
)

type Cart interface {
	State() domain.CartState
	Clear(ctx context.Context) (domain.CartState, error)
}

type Session interface {
	Session() (domain.AuthSession, bool)
	HandleUnauthorized(ctx context.Context)
}

type OrderAPI interface {
	PlaceOrder(ctx context.Context, token, idempotencyKey string, in api.OrderRequest) (domain.Order, error)
}

// OrderNotifier is told about every confirmed order.
type OrderNotifier interface {
	OrderPlaced(ctx context.Context, userID, idempotencyKey string, order domain.Order) error
}

type Flow struct {
	cart      Cart
	session   Session
	orders    OrderAPI
	notifiers []OrderNotifier
	tracer    trace.Tracer
	log       logrus.FieldLogger

	mu       sync.Mutex
	active   bool
	gen      uint64
	userID   string
	step     domain.CheckoutStep
	shipping domain.ShippingInfo
	payment  domain.PaymentInfo
	notes    string
	lastErr  error
	order    *domain.Order
}

func NewFlow(cart Cart, session Session, orders OrderAPI, log logrus.FieldLogger) *Flow {
	return &Flow{
		cart:    cart,
		session: session,
		orders:  orders,
		tracer:  otel.Tracer("github.com/fjod/go_cart/storefront/internal/checkout"),
		log:     log.WithField("component", "checkout"),
	}
}

// WithNotifier adds an order notifier. Notifier failures are logged only.
func (f *Flow) WithNotifier(n OrderNotifier) *Flow {
	f.notifiers = append(f.notifiers, n)
	return f
}

// Begin enters the flow at the shipping step. The shipping name is
// prefilled from the session.
func (f *Flow) Begin() (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.active && f.step == domain.CheckoutStepSubmitting {
		return f.snapshotLocked(), ErrSubmissionInFlight
	}
	session, ok := f.session.Session()
	if !ok {
		f.resetLocked()
		return f.snapshotLocked(), ErrLoginRequired
	}
	if f.cart.State().IsEmpty() {
		f.resetLocked()
		return f.snapshotLocked(), ErrEmptyCart
	}

	f.resetLocked()
	f.active = true
	f.userID = session.UserID
	f.step = domain.CheckoutStepShipping
	f.shipping.FullName = session.DisplayName
	f.log.WithField("user_id", session.UserID).Debug("checkout started")
	return f.snapshotLocked(), nil
}

func (f *Flow) SubmitShipping(info domain.ShippingInfo) (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.expectLocked(domain.CheckoutStepShipping); err != nil {
		return f.snapshotLocked(), err
	}
	if missing := info.Missing(); len(missing) > 0 {
		return f.snapshotLocked(), api.NewValidationError(missing...)
	}
	f.shipping = info
	f.step = domain.CheckoutStepPayment
	return f.snapshotLocked(), nil
}

func (f *Flow) SubmitPayment(info domain.PaymentInfo) (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.expectLocked(domain.CheckoutStepPayment); err != nil {
		return f.snapshotLocked(), err
	}
	if missing := info.Missing(); len(missing) > 0 {
		return f.snapshotLocked(), api.NewValidationError(missing...)
	}
	f.payment = info
	f.step = domain.CheckoutStepReview
	return f.snapshotLocked(), nil
}

// SetNotes records free-form order notes on the review step.
func (f *Flow) SetNotes(notes string) (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.expectLocked(domain.CheckoutStepReview, domain.CheckoutStepFailed); err != nil {
		return f.snapshotLocked(), err
	}
	f.notes = notes
	return f.snapshotLocked(), nil
}

// Back regresses one step. Collected data is kept.
func (f *Flow) Back() (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.active {
		return f.snapshotLocked(), ErrNoCheckout
	}
	var prev domain.CheckoutStep
	switch f.step {
	case domain.CheckoutStepPayment:
		prev = domain.CheckoutStepShipping
	case domain.CheckoutStepReview, domain.CheckoutStepFailed:
		prev = domain.CheckoutStepPayment
	default:
		return f.snapshotLocked(), fmt.Errorf("%w: cannot go back from %s", ErrIllegalTransition, f.step)
	}
	if !f.step.CanTransitionTo(prev) {
		return f.snapshotLocked(), fmt.Errorf("%w: %s to %s", ErrIllegalTransition, f.step, prev)
	}
	f.step = prev
	return f.snapshotLocked(), nil
}

// PlaceOrder submits the order once. While a submission is in flight every
// other call gets ErrSubmissionInFlight and no request is sent.
func (f *Flow) PlaceOrder(ctx context.Context) (domain.Order, error) {
	f.mu.Lock()
	if err := f.expectLocked(domain.CheckoutStepReview, domain.CheckoutStepFailed); err != nil {
		f.mu.Unlock()
		return domain.Order{}, err
	}
	session, ok := f.session.Session()
	if !ok || session.UserID != f.userID {
		// the draft belongs to a session that is gone
		f.resetLocked()
		f.mu.Unlock()
		return domain.Order{}, ErrLoginRequired
	}
	cartState := f.cart.State()
	if cartState.IsEmpty() {
		f.mu.Unlock()
		return domain.Order{}, ErrEmptyCart
	}

	key := uuid.NewString()
	req := buildOrderRequest(cartState, f.shipping, f.notes)
	f.step = domain.CheckoutStepSubmitting
	f.lastErr = nil
	gen := f.gen
	f.mu.Unlock()

	ctx, span := f.tracer.Start(ctx, "checkout.PlaceOrder", trace.WithAttributes(
		attribute.String("checkout.idempotency_key", key),
		attribute.Int("checkout.items", len(req.OrderItems)),
	))
	defer span.End()

	log := f.log.WithFields(logrus.Fields{"user_id": session.UserID, "idempotency_key": key})
	order, err := f.orders.PlaceOrder(ctx, session.Token, key, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	f.mu.Lock()
	if gen != f.gen {
		f.mu.Unlock()
		if err == nil {
			// the order exists on the server, so the cart must not be reused
			log.WithField("order_id", order.ID).Warn("order confirmed after checkout was abandoned")
			f.clearCart(ctx, log)
		}
		return domain.Order{}, ErrAbandoned
	}

	if err != nil {
		if api.IsAuth(err) {
			f.resetLocked()
			f.mu.Unlock()
			log.Info("token rejected during checkout, dropping session")
			f.session.HandleUnauthorized(ctx)
			return domain.Order{}, fmt.Errorf("place order failed: %w", err)
		}
		f.step = domain.CheckoutStepFailed
		f.lastErr = err
		f.mu.Unlock()
		log.WithError(err).Warn("order submission failed")
		return domain.Order{}, fmt.Errorf("place order failed: %w", err)
	}

	f.step = domain.CheckoutStepConfirmed
	f.order = &order
	f.mu.Unlock()

	span.SetAttributes(attribute.String("checkout.order_id", order.ID))
	log.WithField("order_id", order.ID).Info("order placed")
	f.clearCart(ctx, log)

	for _, n := range f.notifiers {
		if err := n.OrderPlaced(ctx, session.UserID, key, order); err != nil {
			log.WithError(err).Error("failed to notify order placed")
		}
	}
	return order, nil
}

func (f *Flow) clearCart(ctx context.Context, log logrus.FieldLogger) {
	if _, err := f.cart.Clear(ctx); err != nil {
		log.WithError(err).Error("failed to clear cart after order")
	}
}

// Abandon leaves the flow. A submission still in flight finishes without
// touching the flow state.
func (f *Flow) Abandon() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetLocked()
}

// SessionChanged drops the draft when the user signs out or the token is rejected.
// It is meant for auth.Holder.OnChange.
func (f *Flow) SessionChanged(authenticated bool) {
	if authenticated {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active {
		f.log.Info("session dropped, checkout discarded")
	}
	f.resetLocked()
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// Preview is the review screen: a snapshot of the cart and its totals.
func (f *Flow) Preview() (Preview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.active {
		return Preview{}, ErrNoCheckout
	}
	return previewOf(f.cart.State()), nil
}

func (f *Flow) expectLocked(allowed ...domain.CheckoutStep) error {
	if !f.active {
		return ErrNoCheckout
	}
	if f.step == domain.CheckoutStepSubmitting {
		return ErrSubmissionInFlight
	}
	for _, s := range allowed {
		if f.step == s {
			return nil
		}
	}
	return fmt.Errorf("%w: not allowed in %s", ErrIllegalTransition, f.step)
}

func (f *Flow) resetLocked() {
	f.gen++
	f.active = false
	f.userID = ""
	f.step = ""
	f.shipping = domain.ShippingInfo{}
	f.payment = domain.PaymentInfo{}
	f.notes = ""
	f.lastErr = nil
	f.order = nil
}

func buildOrderRequest(cart domain.CartState, shipping domain.ShippingInfo, notes string) api.OrderRequest {
	totals := pricing.Summarize(cart.Items)
	lines := make([]api.OrderLine, 0, len(cart.Items))
	for _, it := range cart.Items {
		lines = append(lines, api.OrderLine{
			Name:    it.Name,
			Qty:     it.Quantity,
			Image:   it.ImageRef,
			Price:   it.UnitPrice.InexactFloat64(),
			Product: it.ProductID,
		})
	}
	return api.OrderRequest{
		OrderItems:    lines,
		ShippingInfo:  shipping,
		PaymentMethod: PaymentMethodCOD,
		ItemsPrice:    totals.Subtotal.InexactFloat64(),
		TaxPrice:      totals.Tax.InexactFloat64(),
		ShippingPrice: totals.Shipping.InexactFloat64(),
		TotalPrice:    totals.GrandTotal.InexactFloat64(),
		Notes:         notes,
	}
}
