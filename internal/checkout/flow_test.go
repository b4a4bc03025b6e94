package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSession struct {
	mu      sync.Mutex
	session *domain.AuthSession
	dropped int
}

func (m *mockSession) Session() (domain.AuthSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return domain.AuthSession{}, false
	}
	return *m.session, true
}

func (m *mockSession) HandleUnauthorized(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped++
	m.session = nil
}

type mockOrderAPI struct {
	mu       sync.Mutex
	requests []api.OrderRequest
	keys     []string
	errs     []error
	entered  chan struct{}
	release  chan struct{}
}

func (m *mockOrderAPI) PlaceOrder(_ context.Context, token, key string, in api.OrderRequest) (domain.Order, error) {
	if m.entered != nil {
		m.entered <- struct{}{}
	}
	if m.release != nil {
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, in)
	m.keys = append(m.keys, key)
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return domain.Order{}, err
		}
	}
	return domain.Order{ID: "order-1", PaymentMethod: in.PaymentMethod, CreatedAt: time.Now()}, nil
}

func (m *mockOrderAPI) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

type mockNotifier struct {
	orders []string
	keys   []string
}

func (m *mockNotifier) OrderPlaced(_ context.Context, _, key string, order domain.Order) error {
	m.orders = append(m.orders, order.ID)
	m.keys = append(m.keys, key)
	return nil
}

type fixture struct {
	flow     *Flow
	cart     *cart.Store
	session  *mockSession
	orders   *mockOrderAPI
	notifier *mockNotifier
}

func newFixture(t *testing.T) *fixture {
	log, _ := test.NewNullLogger()
	store := cart.Open(context.Background(), storage.NewMemoryStore(), log)
	session := &mockSession{session: &domain.AuthSession{UserID: "u1", DisplayName: "Ann Lee", Token: "tok"}}
	orders := &mockOrderAPI{}
	notifier := &mockNotifier{}
	flow := NewFlow(store, session, orders, log).WithNotifier(notifier)
	return &fixture{flow: flow, cart: store, session: session, orders: orders, notifier: notifier}
}

func (fx *fixture) addToCart(t *testing.T, id, price string, qty int) {
	_, err := fx.cart.AddItem(context.Background(), domain.CartLineItem{
		ProductID: id, Name: "Item " + id, UnitPrice: decimal.RequireFromString(price), Quantity: qty,
	})
	require.NoError(t, err)
}

func shippingInfo() domain.ShippingInfo {
	return domain.ShippingInfo{
		FullName: "Ann Lee", AddressLine: "1 Main St", City: "Pune", State: "MH",
		PostalCode: "411001", Country: "India", Phone: "5550100",
	}
}

func paymentInfo() domain.PaymentInfo {
	return domain.PaymentInfo{CardNumber: "4111111111111111", CardName: "Ann Lee", ExpiryDate: "12/30", CVV: "123"}
}

func (fx *fixture) toReview(t *testing.T) {
	_, err := fx.flow.Begin()
	require.NoError(t, err)
	_, err = fx.flow.SubmitShipping(shippingInfo())
	require.NoError(t, err)
	state, err := fx.flow.SubmitPayment(paymentInfo())
	require.NoError(t, err)
	require.Equal(t, domain.CheckoutStepReview, state.Step)
}

func TestBegin_RequiresLogin(t *testing.T) {
	fx := newFixture(t)
	fx.addToCart(t, "p1", "10", 1)
	fx.session.session = nil

	state, err := fx.flow.Begin()
	assert.ErrorIs(t, err, ErrLoginRequired)
	assert.False(t, state.Active)
}

func TestBegin_EmptyCart(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.flow.Begin()
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestBegin_PrefillsName(t *testing.T) {
	fx := newFixture(t)
	fx.addToCart(t, "p1", "10", 1)

	state, err := fx.flow.Begin()
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStepShipping, state.Step)
	assert.Equal(t, "Ann Lee", state.Shipping.FullName)
}

func TestSubmitShipping_ValidationBlocksAdvance(t *testing.T) {
	fx := newFixture(t)
	fx.addToCart(t, "p1", "10", 1)
	fx.flow.Begin()

	info := shippingInfo()
	info.PostalCode = ""
	state, err := fx.flow.SubmitShipping(info)

	var v *api.ValidationError
	require.ErrorAs(t, err, &v)
	assert.Equal(t, []string{"postalCode"}, v.Fields)
	assert.Equal(t, domain.CheckoutStepShipping, state.Step)
}

func TestSubmitPayment_ValidationAndSkipping(t *testing.T) {
	fx := newFixture(t)
	fx.addToCart(t, "p1", "10", 1)
	fx.flow.Begin()

	_, err := fx.flow.SubmitPayment(paymentInfo())
	assert.ErrorIs(t, err, ErrIllegalTransition)

	fx.flow.SubmitShipping(shippingInfo())
	_, err = fx.flow.SubmitPayment(domain.PaymentInfo{CardNumber: "4111"})
	assert.True(t, api.IsValidation(err))
	assert.Equal(t, domain.CheckoutStepPayment, fx.flow.State().Step)
}

func TestBack_RegressesOneStep(t *testing.T) {
	fx := newFixture(t)
	fx.addToCart(t, "p1", "10", 1)
	fx.toReview(t)

	state, err := fx.flow.Back()
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStepPayment, state.Step)

	state, err = fx.flow.Back()
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStepShipping, state.Step)
	assert.Equal(t, "Pune", state.Shipping.City)

	_, err = fx.flow.Back()
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestPlaceOrder_Success(t *testing.T) {
	fx := newFixture(t)
	fx.addToCart(t, "p1", "20", 2)
	fx.toReview(t)
	fx.flow.SetNotes("leave at door")

	order, err := fx.flow.PlaceOrder(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "order-1", order.ID)

	require.Len(t, fx.orders.requests, 1)
	req := fx.orders.requests[0]
	assert.Equal(t, PaymentMethodCOD, req.PaymentMethod)
	assert.Equal(t, 40.0, req.ItemsPrice)
	assert.Equal(t, 2.8, req.TaxPrice)
	assert.Equal(t, 4.99, req.ShippingPrice)
	assert.Equal(t, 47.79, req.TotalPrice)
	assert.Equal(t, "leave at door", req.Notes)
	assert.Equal(t, "p1", req.OrderItems[0].Product)
	assert.Equal(t, 2, req.OrderItems[0].Qty)
	assert.NotEmpty(t, fx.orders.keys[0])

	state := fx.flow.State()
	assert.Equal(t, domain.CheckoutStepConfirmed, state.Step)
	require.NotNil(t, state.Order)
	assert.True(t, fx.cart.State().IsEmpty())
	assert.Equal(t, []string{"order-1"}, fx.notifier.orders)
	assert.Equal(t, fx.orders.keys, fx.notifier.keys)
}

func TestPlaceOrder_FailureKeepsCartAndAllowsRetry(t *testing.T) {
	fx := newFixture(t)
	fx.addToCart(t, "p1", "60", 1)
	fx.toReview(t)
	fx.orders.errs = []error{&api.NetworkError{Err: errors.New("connection reset")}}

	_, err := fx.flow.PlaceOrder(context.Background())
	assert.True(t, api.IsNetwork(err))

	state := fx.flow.State()
	assert.Equal(t, domain.CheckoutStepFailed, state.Step)
	assert.NotEmpty(t, state.LastError)
	assert.Equal(t, "Pune", state.Shipping.City)
	assert.False(t, fx.cart.State().IsEmpty())

	order, err := fx.flow.PlaceOrder(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "order-1", order.ID)
	require.Len(t, fx.orders.keys, 2)
	assert.NotEqual(t, fx.orders.keys[0], fx.orders.keys[1])
	assert.Equal(t, 0.0, fx.orders.requests[1].ShippingPrice)
}

func TestPlaceOrder_SingleSubmissionWhileInFlight(t *testing.T) {
	fx := newFixture(t)
	fx.addToCart(t, "p1", "10", 1)
	fx.toReview(t)
	fx.orders.entered = make(chan struct{}, 1)
	fx.orders.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := fx.flow.PlaceOrder(context.Background())
		done <- err
	}()
	<-fx.orders.entered

	for i := 0; i < 3; i++ {
		_, err := fx.flow.PlaceOrder(context.Background())
		assert.ErrorIs(t, err, ErrSubmissionInFlight)
	}
	_, err := fx.flow.Back()
	assert.ErrorIs(t, err, ErrIllegalTransition)
	_, err = fx.flow.Begin()
	assert.ErrorIs(t, err, ErrSubmissionInFlight)
	assert.Equal(t, domain.CheckoutStepSubmitting, fx.flow.State().Step)

	close(fx.orders.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, fx.orders.calls())
}

func TestPlaceOrder_UnauthorizedDropsSession(t *testing.T) {
	fx := newFixture(t)
	fx.addToCart(t, "p1", "10", 1)
	fx.toReview(t)
	fx.orders.errs = []error{api.ErrUnauthorized}

	_, err := fx.flow.PlaceOrder(context.Background())
	assert.True(t, api.IsAuth(err))
	assert.Equal(t, 1, fx.session.dropped)
	assert.False(t, fx.flow.State().Active)
	assert.False(t, fx.cart.State().IsEmpty())
}

func TestPlaceOrder_OnlyFromReview(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.flow.PlaceOrder(context.Background())
	assert.ErrorIs(t, err, ErrNoCheckout)

	fx.addToCart(t, "p1", "10", 1)
	fx.flow.Begin()
	_, err = fx.flow.PlaceOrder(context.Background())
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Zero(t, fx.orders.calls())
}

func TestAbandon_DiscardsLateResult(t *testing.T) {
	fx := newFixture(t)
	fx.addToCart(t, "p1", "10", 1)
	fx.toReview(t)
	fx.orders.entered = make(chan struct{}, 1)
	fx.orders.release = make(chan struct{})
	fx.orders.errs = []error{errors.New("boom")}

	done := make(chan error, 1)
	go func() {
		_, err := fx.flow.PlaceOrder(context.Background())
		done <- err
	}()
	<-fx.orders.entered
	fx.flow.Abandon()
	close(fx.orders.release)

	assert.ErrorIs(t, <-done, ErrAbandoned)
	state := fx.flow.State()
	assert.False(t, state.Active)
	assert.Empty(t, state.LastError)
	assert.False(t, fx.cart.State().IsEmpty())
}

func TestAbandon_LateSuccessStillClearsCart(t *testing.T) {
	fx := newFixture(t)
	fx.addToCart(t, "p1", "10", 1)
	fx.toReview(t)
	fx.orders.entered = make(chan struct{}, 1)
	fx.orders.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := fx.flow.PlaceOrder(context.Background())
		done <- err
	}()
	<-fx.orders.entered
	fx.flow.Abandon()
	close(fx.orders.release)

	assert.ErrorIs(t, <-done, ErrAbandoned)
	assert.False(t, fx.flow.State().Active)
	assert.True(t, fx.cart.State().IsEmpty())
	assert.Empty(t, fx.notifier.orders)
}

func TestState_MasksCard(t *testing.T) {
	fx := newFixture(t)
	fx.addToCart(t, "p1", "10", 1)
	fx.toReview(t)

	state := fx.flow.State()
	assert.Equal(t, "************1111", state.Payment.CardNumber)
	assert.Empty(t, state.Payment.CVV)
}

func TestPreview_UsesSharedTotals(t *testing.T) {
	fx := newFixture(t)
	fx.addToCart(t, "p1", "25", 2)
	fx.toReview(t)

	preview, err := fx.flow.Preview()
	require.NoError(t, err)
	assert.Len(t, preview.Items, 1)
	assert.True(t, preview.Totals.Shipping.IsZero())
	assert.True(t, decimal.RequireFromString("53.5").Equal(preview.Totals.GrandTotal))
}

func TestPlaceOrder_DraftOfDroppedSessionIsNotSubmitted(t *testing.T) {
	fx := newFixture(t)
	fx.addToCart(t, "p1", "10", 1)
	fx.toReview(t)

	fx.session.HandleUnauthorized(context.Background())
	fx.session.session = &domain.AuthSession{UserID: "u2", DisplayName: "Bob", Token: "tok2"}

	_, err := fx.flow.PlaceOrder(context.Background())
	assert.ErrorIs(t, err, ErrLoginRequired)
	assert.Zero(t, fx.orders.calls())
	assert.False(t, fx.flow.State().Active)
	assert.Empty(t, fx.flow.State().Shipping.AddressLine)
}

func TestSessionChanged_SignOutDiscardsDraft(t *testing.T) {
	fx := newFixture(t)
	fx.addToCart(t, "p1", "10", 1)
	fx.toReview(t)

	fx.flow.SessionChanged(true)
	assert.True(t, fx.flow.State().Active)

	fx.flow.SessionChanged(false)
	state := fx.flow.State()
	assert.False(t, state.Active)
	assert.Empty(t, state.Shipping.FullName)

	_, err := fx.flow.PlaceOrder(context.Background())
	assert.ErrorIs(t, err, ErrNoCheckout)
	assert.Zero(t, fx.orders.calls())
	assert.False(t, fx.cart.State().IsEmpty())
}
