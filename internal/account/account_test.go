package account

import (
	"context"
	"testing"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSession struct {
	token   string
	dropped int
}

func (m *mockSession) Token() (string, error) {
	if m.token == "" {
		return "", auth.ErrNotAuthenticated
	}
	return m.token, nil
}

func (m *mockSession) HandleUnauthorized(context.Context) {
	m.dropped++
	m.token = ""
}

type mockAccountAPI struct {
	addresses []domain.ShippingAddress
	orders    []domain.Order
	err       error
	tokens    []string
	entered   chan struct{}
	release   chan struct{}
}

func (m *mockAccountAPI) ListAddresses(_ context.Context, token string) ([]domain.ShippingAddress, error) {
	m.tokens = append(m.tokens, token)
	return m.addresses, m.err
}

func (m *mockAccountAPI) AddAddress(_ context.Context, token string, addr domain.ShippingAddress) (domain.ShippingAddress, error) {
	if m.entered != nil {
		m.entered <- struct{}{}
	}
	if m.release != nil {
		<-m.release
	}
	m.tokens = append(m.tokens, token)
	if m.err != nil {
		return domain.ShippingAddress{}, m.err
	}
	m.addresses = append(m.addresses, addr)
	return addr, nil
}

func (m *mockAccountAPI) DeleteAddress(_ context.Context, token, id string) error {
	m.tokens = append(m.tokens, token)
	if m.err != nil {
		return m.err
	}
	kept := m.addresses[:0]
	for _, a := range m.addresses {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	m.addresses = kept
	return nil
}

func (m *mockAccountAPI) MyOrders(_ context.Context, token string) ([]domain.Order, error) {
	m.tokens = append(m.tokens, token)
	return m.orders, m.err
}

func (m *mockAccountAPI) GetOrder(_ context.Context, token, id string) (domain.Order, error) {
	for _, o := range m.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return domain.Order{}, api.ErrNotFound
}

func newService(m *mockAccountAPI, s *mockSession) (*Service, storage.Slots) {
	log, _ := test.NewNullLogger()
	slots := storage.NewMemoryStore()
	return NewService(m, s, slots, log), slots
}

func validAddress() domain.ShippingAddress {
	return domain.ShippingAddress{
		FullName: "Ann Lee", AddressLine: "1 Main St", City: "Pune", State: "MH",
		PostalCode: "411001", Country: "India", Phone: "5550100",
	}
}

func TestAddAddress_AssignsID(t *testing.T) {
	m := &mockAccountAPI{}
	svc, _ := newService(m, &mockSession{token: "tok"})

	saved, err := svc.AddAddress(context.Background(), validAddress())
	require.NoError(t, err)
	_, parseErr := uuid.Parse(saved.ID)
	assert.NoError(t, parseErr)
	assert.Equal(t, []string{"tok"}, m.tokens)
}

func TestAddAddress_TwoAddressesSamePhoneAreDistinct(t *testing.T) {
	m := &mockAccountAPI{}
	svc, _ := newService(m, &mockSession{token: "tok"})
	ctx := context.Background()

	a, err := svc.AddAddress(ctx, validAddress())
	require.NoError(t, err)
	b, err := svc.AddAddress(ctx, validAddress())
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	require.NoError(t, svc.DeleteAddress(ctx, a.ID))
	list, err := svc.Addresses(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)
}

func TestAddAddress_SecondSaveWhilePendingIsRejected(t *testing.T) {
	m := &mockAccountAPI{entered: make(chan struct{}), release: make(chan struct{})}
	svc, _ := newService(m, &mockSession{token: "tok"})
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := svc.AddAddress(ctx, validAddress())
		done <- err
	}()
	<-m.entered

	_, err := svc.AddAddress(ctx, validAddress())
	assert.ErrorIs(t, err, ErrAddressInFlight)

	close(m.release)
	require.NoError(t, <-done)
	assert.Len(t, m.addresses, 1)

	m.entered = nil
	_, err = svc.AddAddress(ctx, validAddress())
	require.NoError(t, err)
	assert.Len(t, m.addresses, 2)
}

func TestAddAddress_ValidatesRequiredFields(t *testing.T) {
	m := &mockAccountAPI{}
	svc, _ := newService(m, &mockSession{token: "tok"})

	addr := validAddress()
	addr.City = ""
	addr.Phone = " "
	_, err := svc.AddAddress(context.Background(), addr)

	var v *api.ValidationError
	require.ErrorAs(t, err, &v)
	assert.Equal(t, []string{"city", "phone"}, v.Fields)
	assert.Empty(t, m.tokens)
}

func TestProtectedCalls_RequireSession(t *testing.T) {
	m := &mockAccountAPI{}
	svc, _ := newService(m, &mockSession{})

	_, err := svc.MyOrders(context.Background())
	assert.True(t, api.IsAuth(err))
	assert.Empty(t, m.tokens)
}

func TestProtectedCalls_DropSessionOn401(t *testing.T) {
	m := &mockAccountAPI{err: api.ErrUnauthorized}
	session := &mockSession{token: "expired"}
	svc, _ := newService(m, session)

	_, err := svc.Addresses(context.Background())
	assert.True(t, api.IsAuth(err))
	assert.Equal(t, 1, session.dropped)
}

func TestMyOrders(t *testing.T) {
	m := &mockAccountAPI{orders: []domain.Order{{ID: "o1"}, {ID: "o2"}}}
	svc, _ := newService(m, &mockSession{token: "tok"})

	orders, err := svc.MyOrders(context.Background())
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	o, err := svc.Order(context.Background(), "o2")
	require.NoError(t, err)
	assert.Equal(t, "o2", o.ID)

	_, err = svc.Order(context.Background(), "zzz")
	assert.True(t, api.IsNotFound(err))
}

func TestMyOrders_EmptyIsNotNil(t *testing.T) {
	svc, _ := newService(&mockAccountAPI{}, &mockSession{token: "tok"})
	orders, err := svc.MyOrders(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, orders)
}

func TestProfileCache(t *testing.T) {
	svc, slots := newService(&mockAccountAPI{}, &mockSession{token: "tok"})
	ctx := context.Background()

	assert.Equal(t, domain.Profile{}, svc.Profile(ctx))

	p := domain.Profile{Name: "Ann", Email: "ann@example.com", Address: "Pune", AvatarURL: "https://x/a.png"}
	require.NoError(t, svc.SaveProfile(ctx, p))
	assert.Equal(t, p, svc.Profile(ctx))

	require.NoError(t, slots.Set(ctx, storage.SlotProfile, []byte("[")))
	assert.Equal(t, domain.Profile{}, svc.Profile(ctx))
}
