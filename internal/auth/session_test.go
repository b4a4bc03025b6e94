package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAuthenticator struct {
	user  api.UserInfo
	err   error
	calls int
}

func (m *mockAuthenticator) Login(_ context.Context, _, _ string) (api.UserInfo, error) {
	m.calls++
	return m.user, m.err
}

func (m *mockAuthenticator) Register(_ context.Context, name, email, _ string) (api.UserInfo, error) {
	m.calls++
	if m.err != nil {
		return api.UserInfo{}, m.err
	}
	u := m.user
	u.Name, u.Email = name, email
	return u, nil
}

func newHolder(t *testing.T, a Authenticator, slots storage.Slots) *Holder {
	log, _ := test.NewNullLogger()
	return NewHolder(context.Background(), a, slots, log)
}

func signedToken(t *testing.T, sub string, exp time.Time) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": sub, "exp": exp.Unix()})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestLogin_EstablishesAndPersistsSession(t *testing.T) {
	slots := storage.NewMemoryStore()
	a := &mockAuthenticator{user: api.UserInfo{ID: "u1", Name: "Ann", Email: "ann@example.com", Token: "opaque"}}
	h := newHolder(t, a, slots)

	var events []bool
	h.OnChange(func(ok bool) { events = append(events, ok) })

	s, err := h.Login(context.Background(), Credentials{Email: "ann@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "u1", s.UserID)
	assert.True(t, h.IsAuthenticated())

	var stored domain.AuthSession
	require.NoError(t, storage.GetJSON(context.Background(), slots, storage.SlotSession, &stored))
	assert.Equal(t, "opaque", stored.Token)
	assert.Equal(t, []bool{true}, events)
}

func TestLogin_ReadsTokenClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	a := &mockAuthenticator{user: api.UserInfo{Name: "Ann", Token: signedToken(t, "u-sub", exp)}}
	h := newHolder(t, a, storage.NewMemoryStore())

	s, err := h.Login(context.Background(), Credentials{Email: "a@b.c", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "u-sub", s.UserID)
	assert.True(t, exp.Equal(s.ExpiresAt))
}

func TestLogin_ExpiredTokenIsStillAccepted(t *testing.T) {
	a := &mockAuthenticator{user: api.UserInfo{ID: "u1", Token: signedToken(t, "u1", time.Now().Add(-time.Hour))}}
	h := newHolder(t, a, storage.NewMemoryStore())

	_, err := h.Login(context.Background(), Credentials{Email: "a@b.c", Password: "pw"})
	require.NoError(t, err)
	assert.True(t, h.IsAuthenticated())
}

func TestLogin_MissingFields(t *testing.T) {
	a := &mockAuthenticator{}
	h := newHolder(t, a, storage.NewMemoryStore())

	_, err := h.Login(context.Background(), Credentials{})
	var v *api.ValidationError
	require.ErrorAs(t, err, &v)
	assert.Equal(t, []string{"email", "password"}, v.Fields)
	assert.Zero(t, a.calls)
}

func TestLogin_Rejected(t *testing.T) {
	a := &mockAuthenticator{err: api.ErrUnauthorized}
	h := newHolder(t, a, storage.NewMemoryStore())

	_, err := h.Login(context.Background(), Credentials{Email: "a@b.c", Password: "bad"})
	assert.True(t, api.IsAuth(err))
	assert.False(t, h.IsAuthenticated())
}

func TestRegister_SignsIn(t *testing.T) {
	a := &mockAuthenticator{user: api.UserInfo{ID: "u9", Token: "tok"}}
	h := newHolder(t, a, storage.NewMemoryStore())

	s, err := h.Register(context.Background(), Registration{Name: "Bob", Email: "bob@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "Bob", s.DisplayName)
	assert.True(t, h.IsAuthenticated())
}

func TestLogout_ClearsSessionAndProfile(t *testing.T) {
	slots := storage.NewMemoryStore()
	ctx := context.Background()
	a := &mockAuthenticator{user: api.UserInfo{ID: "u1", Token: "tok"}}
	h := newHolder(t, a, slots)
	_, err := h.Login(ctx, Credentials{Email: "a@b.c", Password: "pw"})
	require.NoError(t, err)
	require.NoError(t, storage.PutJSON(ctx, slots, storage.SlotProfile, domain.Profile{Name: "Ann"}))

	h.Logout(ctx)

	assert.False(t, h.IsAuthenticated())
	_, err = h.Token()
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = slots.Get(ctx, storage.SlotSession)
	assert.ErrorIs(t, err, storage.ErrSlotEmpty)
	_, err = slots.Get(ctx, storage.SlotProfile)
	assert.ErrorIs(t, err, storage.ErrSlotEmpty)
}

func TestHandleUnauthorized_DropsSession(t *testing.T) {
	a := &mockAuthenticator{user: api.UserInfo{ID: "u1", Token: "tok"}}
	h := newHolder(t, a, storage.NewMemoryStore())
	h.Login(context.Background(), Credentials{Email: "a@b.c", Password: "pw"})

	var events []bool
	h.OnChange(func(ok bool) { events = append(events, ok) })
	h.HandleUnauthorized(context.Background())
	h.HandleUnauthorized(context.Background())

	assert.False(t, h.IsAuthenticated())
	assert.Equal(t, []bool{false}, events)
}

func TestNewHolder_RestoresSession(t *testing.T) {
	slots := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, storage.PutJSON(ctx, slots, storage.SlotSession, domain.AuthSession{UserID: "u1", Token: "tok"}))

	h := newHolder(t, &mockAuthenticator{}, slots)
	tok, err := h.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)
}

func TestNewHolder_MalformedSessionIsSignedOut(t *testing.T) {
	slots := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, slots.Set(ctx, storage.SlotSession, []byte("{oops")))

	h := newHolder(t, &mockAuthenticator{}, slots)
	assert.False(t, h.IsAuthenticated())

	require.NoError(t, slots.Set(ctx, storage.SlotSession, []byte(`{"userId":"u1"}`)))
	h = newHolder(t, &mockAuthenticator{}, slots)
	assert.False(t, h.IsAuthenticated())
}

func TestLogin_ServiceWithoutToken(t *testing.T) {
	a := &mockAuthenticator{user: api.UserInfo{ID: "u1"}}
	h := newHolder(t, a, storage.NewMemoryStore())

	_, err := h.Login(context.Background(), Credentials{Email: "a@b.c", Password: "pw"})
	assert.True(t, errors.Is(err, api.ErrUnauthorized))
	assert.False(t, h.IsAuthenticated())
}
