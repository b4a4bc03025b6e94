// Package auth holds the current authenticated session and mirrors it into
// the "session" slot so it survives restarts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

var ErrNotAuthenticated = errors.New("not authenticated")

// Authenticator is the part of the remote service the holder needs.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (api.UserInfo, error)
	Register(ctx context.Context, name, email, password string) (api.UserInfo, error)
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Holder struct {
	mu      sync.RWMutex
	session *domain.AuthSession

	auth  Authenticator
	slots storage.Slots
	log   logrus.FieldLogger

	subMu     sync.Mutex
	listeners []func(authenticated bool)
}

// NewHolder restores a persisted session if there is a readable one.
func NewHolder(ctx context.Context, auth Authenticator, slots storage.Slots, log logrus.FieldLogger) *Holder {
	h := &Holder{auth: auth, slots: slots, log: log.WithField("component", "auth")}

	var s domain.AuthSession
	err := storage.GetJSON(ctx, slots, storage.SlotSession, &s)
	switch {
	case errors.Is(err, storage.ErrSlotEmpty):
	case err != nil:
		h.log.WithError(err).Warn("persisted session unreadable, starting signed out")
	case !s.Valid():
		h.log.Warn("persisted session incomplete, starting signed out")
	default:
		h.session = &s
	}
	return h
}

func (h *Holder) Login(ctx context.Context, creds Credentials) (domain.AuthSession, error) {
	var missing []string
	if strings.TrimSpace(creds.Email) == "" {
		missing = append(missing, "email")
	}
	if creds.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return domain.AuthSession{}, api.NewValidationError(missing...)
	}

	info, err := h.auth.Login(ctx, creds.Email, creds.Password)
	if err != nil {
		return domain.AuthSession{}, fmt.Errorf("login failed: %w", err)
	}
	return h.establish(ctx, info)
}

// Register creates the account and signs in with it.
func (h *Holder) Register(ctx context.Context, reg Registration) (domain.AuthSession, error) {
	var missing []string
	if strings.TrimSpace(reg.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(reg.Email) == "" {
		missing = append(missing, "email")
	}
	if reg.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return domain.AuthSession{}, api.NewValidationError(missing...)
	}

	info, err := h.auth.Register(ctx, reg.Name, reg.Email, reg.Password)
	if err != nil {
		return domain.AuthSession{}, fmt.Errorf("register failed: %w", err)
	}
	return h.establish(ctx, info)
}

func (h *Holder) establish(ctx context.Context, info api.UserInfo) (domain.AuthSession, error) {
	s := domain.AuthSession{
		UserID:      info.ID,
		DisplayName: info.Name,
		Email:       info.Email,
		IsAdmin:     info.IsAdmin,
		Token:       info.Token,
	}
	fillFromClaims(&s)
	if !s.Valid() {
		return domain.AuthSession{}, fmt.Errorf("%w: auth service returned no token", api.ErrUnauthorized)
	}

	h.mu.Lock()
	h.session = &s
	h.mu.Unlock()

	if err := storage.PutJSON(ctx, h.slots, storage.SlotSession, s); err != nil {
		h.log.WithError(err).Error("failed to persist session")
	}
	h.log.WithField("user_id", s.UserID).Info("signed in")
	h.notify(true)
	return s, nil
}

// fillFromClaims reads sub and exp without verifying the signature. The values
// are informational only, the service remains the authority.
func fillFromClaims(s *domain.AuthSession) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.Token, claims); err != nil {
		return
	}
	if s.UserID == "" {
		if sub, err := claims.GetSubject(); err == nil {
			s.UserID = sub
		}
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.Time
	}
}

// Logout drops the session together with the cached profile.
func (h *Holder) Logout(ctx context.Context) {
	h.drop(ctx, "logout")
}

// HandleUnauthorized is called when the service rejects the token.
func (h *Holder) HandleUnauthorized(ctx context.Context) {
	h.drop(ctx, "unauthorized")
}

func (h *Holder) drop(ctx context.Context, reason string) {
	h.mu.Lock()
	had := h.session != nil
	h.session = nil
	h.mu.Unlock()

	for _, key := range []string{storage.SlotSession, storage.SlotProfile} {
		if err := h.slots.Delete(ctx, key); err != nil {
			h.log.WithError(err).WithField("slot", key).Error("failed to clear slot")
		}
	}
	if had {
		h.log.WithField("reason", reason).Info("signed out")
		h.notify(false)
	}
}

func (h *Holder) IsAuthenticated() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.session != nil
}

func (h *Holder) Session() (domain.AuthSession, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.session == nil {
		return domain.AuthSession{}, false
	}
	return *h.session, true
}

// Token returns the bearer token or ErrNotAuthenticated.
func (h *Holder) Token() (string, error) {
	s, ok := h.Session()
	if !ok {
		return "", ErrNotAuthenticated
	}
	return s.Token, nil
}

// OnChange registers fn to be told about sign-in and sign-out.
func (h *Holder) OnChange(fn func(authenticated bool)) {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	h.listeners = append(h.listeners, fn)
}

func (h *Holder) notify(authenticated bool) {
	h.subMu.Lock()
	listeners := append([]func(bool){}, h.listeners...)
	h.subMu.Unlock()
	for _, fn := range listeners {
		fn(authenticated)
	}
}
