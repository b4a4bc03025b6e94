package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

type SessionService interface {
	SessionReader
	Login(ctx context.Context, creds auth.Credentials) (domain.AuthSession, error)
	Register(ctx context.Context, reg auth.Registration) (domain.AuthSession, error)
	Logout(ctx context.Context)
}

type SessionHandler struct {
	sessions SessionService
	timeout  time.Duration
}

func NewSessionHandler(sessions SessionService, timeout time.Duration) *SessionHandler {
	return &SessionHandler{sessions: sessions, timeout: timeout}
}

// SessionResponseDTO never carries the bearer token.
type SessionResponseDTO struct {
	Authenticated bool      `json:"authenticated"`
	UserID        string    `json:"userId,omitempty"`
	DisplayName   string    `json:"displayName,omitempty"`
	Email         string    `json:"email,omitempty"`
	IsAdmin       bool      `json:"isAdmin"`
	ExpiresAt     time.Time `json:"expiresAt,omitempty"`
}

func sessionResponse(s domain.AuthSession, ok bool) SessionResponseDTO {
	if !ok {
		return SessionResponseDTO{}
	}
	return SessionResponseDTO{
		Authenticated: true,
		UserID:        s.UserID,
		DisplayName:   s.DisplayName,
		Email:         s.Email,
		IsAdmin:       s.IsAdmin,
		ExpiresAt:     s.ExpiresAt,
	}
}

// GET /api/v1/session
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, sessionResponse(h.sessions.Session()))
}

// POST /api/v1/session
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var creds auth.Credentials
	if !decodeJSON(w, r, &creds) {
		return
	}
	s, err := h.sessions.Login(ctx, creds)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, sessionResponse(s, true))
}

// POST /api/v1/session/register
func (h *SessionHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var reg auth.Registration
	if !decodeJSON(w, r, &reg) {
		return
	}
	s, err := h.sessions.Register(ctx, reg)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, sessionResponse(s, true))
}

// DELETE /api/v1/session
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
