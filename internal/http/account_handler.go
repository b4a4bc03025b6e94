package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type AccountService interface {
	Addresses(ctx context.Context) ([]domain.ShippingAddress, error)
	AddAddress(ctx context.Context, addr domain.ShippingAddress) (domain.ShippingAddress, error)
	DeleteAddress(ctx context.Context, id string) error
	MyOrders(ctx context.Context) ([]domain.Order, error)
	Order(ctx context.Context, id string) (domain.Order, error)
	Profile(ctx context.Context) domain.Profile
	SaveProfile(ctx context.Context, p domain.Profile) error
}

type AccountHandler struct {
	account AccountService
	timeout time.Duration
}

func NewAccountHandler(account AccountService, timeout time.Duration) *AccountHandler {
	return &AccountHandler{account: account, timeout: timeout}
}

// GET /api/v1/orders
func (h *AccountHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.account.MyOrders(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, orders)
}

// GET /api/v1/orders/{order_id}
func (h *AccountHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		respondError(w, r, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return
	}
	order, err := h.account.Order(ctx, orderID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, order)
}

// GET /api/v1/addresses
func (h *AccountHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	addrs, err := h.account.Addresses(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, addrs)
}

// POST /api/v1/addresses
func (h *AccountHandler) AddAddress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var addr domain.ShippingAddress
	if !decodeJSON(w, r, &addr) {
		return
	}
	saved, err := h.account.AddAddress(ctx, addr)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, saved)
}

// DELETE /api/v1/addresses/{id}
func (h *AccountHandler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.account.DeleteAddress(ctx, chi.URLParam(r, "id")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/profile
func (h *AccountHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, h.account.Profile(r.Context()))
}

// PUT /api/v1/profile
func (h *AccountHandler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var p domain.Profile
	if !decodeJSON(w, r, &p) {
		return
	}
	if err := h.account.SaveProfile(ctx, p); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, p)
}
