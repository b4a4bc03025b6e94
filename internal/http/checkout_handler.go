package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

type CheckoutFlow interface {
	Begin() (checkout.State, error)
	SubmitShipping(info domain.ShippingInfo) (checkout.State, error)
	SubmitPayment(info domain.PaymentInfo) (checkout.State, error)
	SetNotes(notes string) (checkout.State, error)
	Back() (checkout.State, error)
	PlaceOrder(ctx context.Context) (domain.Order, error)
	Abandon()
	State() checkout.State
	Preview() (checkout.Preview, error)
}

type CheckoutHandler struct {
	flow    CheckoutFlow
	timeout time.Duration
}

func NewCheckoutHandler(flow CheckoutFlow, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{flow: flow, timeout: timeout}
}

type CheckoutResponseDTO struct {
	State   checkout.State    `json:"state"`
	Preview *checkout.Preview `json:"preview,omitempty"`
}

type NotesRequestDTO struct {
	Notes string `json:"notes"`
}

func (h *CheckoutHandler) respondState(w http.ResponseWriter, r *http.Request, status int, state checkout.State) {
	resp := CheckoutResponseDTO{State: state}
	if p, err := h.flow.Preview(); err == nil {
		resp.Preview = &p
	}
	respondJSON(w, r, status, resp)
}

// POST /api/v1/checkout
func (h *CheckoutHandler) Begin(w http.ResponseWriter, r *http.Request) {
	state, err := h.flow.Begin()
	if err != nil {
		handleError(w, r, err)
		return
	}
	h.respondState(w, r, http.StatusCreated, state)
}

// GET /api/v1/checkout
func (h *CheckoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respondState(w, r, http.StatusOK, h.flow.State())
}

// POST /api/v1/checkout/shipping
func (h *CheckoutHandler) SubmitShipping(w http.ResponseWriter, r *http.Request) {
	var info domain.ShippingInfo
	if !decodeJSON(w, r, &info) {
		return
	}
	state, err := h.flow.SubmitShipping(info)
	if err != nil {
		handleError(w, r, err)
		return
	}
	h.respondState(w, r, http.StatusOK, state)
}

// POST /api/v1/checkout/payment
func (h *CheckoutHandler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	var info domain.PaymentInfo
	if !decodeJSON(w, r, &info) {
		return
	}
	state, err := h.flow.SubmitPayment(info)
	if err != nil {
		handleError(w, r, err)
		return
	}
	h.respondState(w, r, http.StatusOK, state)
}

// POST /api/v1/checkout/notes
func (h *CheckoutHandler) SetNotes(w http.ResponseWriter, r *http.Request) {
	var req NotesRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	state, err := h.flow.SetNotes(req.Notes)
	if err != nil {
		handleError(w, r, err)
		return
	}
	h.respondState(w, r, http.StatusOK, state)
}

// POST /api/v1/checkout/back
func (h *CheckoutHandler) Back(w http.ResponseWriter, r *http.Request) {
	state, err := h.flow.Back()
	if err != nil {
		handleError(w, r, err)
		return
	}
	h.respondState(w, r, http.StatusOK, state)
}

// POST /api/v1/checkout/place
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	order, err := h.flow.PlaceOrder(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, order)
}

// DELETE /api/v1/checkout
func (h *CheckoutHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	h.flow.Abandon()
	w.WriteHeader(http.StatusNoContent)
}
