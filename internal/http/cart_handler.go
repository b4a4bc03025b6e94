package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/pricing"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type CartService interface {
	State() domain.CartState
	AddItem(ctx context.Context, item domain.CartLineItem) (domain.CartState, error)
	RemoveItem(ctx context.Context, productID string) (domain.CartState, error)
	UpdateQuantity(ctx context.Context, productID string, quantity int) (domain.CartState, error)
	Clear(ctx context.Context) (domain.CartState, error)
	Subscribe(fn cart.Listener) func()
}

type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (domain.Product, error)
}

type CartHandler struct {
	cart     CartService
	products ProductLookup
	timeout  time.Duration
	log      logrus.FieldLogger
}

func NewCartHandler(c CartService, products ProductLookup, timeout time.Duration, log logrus.FieldLogger) *CartHandler {
	return &CartHandler{
		cart:     c,
		products: products,
		timeout:  timeout,
		log:      log.WithField("component", "http.cart"),
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

// CartResponseDTO is the cart plus the derived totals shown next to it.
type CartResponseDTO struct {
	Cart   domain.CartState `json:"cart"`
	Totals pricing.Totals   `json:"totals"`
}

func cartResponse(state domain.CartState) CartResponseDTO {
	return CartResponseDTO{Cart: state, Totals: pricing.Summarize(state.Items)}
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, cartResponse(h.cart.State()))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProductID == "" {
		respondError(w, r, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	if req.Quantity <= 0 {
		respondError(w, r, http.StatusBadRequest, "invalid_quantity", "quantity must be positive")
		return
	}

	product, err := h.products.GetProduct(ctx, req.ProductID)
	if err != nil {
		handleError(w, r, err)
		return
	}

	state, err := h.cart.AddItem(ctx, product.ToLineItem(req.Quantity))
	if err != nil {
		handleError(w, r, err)
		return
	}
	h.log.WithFields(logrus.Fields{
		"request_id": getRequestID(r.Context()),
		"product_id": req.ProductID,
	}).Debug("item added")
	respondJSON(w, r, http.StatusCreated, cartResponse(state))
}

// PUT /api/v1/cart/items/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "product_id")
	var req UpdateQuantityRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	state, err := h.cart.UpdateQuantity(ctx, productID, req.Quantity)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, cartResponse(state))
}

// DELETE /api/v1/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	state, err := h.cart.RemoveItem(ctx, chi.URLParam(r, "product_id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, cartResponse(state))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	state, err := h.cart.Clear(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, cartResponse(state))
}
