package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type ProductCatalog interface {
	ProductLookup
	Listing() ([]domain.Product, time.Time)
	CreateProduct(ctx context.Context, token string, in domain.ProductInput) (domain.Product, error)
	UpdateProduct(ctx context.Context, token, id string, in domain.ProductInput) (domain.Product, error)
	DeleteProduct(ctx context.Context, token, id string) error
}

type ProductLoader interface {
	Load(ctx context.Context, f catalog.Filter) (catalog.Result, bool)
}

type ProductHandler struct {
	catalog  ProductCatalog
	browser  ProductLoader
	sessions SessionReader
	timeout  time.Duration
}

func NewProductHandler(c ProductCatalog, browser ProductLoader, sessions SessionReader, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		catalog:  c,
		browser:  browser,
		sessions: sessions,
		timeout:  timeout,
	}
}

type ProductsResponse struct {
	catalog.Page
	Filter     catalog.Filter `json:"filter"`
	Categories []string       `json:"categories"`
}

// GET /api/v1/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	f, err := catalog.ParseFilter(q)
	if err != nil {
		handleError(w, r, err)
		return
	}
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("pageSize"))

	res, latest := h.browser.Load(ctx, f)
	if !latest {
		respondError(w, r, http.StatusConflict, "superseded", "a newer product query replaced this one")
		return
	}
	if res.Err != nil {
		handleError(w, r, res.Err)
		return
	}

	listing, _ := h.catalog.Listing()
	respondJSON(w, r, http.StatusOK, ProductsResponse{
		Page:       catalog.Paginate(res.Products, page, size),
		Filter:     f,
		Categories: catalog.Categories(listing),
	})
}

// GET /api/v1/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, err := h.catalog.GetProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, p)
}

// POST /api/v1/admin/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var in domain.ProductInput
	if !decodeJSON(w, r, &in) {
		return
	}
	p, err := h.catalog.CreateProduct(ctx, h.token(), in)
	if err != nil {
		h.adminError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, p)
}

// PUT /api/v1/admin/products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var in domain.ProductInput
	if !decodeJSON(w, r, &in) {
		return
	}
	p, err := h.catalog.UpdateProduct(ctx, h.token(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.adminError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, p)
}

// DELETE /api/v1/admin/products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.catalog.DeleteProduct(ctx, h.token(), chi.URLParam(r, "id")); err != nil {
		h.adminError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// adminError drops the session when the service rejects the admin token.
func (h *ProductHandler) adminError(w http.ResponseWriter, r *http.Request, err error) {
	if api.IsAuth(err) {
		if d, ok := h.sessions.(interface{ HandleUnauthorized(context.Context) }); ok {
			d.HandleUnauthorized(r.Context())
		}
	}
	handleError(w, r, err)
}

func (h *ProductHandler) token() string {
	s, _ := h.sessions.Session()
	return s.Token
}
