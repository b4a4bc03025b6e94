package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Cart     *CartHandler
	Products *ProductHandler
	Session  *SessionHandler
	Checkout *CheckoutHandler
	Account  *AccountHandler

	Sessions SessionReader
	Metrics  http.Handler
	// Log backs the per-request logger used when writing responses. Optional.
	Log logrus.FieldLogger
	// Instrument wraps every request, typically with metrics. Optional.
	Instrument func(http.Handler) http.Handler

	RequestTimeout time.Duration
}

func NewRouter(h Handlers) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	if h.Log != nil {
		r.Use(LoggerMiddleware(h.Log))
	}
	if h.Instrument != nil {
		r.Use(h.Instrument)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// long lived, so outside the request timeout
		r.Get("/cart/live", h.Cart.Live)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(h.RequestTimeout))
			r.Use(middleware.Compress(5))

			r.Get("/cart", h.Cart.GetCart)
			r.Delete("/cart", h.Cart.ClearCart)
			r.Post("/cart/items", h.Cart.AddItem)
			r.Put("/cart/items/{product_id}", h.Cart.UpdateQuantity)
			r.Delete("/cart/items/{product_id}", h.Cart.RemoveItem)

			r.Get("/products", h.Products.List)
			r.Get("/products/{id}", h.Products.Get)
			r.Route("/admin/products", func(r chi.Router) {
				r.Use(RequireAdmin(h.Sessions))
				r.Post("/", h.Products.Create)
				r.Put("/{id}", h.Products.Update)
				r.Delete("/{id}", h.Products.Delete)
			})

			r.Route("/session", func(r chi.Router) {
				r.Get("/", h.Session.Get)
				r.Post("/", h.Session.Login)
				r.Delete("/", h.Session.Logout)
				r.Post("/register", h.Session.Register)
			})

			r.Group(func(r chi.Router) {
				r.Use(RequireSession(h.Sessions))

				r.Route("/checkout", func(r chi.Router) {
					r.Get("/", h.Checkout.Get)
					r.Post("/", h.Checkout.Begin)
					r.Delete("/", h.Checkout.Abandon)
					r.Post("/shipping", h.Checkout.SubmitShipping)
					r.Post("/payment", h.Checkout.SubmitPayment)
					r.Post("/notes", h.Checkout.SetNotes)
					r.Post("/back", h.Checkout.Back)
					r.Post("/place", h.Checkout.PlaceOrder)
				})

				r.Get("/orders", h.Account.ListOrders)
				r.Get("/orders/{order_id}", h.Account.GetOrder)

				r.Get("/addresses", h.Account.ListAddresses)
				r.Post("/addresses", h.Account.AddAddress)
				r.Delete("/addresses/{id}", h.Account.DeleteAddress)

				r.Get("/profile", h.Account.GetProfile)
				r.Put("/profile", h.Account.SaveProfile)
			})
		})
	})

	return r
}
