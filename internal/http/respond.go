package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/account"
	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/checkout"
)

type ErrorResponse struct {
	Error    string   `json:"error"`
	Code     string   `json:"code,omitempty"`
	Details  string   `json:"details,omitempty"`
	Fields   []string `json:"fields,omitempty"`
	Redirect string   `json:"redirect,omitempty"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		loggerFrom(r.Context()).WithError(err).Error("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	respondJSON(w, r, status, ErrorResponse{Error: message, Code: code})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// handleError maps the client error taxonomy onto HTTP statuses.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *api.ValidationError
	resp := ErrorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	switch {
	case errors.As(err, &validation):
		status, resp.Code = http.StatusBadRequest, "validation_failed"
		resp.Error = validation.Message
		resp.Fields = validation.Fields
	case errors.Is(err, cart.ErrInvalidQuantity), errors.Is(err, cart.ErrInvalidItem):
		status, resp.Code = http.StatusBadRequest, "invalid_argument"
	case api.IsAuth(err), errors.Is(err, auth.ErrNotAuthenticated), errors.Is(err, checkout.ErrLoginRequired):
		status, resp.Code = http.StatusUnauthorized, "unauthenticated"
		resp.Redirect = "/login"
	case api.IsNotFound(err):
		status, resp.Code = http.StatusNotFound, "not_found"
	case errors.Is(err, checkout.ErrEmptyCart):
		status, resp.Code = http.StatusConflict, "empty_cart"
		resp.Redirect = "/cart"
	case errors.Is(err, checkout.ErrSubmissionInFlight), errors.Is(err, account.ErrAddressInFlight):
		status, resp.Code = http.StatusConflict, "submission_in_flight"
	case errors.Is(err, checkout.ErrNoCheckout), errors.Is(err, checkout.ErrIllegalTransition),
		errors.Is(err, checkout.ErrAbandoned):
		status, resp.Code = http.StatusConflict, "illegal_state"
	case api.IsForbidden(err):
		status, resp.Code = http.StatusForbidden, "permission_denied"
	case api.IsNetwork(err):
		status, resp.Code = http.StatusBadGateway, "service_unavailable"
	default:
		resp.Code = "internal_error"
		resp.Error = "internal server error"
		resp.Details = err.Error()
		loggerFrom(r.Context()).WithError(err).Error("unhandled request error")
	}
	respondJSON(w, r, status, resp)
}
