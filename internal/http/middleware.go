package http

import (
	"context"
	"io"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	loggerKey
)

// RequestIDMiddleware echoes X-Request-ID, generating one when absent.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// LoggerMiddleware attaches a request scoped logger for the response helpers.
// It must run after RequestIDMiddleware.
func LoggerMiddleware(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			entry := log.WithFields(logrus.Fields{
				"request_id": getRequestID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
			})
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), loggerKey, entry)))
		})
	}
}

var discardLogger = func() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

func loggerFrom(ctx context.Context) logrus.FieldLogger {
	if log, ok := ctx.Value(loggerKey).(logrus.FieldLogger); ok {
		return log
	}
	return discardLogger
}

// SessionReader exposes the current session, if any.
type SessionReader interface {
	Session() (domain.AuthSession, bool)
}

// RequireSession rejects requests without a session and points the view at /login.
func RequireSession(sessions SessionReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := sessions.Session(); !ok {
				respondJSON(w, r, http.StatusUnauthorized, ErrorResponse{
					Error:    "missing user authentication",
					Code:     "unauthorized",
					Redirect: "/login",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RequireAdmin(sessions SessionReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := sessions.Session()
			if !ok {
				respondJSON(w, r, http.StatusUnauthorized, ErrorResponse{
					Error:    "missing user authentication",
					Code:     "unauthorized",
					Redirect: "/login",
				})
				return
			}
			if !s.IsAdmin {
				respondError(w, r, http.StatusForbidden, "permission_denied", "admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
