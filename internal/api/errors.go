package api

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNetwork covers transport failures, timeouts, 5xx answers and an open breaker.
	ErrNetwork      = errors.New("network failure")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// NetworkError wraps a transport level failure.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network failure: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}

// ValidationError lists the fields that failed validation, locally or on the server.
type ValidationError struct {
	Message string
	Fields  []string
}

func NewValidationError(fields ...string) *ValidationError {
	sorted := append([]string(nil), fields...)
	sort.Strings(sorted)
	return &ValidationError{Message: "required fields missing", Fields: sorted}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Message, strings.Join(e.Fields, ", "))
}

// StatusError is an unexpected HTTP status from the service.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api: status %d: %s", e.Code, e.Message)
}

// Is maps 5xx answers onto ErrNetwork.
func (e *StatusError) Is(target error) bool {
	return target == ErrNetwork && e.Code >= 500
}

func IsAuth(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsForbidden reports a 403 answer: authenticated, but not allowed.
func IsForbidden(err error) bool {
	var s *StatusError
	return errors.As(err, &s) && s.Code == 403
}
