// Package api is the client of the remote product/order/address service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const maxResponseBody = 4 << 20

type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*response]
	log     logrus.FieldLogger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) { c.log = log }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: rate.NewLimiter(rate.Inf, 0),
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:        "storefront-api",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// 4xx answers are the caller's problem, not the service's
		IsSuccessful: func(err error) bool {
			return err == nil || !IsNetwork(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("circuit breaker state changed")
		},
	})
	return c
}

type response struct {
	status int
	body   []byte
}

type request struct {
	method         string
	path           string
	token          string
	idempotencyKey string
	in             any
	out            any
}

func (c *Client) do(ctx context.Context, req request) error {
	var payload []byte
	if req.in != nil {
		var err error
		if payload, err = json.Marshal(req.in); err != nil {
			return fmt.Errorf("marshal request failed: %w", err)
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return &NetworkError{Err: pkgerrors.Wrap(err, "rate limiter")}
	}

	resp, err := c.breaker.Execute(func() (*response, error) {
		return c.roundTrip(ctx, req, payload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return &NetworkError{Err: pkgerrors.Wrapf(err, "%s %s", req.method, req.path)}
		}
		return err
	}

	if req.out != nil && len(resp.body) > 0 {
		if err := json.Unmarshal(resp.body, req.out); err != nil {
			return fmt.Errorf("decode %s %s response failed: %w", req.method, req.path, err)
		}
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, req request, payload []byte) (*response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return nil, fmt.Errorf("build request failed: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}
	if req.idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.idempotencyKey)
	}

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &NetworkError{Err: pkgerrors.Wrapf(err, "%s %s", req.method, req.path)}
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, &NetworkError{Err: pkgerrors.Wrap(err, "read response body")}
	}

	c.log.WithFields(logrus.Fields{
		"method":   req.method,
		"path":     req.path,
		"status":   httpResp.StatusCode,
		"duration": time.Since(start).String(),
	}).Debug("api call")

	if err := classify(httpResp.StatusCode, data); err != nil {
		return nil, err
	}
	return &response{status: httpResp.StatusCode, body: data}, nil
}

type serviceError struct {
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Errors  map[string]string `json:"errors"`
}

func classify(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	var se serviceError
	_ = json.Unmarshal(body, &se)
	msg := se.Message
	if msg == "" {
		msg = se.Error
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch {
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		fields := make([]string, 0, len(se.Errors))
		for f := range se.Errors {
			fields = append(fields, f)
		}
		v := NewValidationError(fields...)
		v.Message = msg
		return v
	default:
		return &StatusError{Code: status, Message: msg}
	}
}
