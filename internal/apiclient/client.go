package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxResponseBody = 4 << 20

// Client talks to the commerce backend's JSON API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*response]
	metrics    *metrics.AppMetrics
	log        *slog.Logger

	maxFailures uint32
	openTimeout time.Duration
}

type Option func(*Client)

// WithHTTPClient replaces the default otelhttp-instrumented client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithMetrics(m *metrics.AppMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithBreaker trips the breaker after maxFailures consecutive transport
// errors or 5xx responses and keeps it open for openTimeout.
func WithBreaker(maxFailures uint32, openTimeout time.Duration) Option {
	return func(c *Client) {
		c.maxFailures = maxFailures
		c.openTimeout = openTimeout
	}
}

// New builds a client for baseURL, e.g. http://localhost:8080/api.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   30 * time.Second,
		},
		log:         logger.Discard(),
		maxFailures: 5,
		openTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("component", "api_client")

	c.breaker = gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:        "commerce-api",
		MaxRequests: 1,
		Timeout:     c.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.maxFailures
		},
		IsSuccessful: breakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// breakerSuccess counts only backend faults against the breaker.
func breakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode < http.StatusInternalServerError
	}
	return false
}

type response struct {
	status int
	body   []byte
}

type request struct {
	op      string
	method  string
	path    string
	body    any
	headers map[string]string
}

// do sends req and decodes a 2xx body into out. An empty or null body
// leaves out untouched.
func (c *Client) do(ctx context.Context, req request, out any) error {
	var reader io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", req.op, err)
		}
		reader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", req.op, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.breaker.Execute(func() (*response, error) {
		httpResp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, err
		}
		defer httpResp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
		if err != nil {
			return nil, err
		}
		r := &response{status: httpResp.StatusCode, body: data}
		if r.status >= http.StatusInternalServerError {
			return r, newStatusError(req.op, r.status, r.body)
		}
		return r, nil
	})
	if err != nil {
		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) {
			c.metrics.RecordAPIRequest(ctx, req.op, statusErr.StatusCode, start, true)
			c.log.WarnContext(ctx, "backend returned server error", "op", req.op, "status", statusErr.StatusCode)
			return statusErr
		}
		c.metrics.RecordAPIRequest(ctx, req.op, 0, start, true)
		c.log.WarnContext(ctx, "backend unreachable", "op", req.op, "error", err)
		return &TransportError{Op: req.op, Err: err}
	}

	if resp.status < 200 || resp.status > 299 {
		c.metrics.RecordAPIRequest(ctx, req.op, resp.status, start, true)
		return newStatusError(req.op, resp.status, resp.body)
	}
	c.metrics.RecordAPIRequest(ctx, req.op, resp.status, start, false)

	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return &ParseError{Op: req.op, Err: err}
	}
	return nil
}

// escapeQuery escapes s the way encodeURIComponent does for spaces, so
// "iPhone & iPad" becomes "iPhone%20%26%20iPad".
func escapeQuery(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
