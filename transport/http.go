package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"winkcloud/internal/logging"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second
)

// HTTP implements Transport on top of net/http
type HTTP struct {
	httpClient *http.Client
	timeout    *time.Duration
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option configures the HTTP transport
type Option func(*HTTP)

// WithTimeout sets the per-request timeout. It applies to the client given by
// WithHTTPClient as well, through a copy, in any option order.
func WithTimeout(timeout time.Duration) Option {
	return func(t *HTTP) {
		t.timeout = &timeout
	}
}

// WithRateLimit sets the client-side rate limit. A non-positive rate disables limiting.
func WithRateLimit(requestsPerSecond float64, burst int) Option {
	return func(t *HTTP) {
		if requestsPerSecond <= 0 {
			t.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(client *http.Client) Option {
	return func(t *HTTP) {
		t.httpClient = client
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(t *HTTP) {
		if logger == nil {
			logger = logging.Discard()
		}
		t.logger = logger.With("component", "transport")
	}
}

// NewHTTP creates a net/http backed transport
func NewHTTP(opts ...Option) *HTTP {
	t := &HTTP{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  logging.Discard(),
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.timeout != nil {
		client := *t.httpClient
		client.Timeout = *t.timeout
		t.httpClient = &client
	}

	return t
}

// Send performs the round trip. Any failure before a status line is read is a *Error.
func (t *HTTP) Send(ctx context.Context, req Request) (Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return Response{}, Wrap(req.Method, req.URL, fmt.Errorf("rate limit wait: %w", err))
		}
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return Response{}, Wrap(req.Method, req.URL, fmt.Errorf("failed to create request: %w", err))
	}
	if req.Header != nil {
		httpReq.Header = req.Header.Clone()
	}

	start := time.Now()
	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		t.logger.Debug("request failed", "method", req.Method, "url", req.URL, "error", err)
		return Response{}, Wrap(req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, Wrap(req.Method, req.URL, fmt.Errorf("failed to read response: %w", err))
	}

	t.logger.Debug("request completed",
		"method", req.Method,
		"url", req.URL,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	return Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}
