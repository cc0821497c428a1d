// Package api is the authorized JSON client for Wink resource endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"winkcloud/auth"
	"winkcloud/internal/idgen"
	"winkcloud/internal/logging"
	"winkcloud/transport"
)

// DefaultUserAgent is the identifying User-Agent the Wink cloud expects
const DefaultUserAgent = "wink/99.99.99 (iPhone; iOS 7.1.2; Scale/2.0)"

var emptyObject = json.RawMessage(`{}`)

// Request describes one resource call
type Request struct {
	Method   string
	Path     string
	Header   http.Header
	Body     any       // string and []byte are sent as-is, anything else is JSON-encoded
	Expected StatusSet // defaults to ExpectOK
	BaseURL  string    // overrides the credentials' base URL
}

// Client sends authorized requests, refreshing credentials first when they are stale
type Client struct {
	session   *auth.Session
	transport transport.Transport
	userAgent string
	headers   http.Header
	logger    *slog.Logger
}

// Option configures the client
type Option func(*Client)

// WithUserAgent replaces DefaultUserAgent
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithHeaders adds headers sent on every request
func WithHeaders(headers http.Header) Option {
	return func(c *Client) {
		for k, vs := range headers {
			c.headers[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger == nil {
			logger = logging.Discard()
		}
		c.logger = logger.With("component", "api")
	}
}

// NewClient creates a client that authorizes with session and sends through t
func NewClient(session *auth.Session, t transport.Transport, opts ...Option) *Client {
	c := &Client{
		session:   session,
		transport: t,
		userAgent: DefaultUserAgent,
		headers:   make(http.Header),
		logger:    logging.Discard(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Raw performs req and returns the response's "data" field, or an empty
// object when there is none
func (c *Client) Raw(ctx context.Context, req Request) (json.RawMessage, error) {
	data, ok, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	if !ok {
		return emptyObject, nil
	}
	return data, nil
}

// Do performs req and decodes the "data" field into out. out is left
// untouched when the response has no data; a nil out discards it.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	data, ok, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	if !ok || out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", req.Method, req.Path, err)
	}
	return nil
}

// Get fetches path, expecting 200
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Expected: ExpectOK}, out)
}

// Put sends body to path, expecting any of 200, 201, 202, 204
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body, Expected: ExpectWrite}, out)
}

// Post sends body to path, expecting any of 200, 201, 202, 204
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body, Expected: ExpectWrite}, out)
}

// Delete removes path, expecting 204
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path, Expected: ExpectNoContent}, nil)
}

func (c *Client) do(ctx context.Context, req Request) (json.RawMessage, bool, error) {
	creds, err := c.session.Fresh(ctx)
	if err != nil {
		return nil, false, err
	}

	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal %s %s body: %w", req.Method, req.Path, err)
	}

	header := c.buildHeader(creds, req.Header)
	if len(body) > 0 {
		header.Set("Content-Type", "application/json")
	}

	baseURL := req.BaseURL
	if baseURL == "" {
		baseURL = creds.BaseURL
	}
	url := strings.TrimRight(baseURL, "/") + req.Path

	expected := req.Expected
	if len(expected) == 0 {
		expected = ExpectOK
	}

	requestID := idgen.NewRequest()
	c.logger.Debug("request", "request_id", requestID, "method", req.Method, "path", req.Path)

	start := time.Now()
	resp, err := c.transport.Send(ctx, transport.Request{
		Method: req.Method,
		URL:    url,
		Header: header,
		Body:   body,
	})
	if err != nil {
		c.logger.Debug("request failed", "request_id", requestID, "error", err)
		return nil, false, transport.Wrap(req.Method, url, err)
	}

	c.logger.Debug("response",
		"request_id", requestID,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	// coerce to JSON, if possible
	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors json.RawMessage `json:"errors"`
	}
	parsed := len(bytes.TrimSpace(resp.Body)) > 0 && json.Unmarshal(resp.Body, &envelope) == nil

	if parsed {
		if messages := errorMessages(envelope.Errors); len(messages) > 0 {
			return nil, false, &APIError{
				Messages:   messages,
				StatusCode: resp.StatusCode,
				Method:     req.Method,
				Path:       req.Path,
			}
		}
	}

	if !expected.Contains(resp.StatusCode) {
		return nil, false, &HTTPStatusError{
			Expected: expected,
			Actual:   resp.StatusCode,
			Method:   req.Method,
			Path:     req.Path,
			Body:     string(resp.Body),
		}
	}

	if !parsed || len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil, false, nil
	}
	return envelope.Data, true, nil
}

// buildHeader layers defaults, then caller headers, then Authorization
func (c *Client) buildHeader(creds auth.Credentials, extra http.Header) http.Header {
	header := c.headers.Clone()
	header.Set("User-Agent", c.userAgent)
	for k, vs := range extra {
		header[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
	header.Set("Authorization", "Bearer "+creds.AccessToken)
	return header
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(b), nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	default:
		return json.Marshal(b)
	}
}

// errorMessages flattens the "errors" field, which the API sends as a list of
// strings, a list of objects with a message, or a bare string
func errorMessages(raw json.RawMessage) []string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}

	var single string
	if err := json.Unmarshal(trimmed, &single); err == nil {
		if single == "" {
			return nil
		}
		return []string{single}
	}

	var list []json.RawMessage
	if err := json.Unmarshal(trimmed, &list); err != nil {
		switch string(trimmed) {
		case "null", "{}", "false":
			return nil
		}
		return []string{string(trimmed)}
	}

	messages := make([]string, 0, len(list))
	for _, item := range list {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			messages = append(messages, s)
			continue
		}
		var obj struct {
			Message string `json:"message"`
			Detail  string `json:"detail"`
		}
		if err := json.Unmarshal(item, &obj); err == nil && (obj.Message != "" || obj.Detail != "") {
			messages = append(messages, strings.TrimSpace(obj.Message+" "+obj.Detail))
			continue
		}
		messages = append(messages, string(item))
	}
	return messages
}
