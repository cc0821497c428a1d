// Package transport defines the raw request/response capability the wink client
// sends its traffic through, and a net/http implementation of it.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Request is a fully built outbound call
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is the raw result of a call
type Response struct {
	StatusCode int
	Body       []byte
}

// Transport sends a request and returns the raw status and body.
// Connection pooling, TLS and low-level retries are the implementation's concern.
type Transport interface {
	Send(ctx context.Context, req Request) (Response, error)
}

// Func adapts a plain function to the Transport interface
type Func func(ctx context.Context, req Request) (Response, error)

// Send calls f(ctx, req)
func (f Func) Send(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// Error reports a failure to complete a round trip (network, timeout, cancellation).
// It is never used for a completed call with an unexpected status.
type Error struct {
	Method string
	URL    string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was caused by a deadline or a network timeout
func (e *Error) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// Canceled reports whether the caller's context was canceled
func (e *Error) Canceled() bool {
	return errors.Is(e.Err, context.Canceled)
}

// Wrap converts err into a *Error unless it already is one
func Wrap(method, url string, err error) error {
	if err == nil {
		return nil
	}
	var terr *Error
	if errors.As(err, &terr) {
		return err
	}
	return &Error{Method: method, URL: url, Err: err}
}
