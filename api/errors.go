package api

import (
	"fmt"
	"strings"
)

// HTTPStatusError is returned when a resource call completes with a status
// outside the expected set
type HTTPStatusError struct {
	Expected StatusSet
	Actual   int
	Method   string
	Path     string
	Body     string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("expected status %s, but got %d for %s %s", e.Expected, e.Actual, e.Method, e.Path)
}

// APIError carries the messages from a non-empty "errors" field in a response body
type APIError struct {
	Messages   []string
	StatusCode int
	Method     string
	Path       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error for %s %s: %s", e.Method, e.Path, strings.Join(e.Messages, "\n"))
}
