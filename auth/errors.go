package auth

import (
	"errors"
	"fmt"
)

var (
	ErrNoCredentials        = errors.New("no stored credentials")
	ErrNoRefreshToken       = errors.New("no refresh token available")
	ErrInvalidSeed          = errors.New("invalid credential seed")
	ErrInvalidGrantResponse = errors.New("invalid grant response")
)

// AuthError is returned when the token endpoint rejects a grant
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth: expected HTTP 200 or 201, but got %d", e.StatusCode)
}
