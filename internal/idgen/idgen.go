package idgen

import (
	"github.com/google/uuid"
)

// PrefixRequest marks correlation IDs attached to outbound API calls
const PrefixRequest = "req_"

// NewRequest generates a new request correlation ID with req_ prefix
func NewRequest() string {
	return PrefixRequest + uuid.New().String()
}

