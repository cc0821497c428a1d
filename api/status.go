package api

import (
	"strconv"
	"strings"
)

// StatusSet is the set of HTTP status codes a call accepts
type StatusSet []int

var (
	ExpectOK        = StatusSet{200}
	ExpectWrite     = StatusSet{200, 201, 202, 204}
	ExpectNoContent = StatusSet{204}
)

// Contains reports whether code is in the set
func (s StatusSet) Contains(code int) bool {
	for _, c := range s {
		if c == code {
			return true
		}
	}
	return false
}

func (s StatusSet) String() string {
	parts := make([]string, len(s))
	for i, c := range s {
		parts[i] = strconv.Itoa(c)
	}
	return "{" + strings.Join(parts, ",") + "}"
}
