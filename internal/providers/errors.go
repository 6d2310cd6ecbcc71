package providers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// APIError is a non-success response from a provider API.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string

	// RetryAfter is parsed from the Retry-After header when the provider sent one.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s error (status %d)", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// RateLimited reports whether the provider rejected the request with 429.
func (e *APIError) RateLimited() bool {
	return e.StatusCode == 429
}

// AsAPIError extracts an *APIError from an error chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// parseRetryAfter understands the delta-seconds form of Retry-After.
// HTTP dates are ignored.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
