package contentapi

import (
	"errors"
	"fmt"
	"net/http"
)

// Lookup failures. A failed lookup is a normal outcome: callers keep the
// classified record and move on.
var (
	// ErrNoResults is returned when the response has an empty or missing results array.
	ErrNoResults = errors.New("content API returned no results")

	// ErrMissingFields is returned when the first result has neither
	// organisations nor mainstream_browse_pages.
	ErrMissingFields = errors.New("content API result has no organisations or browse pages")

	// ErrDecode is returned when the response body is not valid JSON of the expected shape.
	ErrDecode = errors.New("failed to decode content API response")

	// ErrInvalidProxy is returned for proxy URLs that are not http, https, socks5 or socks5h.
	ErrInvalidProxy = errors.New("invalid proxy URL")

	// ErrInvalidBaseURL is returned when the base URL cannot be parsed.
	ErrInvalidBaseURL = errors.New("invalid content API base URL")
)

// StatusError is returned when the content API answers with a non-200 status.
type StatusError struct {
	// Code is the HTTP status code.
	Code int
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("content API returned status %d %s", e.Code, http.StatusText(e.Code))
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// Reason returns a short label for a lookup error, suitable for logs and metric labels.
func Reason(err error) string {
	var statusErr *StatusError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &statusErr):
		return "status"
	case errors.Is(err, ErrNoResults):
		return "no_results"
	case errors.Is(err, ErrMissingFields):
		return "missing_fields"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, errRateLimit):
		return "rate_limit"
	default:
		return "transport"
	}
}

var errRateLimit = errors.New("rate limiter")
