package httpapi

import "errors"

var (
	// ErrInvalidInput is returned when a request carries a value of the
	// wrong type, e.g. a number where a page path is expected.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyBody is returned for a request without a JSON body.
	ErrEmptyBody = errors.New("empty body")

	// ErrTooManyItems is returned when a batch exceeds the configured limit.
	ErrTooManyItems = errors.New("too many items in batch")
)
