package scrub

import "errors"

// Pattern configuration errors.
var (
	// ErrUnknownKind is returned when a pattern kind name is not built in.
	ErrUnknownKind = errors.New("unknown PII pattern kind")

	// ErrEmptyPattern is returned when a custom pattern has no expression.
	ErrEmptyPattern = errors.New("empty PII pattern expression")

	// ErrUnknownProfile is returned for profile names other than typed and masked.
	ErrUnknownProfile = errors.New("unknown scrub profile: expected typed or masked")

	// ErrDuplicateKind is returned when the same kind appears twice in a pattern list.
	ErrDuplicateKind = errors.New("duplicate PII pattern kind")
)
