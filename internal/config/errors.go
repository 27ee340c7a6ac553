package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidConcurrency is returned when the lookup pool size is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidRetries is returned when retries is negative or above MaxRetries.
	ErrInvalidRetries = errors.New("invalid retries: must be between 0 and 5")

	// ErrInvalidRetryBackoff is returned when the retry backoff is negative.
	ErrInvalidRetryBackoff = errors.New("invalid retry backoff: must be non-negative")

	// ErrInvalidRateLimit is returned for a negative rate or a rate without burst.
	ErrInvalidRateLimit = errors.New("invalid rate limit: rate must be non-negative and burst positive")

	// ErrInvalidCacheTTL is returned when the cache TTL is negative.
	ErrInvalidCacheTTL = errors.New("invalid cache ttl: must be non-negative")

	// ErrEmptyURLColumn is returned when no URL column is configured.
	ErrEmptyURLColumn = errors.New("url column must not be empty")

	// ErrInvalidBaseURL is returned when the content API URL is not absolute.
	ErrInvalidBaseURL = errors.New("invalid base url: must be an absolute URL")

	// ErrUnknownCacheBackend is returned for a cache backend other than sqlite, redis or none.
	ErrUnknownCacheBackend = errors.New("unknown cache backend: use sqlite, redis or none")

	// ErrMissingRedisAddress is returned when the redis backend has no address.
	ErrMissingRedisAddress = errors.New("redis cache backend requires redis.address")

	// ErrEmptyDBDir is returned when SQLite is needed but no directory is set.
	ErrEmptyDBDir = errors.New("database directory must not be empty")

	// ErrInvalidPattern is returned for a custom pattern without a kind.
	ErrInvalidPattern = errors.New("invalid pattern: kind is required")
)
