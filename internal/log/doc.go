// Package log provides slog loggers that never write survey PII or
// credentials.
//
// The SecureHandler wraps any slog.Handler and rewrites attributes before
// they reach it:
//   - values under credential keys (password, authorization, token) are masked
//   - credentials embedded in proxy and Redis URLs are masked
//   - free text is passed through the PII scrubber, so a comment that ends up
//     in an error message is logged as "{{ PHONE NUMBER }}" instead
//
// Structural keys such as run_id, page or column are left alone so that
// identifiers stay searchable.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//
//	logger.Warn("row failed", "row", 3, "error", err) // err text is scrubbed
package log
