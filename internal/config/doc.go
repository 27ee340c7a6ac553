// Package config holds the configuration of surveytriage: content API
// lookups, scrubbing, dataset columns, caching, storage and the HTTP server.
package config
