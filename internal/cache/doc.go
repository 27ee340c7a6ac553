// Package cache provides a Redis-backed page cache for content API results.
//
// Entries are stored as JSON under "<prefix>page:<page>" with a Redis TTL,
// so expiry is handled by the server.
package cache
