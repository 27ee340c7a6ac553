// Package database provides SQLite-based storage for surveytriage.
//
// The Store keeps:
//   - the persistent page cache (content API results keyed by page, with TTL)
//   - the url_records output table, keyed by the original path
//   - one row per clean run with its JSON summary
//   - the scrub audit trail: SHA3-256 digests of redacted cells, never the text
//
// The database is a single file (surveytriage.db) opened through the
// CGO-free modernc.org/sqlite driver in WAL mode.
package database
