package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// FileName is the database file created inside the data directory.
const FileName = "surveytriage.db"

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

// Store provides SQLite-based storage for page metadata, URL records,
// runs and the scrub audit trail.
type Store struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// Options configures Store behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the Store in dbDir.
func Open(dbDir string, opts Options) (*Store, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s: %w", dbPath, ErrNotFound)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{
		db:     db,
		dbPath: dbPath,
		now:    time.Now,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := s.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables(ctx context.Context) error {
	schema := `
	-- Content API results keyed by page
	CREATE TABLE IF NOT EXISTS page_cache (
		page TEXT PRIMARY KEY,
		status INTEGER NOT NULL,
		info_json TEXT NOT NULL,
		fetched_at TEXT NOT NULL
	);

	-- Classified and enriched records keyed by the original path
	CREATE TABLE IF NOT EXISTS url_records (
		full_url TEXT PRIMARY KEY,
		page TEXT NOT NULL,
		orgs TEXT NOT NULL,
		sections TEXT NOT NULL,
		status INTEGER NOT NULL DEFAULT 0,
		lookup_date TEXT,
		run_id TEXT,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_url_records_page ON url_records(page);

	-- One row per clean run; ids are ULIDs so they sort by time
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		input TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		summary_json TEXT NOT NULL
	);

	-- Digests of redacted cells
	CREATE TABLE IF NOT EXISTS scrub_audit (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		row_index INTEGER NOT NULL,
		column_name TEXT NOT NULL,
		digest TEXT NOT NULL,
		kinds TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_scrub_audit_run ON scrub_audit(run_id);
	CREATE INDEX IF NOT EXISTS idx_scrub_audit_digest ON scrub_audit(digest);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// timestampFormats contains the timestamp formats SQLite may return.
// More specific formats come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// formatTimestamp is the inverse of parseTimestamp. Zero times become NULL.
func formatTimestamp(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

// parseTimestamp parses s with each of timestampFormats and returns the zero
// time when none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
