package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// AuditEntry records that a cell was changed by the scrubber.
// Only a digest of the original text is kept.
type AuditEntry struct {
	RunID     string    `json:"run_id"`
	Row       int       `json:"row"`
	Column    string    `json:"column"`
	Digest    string    `json:"digest"`
	Kinds     []string  `json:"kinds"`
	CreatedAt time.Time `json:"created_at"`
}

// SaveAudit stores entries in one transaction.
func (s *Store) SaveAudit(ctx context.Context, entries []AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO scrub_audit (run_id, row_index, column_name, digest, kinds, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := s.now()
	for _, e := range entries {
		kinds, err := json.Marshal(nonNil(e.Kinds))
		if err != nil {
			return fmt.Errorf("failed to serialize kinds: %w", err)
		}
		created := e.CreatedAt
		if created.IsZero() {
			created = now
		}
		if _, err := stmt.ExecContext(ctx, e.RunID, e.Row, e.Column, e.Digest, string(kinds), formatTimestamp(created)); err != nil {
			return fmt.Errorf("failed to save audit entry: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit audit entries: %w", err)
	}
	return nil
}

// ListAudit returns the audit entries of a run in row order.
func (s *Store) ListAudit(ctx context.Context, runID string) ([]AuditEntry, error) {
	return s.queryAudit(ctx, `
	SELECT run_id, row_index, column_name, digest, kinds, created_at FROM scrub_audit
	WHERE run_id = ?
	ORDER BY row_index, column_name
	`, runID)
}

// FindDigest returns every audit entry whose original text had the given digest.
func (s *Store) FindDigest(ctx context.Context, digest string) ([]AuditEntry, error) {
	return s.queryAudit(ctx, `
	SELECT run_id, row_index, column_name, digest, kinds, created_at FROM scrub_audit
	WHERE digest = ?
	ORDER BY id
	`, digest)
}

func (s *Store) queryAudit(ctx context.Context, query string, args ...any) ([]AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var (
			e                AuditEntry
			kinds, createdAt string
		)
		if err := rows.Scan(&e.RunID, &e.Row, &e.Column, &e.Digest, &kinds, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if err := json.Unmarshal([]byte(kinds), &e.Kinds); err != nil {
			return nil, fmt.Errorf("failed to parse kinds: %w", err)
		}
		e.CreatedAt = parseTimestamp(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
