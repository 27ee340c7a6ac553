package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nao1215/surveytriage/internal/model"
)

// SaveURLRecords upserts records in one transaction. runID may be empty.
func (s *Store) SaveURLRecords(ctx context.Context, runID string, records []model.URLRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO url_records (full_url, page, orgs, sections, status, lookup_date, run_id, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(full_url) DO UPDATE SET
		page = excluded.page,
		orgs = excluded.orgs,
		sections = excluded.sections,
		status = excluded.status,
		lookup_date = excluded.lookup_date,
		run_id = excluded.run_id,
		updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	updatedAt := formatTimestamp(s.now())
	for _, rec := range records {
		if rec.FullURL == "" {
			continue
		}
		orgs, err := json.Marshal(nonNil(rec.Orgs))
		if err != nil {
			return fmt.Errorf("failed to serialize orgs: %w", err)
		}
		sections, err := json.Marshal(nonNil(rec.Sections))
		if err != nil {
			return fmt.Errorf("failed to serialize sections: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			rec.FullURL,
			rec.Page,
			string(orgs),
			string(sections),
			rec.Status,
			formatTimestamp(rec.LookedUpAt),
			runID,
			updatedAt,
		); err != nil {
			return fmt.Errorf("failed to save record %q: %w", rec.FullURL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit records: %w", err)
	}
	return nil
}

// GetURLRecord returns the stored record for fullURL, or ErrNotFound.
func (s *Store) GetURLRecord(ctx context.Context, fullURL string) (model.URLRecord, error) {
	query := `
	SELECT full_url, page, orgs, sections, status, lookup_date FROM url_records
	WHERE full_url = ?
	`
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, fullURL))
	if errors.Is(err, sql.ErrNoRows) {
		return model.URLRecord{}, fmt.Errorf("url record %q: %w", fullURL, ErrNotFound)
	}
	return rec, err
}

// ListURLRecordsByPage returns every stored record classified to page.
func (s *Store) ListURLRecordsByPage(ctx context.Context, page string) ([]model.URLRecord, error) {
	query := `
	SELECT full_url, page, orgs, sections, status, lookup_date FROM url_records
	WHERE page = ?
	ORDER BY full_url
	`
	rows, err := s.db.QueryContext(ctx, query, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []model.URLRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (model.URLRecord, error) {
	var (
		rec            model.URLRecord
		orgs, sections string
		lookupDate     sql.NullString
	)
	if err := row.Scan(&rec.FullURL, &rec.Page, &orgs, &sections, &rec.Status, &lookupDate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.URLRecord{}, err
		}
		return model.URLRecord{}, fmt.Errorf("failed to scan record: %w", err)
	}
	if err := json.Unmarshal([]byte(orgs), &rec.Orgs); err != nil {
		return model.URLRecord{}, fmt.Errorf("failed to parse orgs: %w", err)
	}
	if err := json.Unmarshal([]byte(sections), &rec.Sections); err != nil {
		return model.URLRecord{}, fmt.Errorf("failed to parse sections: %w", err)
	}
	if len(rec.Orgs) == 0 {
		rec.Orgs = nil
	}
	if len(rec.Sections) == 0 {
		rec.Sections = nil
	}
	if lookupDate.Valid {
		rec.LookedUpAt = parseTimestamp(lookupDate.String)
	}
	return rec, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
