package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/surveytriage/internal/model"
)

// PageCache is the SQLite page cache. Entries older than the TTL are misses.
type PageCache struct {
	store *Store
	ttl   time.Duration
}

// PageCache returns a page cache view of the store with the given TTL.
// A non-positive ttl never expires entries.
func (s *Store) PageCache(ttl time.Duration) *PageCache {
	return &PageCache{store: s, ttl: ttl}
}

// Get returns the cached info for page.
func (c *PageCache) Get(ctx context.Context, page string) (model.PageInfo, bool, error) {
	query := `
	SELECT info_json, fetched_at FROM page_cache
	WHERE page = ?
	`

	var infoJSON, fetchedAt string
	err := c.store.db.QueryRowContext(ctx, query, page).Scan(&infoJSON, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PageInfo{}, false, nil
	}
	if err != nil {
		return model.PageInfo{}, false, fmt.Errorf("failed to read page cache: %w", err)
	}

	var info model.PageInfo
	if err := json.Unmarshal([]byte(infoJSON), &info); err != nil {
		return model.PageInfo{}, false, fmt.Errorf("failed to parse cached page %q: %w", page, err)
	}
	info.FetchedAt = parseTimestamp(fetchedAt)
	if info.Expired(c.store.now(), c.ttl) {
		return model.PageInfo{}, false, nil
	}
	return info, true, nil
}

// Put stores info, replacing any previous entry for the same page.
func (c *PageCache) Put(ctx context.Context, info model.PageInfo) error {
	infoJSON, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to serialize page info: %w", err)
	}
	fetchedAt := info.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = c.store.now()
	}

	query := `
	INSERT INTO page_cache (page, status, info_json, fetched_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(page) DO UPDATE SET
		status = excluded.status,
		info_json = excluded.info_json,
		fetched_at = excluded.fetched_at
	`
	if _, err := c.store.db.ExecContext(ctx, query,
		info.Page,
		info.Status,
		string(infoJSON),
		formatTimestamp(fetchedAt),
	); err != nil {
		return fmt.Errorf("failed to write page cache: %w", err)
	}
	return nil
}

// Invalidate removes page from the cache. Removing an absent page is not an error.
func (c *PageCache) Invalidate(ctx context.Context, page string) error {
	if _, err := c.store.db.ExecContext(ctx, `DELETE FROM page_cache WHERE page = ?`, page); err != nil {
		return fmt.Errorf("failed to invalidate page %q: %w", page, err)
	}
	return nil
}

// Purge deletes entries older than the TTL and returns how many were removed.
func (c *PageCache) Purge(ctx context.Context) (int64, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	cutoff := c.store.now().Add(-c.ttl)

	rows, err := c.store.db.QueryContext(ctx, `SELECT page, fetched_at FROM page_cache`)
	if err != nil {
		return 0, fmt.Errorf("failed to list page cache: %w", err)
	}
	var expired []string
	for rows.Next() {
		var page, fetchedAt string
		if err := rows.Scan(&page, &fetchedAt); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan page cache: %w", err)
		}
		if !parseTimestamp(fetchedAt).After(cutoff) {
			expired = append(expired, page)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	var removed int64
	for _, page := range expired {
		res, err := c.store.db.ExecContext(ctx, `DELETE FROM page_cache WHERE page = ?`, page)
		if err != nil {
			return removed, fmt.Errorf("failed to purge page %q: %w", page, err)
		}
		n, _ := res.RowsAffected() //nolint:errcheck // sqlite always reports rows affected
		removed += n
	}
	return removed, nil
}
