package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nao1215/surveytriage/internal/model"
)

// SaveRun inserts or replaces the summary of a run.
func (s *Store) SaveRun(ctx context.Context, run *model.RunSummary) error {
	if run == nil || run.ID == "" {
		return errors.New("run summary has no id")
	}
	summaryJSON, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to serialize run: %w", err)
	}

	query := `
	INSERT INTO runs (id, input, started_at, finished_at, summary_json)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		input = excluded.input,
		started_at = excluded.started_at,
		finished_at = excluded.finished_at,
		summary_json = excluded.summary_json
	`
	if _, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.Input,
		formatTimestamp(run.StartedAt),
		formatTimestamp(run.FinishedAt),
		string(summaryJSON),
	); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// GetRun returns the run with the given id, or ErrNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (*model.RunSummary, error) {
	var summaryJSON string
	err := s.db.QueryRowContext(ctx, `SELECT summary_json FROM runs WHERE id = ?`, id).Scan(&summaryJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return decodeRun(summaryJSON)
}

// ListRuns returns up to limit runs, newest first. A non-positive limit returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*model.RunSummary, error) {
	query := `SELECT summary_json FROM runs ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.RunSummary
	for rows.Next() {
		var summaryJSON string
		if err := rows.Scan(&summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run, err := decodeRun(summaryJSON)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func decodeRun(summaryJSON string) (*model.RunSummary, error) {
	var run model.RunSummary
	if err := json.Unmarshal([]byte(summaryJSON), &run); err != nil {
		return nil, fmt.Errorf("failed to parse run: %w", err)
	}
	return &run, nil
}
