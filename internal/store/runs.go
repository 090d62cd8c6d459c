package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/sdkcheck/verify"
)

// Run is one recorded invocation.
type Run struct {
	ID         string `json:"id"`
	Screen     string `json:"screen"`
	Lang       string `json:"lang"`
	URL        string `json:"url,omitempty"`
	Passed     int    `json:"passed"`
	Failed     int    `json:"failed"`
	StartedAt  int64  `json:"started_at"`
	FinishedAt int64  `json:"finished_at"`
}

// SaveRun stores r and its results in one transaction. Pass and fail
// counts are derived from results. An empty r.ID is filled in.
func (s *Store) SaveRun(ctx context.Context, r *Run, results []verify.Result) error {
	if r.ID == "" {
		r.ID = s.NewID()
	}
	now := time.Now().UnixMilli()
	if r.StartedAt == 0 {
		r.StartedAt = now
	}
	if r.FinishedAt == 0 {
		r.FinishedAt = now
	}
	r.Passed, r.Failed = 0, 0
	for _, res := range results {
		if res.Passed {
			r.Passed++
		} else {
			r.Failed++
		}
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, screen, lang, url, passed, failed, started_at, finished_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		r.ID, r.Screen, r.Lang, r.URL, r.Passed, r.Failed, r.StartedAt, r.FinishedAt,
	); err != nil {
		return fmt.Errorf("store: insert run: %w", err)
	}

	for i, res := range results {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO results (run_id, seq, key, selector, want, got, passed, error, snapshot)
			VALUES (?,?,?,?,?,?,?,?,?)`,
			r.ID, i, res.Key, res.Selector, res.Want, res.Got, res.Passed, res.Err, res.Snapshot,
		); err != nil {
			return fmt.Errorf("store: insert result %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// GetRun returns the run with id, or nil when there is none.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	r := &Run{}
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, screen, lang, url, passed, failed, started_at, finished_at
		FROM runs WHERE id = ?`, id).Scan(
		&r.ID, &r.Screen, &r.Lang, &r.URL, &r.Passed, &r.Failed, &r.StartedAt, &r.FinishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Results returns the check outcomes of a run, in execution order.
func (s *Store) Results(ctx context.Context, runID string) ([]verify.Result, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT key, selector, want, got, passed, error, snapshot
		FROM results WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []verify.Result
	for rows.Next() {
		var res verify.Result
		if err := rows.Scan(&res.Key, &res.Selector, &res.Want, &res.Got, &res.Passed, &res.Err, &res.Snapshot); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, screen, lang, url, passed, failed, started_at, finished_at
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Screen, &r.Lang, &r.URL, &r.Passed, &r.Failed, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
