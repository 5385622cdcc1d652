package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"scribe/internal/workitem"
)

// Enqueue inserts a pending job for a work item. When a job already exists for
// the same work item ID the existing record is returned unchanged: duplicate
// submissions are expected and must not create second jobs.
func (s *Store) Enqueue(ctx context.Context, item workitem.WorkItem) (*JobRecord, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(item.ID) == "" {
		item.ID = workitem.DeriveID(item.Kind, item.Locator)
	}

	locatorJSON, err := json.Marshal(item.Locator)
	if err != nil {
		return nil, fmt.Errorf("marshal locator: %w", err)
	}

	now := timestamp(time.Now())
	_, err = s.execWithRetry(
		ctx,
		`INSERT INTO jobs (work_item_id, kind, locator_json, priority, status, attempts, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, 0, ?, ?)
         ON CONFLICT(work_item_id) DO NOTHING`,
		item.ID,
		string(item.Kind),
		string(locatorJSON),
		item.Priority,
		StatusPending,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	return s.GetJob(ctx, item.ID)
}

// GetJob fetches the job record for a work item ID.
func (s *Store) GetJob(ctx context.Context, workItemID string) (*JobRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE work_item_id = ?`, workItemID)
	record, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return record, nil
}

// NextPending returns the next claimable job: highest priority first, then
// oldest. Returns nil when nothing is pending.
func (s *Store) NextPending(ctx context.Context) (*JobRecord, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY priority DESC, id ASC LIMIT 1`,
		StatusPending,
	)
	record, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next pending: %w", err)
	}
	return record, nil
}

// List returns jobs filtered by status, newest first. An empty status lists
// everything.
func (s *Store) List(ctx context.Context, status Status, limit int) ([]*JobRecord, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY updated_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var records []*JobRecord
	for rows.Next() {
		record, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return records, nil
}

// Stats aggregates counts per lifecycle state.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("stats query: %w", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, fmt.Errorf("scan stats row: %w", err)
		}
		switch Status(status) {
		case StatusPending:
			stats.Pending = count
		case StatusInProgress:
			stats.InProgress = count
		case StatusCompleted:
			stats.Completed = count
		case StatusFailed:
			stats.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate stats: %w", err)
	}

	if terminal := stats.Completed + stats.Failed; terminal > 0 {
		stats.SuccessRate = float64(stats.Completed) / float64(terminal)
	}
	return stats, nil
}
