package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Claim attempts the single Pending → InProgress compare-and-set. Exactly one
// caller wins for a given work item; everyone else gets ErrConflict and must
// walk away. This is the guard against duplicate concurrent processing.
func (s *Store) Claim(ctx context.Context, workItemID, leaseToken string) (*JobRecord, error) {
	now := timestamp(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, lease_token = ?, last_heartbeat = ?, updated_at = ?
         WHERE work_item_id = ? AND status = ?`,
		StatusInProgress,
		leaseToken,
		now,
		now,
		workItemID,
		StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("claim rows affected: %w", err)
	}
	if affected == 0 {
		if _, getErr := s.GetJob(ctx, workItemID); getErr != nil {
			return nil, getErr
		}
		return nil, ErrConflict
	}
	return s.GetJob(ctx, workItemID)
}

// Release returns a claimed job to Pending, clearing the lease. Used on
// cancellation between candidate attempts so a future run is not blocked.
func (s *Store) Release(ctx context.Context, workItemID, leaseToken string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, lease_token = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE work_item_id = ? AND status = ? AND lease_token = ?`,
		StatusPending,
		timestamp(time.Now()),
		workItemID,
		StatusInProgress,
		leaseToken,
	)
	if err != nil {
		return fmt.Errorf("release job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("release rows affected: %w", err)
	}
	if affected == 0 {
		return ErrConflict
	}
	return nil
}

// CommitCompleted moves a claimed job to Completed with the accepted
// candidate's provenance and the artifact reference.
func (s *Store) CommitCompleted(ctx context.Context, workItemID, leaseToken string, attempts int, accepted AcceptedCandidate, textRef string) (*JobRecord, error) {
	acceptedJSON, err := json.Marshal(accepted)
	if err != nil {
		return nil, fmt.Errorf("marshal accepted candidate: %w", err)
	}
	return s.commitTerminal(ctx, workItemID, leaseToken, StatusCompleted, attempts, string(acceptedJSON), textRef, "")
}

// CommitFailed moves a claimed job to Failed with a human-readable reason.
func (s *Store) CommitFailed(ctx context.Context, workItemID, leaseToken string, attempts int, reason string) (*JobRecord, error) {
	return s.commitTerminal(ctx, workItemID, leaseToken, StatusFailed, attempts, "", "", reason)
}

func (s *Store) commitTerminal(ctx context.Context, workItemID, leaseToken string, status Status, attempts int, acceptedJSON, textRef, reason string) (*JobRecord, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, attempts = ?, accepted_json = ?, text_ref = ?, last_error = ?,
             lease_token = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE work_item_id = ? AND status = ? AND lease_token = ?`,
		status,
		attempts,
		nullableString(acceptedJSON),
		nullableString(textRef),
		nullableString(reason),
		timestamp(time.Now()),
		workItemID,
		StatusInProgress,
		leaseToken,
	)
	if err != nil {
		return nil, fmt.Errorf("commit %s: %w", status, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("commit rows affected: %w", err)
	}
	if affected == 0 {
		record, getErr := s.GetJob(ctx, workItemID)
		if getErr != nil {
			return nil, getErr
		}
		// Terminal-over-terminal is a correctness bug, not an external-world
		// condition; it must surface hard.
		if record.Status.IsTerminal() {
			return nil, fmt.Errorf("%w: job %s already %s", ErrTerminalConflict, workItemID, record.Status)
		}
		return nil, ErrConflict
	}
	return s.GetJob(ctx, workItemID)
}

// RetryFailed moves a failed job back to Pending. The transition is explicit
// and rate-limited: a job younger than cooldown since its last update is left
// alone.
func (s *Store) RetryFailed(ctx context.Context, workItemID string, cooldown time.Duration) (*JobRecord, error) {
	record, err := s.GetJob(ctx, workItemID)
	if err != nil {
		return nil, err
	}
	if record.Status != StatusFailed {
		return nil, ErrConflict
	}
	if cooldown > 0 && time.Since(record.UpdatedAt) < cooldown {
		return nil, fmt.Errorf("%w: retry allowed after %s", ErrRetryCooldown, record.UpdatedAt.Add(cooldown).UTC().Format(time.RFC3339))
	}

	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, last_error = NULL, lease_token = NULL, updated_at = ?
         WHERE work_item_id = ? AND status = ?`,
		StatusPending,
		timestamp(time.Now()),
		workItemID,
		StatusFailed,
	)
	if err != nil {
		return nil, fmt.Errorf("retry failed job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("retry rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrConflict
	}
	return s.GetJob(ctx, workItemID)
}

// Heartbeat refreshes the claim liveness marker for an in-flight job.
func (s *Store) Heartbeat(ctx context.Context, workItemID, leaseToken string) error {
	now := timestamp(time.Now())
	if _, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET last_heartbeat = ?, updated_at = ? WHERE work_item_id = ? AND lease_token = ?`,
		now,
		now,
		workItemID,
		leaseToken,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStale returns in-progress jobs with expired heartbeats to Pending so
// a crashed worker does not strand them forever.
func (s *Store) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, lease_token = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE status = ? AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		StatusPending,
		timestamp(time.Now()),
		StatusInProgress,
		timestamp(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	return res.RowsAffected()
}
