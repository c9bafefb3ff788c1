package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/quillscore/quillscore-api/internal/core"
	"github.com/quillscore/quillscore-api/internal/data/pgxutil"
)

// Advisory lock namespace for reaper operations.
// Using two-arg pg_try_advisory_xact_lock(major, minor) for proper namespacing.
// Major key 1000 is reserved for quillscore reaper operations.
const (
	advisoryLockReaperMajor        = 1000
	advisoryLockReaperFailPending  = 1 // minor key for FailStalePendingJobs
	advisoryLockReaperRecoverStuck = 2 // minor key for RecoverStuckJobs
	advisoryLockReaperDeleteJobs   = 3 // minor key for DeleteOldJobs
	advisoryLockReaperDeleteDrafts = 4 // minor key for DeleteAbandonedDrafts
)

func acquireReaperLock(ctx context.Context, tx *sql.Tx, minor int) (bool, error) {
	var locked bool
	if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)", advisoryLockReaperMajor, minor).Scan(&locked); err != nil {
		return false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	return locked, nil
}

// FailStalePendingJobs fails pending jobs older than maxAge together with
// their submissions, so neither side of the state machine is left waiting on
// work that will never run. Processes up to batchSize jobs per call to
// prevent long locks and I/O spikes. Uses advisory locks to prevent
// concurrent reaper instances from conflicting. Returns the number of jobs
// marked as failed.
func (r *JobRepo) FailStalePendingJobs(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	var failed int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			locked, lockErr := acquireReaperLock(ctx, tx, advisoryLockReaperFailPending)
			if lockErr != nil {
				return lockErr
			}
			if !locked {
				failed = 0
				return nil
			}

			currentTime := r.timeProvider.Now()
			cutoffTime := currentTime.Add(-maxAge)

			// The outer status predicate makes the update a no-op for any
			// row a concurrent claim flipped to running after selection.
			row := tx.QueryRowContext(ctx, `
				WITH stale AS (
					SELECT id, submission_id FROM jobs
					WHERE status = 'pending'
					  AND created_at < $2
					ORDER BY created_at
					LIMIT $3
				),
				failed_jobs AS (
					UPDATE jobs j
					SET status = 'failed',
					    last_error = 'job timed out in pending status',
					    updated_at = $1
					FROM stale
					WHERE j.id = stale.id AND j.status = 'pending'
					RETURNING stale.submission_id
				),
				failed_submissions AS (
					UPDATE submissions s
					SET status = 'failed',
					    error_message = 'Evaluation timed out before processing. Please retry.',
					    completed_at = $1,
					    updated_at = $1
					FROM failed_jobs
					WHERE s.id = failed_jobs.submission_id
					  AND s.status IN ('queued', 'processing')
					RETURNING s.id
				)
				SELECT count(*) FROM failed_jobs
			`, currentTime.UTC(), cutoffTime.UTC(), batchSize)
			if scanErr := row.Scan(&failed); scanErr != nil {
				return fmt.Errorf("fail stale pending jobs: %w", scanErr)
			}
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return failed, nil
}

// RecoverStuckJobs handles running jobs whose lock timestamp is older than
// LockTimeout, meaning the holding worker died or lost connectivity mid
// attempt. Jobs with attempts remaining return to pending with the lock
// cleared and become immediately eligible; exhausted jobs fail together with
// their submissions. Returns the total number of jobs transitioned.
func (r *JobRepo) RecoverStuckJobs(ctx context.Context, params core.RecoverStuckJobsParams) (int64, error) {
	if params.LockTimeout <= 0 {
		return 0, errors.New("lock timeout must be greater than zero")
	}
	if params.MaxAttempts <= 0 {
		return 0, errors.New("max attempts must be greater than zero")
	}
	if params.BatchSize <= 0 {
		return 0, errors.New("batch size must be greater than zero")
	}

	var recovered int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			locked, lockErr := acquireReaperLock(ctx, tx, advisoryLockReaperRecoverStuck)
			if lockErr != nil {
				return lockErr
			}
			if !locked {
				recovered = 0
				return nil
			}

			currentTime := r.timeProvider.Now()
			lockCutoff := currentTime.Add(-params.LockTimeout)

			res, execErr := tx.ExecContext(ctx, `
				UPDATE jobs
				SET status = 'pending',
				    locked_at = NULL,
				    locked_by = NULL,
				    run_after = $1,
				    updated_at = $1
				WHERE id IN (
					SELECT id FROM jobs
					WHERE status = 'running'
					  AND locked_at IS NOT NULL
					  AND locked_at < $2
					  AND attempts < $3
					ORDER BY locked_at
					LIMIT $4
				) AND status = 'running'
			`, currentTime.UTC(), lockCutoff.UTC(), params.MaxAttempts, params.BatchSize)
			if execErr != nil {
				return fmt.Errorf("requeue stuck jobs: %w", execErr)
			}
			requeued, raErr := res.RowsAffected()
			if raErr != nil {
				return fmt.Errorf("rows affected: %w", raErr)
			}

			var exhausted int64
			row := tx.QueryRowContext(ctx, `
				WITH stuck AS (
					SELECT id, submission_id FROM jobs
					WHERE status = 'running'
					  AND locked_at IS NOT NULL
					  AND locked_at < $2
					  AND attempts >= $3
					ORDER BY locked_at
					LIMIT $4
				),
				failed_jobs AS (
					UPDATE jobs j
					SET status = 'failed',
					    last_error = 'job lock expired with no attempts remaining',
					    locked_at = NULL,
					    locked_by = NULL,
					    updated_at = $1
					FROM stuck
					WHERE j.id = stuck.id AND j.status = 'running'
					RETURNING stuck.submission_id
				),
				failed_submissions AS (
					UPDATE submissions s
					SET status = 'failed',
					    error_message = 'Evaluation was interrupted and could not be completed. Please retry.',
					    completed_at = $1,
					    updated_at = $1
					FROM failed_jobs
					WHERE s.id = failed_jobs.submission_id
					  AND s.status IN ('queued', 'processing')
					RETURNING s.id
				)
				SELECT count(*) FROM failed_jobs
			`, currentTime.UTC(), lockCutoff.UTC(), params.MaxAttempts, params.BatchSize)
			if scanErr := row.Scan(&exhausted); scanErr != nil {
				return fmt.Errorf("fail exhausted stuck jobs: %w", scanErr)
			}

			recovered = requeued + exhausted
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return recovered, nil
}

// DeleteOldJobs deletes jobs with the given terminal status older than maxAge.
// Processes up to batchSize jobs per call to prevent long locks and I/O spikes.
// Uses advisory locks to prevent concurrent reaper instances from conflicting.
// Returns the number of jobs deleted.
func (r *JobRepo) DeleteOldJobs(ctx context.Context, params core.DeleteOldJobsParams) (int64, error) {
	if !params.Status.Valid() {
		return 0, fmt.Errorf("invalid job status: %s", params.Status)
	}
	if !params.Status.Terminal() {
		return 0, fmt.Errorf("job status %s is not terminal", params.Status)
	}

	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			locked, lockErr := acquireReaperLock(ctx, tx, advisoryLockReaperDeleteJobs)
			if lockErr != nil {
				return lockErr
			}
			if !locked {
				rowsAffected = 0
				return nil
			}

			cutoffTime := r.timeProvider.Now().Add(-params.MaxAge)

			res, execErr := tx.ExecContext(ctx, `
				DELETE FROM jobs
				WHERE id IN (
					SELECT id FROM jobs
					WHERE status = $1
					  AND updated_at < $2
					ORDER BY updated_at
					LIMIT $3
				)
			`, params.Status, cutoffTime.UTC(), params.BatchSize)
			if execErr != nil {
				return fmt.Errorf("delete old jobs: %w", execErr)
			}

			ra, raErr := res.RowsAffected()
			if raErr != nil {
				return fmt.Errorf("rows affected: %w", raErr)
			}
			rowsAffected = ra
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return rowsAffected, nil
}

// DeleteAbandonedDrafts deletes draft submissions untouched for longer than
// maxAge. Drafts never gain a job row, so this is the only path that removes
// them. Processes up to batchSize rows per call; uses advisory locks to
// prevent concurrent reaper instances from conflicting.
func (r *JobRepo) DeleteAbandonedDrafts(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	if batchSize <= 0 {
		return 0, errors.New("batch size must be greater than zero")
	}
	if maxAge <= 0 {
		return 0, errors.New("max age must be greater than zero")
	}

	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			locked, lockErr := acquireReaperLock(ctx, tx, advisoryLockReaperDeleteDrafts)
			if lockErr != nil {
				return lockErr
			}
			if !locked {
				rowsAffected = 0
				return nil
			}

			cutoffTime := r.timeProvider.Now().Add(-maxAge)

			res, execErr := tx.ExecContext(ctx, `
				DELETE FROM submissions
				WHERE id IN (
					SELECT id FROM submissions
					WHERE status = 'draft'
					  AND updated_at < $1
					ORDER BY updated_at
					LIMIT $2
				)
			`, cutoffTime.UTC(), batchSize)
			if execErr != nil {
				return fmt.Errorf("delete abandoned drafts: %w", execErr)
			}

			ra, raErr := res.RowsAffected()
			if raErr != nil {
				return fmt.Errorf("rows affected: %w", raErr)
			}
			rowsAffected = ra
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return rowsAffected, nil
}
