package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/quillscore/quillscore-api/internal/core"
	"github.com/quillscore/quillscore-api/internal/data/pgxutil"
)

// Finalizers resolve one processing attempt. Each runs as a single
// transaction guarded by `status = 'running' AND locked_by = $worker` on the
// job row, so a finalizer from a worker whose lock was reaped applies
// nothing, and the job/submission pair is never observed half-updated.

func validateClaim(claim core.JobClaim) error {
	if strings.TrimSpace(claim.JobID) == "" {
		return errors.New("job id is required")
	}
	if strings.TrimSpace(claim.SubmissionID) == "" {
		return errors.New("submission id is required")
	}
	if strings.TrimSpace(claim.WorkerID) == "" {
		return errors.New("worker id is required")
	}
	return nil
}

func notifySubmissionInTx(ctx context.Context, tx *sql.Tx, submissionID string) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1::text, $2::text)`, channelSubmissions, submissionID); err != nil {
		return fmt.Errorf("send submission notification: %w", err)
	}
	return nil
}

// BeginProcessing moves the claimed job's submission to processing. Returns
// false without error when the claim is no longer held.
func (r *JobRepo) BeginProcessing(ctx context.Context, claim core.JobClaim) (bool, error) {
	if err := validateClaim(claim); err != nil {
		return false, err
	}

	applied := false
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			currentTime := r.timeProvider.Now().UTC()
			res, execErr := tx.ExecContext(ctx, `
				UPDATE submissions s
				SET status = 'processing',
				    updated_at = $3
				FROM jobs j
				WHERE j.id = $1 AND j.status = 'running' AND j.locked_by = $2
				  AND s.id = j.submission_id
			`, claim.JobID, claim.WorkerID, currentTime)
			if execErr != nil {
				return fmt.Errorf("begin processing: %w", execErr)
			}
			ra, raErr := res.RowsAffected()
			if raErr != nil {
				return fmt.Errorf("begin processing rows affected: %w", raErr)
			}
			if ra == 0 {
				return nil
			}

			applied = true
			return notifySubmissionInTx(ctx, tx, claim.SubmissionID)
		},
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// CompleteSuccess marks the job done, persists the evaluation result, and
// finishes the submission, all in one transaction. Returns false without
// error when the claim is no longer held.
func (r *JobRepo) CompleteSuccess(ctx context.Context, params core.CompleteSuccessParams) (bool, error) {
	if err := validateClaim(params.Claim); err != nil {
		return false, err
	}
	if params.Evaluation == nil {
		return false, errors.New("evaluation is required")
	}

	criteria, err := json.Marshal(params.Evaluation.CriteriaScores)
	if err != nil {
		return false, fmt.Errorf("marshal criteria scores: %w", err)
	}
	feedback, err := json.Marshal(params.Evaluation.Feedback)
	if err != nil {
		return false, fmt.Errorf("marshal feedback: %w", err)
	}
	fixes, err := json.Marshal(params.Evaluation.PriorityFixes)
	if err != nil {
		return false, fmt.Errorf("marshal priority fixes: %w", err)
	}

	var rawResponse *string
	if len(params.RawResponse) > 0 {
		raw := string(params.RawResponse)
		rawResponse = &raw
	}

	applied := false
	txErr := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			currentTime := r.timeProvider.Now().UTC()
			res, execErr := tx.ExecContext(ctx, `
				UPDATE jobs
				SET status = 'done',
				    locked_at = NULL,
				    locked_by = NULL,
				    last_error = NULL,
				    updated_at = $3
				WHERE id = $1 AND status = 'running' AND locked_by = $2
			`, params.Claim.JobID, params.Claim.WorkerID, currentTime)
			if execErr != nil {
				return fmt.Errorf("complete job: %w", execErr)
			}
			ra, raErr := res.RowsAffected()
			if raErr != nil {
				return fmt.Errorf("complete job rows affected: %w", raErr)
			}
			if ra == 0 {
				return nil
			}

			if _, execErr := tx.ExecContext(ctx, `
				INSERT INTO evaluation_results (submission_id, overall_band, criteria_scores, feedback, priority_fixes, improved_essay, raw_response)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`,
				params.Claim.SubmissionID,
				params.Evaluation.OverallBand,
				criteria,
				feedback,
				fixes,
				params.Evaluation.ImprovedEssay,
				rawResponse,
			); execErr != nil {
				return fmt.Errorf("insert evaluation result: %w", execErr)
			}

			if _, execErr := tx.ExecContext(ctx, `
				UPDATE submissions
				SET status = 'done',
				    completed_at = $2,
				    error_message = NULL,
				    updated_at = $2
				WHERE id = $1
			`, params.Claim.SubmissionID, currentTime); execErr != nil {
				return fmt.Errorf("finish submission: %w", execErr)
			}

			applied = true
			return notifySubmissionInTx(ctx, tx, params.Claim.SubmissionID)
		},
	})
	if txErr != nil {
		return false, txErr
	}
	return applied, nil
}

// RescheduleTransient returns the job to pending with the given run_after and
// records the error; the lock is released and the submission intentionally
// stays processing until the next attempt resolves it. Returns false without
// error when the claim is no longer held.
func (r *JobRepo) RescheduleTransient(ctx context.Context, params core.RescheduleTransientParams) (bool, error) {
	if err := validateClaim(params.Claim); err != nil {
		return false, err
	}

	applied := false
	txErr := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			currentTime := r.timeProvider.Now().UTC()
			res, execErr := tx.ExecContext(ctx, `
				UPDATE jobs
				SET status = 'pending',
				    run_after = $3,
				    last_error = $4,
				    locked_at = NULL,
				    locked_by = NULL,
				    updated_at = $5
				WHERE id = $1 AND status = 'running' AND locked_by = $2
			`,
				params.Claim.JobID,
				params.Claim.WorkerID,
				params.RunAfter.UTC(),
				params.ErrMsg,
				currentTime,
			)
			if execErr != nil {
				return fmt.Errorf("reschedule job: %w", execErr)
			}
			ra, raErr := res.RowsAffected()
			if raErr != nil {
				return fmt.Errorf("reschedule job rows affected: %w", raErr)
			}
			if ra == 0 {
				return nil
			}

			applied = true
			return notifySubmissionInTx(ctx, tx, params.Claim.SubmissionID)
		},
	})
	if txErr != nil {
		return false, txErr
	}
	return applied, nil
}

// FailPermanent terminates the job and its submission with the given error
// message. Returns false without error when the claim is no longer held.
func (r *JobRepo) FailPermanent(ctx context.Context, params core.FailPermanentParams) (bool, error) {
	if err := validateClaim(params.Claim); err != nil {
		return false, err
	}

	applied := false
	txErr := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			currentTime := r.timeProvider.Now().UTC()
			res, execErr := tx.ExecContext(ctx, `
				UPDATE jobs
				SET status = 'failed',
				    last_error = $3,
				    locked_at = NULL,
				    locked_by = NULL,
				    updated_at = $4
				WHERE id = $1 AND status = 'running' AND locked_by = $2
			`, params.Claim.JobID, params.Claim.WorkerID, params.ErrMsg, currentTime)
			if execErr != nil {
				return fmt.Errorf("fail job: %w", execErr)
			}
			ra, raErr := res.RowsAffected()
			if raErr != nil {
				return fmt.Errorf("fail job rows affected: %w", raErr)
			}
			if ra == 0 {
				return nil
			}

			if _, execErr := tx.ExecContext(ctx, `
				UPDATE submissions
				SET status = 'failed',
				    error_message = $2,
				    completed_at = $3,
				    updated_at = $3
				WHERE id = $1
			`, params.Claim.SubmissionID, params.ErrMsg, currentTime); execErr != nil {
				return fmt.Errorf("fail submission: %w", execErr)
			}

			applied = true
			return notifySubmissionInTx(ctx, tx, params.Claim.SubmissionID)
		},
	})
	if txErr != nil {
		return false, txErr
	}
	return applied, nil
}
