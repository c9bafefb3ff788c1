package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/quillscore/quillscore-api/internal/core"
	"github.com/quillscore/quillscore-api/internal/data/pgxutil"
	"github.com/quillscore/quillscore-api/internal/domain/model"
)

// ErrSubmissionNotFound is returned when a submission is not found.
var ErrSubmissionNotFound = errors.New("submission not found")

// SubmissionRepo provides database operations for essay submissions. Writes
// that must land together with a job row run inside one transaction via the
// attach callback.
type SubmissionRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewSubmissionRepo creates a new SubmissionRepo.
func NewSubmissionRepo(db *sql.DB, cfg RepoConfig) *SubmissionRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &SubmissionRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

const (
	submissionSelectColumns = `id, user_id, task_id, status, essay_text, word_count, is_random, error_message, submitted_at, completed_at, created_at, updated_at`

	submissionGetByIDQuery = `
		SELECT ` + submissionSelectColumns + `
		FROM submissions
		WHERE id = $1`

	submissionGetForUserQuery = `
		SELECT ` + submissionSelectColumns + `
		FROM submissions
		WHERE id = $1 AND user_id = $2`

	submissionFindRecentActiveQuery = `
		SELECT ` + submissionSelectColumns + `
		FROM submissions
		WHERE user_id = $1 AND task_id = $2
		  AND status IN ('queued', 'processing')
		  AND submitted_at >= $3
		ORDER BY submitted_at DESC
		LIMIT 1`

	// Relies on the partial unique index over (user_id, task_id) for drafts,
	// so a user keeps at most one draft per task.
	submissionUpsertDraftStmt = `
		INSERT INTO submissions (
			user_id, task_id, status, essay_text, word_count, is_random, created_at, updated_at
		) VALUES (
			$1, $2, 'draft', $3, $4, $5, $6, $6
		)
		ON CONFLICT (user_id, task_id) WHERE status = 'draft'
		DO UPDATE SET
			essay_text = EXCLUDED.essay_text,
			word_count = EXCLUDED.word_count,
			is_random  = EXCLUDED.is_random,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + submissionSelectColumns

	submissionConsumeDraftStmt = `
		UPDATE submissions
		SET status = 'queued',
		    essay_text = $3,
		    word_count = $4,
		    is_random = $5,
		    submitted_at = $6,
		    error_message = NULL,
		    completed_at = NULL,
		    updated_at = $6
		WHERE user_id = $1 AND task_id = $2 AND status = 'draft'
		RETURNING ` + submissionSelectColumns

	submissionInsertQueuedStmt = `
		INSERT INTO submissions (
			user_id, task_id, status, essay_text, word_count, is_random, submitted_at, created_at, updated_at
		) VALUES (
			$1, $2, 'queued', $3, $4, $5, $6, $6, $6
		) RETURNING ` + submissionSelectColumns

	// Only failed submissions are eligible; the status predicate makes a
	// concurrent double-retry a no-op for the loser.
	submissionRequeueStmt = `
		UPDATE submissions
		SET status = 'queued',
		    error_message = NULL,
		    submitted_at = $3,
		    completed_at = NULL,
		    updated_at = $3
		WHERE id = $1 AND user_id = $2 AND status = 'failed'
		RETURNING ` + submissionSelectColumns
)

// GetByID retrieves a submission by ID.
func (r *SubmissionRepo) GetByID(ctx context.Context, id string) (*model.Submission, error) {
	return r.getByQuery(ctx, submissionGetByIDQuery, "failed to get submission by ID", id)
}

// GetForUser retrieves a submission by ID scoped to its owner. A submission
// belonging to another user is reported as not found.
func (r *SubmissionRepo) GetForUser(ctx context.Context, id, userID string) (*model.Submission, error) {
	return r.getByQuery(ctx, submissionGetForUserQuery, "failed to get submission for user", id, userID)
}

// FindRecentActive returns the newest queued or processing submission for the
// same user and task submitted at or after Since, or nil when none exists.
func (r *SubmissionRepo) FindRecentActive(ctx context.Context, params core.DuplicateLookupParams) (*model.Submission, error) {
	var out model.Submission
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, submissionFindRecentActiveQuery,
			params.UserID, params.TaskID, params.Since.UTC())
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Submission])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find recent active submission: %w", err)
	}
	return &out, nil
}

// UpsertDraft creates the user's draft for a task or replaces its text in
// place, preserving the draft row's identity across saves.
func (r *SubmissionRepo) UpsertDraft(ctx context.Context, req *model.SaveDraftRequest) (*model.Submission, error) {
	if req == nil {
		return nil, errors.New("save draft request is required")
	}

	now := r.timeProvider.Now().UTC()
	var out model.Submission
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, submissionUpsertDraftStmt,
			req.UserID, req.TaskID, req.EssayText, req.WordCount, req.IsRandom, now)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Submission])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to upsert draft: %w", err)
	}
	return &out, nil
}

// Enqueue moves the user's draft to queued, or creates a queued submission
// when no draft exists, and runs attach in the same transaction so the
// evaluation job row commits atomically with the submission.
func (r *SubmissionRepo) Enqueue(ctx context.Context, req *model.EnqueueSubmissionRequest, attach core.AttachJobFn) (*model.Submission, error) {
	if req == nil {
		return nil, errors.New("enqueue submission request is required")
	}
	if attach == nil {
		return nil, errors.New("attach job callback is required")
	}

	submittedAt := req.SubmittedAt.UTC()
	var out *model.Submission
	if err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			sub, err := scanSubmissionFromRow(tx.QueryRowContext(ctx, submissionConsumeDraftStmt,
				req.UserID, req.TaskID, req.EssayText, req.WordCount, req.IsRandom, submittedAt))
			if errors.Is(err, sql.ErrNoRows) {
				sub, err = scanSubmissionFromRow(tx.QueryRowContext(ctx, submissionInsertQueuedStmt,
					req.UserID, req.TaskID, req.EssayText, req.WordCount, req.IsRandom, submittedAt))
			}
			if err != nil {
				return fmt.Errorf("write queued submission: %w", err)
			}
			if err := attach(ctx, tx, sub); err != nil {
				return err
			}
			out = sub
			return nil
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to enqueue submission: %w", err)
	}
	return out, nil
}

// Requeue flips a failed submission back to queued and runs attach in the
// same transaction. Returns nil without error when the submission is missing
// or not in failed status; the caller decides how to report that.
func (r *SubmissionRepo) Requeue(ctx context.Context, params core.RequeueParams, attach core.AttachJobFn) (*model.Submission, error) {
	if attach == nil {
		return nil, errors.New("attach job callback is required")
	}

	now := r.timeProvider.Now().UTC()
	var out *model.Submission
	if err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			sub, err := scanSubmissionFromRow(tx.QueryRowContext(ctx, submissionRequeueStmt,
				params.SubmissionID, params.UserID, now))
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("requeue submission: %w", err)
			}
			if err := attach(ctx, tx, sub); err != nil {
				return err
			}
			out = sub
			return nil
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to requeue submission: %w", err)
	}
	return out, nil
}

// ListForUser returns one page of the user's non-draft submissions, newest
// first, joined with task metadata and the overall band when scored.
func (r *SubmissionRepo) ListForUser(ctx context.Context, opts model.SubmissionListOptions) (*model.SubmissionPage, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	perPage := opts.PerPage
	if perPage < 1 {
		perPage = 20
	}
	offset := (page - 1) * perPage

	out := &model.SubmissionPage{
		Submissions: []model.SubmissionSummary{},
		Page:        page,
	}
	var total int64
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		if err := conn.QueryRow(ctx,
			`SELECT count(*) FROM submissions WHERE user_id = $1 AND status <> 'draft'`,
			opts.UserID).Scan(&total); err != nil {
			return fmt.Errorf("count submissions: %w", err)
		}

		rows, err := conn.Query(ctx, `
			SELECT s.id, t.title, t.task_type, s.status, s.word_count, s.submitted_at, r.overall_band
			FROM submissions s
			JOIN tasks t ON t.id = s.task_id
			LEFT JOIN evaluation_results r ON r.submission_id = s.id
			WHERE s.user_id = $1 AND s.status <> 'draft'
			ORDER BY s.created_at DESC
			LIMIT $2 OFFSET $3`,
			opts.UserID, perPage, offset)
		if err != nil {
			return fmt.Errorf("list submissions: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				summary     model.SubmissionSummary
				submittedAt sql.NullTime
				overallBand sql.NullFloat64
			)
			if err := rows.Scan(
				&summary.ID,
				&summary.Task.Title,
				&summary.Task.TaskType,
				&summary.Status,
				&summary.WordCount,
				&submittedAt,
				&overallBand,
			); err != nil {
				return fmt.Errorf("scan submission summary: %w", err)
			}
			summary.SubmittedAt = cloneNullableTime(submittedAt)
			if overallBand.Valid {
				band := overallBand.Float64
				summary.OverallBand = &band
			}
			out.Submissions = append(out.Submissions, summary)
		}
		return rows.Err()
	}); err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	out.TotalPages = int((total + int64(perPage) - 1) / int64(perPage))
	out.HasNext = page < out.TotalPages
	out.HasPrevious = page > 1
	return out, nil
}

// getByQuery is a helper function to execute a query and return a single submission.
func (r *SubmissionRepo) getByQuery(
	ctx context.Context,
	q string,
	errMsg string,
	args ...any,
) (*model.Submission, error) {
	var sub model.Submission
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		sub, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Submission])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("%s: %w", errMsg, err)
	}
	return &sub, nil
}

// scanSubmissionFromRow scans a submission from a database/sql row, used on
// transactional write paths where RETURNING rows come from *sql.Tx.
func scanSubmissionFromRow(scanner rowScanner) (*model.Submission, error) {
	s := &model.Submission{}
	var (
		errorMessage sql.NullString
		submittedAt  sql.NullTime
		completedAt  sql.NullTime
	)
	if err := scanner.Scan(
		&s.ID,
		&s.UserID,
		&s.TaskID,
		&s.Status,
		&s.EssayText,
		&s.WordCount,
		&s.IsRandom,
		&errorMessage,
		&submittedAt,
		&completedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	s.ErrorMessage = cloneNullableString(errorMessage)
	s.SubmittedAt = cloneNullableTime(submittedAt)
	s.CompletedAt = cloneNullableTime(completedAt)
	return s, nil
}
