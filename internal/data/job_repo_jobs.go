package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/quillscore/quillscore-api/internal/data/pgxutil"
	"github.com/quillscore/quillscore-api/internal/domain/job"
	"github.com/quillscore/quillscore-api/internal/domain/model"
)

// Notification channels bridged to in-process topics by the notifier. Job
// creation wakes idle workers; every finalizer pings the submissions channel
// so status long-pollers see transitions promptly.
const (
	channelJobs        = "quillscore_jobs"
	channelSubmissions = "quillscore_submissions"
)

func channelForTopic(topic job.Topic) string {
	if topic == job.TopicSubmissions {
		return channelSubmissions
	}
	return channelJobs
}

// SQL used by TryClaimNext to atomically claim the next eligible job.
// FOR UPDATE SKIP LOCKED makes concurrent claimers skip rows another
// transaction already selected, so no two claims can return the same job.
const claimNextUpdateSQL = `
  WITH cte AS (
    SELECT id FROM jobs
    WHERE type = $1 AND status = 'pending' AND run_after <= $2
    ORDER BY created_at ASC
    LIMIT 1
    FOR UPDATE SKIP LOCKED
  )
  UPDATE jobs j
  SET
    status = 'running',
    locked_at = $2,
    locked_by = $3,
    attempts = j.attempts + 1,
    updated_at = $2
  FROM cte
  WHERE j.id = cte.id
  RETURNING j.id, j.type, j.submission_id, j.status, j.run_after, j.locked_at, j.locked_by, j.attempts, j.last_error, j.created_at, j.updated_at`

// Create creates a new pending job and notifies waiting workers.
func (r *JobRepo) Create(
	ctx context.Context,
	req *model.CreateJobRequest,
) (*model.Job, error) {
	if req == nil {
		return nil, errors.New("create job request is required")
	}

	if validateErr := req.Validate(); validateErr != nil {
		return nil, validateErr
	}

	var created *model.Job
	if txErr := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			var insertErr error
			created, insertErr = r.insertJobInTx(ctx, tx, req)
			return insertErr
		},
	}); txErr != nil {
		return nil, txErr
	}

	return created, nil
}

// CreateInTx inserts a job within an existing SQL transaction. Used to
// enqueue the evaluation job atomically with its submission row.
func (r *JobRepo) CreateInTx(
	ctx context.Context,
	sqlTx *sql.Tx,
	req *model.CreateJobRequest,
) (*model.Job, error) {
	if sqlTx == nil {
		return nil, errors.New("transaction is required")
	}
	if req == nil {
		return nil, errors.New("create job request is required")
	}
	if validateErr := req.Validate(); validateErr != nil {
		return nil, validateErr
	}

	query, args := r.buildInsertQuery(req)
	row := sqlTx.QueryRowContext(ctx, query, args...)

	created, scanErr := scanJobFromRow(row)
	if scanErr != nil {
		return nil, fmt.Errorf("collect job: %w", scanErr)
	}

	if _, notifyErr := sqlTx.ExecContext(ctx, `SELECT pg_notify($1::text, $2::text)`, channelJobs, created.ID); notifyErr != nil {
		return nil, fmt.Errorf("send job notification: %w", notifyErr)
	}

	return created, nil
}

// insertJobInTx inserts a job within a pgx.Tx and returns the created job.
func (r *JobRepo) insertJobInTx(ctx context.Context, tx pgx.Tx, req *model.CreateJobRequest) (*model.Job, error) {
	query, args := r.buildInsertQuery(req)

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	created, collectErr := collectJobFromRows(rows)
	rows.Close()
	if collectErr != nil {
		return nil, fmt.Errorf("collect job: %w", collectErr)
	}

	if _, execErr := tx.Exec(ctx, `SELECT pg_notify($1::text, $2::text)`, channelJobs, created.ID); execErr != nil {
		return nil, fmt.Errorf("send job notification: %w", execErr)
	}

	return created, nil
}

// buildInsertQuery builds an INSERT statement for a job based on the provided request.
func (r *JobRepo) buildInsertQuery(req *model.CreateJobRequest) (string, []any) {
	query := `
      INSERT INTO jobs(type, submission_id, status, run_after)
      VALUES ($1,$2,'pending',$3)
      RETURNING ` + jobColumns

	var runAfter time.Time
	if req.RunAfter != nil {
		runAfter = req.RunAfter.UTC()
	} else {
		runAfter = r.timeProvider.Now().UTC()
	}

	args := []any{
		req.Type,
		req.SubmissionID,
		runAfter,
	}
	return query, args
}

// collectJobFromRows collects a single job from pgx rows using pgx v5 helpers.
func collectJobFromRows(rows pgx.Rows) (*model.Job, error) {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}

	j, err := scanJobFromRow(rows)
	if err != nil {
		return nil, err
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, rowsErr
	}

	return j, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

type jobRowData struct {
	lockedBy, lastError sql.NullString
	lockedAt            sql.NullTime
}

func (d *jobRowData) scanInto(scanner rowScanner, j *model.Job) error {
	return scanner.Scan(
		&j.ID,
		&j.Type,
		&j.SubmissionID,
		&j.Status,
		&j.RunAfter,
		&d.lockedAt,
		&d.lockedBy,
		&j.Attempts,
		&d.lastError,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
}

func (d *jobRowData) apply(j *model.Job) {
	j.LockedAt = cloneNullableTime(d.lockedAt)
	j.LockedBy = cloneNullableString(d.lockedBy)
	j.LastError = cloneNullableString(d.lastError)
}

func scanJobFromRow(scanner rowScanner) (*model.Job, error) {
	j := &model.Job{}
	var data jobRowData
	if err := data.scanInto(scanner, j); err != nil {
		return nil, err
	}

	data.apply(j)
	return j, nil
}

func cloneNullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func cloneNullableTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

// TryClaimNext atomically claims the eligible pending job with the earliest
// creation time for workerID: selection, lock fields, and the attempt
// increment happen in one transaction. Returns model.ErrNoJobsAvailable when
// no eligible job exists; losing a claim race surfaces the same way.
func (r *JobRepo) TryClaimNext(
	ctx context.Context,
	jobType model.JobType,
	workerID string,
) (*model.Job, error) {
	if !jobType.Valid() {
		return nil, fmt.Errorf("invalid job type: %s", jobType)
	}
	if strings.TrimSpace(workerID) == "" {
		return nil, errors.New("worker id is required")
	}

	var claimed *model.Job
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Opts: &sql.TxOptions{
			Isolation: sql.LevelReadCommitted,
			ReadOnly:  false,
		},
		Fn: func(tx pgx.Tx) error {
			currentTime := r.timeProvider.Now()

			rows, qerr := tx.Query(
				ctx,
				claimNextUpdateSQL,
				jobType,
				currentTime.UTC(),
				workerID,
			)
			if qerr != nil {
				return fmt.Errorf("claim job: %w", qerr)
			}
			defer rows.Close()

			j, cerr := collectJobFromRows(rows)
			if errors.Is(cerr, pgx.ErrNoRows) {
				return model.ErrNoJobsAvailable
			}
			if cerr != nil {
				return fmt.Errorf("claim job: %w", cerr)
			}
			claimed = j
			return nil
		},
	})
	if err != nil {
		if errors.Is(err, model.ErrNoJobsAvailable) {
			return nil, model.ErrNoJobsAvailable
		}
		return nil, err
	}
	return claimed, nil
}

// Stats returns statistics about jobs of the given type in different states.
func (r *JobRepo) Stats(ctx context.Context, jobType model.JobType) (*model.JobStats, error) {
	var s model.JobStats
	err := r.DB.QueryRowContext(ctx, `
  SELECT
    count(*) FILTER (WHERE status = 'pending') AS pending,
    count(*) FILTER (WHERE status = 'running') AS running,
    count(*) FILTER (WHERE status = 'done')    AS done,
    count(*) FILTER (WHERE status = 'failed')  AS failed
  FROM jobs
  WHERE type = $1
  `, jobType).Scan(
		&s.Pending,
		&s.Running,
		&s.Done,
		&s.Failed,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get job stats: %w", err)
	}
	return &s, nil
}

// WaitForNotification blocks until one notification arrives on the channel
// backing the given topic, the context ends, or the connection drops.
func (r *JobRepo) WaitForNotification(ctx context.Context, topic job.Topic) error {
	conn, err := r.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get conn from pool: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			_ = cerr
		}
	}()

	channel := channelForTopic(topic)
	quoted := pgx.Identifier{channel}.Sanitize()

	if _, execErr := conn.ExecContext(ctx, "LISTEN "+quoted); execErr != nil {
		return fmt.Errorf("listen %s: %w", channel, execErr)
	}
	defer func() {
		if _, execErr := conn.ExecContext(context.Background(), "UNLISTEN "+quoted); execErr != nil {
			_ = execErr
		}
	}()

	return conn.Raw(func(dc any) error {
		sc, ok := dc.(*stdlib.Conn)
		if !ok {
			return errors.New("unexpected driver connection type; expected *stdlib.Conn")
		}
		_, notifyErr := sc.Conn().WaitForNotification(ctx)
		return notifyErr
	})
}

// GetByID retrieves a job by its ID.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	var found *model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, err := pgxConn.Query(ctx, `
			SELECT `+jobColumns+`
			FROM jobs
			WHERE id = $1
		`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		found, err = collectJobFromRows(rows)
		return err
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return found, nil
}

// LatestForSubmission returns the most recently created job for a submission,
// or nil when the submission has never been queued.
func (r *JobRepo) LatestForSubmission(ctx context.Context, submissionID string) (*model.Job, error) {
	var found *model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, err := pgxConn.Query(ctx, `
			SELECT `+jobColumns+`
			FROM jobs
			WHERE submission_id = $1
			ORDER BY created_at DESC
			LIMIT 1
		`, submissionID)
		if err != nil {
			return err
		}
		defer rows.Close()
		found, err = collectJobFromRows(rows)
		return err
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest job for submission: %w", err)
	}
	return found, nil
}
