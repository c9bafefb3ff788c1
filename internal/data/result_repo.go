package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/quillscore/quillscore-api/internal/data/pgxutil"
	"github.com/quillscore/quillscore-api/internal/domain/model"
)

// ErrResultNotFound is returned when no evaluation result exists for a submission.
var ErrResultNotFound = errors.New("evaluation result not found")

// ResultRepo reads persisted evaluation results. Results are written by the
// job finalizer inside the completion transaction, so this repo is read-only.
type ResultRepo struct {
	DB *sql.DB
}

// NewResultRepo creates a new ResultRepo.
func NewResultRepo(db *sql.DB) *ResultRepo {
	return &ResultRepo{DB: db}
}

const resultGetBySubmissionQuery = `
	SELECT id, submission_id, overall_band, criteria_scores, feedback, priority_fixes, improved_essay, raw_response, created_at
	FROM evaluation_results
	WHERE submission_id = $1`

// GetBySubmissionID retrieves the evaluation result for a submission.
func (r *ResultRepo) GetBySubmissionID(ctx context.Context, submissionID string) (*model.EvaluationResult, error) {
	var out model.EvaluationResult
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, resultGetBySubmissionQuery, submissionID)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.EvaluationResult])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get evaluation result: %w", err)
	}
	return &out, nil
}
