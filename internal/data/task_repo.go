package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/quillscore/quillscore-api/internal/data/pgxutil"
	"github.com/quillscore/quillscore-api/internal/domain/model"
)

var (
	// ErrTaskNotFound is returned when a task is not found.
	ErrTaskNotFound = errors.New("task not found")
	// ErrTaskTitleExists is returned when attempting to create a task with a duplicate title.
	ErrTaskTitleExists = errors.New("task title already exists")
)

// TaskRepo provides database operations for the writing task catalog.
type TaskRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewTaskRepo creates a new TaskRepo with real time provider.
func NewTaskRepo(db *sql.DB) *TaskRepo {
	return &TaskRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewTaskRepoWithTimeProvider creates a new TaskRepo with a custom time provider (useful for tests).
func NewTaskRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *TaskRepo {
	return &TaskRepo{DB: db, timeProvider: tp}
}

// SQL query constants for static queries (no dynamic WHERE/ORDER BY).
const (
	taskSelectColumns = `id, task_type, title, prompt, min_words, suggested_time, is_active, exam_code, module_code, created_at, updated_at`

	taskGetByIDQuery = `
		SELECT ` + taskSelectColumns + `
		FROM tasks
		WHERE id = $1`

	taskGetByTitleQuery = `
		SELECT ` + taskSelectColumns + `
		FROM tasks
		WHERE title = $1`

	// The optional type filter is folded into the query so both the
	// filtered and unfiltered paths stay a single prepared statement.
	taskListQuery = `
		SELECT ` + taskSelectColumns + `
		FROM tasks
		WHERE is_active AND ($1::text IS NULL OR task_type = $1::text)
		ORDER BY task_type ASC, created_at ASC`

	taskRandomQuery = `
		SELECT ` + taskSelectColumns + `
		FROM tasks
		WHERE is_active AND ($1::text IS NULL OR task_type = $1::text)
		ORDER BY random()
		LIMIT 1`
)

// Create inserts a new catalog task.
func (r *TaskRepo) Create(ctx context.Context, req *model.CreateTaskRequest) (*model.Task, error) {
	if req == nil {
		return nil, errors.New("create task request is required")
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	createdAt := r.timeProvider.Now().UTC()
	var out model.Task
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO tasks (
				task_type, title, prompt, min_words, suggested_time, created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $6
			) RETURNING `+taskSelectColumns,
			req.TaskType,
			strings.TrimSpace(req.Title),
			req.Prompt,
			req.MinWords,
			req.SuggestedTime,
			createdAt,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Task])
		return err
	}); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, ErrTaskTitleExists
		}
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return &out, nil
}

// GetByID retrieves a task by ID regardless of its active flag; catalog
// visibility rules live in the service layer.
func (r *TaskRepo) GetByID(ctx context.Context, id string) (*model.Task, error) {
	return r.getByQuery(ctx, taskGetByIDQuery, "failed to get task by ID", id)
}

// GetByTitle retrieves a task by its title.
func (r *TaskRepo) GetByTitle(ctx context.Context, title string) (*model.Task, error) {
	return r.getByQuery(ctx, taskGetByTitleQuery, "failed to get task by title", title)
}

// List retrieves active tasks ordered by task type then creation time,
// optionally filtered by task type.
func (r *TaskRepo) List(ctx context.Context, taskType *model.TaskType) ([]*model.Task, error) {
	var rowsOut []model.Task
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, taskListQuery, taskTypeFilterArg(taskType))
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Task])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	res := make([]*model.Task, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// Random returns one active task chosen uniformly, optionally filtered by
// task type. Returns nil without error when no active task matches.
func (r *TaskRepo) Random(ctx context.Context, taskType *model.TaskType) (*model.Task, error) {
	var out model.Task
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, taskRandomQuery, taskTypeFilterArg(taskType))
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Task])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get random task: %w", err)
	}
	return &out, nil
}

// taskTypeFilterArg converts an optional task type into a nullable query arg.
func taskTypeFilterArg(taskType *model.TaskType) *string {
	if taskType == nil {
		return nil
	}
	s := string(*taskType)
	return &s
}

// getByQuery is a helper function to execute a query and return a single task.
func (r *TaskRepo) getByQuery(
	ctx context.Context,
	q string,
	errMsg string,
	args ...any,
) (*model.Task, error) {
	var task model.Task
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		task, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Task])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("%s: %w", errMsg, err)
	}
	return &task, nil
}
