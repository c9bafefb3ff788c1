// Package workflowtest provides an end-to-end harness that drives essays
// through the full scoring pipeline: draft, submit, queue, claim, score and
// finalize, all against a real database.
package workflowtest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quillscore/quillscore-api/internal/adapters/scorer"
	"github.com/quillscore/quillscore-api/internal/core"
	"github.com/quillscore/quillscore-api/internal/data"
	domainjob "github.com/quillscore/quillscore-api/internal/domain/job"
	"github.com/quillscore/quillscore-api/internal/domain/model"
	"github.com/quillscore/quillscore-api/internal/service"
	"github.com/quillscore/quillscore-api/internal/testutil"
)

// Options configures the pipeline harness.
type Options struct {
	// MaxAttempts bounds claim attempts per job before permanent failure.
	MaxAttempts int
	// BackoffStep is the linear retry delay multiplier.
	BackoffStep time.Duration
	// Scorer overrides the deterministic fallback scorer.
	Scorer core.Scorer
}

// DefaultOptions mirrors the production retry defaults.
func DefaultOptions() Options {
	return Options{
		MaxAttempts: 2,
		BackoffStep: 30 * time.Second,
	}
}

// PipelineHarness wires real repositories and services over a test database
// so tests can exercise the submission-to-result workflow without HTTP.
type PipelineHarness struct {
	t  testutil.TestingTB
	db *sql.DB

	WorkerID string

	JobRepo        *data.JobRepo
	SubmissionRepo *data.SubmissionRepo
	TaskRepo       *data.TaskRepo
	ResultRepo     *data.ResultRepo

	Tasks       *service.TaskService
	Submissions *service.SubmissionService
	Evaluator   *service.EvaluationService
}

// NewPipelineHarness builds a harness against a fresh test database. The test
// is skipped when no database is reachable.
func NewPipelineHarness(t testutil.TestingTB, opts Options) *PipelineHarness {
	t.Helper()

	db := testutil.SetupAutoDB(t)

	jobRepo := data.NewJobRepo(db, data.RepoConfig{})
	submissionRepo := data.NewSubmissionRepo(db, data.RepoConfig{})
	taskRepo := data.NewTaskRepo(db)
	resultRepo := data.NewResultRepo(db)

	taskSvc := service.MustNewTaskService(service.TaskServiceOptions{
		Repo: taskRepo,
	})
	submissionSvc, err := service.NewSubmissionService(service.SubmissionServiceOptions{
		Submissions: submissionRepo,
		Tasks:       taskRepo,
		Jobs:        jobRepo,
		Results:     resultRepo,
	})
	if err != nil {
		t.Fatal("Failed to build submission service:", err)
	}

	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 2
	}
	if opts.BackoffStep <= 0 {
		opts.BackoffStep = 30 * time.Second
	}
	retryPolicy, err := domainjob.NewRetryPolicy(opts.MaxAttempts, opts.BackoffStep)
	if err != nil {
		t.Fatal("Failed to build retry policy:", err)
	}

	scoringProvider := opts.Scorer
	if scoringProvider == nil {
		scoringProvider = scorer.NewFallback()
	}
	evaluator, err := service.NewEvaluationService(service.EvaluationServiceOptions{
		Jobs:        jobRepo,
		Submissions: submissionRepo,
		Tasks:       taskRepo,
		Scorer:      scoringProvider,
		RetryPolicy: retryPolicy,
	})
	if err != nil {
		t.Fatal("Failed to build evaluation service:", err)
	}

	return &PipelineHarness{
		t:              t,
		db:             db,
		WorkerID:       "test-worker-" + uuid.NewString(),
		JobRepo:        jobRepo,
		SubmissionRepo: submissionRepo,
		TaskRepo:       taskRepo,
		ResultRepo:     resultRepo,
		Tasks:          taskSvc,
		Submissions:    submissionSvc,
		Evaluator:      evaluator,
	}
}

// DB exposes the underlying database handle for direct assertions.
func (h *PipelineHarness) DB() *sql.DB { return h.db }

// CreateTask persists a catalog task and returns it.
func (h *PipelineHarness) CreateTask(ctx context.Context, req *model.CreateTaskRequest) *model.Task {
	h.t.Helper()
	task, err := h.TaskRepo.Create(ctx, req)
	if err != nil {
		h.t.Fatal("Failed to create task:", err)
	}
	return task
}

// SubmitEssay saves a draft and submits it, returning the queued submission.
func (h *PipelineHarness) SubmitEssay(ctx context.Context, userID, taskID, essay string) *model.Submission {
	h.t.Helper()

	draft := testutil.NewDraftRequest().WithUser(userID).WithTask(taskID).WithEssay(essay).Build()
	if _, err := h.Submissions.SaveDraft(ctx, draft); err != nil {
		h.t.Fatal("Failed to save draft:", err)
	}

	sub, _, err := h.Submissions.Submit(ctx, service.SubmitParams{
		UserID:    userID,
		TaskID:    taskID,
		EssayText: essay,
	})
	if err != nil {
		h.t.Fatal("Failed to submit essay:", err)
	}
	return sub
}

// ErrQueueEmpty reports that RunWorkerOnce found no claimable job.
var ErrQueueEmpty = errors.New("no claimable jobs")

// RunWorkerOnce claims at most one evaluate job and processes it to a
// terminal state for this attempt. Returns ErrQueueEmpty when nothing is
// eligible.
func (h *PipelineHarness) RunWorkerOnce(ctx context.Context) error {
	claimed, err := h.JobRepo.TryClaimNext(ctx, model.JobTypeEvaluate, h.WorkerID)
	if err != nil {
		if errors.Is(err, model.ErrNoJobsAvailable) {
			return ErrQueueEmpty
		}
		return fmt.Errorf("claim job: %w", err)
	}
	return h.Evaluator.Process(ctx, claimed)
}

// DrainQueue processes claimable jobs until the queue is empty, bounded by
// maxJobs as a runaway guard.
func (h *PipelineHarness) DrainQueue(ctx context.Context, maxJobs int) int {
	h.t.Helper()
	processed := 0
	for processed < maxJobs {
		err := h.RunWorkerOnce(ctx)
		if errors.Is(err, ErrQueueEmpty) {
			return processed
		}
		if err != nil {
			h.t.Fatal("Failed to process job:", err)
		}
		processed++
	}
	return processed
}

// GetSubmission reloads a submission by ID for assertions.
func (h *PipelineHarness) GetSubmission(ctx context.Context, id, userID string) *model.Submission {
	h.t.Helper()
	sub, err := h.SubmissionRepo.GetForUser(ctx, id, userID)
	if err != nil {
		h.t.Fatal("Failed to load submission:", err)
	}
	return sub
}

// GetResult loads the persisted evaluation result for a submission.
func (h *PipelineHarness) GetResult(ctx context.Context, submissionID string) *model.EvaluationResult {
	h.t.Helper()
	result, err := h.ResultRepo.GetBySubmissionID(ctx, submissionID)
	if err != nil {
		h.t.Fatal("Failed to load evaluation result:", err)
	}
	return result
}

// MakeJobClaimable rewinds a job's run_after so retry backoff does not stall
// the test clock.
func (h *PipelineHarness) MakeJobClaimable(ctx context.Context, jobID string) {
	h.t.Helper()
	if _, err := h.db.ExecContext(ctx,
		"UPDATE jobs SET run_after = now() - INTERVAL '1 second' WHERE id = $1", jobID); err != nil {
		h.t.Fatalf("Failed to rewind run_after for job %s: %v", jobID, err)
	}
}
