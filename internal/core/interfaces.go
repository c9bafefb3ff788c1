package core

import (
	"context"
	"database/sql"
	"time"

	"github.com/quillscore/quillscore-api/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// These interfaces define the contracts between the service layer and data layer.
// Service implementations should depend on these interfaces, not concrete implementations.

// JobClaim identifies one held job lock. Finalizers only apply while the
// job is still running and locked by the same worker.
type JobClaim struct {
	JobID        string
	SubmissionID string
	WorkerID     string
}

// CompleteSuccessParams groups parameters for JobStore.CompleteSuccess.
type CompleteSuccessParams struct {
	Claim       JobClaim
	Evaluation  *model.Evaluation
	RawResponse []byte
}

// RescheduleTransientParams groups parameters for JobStore.RescheduleTransient.
type RescheduleTransientParams struct {
	Claim    JobClaim
	ErrMsg   string
	RunAfter time.Time
}

// FailPermanentParams groups parameters for JobStore.FailPermanent.
type FailPermanentParams struct {
	Claim  JobClaim
	ErrMsg string
}

// JobStore defines the interface for evaluate-job queue operations.
//
// TryClaimNext and the four finalizers carry the queue's correctness burden:
// a claim is exclusive among concurrent workers, and a finalizer applies only
// while the claim is still held (status running, locked_by matching). Each
// finalizer is a single transaction over the job, its submission and, on
// success, the evaluation result, so the two-level state machine can never
// be observed half-updated.
type JobStore interface {
	Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error)
	GetByID(ctx context.Context, id string) (*model.Job, error)
	// LatestForSubmission returns the most recently created job for a
	// submission, or nil when none exists.
	LatestForSubmission(ctx context.Context, submissionID string) (*model.Job, error)
	// TryClaimNext atomically claims the eligible pending job with the
	// earliest creation time. Returns model.ErrNoJobsAvailable when the
	// queue is empty; losing a claim race is not an error.
	TryClaimNext(ctx context.Context, jobType model.JobType, workerID string) (*model.Job, error)
	// BeginProcessing moves the claimed job's submission to processing.
	// Returns false when the claim is no longer held.
	BeginProcessing(ctx context.Context, claim JobClaim) (bool, error)
	// CompleteSuccess persists the evaluation result, finishes the
	// submission and marks the job done.
	CompleteSuccess(ctx context.Context, params CompleteSuccessParams) (bool, error)
	// RescheduleTransient returns the job to pending with a new run_after;
	// the submission stays processing until the next attempt resolves it.
	RescheduleTransient(ctx context.Context, params RescheduleTransientParams) (bool, error)
	// FailPermanent terminates both the job and its submission.
	FailPermanent(ctx context.Context, params FailPermanentParams) (bool, error)
	Stats(ctx context.Context, jobType model.JobType) (*model.JobStats, error)
}

// JobStoreTx defines optional transactional job creation support, used to
// enqueue a job atomically with its submission row.
type JobStoreTx interface {
	CreateInTx(ctx context.Context, tx *sql.Tx, req *model.CreateJobRequest) (*model.Job, error)
}

// TaskStore defines the interface for task catalog data operations.
type TaskStore interface {
	Create(ctx context.Context, req *model.CreateTaskRequest) (*model.Task, error)
	GetByID(ctx context.Context, id string) (*model.Task, error)
	GetByTitle(ctx context.Context, title string) (*model.Task, error)
	// List returns active tasks ordered by task type then creation time.
	List(ctx context.Context, taskType *model.TaskType) ([]*model.Task, error)
	// Random returns one active task chosen uniformly, optionally filtered
	// by task type. Returns nil when the catalog is empty.
	Random(ctx context.Context, taskType *model.TaskType) (*model.Task, error)
}

// DuplicateLookupParams groups parameters for SubmissionStore.FindRecentActive.
type DuplicateLookupParams struct {
	UserID string
	TaskID string
	Since  time.Time
}

// AttachJobFn runs inside the enqueue/requeue transaction so callers can
// create the evaluation job atomically with the submission write.
type AttachJobFn func(ctx context.Context, tx *sql.Tx, sub *model.Submission) error

// RequeueParams groups parameters for SubmissionStore.Requeue.
type RequeueParams struct {
	SubmissionID string
	UserID       string
}

// SubmissionStore defines the interface for submission data operations.
// Status transitions driven by job processing live on JobStore; this
// interface covers owner-driven writes and reads.
type SubmissionStore interface {
	GetByID(ctx context.Context, id string) (*model.Submission, error)
	// GetForUser returns the submission only when it belongs to userID.
	GetForUser(ctx context.Context, id, userID string) (*model.Submission, error)
	// UpsertDraft creates or replaces the user's draft for a task.
	UpsertDraft(ctx context.Context, req *model.SaveDraftRequest) (*model.Submission, error)
	// FindRecentActive returns a queued or processing submission for the
	// same user and task submitted at or after Since, or nil.
	FindRecentActive(ctx context.Context, params DuplicateLookupParams) (*model.Submission, error)
	// Enqueue consumes a matching draft if present (else inserts a new row),
	// marks the submission queued and runs attach in the same transaction.
	Enqueue(ctx context.Context, req *model.EnqueueSubmissionRequest, attach AttachJobFn) (*model.Submission, error)
	// Requeue flips a failed submission back to queued and runs attach in
	// the same transaction. Returns nil (no error) when the submission
	// exists but is not failed.
	Requeue(ctx context.Context, params RequeueParams, attach AttachJobFn) (*model.Submission, error)
	// ListForUser returns the user's non-draft submissions newest first.
	ListForUser(ctx context.Context, opts model.SubmissionListOptions) (*model.SubmissionPage, error)
}

// ResultStore defines read access to persisted evaluation results. Results
// are written exactly once inside JobStore.CompleteSuccess and immutable
// thereafter, so no write methods are exposed here.
type ResultStore interface {
	GetBySubmissionID(ctx context.Context, submissionID string) (*model.EvaluationResult, error)
}

// Scorer produces a raw evaluation payload for an essay. Implementations
// call an external provider (or a deterministic fallback); validation and
// repair of the payload happen downstream.
type Scorer interface {
	Name() string
	Score(ctx context.Context, taskPrompt, essayText string) ([]byte, error)
}

// CacheRepository defines the interface for caching operations.
// This follows the hexagonal architecture pattern where the core defines interfaces
// and the data layer provides implementations.
type CacheRepository interface {
	// Set stores a value in the cache with the given key and TTL.
	// If TTL is 0, the key will not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves a value from the cache by key.
	// Returns nil if the key doesn't exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a key from the cache.
	// Returns true if the key was deleted, false if it didn't exist.
	Delete(ctx context.Context, key string) (bool, error)

	// Exists checks if a key exists in the cache.
	Exists(ctx context.Context, key string) (bool, error)

	// SetTTL updates the TTL for an existing key.
	// Returns true if the key exists and TTL was updated.
	SetTTL(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// SetIfNotExists atomically sets a key only if it doesn't already exist.
	// Returns true if the key was set, false if it already existed.
	// This is useful for implementing distributed locks and deduplication.
	SetIfNotExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Health checks the health of the cache connection.
	Health(ctx context.Context) error
}

// RecoverStuckJobsParams groups parameters for ReaperRepository.RecoverStuckJobs.
type RecoverStuckJobsParams struct {
	LockTimeout time.Duration
	MaxAttempts int
	BatchSize   int
}

// DeleteOldJobsParams groups parameters for DeleteOldJobs to keep param count ≤3.
type DeleteOldJobsParams struct {
	Status    model.JobStatus
	MaxAge    time.Duration
	BatchSize int
}

// ReaperRepository defines the interface for queue cleanup operations.
type ReaperRepository interface {
	// FailStalePendingJobs fails pending jobs older than maxAge along with
	// their submissions. Processes up to batchSize jobs per call to prevent
	// long locks. Returns the number of jobs failed.
	FailStalePendingJobs(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)

	// RecoverStuckJobs handles running jobs whose lock is older than
	// LockTimeout: jobs with attempts remaining return to pending with the
	// lock cleared, exhausted jobs fail along with their submissions.
	// Returns the number of jobs transitioned.
	RecoverStuckJobs(ctx context.Context, params RecoverStuckJobsParams) (int64, error)

	// DeleteOldJobs deletes jobs with the given terminal status older than
	// maxAge. Processes up to batchSize jobs per call to prevent long locks.
	// Returns the number of jobs deleted.
	DeleteOldJobs(ctx context.Context, params DeleteOldJobsParams) (int64, error)

	// DeleteAbandonedDrafts deletes draft submissions untouched for longer
	// than maxAge. Returns the number of drafts deleted.
	DeleteAbandonedDrafts(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)
}
