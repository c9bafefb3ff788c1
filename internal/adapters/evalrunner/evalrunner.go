// Package evalrunner provides the worker adapter that claims and processes
// evaluation jobs.
package evalrunner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quillscore/quillscore-api/internal/core"
	"github.com/quillscore/quillscore-api/internal/data"
	domainjob "github.com/quillscore/quillscore-api/internal/domain/job"
	"github.com/quillscore/quillscore-api/internal/domain/model"
	"github.com/quillscore/quillscore-api/internal/observability/statsd"
	"github.com/quillscore/quillscore-api/internal/service"
	"github.com/quillscore/quillscore-api/internal/service/failurenotifier"
)

// RunnerOptions configures the evaluation job runner adapter.
type RunnerOptions struct {
	DB     *sql.DB
	Logger *slog.Logger

	// Worker loop settings
	Concurrency  int           // number of worker goroutines; defaults to 1
	WorkerID     string        // lock owner prefix; defaults to hostname-pid
	PollInterval time.Duration // idle wake-up when no notification arrives; defaults to 5s
	ErrorBackoff time.Duration // pause after an unexpected claim error; defaults to 5s

	// Retry policy settings
	MaxAttempts int           // per-job attempt limit; defaults to 2
	BackoffStep time.Duration // linear retry step; defaults to 30s

	// Scorer is the scoring provider evaluations run against. Required.
	Scorer core.Scorer

	// Optional dependency injections (useful for tests/decoupling)
	JobsRepo        core.JobStore
	SubmissionsRepo core.SubmissionStore
	TasksRepo       core.TaskStore
	Notifier        domainjob.Notifier
	TimeProvider    data.TimeProvider
	Metrics         statsd.Sink
	FailureNotifier *failurenotifier.Service
}

// Runner claims evaluate jobs and drives each through the evaluation
// pipeline. Claims are exclusive, so any number of runners can share a queue.
type Runner struct {
	evaluator    *service.EvaluationService
	jobs         core.JobStore
	notifier     domainjob.Notifier
	ownsNotifier bool
	logger       *slog.Logger
	workerID     string
	workers      int
	pollInterval time.Duration
	errorBackoff time.Duration
}

// NewRunner wires repositories and the evaluation service into a job runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	logger := resolveLogger(opts.Logger)

	deps := resolveDependencies(opts)
	if err := validateDependencies(opts, deps); err != nil {
		return nil, err
	}

	retry, err := domainjob.NewRetryPolicy(
		resolveMaxAttempts(opts.MaxAttempts),
		resolveBackoffStep(opts.BackoffStep),
	)
	if err != nil {
		return nil, fmt.Errorf("create retry policy: %w", err)
	}

	evaluator, err := service.NewEvaluationService(service.EvaluationServiceOptions{
		Jobs:            deps.jobsRepo,
		Submissions:     deps.submissionsRepo,
		Tasks:           deps.tasksRepo,
		Scorer:          opts.Scorer,
		RetryPolicy:     retry,
		TimeProvider:    deps.timeProvider,
		Logger:          opts.Logger,
		Metrics:         opts.Metrics,
		FailureNotifier: opts.FailureNotifier,
	})
	if err != nil {
		return nil, fmt.Errorf("create evaluation service: %w", err)
	}

	notifier, owns, err := resolveNotifier(opts, deps)
	if err != nil {
		return nil, err
	}

	return &Runner{
		evaluator:    evaluator,
		jobs:         deps.jobsRepo,
		notifier:     notifier,
		ownsNotifier: owns,
		logger:       logger,
		workerID:     resolveWorkerID(opts.WorkerID),
		workers:      resolveWorkers(opts.Concurrency),
		pollInterval: resolvePollInterval(opts.PollInterval),
		errorBackoff: resolveErrorBackoff(opts.ErrorBackoff),
	}, nil
}

// Run starts the worker goroutines and processes jobs until the context is
// cancelled. Each goroutine claims under its own lock owner id.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting evaluation worker",
		"worker_id", r.workerID,
		"workers", r.workers,
		"poll_interval", r.pollInterval,
		"notifier", r.notifier != nil,
	)

	if r.ownsNotifier {
		defer r.notifier.StopAll()
	}

	group, gctx := errgroup.WithContext(ctx)
	for i := range r.workers {
		id := fmt.Sprintf("%s-%d", r.workerID, i)
		group.Go(func() error { return r.runWorkerLoop(gctx, id) })
	}
	return group.Wait()
}

// runWorkerLoop claims and processes jobs until the context ends. A claim
// error idles the loop for the error backoff instead of exiting; a worker
// only stops on cancellation.
func (r *Runner) runWorkerLoop(ctx context.Context, workerID string) error {
	var notify <-chan struct{}
	if r.notifier != nil {
		unsub, ch := r.notifier.Subscribe(domainjob.TopicEvaluateJobs)
		defer unsub()
		notify = ch
	}

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for ctx.Err() == nil {
		claimed, err := r.jobs.TryClaimNext(ctx, model.JobTypeEvaluate, workerID)
		switch {
		case err == nil:
			r.processJob(ctx, claimed)
		case errors.Is(err, model.ErrNoJobsAvailable):
			if !r.waitForWork(ctx, notify, ticker.C) {
				return nil
			}
		default:
			if ctx.Err() != nil {
				return nil
			}
			r.logger.ErrorContext(ctx, "failed to claim next evaluate job",
				"worker_id", workerID, "error", err)
			if !r.idleBackoff(ctx) {
				return nil
			}
		}
	}
	return ctx.Err()
}

// processJob runs one claimed job through the evaluation pipeline. The job
// context is detached from cancellation so an in-flight evaluation still
// reaches a terminal state for this attempt when shutdown begins.
func (r *Runner) processJob(ctx context.Context, claimed *model.Job) {
	jobCtx := context.WithoutCancel(ctx)
	if err := r.evaluator.Process(jobCtx, claimed); err != nil {
		r.logger.ErrorContext(ctx, "evaluate job processing failed",
			"job_id", claimed.ID, "error", err)
	}
}

// waitForWork blocks until a job notification, the next poll tick, or
// cancellation. The tick keeps claims flowing when no notifier is wired or a
// notification is lost.
func (r *Runner) waitForWork(ctx context.Context, notify <-chan struct{}, tick <-chan time.Time) bool {
	select {
	case <-ctx.Done():
		return false
	case <-notify:
		return true
	case <-tick:
		return true
	}
}

func (r *Runner) idleBackoff(ctx context.Context) bool {
	timer := time.NewTimer(r.errorBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Helper functions for dependency resolution and configuration

type runnerDeps struct {
	jobsRepo        core.JobStore
	submissionsRepo core.SubmissionStore
	tasksRepo       core.TaskStore
	timeProvider    data.TimeProvider
}

func resolveDependencies(opts RunnerOptions) *runnerDeps {
	deps := &runnerDeps{}
	resolveJobsRepo(opts, deps)
	resolveSubmissionsRepo(opts, deps)
	resolveTasksRepo(opts, deps)
	resolveTimeProvider(opts, deps)
	return deps
}

func validateDependencies(opts RunnerOptions, deps *runnerDeps) error {
	if deps == nil {
		return errors.New("dependencies not resolved")
	}
	if opts.Scorer == nil {
		return errors.New("evaluation runner requires a scorer")
	}

	required := []struct {
		name  string
		value interface{}
	}{
		{"JobStore", deps.jobsRepo},
		{"SubmissionStore", deps.submissionsRepo},
		{"TaskStore", deps.tasksRepo},
	}

	var missing []string
	for _, dep := range required {
		if dep.value == nil {
			missing = append(missing, dep.name)
		}
	}

	if len(missing) > 0 {
		noun := "dependency"
		if len(missing) > 1 {
			noun = "dependencies"
		}
		missingList := strings.Join(missing, ", ")

		if opts.DB == nil {
			return fmt.Errorf(
				"evaluation runner requires a DB handle or explicit implementations for the following %s: %s",
				noun,
				missingList,
			)
		}

		return fmt.Errorf("evaluation runner missing required %s: %s", noun, missingList)
	}

	return nil
}

func resolveJobsRepo(opts RunnerOptions, deps *runnerDeps) {
	if opts.JobsRepo != nil {
		deps.jobsRepo = opts.JobsRepo
		return
	}
	if opts.DB != nil {
		deps.jobsRepo = data.NewJobRepo(opts.DB, data.RepoConfig{
			Logger:       opts.Logger,
			TimeProvider: opts.TimeProvider,
		})
	}
}

func resolveSubmissionsRepo(opts RunnerOptions, deps *runnerDeps) {
	if opts.SubmissionsRepo != nil {
		deps.submissionsRepo = opts.SubmissionsRepo
		return
	}
	if opts.DB != nil {
		deps.submissionsRepo = data.NewSubmissionRepo(opts.DB, data.RepoConfig{
			Logger:       opts.Logger,
			TimeProvider: opts.TimeProvider,
		})
	}
}

func resolveTasksRepo(opts RunnerOptions, deps *runnerDeps) {
	if opts.TasksRepo != nil {
		deps.tasksRepo = opts.TasksRepo
		return
	}
	if opts.DB != nil {
		deps.tasksRepo = data.NewTaskRepo(opts.DB)
	}
}

func resolveTimeProvider(opts RunnerOptions, deps *runnerDeps) {
	if opts.TimeProvider != nil {
		deps.timeProvider = opts.TimeProvider
		return
	}
	deps.timeProvider = &data.RealTimeProvider{}
}

// resolveNotifier prefers an injected notifier, then builds one from the jobs
// repo when it can serve as the notification waiter. Without either the loop
// runs on the poll ticker alone.
func resolveNotifier(opts RunnerOptions, deps *runnerDeps) (domainjob.Notifier, bool, error) {
	if opts.Notifier != nil {
		return opts.Notifier, false, nil
	}

	waiter, ok := deps.jobsRepo.(domainjob.Waiter)
	if !ok {
		return nil, false, nil
	}

	notifier, err := domainjob.NewNotifier(domainjob.NotifierOptions{Waiter: waiter})
	if err != nil {
		return nil, false, fmt.Errorf("create job notifier: %w", err)
	}
	return notifier, true, nil
}

func resolveLogger(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

func resolveWorkerID(id string) string {
	id = strings.TrimSpace(id)
	if id != "" {
		return id
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

func resolveWorkers(workers int) int {
	if workers > 0 {
		return workers
	}
	return 1
}

func resolvePollInterval(interval time.Duration) time.Duration {
	if interval > 0 {
		return interval
	}
	return 5 * time.Second
}

func resolveErrorBackoff(backoff time.Duration) time.Duration {
	if backoff > 0 {
		return backoff
	}
	return 5 * time.Second
}

func resolveMaxAttempts(attempts int) int {
	if attempts > 0 {
		return attempts
	}
	return 2
}

func resolveBackoffStep(step time.Duration) time.Duration {
	if step > 0 {
		return step
	}
	return 30 * time.Second
}
