package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/quillscore/quillscore-api/internal/core"
	"github.com/quillscore/quillscore-api/internal/data"
	domainjob "github.com/quillscore/quillscore-api/internal/domain/job"
	"github.com/quillscore/quillscore-api/internal/domain/model"
	"github.com/quillscore/quillscore-api/internal/domain/score"
	"github.com/quillscore/quillscore-api/internal/observability/metrics"
	"github.com/quillscore/quillscore-api/internal/observability/notify"
	"github.com/quillscore/quillscore-api/internal/observability/statsd"
	"github.com/quillscore/quillscore-api/internal/service/failurenotifier"
	"github.com/quillscore/quillscore-api/internal/util"
)

// failureTriggerMarker is a test hook: essays containing it fail permanently
// without ever reaching the scoring provider.
const failureTriggerMarker = "FAILME"

// EvaluationServiceOptions groups dependencies for EvaluationService.
type EvaluationServiceOptions struct {
	Jobs            core.JobStore        // Required: finalizers over claimed jobs
	Submissions     core.SubmissionStore // Required: essay reads
	Tasks           core.TaskStore       // Required: prompt reads
	Scorer          core.Scorer          // Required: scoring provider
	RetryPolicy     *domainjob.RetryPolicy
	TimeProvider    data.TimeProvider        // Optional: clock, defaults to real time
	Logger          *slog.Logger             // Optional: structured logger
	Metrics         statsd.Sink              // Optional: metrics sink (StatsD-compatible)
	FailureNotifier *failurenotifier.Service // Optional: fan-out on permanent failures
}

// EvaluationService runs claimed evaluate jobs: score the essay, validate the
// payload with a single repair attempt, then apply exactly one finalizer.
// Every path out of Process leaves the job and its submission in a state that
// is terminal for this attempt.
type EvaluationService struct {
	jobs            core.JobStore
	submissions     core.SubmissionStore
	tasks           core.TaskStore
	scorer          core.Scorer
	retry           *domainjob.RetryPolicy
	timeProvider    data.TimeProvider
	logger          *slog.Logger
	metrics         statsd.Sink
	failureNotifier *failurenotifier.Service
}

// NewEvaluationService constructs a new EvaluationService.
func NewEvaluationService(opts EvaluationServiceOptions) (*EvaluationService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("JobStore is required")
	}
	if opts.Submissions == nil {
		return nil, errors.New("SubmissionStore is required")
	}
	if opts.Tasks == nil {
		return nil, errors.New("TaskStore is required")
	}
	if opts.Scorer == nil {
		return nil, errors.New("Scorer is required")
	}
	if opts.RetryPolicy == nil {
		return nil, errors.New("RetryPolicy is required")
	}

	tp := opts.TimeProvider
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "evaluation_service")
	}

	return &EvaluationService{
		jobs:            opts.Jobs,
		submissions:     opts.Submissions,
		tasks:           opts.Tasks,
		scorer:          opts.Scorer,
		retry:           opts.RetryPolicy,
		timeProvider:    tp,
		logger:          logger,
		metrics:         opts.Metrics,
		failureNotifier: opts.FailureNotifier,
	}, nil
}

// Process drives one claimed job through evaluation and finalization. A lost
// claim is a no-op, not an error: another actor (reaper, competing worker)
// already owns the job's fate. Errors are returned only when a finalizer
// itself failed and the job remains claimed.
func (s *EvaluationService) Process(ctx context.Context, claimed *model.Job) error {
	started := time.Now()
	claim := claimFromJob(claimed)

	applied, err := s.jobs.BeginProcessing(ctx, claim)
	if err != nil {
		s.emitTransition(claimed, transitionMetric{Name: "begin", Result: metrics.ResultError, Err: err})
		return fmt.Errorf("begin processing job %s: %w", claimed.ID, err)
	}
	if !applied {
		s.emitTransition(claimed, transitionMetric{Name: "begin", Result: metrics.ResultNoop})
		s.logWarn(ctx, "claim no longer held, skipping job", "job_id", claimed.ID)
		return nil
	}

	s.logInfo(ctx, "processing evaluation job",
		"job_id", claimed.ID, "submission_id", claimed.SubmissionID, "attempt", claimed.Attempts)

	outcome := s.evaluate(ctx, claimed)
	return s.finalize(ctx, finalizeParams{
		Job:     claimed,
		Claim:   claim,
		Outcome: outcome,
		Started: started,
	})
}

// evaluate produces the outcome of one scoring attempt. It never writes to
// the store; all persistence happens in the finalizers.
func (s *EvaluationService) evaluate(ctx context.Context, claimed *model.Job) domainjob.Outcome {
	sub, err := s.submissions.GetByID(ctx, claimed.SubmissionID)
	if err != nil {
		return failureOutcome("load submission", err)
	}

	if strings.Contains(sub.EssayText, failureTriggerMarker) {
		return domainjob.PermanentFailure("Test failure triggered by FAILME keyword")
	}

	task, err := s.tasks.GetByID(ctx, sub.TaskID)
	if err != nil {
		return failureOutcome("load task", err)
	}

	raw, err := s.scorer.Score(ctx, task.Prompt, sub.EssayText)
	if err != nil {
		return failureOutcome("score essay", err)
	}

	eval, validateErr := score.Validate(raw)
	if validateErr == nil {
		return domainjob.Succeeded(eval, raw)
	}
	s.logWarn(ctx, "evaluation payload invalid, attempting repair",
		"job_id", claimed.ID, "error", validateErr)

	repaired, err := score.RepairRaw(raw)
	if err != nil {
		return domainjob.PermanentFailure(fmt.Sprintf("repair evaluation payload: %v", err))
	}
	eval, err = score.Validate(repaired)
	if err != nil {
		return domainjob.PermanentFailure(fmt.Sprintf("Validation failed after repair: %v", err))
	}

	// The repaired payload is the one that validated, so it is also the one
	// kept for audit.
	return domainjob.Succeeded(eval, repaired)
}

type finalizeParams struct {
	Job     *model.Job
	Claim   core.JobClaim
	Outcome domainjob.Outcome
	Started time.Time
}

// finalize applies exactly one guarded finalizer for the outcome.
func (s *EvaluationService) finalize(ctx context.Context, p finalizeParams) error {
	if p.Outcome.Kind == domainjob.OutcomeSuccess {
		applied, err := s.jobs.CompleteSuccess(ctx, core.CompleteSuccessParams{
			Claim:       p.Claim,
			Evaluation:  p.Outcome.Evaluation,
			RawResponse: p.Outcome.Raw,
		})
		if err == nil && applied {
			s.logInfo(ctx, "evaluation job completed",
				"job_id", p.Job.ID,
				"submission_id", p.Job.SubmissionID,
				"attempt", p.Job.Attempts,
				"overall_band", p.Outcome.Evaluation.OverallBand)
		}
		return s.finishTransition(ctx, finishParams{
			Job: p.Job, Transition: "complete", Applied: applied, Err: err, Started: p.Started,
		})
	}

	transient := p.Outcome.Kind == domainjob.OutcomeTransient
	decision := s.retry.Decide(p.Job.Attempts, transient, s.timeProvider.Now())
	if decision.Retry {
		applied, err := s.jobs.RescheduleTransient(ctx, core.RescheduleTransientParams{
			Claim:    p.Claim,
			ErrMsg:   p.Outcome.Reason,
			RunAfter: decision.RunAfter,
		})
		if err == nil && applied {
			s.logWarn(ctx, "evaluation job rescheduled",
				"job_id", p.Job.ID,
				"attempt", p.Job.Attempts,
				"run_after", decision.RunAfter,
				"error", p.Outcome.Reason)
		}
		return s.finishTransition(ctx, finishParams{
			Job: p.Job, Transition: "reschedule", Applied: applied, Err: err, Started: p.Started,
		})
	}

	applied, err := s.jobs.FailPermanent(ctx, core.FailPermanentParams{
		Claim:  p.Claim,
		ErrMsg: p.Outcome.Reason,
	})
	if err == nil && applied {
		s.logError(ctx, "evaluation job failed permanently",
			"job_id", p.Job.ID,
			"submission_id", p.Job.SubmissionID,
			"attempt", p.Job.Attempts,
			"error", p.Outcome.Reason)
		s.notifyPermanentFailure(ctx, p.Job, p.Outcome.Reason, p.Started)
	}
	return s.finishTransition(ctx, finishParams{
		Job: p.Job, Transition: "fail", Applied: applied, Err: err, Started: p.Started,
	})
}

// notifyPermanentFailure fans the failure out to the configured sinks. The
// submission lookup is best effort; the notification still goes out without
// user and task context.
func (s *EvaluationService) notifyPermanentFailure(ctx context.Context, job *model.Job, reason string, started time.Time) {
	if s.failureNotifier == nil || !s.failureNotifier.Enabled() {
		return
	}

	payload := notify.JobFailurePayload{
		JobID:        job.ID,
		JobType:      string(job.Type),
		SubmissionID: job.SubmissionID,
		Error:        reason,
		Severity:     notify.SeverityCritical,
		OccurredAt:   s.timeProvider.Now(),
		Metadata: map[string]string{
			"attempt":      strconv.Itoa(job.Attempts),
			"max_attempts": strconv.Itoa(s.retry.MaxAttempts()),
			"duration":     util.FormatProcessingDuration(time.Since(started)),
		},
	}
	if sub, err := s.submissions.GetByID(ctx, job.SubmissionID); err == nil {
		payload.UserID = sub.UserID
		payload.TaskID = sub.TaskID
	} else {
		s.logWarn(ctx, "failed to load submission for failure notification",
			"submission_id", job.SubmissionID, "error", err)
	}

	s.failureNotifier.NotifyJobFailure(ctx, payload)
}

type finishParams struct {
	Job        *model.Job
	Transition string
	Applied    bool
	Err        error
	Started    time.Time
}

func (s *EvaluationService) finishTransition(ctx context.Context, p finishParams) error {
	elapsed := time.Since(p.Started)
	switch {
	case p.Err != nil:
		s.emitTransition(p.Job, transitionMetric{
			Name: p.Transition, Result: metrics.ResultError, Elapsed: elapsed, Err: p.Err,
		})
		return fmt.Errorf("%s job %s: %w", p.Transition, p.Job.ID, p.Err)
	case !p.Applied:
		s.emitTransition(p.Job, transitionMetric{
			Name: p.Transition, Result: metrics.ResultNoop, Elapsed: elapsed,
		})
		s.logWarn(ctx, "claim lost before finalize, outcome discarded",
			"job_id", p.Job.ID, "transition", p.Transition)
		return nil
	default:
		s.emitTransition(p.Job, transitionMetric{
			Name: p.Transition, Result: metrics.ResultSuccess, Elapsed: elapsed,
		})
		return nil
	}
}

type transitionMetric struct {
	Name    string
	Result  string
	Elapsed time.Duration
	Err     error
}

func (s *EvaluationService) emitTransition(j *model.Job, m transitionMetric) {
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		JobType:    string(j.Type),
		Transition: m.Name,
		Result:     m.Result,
		Attempt:    j.Attempts,
		Duration:   m.Elapsed,
		Err:        m.Err,
	})
}

// failureOutcome classifies one failed step by its error message.
func failureOutcome(op string, err error) domainjob.Outcome {
	reason := fmt.Sprintf("%s: %v", op, err)
	if domainjob.IsTransient(err) {
		return domainjob.TransientFailure(reason)
	}
	return domainjob.PermanentFailure(reason)
}

func claimFromJob(j *model.Job) core.JobClaim {
	workerID := ""
	if j.LockedBy != nil {
		workerID = *j.LockedBy
	}
	return core.JobClaim{
		JobID:        j.ID,
		SubmissionID: j.SubmissionID,
		WorkerID:     workerID,
	}
}

func (s *EvaluationService) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.InfoContext(ctx, msg, args...)
}

func (s *EvaluationService) logWarn(ctx context.Context, msg string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.WarnContext(ctx, msg, args...)
}

func (s *EvaluationService) logError(ctx context.Context, msg string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.ErrorContext(ctx, msg, args...)
}
