package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/quillscore/quillscore-api/internal/core"
	"github.com/quillscore/quillscore-api/internal/data"
	"github.com/quillscore/quillscore-api/internal/domain/essay"
	"github.com/quillscore/quillscore-api/internal/domain/model"
	apperrors "github.com/quillscore/quillscore-api/internal/errors"
)

const defaultDedupWindow = 2 * time.Minute

// SubmissionServiceOptions groups dependencies for SubmissionService.
type SubmissionServiceOptions struct {
	Submissions  core.SubmissionStore // Required: submission repository
	Tasks        core.TaskStore       // Required: task catalog repository
	Jobs         core.JobStoreTx      // Required: transactional job creation
	Results      core.ResultStore     // Required: evaluation result reads
	Cache        core.CacheRepository // Optional: duplicate-submission guard
	DedupWindow  time.Duration        // Optional: duplicate window, defaults to 2 minutes
	BaseURL      string               // Optional: prefix for redirect links
	TimeProvider data.TimeProvider    // Optional: clock, defaults to real time
	Logger       *slog.Logger         // Optional: structured logger
}

// SubmissionService drives the owner-facing submission lifecycle: drafts,
// submit with word-count and duplicate checks, retry, and the read views.
// Status transitions past queued belong to the job pipeline, not this service.
type SubmissionService struct {
	submissions  core.SubmissionStore
	tasks        core.TaskStore
	jobs         core.JobStoreTx
	results      core.ResultStore
	cache        core.CacheRepository
	dedupWindow  time.Duration
	baseURL      string
	timeProvider data.TimeProvider
	logger       *slog.Logger
}

// NewSubmissionService constructs a new SubmissionService.
func NewSubmissionService(opts SubmissionServiceOptions) (*SubmissionService, error) {
	if opts.Submissions == nil {
		return nil, errors.New("SubmissionStore is required")
	}
	if opts.Tasks == nil {
		return nil, errors.New("TaskStore is required")
	}
	if opts.Jobs == nil {
		return nil, errors.New("JobStoreTx is required")
	}
	if opts.Results == nil {
		return nil, errors.New("ResultStore is required")
	}

	window := opts.DedupWindow
	if window <= 0 {
		window = defaultDedupWindow
	}

	tp := opts.TimeProvider
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "submission_service")
	}

	return &SubmissionService{
		submissions:  opts.Submissions,
		tasks:        opts.Tasks,
		jobs:         opts.Jobs,
		results:      opts.Results,
		cache:        opts.Cache,
		dedupWindow:  window,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		timeProvider: tp,
		logger:       logger,
	}, nil
}

// MustNewSubmissionService constructs a SubmissionService and panics on error.
// Use only during startup wiring where a failure is unrecoverable.
func MustNewSubmissionService(opts SubmissionServiceOptions) *SubmissionService {
	svc, err := NewSubmissionService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create SubmissionService: %v", err))
	}
	return svc
}

// SubmitParams groups parameters for SubmissionService.Submit.
type SubmitParams struct {
	UserID    string
	TaskID    string
	EssayText string
	IsRandom  bool
}

// SaveDraft creates or replaces the user's draft for an active task. The
// recorded word count uses the same rules enforced at submit time.
func (s *SubmissionService) SaveDraft(ctx context.Context, req *model.SaveDraftRequest) (*model.Submission, error) {
	if _, err := s.activeTask(ctx, req.TaskID); err != nil {
		return nil, err
	}

	req.WordCount = essay.CountWords(req.EssayText)
	sub, err := s.submissions.UpsertDraft(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return sub, nil
}

// Submit queues an essay for evaluation. The essay must meet the task's word
// minimum or no rows are written at all. An equivalent submission already
// queued or processing within the dedup window is returned as-is with
// created=false; otherwise the submission and its evaluate job commit in one
// transaction and created is true.
func (s *SubmissionService) Submit(ctx context.Context, params SubmitParams) (sub *model.Submission, created bool, err error) {
	task, err := s.activeTask(ctx, params.TaskID)
	if err != nil {
		return nil, false, err
	}

	words := essay.CountWords(params.EssayText)
	if words < task.MinWords {
		return nil, false, apperrors.MinWordCount(task.MinWords, words)
	}

	now := s.timeProvider.Now()

	existing, err := s.recentActive(ctx, params, now)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		s.logInfo(ctx, "returning existing in-flight submission",
			"submission_id", existing.ID, "user_id", params.UserID)
		return existing, false, nil
	}

	acquired, release := s.tryDedupGuard(ctx, params)
	if !acquired {
		// Another submit holds the guard. Its row may have committed since
		// the lookup above, in which case it is the canonical submission.
		existing, err = s.recentActive(ctx, params, now)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return existing, false, nil
		}
		return nil, false, apperrors.DuplicateSubmission("")
	}

	req := &model.EnqueueSubmissionRequest{
		UserID:      params.UserID,
		TaskID:      params.TaskID,
		EssayText:   params.EssayText,
		WordCount:   words,
		IsRandom:    params.IsRandom,
		SubmittedAt: now,
	}
	sub, err = s.submissions.Enqueue(ctx, req, s.attachEvaluateJob)
	if err != nil {
		release()
		return nil, false, fmt.Errorf("enqueue submission: %w", err)
	}

	s.logInfo(ctx, "submission queued for evaluation",
		"submission_id", sub.ID, "user_id", sub.UserID, "word_count", sub.WordCount)
	return sub, true, nil
}

// Retry flips a failed submission back to queued with a brand-new evaluate
// job. Any other status is rejected with an invalid transition error.
func (s *SubmissionService) Retry(ctx context.Context, params core.RequeueParams) (*model.Submission, error) {
	sub, err := s.submissions.Requeue(ctx, params, s.attachEvaluateJob)
	if err != nil {
		return nil, fmt.Errorf("requeue submission: %w", err)
	}
	if sub != nil {
		s.logInfo(ctx, "submission requeued for evaluation",
			"submission_id", sub.ID, "user_id", sub.UserID)
		return sub, nil
	}

	// The guarded update matched nothing: either the submission does not
	// belong to this user or it is not in failed status.
	current, err := s.getOwned(ctx, params.SubmissionID, params.UserID)
	if err != nil {
		return nil, err
	}
	return nil, apperrors.InvalidStatusTransition(string(current.Status), "retry")
}

// GetStatus returns the polling view of a submission.
func (s *SubmissionService) GetStatus(ctx context.Context, id, userID string) (*model.SubmissionStatusView, error) {
	sub, err := s.getOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	view := &model.SubmissionStatusView{
		Status:       sub.Status,
		ErrorMessage: sub.ErrorMessage,
	}
	if sub.Status == model.SubmissionStatusDone {
		view.RedirectURL = s.baseURL + "/api/submissions/" + sub.ID
	}
	return view, nil
}

// GetDetail returns the owner's full view of a submission, including the
// evaluation result once the submission is done.
func (s *SubmissionService) GetDetail(ctx context.Context, id, userID string) (*model.SubmissionDetail, error) {
	sub, err := s.getOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	// Deactivated tasks stay readable here: the submission already references
	// the task, so catalog visibility does not apply.
	task, err := s.tasks.GetByID(ctx, sub.TaskID)
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}

	detail := &model.SubmissionDetail{
		ID: sub.ID,
		Task: model.TaskSummary{
			ID:       task.ID,
			Title:    task.Title,
			TaskType: task.TaskType,
		},
		Status:       sub.Status,
		EssayText:    sub.EssayText,
		WordCount:    sub.WordCount,
		SubmittedAt:  sub.SubmittedAt,
		ErrorMessage: sub.ErrorMessage,
	}

	if sub.Status == model.SubmissionStatusDone {
		result, err := s.results.GetBySubmissionID(ctx, sub.ID)
		if err != nil {
			return nil, fmt.Errorf("load result: %w", err)
		}
		detail.Result = &model.Evaluation{
			OverallBand:    result.OverallBand,
			CriteriaScores: result.CriteriaScores,
			Feedback:       result.Feedback,
			PriorityFixes:  result.PriorityFixes,
			ImprovedEssay:  result.ImprovedEssay,
		}
	}
	return detail, nil
}

// List returns one page of the user's non-draft submissions, newest first.
func (s *SubmissionService) List(ctx context.Context, opts model.SubmissionListOptions) (*model.SubmissionPage, error) {
	page, err := s.submissions.ListForUser(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return page, nil
}

// attachEvaluateJob creates the pending evaluate job inside the submission's
// enqueue/requeue transaction.
func (s *SubmissionService) attachEvaluateJob(ctx context.Context, tx *sql.Tx, sub *model.Submission) error {
	_, err := s.jobs.CreateInTx(ctx, tx, &model.CreateJobRequest{
		Type:         model.JobTypeEvaluate,
		SubmissionID: sub.ID,
	})
	if err != nil {
		return fmt.Errorf("create evaluate job: %w", err)
	}
	return nil
}

func (s *SubmissionService) activeTask(ctx context.Context, taskID string) (*model.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, data.ErrTaskNotFound) {
			return nil, apperrors.NotFoundResource("task")
		}
		return nil, fmt.Errorf("load task: %w", err)
	}
	if !task.IsActive {
		return nil, apperrors.NotFoundResource("task")
	}
	return task, nil
}

func (s *SubmissionService) recentActive(ctx context.Context, params SubmitParams, now time.Time) (*model.Submission, error) {
	sub, err := s.submissions.FindRecentActive(ctx, core.DuplicateLookupParams{
		UserID: params.UserID,
		TaskID: params.TaskID,
		Since:  now.Add(-s.dedupWindow),
	})
	if err != nil {
		return nil, fmt.Errorf("find recent submission: %w", err)
	}
	return sub, nil
}

// tryDedupGuard takes the per-(user, task) submit guard. A cache outage never
// blocks submissions; the duplicate lookup above still covers committed rows.
// The returned release clears the guard so a failed enqueue does not lock the
// user out for the full window.
func (s *SubmissionService) tryDedupGuard(ctx context.Context, params SubmitParams) (bool, func()) {
	noop := func() {}
	if s.cache == nil {
		return true, noop
	}

	key := submitGuardKey(params.UserID, params.TaskID)
	set, err := s.cache.SetIfNotExists(ctx, key, []byte("1"), s.dedupWindow)
	if err != nil {
		s.logWarn(ctx, "submit guard unavailable, continuing without it", "key", key, "error", err)
		return true, noop
	}
	if !set {
		return false, noop
	}

	release := func() {
		if _, err := s.cache.Delete(context.WithoutCancel(ctx), key); err != nil {
			s.logWarn(ctx, "submit guard release failed", "key", key, "error", err)
		}
	}
	return true, release
}

func (s *SubmissionService) getOwned(ctx context.Context, id, userID string) (*model.Submission, error) {
	sub, err := s.submissions.GetForUser(ctx, id, userID)
	if err != nil {
		if errors.Is(err, data.ErrSubmissionNotFound) {
			return nil, apperrors.NotFoundResource("submission")
		}
		return nil, fmt.Errorf("load submission: %w", err)
	}
	return sub, nil
}

func submitGuardKey(userID, taskID string) string {
	return "submissions:dedup:" + userID + ":" + taskID
}

func (s *SubmissionService) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.InfoContext(ctx, msg, args...)
}

func (s *SubmissionService) logWarn(ctx context.Context, msg string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.WarnContext(ctx, msg, args...)
}
