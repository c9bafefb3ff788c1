package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/quillscore/quillscore-api/internal/core"
	domainjob "github.com/quillscore/quillscore-api/internal/domain/job"
	"github.com/quillscore/quillscore-api/internal/domain/model"
	apperrors "github.com/quillscore/quillscore-api/internal/errors"
	"github.com/quillscore/quillscore-api/internal/service"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	// defaultLongPollMax caps the status long poll below the server write
	// timeout so a waiting response is never cut off mid-write.
	defaultLongPollMax = 20 * time.Second
)

// SubmissionHandlers provides HTTP handlers for the owner-facing submission
// lifecycle. Every route requires the Identity middleware.
type SubmissionHandlers struct {
	Svc *service.SubmissionService
	// Optional: submission-change notifier backing the status long poll.
	// Without one, status requests answer immediately regardless of wait_ms.
	Notifier domainjob.Notifier
	// Optional: cap on the status long-poll window. Zero means the default.
	LongPollMax time.Duration
	Validate    *validator.Validate
	Logger      *slog.Logger
}

type saveDraftRequest struct {
	TaskID    string `json:"task_id"    validate:"required"`
	EssayText string `json:"essay_text"`
	IsRandom  bool   `json:"is_random"`
}

type submitRequest struct {
	TaskID    string `json:"task_id"    validate:"required"`
	EssayText string `json:"essay_text"`
	IsRandom  bool   `json:"is_random"`
}

// draftView is the save-draft response body.
type draftView struct {
	ID        string `json:"id"`
	WordCount int    `json:"word_count"`
}

// submissionRef is the compact id+status body returned by submit and retry.
type submissionRef struct {
	ID     string                 `json:"id"`
	Status model.SubmissionStatus `json:"status"`
}

// SaveDraft handles POST /api/submissions/draft. One draft per user and task;
// saving again replaces it.
func (h *SubmissionHandlers) SaveDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req saveDraftRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if !checkRequest(w, h.Validate, &req) {
		return
	}

	draft, err := h.Svc.SaveDraft(r.Context(), &model.SaveDraftRequest{
		UserID:    userID,
		TaskID:    req.TaskID,
		EssayText: req.EssayText,
		IsRandom:  req.IsRandom,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	WriteData(w, http.StatusOK, draftView{ID: draft.ID, WordCount: draft.WordCount})
}

// Submit handles POST /api/submissions/submit. A newly queued submission
// returns 201; an equivalent one already in flight returns 200 with the
// existing submission's id and status.
func (h *SubmissionHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req submitRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if !checkRequest(w, h.Validate, &req) {
		return
	}

	sub, created, err := h.Svc.Submit(r.Context(), service.SubmitParams{
		UserID:    userID,
		TaskID:    req.TaskID,
		EssayText: req.EssayText,
		IsRandom:  req.IsRandom,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	WriteData(w, code, submissionRef{ID: sub.ID, Status: sub.Status})
}

// List handles GET /api/submissions, returning the caller's non-draft
// submissions newest first. Accepts page and per_page query parameters.
func (h *SubmissionHandlers) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	pageNum, perPage := ParsePagePerPage(r, defaultPageSize, maxPageSize)
	page, err := h.Svc.List(r.Context(), model.SubmissionListOptions{
		UserID:  userID,
		Page:    pageNum,
		PerPage: perPage,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	WriteData(w, http.StatusOK, page)
}

// Get handles GET /api/submissions/{id}, returning the full submission view
// including the evaluation result once the submission is done.
func (h *SubmissionHandlers) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := submissionIDPath(w, r)
	if !ok {
		return
	}

	detail, err := h.Svc.GetDetail(r.Context(), id, userID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	WriteData(w, http.StatusOK, detail)
}

// Status handles GET /api/submissions/{id}/status. With wait_ms > 0 the
// request long-polls: it returns as soon as the status moves (or is already
// terminal), otherwise after the wait elapses with the last known view.
func (h *SubmissionHandlers) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := submissionIDPath(w, r)
	if !ok {
		return
	}
	wait := parseIntQuery(r, "wait_ms", 0)

	// First look; most polls return here.
	view, err := h.Svc.GetStatus(r.Context(), id, userID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	if wait <= 0 || view.Status.Terminal() || h.Notifier == nil {
		WriteData(w, http.StatusOK, view)
		return
	}

	h.waitForStatusChange(w, r, statusWaitParams{
		id:     id,
		userID: userID,
		last:   view,
		waitMS: wait,
	})
}

type statusWaitParams struct {
	id     string
	userID string
	last   *model.SubmissionStatusView
	waitMS int
}

func (h *SubmissionHandlers) waitForStatusChange(
	w http.ResponseWriter,
	r *http.Request,
	params statusWaitParams,
) {
	maxWait := h.LongPollMax
	if maxWait <= 0 {
		maxWait = defaultLongPollMax
	}
	wait := time.Duration(params.waitMS) * time.Millisecond
	if wait > maxWait {
		wait = maxWait
	}

	ctx, cancel := context.WithTimeout(r.Context(), wait)
	defer cancel()

	unsub, ch := h.Notifier.Subscribe(domainjob.TopicSubmissions)
	defer unsub()

	view := params.last
	for {
		select {
		case <-ctx.Done():
			WriteData(w, http.StatusOK, view)
			return
		case <-ch:
			next, err := h.Svc.GetStatus(ctx, params.id, params.userID)
			if err != nil {
				// The deadline can land mid-query; answer with the
				// last view rather than a spurious error.
				if ctx.Err() != nil {
					WriteData(w, http.StatusOK, view)
					return
				}
				h.handleError(w, r, err)
				return
			}
			if next.Status != view.Status || next.Status.Terminal() {
				WriteData(w, http.StatusOK, next)
				return
			}
			view = next
			// Signal was for another submission; keep waiting until the deadline.
		}
	}
}

// Retry handles POST /api/submissions/{id}/retry. Only failed submissions
// can be retried; the new evaluate job starts with a fresh attempt counter.
func (h *SubmissionHandlers) Retry(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := submissionIDPath(w, r)
	if !ok {
		return
	}

	sub, err := h.Svc.Retry(r.Context(), core.RequeueParams{SubmissionID: id, UserID: userID})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	WriteData(w, http.StatusOK, submissionRef{ID: sub.ID, Status: sub.Status})
}

func (h *SubmissionHandlers) handleError(w http.ResponseWriter, r *http.Request, err error) {
	if apperrors.GetCode(err) == "" && h.Logger != nil {
		h.Logger.ErrorContext(r.Context(), "submission request failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	WriteAppError(w, err)
}

func submissionIDPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("submission id is required")})
		return "", false
	}
	return id, true
}
