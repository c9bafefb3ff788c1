package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/quillscore/quillscore-api/internal/domain/model"
	apperrors "github.com/quillscore/quillscore-api/internal/errors"
	"github.com/quillscore/quillscore-api/internal/service"
)

// TaskHandlers provides HTTP handlers for browsing the writing task catalog.
// The catalog is public; no caller identity is required.
type TaskHandlers struct {
	Svc    *service.TaskService
	Logger *slog.Logger
}

// taskView is the catalog projection exposed over the API. Internal fields
// (activation flag, exam codes, timestamps) stay server-side.
type taskView struct {
	ID            string         `json:"id"`
	TaskType      model.TaskType `json:"task_type"`
	Title         string         `json:"title"`
	Prompt        string         `json:"prompt"`
	MinWords      int            `json:"min_words"`
	SuggestedTime int            `json:"suggested_time"`
}

func newTaskView(t *model.Task) taskView {
	return taskView{
		ID:            t.ID,
		TaskType:      t.TaskType,
		Title:         t.Title,
		Prompt:        t.Prompt,
		MinWords:      t.MinWords,
		SuggestedTime: t.SuggestedTime,
	}
}

// List handles GET /api/tasks. An optional task_type query parameter narrows
// the catalog to one format.
func (h *TaskHandlers) List(w http.ResponseWriter, r *http.Request) {
	taskType, ok := parseTaskTypeQuery(w, r)
	if !ok {
		return
	}

	tasks, err := h.Svc.List(r.Context(), taskType)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	views := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, newTaskView(t))
	}
	WriteData(w, http.StatusOK, map[string]any{"tasks": views})
}

// Random handles GET /api/tasks/random, returning one active task chosen
// uniformly, optionally narrowed by task_type.
func (h *TaskHandlers) Random(w http.ResponseWriter, r *http.Request) {
	taskType, ok := parseTaskTypeQuery(w, r)
	if !ok {
		return
	}

	task, err := h.Svc.Random(r.Context(), taskType)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	WriteData(w, http.StatusOK, newTaskView(task))
}

// Get handles GET /api/tasks/{id}.
func (h *TaskHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("task id is required")})
		return
	}

	task, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	WriteData(w, http.StatusOK, newTaskView(task))
}

func (h *TaskHandlers) handleError(w http.ResponseWriter, r *http.Request, err error) {
	if apperrors.GetCode(err) == "" && h.Logger != nil {
		h.Logger.ErrorContext(r.Context(), "task request failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	WriteAppError(w, err)
}

// parseTaskTypeQuery reads the optional task_type query parameter. A missing
// parameter means no filter; an unknown value is a 400.
func parseTaskTypeQuery(w http.ResponseWriter, r *http.Request) (*model.TaskType, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("task_type"))
	if raw == "" {
		return nil, true
	}

	var taskType model.TaskType
	if err := taskType.UnmarshalText([]byte(raw)); err != nil {
		WriteAppError(w, apperrors.ValidationField("task_type", "task_type must be one of: IELTS_T1, IELTS_T2"))
		return nil, false
	}
	return &taskType, true
}
