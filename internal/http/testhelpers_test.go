package httpx

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quillscore/quillscore-api/internal/core"
	"github.com/quillscore/quillscore-api/internal/data"
	domainjob "github.com/quillscore/quillscore-api/internal/domain/job"
	"github.com/quillscore/quillscore-api/internal/domain/model"
	"github.com/quillscore/quillscore-api/internal/service"
)

// In-memory stores backing real services in handler tests. Methods a test
// never reaches return "not implemented" so accidental use fails loudly.

type fakeTaskStore struct {
	mu    sync.Mutex
	tasks []*model.Task
	err   error
}

func (f *fakeTaskStore) Create(_ context.Context, _ *model.CreateTaskRequest) (*model.Task, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeTaskStore) GetByID(_ context.Context, id string) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, t := range f.tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, data.ErrTaskNotFound
}

func (f *fakeTaskStore) GetByTitle(_ context.Context, _ string) (*model.Task, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeTaskStore) List(_ context.Context, taskType *model.TaskType) ([]*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []*model.Task
	for _, t := range f.tasks {
		if !t.IsActive {
			continue
		}
		if taskType != nil && t.TaskType != *taskType {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTaskStore) Random(ctx context.Context, taskType *model.TaskType) (*model.Task, error) {
	tasks, err := f.List(ctx, taskType)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, nil
	}
	return tasks[0], nil
}

type fakeSubmissionStore struct {
	mu   sync.Mutex
	subs map[string]*model.Submission
	next int
}

func newFakeSubmissionStore() *fakeSubmissionStore {
	return &fakeSubmissionStore{subs: make(map[string]*model.Submission)}
}

func (f *fakeSubmissionStore) add(sub *model.Submission) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[sub.ID] = sub
}

// get returns a snapshot of the stored row for assertions.
func (f *fakeSubmissionStore) get(id string) *model.Submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[id]
	if !ok {
		return nil
	}
	cp := *sub
	return &cp
}

// setStatus mutates a stored row under the lock, standing in for the job
// pipeline advancing a submission while a long poll is waiting.
func (f *fakeSubmissionStore) setStatus(id string, status model.SubmissionStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sub, ok := f.subs[id]; ok {
		sub.Status = status
	}
}

func (f *fakeSubmissionStore) GetByID(_ context.Context, id string) (*model.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sub, ok := f.subs[id]; ok {
		cp := *sub
		return &cp, nil
	}
	return nil, data.ErrSubmissionNotFound
}

func (f *fakeSubmissionStore) GetForUser(_ context.Context, id, userID string) (*model.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sub, ok := f.subs[id]; ok && sub.UserID == userID {
		cp := *sub
		return &cp, nil
	}
	return nil, data.ErrSubmissionNotFound
}

func (f *fakeSubmissionStore) UpsertDraft(_ context.Context, req *model.SaveDraftRequest) (*model.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		if sub.UserID == req.UserID && sub.TaskID == req.TaskID && sub.Status == model.SubmissionStatusDraft {
			sub.EssayText = req.EssayText
			sub.WordCount = req.WordCount
			sub.IsRandom = req.IsRandom
			cp := *sub
			return &cp, nil
		}
	}
	sub := &model.Submission{
		ID:        f.nextIDLocked(),
		UserID:    req.UserID,
		TaskID:    req.TaskID,
		Status:    model.SubmissionStatusDraft,
		EssayText: req.EssayText,
		WordCount: req.WordCount,
		IsRandom:  req.IsRandom,
	}
	f.subs[sub.ID] = sub
	cp := *sub
	return &cp, nil
}

func (f *fakeSubmissionStore) FindRecentActive(_ context.Context, params core.DuplicateLookupParams) (*model.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		if sub.UserID != params.UserID || sub.TaskID != params.TaskID {
			continue
		}
		if sub.Status != model.SubmissionStatusQueued && sub.Status != model.SubmissionStatusProcessing {
			continue
		}
		if sub.SubmittedAt != nil && sub.SubmittedAt.Before(params.Since) {
			continue
		}
		cp := *sub
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeSubmissionStore) Enqueue(ctx context.Context, req *model.EnqueueSubmissionRequest, attach core.AttachJobFn) (*model.Submission, error) {
	f.mu.Lock()
	submittedAt := req.SubmittedAt
	sub := &model.Submission{
		ID:          f.nextIDLocked(),
		UserID:      req.UserID,
		TaskID:      req.TaskID,
		Status:      model.SubmissionStatusQueued,
		EssayText:   req.EssayText,
		WordCount:   req.WordCount,
		IsRandom:    req.IsRandom,
		SubmittedAt: &submittedAt,
	}
	f.subs[sub.ID] = sub
	cp := *sub
	f.mu.Unlock()

	if attach != nil {
		if err := attach(ctx, nil, &cp); err != nil {
			return nil, err
		}
	}
	return &cp, nil
}

func (f *fakeSubmissionStore) Requeue(ctx context.Context, params core.RequeueParams, attach core.AttachJobFn) (*model.Submission, error) {
	f.mu.Lock()
	sub, ok := f.subs[params.SubmissionID]
	// The guarded update reports both a missing row and an ineligible status
	// as (nil, nil); the service resolves which one it was.
	if !ok || sub.UserID != params.UserID || sub.Status != model.SubmissionStatusFailed {
		f.mu.Unlock()
		return nil, nil
	}
	sub.Status = model.SubmissionStatusQueued
	sub.ErrorMessage = nil
	cp := *sub
	f.mu.Unlock()

	if attach != nil {
		if err := attach(ctx, nil, &cp); err != nil {
			return nil, err
		}
	}
	return &cp, nil
}

func (f *fakeSubmissionStore) ListForUser(_ context.Context, opts model.SubmissionListOptions) (*model.SubmissionPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	page := &model.SubmissionPage{Submissions: []model.SubmissionSummary{}, Page: opts.Page, TotalPages: 1}
	for _, sub := range f.subs {
		if sub.UserID != opts.UserID || sub.Status == model.SubmissionStatusDraft {
			continue
		}
		page.Submissions = append(page.Submissions, model.SubmissionSummary{
			ID:          sub.ID,
			Task:        model.TaskSummary{Title: "Task", TaskType: model.TaskTypeTwo},
			Status:      sub.Status,
			WordCount:   sub.WordCount,
			SubmittedAt: sub.SubmittedAt,
		})
	}
	return page, nil
}

func (f *fakeSubmissionStore) nextIDLocked() string {
	f.next++
	return "sub-" + strconv.Itoa(f.next)
}

type fakeJobStoreTx struct {
	mu      sync.Mutex
	created []*model.CreateJobRequest
	err     error
}

func (f *fakeJobStoreTx) CreateInTx(_ context.Context, _ *sql.Tx, req *model.CreateJobRequest) (*model.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, req)
	return &model.Job{ID: "job-1", Type: req.Type, SubmissionID: req.SubmissionID, Status: model.JobStatusPending}, nil
}

type fakeResultStore struct {
	mu      sync.Mutex
	results map[string]*model.EvaluationResult
}

func (f *fakeResultStore) GetBySubmissionID(_ context.Context, submissionID string) (*model.EvaluationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.results == nil {
		return nil, data.ErrResultNotFound
	}
	if res, ok := f.results[submissionID]; ok {
		return res, nil
	}
	return nil, data.ErrResultNotFound
}

// fakeNotifier hands tests direct control over long-poll wakeups.
type fakeNotifier struct {
	ch      chan struct{}
	stopped bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{ch: make(chan struct{}, 4)}
}

func (f *fakeNotifier) Subscribe(_ domainjob.Topic) (func(), <-chan struct{}) {
	return func() {}, f.ch
}

func (f *fakeNotifier) StopAll() { f.stopped = true }

var (
	_ core.TaskStore       = (*fakeTaskStore)(nil)
	_ core.SubmissionStore = (*fakeSubmissionStore)(nil)
	_ core.JobStoreTx      = (*fakeJobStoreTx)(nil)
	_ core.ResultStore     = (*fakeResultStore)(nil)
	_ domainjob.Notifier   = (*fakeNotifier)(nil)
)

func activeTask(id string, minWords int) *model.Task {
	return &model.Task{
		ID:            id,
		TaskType:      model.TaskTypeTwo,
		Title:         "Opinion Essay",
		Prompt:        "Some people believe remote work benefits everyone. Discuss.",
		MinWords:      minWords,
		SuggestedTime: 40,
		IsActive:      true,
	}
}

func wordsEssay(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = "word"
	}
	return strings.Join(words, " ")
}

func newTaskService(t *testing.T, store *fakeTaskStore) *service.TaskService {
	t.Helper()
	svc, err := service.NewTaskService(service.TaskServiceOptions{Repo: store})
	require.NoError(t, err)
	return svc
}

type submissionServiceStores struct {
	subs    *fakeSubmissionStore
	tasks   *fakeTaskStore
	jobs    *fakeJobStoreTx
	results *fakeResultStore
}

func newSubmissionService(t *testing.T, stores submissionServiceStores) *service.SubmissionService {
	t.Helper()
	svc, err := service.NewSubmissionService(service.SubmissionServiceOptions{
		Submissions: stores.subs,
		Tasks:       stores.tasks,
		Jobs:        stores.jobs,
		Results:     stores.results,
		BaseURL:     "https://api.example.com",
	})
	require.NoError(t, err)
	return svc
}

// withUserID stamps the request context the way the Identity middleware does.
func withUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(SetUserIDInContext(r.Context(), userID))
}

// apiEnvelope mirrors the wire envelope for decoding in assertions.
type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, body io.Reader) apiEnvelope {
	t.Helper()
	var env apiEnvelope
	require.NoError(t, json.NewDecoder(body).Decode(&env))
	return env
}

func decodeData(t *testing.T, env apiEnvelope, dst any) {
	t.Helper()
	require.True(t, env.Success)
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func doJSONRequest(handler http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	handler(w, r)
	return w
}

func timePtr(ts time.Time) *time.Time { return &ts }
