package httpx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillscore/quillscore-api/internal/domain/model"
)

type submissionFixture struct {
	h       *SubmissionHandlers
	subs    *fakeSubmissionStore
	jobs    *fakeJobStoreTx
	results *fakeResultStore
}

func newSubmissionFixture(t *testing.T, tasks ...*model.Task) *submissionFixture {
	t.Helper()
	fx := &submissionFixture{
		subs:    newFakeSubmissionStore(),
		jobs:    &fakeJobStoreTx{},
		results: &fakeResultStore{results: make(map[string]*model.EvaluationResult)},
	}
	svc := newSubmissionService(t, submissionServiceStores{
		subs:    fx.subs,
		tasks:   &fakeTaskStore{tasks: tasks},
		jobs:    fx.jobs,
		results: fx.results,
	})
	fx.h = &SubmissionHandlers{Svc: svc, Validate: newRequestValidator()}
	return fx
}

func postJSON(target, body, userID string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	if userID != "" {
		r = withUserID(r, userID)
	}
	return r
}

func seedSubmission(fx *submissionFixture, id string, status model.SubmissionStatus) *model.Submission {
	sub := &model.Submission{
		ID:          id,
		UserID:      "user-1",
		TaskID:      "task-1",
		Status:      status,
		EssayText:   wordsEssay(260),
		WordCount:   260,
		SubmittedAt: timePtr(time.Now()),
	}
	fx.subs.add(sub)
	return sub
}

func TestSaveDraft(t *testing.T) {
	fx := newSubmissionFixture(t, activeTask("task-1", 250))

	r := postJSON("/api/submissions/draft", `{"task_id":"task-1","essay_text":"one two three"}`, "user-1")
	w := doJSONRequest(fx.h.SaveDraft, r)

	require.Equal(t, http.StatusOK, w.Code)
	var got draftView
	decodeData(t, decodeEnvelope(t, w.Body), &got)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, 3, got.WordCount)

	// Saving again replaces the draft instead of stacking a second one.
	r = postJSON("/api/submissions/draft", `{"task_id":"task-1","essay_text":"four words now in here"}`, "user-1")
	w = doJSONRequest(fx.h.SaveDraft, r)

	require.Equal(t, http.StatusOK, w.Code)
	var again draftView
	decodeData(t, decodeEnvelope(t, w.Body), &again)
	assert.Equal(t, got.ID, again.ID)
	assert.Equal(t, 5, again.WordCount)
}

func TestSaveDraft_MissingTaskID(t *testing.T) {
	fx := newSubmissionFixture(t, activeTask("task-1", 250))

	r := postJSON("/api/submissions/draft", `{"essay_text":"hello"}`, "user-1")
	w := doJSONRequest(fx.h.SaveDraft, r)

	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w.Body)
	require.NotNil(t, env.Error)
	assert.Equal(t, "validation", env.Error.Code)
	assert.Equal(t, "Missing required field: task_id", env.Error.Message)
	assert.Equal(t, "task_id", env.Error.Details["field"])
}

func TestSaveDraft_MalformedBody(t *testing.T) {
	fx := newSubmissionFixture(t, activeTask("task-1", 250))

	for _, body := range []string{`{"task_id":"task-1","bogus":1}`, `{"task_id":`} {
		r := postJSON("/api/submissions/draft", body, "user-1")
		w := doJSONRequest(fx.h.SaveDraft, r)

		require.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeEnvelope(t, w.Body)
		require.NotNil(t, env.Error)
		assert.Equal(t, "invalid_json", env.Error.Code)
		assert.Equal(t, "Invalid JSON format", env.Error.Message)
	}
}

func TestSaveDraft_NoIdentity(t *testing.T) {
	fx := newSubmissionFixture(t, activeTask("task-1", 250))

	r := postJSON("/api/submissions/draft", `{"task_id":"task-1","essay_text":"hi"}`, "")
	w := doJSONRequest(fx.h.SaveDraft, r)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	env := decodeEnvelope(t, w.Body)
	require.NotNil(t, env.Error)
	assert.Equal(t, "unauthorized", env.Error.Code)
}

func TestSubmit_Queued(t *testing.T) {
	fx := newSubmissionFixture(t, activeTask("task-1", 250))

	r := postJSON("/api/submissions/submit", `{"task_id":"task-1","essay_text":"`+wordsEssay(250)+`"}`, "user-1")
	w := doJSONRequest(fx.h.Submit, r)

	require.Equal(t, http.StatusCreated, w.Code)
	var got submissionRef
	decodeData(t, decodeEnvelope(t, w.Body), &got)
	assert.Equal(t, model.SubmissionStatusQueued, got.Status)

	stored := fx.subs.get(got.ID)
	require.NotNil(t, stored)
	assert.Equal(t, 250, stored.WordCount)
	require.NotNil(t, stored.SubmittedAt)

	// The evaluate job rides the same enqueue.
	require.Len(t, fx.jobs.created, 1)
	assert.Equal(t, model.JobTypeEvaluate, fx.jobs.created[0].Type)
	assert.Equal(t, got.ID, fx.jobs.created[0].SubmissionID)
}

func TestSubmit_BelowMinimum(t *testing.T) {
	fx := newSubmissionFixture(t, activeTask("task-1", 250))

	r := postJSON("/api/submissions/submit", `{"task_id":"task-1","essay_text":"`+wordsEssay(249)+`"}`, "user-1")
	w := doJSONRequest(fx.h.Submit, r)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	env := decodeEnvelope(t, w.Body)
	require.NotNil(t, env.Error)
	assert.Equal(t, "min_word_count", env.Error.Code)
	assert.Equal(t, "Essay must be at least 250 words. Current: 249 words.", env.Error.Message)
	assert.Equal(t, float64(250), env.Error.Details["required"])
	assert.Equal(t, float64(249), env.Error.Details["actual"])

	// Nothing written: no submission row, no job.
	assert.Empty(t, fx.jobs.created)
}

func TestSubmit_DuplicateInFlight(t *testing.T) {
	fx := newSubmissionFixture(t, activeTask("task-1", 250))
	seedSubmission(fx, "sub-existing", model.SubmissionStatusQueued)

	r := postJSON("/api/submissions/submit", `{"task_id":"task-1","essay_text":"`+wordsEssay(250)+`"}`, "user-1")
	w := doJSONRequest(fx.h.Submit, r)

	require.Equal(t, http.StatusOK, w.Code)
	var got submissionRef
	decodeData(t, decodeEnvelope(t, w.Body), &got)
	assert.Equal(t, "sub-existing", got.ID)
	assert.Equal(t, model.SubmissionStatusQueued, got.Status)
	assert.Empty(t, fx.jobs.created)
}

func TestSubmit_TaskNotFound(t *testing.T) {
	fx := newSubmissionFixture(t)

	r := postJSON("/api/submissions/submit", `{"task_id":"missing","essay_text":"`+wordsEssay(250)+`"}`, "user-1")
	w := doJSONRequest(fx.h.Submit, r)

	require.Equal(t, http.StatusNotFound, w.Code)
	env := decodeEnvelope(t, w.Body)
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_found", env.Error.Code)
}

func statusRequest(id, userID, query string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/submissions/"+id+"/status"+query, nil)
	r.SetPathValue("id", id)
	return withUserID(r, userID)
}

func TestSubmissionStatus(t *testing.T) {
	fx := newSubmissionFixture(t, activeTask("task-1", 250))
	seedSubmission(fx, "sub-1", model.SubmissionStatusQueued)

	w := doJSONRequest(fx.h.Status, statusRequest("sub-1", "user-1", ""))

	require.Equal(t, http.StatusOK, w.Code)
	var got model.SubmissionStatusView
	decodeData(t, decodeEnvelope(t, w.Body), &got)
	assert.Equal(t, model.SubmissionStatusQueued, got.Status)
	assert.Nil(t, got.ErrorMessage)
	assert.Empty(t, got.RedirectURL)
}

func TestSubmissionStatus_DoneRedirect(t *testing.T) {
	fx := newSubmissionFixture(t, activeTask("task-1", 250))
	seedSubmission(fx, "sub-1", model.SubmissionStatusDone)

	w := doJSONRequest(fx.h.Status, statusRequest("sub-1", "user-1", ""))

	require.Equal(t, http.StatusOK, w.Code)
	var got model.SubmissionStatusView
	decodeData(t, decodeEnvelope(t, w.Body), &got)
	assert.Equal(t, model.SubmissionStatusDone, got.Status)
	assert.Equal(t, "https://api.example.com/api/submissions/sub-1", got.RedirectURL)
}

func TestSubmissionStatus_OtherUser(t *testing.T) {
	fx := newSubmissionFixture(t, activeTask("task-1", 250))
	seedSubmission(fx, "sub-1", model.SubmissionStatusQueued)

	w := doJSONRequest(fx.h.Status, statusRequest("sub-1", "user-2", ""))

	require.Equal(t, http.StatusNotFound, w.Code)
	env := decodeEnvelope(t, w.Body)
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_found", env.Error.Code)
}

func TestSubmissionStatus_LongPollWakes(t *testing.T) {
	fx := newSubmissionFixture(t, activeTask("task-1", 250))
	seedSubmission(fx, "sub-1", model.SubmissionStatusQueued)
	notifier := newFakeNotifier()
	fx.h.Notifier = notifier

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		w := httptest.NewRecorder()
		fx.h.Status(w, statusRequest("sub-1", "user-1", "?wait_ms=5000"))
		done <- w
	}()

	// Advance the submission and wake the poll. The notify channel is
	// buffered, so the signal holds even if the handler has not
	// subscribed yet.
	fx.subs.setStatus("sub-1", model.SubmissionStatusDone)
	notifier.ch <- struct{}{}

	select {
	case w := <-done:
		require.Equal(t, http.StatusOK, w.Code)
		var got model.SubmissionStatusView
		decodeData(t, decodeEnvelope(t, w.Body), &got)
		assert.Equal(t, model.SubmissionStatusDone, got.Status)
		assert.Equal(t, "https://api.example.com/api/submissions/sub-1", got.RedirectURL)
	case <-time.After(2 * time.Second):
		t.Fatal("status long poll did not return after notification")
	}
}

func TestSubmissionStatus_LongPollTimeout(t *testing.T) {
	fx := newSubmissionFixture(t, activeTask("task-1", 250))
	seedSubmission(fx, "sub-1", model.SubmissionStatusQueued)
	fx.h.Notifier = newFakeNotifier()

	w := doJSONRequest(fx.h.Status, statusRequest("sub-1", "user-1", "?wait_ms=30"))

	// No notification arrived; the poll answers with the last known view.
	require.Equal(t, http.StatusOK, w.Code)
	var got model.SubmissionStatusView
	decodeData(t, decodeEnvelope(t, w.Body), &got)
	assert.Equal(t, model.SubmissionStatusQueued, got.Status)
}

func TestRetry(t *testing.T) {
	fx := newSubmissionFixture(t, activeTask("task-1", 250))
	sub := seedSubmission(fx, "sub-1", model.SubmissionStatusFailed)
	msg := "evaluation failed"
	sub.ErrorMessage = &msg

	r := postJSON("/api/submissions/sub-1/retry", "", "user-1")
	r.SetPathValue("id", "sub-1")
	w := doJSONRequest(fx.h.Retry, r)

	require.Equal(t, http.StatusOK, w.Code)
	var got submissionRef
	decodeData(t, decodeEnvelope(t, w.Body), &got)
	assert.Equal(t, "sub-1", got.ID)
	assert.Equal(t, model.SubmissionStatusQueued, got.Status)

	stored := fx.subs.get("sub-1")
	assert.Equal(t, model.SubmissionStatusQueued, stored.Status)
	assert.Nil(t, stored.ErrorMessage)
	require.Len(t, fx.jobs.created, 1)
	assert.Equal(t, "sub-1", fx.jobs.created[0].SubmissionID)
}

func TestRetry_NotFailed(t *testing.T) {
	fx := newSubmissionFixture(t, activeTask("task-1", 250))
	seedSubmission(fx, "sub-1", model.SubmissionStatusDone)

	r := postJSON("/api/submissions/sub-1/retry", "", "user-1")
	r.SetPathValue("id", "sub-1")
	w := doJSONRequest(fx.h.Retry, r)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	env := decodeEnvelope(t, w.Body)
	require.NotNil(t, env.Error)
	assert.Equal(t, "invalid_status_transition", env.Error.Code)
	assert.Equal(t, "Cannot retry when status is done", env.Error.Message)
	assert.Empty(t, fx.jobs.created)
}

func TestRetry_NotFound(t *testing.T) {
	fx := newSubmissionFixture(t, activeTask("task-1", 250))

	r := postJSON("/api/submissions/missing/retry", "", "user-1")
	r.SetPathValue("id", "missing")
	w := doJSONRequest(fx.h.Retry, r)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmissionGet_Done(t *testing.T) {
	fx := newSubmissionFixture(t, activeTask("task-1", 250))
	seedSubmission(fx, "sub-1", model.SubmissionStatusDone)
	improved := "A better essay."
	fx.results.results["sub-1"] = &model.EvaluationResult{
		ID:           "res-1",
		SubmissionID: "sub-1",
		OverallBand:  7.0,
		CriteriaScores: model.CriteriaScores{
			TaskResponse:      7.0,
			CoherenceCohesion: 7.0,
			LexicalResource:   6.5,
			GrammarAccuracy:   7.5,
		},
		Feedback: model.Feedback{
			TaskResponse:      []string{"Addresses the prompt."},
			CoherenceCohesion: []string{"Clear progression."},
			LexicalResource:   []string{"Adequate range."},
			GrammarAccuracy:   []string{"Mostly accurate."},
		},
		PriorityFixes: []string{"Vary sentence openings.", "Tighten the conclusion.", "Add one more example."},
		ImprovedEssay: &improved,
	}

	r := withUserID(httptest.NewRequest(http.MethodGet, "/api/submissions/sub-1", nil), "user-1")
	r.SetPathValue("id", "sub-1")
	w := doJSONRequest(fx.h.Get, r)

	require.Equal(t, http.StatusOK, w.Code)
	var got model.SubmissionDetail
	decodeData(t, decodeEnvelope(t, w.Body), &got)
	assert.Equal(t, "sub-1", got.ID)
	assert.Equal(t, "task-1", got.Task.ID)
	assert.Equal(t, "Opinion Essay", got.Task.Title)
	assert.Equal(t, model.SubmissionStatusDone, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, 7.0, got.Result.OverallBand)
	assert.Equal(t, 6.5, got.Result.CriteriaScores.LexicalResource)
	assert.Len(t, got.Result.PriorityFixes, 3)
	require.NotNil(t, got.Result.ImprovedEssay)
	assert.Equal(t, improved, *got.Result.ImprovedEssay)
}

func TestSubmissionGet_Pending(t *testing.T) {
	fx := newSubmissionFixture(t, activeTask("task-1", 250))
	seedSubmission(fx, "sub-1", model.SubmissionStatusProcessing)

	r := withUserID(httptest.NewRequest(http.MethodGet, "/api/submissions/sub-1", nil), "user-1")
	r.SetPathValue("id", "sub-1")
	w := doJSONRequest(fx.h.Get, r)

	require.Equal(t, http.StatusOK, w.Code)
	var got model.SubmissionDetail
	decodeData(t, decodeEnvelope(t, w.Body), &got)
	assert.Equal(t, model.SubmissionStatusProcessing, got.Status)
	assert.Nil(t, got.Result)
}

func TestSubmissionList(t *testing.T) {
	fx := newSubmissionFixture(t, activeTask("task-1", 250))
	seedSubmission(fx, "sub-1", model.SubmissionStatusQueued)

	r := withUserID(httptest.NewRequest(http.MethodGet, "/api/submissions", nil), "user-1")
	w := doJSONRequest(fx.h.List, r)

	require.Equal(t, http.StatusOK, w.Code)
	var got model.SubmissionPage
	decodeData(t, decodeEnvelope(t, w.Body), &got)
	require.Len(t, got.Submissions, 1)
	assert.Equal(t, "sub-1", got.Submissions[0].ID)
	assert.Equal(t, 1, got.Page)
	assert.Equal(t, 1, got.TotalPages)
	assert.False(t, got.HasNext)
	assert.False(t, got.HasPrevious)
}
