// Package testutil provides testing utilities and helpers for the quillscore scoring pipeline.
package testutil

import (
	"strings"
	"time"

	"github.com/quillscore/quillscore-api/internal/domain/model"
)

// TaskRequestBuilder provides a fluent interface for building CreateTaskRequest objects for testing.
type TaskRequestBuilder struct {
	req *model.CreateTaskRequest
}

// NewTaskRequest creates a new TaskRequestBuilder with sensible defaults.
func NewTaskRequest() *TaskRequestBuilder {
	return &TaskRequestBuilder{
		req: &model.CreateTaskRequest{
			TaskType:      model.TaskTypeTwo,
			Title:         "Test Essay Task",
			Prompt:        "Discuss both views and give your own opinion.",
			MinWords:      250,
			SuggestedTime: 40,
		},
	}
}

// WithType sets the task type and adjusts the word floor to match.
func (b *TaskRequestBuilder) WithType(taskType model.TaskType) *TaskRequestBuilder {
	b.req.TaskType = taskType
	if taskType == model.TaskTypeOne {
		b.req.MinWords = 150
		b.req.SuggestedTime = 20
	}
	return b
}

// WithTitle sets the task title.
func (b *TaskRequestBuilder) WithTitle(title string) *TaskRequestBuilder {
	b.req.Title = title
	return b
}

// WithPrompt sets the task prompt.
func (b *TaskRequestBuilder) WithPrompt(prompt string) *TaskRequestBuilder {
	b.req.Prompt = prompt
	return b
}

// WithMinWords sets the submission word floor.
func (b *TaskRequestBuilder) WithMinWords(minWords int) *TaskRequestBuilder {
	b.req.MinWords = minWords
	return b
}

// Build returns the constructed CreateTaskRequest.
func (b *TaskRequestBuilder) Build() *model.CreateTaskRequest {
	return b.req
}

// DraftRequestBuilder provides a fluent interface for building SaveDraftRequest objects for testing.
type DraftRequestBuilder struct {
	req *model.SaveDraftRequest
}

// NewDraftRequest creates a new DraftRequestBuilder with sensible defaults.
// TaskID must be set before building; drafts reference a persisted task.
func NewDraftRequest() *DraftRequestBuilder {
	essay := EssayOfWords(260)
	return &DraftRequestBuilder{
		req: &model.SaveDraftRequest{
			UserID:    "user-1",
			EssayText: essay,
			WordCount: CountWords(essay),
		},
	}
}

// WithUser sets the owning user.
func (b *DraftRequestBuilder) WithUser(userID string) *DraftRequestBuilder {
	b.req.UserID = userID
	return b
}

// WithTask sets the task being answered.
func (b *DraftRequestBuilder) WithTask(taskID string) *DraftRequestBuilder {
	b.req.TaskID = taskID
	return b
}

// WithEssay sets the essay text and recomputes the word count.
func (b *DraftRequestBuilder) WithEssay(essay string) *DraftRequestBuilder {
	b.req.EssayText = essay
	b.req.WordCount = CountWords(essay)
	return b
}

// WithRandomTask marks the draft as answering a randomly assigned task.
func (b *DraftRequestBuilder) WithRandomTask() *DraftRequestBuilder {
	b.req.IsRandom = true
	return b
}

// Build returns the constructed SaveDraftRequest.
func (b *DraftRequestBuilder) Build() *model.SaveDraftRequest {
	return b.req
}

// EnqueueRequestBuilder provides a fluent interface for building EnqueueSubmissionRequest objects.
type EnqueueRequestBuilder struct {
	req *model.EnqueueSubmissionRequest
}

// NewEnqueueRequest creates a new EnqueueRequestBuilder with sensible defaults.
func NewEnqueueRequest() *EnqueueRequestBuilder {
	essay := EssayOfWords(260)
	return &EnqueueRequestBuilder{
		req: &model.EnqueueSubmissionRequest{
			UserID:      "user-1",
			EssayText:   essay,
			WordCount:   CountWords(essay),
			SubmittedAt: TestTime(),
		},
	}
}

// WithUser sets the owning user.
func (b *EnqueueRequestBuilder) WithUser(userID string) *EnqueueRequestBuilder {
	b.req.UserID = userID
	return b
}

// WithTask sets the task being answered.
func (b *EnqueueRequestBuilder) WithTask(taskID string) *EnqueueRequestBuilder {
	b.req.TaskID = taskID
	return b
}

// WithEssay sets the essay text and recomputes the word count.
func (b *EnqueueRequestBuilder) WithEssay(essay string) *EnqueueRequestBuilder {
	b.req.EssayText = essay
	b.req.WordCount = CountWords(essay)
	return b
}

// WithSubmittedAt sets the submission instant.
func (b *EnqueueRequestBuilder) WithSubmittedAt(t time.Time) *EnqueueRequestBuilder {
	b.req.SubmittedAt = t
	return b
}

// Build returns the constructed EnqueueSubmissionRequest.
func (b *EnqueueRequestBuilder) Build() *model.EnqueueSubmissionRequest {
	return b.req
}

// JobRequestBuilder provides a fluent interface for building CreateJobRequest objects for testing.
type JobRequestBuilder struct {
	req *model.CreateJobRequest
}

// NewJobRequest creates a new JobRequestBuilder with sensible defaults.
// SubmissionID must be set before building; jobs reference a persisted submission.
func NewJobRequest() *JobRequestBuilder {
	return &JobRequestBuilder{
		req: &model.CreateJobRequest{
			Type: model.JobTypeEvaluate,
		},
	}
}

// WithSubmission sets the submission the job evaluates.
func (b *JobRequestBuilder) WithSubmission(submissionID string) *JobRequestBuilder {
	b.req.SubmissionID = submissionID
	return b
}

// WithRunAfter sets the earliest claim time.
func (b *JobRequestBuilder) WithRunAfter(runAfter time.Time) *JobRequestBuilder {
	b.req.RunAfter = &runAfter
	return b
}

// Build returns the constructed CreateJobRequest.
func (b *JobRequestBuilder) Build() *model.CreateJobRequest {
	return b.req
}

// ValidEvaluation returns a schema-valid evaluation payload for tests.
func ValidEvaluation() *model.Evaluation {
	return &model.Evaluation{
		OverallBand: 7.0,
		CriteriaScores: model.CriteriaScores{
			TaskResponse:      7.0,
			CoherenceCohesion: 6.5,
			LexicalResource:   7.5,
			GrammarAccuracy:   7.0,
		},
		Feedback: model.Feedback{
			TaskResponse:      []string{"Addresses all parts of the question."},
			CoherenceCohesion: []string{"Paragraphing supports the argument."},
			LexicalResource:   []string{"Good range of topic vocabulary."},
			GrammarAccuracy:   []string{"Mostly error-free complex sentences."},
		},
		PriorityFixes: []string{
			"Develop the second body paragraph further.",
			"Vary cohesive devices.",
			"Check article usage.",
		},
	}
}

// EssayOfWords generates deterministic essay text with exactly n words.
func EssayOfWords(n int) string {
	if n <= 0 {
		return ""
	}
	words := make([]string, n)
	filler := []string{"modern", "education", "requires", "careful", "thought", "because", "students", "learn", "differently", "today"}
	for i := range words {
		words[i] = filler[i%len(filler)]
	}
	return strings.Join(words, " ")
}

// CountWords counts whitespace-separated words, matching submit-time counting.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
