package model

import "time"

// SubmissionStatus represents the lifecycle state of a submission.
type SubmissionStatus string

const (
	// SubmissionStatusDraft indicates the essay is still owner-editable.
	SubmissionStatusDraft SubmissionStatus = "draft"
	// SubmissionStatusQueued indicates an evaluation job exists but has not started.
	SubmissionStatusQueued SubmissionStatus = "queued"
	// SubmissionStatusProcessing indicates a worker is evaluating the essay.
	SubmissionStatusProcessing SubmissionStatus = "processing"
	// SubmissionStatusDone indicates a scoring result is available.
	SubmissionStatusDone SubmissionStatus = "done"
	// SubmissionStatusFailed indicates evaluation failed permanently.
	SubmissionStatusFailed SubmissionStatus = "failed"
)

// Valid returns true if the SubmissionStatus is valid.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionStatusDraft, SubmissionStatusQueued, SubmissionStatusProcessing,
		SubmissionStatusDone, SubmissionStatusFailed:
		return true
	}
	return false
}

// Terminal returns true when the status permits no further system transitions.
// A failed submission can still be re-queued by an explicit owner retry.
func (s SubmissionStatus) Terminal() bool {
	return s == SubmissionStatusDone || s == SubmissionStatusFailed
}

// Submission is a user's essay for one task plus its processing lifecycle.
// Once a job exists the status is system-owned; only draft is owner-mutable.
type Submission struct {
	ID           string           `json:"id"                      db:"id"`
	UserID       string           `json:"user_id"                 db:"user_id"`
	TaskID       string           `json:"task_id"                 db:"task_id"`
	Status       SubmissionStatus `json:"status"                  db:"status"`
	EssayText    string           `json:"essay_text"              db:"essay_text"`
	WordCount    int              `json:"word_count"              db:"word_count"`
	IsRandom     bool             `json:"is_random"               db:"is_random"`
	ErrorMessage *string          `json:"error_message,omitempty" db:"error_message"`
	SubmittedAt  *time.Time       `json:"submitted_at,omitempty"  db:"submitted_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"  db:"completed_at"`
	CreatedAt    time.Time        `json:"created_at"              db:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"              db:"updated_at"`
}

// SaveDraftRequest carries the fields for creating or replacing a draft.
type SaveDraftRequest struct {
	UserID    string `json:"user_id"`
	TaskID    string `json:"task_id"`
	EssayText string `json:"essay_text"`
	WordCount int    `json:"word_count"`
	IsRandom  bool   `json:"is_random"`
}

// EnqueueSubmissionRequest carries the fields for queueing a submission for
// evaluation. SubmittedAt is set by the service so the whole transaction
// shares one clock reading.
type EnqueueSubmissionRequest struct {
	UserID      string    `json:"user_id"`
	TaskID      string    `json:"task_id"`
	EssayText   string    `json:"essay_text"`
	WordCount   int       `json:"word_count"`
	IsRandom    bool      `json:"is_random"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// SubmissionListOptions groups parameters for listing a user's submissions.
type SubmissionListOptions struct {
	UserID  string
	Page    int
	PerPage int
}

// TaskSummary is the compact task projection embedded in submission views.
// The list view leaves ID blank.
type TaskSummary struct {
	ID       string   `json:"id,omitempty"`
	Title    string   `json:"title"`
	TaskType TaskType `json:"task_type"`
}

// SubmissionSummary is the list-view projection of a submission.
type SubmissionSummary struct {
	ID          string           `json:"id"`
	Task        TaskSummary      `json:"task"`
	Status      SubmissionStatus `json:"status"`
	WordCount   int              `json:"word_count"`
	SubmittedAt *time.Time       `json:"submitted_at"`
	OverallBand *float64         `json:"overall_band"`
}

// SubmissionPage is one page of a user's submission history.
type SubmissionPage struct {
	Submissions []SubmissionSummary `json:"submissions"`
	Page        int                 `json:"page"`
	TotalPages  int                 `json:"total_pages"`
	HasNext     bool                `json:"has_next"`
	HasPrevious bool                `json:"has_previous"`
}

// SubmissionStatusView is the polling projection of a submission. RedirectURL
// is set once the submission is done.
type SubmissionStatusView struct {
	Status       SubmissionStatus `json:"status"`
	ErrorMessage *string          `json:"error_message"`
	RedirectURL  string           `json:"redirect_url,omitempty"`
}

// SubmissionDetail is the owner's full view: the essay, its task, and the
// evaluation result once done.
type SubmissionDetail struct {
	ID           string           `json:"id"`
	Task         TaskSummary      `json:"task"`
	Status       SubmissionStatus `json:"status"`
	EssayText    string           `json:"essay_text"`
	WordCount    int              `json:"word_count"`
	SubmittedAt  *time.Time       `json:"submitted_at"`
	ErrorMessage *string          `json:"error_message"`
	Result       *Evaluation      `json:"result,omitempty"`
}
