package model

import (
	"fmt"
	"strings"
	"time"
)

// TaskType distinguishes the two IELTS writing task formats.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type TaskType string

const (
	// TaskTypeOne is the short report task (charts, diagrams, processes).
	TaskTypeOne TaskType = "IELTS_T1"
	// TaskTypeTwo is the discursive essay task.
	TaskTypeTwo TaskType = "IELTS_T2"
)

// UnmarshalText implements encoding.TextUnmarshaler for TaskType.
func (t *TaskType) UnmarshalText(text []byte) error {
	v := strings.ToUpper(strings.TrimSpace(string(text)))
	tt := TaskType(v)
	if tt.Valid() {
		*t = tt
		return nil
	}
	return fmt.Errorf("invalid TaskType: %q", v)
}

// Valid returns true if the TaskType is valid.
func (t TaskType) Valid() bool {
	return t == TaskTypeOne || t == TaskTypeTwo
}

// Task is a writing prompt from the catalog. MinWords is the submission
// floor enforced at submit time; SuggestedTime is in minutes.
type Task struct {
	ID            string    `json:"id"             db:"id"`
	TaskType      TaskType  `json:"task_type"      db:"task_type"`
	Title         string    `json:"title"          db:"title"`
	Prompt        string    `json:"prompt"         db:"prompt"`
	MinWords      int       `json:"min_words"      db:"min_words"`
	SuggestedTime int       `json:"suggested_time" db:"suggested_time"`
	IsActive      bool      `json:"is_active"      db:"is_active"`
	ExamCode      string    `json:"exam_code"      db:"exam_code"`
	ModuleCode    string    `json:"module_code"    db:"module_code"`
	CreatedAt     time.Time `json:"created_at"     db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"     db:"updated_at"`
}

// CreateTaskRequest carries the fields needed to add a catalog task.
type CreateTaskRequest struct {
	TaskType      TaskType `json:"task_type"`
	Title         string   `json:"title"`
	Prompt        string   `json:"prompt"`
	MinWords      int      `json:"min_words"`
	SuggestedTime int      `json:"suggested_time"`
}

// Validate validates the CreateTaskRequest fields.
func (r *CreateTaskRequest) Validate() error {
	if !r.TaskType.Valid() {
		return fmt.Errorf("invalid task type: %q", r.TaskType)
	}
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if strings.TrimSpace(r.Prompt) == "" {
		return fmt.Errorf("prompt is required")
	}
	if r.MinWords <= 0 {
		return fmt.Errorf("min words must be positive")
	}
	if r.SuggestedTime <= 0 {
		return fmt.Errorf("suggested time must be positive")
	}
	return nil
}
