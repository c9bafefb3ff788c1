// Package model defines the core data types shared across the quillscore scoring pipeline.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobType represents the kind of deferred work a job carries.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobType string

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobTypeEvaluate represents a writing evaluation job.
	JobTypeEvaluate JobType = "evaluate"

	// JobStatusPending indicates a job is waiting to be claimed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates a worker holds the job's lock.
	JobStatusRunning JobStatus = "running"
	// JobStatusDone indicates a job finished successfully.
	JobStatusDone JobStatus = "done"
	// JobStatusFailed indicates a job terminated with a permanent failure.
	JobStatusFailed JobStatus = "failed"
)

// ErrNoJobsAvailable is returned when no eligible jobs exist to claim.
var ErrNoJobsAvailable = errors.New("no jobs available")

// UnmarshalText implements encoding.TextUnmarshaler for JobType to allow env parsing.
func (t *JobType) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	jt := JobType(v)
	if jt.Valid() {
		*t = jt
		return nil
	}
	return fmt.Errorf("invalid JobType: %q", v)
}

// Valid returns true if the JobType is valid.
func (t JobType) Valid() bool {
	return t == JobTypeEvaluate
}

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	return s == JobStatusPending || s == JobStatusRunning || s == JobStatusDone ||
		s == JobStatusFailed
}

// Terminal returns true when the status permits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusFailed
}

// Job is one unit of deferred evaluation work tied to a single submission.
// RunAfter is the earliest instant the job becomes eligible for claiming;
// Attempts counts claims and increments exactly once per claim.
type Job struct {
	ID           string     `json:"id"                     db:"id"`
	Type         JobType    `json:"type"                   db:"type"`
	SubmissionID string     `json:"submission_id"          db:"submission_id"`
	Status       JobStatus  `json:"status"                 db:"status"`
	RunAfter     time.Time  `json:"run_after"              db:"run_after"`
	LockedAt     *time.Time `json:"locked_at,omitempty"    db:"locked_at"`
	LockedBy     *string    `json:"locked_by,omitempty"    db:"locked_by"`
	Attempts     int        `json:"attempts"               db:"attempts"`
	LastError    *string    `json:"last_error,omitempty"   db:"last_error"`
	CreatedAt    time.Time  `json:"created_at"             db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"             db:"updated_at"`
}

// CreateJobRequest represents a request to create a new job.
type CreateJobRequest struct {
	Type         JobType    `json:"type"`
	SubmissionID string     `json:"submission_id"`
	RunAfter     *time.Time `json:"run_after,omitempty"`
}

// Validate validates the CreateJobRequest fields.
func (r *CreateJobRequest) Validate() error {
	if !r.Type.Valid() {
		return errors.New("invalid job type")
	}
	if strings.TrimSpace(r.SubmissionID) == "" {
		return errors.New("submission id is required")
	}
	return nil
}

// JobStats represents counts of jobs per status.
type JobStats struct {
	Pending int `json:"pending"`
	Running int `json:"running"`
	Done    int `json:"done"`
	Failed  int `json:"failed"`
}
