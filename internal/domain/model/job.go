// Package model defines the core data types shared by the videobot job system.
package model

import (
	"errors"
	"strings"
	"time"
)

// JobStatus represents the current status of a generation job.
type JobStatus string

const (
	// JobStatusPending indicates the job is persisted but not yet accepted by the provider.
	JobStatusPending JobStatus = "pending"
	// JobStatusSubmitted indicates the provider accepted the job (queued phase).
	JobStatusSubmitted JobStatus = "submitted"
	// JobStatusGenerating indicates the provider reports the job as running.
	JobStatusGenerating JobStatus = "generating"
	// JobStatusCompleted indicates the job finished and a result reference is stored.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed; the error detail records why.
	JobStatusFailed JobStatus = "failed"
	// JobStatusCancelled indicates the user cancelled the job before it reached
	// a provider-side terminal state.
	JobStatusCancelled JobStatus = "cancelled"
)

// MaxReferencePhotos is the maximum number of reference photos per job.
const MaxReferencePhotos = 4

// statusRank orders statuses along the lifecycle so transitions stay monotonic.
var statusRank = map[JobStatus]int{
	JobStatusPending:    0,
	JobStatusSubmitted:  1,
	JobStatusGenerating: 2,
	JobStatusCompleted:  3,
	JobStatusFailed:     3,
	JobStatusCancelled:  3,
}

// Valid returns true if the JobStatus is a known lifecycle state.
func (s JobStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Terminal returns true if no further transitions are permitted from this status.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// CanTransitionTo reports whether moving from s to next keeps the lifecycle
// monotonic: pending → submitted → generating → exactly one terminal status.
// Failure and cancellation may short-circuit earlier phases, but a terminal
// status is never left.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if !s.Valid() || !next.Valid() || s.Terminal() {
		return false
	}
	return statusRank[next] > statusRank[s]
}

// Job represents one durable generation request from submission to terminal outcome.
type Job struct {
	ID            string     `json:"id"                        db:"id"`
	UserID        int64      `json:"user_id"                   db:"user_id"`
	ChatID        int64      `json:"chat_id"                   db:"chat_id"`
	Photos        []string   `json:"photos"                    db:"photos"`
	Prompt        string     `json:"prompt"                    db:"prompt"`
	Status        JobStatus  `json:"status"                    db:"status"`
	ProviderJobID *string    `json:"provider_job_id,omitempty" db:"provider_job_id"`
	ResultRef     *string    `json:"result_ref,omitempty"      db:"result_ref"`
	ErrorDetail   *string    `json:"error_detail,omitempty"    db:"error_detail"`
	CreatedAt     time.Time  `json:"created_at"                db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"                db:"updated_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"    db:"completed_at"`
}

// InFlight reports whether the job still has an active provider task to poll.
func (j *Job) InFlight() bool {
	return j.Status == JobStatusSubmitted || j.Status == JobStatusGenerating
}

// CreateJobRequest represents a request to create a new generation job.
type CreateJobRequest struct {
	UserID int64    `json:"user_id"`
	ChatID int64    `json:"chat_id"`
	Photos []string `json:"photos"`
	Prompt string   `json:"prompt"`
}

// Validate validates the CreateJobRequest fields.
func (r *CreateJobRequest) Validate() error {
	if r.UserID == 0 {
		return errors.New("user id is required")
	}
	if r.ChatID == 0 {
		return errors.New("chat id is required")
	}
	if len(r.Photos) == 0 {
		return errors.New("at least one reference photo is required")
	}
	if len(r.Photos) > MaxReferencePhotos {
		return errors.New("too many reference photos")
	}
	for _, p := range r.Photos {
		if strings.TrimSpace(p) == "" {
			return errors.New("photo reference must not be empty")
		}
	}
	if strings.TrimSpace(r.Prompt) == "" {
		return errors.New("prompt is required")
	}
	return nil
}

// JobStats represents counts of jobs per lifecycle state.
type JobStats struct {
	Pending    int `json:"pending"`
	Submitted  int `json:"submitted"`
	Generating int `json:"generating"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
}
