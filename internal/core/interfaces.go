package core

import (
	"context"
	"time"

	"github.com/openclip/videobot/internal/domain/model"
)

// This file contains the port interfaces between the service layer and the
// storage/transport adapters. Services depend on these interfaces, not on
// concrete implementations.

// JobRepository defines the interface for durable job data operations.
//
// The transition methods (MarkSubmitted, MarkGenerating, Complete, Fail,
// Cancel) return the job row after the attempt plus whether this call
// performed the transition. A false result with a nil error means another
// writer moved the job first; callers rely on it to keep terminal side
// effects exactly-once.
type JobRepository interface {
	Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error)
	GetByID(ctx context.Context, id string) (*model.Job, error)

	MarkSubmitted(ctx context.Context, id, providerJobID string) (*model.Job, bool, error)
	MarkGenerating(ctx context.Context, id string) (*model.Job, bool, error)
	Complete(ctx context.Context, id, resultRef string) (*model.Job, bool, error)
	Fail(ctx context.Context, id, detail string) (*model.Job, bool, error)
	Cancel(ctx context.Context, id string) (*model.Job, bool, error)

	ListByUser(ctx context.Context, userID int64, limit int) ([]*model.Job, error)
	ActiveForUser(ctx context.Context, userID int64) (*model.Job, error)
	ListResumable(ctx context.Context) ([]*model.Job, error)
	Stats(ctx context.Context) (*model.JobStats, error)
}

// DeleteOldJobsParams groups parameters for ReaperRepository.DeleteOldJobs.
type DeleteOldJobsParams struct {
	Status    model.JobStatus
	MaxAge    time.Duration
	BatchSize int
}

// ReaperRepository defines the interface for job cleanup operations.
type ReaperRepository interface {
	FailTimedOutJobs(ctx context.Context, maxAge time.Duration, batchSize int) ([]*model.Job, error)
	DeleteOldJobs(ctx context.Context, params DeleteOldJobsParams) (int64, error)
}

// SessionStore defines the interface for per-user conversation state.
//
// Update applies fn under optimistic concurrency control; a missing session
// is presented to fn as a fresh idle session. Errors returned by fn abort the
// update and are passed through unchanged.
type SessionStore interface {
	Get(ctx context.Context, userID int64) (model.Session, error)
	Save(ctx context.Context, sess model.Session) error
	Delete(ctx context.Context, userID int64) error
	Update(
		ctx context.Context,
		userID int64,
		now time.Time,
		fn func(model.Session) (model.Session, error),
	) (model.Session, error)
}

// DeliveryNotifier defines the interface for delivering terminal job outcomes
// to the job's owner.
type DeliveryNotifier interface {
	NotifyCompleted(ctx context.Context, job *model.Job) error
	NotifyFailed(ctx context.Context, job *model.Job) error
	NotifyCancelled(ctx context.Context, job *model.Job) error
}
