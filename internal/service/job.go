package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openclip/videobot/internal/core"
	"github.com/openclip/videobot/internal/domain/model"
	apperrors "github.com/openclip/videobot/internal/errors"
)

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Repo         core.JobRepository // Required: job repository
	HistoryLimit int                // Optional: default history page size
	Logger       *slog.Logger       // Optional: structured logger
}

// JobService provides read access to a user's generation jobs: the active or
// most recent job for status queries, and the recent history listing.
// Lifecycle mutations go through the coordinator, not this service.
type JobService struct {
	repo         core.JobRepository
	historyLimit int
	logger       *slog.Logger
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}

	historyLimit := opts.HistoryLimit
	if historyLimit < 1 {
		historyLimit = 10
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "job_service")
	}

	return &JobService{
		repo:         opts.Repo,
		historyLimit: historyLimit,
		logger:       logger,
	}, nil
}

// Get returns one job by ID.
func (s *JobService) Get(ctx context.Context, id string) (*model.Job, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Status returns the job a status query should describe: the in-flight job
// if one exists, otherwise the user's most recent job. NotFound means the
// user has never generated anything.
func (s *JobService) Status(ctx context.Context, userID int64) (*model.Job, error) {
	job, err := s.repo.ActiveForUser(ctx, userID)
	if err == nil {
		return job, nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, fmt.Errorf("find active job: %w", err)
	}

	recent, err := s.repo.ListByUser(ctx, userID, 1)
	if err != nil {
		return nil, fmt.Errorf("list recent jobs: %w", err)
	}
	if len(recent) == 0 {
		return nil, apperrors.NotFound("no generations yet")
	}
	return recent[0], nil
}

// History lists the user's most recent jobs, newest first.
func (s *JobService) History(ctx context.Context, userID int64) ([]*model.Job, error) {
	jobs, err := s.repo.ListByUser(ctx, userID, s.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("list job history: %w", err)
	}
	return jobs, nil
}

// Stats returns job counts per status across all users.
func (s *JobService) Stats(ctx context.Context) (*model.JobStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	return stats, nil
}
