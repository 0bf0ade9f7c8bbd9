// Package data implements Postgres-backed persistence for generation jobs.
package data

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/openclip/videobot/internal/data/pgxutil"
	"github.com/openclip/videobot/internal/domain/model"
	apperrors "github.com/openclip/videobot/internal/errors"
)

// RepoConfig holds configuration options for the job repository.
type RepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// JobRepo provides database operations for the job lifecycle.
type JobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewJobRepo creates a new JobRepo instance with the given database connection and configuration.
func NewJobRepo(db *sql.DB, cfg RepoConfig) *JobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &JobRepo{
		DB:           db,
		timeProvider: tp,
		logger:       logger.With("component", "job_repo"),
	}
}

const jobColumns = `
  id,
  user_id,
  chat_id,
  photos,
  prompt,
  status,
  provider_job_id,
  result_ref,
  error_detail,
  created_at,
  updated_at,
  completed_at
`

// Create persists a new job in pending status. The partial unique index on
// active jobs makes a second in-flight job for the same user fail with a
// conflict error.
func (r *JobRepo) Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	if req == nil {
		return nil, apperrors.Validation("create job request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	now := r.timeProvider.Now().UTC()
	query := `
		INSERT INTO jobs (id, user_id, chat_id, photos, prompt, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + jobColumns

	var job *model.Job
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query,
			uuid.NewString(), req.UserID, req.ChatID, req.Photos, req.Prompt,
			model.JobStatusPending, now, now)
		if err != nil {
			return fmt.Errorf("insert job: %w", err)
		}
		job, err = pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Job])
		if err != nil {
			return fmt.Errorf("collect job: %w", err)
		}
		return nil
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}

	r.logger.InfoContext(ctx, "job created", "job_id", job.ID, "user_id", job.UserID)
	return job, nil
}

// GetByID retrieves a job by its identifier.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	if id == "" {
		return nil, apperrors.Validation("job id is required")
	}

	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	var job *model.Job
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, id)
		if err != nil {
			return fmt.Errorf("query job: %w", err)
		}
		job, err = pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Job])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}

	return job, nil
}
