package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/openclip/videobot/internal/data/pgxutil"
	"github.com/openclip/videobot/internal/domain/model"
	apperrors "github.com/openclip/videobot/internal/errors"
)

// Status transitions are guarded by WHERE clauses so the lifecycle stays
// monotonic under concurrent writers: once a row reaches a terminal status no
// later update touches it. Each method returns the row after the attempt and
// whether this call performed the transition. applied == false with a nil
// error means another writer got there first; callers use it to keep terminal
// side effects exactly-once.

// MarkSubmitted records provider acceptance of a pending job.
func (r *JobRepo) MarkSubmitted(ctx context.Context, id, providerJobID string) (*model.Job, bool, error) {
	if providerJobID == "" {
		return nil, false, apperrors.Validation("provider job id is required")
	}
	query := `
		UPDATE jobs
		SET status = 'submitted', provider_job_id = $2, updated_at = $3
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + jobColumns
	return r.transition(ctx, id, query, providerJobID, r.timeProvider.Now().UTC())
}

// MarkGenerating records that the provider reports the job as running.
func (r *JobRepo) MarkGenerating(ctx context.Context, id string) (*model.Job, bool, error) {
	query := `
		UPDATE jobs
		SET status = 'generating', updated_at = $2
		WHERE id = $1 AND status IN ('pending', 'submitted')
		RETURNING ` + jobColumns
	return r.transition(ctx, id, query, r.timeProvider.Now().UTC())
}

// Complete finalizes a job with its result reference.
func (r *JobRepo) Complete(ctx context.Context, id, resultRef string) (*model.Job, bool, error) {
	if resultRef == "" {
		return nil, false, apperrors.Validation("result reference is required")
	}
	now := r.timeProvider.Now().UTC()
	query := `
		UPDATE jobs
		SET status = 'completed', result_ref = $2, error_detail = NULL,
		    completed_at = $3, updated_at = $3
		WHERE id = $1 AND status IN ('pending', 'submitted', 'generating')
		RETURNING ` + jobColumns
	return r.transition(ctx, id, query, resultRef, now)
}

// Fail finalizes a job with an error detail.
func (r *JobRepo) Fail(ctx context.Context, id, detail string) (*model.Job, bool, error) {
	now := r.timeProvider.Now().UTC()
	query := `
		UPDATE jobs
		SET status = 'failed', error_detail = $2, completed_at = $3, updated_at = $3
		WHERE id = $1 AND status IN ('pending', 'submitted', 'generating')
		RETURNING ` + jobColumns
	return r.transition(ctx, id, query, detail, now)
}

// Cancel finalizes a job as cancelled. A job that already reached another
// terminal status stays as it is.
func (r *JobRepo) Cancel(ctx context.Context, id string) (*model.Job, bool, error) {
	now := r.timeProvider.Now().UTC()
	query := `
		UPDATE jobs
		SET status = 'cancelled', completed_at = $2, updated_at = $2
		WHERE id = $1 AND status IN ('pending', 'submitted', 'generating')
		RETURNING ` + jobColumns
	return r.transition(ctx, id, query, now)
}

func (r *JobRepo) transition(ctx context.Context, id, query string, args ...any) (*model.Job, bool, error) {
	if id == "" {
		return nil, false, apperrors.Validation("job id is required")
	}

	var job *model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, append([]any{id}, args...)...)
		if err != nil {
			return fmt.Errorf("update job status: %w", err)
		}
		job, err = pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Job])
		return err
	})
	if err == nil {
		return job, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, apperrors.MapDBError(err)
	}

	// The guard did not match. Fetch the row to distinguish a missing job
	// from one that already moved past the requested transition.
	current, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return nil, false, getErr
	}
	return current, false, nil
}
