package data

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/openclip/videobot/internal/data/pgxutil"
	"github.com/openclip/videobot/internal/domain/model"
	apperrors "github.com/openclip/videobot/internal/errors"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 50
)

// ListByUser returns the user's most recent jobs, newest first.
func (r *JobRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]*model.Job, error) {
	if userID == 0 {
		return nil, apperrors.Validation("user id is required")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	return r.collectJobs(ctx, query, userID, limit)
}

// ActiveForUser returns the user's single non-terminal job, or a not-found
// error when the user has nothing in flight.
func (r *JobRepo) ActiveForUser(ctx context.Context, userID int64) (*model.Job, error) {
	if userID == 0 {
		return nil, apperrors.Validation("user id is required")
	}

	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE user_id = $1 AND status IN ('pending', 'submitted', 'generating')
		ORDER BY created_at DESC
		LIMIT 1
	`

	var job *model.Job
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, userID)
		if err != nil {
			return fmt.Errorf("query active job: %w", err)
		}
		job, err = pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Job])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}

	return job, nil
}

// ListResumable returns every non-terminal job, oldest first. Called once at
// coordinator startup to pick up work that survived a restart.
func (r *JobRepo) ListResumable(ctx context.Context) ([]*model.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE status IN ('pending', 'submitted', 'generating')
		ORDER BY created_at ASC
	`
	return r.collectJobs(ctx, query)
}

// Stats returns job counts per lifecycle state.
func (r *JobRepo) Stats(ctx context.Context) (*model.JobStats, error) {
	query := `SELECT status, COUNT(*) FROM jobs GROUP BY status`

	stats := &model.JobStats{}
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query)
		if err != nil {
			return fmt.Errorf("query job stats: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var status model.JobStatus
			var count int
			if err := rows.Scan(&status, &count); err != nil {
				return fmt.Errorf("scan job stats: %w", err)
			}
			switch status {
			case model.JobStatusPending:
				stats.Pending = count
			case model.JobStatusSubmitted:
				stats.Submitted = count
			case model.JobStatusGenerating:
				stats.Generating = count
			case model.JobStatusCompleted:
				stats.Completed = count
			case model.JobStatusFailed:
				stats.Failed = count
			case model.JobStatusCancelled:
				stats.Cancelled = count
			}
		}
		return rows.Err()
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}

	return stats, nil
}

func (r *JobRepo) collectJobs(ctx context.Context, query string, args ...any) ([]*model.Job, error) {
	var result []*model.Job
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("query jobs: %w", err)
		}
		defer rows.Close()

		vals, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Job])
		if err != nil {
			return fmt.Errorf("collect jobs: %w", err)
		}
		result = vals
		return nil
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return result, nil
}
