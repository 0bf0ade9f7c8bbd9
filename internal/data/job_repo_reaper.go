package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/openclip/videobot/internal/core"
	"github.com/openclip/videobot/internal/data/pgxutil"
	"github.com/openclip/videobot/internal/domain/model"
	apperrors "github.com/openclip/videobot/internal/errors"
)

// Advisory lock namespace for reaper operations. The two-arg
// pg_try_advisory_xact_lock(major, minor) keeps concurrent reaper instances
// from stepping on each other.
const (
	advisoryLockReaperMajor  = 2100
	advisoryLockReaperFail   = 1 // minor key for FailTimedOutJobs
	advisoryLockReaperDelete = 2 // minor key for DeleteOldJobs
)

const timedOutErrorDetail = "generation timed out"

// FailTimedOutJobs marks non-terminal jobs older than maxAge as failed and
// returns them so the caller can notify their owners. Processes up to
// batchSize jobs per call to prevent long locks and I/O spikes.
func (r *JobRepo) FailTimedOutJobs(ctx context.Context, maxAge time.Duration, batchSize int) ([]*model.Job, error) {
	if maxAge <= 0 {
		return nil, apperrors.Validation("max age must be greater than zero")
	}
	if batchSize <= 0 {
		return nil, apperrors.Validation("batch size must be greater than zero")
	}

	var failed []*model.Job
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			locked, err := tryReaperLock(ctx, tx, advisoryLockReaperFail)
			if err != nil || !locked {
				return err
			}

			now := r.timeProvider.Now().UTC()
			cutoff := now.Add(-maxAge)

			rows, err := tx.Query(ctx, `
				UPDATE jobs
				SET status = 'failed', error_detail = $1, completed_at = $2, updated_at = $2
				WHERE id IN (
					SELECT id FROM jobs
					WHERE status IN ('pending', 'submitted', 'generating')
					  AND created_at < $3
					ORDER BY created_at
					LIMIT $4
				)
				RETURNING `+jobColumns, timedOutErrorDetail, now, cutoff, batchSize)
			if err != nil {
				return fmt.Errorf("fail timed out jobs: %w", err)
			}
			defer rows.Close()

			failed, err = pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Job])
			if err != nil {
				return fmt.Errorf("collect timed out jobs: %w", err)
			}
			return nil
		},
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return failed, nil
}

// DeleteOldJobs deletes terminal jobs of the given status older than MaxAge.
// Returns the number of jobs deleted.
func (r *JobRepo) DeleteOldJobs(ctx context.Context, params core.DeleteOldJobsParams) (int64, error) {
	if !params.Status.Valid() || !params.Status.Terminal() {
		return 0, apperrors.Validationf("status %q is not terminal", params.Status)
	}
	if params.MaxAge <= 0 {
		return 0, apperrors.Validation("max age must be greater than zero")
	}
	if params.BatchSize <= 0 {
		return 0, apperrors.Validation("batch size must be greater than zero")
	}

	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx,
				"SELECT pg_try_advisory_xact_lock($1, $2)",
				advisoryLockReaperMajor, advisoryLockReaperDelete,
			).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				return nil
			}

			cutoff := r.timeProvider.Now().Add(-params.MaxAge).UTC()

			res, err := tx.ExecContext(ctx, `
				DELETE FROM jobs
				WHERE id IN (
					SELECT id FROM jobs
					WHERE status = $1
					  AND (completed_at < $2 OR (completed_at IS NULL AND updated_at < $2))
					ORDER BY COALESCE(completed_at, updated_at)
					LIMIT $3
				)
			`, params.Status, cutoff, params.BatchSize)
			if err != nil {
				return fmt.Errorf("delete old jobs: %w", err)
			}

			rowsAffected, err = res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			return nil
		},
	})
	if err != nil {
		return 0, apperrors.MapDBError(err)
	}
	return rowsAffected, nil
}

func tryReaperLock(ctx context.Context, tx pgx.Tx, minor int) (bool, error) {
	var locked bool
	if err := tx.QueryRow(ctx,
		"SELECT pg_try_advisory_xact_lock($1, $2)",
		advisoryLockReaperMajor, minor,
	).Scan(&locked); err != nil {
		return false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	return locked, nil
}
