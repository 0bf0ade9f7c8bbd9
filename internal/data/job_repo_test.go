package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclip/videobot/internal/core"
	"github.com/openclip/videobot/internal/domain/model"
	apperrors "github.com/openclip/videobot/internal/errors"
	"github.com/openclip/videobot/internal/testutil"
)

func newTestRepo(t *testing.T) (*JobRepo, *sql.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })
	return NewJobRepo(db, RepoConfig{}), db
}

func TestJobRepoCreate(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	req := testutil.NewJobRequest().
		WithUserID(42).
		WithChatID(42).
		WithPhotos("p1", "p2").
		WithPrompt("two friends hiking at sunrise").
		Build()

	job, err := repo.Create(ctx, req)
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, int64(42), job.UserID)
	assert.Equal(t, []string{"p1", "p2"}, job.Photos)
	assert.Equal(t, model.JobStatusPending, job.Status)
	assert.Nil(t, job.ProviderJobID)
	assert.Nil(t, job.CompletedAt)
	assert.False(t, job.CreatedAt.IsZero())
}

func TestJobRepoCreateRejectsSecondActiveJob(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, testutil.NewJobRequest().WithUserID(42).Build())
	require.NoError(t, err)

	_, err = repo.Create(ctx, testutil.NewJobRequest().WithUserID(42).Build())
	assert.True(t, apperrors.IsConflict(err), "expected conflict, got %v", err)

	// A different user is unaffected.
	_, err = repo.Create(ctx, testutil.NewJobRequest().WithUserID(43).WithChatID(43).Build())
	require.NoError(t, err)
}

func TestJobRepoCreateAllowsNewJobAfterTerminal(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.Create(ctx, testutil.NewJobRequest().WithUserID(42).Build())
	require.NoError(t, err)

	_, applied, err := repo.Fail(ctx, first.ID, "provider exploded")
	require.NoError(t, err)
	require.True(t, applied)

	_, err = repo.Create(ctx, testutil.NewJobRequest().WithUserID(42).Build())
	require.NoError(t, err)
}

func TestJobRepoGetByID(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, testutil.NewJobRequest().Build())
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Prompt, got.Prompt)

	_, err = repo.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestJobRepoLifecycleTransitions(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	job, err := repo.Create(ctx, testutil.NewJobRequest().Build())
	require.NoError(t, err)

	job, applied, err := repo.MarkSubmitted(ctx, job.ID, "ext-123")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, model.JobStatusSubmitted, job.Status)
	require.NotNil(t, job.ProviderJobID)
	assert.Equal(t, "ext-123", *job.ProviderJobID)

	job, applied, err = repo.MarkGenerating(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, model.JobStatusGenerating, job.Status)

	job, applied, err = repo.Complete(ctx, job.ID, "https://cdn.example.com/video.mp4")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, model.JobStatusCompleted, job.Status)
	require.NotNil(t, job.ResultRef)
	assert.Equal(t, "https://cdn.example.com/video.mp4", *job.ResultRef)
	assert.NotNil(t, job.CompletedAt)
}

func TestJobRepoTerminalWins(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	job, err := repo.Create(ctx, testutil.NewJobRequest().Build())
	require.NoError(t, err)

	_, applied, err := repo.Cancel(ctx, job.ID)
	require.NoError(t, err)
	require.True(t, applied)

	// A late completion must not resurrect the cancelled job.
	got, applied, err := repo.Complete(ctx, job.ID, "https://cdn.example.com/video.mp4")
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, model.JobStatusCancelled, got.Status)
	assert.Nil(t, got.ResultRef)

	// Nor a late failure.
	got, applied, err = repo.Fail(ctx, job.ID, "late failure")
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, model.JobStatusCancelled, got.Status)
}

func TestJobRepoDoubleTerminalAppliedOnce(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	job, err := repo.Create(ctx, testutil.NewJobRequest().Build())
	require.NoError(t, err)

	_, first, err := repo.Complete(ctx, job.ID, "ref-a")
	require.NoError(t, err)
	got, second, err := repo.Complete(ctx, job.ID, "ref-b")
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
	require.NotNil(t, got.ResultRef)
	assert.Equal(t, "ref-a", *got.ResultRef)
}

func TestJobRepoTransitionMissingJob(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, _, err := repo.Fail(ctx, "00000000-0000-0000-0000-000000000000", "nope")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestJobRepoListByUser(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		job, err := repo.Create(ctx, testutil.NewJobRequest().WithUserID(7).WithChatID(7).Build())
		require.NoError(t, err)
		_, _, err = repo.Complete(ctx, job.ID, "ref")
		require.NoError(t, err)
	}
	other, err := repo.Create(ctx, testutil.NewJobRequest().WithUserID(8).WithChatID(8).Build())
	require.NoError(t, err)
	_ = other

	jobs, err := repo.ListByUser(ctx, 7, 2)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
	for _, j := range jobs {
		assert.Equal(t, int64(7), j.UserID)
	}
}

func TestJobRepoActiveForUser(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.ActiveForUser(ctx, 7)
	assert.True(t, apperrors.IsNotFound(err))

	job, err := repo.Create(ctx, testutil.NewJobRequest().WithUserID(7).WithChatID(7).Build())
	require.NoError(t, err)

	active, err := repo.ActiveForUser(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, job.ID, active.ID)

	_, _, err = repo.Cancel(ctx, job.ID)
	require.NoError(t, err)

	_, err = repo.ActiveForUser(ctx, 7)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestJobRepoListResumable(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	a, err := repo.Create(ctx, testutil.NewJobRequest().WithUserID(1).WithChatID(1).Build())
	require.NoError(t, err)
	_, _, err = repo.MarkSubmitted(ctx, a.ID, "ext-a")
	require.NoError(t, err)

	b, err := repo.Create(ctx, testutil.NewJobRequest().WithUserID(2).WithChatID(2).Build())
	require.NoError(t, err)
	_, _, err = repo.Complete(ctx, b.ID, "ref")
	require.NoError(t, err)

	resumable, err := repo.ListResumable(ctx)
	require.NoError(t, err)
	require.Len(t, resumable, 1)
	assert.Equal(t, a.ID, resumable[0].ID)
}

func TestJobRepoStats(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	a, err := repo.Create(ctx, testutil.NewJobRequest().WithUserID(1).WithChatID(1).Build())
	require.NoError(t, err)
	_, _, err = repo.Complete(ctx, a.ID, "ref")
	require.NoError(t, err)

	_, err = repo.Create(ctx, testutil.NewJobRequest().WithUserID(2).WithChatID(2).Build())
	require.NoError(t, err)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Completed)
}

func TestJobRepoFailTimedOutJobs(t *testing.T) {
	start := testutil.TestTime()
	tp := NewFixedTimeProvider(start)
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })
	repo := NewJobRepo(db, RepoConfig{TimeProvider: tp})

	ctx := context.Background()

	stale, err := repo.Create(ctx, testutil.NewJobRequest().WithUserID(1).WithChatID(1).Build())
	require.NoError(t, err)
	_, _, err = repo.MarkSubmitted(ctx, stale.ID, "ext-stale")
	require.NoError(t, err)

	// Advance well past the timeout before creating the fresh job.
	tp.AddTime(2 * time.Hour)

	fresh, err := repo.Create(ctx, testutil.NewJobRequest().WithUserID(2).WithChatID(2).Build())
	require.NoError(t, err)

	failed, err := repo.FailTimedOutJobs(ctx, time.Hour, 100)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, stale.ID, failed[0].ID)
	assert.Equal(t, model.JobStatusFailed, failed[0].Status)
	require.NotNil(t, failed[0].ErrorDetail)
	assert.Equal(t, timedOutErrorDetail, *failed[0].ErrorDetail)

	got, err := repo.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPending, got.Status)
}

func TestJobRepoDeleteOldJobs(t *testing.T) {
	start := testutil.TestTime()
	tp := NewFixedTimeProvider(start)
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })
	repo := NewJobRepo(db, RepoConfig{TimeProvider: tp})

	ctx := context.Background()

	old, err := repo.Create(ctx, testutil.NewJobRequest().WithUserID(1).WithChatID(1).Build())
	require.NoError(t, err)
	_, _, err = repo.Complete(ctx, old.ID, "ref")
	require.NoError(t, err)

	tp.AddTime(48 * time.Hour)

	recent, err := repo.Create(ctx, testutil.NewJobRequest().WithUserID(2).WithChatID(2).Build())
	require.NoError(t, err)
	_, _, err = repo.Complete(ctx, recent.ID, "ref")
	require.NoError(t, err)

	deleted, err := repo.DeleteOldJobs(ctx, core.DeleteOldJobsParams{
		Status:    model.JobStatusCompleted,
		MaxAge:    24 * time.Hour,
		BatchSize: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.GetByID(ctx, old.ID)
	assert.True(t, apperrors.IsNotFound(err))
	_, err = repo.GetByID(ctx, recent.ID)
	assert.NoError(t, err)
}

func TestJobRepoDeleteOldJobsValidation(t *testing.T) {
	repo := NewJobRepo(nil, RepoConfig{})
	ctx := context.Background()

	_, err := repo.DeleteOldJobs(ctx, core.DeleteOldJobsParams{
		Status: model.JobStatusGenerating, MaxAge: time.Hour, BatchSize: 10,
	})
	assert.True(t, apperrors.IsValidation(err))

	_, err = repo.DeleteOldJobs(ctx, core.DeleteOldJobsParams{
		Status: model.JobStatusCompleted, MaxAge: 0, BatchSize: 10,
	})
	assert.True(t, apperrors.IsValidation(err))
}
