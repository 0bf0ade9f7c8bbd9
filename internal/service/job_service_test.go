package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/openclip/videobot/internal/domain/model"
	apperrors "github.com/openclip/videobot/internal/errors"
	"github.com/openclip/videobot/internal/mocks"
)

func newTestJobService(t *testing.T, repo *fakeJobRepo) *JobService {
	t.Helper()
	svc, err := NewJobService(JobServiceOptions{Repo: repo, HistoryLimit: 3})
	require.NoError(t, err)
	return svc
}

func seedTerminalJob(repo *fakeJobRepo, id string, userID int64, status model.JobStatus, age time.Duration) {
	now := time.Now().Add(-age)
	repo.seed(&model.Job{
		ID:        id,
		UserID:    userID,
		ChatID:    userID,
		Photos:    []string{"p1"},
		Prompt:    "prompt for " + id,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func TestJobServiceStatusPrefersActiveJob(t *testing.T) {
	ctx := context.Background()
	repo := newFakeJobRepo()
	svc := newTestJobService(t, repo)

	seedTerminalJob(repo, "job-old", 42, model.JobStatusCompleted, time.Hour)
	seedTerminalJob(repo, "job-live", 42, model.JobStatusGenerating, time.Minute)

	job, err := svc.Status(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "job-live", job.ID)
}

func TestJobServiceStatusFallsBackToMostRecent(t *testing.T) {
	ctx := context.Background()
	repo := newFakeJobRepo()
	svc := newTestJobService(t, repo)

	seedTerminalJob(repo, "job-older", 42, model.JobStatusFailed, 2*time.Hour)
	seedTerminalJob(repo, "job-newer", 42, model.JobStatusCompleted, time.Hour)

	job, err := svc.Status(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "job-newer", job.ID)
}

func TestJobServiceStatusNoJobs(t *testing.T) {
	svc := newTestJobService(t, newFakeJobRepo())

	_, err := svc.Status(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestJobServiceHistoryNewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	repo := newFakeJobRepo()
	svc := newTestJobService(t, repo)

	seedTerminalJob(repo, "job-1", 42, model.JobStatusCompleted, 4*time.Hour)
	seedTerminalJob(repo, "job-2", 42, model.JobStatusCompleted, 3*time.Hour)
	seedTerminalJob(repo, "job-3", 42, model.JobStatusFailed, 2*time.Hour)
	seedTerminalJob(repo, "job-4", 42, model.JobStatusCompleted, time.Hour)
	seedTerminalJob(repo, "job-other", 99, model.JobStatusCompleted, time.Minute)

	jobs, err := svc.History(ctx, 42)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, "job-4", jobs[0].ID)
	assert.Equal(t, "job-3", jobs[1].ID)
	assert.Equal(t, "job-2", jobs[2].ID)
}

func TestJobServiceStats(t *testing.T) {
	ctx := context.Background()
	repo := newFakeJobRepo()
	svc := newTestJobService(t, repo)

	seedTerminalJob(repo, "job-1", 1, model.JobStatusCompleted, time.Hour)
	seedTerminalJob(repo, "job-2", 2, model.JobStatusFailed, time.Hour)
	seedTerminalJob(repo, "job-3", 3, model.JobStatusGenerating, time.Minute)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Generating)
}

func TestJobServiceGetWrapsStorageErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := mocks.NewMockJobRepository(ctrl)
	mockRepo.EXPECT().
		GetByID(gomock.Any(), "job-1").
		Return(nil, apperrors.Internal("connection refused"))

	svc, err := NewJobService(JobServiceOptions{Repo: mockRepo})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "job-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get job")
	assert.True(t, apperrors.IsInternal(err))
}

func TestJobServiceGetPassesThroughNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := mocks.NewMockJobRepository(ctrl)
	mockRepo.EXPECT().
		GetByID(gomock.Any(), "missing").
		Return(nil, apperrors.NotFound("job not found"))

	svc, err := NewJobService(JobServiceOptions{Repo: mockRepo})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestJobServiceStatusWrapsActiveLookupErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := mocks.NewMockJobRepository(ctrl)
	mockRepo.EXPECT().
		ActiveForUser(gomock.Any(), int64(9)).
		Return(nil, apperrors.Internal("connection refused"))

	svc, err := NewJobService(JobServiceOptions{Repo: mockRepo})
	require.NoError(t, err)

	_, err = svc.Status(context.Background(), 9)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "find active job")
}
