package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclip/videobot/internal/domain/model"
)

func strPtr(s string) *string { return &s }

func TestNotifierRequiresSender(t *testing.T) {
	_, err := NewNotifier(NotifierOptions{})
	require.Error(t, err)
}

func TestNotifierCompletedSendsVideo(t *testing.T) {
	sender := &fakeSender{}
	notifier, err := NewNotifier(NotifierOptions{Sender: sender})
	require.NoError(t, err)

	job := &model.Job{
		ID:        "job-1",
		ChatID:    100,
		Status:    model.JobStatusCompleted,
		ResultRef: strPtr("https://cdn.example.com/video.mp4"),
	}
	require.NoError(t, notifier.NotifyCompleted(context.Background(), job))

	require.Len(t, sender.videos, 1)
	assert.Equal(t, int64(100), sender.videos[0].chatID)
	assert.Equal(t, "https://cdn.example.com/video.mp4", sender.videos[0].resultRef)
	assert.Contains(t, sender.videos[0].caption, "ready")
}

func TestNotifierCompletedWithoutResultFails(t *testing.T) {
	sender := &fakeSender{}
	notifier, err := NewNotifier(NotifierOptions{Sender: sender})
	require.NoError(t, err)

	job := &model.Job{ID: "job-1", ChatID: 100, Status: model.JobStatusCompleted}
	require.Error(t, notifier.NotifyCompleted(context.Background(), job))
	assert.Empty(t, sender.videos)
}

func TestNotifierFailedIncludesReason(t *testing.T) {
	sender := &fakeSender{}
	notifier, err := NewNotifier(NotifierOptions{Sender: sender})
	require.NoError(t, err)

	job := &model.Job{
		ID:          "job-1",
		ChatID:      100,
		Status:      model.JobStatusFailed,
		ErrorDetail: strPtr("generation timed out"),
	}
	require.NoError(t, notifier.NotifyFailed(context.Background(), job))

	require.Len(t, sender.texts, 1)
	assert.Contains(t, sender.texts[0].text, "generation timed out")
	assert.Contains(t, sender.texts[0].text, "/generate")
}

func TestNotifierFailedDefaultReason(t *testing.T) {
	sender := &fakeSender{}
	notifier, err := NewNotifier(NotifierOptions{Sender: sender})
	require.NoError(t, err)

	job := &model.Job{ID: "job-1", ChatID: 100, Status: model.JobStatusFailed}
	require.NoError(t, notifier.NotifyFailed(context.Background(), job))

	require.Len(t, sender.texts, 1)
	assert.Contains(t, sender.texts[0].text, "generation failure")
}

func TestNotifierCancelled(t *testing.T) {
	sender := &fakeSender{}
	notifier, err := NewNotifier(NotifierOptions{Sender: sender})
	require.NoError(t, err)

	job := &model.Job{ID: "job-1", ChatID: 100, Status: model.JobStatusCancelled}
	require.NoError(t, notifier.NotifyCancelled(context.Background(), job))

	require.Len(t, sender.texts, 1)
	assert.Contains(t, sender.texts[0].text, "cancelled")
}
