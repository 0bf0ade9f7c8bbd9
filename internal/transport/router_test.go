package transport

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclip/videobot/internal/domain/model"
	apperrors "github.com/openclip/videobot/internal/errors"
)

type sentText struct {
	chatID int64
	text   string
}

type sentVideo struct {
	chatID    int64
	resultRef string
	caption   string
}

type fakeSender struct {
	texts  []sentText
	videos []sentVideo
	err    error
}

func (f *fakeSender) SendText(_ context.Context, chatID int64, text string) error {
	if f.err != nil {
		return f.err
	}
	f.texts = append(f.texts, sentText{chatID: chatID, text: text})
	return nil
}

func (f *fakeSender) SendVideo(_ context.Context, chatID int64, resultRef, caption string) error {
	if f.err != nil {
		return f.err
	}
	f.videos = append(f.videos, sentVideo{chatID: chatID, resultRef: resultRef, caption: caption})
	return nil
}

func (f *fakeSender) lastText(t *testing.T) sentText {
	t.Helper()
	require.NotEmpty(t, f.texts, "expected at least one outbound message")
	return f.texts[len(f.texts)-1]
}

type stubSessions struct {
	getFn          func(ctx context.Context, userID int64) (model.Session, error)
	startFn        func(ctx context.Context, userID int64) (model.Session, error)
	addPhotoFn     func(ctx context.Context, userID int64, photoRef string) (model.Session, error)
	finishPhotosFn func(ctx context.Context, userID int64) (model.Session, error)
	submitPromptFn func(ctx context.Context, userID int64, prompt string) (model.Session, error)
	resetFn        func(ctx context.Context, userID int64) (model.Session, error)
}

func (s *stubSessions) Get(ctx context.Context, userID int64) (model.Session, error) {
	return s.getFn(ctx, userID)
}

func (s *stubSessions) StartGeneration(ctx context.Context, userID int64) (model.Session, error) {
	return s.startFn(ctx, userID)
}

func (s *stubSessions) AddPhoto(ctx context.Context, userID int64, photoRef string) (model.Session, error) {
	return s.addPhotoFn(ctx, userID, photoRef)
}

func (s *stubSessions) FinishPhotos(ctx context.Context, userID int64) (model.Session, error) {
	return s.finishPhotosFn(ctx, userID)
}

func (s *stubSessions) SubmitPrompt(ctx context.Context, userID int64, prompt string) (model.Session, error) {
	return s.submitPromptFn(ctx, userID, prompt)
}

func (s *stubSessions) Reset(ctx context.Context, userID int64) (model.Session, error) {
	return s.resetFn(ctx, userID)
}

type stubJobs struct {
	statusFn  func(ctx context.Context, userID int64) (*model.Job, error)
	historyFn func(ctx context.Context, userID int64) ([]*model.Job, error)
}

func (s *stubJobs) Status(ctx context.Context, userID int64) (*model.Job, error) {
	return s.statusFn(ctx, userID)
}

func (s *stubJobs) History(ctx context.Context, userID int64) ([]*model.Job, error) {
	return s.historyFn(ctx, userID)
}

type stubGenerator struct {
	launchFn func(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error)
	cancelFn func(ctx context.Context, userID int64) (*model.Job, error)
}

func (s *stubGenerator) Launch(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	return s.launchFn(ctx, req)
}

func (s *stubGenerator) Cancel(ctx context.Context, userID int64) (*model.Job, error) {
	return s.cancelFn(ctx, userID)
}

const (
	routerTestUser int64 = 42
	routerTestChat int64 = 4242
)

func idleSession() model.Session {
	return model.NewSession(routerTestUser, time.Now())
}

func newTestRouter(t *testing.T, sessions *stubSessions, jobs *stubJobs, gen *stubGenerator) (*Router, *fakeSender) {
	t.Helper()

	if sessions == nil {
		sessions = &stubSessions{}
	}
	if jobs == nil {
		jobs = &stubJobs{}
	}
	if gen == nil {
		gen = &stubGenerator{}
	}
	sender := &fakeSender{}

	router, err := NewRouter(RouterOptions{
		Sessions:  sessions,
		Jobs:      jobs,
		Generator: gen,
		Sender:    sender,
	})
	require.NoError(t, err)
	return router, sender
}

func command(name string) Event {
	return Event{UserID: routerTestUser, ChatID: routerTestChat, Kind: EventCommand, Command: name}
}

func TestRouterRequiresDependencies(t *testing.T) {
	_, err := NewRouter(RouterOptions{})
	require.Error(t, err)
}

func TestRouterStartResetsAndWelcomes(t *testing.T) {
	resetCalled := false
	sessions := &stubSessions{
		resetFn: func(_ context.Context, userID int64) (model.Session, error) {
			resetCalled = true
			assert.Equal(t, routerTestUser, userID)
			return idleSession(), nil
		},
	}
	router, sender := newTestRouter(t, sessions, nil, nil)

	require.NoError(t, router.Handle(context.Background(), command("start")))

	assert.True(t, resetCalled)
	msg := sender.lastText(t)
	assert.Equal(t, routerTestChat, msg.chatID)
	assert.Contains(t, msg.text, "/generate")
}

func TestRouterGenerateAsksForPhotos(t *testing.T) {
	sessions := &stubSessions{
		startFn: func(_ context.Context, _ int64) (model.Session, error) {
			sess := idleSession()
			sess.State = model.SessionStateCollectingPhotos
			return sess, nil
		},
	}
	router, sender := newTestRouter(t, sessions, nil, nil)

	require.NoError(t, router.Handle(context.Background(), command("generate")))

	msg := sender.lastText(t)
	assert.Contains(t, msg.text, "photos")
	assert.Contains(t, msg.text, "Quick Templates")
}

func TestRouterTemplatesListsCatalog(t *testing.T) {
	router, sender := newTestRouter(t, nil, nil, nil)

	require.NoError(t, router.Handle(context.Background(), command("templates")))

	msg := sender.lastText(t)
	assert.Contains(t, msg.text, "Dancing in Tokyo")
	assert.Contains(t, msg.text, "Cyberpunk City")
}

func TestRouterPhotoProgress(t *testing.T) {
	sessions := &stubSessions{
		addPhotoFn: func(_ context.Context, _ int64, photoRef string) (model.Session, error) {
			assert.Equal(t, "file-abc", photoRef)
			sess := idleSession()
			sess.State = model.SessionStateCollectingPhotos
			sess.Photos = []string{"file-prev", "file-abc"}
			return sess, nil
		},
	}
	router, sender := newTestRouter(t, sessions, nil, nil)

	ev := Event{UserID: routerTestUser, ChatID: routerTestChat, Kind: EventPhoto, Photo: "file-abc"}
	require.NoError(t, router.Handle(context.Background(), ev))

	assert.Contains(t, sender.lastText(t).text, "(2/4)")
}

func TestRouterPhotoLimitRendersUserError(t *testing.T) {
	sessions := &stubSessions{
		addPhotoFn: func(_ context.Context, _ int64, _ string) (model.Session, error) {
			return model.Session{}, apperrors.CapacityExceeded("photo limit reached, send your prompt to continue")
		},
	}
	router, sender := newTestRouter(t, sessions, nil, nil)

	ev := Event{UserID: routerTestUser, ChatID: routerTestChat, Kind: EventPhoto, Photo: "file-x"}
	require.NoError(t, router.Handle(context.Background(), ev))

	msg := sender.lastText(t)
	assert.True(t, strings.HasPrefix(msg.text, "❌"), "got %q", msg.text)
	assert.Contains(t, msg.text, "photo limit reached")
}

func TestRouterTextLaunchesJob(t *testing.T) {
	sessions := &stubSessions{
		getFn: func(_ context.Context, _ int64) (model.Session, error) {
			sess := idleSession()
			sess.State = model.SessionStateAwaitingPrompt
			sess.Photos = []string{"p1", "p2"}
			return sess, nil
		},
		submitPromptFn: func(_ context.Context, _ int64, prompt string) (model.Session, error) {
			sess := idleSession()
			sess.State = model.SessionStateAwaitingPrompt
			sess.Photos = []string{"p1", "p2"}
			sess.Prompt = prompt
			return sess, nil
		},
	}
	var launched *model.CreateJobRequest
	gen := &stubGenerator{
		launchFn: func(_ context.Context, req *model.CreateJobRequest) (*model.Job, error) {
			launched = req
			return &model.Job{ID: "job-1", Status: model.JobStatusPending}, nil
		},
	}
	router, sender := newTestRouter(t, sessions, nil, gen)

	ev := Event{UserID: routerTestUser, ChatID: routerTestChat, Kind: EventText, Text: "  surfing at golden hour on a tropical beach  "}
	require.NoError(t, router.Handle(context.Background(), ev))

	require.NotNil(t, launched)
	assert.Equal(t, routerTestUser, launched.UserID)
	assert.Equal(t, routerTestChat, launched.ChatID)
	assert.Equal(t, []string{"p1", "p2"}, launched.Photos)
	assert.Equal(t, "surfing at golden hour on a tropical beach", launched.Prompt)
	assert.Contains(t, sender.lastText(t).text, "Starting video generation")
}

func TestRouterTextExpandsTemplateName(t *testing.T) {
	var submitted string
	sessions := &stubSessions{
		getFn: func(_ context.Context, _ int64) (model.Session, error) {
			sess := idleSession()
			sess.State = model.SessionStateAwaitingPrompt
			sess.Photos = []string{"p1"}
			return sess, nil
		},
		submitPromptFn: func(_ context.Context, _ int64, prompt string) (model.Session, error) {
			submitted = prompt
			sess := idleSession()
			sess.State = model.SessionStateAwaitingPrompt
			sess.Photos = []string{"p1"}
			sess.Prompt = prompt
			return sess, nil
		},
	}
	gen := &stubGenerator{
		launchFn: func(_ context.Context, _ *model.CreateJobRequest) (*model.Job, error) {
			return &model.Job{ID: "job-1"}, nil
		},
	}
	router, _ := newTestRouter(t, sessions, nil, gen)

	ev := Event{UserID: routerTestUser, ChatID: routerTestChat, Kind: EventText, Text: "dancing in tokyo"}
	require.NoError(t, router.Handle(context.Background(), ev))

	assert.Contains(t, submitted, "streets of Tokyo")
}

func TestRouterTextWhileIdle(t *testing.T) {
	sessions := &stubSessions{
		getFn: func(_ context.Context, _ int64) (model.Session, error) {
			return idleSession(), nil
		},
	}
	launchCalled := false
	gen := &stubGenerator{
		launchFn: func(_ context.Context, _ *model.CreateJobRequest) (*model.Job, error) {
			launchCalled = true
			return nil, nil
		},
	}
	router, sender := newTestRouter(t, sessions, nil, gen)

	ev := Event{UserID: routerTestUser, ChatID: routerTestChat, Kind: EventText, Text: "hello"}
	require.NoError(t, router.Handle(context.Background(), ev))

	assert.False(t, launchCalled)
	assert.Contains(t, sender.lastText(t).text, "/generate")
}

func TestRouterTextWhileGenerating(t *testing.T) {
	sessions := &stubSessions{
		getFn: func(_ context.Context, _ int64) (model.Session, error) {
			sess := idleSession()
			sess.State = model.SessionStateGenerating
			return sess, nil
		},
	}
	router, sender := newTestRouter(t, sessions, nil, nil)

	ev := Event{UserID: routerTestUser, ChatID: routerTestChat, Kind: EventText, Text: "another prompt"}
	require.NoError(t, router.Handle(context.Background(), ev))

	assert.Contains(t, sender.lastText(t).text, "already running")
}

func TestRouterStatusNoJobs(t *testing.T) {
	jobs := &stubJobs{
		statusFn: func(_ context.Context, _ int64) (*model.Job, error) {
			return nil, apperrors.NotFound("no generations yet")
		},
	}
	router, sender := newTestRouter(t, nil, jobs, nil)

	require.NoError(t, router.Handle(context.Background(), command("status")))

	assert.Contains(t, sender.lastText(t).text, "No active generation")
}

func TestRouterStatusInFlight(t *testing.T) {
	jobs := &stubJobs{
		statusFn: func(_ context.Context, _ int64) (*model.Job, error) {
			return &model.Job{
				ID:     "job-9",
				Status: model.JobStatusGenerating,
				Photos: []string{"p1", "p2", "p3"},
				Prompt: "walking through Paris in the rain",
			}, nil
		},
	}
	router, sender := newTestRouter(t, nil, jobs, nil)

	require.NoError(t, router.Handle(context.Background(), command("status")))

	msg := sender.lastText(t)
	assert.Contains(t, msg.text, "🎬")
	assert.Contains(t, msg.text, "Photos: 3")
	assert.Contains(t, msg.text, "walking through Paris")
}

func TestRouterHistory(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	jobs := &stubJobs{
		historyFn: func(_ context.Context, _ int64) ([]*model.Job, error) {
			return []*model.Job{
				{ID: "job-2", Status: model.JobStatusCompleted, Prompt: "short prompt", CreatedAt: created},
				{ID: "job-1", Status: model.JobStatusFailed, Prompt: strings.Repeat("long ", 20), CreatedAt: created.Add(-time.Hour)},
			}, nil
		},
	}
	router, sender := newTestRouter(t, nil, jobs, nil)

	require.NoError(t, router.Handle(context.Background(), command("history")))

	msg := sender.lastText(t)
	assert.Contains(t, msg.text, "job-2")
	assert.Contains(t, msg.text, "✅")
	assert.Contains(t, msg.text, "❌")
	assert.Contains(t, msg.text, "...")
}

func TestRouterHistoryEmpty(t *testing.T) {
	jobs := &stubJobs{
		historyFn: func(_ context.Context, _ int64) ([]*model.Job, error) {
			return nil, nil
		},
	}
	router, sender := newTestRouter(t, nil, jobs, nil)

	require.NoError(t, router.Handle(context.Background(), command("history")))

	assert.Contains(t, sender.lastText(t).text, "No previous generations")
}

func TestRouterCancelWithActiveJob(t *testing.T) {
	cancelCalled := false
	gen := &stubGenerator{
		cancelFn: func(_ context.Context, userID int64) (*model.Job, error) {
			cancelCalled = true
			assert.Equal(t, routerTestUser, userID)
			return &model.Job{ID: "job-1", Status: model.JobStatusCancelled}, nil
		},
	}
	router, sender := newTestRouter(t, nil, nil, gen)

	require.NoError(t, router.Handle(context.Background(), command("cancel")))

	assert.True(t, cancelCalled)
	// The delivery notifier owns the confirmation for a cancelled job.
	assert.Empty(t, sender.texts)
}

func TestRouterResetWithNothingRunning(t *testing.T) {
	resetCalled := false
	sessions := &stubSessions{
		resetFn: func(_ context.Context, _ int64) (model.Session, error) {
			resetCalled = true
			return idleSession(), nil
		},
	}
	gen := &stubGenerator{
		cancelFn: func(_ context.Context, _ int64) (*model.Job, error) {
			return nil, apperrors.NotFound("no generation is currently running")
		},
	}
	router, sender := newTestRouter(t, sessions, nil, gen)

	require.NoError(t, router.Handle(context.Background(), command("reset")))

	assert.True(t, resetCalled)
	assert.Contains(t, sender.lastText(t).text, "cancelled and cleared")
}

func TestRouterLaunchConflictRendersUserError(t *testing.T) {
	sessions := &stubSessions{
		getFn: func(_ context.Context, _ int64) (model.Session, error) {
			sess := idleSession()
			sess.State = model.SessionStateAwaitingPrompt
			sess.Photos = []string{"p1"}
			return sess, nil
		},
		submitPromptFn: func(_ context.Context, _ int64, prompt string) (model.Session, error) {
			sess := idleSession()
			sess.State = model.SessionStateAwaitingPrompt
			sess.Photos = []string{"p1"}
			sess.Prompt = prompt
			return sess, nil
		},
	}
	gen := &stubGenerator{
		launchFn: func(_ context.Context, _ *model.CreateJobRequest) (*model.Job, error) {
			return nil, apperrors.Conflict("a generation is already running for this user")
		},
	}
	router, sender := newTestRouter(t, sessions, nil, gen)

	ev := Event{UserID: routerTestUser, ChatID: routerTestChat, Kind: EventText, Text: "surfing at golden hour please"}
	require.NoError(t, router.Handle(context.Background(), ev))

	assert.Contains(t, sender.lastText(t).text, "already running")
}

func TestRouterInternalErrorGenericReply(t *testing.T) {
	jobs := &stubJobs{
		historyFn: func(_ context.Context, _ int64) ([]*model.Job, error) {
			return nil, apperrors.Internal("database unavailable")
		},
	}
	router, sender := newTestRouter(t, nil, jobs, nil)

	require.NoError(t, router.Handle(context.Background(), command("history")))

	msg := sender.lastText(t)
	assert.NotContains(t, msg.text, "database unavailable")
	assert.Contains(t, msg.text, "Something went wrong")
}

func TestRouterUnknownCommand(t *testing.T) {
	router, sender := newTestRouter(t, nil, nil, nil)

	require.NoError(t, router.Handle(context.Background(), command("frobnicate")))

	assert.Contains(t, sender.lastText(t).text, "/help")
}
