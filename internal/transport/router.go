package transport

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"

	"github.com/openclip/videobot/internal/domain/model"
	apperrors "github.com/openclip/videobot/internal/errors"
	"github.com/openclip/videobot/internal/templates"
)

// SessionFlow is the slice of the session service the router needs.
type SessionFlow interface {
	Get(ctx context.Context, userID int64) (model.Session, error)
	StartGeneration(ctx context.Context, userID int64) (model.Session, error)
	AddPhoto(ctx context.Context, userID int64, photoRef string) (model.Session, error)
	FinishPhotos(ctx context.Context, userID int64) (model.Session, error)
	SubmitPrompt(ctx context.Context, userID int64, prompt string) (model.Session, error)
	Reset(ctx context.Context, userID int64) (model.Session, error)
}

// JobReader is the slice of the job service the router needs.
type JobReader interface {
	Status(ctx context.Context, userID int64) (*model.Job, error)
	History(ctx context.Context, userID int64) ([]*model.Job, error)
}

// Generator is the slice of the coordinator the router needs.
type Generator interface {
	Launch(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error)
	Cancel(ctx context.Context, userID int64) (*model.Job, error)
}

// RouterOptions groups dependencies for Router.
type RouterOptions struct {
	Sessions  SessionFlow  // Required: conversation state transitions
	Jobs      JobReader    // Required: status and history reads
	Generator Generator    // Required: job launch and cancel
	Sender    Sender       // Required: outbound replies
	Logger    *slog.Logger // Optional: structured logger
	MaxPhotos int          // Optional: defaults to model.MaxReferencePhotos
}

// Router dispatches inbound chat events to the services and writes replies
// through the Sender. It is platform-agnostic; a concrete Source feeds it.
type Router struct {
	sessions  SessionFlow
	jobs      JobReader
	generator Generator
	sender    Sender
	logger    *slog.Logger
	maxPhotos int
}

// NewRouter constructs a new Router.
func NewRouter(opts RouterOptions) (*Router, error) {
	if opts.Sessions == nil {
		return nil, stderrors.New("SessionFlow is required")
	}
	if opts.Jobs == nil {
		return nil, stderrors.New("JobReader is required")
	}
	if opts.Generator == nil {
		return nil, stderrors.New("Generator is required")
	}
	if opts.Sender == nil {
		return nil, stderrors.New("Sender is required")
	}

	maxPhotos := opts.MaxPhotos
	if maxPhotos < 1 {
		maxPhotos = model.MaxReferencePhotos
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Router{
		sessions:  opts.Sessions,
		jobs:      opts.Jobs,
		generator: opts.Generator,
		sender:    opts.Sender,
		logger:    logger.With("component", "transport_router"),
		maxPhotos: maxPhotos,
	}, nil
}

// Handle processes a single inbound event. Errors from the services are
// rendered to the user; only Sender failures propagate to the caller.
func (r *Router) Handle(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case EventCommand:
		return r.handleCommand(ctx, ev)
	case EventPhoto:
		return r.handlePhoto(ctx, ev)
	case EventText:
		return r.handleText(ctx, ev)
	default:
		r.logger.WarnContext(ctx, "dropping event of unknown kind", "kind", ev.Kind, "user_id", ev.UserID)
		return nil
	}
}

func (r *Router) handleCommand(ctx context.Context, ev Event) error {
	switch strings.ToLower(ev.Command) {
	case "start":
		// A fresh start discards any staged conversation state.
		if _, err := r.sessions.Reset(ctx, ev.UserID); err != nil {
			r.logger.ErrorContext(ctx, "reset on start failed", "user_id", ev.UserID, "error", err)
		}
		return r.sender.SendText(ctx, ev.ChatID, welcomeMessage)

	case "help":
		return r.sender.SendText(ctx, ev.ChatID, helpMessage)

	case "generate":
		if _, err := r.sessions.StartGeneration(ctx, ev.UserID); err != nil {
			return r.replyError(ctx, ev, err)
		}
		return r.sender.SendText(ctx, ev.ChatID, askForPhotosMessage(r.maxPhotos))

	case "templates":
		return r.sender.SendText(ctx, ev.ChatID, templates.FormatList())

	case "done":
		if _, err := r.sessions.FinishPhotos(ctx, ev.UserID); err != nil {
			return r.replyError(ctx, ev, err)
		}
		return r.sender.SendText(ctx, ev.ChatID, photoSavedMessage(r.maxPhotos, r.maxPhotos))

	case "status":
		return r.handleStatus(ctx, ev)

	case "history":
		return r.handleHistory(ctx, ev)

	case "reset", "cancel":
		return r.handleReset(ctx, ev)

	default:
		return r.sender.SendText(ctx, ev.ChatID, "Unknown command. Use /help to see what I can do.")
	}
}

func (r *Router) handleStatus(ctx context.Context, ev Event) error {
	job, err := r.jobs.Status(ctx, ev.UserID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return r.sender.SendText(ctx, ev.ChatID, noJobsMessage)
		}
		return r.replyError(ctx, ev, err)
	}
	return r.sender.SendText(ctx, ev.ChatID, statusMessage(job))
}

func (r *Router) handleHistory(ctx context.Context, ev Event) error {
	jobs, err := r.jobs.History(ctx, ev.UserID)
	if err != nil {
		return r.replyError(ctx, ev, err)
	}
	if len(jobs) == 0 {
		return r.sender.SendText(ctx, ev.ChatID, emptyHistoryMessage)
	}
	return r.sender.SendText(ctx, ev.ChatID, historyMessage(jobs))
}

func (r *Router) handleReset(ctx context.Context, ev Event) error {
	_, err := r.generator.Cancel(ctx, ev.UserID)
	switch {
	case err == nil:
		// The cancelled job's delivery notice confirms to the user.
		return nil
	case apperrors.IsNotFound(err):
		// Nothing in flight; just clear staged conversation state.
		if _, resetErr := r.sessions.Reset(ctx, ev.UserID); resetErr != nil {
			return r.replyError(ctx, ev, resetErr)
		}
		return r.sender.SendText(ctx, ev.ChatID, resetMessage)
	default:
		return r.replyError(ctx, ev, err)
	}
}

func (r *Router) handlePhoto(ctx context.Context, ev Event) error {
	sess, err := r.sessions.AddPhoto(ctx, ev.UserID, ev.Photo)
	if err != nil {
		return r.replyError(ctx, ev, err)
	}
	return r.sender.SendText(ctx, ev.ChatID, photoSavedMessage(len(sess.Photos), r.maxPhotos))
}

func (r *Router) handleText(ctx context.Context, ev Event) error {
	sess, err := r.sessions.Get(ctx, ev.UserID)
	if err != nil {
		return r.replyError(ctx, ev, err)
	}
	switch sess.State {
	case model.SessionStateIdle:
		return r.sender.SendText(ctx, ev.ChatID, idleTextHint)
	case model.SessionStateGenerating:
		return r.sender.SendText(ctx, ev.ChatID, busyTextHint)
	}

	prompt := strings.TrimSpace(ev.Text)
	if tpl, ok := templates.ByName(prompt); ok {
		prompt = tpl.Prompt
	}

	sess, err = r.sessions.SubmitPrompt(ctx, ev.UserID, prompt)
	if err != nil {
		return r.replyError(ctx, ev, err)
	}

	if _, err := r.generator.Launch(ctx, &model.CreateJobRequest{
		UserID: ev.UserID,
		ChatID: ev.ChatID,
		Photos: sess.Photos,
		Prompt: sess.Prompt,
	}); err != nil {
		return r.replyError(ctx, ev, err)
	}

	return r.sender.SendText(ctx, ev.ChatID, generationStartedMessage)
}

// replyError renders service errors for the user. User-facing errors carry
// their message through; everything else gets a generic reply and a log line.
func (r *Router) replyError(ctx context.Context, ev Event, err error) error {
	if apperrors.IsUserFacing(err) || apperrors.IsConflict(err) || apperrors.IsNotFound(err) {
		return r.sender.SendText(ctx, ev.ChatID, "❌ "+appMessage(err))
	}
	r.logger.ErrorContext(ctx, "event handling failed",
		"user_id", ev.UserID,
		"kind", ev.Kind,
		"command", ev.Command,
		"error", err,
	)
	return r.sender.SendText(ctx, ev.ChatID, genericErrorMessage)
}

func appMessage(err error) string {
	var appErr *apperrors.AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
