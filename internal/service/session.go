package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/openclip/videobot/config"
	"github.com/openclip/videobot/internal/core"
	"github.com/openclip/videobot/internal/data"
	"github.com/openclip/videobot/internal/domain/model"
	"github.com/openclip/videobot/internal/domain/session"
	apperrors "github.com/openclip/videobot/internal/errors"
)

// SessionServiceOptions groups dependencies for SessionService.
type SessionServiceOptions struct {
	Store  core.SessionStore // Required: session store
	Config config.BotConfig  // Required: prompt validation limits
	Logger *slog.Logger      // Optional: structured logger
	Clock  data.TimeProvider // Optional: time source (defaults to real time)
}

// SessionService advances per-user conversation state.
//
// All transitions go through the session state machine; this service adds
// prompt validation and persistence on top of the pure machine.
type SessionService struct {
	store  core.SessionStore
	config config.BotConfig
	logger *slog.Logger
	clock  data.TimeProvider
}

// NewSessionService constructs a new SessionService.
func NewSessionService(opts SessionServiceOptions) (*SessionService, error) {
	if opts.Store == nil {
		return nil, errors.New("SessionStore is required")
	}

	clock := opts.Clock
	if clock == nil {
		clock = &data.RealTimeProvider{}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "session_service")
	}

	return &SessionService{
		store:  opts.Store,
		config: opts.Config,
		logger: logger,
		clock:  clock,
	}, nil
}

// Get returns the user's current session. A user who has never interacted
// gets a fresh idle session without persisting it.
func (s *SessionService) Get(ctx context.Context, userID int64) (model.Session, error) {
	sess, err := s.store.Get(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return model.NewSession(userID, s.clock.Now()), nil
		}
		return model.Session{}, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// StartGeneration moves the user into photo collection. Any previously
// staged photos or prompt are discarded first.
func (s *SessionService) StartGeneration(ctx context.Context, userID int64) (model.Session, error) {
	return s.apply(ctx, userID, session.Event{Kind: session.EventStartGeneration})
}

// AddPhoto stages one reference photo.
func (s *SessionService) AddPhoto(ctx context.Context, userID int64, photoRef string) (model.Session, error) {
	return s.apply(ctx, userID, session.Event{Kind: session.EventPhotoReceived, Photo: photoRef})
}

// FinishPhotos closes the photo staging phase before the photo limit is hit.
func (s *SessionService) FinishPhotos(ctx context.Context, userID int64) (model.Session, error) {
	return s.apply(ctx, userID, session.Event{Kind: session.EventDoneWithPhotos})
}

// SubmitPrompt validates and stages the generation prompt.
func (s *SessionService) SubmitPrompt(ctx context.Context, userID int64, prompt string) (model.Session, error) {
	prompt = strings.TrimSpace(prompt)
	if err := s.ValidatePrompt(prompt); err != nil {
		return model.Session{}, err
	}
	return s.apply(ctx, userID, session.Event{Kind: session.EventPromptReceived, Prompt: prompt})
}

// Reset clears the user's staged conversation state. Resetting an idle
// session is a no-op that still succeeds.
func (s *SessionService) Reset(ctx context.Context, userID int64) (model.Session, error) {
	return s.apply(ctx, userID, session.Event{Kind: session.EventReset})
}

// ValidatePrompt checks prompt length and rejects prompts too thin to
// describe a scene.
func (s *SessionService) ValidatePrompt(prompt string) error {
	prompt = strings.TrimSpace(prompt)
	length := utf8.RuneCountInString(prompt)

	if length < s.config.PromptMinLength {
		return apperrors.Validationf(
			"prompt is too short, use at least %d characters", s.config.PromptMinLength,
		)
	}
	if length > s.config.PromptMaxLength {
		return apperrors.Validationf(
			"prompt is too long, keep it under %d characters", s.config.PromptMaxLength,
		)
	}
	if len(strings.Fields(prompt)) < 2 {
		return apperrors.Validation("prompt needs a few words describing the scene")
	}
	return nil
}

func (s *SessionService) apply(ctx context.Context, userID int64, ev session.Event) (model.Session, error) {
	now := s.clock.Now()
	sess, err := s.store.Update(ctx, userID, now, func(cur model.Session) (model.Session, error) {
		return session.Apply(cur, ev, now)
	})
	if err != nil {
		if apperrors.IsUserFacing(err) {
			return model.Session{}, err
		}
		return model.Session{}, fmt.Errorf("apply session event %s: %w", ev.Kind, err)
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "session event applied",
			"user_id", userID,
			"event", ev.Kind,
			"state", sess.State,
			"photos", len(sess.Photos),
		)
	}
	return sess, nil
}
