// Package session implements the per-user conversation state machine.
//
// The machine is pure: Apply takes a session value and an event and returns
// the next session value or an error. Persistence and side effects (job
// creation, provider calls, replies) live in the service layer.
package session

import (
	"time"

	"github.com/openclip/videobot/internal/domain/model"
	apperrors "github.com/openclip/videobot/internal/errors"
)

// EventKind identifies a conversation event.
type EventKind string

const (
	// EventStartGeneration begins a new generation flow. Legal from any
	// state; any previously staged data is discarded.
	EventStartGeneration EventKind = "start_generation"
	// EventPhotoReceived stages one reference photo.
	EventPhotoReceived EventKind = "photo_received"
	// EventDoneWithPhotos closes the photo staging phase early.
	EventDoneWithPhotos EventKind = "done_with_photos"
	// EventPromptReceived stages the text prompt.
	EventPromptReceived EventKind = "prompt_received"
	// EventJobStarted records that a job was created and is now in flight.
	EventJobStarted EventKind = "job_started"
	// EventJobTerminal records that the in-flight job reached a terminal
	// status. A no-op outside the generating state.
	EventJobTerminal EventKind = "job_terminal"
	// EventReset discards all staged data. Always legal.
	EventReset EventKind = "reset"
)

// Event is one conversation input. Photo, Prompt and JobID are only read for
// the event kinds that carry them.
type Event struct {
	Kind   EventKind
	Photo  string
	Prompt string
	JobID  string
}

// Apply advances sess by one event. The input session is not mutated; the
// returned session carries the new state with UpdatedAt set to now. On error
// the returned session equals the input.
func Apply(sess model.Session, ev Event, now time.Time) (model.Session, error) {
	next := sess
	next.Photos = append([]string(nil), sess.Photos...)

	switch ev.Kind {
	case EventStartGeneration:
		next.Reset(now)
		next.State = model.SessionStateCollectingPhotos
		return next, nil

	case EventPhotoReceived:
		return applyPhoto(sess, next, ev, now)

	case EventDoneWithPhotos:
		if sess.State != model.SessionStateCollectingPhotos {
			return sess, invalidTransition(sess.State, ev.Kind)
		}
		if len(sess.Photos) == 0 {
			return sess, apperrors.NoPhotosStaged("send at least one reference photo first")
		}
		next.State = model.SessionStateAwaitingPrompt
		next.UpdatedAt = now
		return next, nil

	case EventPromptReceived:
		return applyPrompt(sess, next, ev, now)

	case EventJobStarted:
		if sess.State != model.SessionStateCollectingPhotos && sess.State != model.SessionStateAwaitingPrompt {
			return sess, invalidTransition(sess.State, ev.Kind)
		}
		if ev.JobID == "" {
			return sess, apperrors.Validationf("job id is required to start generating")
		}
		jobID := ev.JobID
		next.State = model.SessionStateGenerating
		next.ActiveJobID = &jobID
		next.UpdatedAt = now
		return next, nil

	case EventJobTerminal:
		if sess.State != model.SessionStateGenerating {
			// Late or duplicate terminal notification. Ignore.
			return sess, nil
		}
		next.Reset(now)
		return next, nil

	case EventReset:
		next.Reset(now)
		return next, nil

	default:
		return sess, apperrors.Validationf("unknown event kind %q", ev.Kind)
	}
}

func applyPhoto(sess, next model.Session, ev Event, now time.Time) (model.Session, error) {
	if ev.Photo == "" {
		return sess, apperrors.Validationf("photo reference is required")
	}
	switch sess.State {
	case model.SessionStateCollectingPhotos:
		if len(sess.Photos) >= model.MaxReferencePhotos {
			return sess, apperrors.CapacityExceeded("photo limit reached, send your prompt to continue")
		}
		next.Photos = append(next.Photos, ev.Photo)
		if len(next.Photos) == model.MaxReferencePhotos {
			next.State = model.SessionStateAwaitingPrompt
		}
		next.UpdatedAt = now
		return next, nil
	case model.SessionStateAwaitingPrompt:
		if len(sess.Photos) >= model.MaxReferencePhotos {
			return sess, apperrors.CapacityExceeded("photo limit reached, send your prompt to continue")
		}
		return sess, invalidTransition(sess.State, ev.Kind)
	default:
		return sess, invalidTransition(sess.State, ev.Kind)
	}
}

func applyPrompt(sess, next model.Session, ev Event, now time.Time) (model.Session, error) {
	if ev.Prompt == "" {
		return sess, apperrors.Validationf("prompt is required")
	}
	switch sess.State {
	case model.SessionStateAwaitingPrompt:
	case model.SessionStateCollectingPhotos:
		// A prompt while still collecting closes staging implicitly,
		// as long as at least one photo is in.
		if len(sess.Photos) == 0 {
			return sess, apperrors.NoPhotosStaged("send at least one reference photo first")
		}
	default:
		return sess, invalidTransition(sess.State, ev.Kind)
	}
	next.Prompt = ev.Prompt
	next.State = model.SessionStateAwaitingPrompt
	next.UpdatedAt = now
	return next, nil
}

func invalidTransition(state model.SessionState, kind EventKind) error {
	return apperrors.InvalidTransitionf("event %s is not allowed in state %s", kind, state)
}
