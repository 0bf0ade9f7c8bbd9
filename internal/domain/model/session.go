package model

import "time"

// SessionState represents where a user is in the generation conversation.
type SessionState string

const (
	// SessionStateIdle indicates no generation flow is in progress.
	SessionStateIdle SessionState = "idle"
	// SessionStateCollectingPhotos indicates the user is staging reference photos.
	SessionStateCollectingPhotos SessionState = "collecting_photos"
	// SessionStateAwaitingPrompt indicates photos are staged and a prompt is expected.
	SessionStateAwaitingPrompt SessionState = "awaiting_prompt"
	// SessionStateGenerating indicates a job is in flight for this user.
	SessionStateGenerating SessionState = "generating"
)

// Valid returns true if the SessionState is a known conversation state.
func (s SessionState) Valid() bool {
	switch s {
	case SessionStateIdle, SessionStateCollectingPhotos, SessionStateAwaitingPrompt, SessionStateGenerating:
		return true
	default:
		return false
	}
}

// Session is the per-user conversation record. There is at most one per user;
// it references an in-flight Job weakly by ID.
type Session struct {
	UserID      int64        `json:"user_id"`
	State       SessionState `json:"state"`
	Photos      []string     `json:"photos,omitempty"`
	Prompt      string       `json:"prompt,omitempty"`
	ActiveJobID *string      `json:"active_job_id,omitempty"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// NewSession returns an idle session for the given user.
func NewSession(userID int64, now time.Time) Session {
	return Session{
		UserID:    userID,
		State:     SessionStateIdle,
		UpdatedAt: now,
	}
}

// Reset clears all staged data and returns the session to idle.
func (s *Session) Reset(now time.Time) {
	s.State = SessionStateIdle
	s.Photos = nil
	s.Prompt = ""
	s.ActiveJobID = nil
	s.UpdatedAt = now
}
