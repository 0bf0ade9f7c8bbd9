package testutil

import (
	"time"

	"github.com/openclip/videobot/internal/domain/model"
)

// JobRequestBuilder provides a fluent interface for building CreateJobRequest objects for testing.
type JobRequestBuilder struct {
	req *model.CreateJobRequest
}

// NewJobRequest creates a new JobRequestBuilder with sensible defaults.
func NewJobRequest() *JobRequestBuilder {
	return &JobRequestBuilder{
		req: &model.CreateJobRequest{
			UserID: 1001,
			ChatID: 1001,
			Photos: []string{"photo-ref-1"},
			Prompt: "a short cinematic clip of a city street at night",
		},
	}
}

// WithUserID sets the owning user.
func (b *JobRequestBuilder) WithUserID(userID int64) *JobRequestBuilder {
	b.req.UserID = userID
	return b
}

// WithChatID sets the delivery chat.
func (b *JobRequestBuilder) WithChatID(chatID int64) *JobRequestBuilder {
	b.req.ChatID = chatID
	return b
}

// WithPhotos sets the reference photos.
func (b *JobRequestBuilder) WithPhotos(photos ...string) *JobRequestBuilder {
	b.req.Photos = photos
	return b
}

// WithPrompt sets the generation prompt.
func (b *JobRequestBuilder) WithPrompt(prompt string) *JobRequestBuilder {
	b.req.Prompt = prompt
	return b
}

// Build returns the constructed CreateJobRequest.
func (b *JobRequestBuilder) Build() *model.CreateJobRequest {
	return b.req
}

// SessionBuilder provides a fluent interface for building Session values for testing.
type SessionBuilder struct {
	sess model.Session
}

// NewSession creates a new SessionBuilder in the idle state.
func NewSession(userID int64) *SessionBuilder {
	return &SessionBuilder{
		sess: model.NewSession(userID, TestTime()),
	}
}

// InState sets the conversation state.
func (b *SessionBuilder) InState(state model.SessionState) *SessionBuilder {
	b.sess.State = state
	return b
}

// WithPhotos sets the staged photos.
func (b *SessionBuilder) WithPhotos(photos ...string) *SessionBuilder {
	b.sess.Photos = photos
	return b
}

// WithPrompt sets the staged prompt.
func (b *SessionBuilder) WithPrompt(prompt string) *SessionBuilder {
	b.sess.Prompt = prompt
	return b
}

// WithActiveJob sets the in-flight job reference and the generating state.
func (b *SessionBuilder) WithActiveJob(jobID string) *SessionBuilder {
	b.sess.State = model.SessionStateGenerating
	b.sess.ActiveJobID = &jobID
	return b
}

// UpdatedAt sets the last-touched timestamp.
func (b *SessionBuilder) UpdatedAt(t time.Time) *SessionBuilder {
	b.sess.UpdatedAt = t
	return b
}

// Build returns the constructed Session.
func (b *SessionBuilder) Build() model.Session {
	return b.sess
}
