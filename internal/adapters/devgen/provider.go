package devgen

// Package devgen provides an offline ProviderGateway for local development.
// It fabricates generation tasks in memory: a task sits in the queue briefly,
// runs for a configurable duration, then succeeds with a synthetic result
// reference. Prompts containing "devgen:fail" fail instead, which makes the
// failure path easy to exercise by hand.

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openclip/videobot/internal/core"
	apperrors "github.com/openclip/videobot/internal/errors"
)

// FailMarker in a prompt makes the fabricated task fail.
const FailMarker = "devgen:fail"

// Config controls the fabricated task timings.
type Config struct {
	// QueueDuration is how long a task stays queued. Default 1s.
	QueueDuration time.Duration
	// RunDuration is how long a task runs before finishing. Default 3s.
	RunDuration time.Duration
	// Now overrides the clock in tests.
	Now func() time.Time
}

type task struct {
	prompt      string
	submittedAt time.Time
}

// Provider implements core.ProviderGateway without any network access.
type Provider struct {
	queueDuration time.Duration
	runDuration   time.Duration
	now           func() time.Time

	mu    sync.Mutex
	tasks map[string]task
}

var _ core.ProviderGateway = (*Provider)(nil)

// NewProvider constructs a dev generation provider from Config.
func NewProvider(cfg Config) *Provider {
	queue := cfg.QueueDuration
	if queue <= 0 {
		queue = time.Second
	}
	run := cfg.RunDuration
	if run <= 0 {
		run = 3 * time.Second
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Provider{
		queueDuration: queue,
		runDuration:   run,
		now:           now,
		tasks:         make(map[string]task),
	}
}

// Submit registers a fabricated task and returns its ID.
func (p *Provider) Submit(_ context.Context, req core.SubmitRequest) (string, error) {
	if req.Prompt == "" {
		return "", apperrors.ProviderRejected("prompt is required", nil)
	}
	if len(req.Photos) == 0 {
		return "", apperrors.ProviderRejected("at least one reference image is required", nil)
	}

	id := "devgen-" + uuid.NewString()
	p.mu.Lock()
	p.tasks[id] = task{prompt: req.Prompt, submittedAt: p.now()}
	p.mu.Unlock()
	return id, nil
}

// Poll reports the fabricated task state based on elapsed time.
func (p *Provider) Poll(_ context.Context, providerJobID string) (core.PollResult, error) {
	p.mu.Lock()
	t, ok := p.tasks[providerJobID]
	p.mu.Unlock()
	if !ok {
		return core.PollResult{}, apperrors.ProviderRejected("unknown task id", nil)
	}

	elapsed := p.now().Sub(t.submittedAt)
	switch {
	case elapsed < p.queueDuration:
		return core.PollResult{State: core.ProviderStateQueued}, nil
	case elapsed < p.queueDuration+p.runDuration:
		return core.PollResult{State: core.ProviderStateRunning}, nil
	}

	if strings.Contains(t.prompt, FailMarker) {
		return core.PollResult{
			State:         core.ProviderStateFailed,
			FailureReason: "forced failure for development",
		}, nil
	}
	return core.PollResult{
		State:     core.ProviderStateSucceeded,
		ResultRef: fmt.Sprintf("https://devgen.invalid/videos/%s.mp4", providerJobID),
	}, nil
}
