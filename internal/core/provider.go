package core

import "context"

// ProviderState is the provider-side view of a generation task.
type ProviderState string

const (
	// ProviderStateQueued means the task is accepted but not running yet.
	ProviderStateQueued ProviderState = "queued"
	// ProviderStateRunning means the task is generating.
	ProviderStateRunning ProviderState = "running"
	// ProviderStateSucceeded means the task finished with a result.
	ProviderStateSucceeded ProviderState = "succeeded"
	// ProviderStateFailed means the task failed provider-side.
	ProviderStateFailed ProviderState = "failed"
	// ProviderStateCancelled means the task was cancelled provider-side.
	ProviderStateCancelled ProviderState = "cancelled"
)

// Terminal reports whether the provider will not change this state again.
func (s ProviderState) Terminal() bool {
	return s == ProviderStateSucceeded || s == ProviderStateFailed || s == ProviderStateCancelled
}

// SubmitRequest carries everything the provider needs to start a generation.
type SubmitRequest struct {
	Photos []string
	Prompt string
}

// PollResult is one observation of a provider task.
type PollResult struct {
	State ProviderState
	// ResultRef is set when State is succeeded.
	ResultRef string
	// FailureReason is set when State is failed.
	FailureReason string
}

// ProviderGateway defines the interface to the video generation provider.
//
// Submit errors are normalized by the implementation: transient problems
// (network, rate limiting, provider 5xx) surface as provider-unavailable
// errors and are safe to retry, permanent rejections (bad input, moderation)
// surface as provider-rejected errors and must not be retried.
type ProviderGateway interface {
	Submit(ctx context.Context, req SubmitRequest) (string, error)
	Poll(ctx context.Context, providerJobID string) (PollResult, error)
}
