// Package ark implements the provider gateway against the Volcengine Ark
// content generation API.
package ark

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
	arkmodel "github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
	"github.com/volcengine/volcengine-go-sdk/volcengine"

	"github.com/openclip/videobot/internal/core"
	apperrors "github.com/openclip/videobot/internal/errors"
)

// Config holds connection settings for the Ark API.
type Config struct {
	APIKey string
	// BaseURL overrides the SDK default endpoint when set.
	BaseURL string
	// Model is the content generation model or endpoint ID.
	Model string
	// Resolution is appended to the prompt as a generation directive
	// (e.g. "720p"). Empty means provider default.
	Resolution string
}

// Options groups dependencies for the Gateway.
type Options struct {
	Config Config
	Logger *slog.Logger
}

// Gateway submits and polls content generation tasks.
type Gateway struct {
	client     *arkruntime.Client
	model      string
	resolution string
	logger     *slog.Logger
}

var _ core.ProviderGateway = (*Gateway)(nil)

// NewGateway constructs a Gateway from the given options.
func NewGateway(opts Options) (*Gateway, error) {
	if opts.Config.APIKey == "" {
		return nil, errors.New("ark api key is required")
	}
	if opts.Config.Model == "" {
		return nil, errors.New("ark model is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var clientOpts []arkruntime.ConfigOption
	if opts.Config.BaseURL != "" {
		clientOpts = append(clientOpts, arkruntime.WithBaseUrl(opts.Config.BaseURL))
	}

	return &Gateway{
		client:     arkruntime.NewClientWithApiKey(opts.Config.APIKey, clientOpts...),
		model:      opts.Config.Model,
		resolution: opts.Config.Resolution,
		logger:     logger.With("component", "ark_gateway"),
	}, nil
}

// Submit creates a content generation task and returns the provider task ID.
func (g *Gateway) Submit(ctx context.Context, req core.SubmitRequest) (string, error) {
	content := []*arkmodel.CreateContentGenerationContentItem{
		{
			Type: arkmodel.ContentGenerationContentItemTypeText,
			Text: volcengine.String(promptText(req.Prompt, g.resolution)),
		},
	}
	for _, ref := range req.Photos {
		content = append(content, &arkmodel.CreateContentGenerationContentItem{
			Type: arkmodel.ContentGenerationContentItemTypeImage,
			ImageURL: &arkmodel.ImageURL{
				URL: ref,
			},
		})
	}

	resp, err := g.client.CreateContentGenerationTask(ctx, arkmodel.CreateContentGenerationTaskRequest{
		Model:   g.model,
		Content: content,
	})
	if err != nil {
		return "", normalizeError(err)
	}
	if resp.ID == "" {
		return "", apperrors.ProviderUnavailable("provider returned an empty task id", nil)
	}

	g.logger.InfoContext(ctx, "generation task created", "provider_job_id", resp.ID)
	return resp.ID, nil
}

// Poll fetches the current state of a generation task.
func (g *Gateway) Poll(ctx context.Context, providerJobID string) (core.PollResult, error) {
	if providerJobID == "" {
		return core.PollResult{}, apperrors.Validation("provider job id is required")
	}

	req := arkmodel.GetContentGenerationTaskRequest{}
	req.ID = providerJobID

	resp, err := g.client.GetContentGenerationTask(ctx, req)
	if err != nil {
		return core.PollResult{}, normalizeError(err)
	}

	state, ok := stateFromStatus(resp.Status)
	if !ok {
		return core.PollResult{}, apperrors.Internalf("unexpected provider status %q", resp.Status)
	}

	result := core.PollResult{State: state}
	switch state {
	case core.ProviderStateSucceeded:
		result.ResultRef = resp.Content.VideoURL
		if result.ResultRef == "" {
			return core.PollResult{}, apperrors.Internalf("provider reported success without a video url")
		}
	case core.ProviderStateFailed:
		result.FailureReason = "provider reported generation failure"
	}
	return result, nil
}

// promptText renders the prompt plus generation directives the way the Ark
// API expects them, inline in the text item.
func promptText(prompt, resolution string) string {
	if resolution == "" {
		return prompt
	}
	return prompt + " --resolution " + resolution
}

func stateFromStatus(status string) (core.ProviderState, bool) {
	switch strings.ToLower(status) {
	case "queued", "pending":
		return core.ProviderStateQueued, true
	case "running":
		return core.ProviderStateRunning, true
	case "succeeded":
		return core.ProviderStateSucceeded, true
	case "failed":
		return core.ProviderStateFailed, true
	case "cancelled", "canceled":
		return core.ProviderStateCancelled, true
	default:
		return "", false
	}
}

// normalizeError folds SDK errors into the two retry classes the coordinator
// understands: unavailable (retry) and rejected (give up).
func normalizeError(err error) error {
	var apiErr *arkmodel.APIError
	if errors.As(err, &apiErr) {
		if retryableStatus(apiErr.HTTPStatusCode) {
			return apperrors.ProviderUnavailable("provider temporarily unavailable", err)
		}
		return apperrors.ProviderRejected(apiErr.Message, err)
	}

	var reqErr *arkmodel.RequestError
	if errors.As(err, &reqErr) {
		if retryableStatus(reqErr.HTTPStatusCode) {
			return apperrors.ProviderUnavailable("provider temporarily unavailable", err)
		}
		return apperrors.ProviderRejected("provider rejected the request", err)
	}

	// Network failures, timeouts and anything else unclassified are worth
	// retrying.
	return apperrors.ProviderUnavailable("provider request failed", err)
}

func retryableStatus(code int) bool {
	return code == 0 ||
		code == http.StatusTooManyRequests ||
		code == http.StatusRequestTimeout ||
		code >= http.StatusInternalServerError
}
