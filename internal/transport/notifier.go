package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openclip/videobot/internal/domain/model"
)

// NotifierOptions groups dependencies for Notifier.
type NotifierOptions struct {
	Sender Sender       // Required: outbound message sender
	Logger *slog.Logger // Optional: structured logger
}

// Notifier delivers terminal job outcomes to the job's chat. It implements
// core.DeliveryNotifier over a Sender.
type Notifier struct {
	sender Sender
	logger *slog.Logger
}

// NewNotifier constructs a new Notifier.
func NewNotifier(opts NotifierOptions) (*Notifier, error) {
	if opts.Sender == nil {
		return nil, errors.New("Sender is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "delivery_notifier")
	}

	return &Notifier{
		sender: opts.Sender,
		logger: logger,
	}, nil
}

// NotifyCompleted sends the finished video to the job's chat.
func (n *Notifier) NotifyCompleted(ctx context.Context, job *model.Job) error {
	if job.ResultRef == nil || *job.ResultRef == "" {
		return fmt.Errorf("job %s completed without a result reference", job.ID)
	}
	caption := "🎬 Your video is ready!\n\nUse /generate to create another one."
	if err := n.sender.SendVideo(ctx, job.ChatID, *job.ResultRef, caption); err != nil {
		return fmt.Errorf("send video for job %s: %w", job.ID, err)
	}
	return nil
}

// NotifyFailed tells the job's chat that generation failed and why.
func (n *Notifier) NotifyFailed(ctx context.Context, job *model.Job) error {
	reason := "the provider reported a generation failure"
	if job.ErrorDetail != nil && *job.ErrorDetail != "" {
		reason = *job.ErrorDetail
	}
	text := fmt.Sprintf(
		"❌ *Generation failed*\n\n%s\n\nTry /generate again with a different prompt or photos.",
		reason,
	)
	if err := n.sender.SendText(ctx, job.ChatID, text); err != nil {
		return fmt.Errorf("send failure notice for job %s: %w", job.ID, err)
	}
	return nil
}

// NotifyCancelled confirms a cancellation to the job's chat.
func (n *Notifier) NotifyCancelled(ctx context.Context, job *model.Job) error {
	text := "🔄 *Generation cancelled.*\n\nUse /generate to start fresh!"
	if err := n.sender.SendText(ctx, job.ChatID, text); err != nil {
		return fmt.Errorf("send cancellation notice for job %s: %w", job.ID, err)
	}
	return nil
}
