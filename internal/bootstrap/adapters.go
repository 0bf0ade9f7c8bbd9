package bootstrap

import (
	"context"
	"log/slog"

	"github.com/openclip/videobot/config"
	"github.com/openclip/videobot/internal/adapters/ark"
	"github.com/openclip/videobot/internal/adapters/devgen"
	"github.com/openclip/videobot/internal/core"
	"github.com/openclip/videobot/internal/domain/model"
	"github.com/openclip/videobot/internal/transport"
)

// BuildProviderGateway selects the generation provider implementation.
// Mock mode swaps the real Ark gateway for the offline devgen variant.
//
//nolint:ireturn // returning core.ProviderGateway lets mock mode pick the implementation.
func BuildProviderGateway(cfg config.ProviderConfig, logger *slog.Logger) (core.ProviderGateway, string, error) {
	if cfg.MockMode {
		if logger != nil {
			logger.Info("provider mock mode enabled, using devgen")
		}
		return devgen.NewProvider(devgen.Config{}), "devgen", nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	gateway, err := ark.NewGateway(ark.Options{
		Config: ark.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Resolution: cfg.Resolution,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, "", err
	}
	return gateway, "ark", nil
}

// BuildDeliveryNotifier wires terminal outcome delivery over the chat sender.
// Without a sender (coordinator-only deployments) outcomes are logged and the
// owner learns about them through the status command.
//
//nolint:ireturn // returning core.DeliveryNotifier lets deployments without a chat sender fall back to logging.
func BuildDeliveryNotifier(sender transport.Sender, logger *slog.Logger) (core.DeliveryNotifier, error) {
	if sender == nil {
		log := logger
		if log == nil {
			log = slog.Default()
		}
		log.Warn("no chat sender wired; job outcomes will only be logged")
		return &logDelivery{logger: log.With("component", "delivery_notifier")}, nil
	}
	return transport.NewNotifier(transport.NotifierOptions{
		Sender: sender,
		Logger: logger,
	})
}

// logDelivery records terminal outcomes in the log instead of a chat.
type logDelivery struct {
	logger *slog.Logger
}

var _ core.DeliveryNotifier = (*logDelivery)(nil)

func (d *logDelivery) NotifyCompleted(ctx context.Context, job *model.Job) error {
	resultRef := ""
	if job.ResultRef != nil {
		resultRef = *job.ResultRef
	}
	d.logger.InfoContext(ctx, "job completed", "job_id", job.ID, "user_id", job.UserID, "result_ref", resultRef)
	return nil
}

func (d *logDelivery) NotifyFailed(ctx context.Context, job *model.Job) error {
	detail := ""
	if job.ErrorDetail != nil {
		detail = *job.ErrorDetail
	}
	d.logger.WarnContext(ctx, "job failed", "job_id", job.ID, "user_id", job.UserID, "error_detail", detail)
	return nil
}

func (d *logDelivery) NotifyCancelled(ctx context.Context, job *model.Job) error {
	d.logger.InfoContext(ctx, "job cancelled", "job_id", job.ID, "user_id", job.UserID)
	return nil
}
