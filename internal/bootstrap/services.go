package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openclip/videobot/config"
	appredis "github.com/openclip/videobot/internal/adapters/redis"
	"github.com/openclip/videobot/internal/core"
	"github.com/openclip/videobot/internal/data"
	"github.com/openclip/videobot/internal/observability/notify/pagerduty"
	"github.com/openclip/videobot/internal/observability/notify/slack"
	"github.com/openclip/videobot/internal/observability/statsd"
	"github.com/openclip/videobot/internal/service"
	"github.com/openclip/videobot/internal/service/failurenotifier"
	"github.com/openclip/videobot/internal/transport"
	"github.com/redis/go-redis/v9"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Sessions    *service.SessionService
	Jobs        *service.JobService
	Coordinator *service.CoordinatorService
	Reaper      *service.ReaperService
	Delivery    core.DeliveryNotifier
	// Bot is the transport loop. Nil when no inbound event source is wired.
	Bot           *transport.Loop
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink     *statsd.Client
	MetricsConfig   config.ObservabilityMetricsConfig
	FailureNotifier *failurenotifier.Service
	NotifierConfig  config.ObservabilityNotificationsConfig
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger

	// Sender delivers outbound chat messages. Optional; without it job
	// outcomes are only logged.
	Sender transport.Sender
	// Source supplies inbound chat events. Optional; without it the bot
	// service cannot run.
	Source transport.Source
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	DB           *sql.DB
	Redis        redis.UniversalClient
	JobRepo      *data.JobRepo
	SessionStore *appredis.SessionStore
}

// buildObservability configures metrics and notification adapters.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  "videobot",
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	failureNotifier := buildFailureNotifier(obsLogger, cfg.Notifications)

	return ObservabilityContainer{
		MetricsSink:     metricsSink,
		MetricsConfig:   cfg.Metrics,
		FailureNotifier: failureNotifier,
		NotifierConfig:  cfg.Notifications,
	}
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(db *sql.DB, redisClient redis.UniversalClient, redisCfg config.RedisConfig) *serviceRepositories {
	return &serviceRepositories{
		DB:           db,
		Redis:        redisClient,
		JobRepo:      data.NewJobRepo(db, data.RepoConfig{}),
		SessionStore: appredis.NewSessionStore(redisClient, appredis.SessionStoreOptions{TTL: redisCfg.SessionTTL}),
	}
}

// NewServices wires repositories, adapters, and business services together.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil {
		return ServiceContainer{}, errors.New("service deps are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	appCfg := deps.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	observability := buildObservability(logger, appCfg.Observability)
	repos := buildRepositories(deps.DB, deps.RedisClient, appCfg.Redis)

	gateway, providerName, err := BuildProviderGateway(appCfg.Provider, logger)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build provider gateway: %w", err)
	}

	delivery, err := BuildDeliveryNotifier(deps.Sender, logger)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build delivery notifier: %w", err)
	}

	sessionService, err := service.NewSessionService(service.SessionServiceOptions{
		Store:  repos.SessionStore,
		Config: appCfg.Bot,
		Logger: logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build session service: %w", err)
	}

	jobService, err := service.NewJobService(service.JobServiceOptions{
		Repo:         repos.JobRepo,
		HistoryLimit: appCfg.Bot.HistoryLimit,
		Logger:       logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build job service: %w", err)
	}

	coordinator, err := service.NewCoordinatorService(service.CoordinatorServiceOptions{
		Deps: service.CoordinatorDeps{
			Repo:     repos.JobRepo,
			Sessions: repos.SessionStore,
			Gateway:  gateway,
			Delivery: delivery,
			Failures: observability.FailureNotifier,
			Provider: providerName,
		},
		Config:  appCfg.Coordinator,
		Logger:  logger,
		Metrics: observability.MetricsSink,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build coordinator: %w", err)
	}

	reaper, err := service.NewReaperService(service.ReaperServiceOptions{
		Deps: service.ReaperDeps{
			Repo:     repos.JobRepo,
			Sessions: repos.SessionStore,
			Delivery: delivery,
		},
		Config:  appCfg.Reaper,
		Logger:  logger,
		Metrics: observability.MetricsSink,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build reaper: %w", err)
	}

	bot, err := buildBotLoop(botLoopDeps{
		Source:      deps.Source,
		Sender:      deps.Sender,
		Sessions:    sessionService,
		Jobs:        jobService,
		Coordinator: coordinator,
		Logger:      logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build bot loop: %w", err)
	}

	return ServiceContainer{
		Sessions:      sessionService,
		Jobs:          jobService,
		Coordinator:   coordinator,
		Reaper:        reaper,
		Delivery:      delivery,
		Bot:           bot,
		Observability: observability,
	}, nil
}

type botLoopDeps struct {
	Source      transport.Source
	Sender      transport.Sender
	Sessions    *service.SessionService
	Jobs        *service.JobService
	Coordinator *service.CoordinatorService
	Logger      *slog.Logger
}

// buildBotLoop assembles the inbound command pipeline. Both a source and a
// sender must be wired for the bot to run.
func buildBotLoop(deps botLoopDeps) (*transport.Loop, error) {
	if deps.Source == nil || deps.Sender == nil {
		return nil, nil
	}

	router, err := transport.NewRouter(transport.RouterOptions{
		Sessions:  deps.Sessions,
		Jobs:      deps.Jobs,
		Generator: deps.Coordinator,
		Sender:    deps.Sender,
		Logger:    deps.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build router: %w", err)
	}

	return transport.NewLoop(transport.LoopOptions{
		Source:  deps.Source,
		Handler: router,
		Logger:  deps.Logger,
	})
}

func buildFailureNotifier(logger *slog.Logger, cfg config.ObservabilityNotificationsConfig) *failurenotifier.Service {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = slog.Default()
	}

	if !cfg.Enabled {
		return failurenotifier.NewService(failurenotifier.Options{
			Logger: baseLogger.With("component", "failure_notifier"),
		})
	}

	sinks := make([]failurenotifier.SinkRegistration, 0, 2)

	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL: cfg.Slack.WebhookURL,
			Channel:    cfg.Slack.Channel,
			Username:   cfg.Slack.Username,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			baseLogger.Error("failed to initialise slack notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{
				Name: "slack",
				Sink: client,
			})
		}
	}

	if cfg.PagerDuty.Enabled {
		client, err := pagerduty.NewClient(pagerduty.Config{
			RoutingKey: cfg.PagerDuty.RoutingKey,
			Source:     cfg.PagerDuty.Source,
			Component:  cfg.PagerDuty.Component,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			baseLogger.Error("failed to initialise pagerduty notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{
				Name: "pagerduty",
				Sink: client,
			})
		}
	}

	return failurenotifier.NewService(failurenotifier.Options{
		Logger: baseLogger.With("component", "failure_notifier"),
		Sinks:  sinks,
	})
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

const (
	// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
	shutdownWaitTimeout = 15 * time.Second
)

// serviceStartupDeps groups dependencies for service startup.
type serviceStartupDeps struct {
	ctx             context.Context
	cfg             *ServiceOrchestrationConfig
	logger          *slog.Logger
	enabledServices map[config.ServiceMode]bool
	errCh           chan error
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	mode config.ServiceMode
	name string
	done <-chan struct{}
}

func launchBackground(ctx context.Context, deps *serviceStartupDeps, descriptor backgroundService) <-chan struct{} {
	if deps == nil || !deps.enabledServices[descriptor.mode] {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := descriptor.start(ctx); err != nil {
			errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
			select {
			case deps.errCh <- errMsg:
			case <-ctx.Done():
			default:
				deps.logger.WarnContext(ctx, "dropping background service error",
					"service", descriptor.name,
					"error", errMsg,
				)
			}
		}
	}()

	deps.logger.InfoContext(ctx, "background service started", "service", descriptor.name, "mode", descriptor.mode)
	return done
}

func startBackgroundServices(deps *serviceStartupDeps, services []backgroundService) []backgroundServiceHandle {
	if deps == nil {
		return nil
	}
	handles := make([]backgroundServiceHandle, 0, len(services))

	for _, svc := range services {
		done := launchBackground(deps.ctx, deps, svc)
		if done == nil {
			continue
		}

		handles = append(handles, backgroundServiceHandle{
			mode: svc.mode,
			name: svc.name,
			done: done,
		})
	}

	return handles
}

func newBotBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeBot,
		name: "bot",
		start: func(ctx context.Context) error {
			if deps == nil || deps.cfg == nil {
				return nil
			}
			if deps.cfg.Services.Bot == nil {
				deps.logger.Warn("bot service enabled but no event source is wired; skipping")
				return nil
			}
			return deps.cfg.Services.Bot.Run(ctx)
		},
	}
}

func newCoordinatorBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeCoordinator,
		name: "coordinator",
		start: func(ctx context.Context) error {
			if deps == nil || deps.cfg == nil {
				return nil
			}
			return deps.cfg.Services.Coordinator.Run(ctx)
		},
	}
}

func newReaperBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeReaper,
		name: "reaper",
		start: func(ctx context.Context) error {
			if deps == nil || deps.cfg == nil {
				return nil
			}
			return deps.cfg.Services.Reaper.Run(ctx)
		},
	}
}

func buildBackgroundServices(deps *serviceStartupDeps) []backgroundService {
	if deps == nil {
		return nil
	}
	return []backgroundService{
		newBotBackgroundService(deps),
		newCoordinatorBackgroundService(deps),
		newReaperBackgroundService(deps),
	}
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	// Determine which services are enabled
	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	errCh := make(chan error, len(enabledServices)+1)

	deps := &serviceStartupDeps{
		ctx:             serviceCtx,
		cfg:             cfg,
		logger:          logger,
		enabledServices: enabledServices,
		errCh:           errCh,
	}
	backgrounds := startBackgroundServices(deps, buildBackgroundServices(deps))

	// Wait for shutdown signal or error
	return waitForShutdown(shutdownConfig{
		cancel:      cancel,
		errCh:       errCh,
		logger:      logger,
		backgrounds: backgrounds,
	})
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	cancel      context.CancelFunc
	errCh       <-chan error
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel() // Cancel service context before waiting
		gracefulStop(cfg)
		return nil
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel() // Cancel service context before waiting
		gracefulStop(cfg)
		return err
	}
}

// gracefulStop waits for background services to finish.
func gracefulStop(cfg shutdownConfig) {
	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
	}
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
