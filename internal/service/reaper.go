package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openclip/videobot/config"
	"github.com/openclip/videobot/internal/core"
	"github.com/openclip/videobot/internal/data"
	"github.com/openclip/videobot/internal/domain/model"
	"github.com/openclip/videobot/internal/domain/session"
	obserrors "github.com/openclip/videobot/internal/observability/errors"
	"github.com/openclip/videobot/internal/observability/metrics"
	"github.com/openclip/videobot/internal/observability/statsd"
)

// ReaperDeps groups the collaborators of the reaper.
type ReaperDeps struct {
	Repo     core.ReaperRepository // Required: reaper repository
	Sessions core.SessionStore     // Optional: settle sessions of timed-out jobs
	Delivery core.DeliveryNotifier // Optional: tell owners their job timed out
	Clock    data.TimeProvider     // Optional: time source
}

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Deps    ReaperDeps          // Required: collaborators
	Config  config.ReaperConfig // Required: reaper configuration
	Logger  *slog.Logger        // Optional: structured logger
	Metrics statsd.Sink         // Optional: metrics sink (StatsD-compatible)
}

// ReaperService provides job cleanup operations.
//
// This service manages:
// - Failing in-flight jobs orphaned past their maximum age (crash backstop).
// - Deleting old completed jobs to prevent database bloat.
// - Deleting old failed and cancelled jobs to prevent database bloat.
type ReaperService struct {
	repo     core.ReaperRepository
	sessions core.SessionStore
	delivery core.DeliveryNotifier
	clock    data.TimeProvider
	config   config.ReaperConfig
	logger   *slog.Logger
	metrics  statsd.Sink
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Deps.Repo == nil {
		return nil, errors.New("ReaperRepository is required")
	}

	clock := opts.Deps.Clock
	if clock == nil {
		clock = &data.RealTimeProvider{}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "reaper_service")
		logger.Debug("ReaperService initialized",
			"interval", opts.Config.Interval,
			"in_flight_max_age", opts.Config.InFlightMaxAge,
			"completed_max_age", opts.Config.CompletedMaxAge,
			"failed_max_age", opts.Config.FailedMaxAge,
			"cancelled_max_age", opts.Config.CancelledMaxAge,
		)
	}

	return &ReaperService{
		repo:     opts.Deps.Repo,
		sessions: opts.Deps.Sessions,
		delivery: opts.Deps.Delivery,
		clock:    clock,
		config:   opts.Config,
		logger:   logger,
		metrics:  opts.Metrics,
	}, nil
}

// Run starts the reaper loop and runs until the context is cancelled.
// It performs cleanup operations at the configured interval.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *ReaperService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting reaper service", "interval", s.config.Interval)
	}

	// Add jitter to prevent thundering herd if multiple instances start together
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Run cleanup immediately after jitter
	if err := s.runCleanup(ctx); err != nil {
		s.logCleanupError(err, "initial cleanup")
	}

	return s.runLoop(ctx, ticker)
}

// waitWithJitter adds a random delay up to 10% of the interval to prevent thundering herd.
func (s *ReaperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// If crypto/rand fails, skip jitter rather than failing startup
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		}
		return
	}

	// Use modulo on uint64 before converting to avoid overflow
	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
		// Graceful shutdown during jitter
	}
}

// runLoop runs the cleanup loop until context is cancelled.
func (s *ReaperService) runLoop(ctx context.Context, ticker *time.Ticker) error {
	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "reaper service stopping", "reason", ctx.Err())
			}
			// Return nil on graceful shutdown to avoid treating it as a failure
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if err := s.runCleanup(ctx); err != nil {
				s.logCleanupError(err, "cleanup")
				if isContextCancellation(err) {
					continue
				}
				// Continue running despite errors
			}
		}
	}
}

// runCleanup performs all cleanup operations.
func (s *ReaperService) runCleanup(ctx context.Context) error {
	start := time.Now()
	var (
		errs               []error
		allContextCanceled = true
		metricsData        = cleanupMetrics{}
	)

	steps := []cleanupStep{
		{
			fn:        s.failTimedOutJobs,
			label:     "fail timed out jobs",
			count:     &metricsData.TimedOutCount,
			metricErr: &metricsData.TimedOutErr,
		},
		{
			fn:        s.deleteOldCompletedJobs,
			label:     "delete old completed jobs",
			count:     &metricsData.CompletedCount,
			metricErr: &metricsData.CompletedErr,
		},
		{
			fn:        s.deleteOldFailedJobs,
			label:     "delete old failed jobs",
			count:     &metricsData.FailedCount,
			metricErr: &metricsData.FailedErr,
		},
		{
			fn:        s.deleteOldCancelledJobs,
			label:     "delete old cancelled jobs",
			count:     &metricsData.CancelledCount,
			metricErr: &metricsData.CancelledErr,
		},
	}

	for _, step := range steps {
		outcome := s.executeCleanupStep(ctx, step.fn, step.label)
		*step.count = outcome.count
		*step.metricErr = outcome.metricErr
		if outcome.aggregateErr != nil {
			errs = append(errs, outcome.aggregateErr)
			allContextCanceled = allContextCanceled && outcome.canceled
		}
	}

	metricsData.Elapsed = time.Since(start)
	s.emitCleanupMetrics(metricsData)

	if len(errs) > 0 {
		joined := errors.Join(errs...)
		if allContextCanceled && isContextCancellation(joined) {
			return context.Canceled
		}
		return fmt.Errorf("cleanup failed: %w", joined)
	}

	return nil
}

type cleanupFunc func(context.Context) (int64, error)

type cleanupStep struct {
	fn        cleanupFunc
	label     string
	count     *int64
	metricErr *error
}

type cleanupStepOutcome struct {
	count        int64
	metricErr    error
	aggregateErr error
	canceled     bool
}

func (s *ReaperService) executeCleanupStep(
	ctx context.Context,
	fn cleanupFunc,
	label string,
) cleanupStepOutcome {
	count, err := fn(ctx)
	outcome := cleanupStepOutcome{
		count:     count,
		metricErr: suppressContextCancellation(err),
		canceled:  isContextCancellation(err),
	}
	if err != nil {
		outcome.aggregateErr = fmt.Errorf("%s: %w", label, err)
	}
	return outcome
}

// failTimedOutJobs marks in-flight jobs older than the configured max age as
// failed, settles the owners' sessions and tells them their job is gone.
// Loops until no more rows are affected to handle large datasets in batches.
func (s *ReaperService) failTimedOutJobs(ctx context.Context) (int64, error) {
	var totalCount int64
	for {
		jobs, err := s.repo.FailTimedOutJobs(ctx, s.config.InFlightMaxAge, s.config.BatchSize)
		if err != nil {
			return totalCount, err
		}
		totalCount += int64(len(jobs))
		for _, job := range jobs {
			s.settleOwner(ctx, job)
		}
		if len(jobs) == 0 {
			break
		}
		// Check context between batches
		if ctx.Err() != nil {
			return totalCount, ctx.Err()
		}
	}

	if totalCount > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "failed timed out jobs",
			"count", totalCount,
			"max_age", s.config.InFlightMaxAge,
		)
	}

	return totalCount, nil
}

// settleOwner clears the owner's session and notifies them after the reaper
// fails their orphaned job. Both steps are best-effort; the job record
// already carries the outcome.
func (s *ReaperService) settleOwner(ctx context.Context, job *model.Job) {
	if s.sessions != nil {
		now := s.clock.Now()
		if _, err := s.sessions.Update(ctx, job.UserID, now, func(cur model.Session) (model.Session, error) {
			return session.Apply(cur, session.Event{Kind: session.EventJobTerminal, JobID: job.ID}, now)
		}); err != nil && s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to settle session for reaped job",
				"job_id", job.ID, "user_id", job.UserID, "error", err)
		}
	}

	if s.delivery != nil {
		if err := s.delivery.NotifyFailed(ctx, job); err != nil && s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to notify owner of reaped job",
				"job_id", job.ID, "chat_id", job.ChatID, "error", err)
		}
	}
}

// deleteOldCompletedJobs deletes completed jobs older than the configured max age.
// Loops until no more rows are affected to handle large datasets in batches.
func (s *ReaperService) deleteOldCompletedJobs(ctx context.Context) (int64, error) {
	return s.deleteOldJobsByStatus(ctx, model.JobStatusCompleted, s.config.CompletedMaxAge)
}

// deleteOldFailedJobs deletes failed jobs older than the configured max age.
func (s *ReaperService) deleteOldFailedJobs(ctx context.Context) (int64, error) {
	return s.deleteOldJobsByStatus(ctx, model.JobStatusFailed, s.config.FailedMaxAge)
}

// deleteOldCancelledJobs deletes cancelled jobs older than the configured max age.
func (s *ReaperService) deleteOldCancelledJobs(ctx context.Context) (int64, error) {
	return s.deleteOldJobsByStatus(ctx, model.JobStatusCancelled, s.config.CancelledMaxAge)
}

func (s *ReaperService) deleteOldJobsByStatus(
	ctx context.Context,
	status model.JobStatus,
	maxAge time.Duration,
) (int64, error) {
	var totalCount int64
	for {
		count, err := s.repo.DeleteOldJobs(ctx, core.DeleteOldJobsParams{
			Status:    status,
			MaxAge:    maxAge,
			BatchSize: s.config.BatchSize,
		})
		if err != nil {
			return totalCount, err
		}
		totalCount += count
		if count == 0 {
			break
		}
		// Check context between batches
		if ctx.Err() != nil {
			return totalCount, ctx.Err()
		}
	}

	if totalCount > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "deleted old jobs",
			"status", status,
			"count", totalCount,
			"max_age", maxAge,
		)
	}

	return totalCount, nil
}

type cleanupMetrics struct {
	TimedOutCount  int64
	TimedOutErr    error
	CompletedCount int64
	CompletedErr   error
	FailedCount    int64
	FailedErr      error
	CancelledCount int64
	CancelledErr   error
	Elapsed        time.Duration
}

func (s *ReaperService) emitCleanupMetrics(m cleanupMetrics) {
	if s.metrics == nil {
		return
	}

	totalCount := m.TimedOutCount + m.CompletedCount + m.FailedCount + m.CancelledCount
	firstErr := firstError(m.TimedOutErr, m.CompletedErr, m.FailedErr, m.CancelledErr)

	result := metrics.ResultSuccess
	if firstErr != nil {
		result = metrics.ResultError
	} else if totalCount == 0 {
		result = metrics.ResultNoop
	}

	tags := map[string]string{
		"result": result,
	}

	if firstErr != nil {
		if class := obserrors.Classify(firstErr); class != "" {
			tags["error_class"] = class
		}
	}

	s.metrics.Count("reaper.cleanup", 1, tags)

	if m.Elapsed > 0 {
		s.metrics.Timing("reaper.cleanup_duration", m.Elapsed, metrics.CloneTags(tags))
	}

	s.emitCleanupOperationMetric("fail_timed_out", m.TimedOutCount, m.TimedOutErr)
	s.emitCleanupOperationMetric("delete_completed", m.CompletedCount, m.CompletedErr)
	s.emitCleanupOperationMetric("delete_failed", m.FailedCount, m.FailedErr)
	s.emitCleanupOperationMetric("delete_cancelled", m.CancelledCount, m.CancelledErr)

	if firstErr == nil {
		s.metrics.Gauge("reaper.last_success_epoch", float64(time.Now().Unix()), nil)
	}
}

func (s *ReaperService) emitCleanupOperationMetric(operation string, count int64, err error) {
	if s.metrics == nil {
		return
	}

	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	} else if count == 0 {
		result = metrics.ResultNoop
	}

	tags := map[string]string{
		"operation": operation,
		"result":    result,
	}

	if err != nil {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}

	s.metrics.Count("reaper.cleanup_operation", 1, tags)

	if err == nil && count > 0 {
		s.metrics.Count("reaper.jobs_processed", count, metrics.CloneTags(tags))
	}
}

func (s *ReaperService) logCleanupError(err error, label string) {
	if err == nil || s.logger == nil {
		return
	}

	if isContextCancellation(err) {
		s.logger.Debug(label+" cancelled by context", "error", err)
		return
	}

	s.logger.Error(label+" failed", "error", err)
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func suppressContextCancellation(err error) error {
	if isContextCancellation(err) {
		return nil
	}
	return err
}
