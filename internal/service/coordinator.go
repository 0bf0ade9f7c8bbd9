package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/openclip/videobot/config"
	"github.com/openclip/videobot/internal/core"
	"github.com/openclip/videobot/internal/data"
	"github.com/openclip/videobot/internal/domain/model"
	"github.com/openclip/videobot/internal/domain/session"
	apperrors "github.com/openclip/videobot/internal/errors"
	"github.com/openclip/videobot/internal/observability/metrics"
	"github.com/openclip/videobot/internal/observability/notify"
	"github.com/openclip/videobot/internal/observability/statsd"
)

const (
	// deliveryAttempts bounds retries when pushing a terminal outcome to
	// the user. Delivery failures never re-trigger generation.
	deliveryAttempts = 3
	deliveryBackoff  = 500 * time.Millisecond
)

// failureNotifier is the optional operator alerting dependency.
type failureNotifier interface {
	NotifyJobFailure(ctx context.Context, payload notify.JobFailurePayload)
}

// CoordinatorDeps groups the collaborators of the coordinator.
type CoordinatorDeps struct {
	Repo     core.JobRepository    // Required: durable job store
	Sessions core.SessionStore     // Required: per-user session store
	Gateway  core.ProviderGateway  // Required: generation provider
	Delivery core.DeliveryNotifier // Required: terminal outcome delivery
	Failures failureNotifier       // Optional: operator failure alerting
	Clock    data.TimeProvider     // Optional: time source
	Provider string                // Optional: provider tag for metrics
}

// CoordinatorServiceOptions groups dependencies for CoordinatorService.
type CoordinatorServiceOptions struct {
	Deps    CoordinatorDeps          // Required: collaborators
	Config  config.CoordinatorConfig // Required: retry/poll/timeout knobs
	Logger  *slog.Logger             // Optional: structured logger
	Metrics statsd.Sink              // Optional: metrics sink (StatsD-compatible)
}

// CoordinatorService is the orchestration core of the generation lifecycle.
//
// It creates jobs, submits them to the provider with bounded retries, polls
// each in-flight job on its own goroutine, and applies terminal outcomes
// exactly once: the guarded store transitions report whether this caller won
// the transition, and side effects (session reset, delivery, alerting) only
// run for the winner.
//
// Operations are serialized per user and fully concurrent across users.
type CoordinatorService struct {
	repo     core.JobRepository
	sessions core.SessionStore
	gateway  core.ProviderGateway
	delivery core.DeliveryNotifier
	failures failureNotifier
	provider string
	config   config.CoordinatorConfig
	logger   *slog.Logger
	metrics  statsd.Sink
	clock    data.TimeProvider

	mu       sync.Mutex
	locks    map[int64]*sync.Mutex
	pollers  map[string]context.CancelFunc
	baseCtx  context.Context
	pollerWG sync.WaitGroup
}

// NewCoordinatorService constructs a new CoordinatorService.
func NewCoordinatorService(opts CoordinatorServiceOptions) (*CoordinatorService, error) {
	deps := opts.Deps
	if deps.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}
	if deps.Sessions == nil {
		return nil, errors.New("SessionStore is required")
	}
	if deps.Gateway == nil {
		return nil, errors.New("ProviderGateway is required")
	}
	if deps.Delivery == nil {
		return nil, errors.New("DeliveryNotifier is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = &data.RealTimeProvider{}
	}
	provider := deps.Provider
	if provider == "" {
		provider = "provider"
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "coordinator_service")
		logger.Debug("CoordinatorService initialized",
			"submit_attempts", opts.Config.SubmitAttempts,
			"poll_interval", opts.Config.PollInterval,
			"generation_timeout", opts.Config.GenerationTimeout,
		)
	}

	return &CoordinatorService{
		repo:     deps.Repo,
		sessions: deps.Sessions,
		gateway:  deps.Gateway,
		delivery: deps.Delivery,
		failures: deps.Failures,
		provider: provider,
		config:   opts.Config,
		logger:   logger,
		metrics:  opts.Metrics,
		clock:    clock,
		locks:    make(map[int64]*sync.Mutex),
		pollers:  make(map[string]context.CancelFunc),
	}, nil
}

// Run resumes in-flight jobs and then blocks until the context is cancelled.
// Pollers started by Launch are parented to this context so shutdown stops
// them; the jobs stay in flight in the store and resume on the next start.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *CoordinatorService) Run(ctx context.Context) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting coordinator service")
	}

	if err := s.Resume(ctx); err != nil {
		if isContextCancellation(err) {
			return nil
		}
		return fmt.Errorf("resume in-flight jobs: %w", err)
	}

	<-ctx.Done()
	// Pollers started by Launch before Run stored this context are parented
	// to the background context; cancel them explicitly.
	s.stopAllPollers()
	s.pollerWG.Wait()

	if s.logger != nil {
		s.logger.Info("coordinator service stopped", "reason", ctx.Err())
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

// Launch creates a job for the user's staged photos and prompt, binds it to
// the session, and starts submission and polling in the background.
//
// A user with a job already in flight gets a conflict error; the partial
// unique index in the store backs this up under concurrency.
func (s *CoordinatorService) Launch(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	lock := s.userLock(req.UserID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := s.repo.ActiveForUser(ctx, req.UserID); err == nil {
		return nil, apperrors.Conflict("a generation is already running for this user")
	} else if !apperrors.IsNotFound(err) {
		return nil, fmt.Errorf("check active job: %w", err)
	}

	job, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	if err := s.bindSessionToJob(ctx, job); err != nil {
		// Roll the job back so the user is not stuck with an orphan the
		// session never references.
		if _, _, cancelErr := s.repo.Cancel(ctx, job.ID); cancelErr != nil && s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to cancel orphaned job",
				"job_id", job.ID, "error", cancelErr)
		}
		return nil, err
	}

	s.startPoller(job, func(pollCtx context.Context) {
		s.runJob(pollCtx, job)
	})

	if s.logger != nil {
		s.logger.InfoContext(ctx, "job launched",
			"job_id", job.ID,
			"user_id", job.UserID,
			"photos", len(job.Photos),
		)
	}
	return job, nil
}

// Cancel stops the user's active generation. It halts the polling task first
// so no further provider calls happen, then applies a guarded cancel: if a
// terminal outcome was committed in the meantime, that outcome wins and the
// job is returned unchanged.
func (s *CoordinatorService) Cancel(ctx context.Context, userID int64) (*model.Job, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	job, err := s.repo.ActiveForUser(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NotFound("no generation is currently running")
		}
		return nil, fmt.Errorf("find active job: %w", err)
	}

	s.stopPoller(job.ID)

	updated, applied, err := s.repo.Cancel(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("cancel job: %w", err)
	}
	if applied {
		s.finalize(ctx, updated, metrics.TransitionCancel, nil)
	}
	return updated, nil
}

// Resume picks up jobs left in flight by a previous process. Jobs still
// pending were interrupted before the provider accepted them; re-submitting
// could double-charge the provider, so they are failed with a clear reason.
// Submitted and generating jobs resume polling against their provider task.
func (s *CoordinatorService) Resume(ctx context.Context) error {
	jobs, err := s.repo.ListResumable(ctx)
	if err != nil {
		return fmt.Errorf("list resumable jobs: %w", err)
	}

	for _, job := range jobs {
		switch job.Status {
		case model.JobStatusPending:
			updated, applied, err := s.repo.Fail(ctx, job.ID, "interrupted before submission")
			if err != nil {
				return fmt.Errorf("fail interrupted job %s: %w", job.ID, err)
			}
			if applied {
				s.finalize(ctx, updated, metrics.TransitionFail,
					apperrors.Internal("interrupted before submission"))
			}

		case model.JobStatusSubmitted, model.JobStatusGenerating:
			if job.ProviderJobID == nil || *job.ProviderJobID == "" {
				updated, applied, err := s.repo.Fail(ctx, job.ID, "provider task reference lost")
				if err != nil {
					return fmt.Errorf("fail job %s without provider task: %w", job.ID, err)
				}
				if applied {
					s.finalize(ctx, updated, metrics.TransitionFail,
						apperrors.Internal("provider task reference lost"))
				}
				continue
			}
			resumed := job
			s.startPoller(resumed, func(pollCtx context.Context) {
				s.pollUntilTerminal(pollCtx, resumed, *resumed.ProviderJobID)
			})
			if s.logger != nil {
				s.logger.InfoContext(ctx, "resumed in-flight job",
					"job_id", job.ID, "status", job.Status)
			}
		}
	}
	return nil
}

// runJob drives one job from submission to a terminal outcome.
func (s *CoordinatorService) runJob(ctx context.Context, job *model.Job) {
	providerJobID, err := s.submitWithRetry(ctx, job)
	if err != nil {
		if isContextCancellation(err) {
			// Shutdown or user cancel mid-submission. The job stays
			// pending; restart resume or the cancel path settles it.
			return
		}
		updated, applied, failErr := s.repo.Fail(ctx, job.ID, err.Error())
		if failErr != nil {
			s.logTransitionError(ctx, job.ID, "fail after submission error", failErr)
			return
		}
		if applied {
			s.finalize(ctx, updated, metrics.TransitionFail, err)
		}
		return
	}

	updated, applied, err := s.repo.MarkSubmitted(ctx, job.ID, providerJobID)
	if err != nil {
		s.logTransitionError(ctx, job.ID, "mark submitted", err)
		return
	}
	if !applied {
		// Cancelled while we were submitting. The provider task is left
		// to finish on its own; nothing references it anymore.
		return
	}
	s.emitJobMetric(metrics.TransitionSubmit, metrics.ResultSuccess, 0, nil)

	s.pollUntilTerminal(ctx, updated, providerJobID)
}

// submitWithRetry submits to the provider, retrying only transient
// provider-unavailable errors with doubling backoff.
func (s *CoordinatorService) submitWithRetry(ctx context.Context, job *model.Job) (string, error) {
	req := core.SubmitRequest{Photos: job.Photos, Prompt: job.Prompt}

	var lastErr error
	for attempt := range s.config.SubmitAttempts {
		providerJobID, err := s.gateway.Submit(ctx, req)
		if err == nil {
			return providerJobID, nil
		}
		lastErr = err

		if !apperrors.IsProviderUnavailable(err) {
			s.emitJobMetric(metrics.TransitionSubmit, metrics.ResultError, 0, err)
			return "", err
		}
		s.emitJobMetric(metrics.TransitionSubmit, metrics.ResultError, 0, err)

		if attempt == s.config.SubmitAttempts-1 {
			break
		}

		delay := s.config.SubmitBackoffBase << attempt
		if s.logger != nil {
			s.logger.WarnContext(ctx, "provider unavailable, retrying submission",
				"job_id", job.ID,
				"attempt", attempt+1,
				"delay", delay,
				"error", err,
			)
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	return "", apperrors.ProviderUnavailable(
		fmt.Sprintf("provider unavailable after %d attempts", s.config.SubmitAttempts),
		lastErr,
	)
}

// pollUntilTerminal polls the provider task until it settles or the
// generation timeout elapses. The timeout is anchored to job creation so a
// restart cannot extend a job's wall-clock budget.
func (s *CoordinatorService) pollUntilTerminal(ctx context.Context, job *model.Job, providerJobID string) {
	deadline := job.CreatedAt.Add(s.config.GenerationTimeout)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if s.clock.Now().After(deadline) {
			s.failWithTimeout(ctx, job)
			return
		}

		result, err := s.gateway.Poll(ctx, providerJobID)
		if err != nil {
			if isContextCancellation(err) {
				return
			}
			if apperrors.IsProviderUnavailable(err) {
				s.emitJobMetric(metrics.TransitionPoll, metrics.ResultError, 0, err)
				continue
			}
			updated, applied, failErr := s.repo.Fail(ctx, job.ID, err.Error())
			if failErr != nil {
				s.logTransitionError(ctx, job.ID, "fail after poll error", failErr)
				return
			}
			if applied {
				s.finalize(ctx, updated, metrics.TransitionFail, err)
			}
			return
		}

		if done := s.applyPollResult(ctx, job, result); done {
			return
		}
	}
}

// applyPollResult maps one provider observation onto the job record.
// It reports whether polling should stop.
func (s *CoordinatorService) applyPollResult(ctx context.Context, job *model.Job, result core.PollResult) bool {
	switch result.State {
	case core.ProviderStateQueued:
		return false

	case core.ProviderStateRunning:
		updated, applied, err := s.repo.MarkGenerating(ctx, job.ID)
		if err != nil {
			s.logTransitionError(ctx, job.ID, "mark generating", err)
			return false
		}
		// Not applied means either we already recorded generating on an
		// earlier tick, or another writer moved the job to a terminal
		// status. Stop only for the latter.
		return !applied && updated.Status.Terminal()

	case core.ProviderStateSucceeded:
		updated, applied, err := s.repo.Complete(ctx, job.ID, result.ResultRef)
		if err != nil {
			s.logTransitionError(ctx, job.ID, "complete", err)
			return true
		}
		if applied {
			s.finalize(ctx, updated, metrics.TransitionComplete, nil)
		}
		return true

	case core.ProviderStateFailed:
		reason := result.FailureReason
		if reason == "" {
			reason = "provider reported generation failure"
		}
		updated, applied, err := s.repo.Fail(ctx, job.ID, reason)
		if err != nil {
			s.logTransitionError(ctx, job.ID, "fail", err)
			return true
		}
		if applied {
			s.finalize(ctx, updated, metrics.TransitionFail, apperrors.ProviderRejected(reason, nil))
		}
		return true

	case core.ProviderStateCancelled:
		updated, applied, err := s.repo.Cancel(ctx, job.ID)
		if err != nil {
			s.logTransitionError(ctx, job.ID, "cancel", err)
			return true
		}
		if applied {
			s.finalize(ctx, updated, metrics.TransitionCancel, nil)
		}
		return true

	default:
		if s.logger != nil {
			s.logger.WarnContext(ctx, "unknown provider state",
				"job_id", job.ID, "state", result.State)
		}
		return false
	}
}

func (s *CoordinatorService) failWithTimeout(ctx context.Context, job *model.Job) {
	err := apperrors.Timeout("generation timed out")
	updated, applied, failErr := s.repo.Fail(ctx, job.ID, err.Error())
	if failErr != nil {
		s.logTransitionError(ctx, job.ID, "fail on timeout", failErr)
		return
	}
	if applied {
		s.finalize(ctx, updated, metrics.TransitionTimeout, err)
	}
}

// finalize runs the exactly-once terminal side effects. Callers must only
// invoke it when their guarded transition reported applied=true.
func (s *CoordinatorService) finalize(ctx context.Context, job *model.Job, transition string, cause error) {
	// The terminal transition is already committed. On poller-driven paths
	// ctx is the poller's own context, which stopPoller cancels below, so
	// settlement and delivery run detached from that cancellation.
	ctx = context.WithoutCancel(ctx)
	s.stopPoller(job.ID)

	now := s.clock.Now()
	if _, err := s.sessions.Update(ctx, job.UserID, now, func(cur model.Session) (model.Session, error) {
		return session.Apply(cur, session.Event{Kind: session.EventJobTerminal, JobID: job.ID}, now)
	}); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to settle session after terminal job",
			"job_id", job.ID, "user_id", job.UserID, "error", err)
	}

	s.deliverOutcome(ctx, job)

	if job.Status == model.JobStatusFailed {
		s.alertFailure(ctx, job, cause)
	}

	result := metrics.ResultSuccess
	if job.Status != model.JobStatusCompleted {
		result = metrics.ResultError
	}
	s.emitJobMetric(transition, result, now.Sub(job.CreatedAt), cause)

	if s.logger != nil {
		s.logger.InfoContext(ctx, "job finalized",
			"job_id", job.ID,
			"user_id", job.UserID,
			"status", job.Status,
			"elapsed", now.Sub(job.CreatedAt),
		)
	}
}

// deliverOutcome pushes the terminal outcome to the user with bounded
// retries. Exhausted retries are logged; generation is never re-triggered.
func (s *CoordinatorService) deliverOutcome(ctx context.Context, job *model.Job) {
	var send func(context.Context, *model.Job) error
	switch job.Status {
	case model.JobStatusCompleted:
		send = s.delivery.NotifyCompleted
	case model.JobStatusFailed:
		send = s.delivery.NotifyFailed
	case model.JobStatusCancelled:
		send = s.delivery.NotifyCancelled
	default:
		return
	}

	var lastErr error
	for attempt := range deliveryAttempts {
		lastErr = send(ctx, job)
		if lastErr == nil {
			return
		}
		if isContextCancellation(lastErr) {
			break
		}
		if attempt < deliveryAttempts-1 {
			timer := time.NewTimer(time.Duration(attempt+1) * deliveryBackoff)
			select {
			case <-ctx.Done():
				if !timer.Stop() {
					<-timer.C
				}
				return
			case <-timer.C:
			}
		}
	}

	if s.logger != nil {
		s.logger.ErrorContext(ctx, "delivery failed after retries",
			"job_id", job.ID,
			"chat_id", job.ChatID,
			"attempts", deliveryAttempts,
			"error", lastErr,
		)
	}
}

func (s *CoordinatorService) alertFailure(ctx context.Context, job *model.Job, cause error) {
	if s.failures == nil {
		return
	}

	detail := ""
	if job.ErrorDetail != nil {
		detail = *job.ErrorDetail
	}
	payload := notify.JobFailurePayload{
		JobID:      job.ID,
		UserID:     job.UserID,
		ChatID:     job.ChatID,
		Provider:   s.provider,
		Error:      detail,
		OccurredAt: s.clock.Now(),
	}
	if cause != nil {
		payload.ErrorClass = string(apperrors.GetCode(cause))
	}
	s.failures.NotifyJobFailure(ctx, payload)
}

func (s *CoordinatorService) emitJobMetric(transition, result string, duration time.Duration, err error) {
	if s.metrics == nil {
		return
	}
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		Provider:   s.provider,
		Transition: transition,
		Result:     result,
		Duration:   duration,
		Err:        err,
	})
}

func (s *CoordinatorService) logTransitionError(ctx context.Context, jobID, op string, err error) {
	if s.logger == nil || isContextCancellation(err) {
		return
	}
	s.logger.ErrorContext(ctx, "job transition failed", "job_id", jobID, "op", op, "error", err)
}

func (s *CoordinatorService) bindSessionToJob(ctx context.Context, job *model.Job) error {
	now := s.clock.Now()
	if _, err := s.sessions.Update(ctx, job.UserID, now, func(cur model.Session) (model.Session, error) {
		return session.Apply(cur, session.Event{Kind: session.EventJobStarted, JobID: job.ID}, now)
	}); err != nil {
		return fmt.Errorf("bind session to job: %w", err)
	}
	return nil
}

// userLock returns the per-user serialization lock, creating it on first use.
func (s *CoordinatorService) userLock(userID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

// startPoller runs fn on its own goroutine with a cancel func registered
// under the job ID so an explicit cancel can stop provider calls. At most one
// poller runs per job: a second call for the same ID is a no-op, so Resume
// cannot double-poll a job Launch is already driving.
func (s *CoordinatorService) startPoller(job *model.Job, fn func(ctx context.Context)) {
	s.mu.Lock()
	if _, exists := s.pollers[job.ID]; exists {
		s.mu.Unlock()
		return
	}
	base := s.baseCtx
	if base == nil {
		base = context.Background()
	}
	pollCtx, cancel := context.WithCancel(base)
	s.pollers[job.ID] = cancel
	s.mu.Unlock()

	s.pollerWG.Add(1)
	go func() {
		defer s.pollerWG.Done()
		defer s.stopPoller(job.ID)
		fn(pollCtx)
	}()
}

func (s *CoordinatorService) stopPoller(jobID string) {
	s.mu.Lock()
	cancel, ok := s.pollers[jobID]
	if ok {
		delete(s.pollers, jobID)
	}
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

func (s *CoordinatorService) stopAllPollers() {
	s.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(s.pollers))
	for id, cancel := range s.pollers {
		cancels = append(cancels, cancel)
		delete(s.pollers, id)
	}
	s.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}
