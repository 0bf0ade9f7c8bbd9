package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/openclip/videobot/internal/core"
	"github.com/openclip/videobot/internal/domain/model"
	apperrors "github.com/openclip/videobot/internal/errors"
)

// fakeJobRepo is an in-memory JobRepository honouring the same transition
// guards as the SQL implementation: monotonic status order, terminal wins,
// applied=false when another writer moved the job first.
type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.Job
	seq  int
	now  func() time.Time
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{
		jobs: make(map[string]*model.Job),
		now:  time.Now,
	}
}

func (r *fakeJobRepo) Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, job := range r.jobs {
		if job.UserID == req.UserID && job.InFlight() {
			return nil, apperrors.Conflict("user already has a job in flight")
		}
	}

	r.seq++
	now := r.now()
	job := &model.Job{
		ID:        fmt.Sprintf("job-%d", r.seq),
		UserID:    req.UserID,
		ChatID:    req.ChatID,
		Photos:    append([]string(nil), req.Photos...),
		Prompt:    req.Prompt,
		Status:    model.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.jobs[job.ID] = job
	return copyJob(job), nil
}

func (r *fakeJobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, apperrors.NotFound("job not found")
	}
	return copyJob(job), nil
}

func (r *fakeJobRepo) transition(id string, next model.JobStatus, mutate func(*model.Job)) (*model.Job, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, false, apperrors.NotFound("job not found")
	}
	if !job.Status.CanTransitionTo(next) {
		return copyJob(job), false, nil
	}
	job.Status = next
	job.UpdatedAt = r.now()
	if mutate != nil {
		mutate(job)
	}
	return copyJob(job), true, nil
}

func (r *fakeJobRepo) MarkSubmitted(ctx context.Context, id, providerJobID string) (*model.Job, bool, error) {
	return r.transition(id, model.JobStatusSubmitted, func(j *model.Job) {
		j.ProviderJobID = &providerJobID
	})
}

func (r *fakeJobRepo) MarkGenerating(ctx context.Context, id string) (*model.Job, bool, error) {
	return r.transition(id, model.JobStatusGenerating, nil)
}

func (r *fakeJobRepo) Complete(ctx context.Context, id, resultRef string) (*model.Job, bool, error) {
	return r.transition(id, model.JobStatusCompleted, func(j *model.Job) {
		j.ResultRef = &resultRef
		completed := r.now()
		j.CompletedAt = &completed
	})
}

func (r *fakeJobRepo) Fail(ctx context.Context, id, detail string) (*model.Job, bool, error) {
	return r.transition(id, model.JobStatusFailed, func(j *model.Job) {
		j.ErrorDetail = &detail
		completed := r.now()
		j.CompletedAt = &completed
	})
}

func (r *fakeJobRepo) Cancel(ctx context.Context, id string) (*model.Job, bool, error) {
	return r.transition(id, model.JobStatusCancelled, func(j *model.Job) {
		completed := r.now()
		j.CompletedAt = &completed
	})
}

func (r *fakeJobRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Job
	for _, job := range r.jobs {
		if job.UserID == userID {
			out = append(out, copyJob(job))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeJobRepo) ActiveForUser(ctx context.Context, userID int64) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, job := range r.jobs {
		if job.UserID == userID && job.InFlight() {
			return copyJob(job), nil
		}
	}
	return nil, apperrors.NotFound("no job in flight")
}

func (r *fakeJobRepo) ListResumable(ctx context.Context) ([]*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Job
	for _, job := range r.jobs {
		if !job.Status.Terminal() {
			out = append(out, copyJob(job))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeJobRepo) Stats(ctx context.Context) (*model.JobStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &model.JobStats{}
	for _, job := range r.jobs {
		switch job.Status {
		case model.JobStatusPending:
			stats.Pending++
		case model.JobStatusSubmitted:
			stats.Submitted++
		case model.JobStatusGenerating:
			stats.Generating++
		case model.JobStatusCompleted:
			stats.Completed++
		case model.JobStatusFailed:
			stats.Failed++
		case model.JobStatusCancelled:
			stats.Cancelled++
		}
	}
	return stats, nil
}

// seed inserts a job directly, bypassing the create guards.
func (r *fakeJobRepo) seed(job *model.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = copyJob(job)
}

func copyJob(job *model.Job) *model.Job {
	cp := *job
	cp.Photos = append([]string(nil), job.Photos...)
	return &cp
}

// memSessionStore is an in-memory SessionStore.
type memSessionStore struct {
	mu       sync.Mutex
	sessions map[int64]model.Session
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[int64]model.Session)}
}

func (s *memSessionStore) Get(ctx context.Context, userID int64) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return model.Session{}, apperrors.NotFound("session not found")
	}
	return sess, nil
}

func (s *memSessionStore) Save(ctx context.Context, sess model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.UserID] = sess
	return nil
}

func (s *memSessionStore) Delete(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

func (s *memSessionStore) Update(
	ctx context.Context,
	userID int64,
	now time.Time,
	fn func(model.Session) (model.Session, error),
) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.sessions[userID]
	if !ok {
		cur = model.NewSession(userID, now)
	}
	next, err := fn(cur)
	if err != nil {
		return model.Session{}, err
	}
	s.sessions[userID] = next
	return next, nil
}

// fakeGateway scripts provider behaviour per call.
type fakeGateway struct {
	mu          sync.Mutex
	submitErrs  []error
	submitCalls int
	pollResults []core.PollResult
	pollErrs    []error
	pollCalls   int
}

func (g *fakeGateway) Submit(ctx context.Context, req core.SubmitRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.submitCalls++
	if len(g.submitErrs) > 0 {
		err := g.submitErrs[0]
		g.submitErrs = g.submitErrs[1:]
		if err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("prov-%d", g.submitCalls), nil
}

func (g *fakeGateway) Poll(ctx context.Context, providerJobID string) (core.PollResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pollCalls++
	if len(g.pollErrs) > 0 {
		err := g.pollErrs[0]
		g.pollErrs = g.pollErrs[1:]
		if err != nil {
			return core.PollResult{}, err
		}
	}
	if len(g.pollResults) == 0 {
		return core.PollResult{State: core.ProviderStateQueued}, nil
	}
	result := g.pollResults[0]
	if len(g.pollResults) > 1 {
		g.pollResults = g.pollResults[1:]
	}
	return result, nil
}

func (g *fakeGateway) submitCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.submitCalls
}

func (g *fakeGateway) pollCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pollCalls
}

// fakeDelivery records terminal outcome deliveries.
type fakeDelivery struct {
	mu        sync.Mutex
	completed []*model.Job
	failed    []*model.Job
	cancelled []*model.Job
	errs      []error
}

func (d *fakeDelivery) nextErr() error {
	if len(d.errs) == 0 {
		return nil
	}
	err := d.errs[0]
	d.errs = d.errs[1:]
	return err
}

func (d *fakeDelivery) NotifyCompleted(ctx context.Context, job *model.Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.nextErr(); err != nil {
		return err
	}
	d.completed = append(d.completed, job)
	return nil
}

func (d *fakeDelivery) NotifyFailed(ctx context.Context, job *model.Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.nextErr(); err != nil {
		return err
	}
	d.failed = append(d.failed, job)
	return nil
}

func (d *fakeDelivery) NotifyCancelled(ctx context.Context, job *model.Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.nextErr(); err != nil {
		return err
	}
	d.cancelled = append(d.cancelled, job)
	return nil
}

func (d *fakeDelivery) counts() (completed, failed, cancelled int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.completed), len(d.failed), len(d.cancelled)
}
