package jobs

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"hdrconv/internal/conversion"
	"hdrconv/internal/logging"
)

var (
	// ErrNotFound is returned for unknown job ids.
	ErrNotFound = errors.New("job not found")
	// ErrBusy is returned by Start when the active-job limit is reached.
	ErrBusy = errors.New("a conversion is already running")
)

// Runner performs a single conversion. *conversion.Converter satisfies it.
type Runner interface {
	Convert(ctx context.Context, req conversion.Request) conversion.Outcome
	Cancel()
}

// RunnerFactory builds a dedicated Runner for one job, wired to progress.
type RunnerFactory func(progress conversion.ProgressFunc) Runner

// maxRetained caps finished jobs kept in memory. History holds the durable
// record, so older finished jobs are evicted oldest first.
const maxRetained = 500

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxActive limits how many jobs may convert at once. Default: 1.
func WithMaxActive(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxActive = n
		}
	}
}

// Store is a thread-safe in-memory registry of conversion jobs keyed by id.
type Store struct {
	newRunner   RunnerFactory
	logger      *slog.Logger
	maxActive   int
	maxRetained int
	now         func() time.Time

	mu       sync.RWMutex
	jobs     map[string]*entry
	order    []string
	active   int
	onFinish []func(Job)
}

type entry struct {
	job    Job
	runner Runner
	cancel context.CancelFunc
	done   chan struct{}
}

// NewStore constructs an empty store.
func NewStore(factory RunnerFactory, opts ...Option) *Store {
	s := &Store{
		newRunner:   factory,
		logger:      logging.NewNop(),
		maxActive:   1,
		maxRetained: maxRetained,
		now:         time.Now,
		jobs:        make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnFinish registers fn to run on the job's goroutine after it reaches a
// terminal status.
func (s *Store) OnFinish(fn func(Job)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.onFinish = append(s.onFinish, fn)
	s.mu.Unlock()
}

// Start registers a job for req and runs it on its own goroutine. The job
// outlives ctx's cancellation but keeps its values for logging.
func (s *Store) Start(ctx context.Context, req conversion.Request) (Job, error) {
	if strings.TrimSpace(req.InputPath) == "" {
		return Job{}, errors.New("input path required")
	}
	now := s.now()
	e := &entry{
		job: Job{
			ID:        uuid.NewString(),
			InputPath: req.InputPath,
			Status:    StatusPending,
			Message:   "Queued",
			CreatedAt: now,
			UpdatedAt: now,
		},
		done: make(chan struct{}),
	}

	s.mu.Lock()
	if s.active >= s.maxActive {
		s.mu.Unlock()
		return Job{}, ErrBusy
	}
	s.active++
	s.jobs[e.job.ID] = e
	s.order = append(s.order, e.job.ID)
	e.runner = s.newRunner(func(percent float64, message string) {
		s.update(e.job.ID, func(job *Job) {
			job.Status = StatusConverting
			job.Percent = percent
			job.Message = message
		})
	})
	jobCtx, cancel := context.WithCancel(logging.WithJobID(context.WithoutCancel(ctx), e.job.ID))
	e.cancel = cancel
	snapshot := e.job
	s.mu.Unlock()

	go s.run(jobCtx, e, req)
	return snapshot, nil
}

func (s *Store) run(ctx context.Context, e *entry, req conversion.Request) {
	logger := logging.WithContext(ctx, s.logger)
	logger.Info("job started", logging.String("input", req.InputPath))

	outcome := e.runner.Convert(ctx, req)
	e.cancel()

	s.mu.Lock()
	job := &e.job
	job.Status = statusFor(outcome)
	job.OutputPath = outcome.OutputPath
	job.SourceSeconds = outcome.SourceSeconds
	job.Elapsed = outcome.Elapsed
	job.UpdatedAt = s.now()
	switch job.Status {
	case StatusDone:
		job.Percent = 100
		job.Message = "Complete!"
	case StatusCancelled:
		job.Message = "Cancelled"
	default:
		job.Percent = 0
		job.Message = outcome.Detail
		job.ErrorKind = outcome.Kind
		job.Error = outcome.Detail
		job.ExitCode = outcome.ExitCode
	}
	snapshot := *job
	s.active--
	s.evictLocked()
	hooks := slices.Clone(s.onFinish)
	s.mu.Unlock()

	logger.Info("job finished",
		logging.String("status", string(snapshot.Status)),
		logging.String("output", snapshot.OutputPath),
	)
	for _, hook := range hooks {
		hook(snapshot)
	}
	close(e.done)
}

// evictLocked drops the oldest finished jobs beyond maxRetained. Running
// jobs are never evicted.
func (s *Store) evictLocked() {
	finished := 0
	for _, id := range s.order {
		if s.jobs[id].job.Status.IsTerminal() {
			finished++
		}
	}
	if finished <= s.maxRetained {
		return
	}
	excess := finished - s.maxRetained
	kept := s.order[:0]
	for _, id := range s.order {
		if excess > 0 && s.jobs[id].job.Status.IsTerminal() {
			delete(s.jobs, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}

func (s *Store) update(id string, fn func(*Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[id]
	if !ok || e.job.Status.IsTerminal() {
		return
	}
	fn(&e.job)
	e.job.UpdatedAt = s.now()
}

// Get returns a snapshot of the job with id.
func (s *Store) Get(id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return e.job, nil
}

// List returns all jobs, newest first.
func (s *Store) List() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Job, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.jobs[s.order[i]].job)
	}
	return out
}

// Active returns the number of jobs still converting.
func (s *Store) Active() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Busy reports whether Start would currently return ErrBusy. It is advisory;
// Start remains the authoritative check.
func (s *Store) Busy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active >= s.maxActive
}

// Cancel asks the job's runner to stop. A job that has not reached the
// encoder yet observes the cancellation through its context. Cancelling a
// finished job is a no-op.
func (s *Store) Cancel(id string) (Job, error) {
	s.mu.RLock()
	e, ok := s.jobs[id]
	var snapshot Job
	if ok {
		snapshot = e.job
	}
	s.mu.RUnlock()
	if !ok {
		return Job{}, ErrNotFound
	}
	if !snapshot.Status.IsTerminal() {
		e.cancel()
		e.runner.Cancel()
	}
	return snapshot, nil
}

// CancelAll asks every running job to stop.
func (s *Store) CancelAll() {
	s.mu.RLock()
	running := make([]*entry, 0, s.active)
	for _, e := range s.jobs {
		if !e.job.Status.IsTerminal() {
			running = append(running, e)
		}
	}
	s.mu.RUnlock()
	for _, e := range running {
		e.cancel()
		e.runner.Cancel()
	}
}

// Wait blocks until the job finishes and its OnFinish hooks have run, or ctx is done.
func (s *Store) Wait(ctx context.Context, id string) (Job, error) {
	s.mu.RLock()
	e, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return Job{}, ErrNotFound
	}
	select {
	case <-e.done:
		s.mu.RLock()
		defer s.mu.RUnlock()
		return e.job, nil
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// WaitAll blocks until every started job has finished and run its OnFinish
// hooks, or ctx is done.
func (s *Store) WaitAll(ctx context.Context) error {
	s.mu.RLock()
	pending := make([]chan struct{}, 0, s.active)
	for _, e := range s.jobs {
		select {
		case <-e.done:
		default:
			pending = append(pending, e.done)
		}
	}
	s.mu.RUnlock()
	for _, done := range pending {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
