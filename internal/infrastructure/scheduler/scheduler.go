// Package scheduler runs background export-quantity reconciliation: a
// trigger enumerates projects on an interval and a worker pool recalculates
// each of them, retrying transient failures.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mfgorder/backend/internal/domain/shared"
	"github.com/mfgorder/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

var (
	ErrSchedulerNotRunning = errors.New("reconciliation scheduler is not running")
	ErrJobQueueFull        = errors.New("reconciliation queue is full")
	// ErrSweepInProgress rejects a sweep while jobs of the previous one are
	// still queued, running or waiting to retry
	ErrSweepInProgress = errors.New("reconciliation sweep already in progress")
)

// Job is one recalculation of one project
type Job struct {
	ProjectID  uuid.UUID
	MaxRetries int
	// Attempt counts executions so far, the first run is attempt 1
	Attempt   int
	LastError error
}

// NewJob creates a job for a project
func NewJob(projectID uuid.UUID, maxRetries int) *Job {
	return &Job{ProjectID: projectID, MaxRetries: max(maxRetries, 0)}
}

// retryable reports whether the failed job may run again. Ledger rejections
// such as an export above the entry quantity fail the same way every time.
func (j *Job) retryable() bool {
	return j.LastError != nil &&
		shared.ErrorCode(j.LastError) == shared.CodeInternal &&
		j.Attempt <= j.MaxRetries
}

// JobExecutor executes reconciliation jobs
type JobExecutor interface {
	Execute(ctx context.Context, job *Job) error
}

// Config sizes the worker pool
type Config struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
	Retries    int
	RetryDelay time.Duration
}

// DefaultConfig is used for every setting the ledger config leaves at zero
func DefaultConfig() Config {
	return Config{
		Workers:    2,
		QueueSize:  1000,
		JobTimeout: time.Minute,
		Retries:    3,
		RetryDelay: 30 * time.Second,
	}
}

// ConfigFrom reads the reconcile_* ledger settings
func ConfigFrom(cfg config.LedgerConfig) Config {
	c := DefaultConfig()
	if cfg.ReconcileWorkers > 0 {
		c.Workers = cfg.ReconcileWorkers
	}
	if cfg.ReconcileJobTimeout > 0 {
		c.JobTimeout = cfg.ReconcileJobTimeout
	}
	if cfg.ReconcileRetries > 0 {
		c.Retries = cfg.ReconcileRetries
	}
	if cfg.ReconcileRetryDelay > 0 {
		c.RetryDelay = cfg.ReconcileRetryDelay
	}
	return c
}

// Stats counts finished jobs
type Stats struct {
	Succeeded int64
	Failed    int64
	Retried   int64
}

// Scheduler runs reconciliation jobs on a fixed pool of workers
type Scheduler struct {
	cfg      Config
	executor JobExecutor
	log      *zap.Logger

	queue   chan *Job
	mu      sync.Mutex
	running bool
	stop    context.CancelFunc
	workers sync.WaitGroup

	// in flight counts submitted jobs that have not reached a final state
	inFlight  atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	retried   atomic.Int64
}

// NewScheduler creates a stopped scheduler
func NewScheduler(cfg Config, executor JobExecutor, log *zap.Logger) *Scheduler {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	return &Scheduler{
		cfg:      cfg,
		executor: executor,
		log:      log.Named("reconcile"),
		queue:    make(chan *Job, cfg.QueueSize),
	}
}

// Start launches the workers. Starting a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.running = true

	ctx, s.stop = context.WithCancel(ctx)
	s.workers.Add(s.cfg.Workers)
	for id := range s.cfg.Workers {
		go s.work(ctx, id)
	}
	s.log.Info("Reconciliation workers started",
		zap.Int("workers", s.cfg.Workers),
		zap.Duration("job_timeout", s.cfg.JobTimeout),
	)
	return nil
}

// Stop closes the queue and lets the workers drain the jobs already queued.
// If ctx ends first, running jobs are cancelled and the rest of the queue
// is settled as failed without running.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.queue)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.stop()
		s.log.Info("Reconciliation workers stopped")
		return nil
	case <-ctx.Done():
		s.stop()
		s.log.Warn("Reconciliation workers did not drain in time",
			zap.Int64("pending", s.inFlight.Load()))
		return ctx.Err()
	}
}

// SubmitJob queues a job without blocking
func (s *Scheduler) SubmitJob(job *Job) error {
	s.inFlight.Add(1)
	if err := s.enqueue(job); err != nil {
		s.inFlight.Add(-1)
		return err
	}
	return nil
}

func (s *Scheduler) enqueue(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrSchedulerNotRunning
	}
	select {
	case s.queue <- job:
		return nil
	default:
		return ErrJobQueueFull
	}
}

// Pending returns the number of submitted jobs that have not finished
func (s *Scheduler) Pending() int64 {
	return s.inFlight.Load()
}

func (s *Scheduler) Stats() Stats {
	return Stats{
		Succeeded: s.succeeded.Load(),
		Failed:    s.failed.Load(),
		Retried:   s.retried.Load(),
	}
}

func (s *Scheduler) work(ctx context.Context, id int) {
	defer s.workers.Done()
	for job := range s.queue {
		if ctx.Err() != nil {
			s.settle(&s.failed)
			continue
		}
		s.run(ctx, job, s.log.With(zap.Int("worker", id), zap.Stringer("project_id", job.ProjectID)))
	}
}

func (s *Scheduler) run(ctx context.Context, job *Job, log *zap.Logger) {
	job.Attempt++
	jobCtx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	job.LastError = s.executor.Execute(jobCtx, job)
	cancel()

	switch {
	case job.LastError == nil:
		s.settle(&s.succeeded)
		log.Debug("Project reconciled", zap.Int("attempt", job.Attempt))

	case job.retryable() && ctx.Err() == nil:
		s.retried.Add(1)
		log.Info("Reconciliation failed, retrying",
			zap.Int("attempt", job.Attempt),
			zap.Duration("delay", s.cfg.RetryDelay),
			zap.Error(job.LastError),
		)
		time.AfterFunc(s.cfg.RetryDelay, func() {
			if err := s.enqueue(job); err != nil {
				s.settle(&s.failed)
				log.Warn("Dropped reconciliation retry", zap.Error(err))
			}
		})

	default:
		s.settle(&s.failed)
		log.Warn("Reconciliation failed",
			zap.Int("attempt", job.Attempt),
			zap.String("error_code", shared.ErrorCode(job.LastError)),
			zap.Error(job.LastError),
		)
	}
}

func (s *Scheduler) settle(counter *atomic.Int64) {
	counter.Add(1)
	s.inFlight.Add(-1)
}
