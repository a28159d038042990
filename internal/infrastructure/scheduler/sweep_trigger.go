package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProjectLister enumerates the projects a sweep covers
type ProjectLister interface {
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

// SweepTrigger submits one reconciliation job per project on a fixed interval
type SweepTrigger struct {
	interval   time.Duration
	maxRetries int
	scheduler  *Scheduler
	projects   ProjectLister
	logger     *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewSweepTrigger creates a trigger. maxRetries is copied into every job.
func NewSweepTrigger(
	interval time.Duration,
	maxRetries int,
	scheduler *Scheduler,
	projects ProjectLister,
	logger *zap.Logger,
) *SweepTrigger {
	return &SweepTrigger{
		interval:   interval,
		maxRetries: maxRetries,
		scheduler:  scheduler,
		projects:   projects,
		logger:     logger,
	}
}

// Start starts the trigger loop. The first sweep runs one interval after start.
func (t *SweepTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Reconciliation sweep started", zap.Duration("interval", t.interval))
	return nil
}

// Stop stops the trigger loop
func (t *SweepTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Reconciliation sweep stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *SweepTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := t.TriggerNow(ctx); err != nil {
				if errors.Is(err, ErrSweepInProgress) {
					t.logger.Info("Skipping sweep, previous one still running",
						zap.Int64("pending_jobs", t.scheduler.Pending()))
					continue
				}
				t.logger.Error("Reconciliation sweep failed", zap.Error(err))
			}
		}
	}
}

// TriggerNow submits a job for every project and returns how many were
// queued. When the queue fills up the remaining projects wait for the next
// sweep.
func (t *SweepTrigger) TriggerNow(ctx context.Context) (int, error) {
	if t.scheduler.Pending() > 0 {
		return 0, ErrSweepInProgress
	}

	ids, err := t.projects.ListIDs(ctx)
	if err != nil {
		return 0, err
	}

	submitted := 0
	for _, id := range ids {
		if err := t.scheduler.SubmitJob(NewJob(id, t.maxRetries)); err != nil {
			t.logger.Warn("Sweep stopped early",
				zap.Int("submitted", submitted),
				zap.Int("projects", len(ids)),
				zap.Error(err),
			)
			if submitted == 0 {
				return 0, err
			}
			break
		}
		submitted++
	}

	t.logger.Info("Reconciliation sweep submitted",
		zap.Int("submitted", submitted),
		zap.Int("projects", len(ids)),
	)
	return submitted, nil
}
