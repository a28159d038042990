package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	appinv "github.com/mfgorder/backend/internal/application/inventory"
	"github.com/mfgorder/backend/internal/domain/shared"
	"github.com/mfgorder/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingExecutor returns the queued errors for a project, one per call,
// then succeeds
type recordingExecutor struct {
	mu    sync.Mutex
	errs  map[uuid.UUID][]error
	calls map[uuid.UUID]int
	block chan struct{}
}

func newRecordingExecutor() *recordingExecutor {
	return &recordingExecutor{
		errs:  make(map[uuid.UUID][]error),
		calls: make(map[uuid.UUID]int),
	}
}

func (e *recordingExecutor) failWith(id uuid.UUID, errs ...error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs[id] = append(e.errs[id], errs...)
}

func (e *recordingExecutor) Execute(ctx context.Context, job *Job) error {
	if e.block != nil {
		select {
		case <-e.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls[job.ProjectID]++
	if queued := e.errs[job.ProjectID]; len(queued) > 0 {
		e.errs[job.ProjectID] = queued[1:]
		return queued[0]
	}
	return nil
}

func (e *recordingExecutor) callsFor(id uuid.UUID) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[id]
}

func testConfig() Config {
	return Config{
		Workers:    2,
		QueueSize:  10,
		JobTimeout: time.Second,
		Retries:    2,
		RetryDelay: 5 * time.Millisecond,
	}
}

func startScheduler(t *testing.T, cfg Config, exec JobExecutor) *Scheduler {
	t.Helper()
	s := NewScheduler(cfg, exec, zap.NewNop())
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s
}

func waitIdle(t *testing.T, s *Scheduler) {
	t.Helper()
	require.Eventually(t, func() bool { return s.Pending() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestJob_Retryable(t *testing.T) {
	tests := []struct {
		name    string
		attempt int
		err     error
		want    bool
	}{
		{"succeeded", 1, nil, false},
		{"infrastructure failure", 1, errors.New("connection reset"), true},
		{"last retry used", 3, errors.New("connection reset"), false},
		{"ledger rejection", 1, shared.ErrExportExceedsEntry, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewJob(uuid.New(), 2)
			job.Attempt = tt.attempt
			job.LastError = tt.err
			assert.Equal(t, tt.want, job.retryable())
		})
	}

	assert.Zero(t, NewJob(uuid.New(), -1).MaxRetries)
}

func TestConfigFrom(t *testing.T) {
	assert.Equal(t, DefaultConfig(), ConfigFrom(config.LedgerConfig{}))

	cfg := ConfigFrom(config.LedgerConfig{
		ReconcileWorkers:    4,
		ReconcileJobTimeout: 5 * time.Second,
		ReconcileRetries:    1,
		ReconcileRetryDelay: time.Second,
	})
	assert.Equal(t, Config{
		Workers:    4,
		QueueSize:  DefaultConfig().QueueSize,
		JobTimeout: 5 * time.Second,
		Retries:    1,
		RetryDelay: time.Second,
	}, cfg)
}

func TestScheduler_RunsJobs(t *testing.T) {
	exec := newRecordingExecutor()
	s := startScheduler(t, testConfig(), exec)

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		require.NoError(t, s.SubmitJob(NewJob(id, 0)))
	}
	waitIdle(t, s)

	for _, id := range ids {
		assert.Equal(t, 1, exec.callsFor(id))
	}
	assert.Equal(t, Stats{Succeeded: 3}, s.Stats())
}

func TestScheduler_RetryPolicy(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error
		calls     int
		wantStats Stats
	}{
		{
			name:      "transient failure is retried",
			errs:      []error{errors.New("connection reset")},
			calls:     2,
			wantStats: Stats{Succeeded: 1, Retried: 1},
		},
		{
			name:      "retries are bounded",
			errs:      []error{errors.New("down"), errors.New("down"), errors.New("down")},
			calls:     3,
			wantStats: Stats{Failed: 1, Retried: 2},
		},
		{
			name:      "ledger rejection is final",
			errs:      []error{shared.NewDomainErrorf(shared.CodeExportExceedsEntry, "export 12 exceeds entry 10")},
			calls:     1,
			wantStats: Stats{Failed: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := newRecordingExecutor()
			s := startScheduler(t, testConfig(), exec)

			id := uuid.New()
			exec.failWith(id, tt.errs...)
			require.NoError(t, s.SubmitJob(NewJob(id, testConfig().Retries)))
			waitIdle(t, s)

			assert.Equal(t, tt.calls, exec.callsFor(id))
			assert.Equal(t, tt.wantStats, s.Stats())
		})
	}
}

func TestScheduler_SubmitRejected(t *testing.T) {
	t.Run("not running", func(t *testing.T) {
		s := NewScheduler(testConfig(), newRecordingExecutor(), zap.NewNop())
		assert.ErrorIs(t, s.SubmitJob(NewJob(uuid.New(), 0)), ErrSchedulerNotRunning)
		assert.Zero(t, s.Pending())
	})

	t.Run("queue full", func(t *testing.T) {
		cfg := testConfig()
		cfg.Workers = 0
		cfg.QueueSize = 1
		s := startScheduler(t, cfg, newRecordingExecutor())

		require.NoError(t, s.SubmitJob(NewJob(uuid.New(), 0)))
		assert.ErrorIs(t, s.SubmitJob(NewJob(uuid.New(), 0)), ErrJobQueueFull)
		assert.Equal(t, int64(1), s.Pending())
	})

	t.Run("after stop", func(t *testing.T) {
		s := NewScheduler(testConfig(), newRecordingExecutor(), zap.NewNop())
		require.NoError(t, s.Start(context.Background()))
		require.NoError(t, s.Stop(context.Background()))
		require.NoError(t, s.Stop(context.Background()), "stop is idempotent")
		assert.ErrorIs(t, s.SubmitJob(NewJob(uuid.New(), 0)), ErrSchedulerNotRunning)
	})
}

func TestScheduler_StopDrainsQueue(t *testing.T) {
	exec := newRecordingExecutor()
	exec.block = make(chan struct{})
	cfg := testConfig()
	cfg.Workers = 1
	s := startScheduler(t, cfg, exec)

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		require.NoError(t, s.SubmitJob(NewJob(id, 0)))
	}

	stopped := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		stopped <- s.Stop(ctx)
	}()
	close(exec.block)

	require.NoError(t, <-stopped)
	for _, id := range ids {
		assert.Equal(t, 1, exec.callsFor(id), "queued job ran before stop returned")
	}
	assert.Equal(t, Stats{Succeeded: 4}, s.Stats())
	assert.Zero(t, s.Pending())
}

func TestScheduler_StopTimeoutAbandonsQueue(t *testing.T) {
	exec := newRecordingExecutor()
	exec.block = make(chan struct{})
	cfg := testConfig()
	cfg.Workers = 1
	s := startScheduler(t, cfg, exec)

	for range 3 {
		require.NoError(t, s.SubmitJob(NewJob(uuid.New(), 0)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Stop(ctx), context.DeadlineExceeded)

	waitIdle(t, s)
	assert.Equal(t, Stats{Failed: 3}, s.Stats())
}

type staticLister struct {
	ids []uuid.UUID
	err error
}

func (l staticLister) ListIDs(context.Context) ([]uuid.UUID, error) {
	return l.ids, l.err
}

func TestSweepTrigger_TriggerNow(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	t.Run("submits every project", func(t *testing.T) {
		exec := newRecordingExecutor()
		s := startScheduler(t, testConfig(), exec)
		trigger := NewSweepTrigger(time.Hour, 0, s, staticLister{ids: ids}, zap.NewNop())

		n, err := trigger.TriggerNow(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		waitIdle(t, s)
		for _, id := range ids {
			assert.Equal(t, 1, exec.callsFor(id))
		}
	})

	t.Run("skips while previous sweep is running", func(t *testing.T) {
		exec := newRecordingExecutor()
		exec.block = make(chan struct{})
		s := startScheduler(t, testConfig(), exec)
		trigger := NewSweepTrigger(time.Hour, 0, s, staticLister{ids: ids}, zap.NewNop())

		_, err := trigger.TriggerNow(context.Background())
		require.NoError(t, err)
		_, err = trigger.TriggerNow(context.Background())
		assert.ErrorIs(t, err, ErrSweepInProgress)

		close(exec.block)
		waitIdle(t, s)
		n, err := trigger.TriggerNow(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("partial sweep when the queue fills", func(t *testing.T) {
		cfg := testConfig()
		cfg.Workers = 0
		cfg.QueueSize = 2
		s := startScheduler(t, cfg, newRecordingExecutor())
		trigger := NewSweepTrigger(time.Hour, 0, s, staticLister{ids: ids}, zap.NewNop())

		n, err := trigger.TriggerNow(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("lister error", func(t *testing.T) {
		s := startScheduler(t, testConfig(), newRecordingExecutor())
		trigger := NewSweepTrigger(time.Hour, 0, s, staticLister{err: errors.New("db down")}, zap.NewNop())

		_, err := trigger.TriggerNow(context.Background())
		assert.EqualError(t, err, "db down")
	})
}

func TestSweepTrigger_Loop(t *testing.T) {
	exec := newRecordingExecutor()
	s := startScheduler(t, testConfig(), exec)
	id := uuid.New()
	trigger := NewSweepTrigger(10*time.Millisecond, 0, s, staticLister{ids: []uuid.UUID{id}}, zap.NewNop())

	require.NoError(t, trigger.Start(context.Background()))
	require.Eventually(t, func() bool { return exec.callsFor(id) >= 2 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, trigger.Stop(context.Background()))
}

type stubReconciler struct {
	got    uuid.UUID
	result *appinv.ReconciliationResponse
	err    error
}

func (r *stubReconciler) RecalculateExportQuantity(_ context.Context, id uuid.UUID) (*appinv.ReconciliationResponse, error) {
	r.got = id
	return r.result, r.err
}

func TestReconcileExecutor(t *testing.T) {
	id := uuid.New()

	stub := &stubReconciler{result: &appinv.ReconciliationResponse{ProjectID: id, OldExportQuantity: 4, NewExportQuantity: 6}}
	require.NoError(t, NewReconcileExecutor(stub, zap.NewNop()).Execute(context.Background(), NewJob(id, 0)))
	assert.Equal(t, id, stub.got)

	stub = &stubReconciler{err: shared.ErrExportExceedsEntry}
	err := NewReconcileExecutor(stub, zap.NewNop()).Execute(context.Background(), NewJob(id, 0))
	assert.ErrorIs(t, err, shared.ErrExportExceedsEntry)
}
