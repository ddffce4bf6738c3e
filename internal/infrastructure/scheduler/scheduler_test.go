package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	inventoryapp "github.com/erp/fulfillment/internal/application/inventory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeReconciler struct {
	mu       sync.Mutex
	calls    map[uuid.UUID]int
	failures int // first N calls fail
	report   inventoryapp.ReconcileReport
}

func newFakeReconciler() *fakeReconciler {
	return &fakeReconciler{calls: make(map[uuid.UUID]int)}
}

func (f *fakeReconciler) ReconcileAll(ctx context.Context, tenantID uuid.UUID) (*inventoryapp.ReconcileReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[tenantID]++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("database is gone")
	}
	report := f.report
	return &report, nil
}

func (f *fakeReconciler) callsFor(tenantID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[tenantID]
}

// collectJobs returns a callback recording finished jobs and a channel
// signalled after each one
func collectJobs() (func(*Job), func() []Job, chan struct{}) {
	var mu sync.Mutex
	var jobs []Job
	signal := make(chan struct{}, 64)
	record := func(j *Job) {
		mu.Lock()
		jobs = append(jobs, *j)
		mu.Unlock()
		signal <- struct{}{}
	}
	snapshot := func() []Job {
		mu.Lock()
		defer mu.Unlock()
		return append([]Job(nil), jobs...)
	}
	return record, snapshot, signal
}

func waitSignals(t *testing.T, signal chan struct{}, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-signal:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for job %d of %d", i+1, n)
		}
	}
}

func TestJob_Lifecycle(t *testing.T) {
	job := NewJob(uuid.New(), 1)
	assert.Equal(t, JobStatusPending, job.Status)

	job.Start()
	assert.Equal(t, JobStatusRunning, job.Status)
	assert.NotNil(t, job.StartedAt)

	job.Fail("boom")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.True(t, job.ShouldRetry())

	job.ScheduleRetry(time.Minute)
	assert.Equal(t, 1, job.RetryCount)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Empty(t, job.Error)
	require.NotNil(t, job.NextRetryAt)
	assert.True(t, job.NextRetryAt.After(time.Now()))

	job.Start()
	job.Fail("boom again")
	assert.False(t, job.ShouldRetry())

	job.Complete(&inventoryapp.ReconcileReport{Checked: 3})
	assert.Equal(t, JobStatusSuccess, job.Status)
	assert.Equal(t, 3, job.Report.Checked)
}

func TestScheduler_SubmitRequiresRunning(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig(), newFakeReconciler(), zaptest.NewLogger(t))

	err := s.ScheduleTenant(uuid.New())
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}

func TestScheduler_RunsJobs(t *testing.T) {
	reconciler := newFakeReconciler()
	reconciler.report = inventoryapp.ReconcileReport{Checked: 4, Inconsistent: 1}
	s := NewScheduler(DefaultSchedulerConfig(), reconciler, zaptest.NewLogger(t))
	record, snapshot, signal := collectJobs()
	s.OnJobDone(record)

	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	first, second := uuid.New(), uuid.New()
	require.NoError(t, s.ScheduleTenant(first))
	require.NoError(t, s.ScheduleTenant(second))
	waitSignals(t, signal, 2)

	assert.Equal(t, 1, reconciler.callsFor(first))
	assert.Equal(t, 1, reconciler.callsFor(second))
	for _, job := range snapshot() {
		assert.Equal(t, JobStatusSuccess, job.Status)
		require.NotNil(t, job.Report)
		assert.Equal(t, 1, job.Report.Inconsistent)
	}
}

func TestScheduler_RetriesFailedJobs(t *testing.T) {
	reconciler := newFakeReconciler()
	reconciler.failures = 1
	cfg := DefaultSchedulerConfig()
	cfg.MaxConcurrentJobs = 1
	cfg.RetryDelay = 10 * time.Millisecond
	s := NewScheduler(cfg, reconciler, zaptest.NewLogger(t))
	record, snapshot, signal := collectJobs()
	s.OnJobDone(record)

	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	tenantID := uuid.New()
	require.NoError(t, s.ScheduleTenant(tenantID))
	waitSignals(t, signal, 2)

	assert.Equal(t, 2, reconciler.callsFor(tenantID))
	jobs := snapshot()
	require.Len(t, jobs, 2)
	assert.Equal(t, JobStatusFailed, jobs[0].Status)
	assert.Equal(t, JobStatusSuccess, jobs[1].Status)
	assert.Equal(t, 1, jobs[1].RetryCount)
}

func TestScheduler_QueueFull(t *testing.T) {
	cfg := DefaultSchedulerConfig()
	cfg.QueueSize = 1
	s := NewScheduler(cfg, newFakeReconciler(), zaptest.NewLogger(t))
	// mark running without workers so nothing drains the queue
	s.isRunning = true

	require.NoError(t, s.ScheduleTenant(uuid.New()))
	assert.ErrorIs(t, s.ScheduleTenant(uuid.New()), ErrJobQueueFull)
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig(), newFakeReconciler(), zaptest.NewLogger(t))
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))

	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	assert.ErrorIs(t, s.ScheduleTenant(uuid.New()), ErrSchedulerNotRunning)
}

func TestCronTrigger_Sweep(t *testing.T) {
	reconciler := newFakeReconciler()
	s := NewScheduler(DefaultSchedulerConfig(), reconciler, zaptest.NewLogger(t))
	record, _, signal := collectJobs()
	s.OnJobDone(record)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	tenants := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	trigger := NewCronTrigger(CronTriggerConfig{Interval: time.Hour}, s,
		TenantProviderFunc(func(context.Context) ([]uuid.UUID, error) { return tenants, nil }),
		zaptest.NewLogger(t))

	assert.True(t, trigger.LastSweep().IsZero())
	assert.Equal(t, 3, trigger.Sweep(context.Background()))
	waitSignals(t, signal, 3)

	for _, id := range tenants {
		assert.Equal(t, 1, reconciler.callsFor(id))
	}
	assert.False(t, trigger.LastSweep().IsZero())
}

func TestCronTrigger_SweepProviderError(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig(), newFakeReconciler(), zaptest.NewLogger(t))
	trigger := NewCronTrigger(CronTriggerConfig{Interval: time.Hour}, s,
		TenantProviderFunc(func(context.Context) ([]uuid.UUID, error) { return nil, errors.New("down") }),
		zaptest.NewLogger(t))

	assert.Equal(t, 0, trigger.Sweep(context.Background()))
	assert.True(t, trigger.LastSweep().IsZero())
}

func TestCronTrigger_RunOnStart(t *testing.T) {
	reconciler := newFakeReconciler()
	s := NewScheduler(DefaultSchedulerConfig(), reconciler, zaptest.NewLogger(t))
	record, _, signal := collectJobs()
	s.OnJobDone(record)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	tenantID := uuid.New()
	trigger := NewCronTrigger(CronTriggerConfig{Interval: time.Hour, RunOnStart: true}, s,
		TenantProviderFunc(func(context.Context) ([]uuid.UUID, error) { return []uuid.UUID{tenantID}, nil }),
		zaptest.NewLogger(t))

	require.NoError(t, trigger.Start(context.Background()))
	waitSignals(t, signal, 1)
	require.NoError(t, trigger.Stop(context.Background()))

	assert.Equal(t, 1, reconciler.callsFor(tenantID))
}

func TestCronTrigger_RejectsZeroInterval(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig(), newFakeReconciler(), zaptest.NewLogger(t))
	trigger := NewCronTrigger(CronTriggerConfig{}, s, TenantProviderFunc(nil), zaptest.NewLogger(t))

	assert.ErrorIs(t, trigger.Start(context.Background()), ErrInvalidConfig)
}
