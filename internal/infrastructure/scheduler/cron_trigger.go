package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TenantProvider lists the tenants a sweep covers
type TenantProvider interface {
	TenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// TenantProviderFunc adapts a function to TenantProvider
type TenantProviderFunc func(ctx context.Context) ([]uuid.UUID, error)

// TenantIDs calls f
func (f TenantProviderFunc) TenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	return f(ctx)
}

// CronTriggerConfig holds configuration for the sweep trigger
type CronTriggerConfig struct {
	// Interval between two sweeps
	Interval time.Duration
	// RunOnStart sweeps once as soon as the trigger starts
	RunOnStart bool
}

// CronTrigger submits one job per tenant every interval
type CronTrigger struct {
	config         CronTriggerConfig
	scheduler      *Scheduler
	tenantProvider TenantProvider
	logger         *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	lastSweep time.Time
}

// NewCronTrigger creates a new sweep trigger
func NewCronTrigger(
	config CronTriggerConfig,
	scheduler *Scheduler,
	tenantProvider TenantProvider,
	logger *zap.Logger,
) *CronTrigger {
	return &CronTrigger{
		config:         config,
		scheduler:      scheduler,
		tenantProvider: tenantProvider,
		logger:         logger,
	}
}

// Start starts the trigger loop
func (c *CronTrigger) Start(ctx context.Context) error {
	if c.config.Interval <= 0 {
		return ErrInvalidConfig
	}

	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Reconciliation trigger started",
		zap.Duration("interval", c.config.Interval),
		zap.Bool("run_on_start", c.config.RunOnStart),
	)
	return nil
}

// Stop stops the trigger loop
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Reconciliation trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *CronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	if c.config.RunOnStart {
		c.Sweep(ctx)
	}

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep(ctx)
		}
	}
}

// Sweep queues a reconciliation job for every tenant and returns how many
// were queued
func (c *CronTrigger) Sweep(ctx context.Context) int {
	tenantIDs, err := c.tenantProvider.TenantIDs(ctx)
	if err != nil {
		c.logger.Error("Failed to list tenants for reconciliation", zap.Error(err))
		return 0
	}

	queued := 0
	for _, tenantID := range tenantIDs {
		if err := c.scheduler.ScheduleTenant(tenantID); err != nil {
			c.logger.Error("Failed to schedule reconciliation",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
			continue
		}
		queued++
	}

	c.mu.Lock()
	c.lastSweep = time.Now()
	c.mu.Unlock()

	c.logger.Info("Reconciliation sweep scheduled",
		zap.Int("tenant_count", len(tenantIDs)),
		zap.Int("queued", queued),
	)
	return queued
}

// LastSweep returns when the last sweep was scheduled
func (c *CronTrigger) LastSweep() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSweep
}
