package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when a sweep is queued on a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrJobQueueFull is returned when more tenants are queued than the buffer holds
	ErrJobQueueFull = errors.New("job queue is full")

	// ErrInvalidConfig is returned for a trigger without a positive interval
	ErrInvalidConfig = errors.New("invalid scheduler configuration")
)
