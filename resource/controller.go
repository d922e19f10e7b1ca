package resource

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config bounds how much concurrency and I/O bandwidth the Index Runner's
// chunked drain (see index.WithResourceController) and any archival pass
// built on top of a rate-limited writer are allowed to consume.
type Config struct {
	// MaxBackgroundWorkers caps concurrent drain chunks in flight. If 0,
	// defaults to 1 (chunks drain one at a time).
	MaxBackgroundWorkers int64

	// IOLimitBytesPerSec caps the throughput AcquireIO will admit. If 0,
	// unlimited.
	IOLimitBytesPerSec int64
}

// Controller is the shared budget a Runner's drain chunks and a
// RateLimitedWriter/RateLimitedReader pull from. A nil *Controller is a
// valid no-op controller: every method tolerates it and behaves as if
// unbounded, so passing one in is opt-in everywhere it's accepted.
type Controller struct {
	bgSem     *semaphore.Weighted
	ioLimiter *rate.Limiter
}

// NewController builds a Controller from cfg.
func NewController(cfg Config) *Controller {
	if cfg.MaxBackgroundWorkers <= 0 {
		cfg.MaxBackgroundWorkers = 1
	}

	c := &Controller{
		bgSem: semaphore.NewWeighted(cfg.MaxBackgroundWorkers),
	}
	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}
	return c
}

// AcquireBackground reserves one of the background-worker slots, blocking
// until one is free or ctx is done.
func (c *Controller) AcquireBackground(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.bgSem.Acquire(ctx, 1)
}

// ReleaseBackground returns a slot reserved by AcquireBackground.
func (c *Controller) ReleaseBackground() {
	if c == nil {
		return
	}
	c.bgSem.Release(1)
}

// AcquireIO blocks until the configured IO rate limit admits bytes more
// I/O. With no limit configured, it returns immediately. If admitting bytes
// would take longer than ctx's deadline allows, it returns at once with an
// error wrapping context.DeadlineExceeded.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	err := c.ioLimiter.WaitN(ctx, bytes)
	if err != nil && ctx.Err() == nil && bytes <= c.ioLimiter.Burst() {
		if _, ok := ctx.Deadline(); ok {
			// rate reports a wait that would outlast the deadline with an
			// error of its own that does not wrap the context error.
			return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
	}
	return err
}
