package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Expirer moves access records past their end date to EXPIRED
type Expirer interface {
	ExpireAccesses(ctx context.Context) (int, error)
}

// ExpirySweeper runs the passive expiry check on a cron schedule
type ExpirySweeper struct {
	expirer  Expirer
	schedule string
	timeout  time.Duration

	cron     *cron.Cron
	runMutex sync.Mutex
	running  bool
}

// NewExpirySweeper creates a sweeper. schedule accepts six-field cron
// expressions and descriptors such as "@every 15m".
func NewExpirySweeper(expirer Expirer, schedule string) *ExpirySweeper {
	return &ExpirySweeper{
		expirer:  expirer,
		schedule: schedule,
		timeout:  2 * time.Minute,
		cron:     cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
	}
}

// Start schedules the sweep
func (e *ExpirySweeper) Start() error {
	e.runMutex.Lock()
	defer e.runMutex.Unlock()

	if e.running {
		return nil
	}

	if _, err := e.cron.AddFunc(e.schedule, e.RunOnce); err != nil {
		return fmt.Errorf("invalid expiry schedule %q: %w", e.schedule, err)
	}
	e.cron.Start()
	e.running = true

	slog.Info("[Access] Expiry sweeper started", "schedule", e.schedule)
	return nil
}

// Stop waits for a running sweep to finish
func (e *ExpirySweeper) Stop() {
	e.runMutex.Lock()
	defer e.runMutex.Unlock()

	if !e.running {
		return
	}

	cronCtx := e.cron.Stop()
	<-cronCtx.Done()
	e.running = false
	slog.Info("[Access] Expiry sweeper stopped")
}

// RunOnce performs a single sweep
func (e *ExpirySweeper) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	start := time.Now()
	expired, err := e.expirer.ExpireAccesses(ctx)
	if err != nil {
		slog.Error("[Access] Expiry sweep finished with errors", "expired", expired, "error", err)
		return
	}
	if expired > 0 {
		slog.Info("[Access] Expiry sweep completed", "expired", expired, "duration", time.Since(start))
	}
}
