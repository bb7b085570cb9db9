// Package schedule runs periodic scans on cron expressions.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mscrnt/pcie_speed/pkg/logger"
)

// Job is the work executed on every tick
type Job func(ctx context.Context) error

// parser accepts standard five field expressions and descriptors like @hourly
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Runner manages scheduled jobs
type Runner struct {
	cron   *cron.Cron
	jobs   map[string]cron.EntryID
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc

	// StopTimeout bounds how long Stop waits for running jobs
	StopTimeout time.Duration
}

// NewRunner creates a new schedule runner
func NewRunner() *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	cronLog := cron.PrintfLogger(logger.L())

	return &Runner{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		jobs:        make(map[string]cron.EntryID),
		ctx:         ctx,
		cancel:      cancel,
		StopTimeout: time.Minute,
	}
}

// Validate checks a cron expression
func Validate(expr string) error {
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// Next returns the first activation of expr after from
func Next(expr string, from time.Time) (time.Time, error) {
	sched, err := parser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return sched.Next(from), nil
}

// Add registers job under name. Names are unique.
func (r *Runner) Add(name, expr string, job Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}

	entryID, err := r.cron.AddFunc(expr, r.wrap(name, job))
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	r.jobs[name] = entryID
	logger.WithField("job", name).Infof("Registered job with cron expression: %s", expr)
	return nil
}

// Remove unregisters a job
func (r *Runner) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entryID, exists := r.jobs[name]; exists {
		r.cron.Remove(entryID)
		delete(r.jobs, name)
		logger.WithField("job", name).Info("Unregistered job")
	}
}

// NextRun returns the next activation of a registered job
func (r *Runner) NextRun(name string) (time.Time, bool) {
	r.mu.RLock()
	entryID, exists := r.jobs[name]
	r.mu.RUnlock()

	if !exists {
		return time.Time{}, false
	}
	return r.cron.Entry(entryID).Next, true
}

// RunNow executes a registered job immediately in the caller's goroutine
func (r *Runner) RunNow(name string) error {
	r.mu.RLock()
	entryID, exists := r.jobs[name]
	r.mu.RUnlock()

	if !exists {
		return fmt.Errorf("job %q not found", name)
	}
	r.cron.Entry(entryID).WrappedJob.Run()
	return nil
}

func (r *Runner) wrap(name string, job Job) func() {
	return func() {
		// Check context
		select {
		case <-r.ctx.Done():
			return
		default:
		}

		log := logger.WithField("job", name)
		start := time.Now()
		if err := job(r.ctx); err != nil {
			log.WithError(err).Error("Job failed")
			return
		}
		log.Debugf("Job completed in %s", time.Since(start))
	}
}

// Start starts the scheduler
func (r *Runner) Start() {
	r.cron.Start()
	r.mu.RLock()
	logger.Info("Scheduler started with %d jobs", len(r.jobs))
	r.mu.RUnlock()
}

// Stop stops the scheduler and waits for running jobs to complete
func (r *Runner) Stop() {
	r.cancel()
	ctx := r.cron.Stop()

	select {
	case <-ctx.Done():
		logger.Info("Scheduler stopped")
	case <-time.After(r.StopTimeout):
		logger.Warn("Timeout waiting for jobs to complete")
	}
}
