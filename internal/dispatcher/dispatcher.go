// Package dispatcher manages worker fan-out over the job queue and owns the
// background maintenance loops.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tcavaliere/coldreach/internal/outreach"
)

// restartDelay throttles worker restarts after a crash.
const restartDelay = time.Second

// Worker is the supervised unit: a blocking Run loop plus enough state to
// reconcile an orphaned job if the loop dies.
type Worker interface {
	Run(ctx context.Context)
	CurrentJob() string
}

// Config controls dispatcher maintenance behavior.
type Config struct {
	// SweepInterval is how often terminal job entries are evicted.
	SweepInterval time.Duration
	// RetentionTTL is how long terminal entries stay pollable.
	RetentionTTL time.Duration
}

// Dispatcher fans out queue work to a pool of workers, restarts workers
// that die, and periodically evicts expired job entries.
type Dispatcher struct {
	queue   outreach.Queue
	jobs    outreach.JobStore
	workers []Worker
	clock   outreach.Clock
	cfg     Config
	logger  *zap.Logger
}

// New creates a Dispatcher.
func New(queue outreach.Queue, jobs outreach.JobStore, workers []Worker, clock outreach.Clock, cfg Config, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		queue:   queue,
		jobs:    jobs,
		workers: workers,
		clock:   clock,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run starts all workers and maintenance loops and blocks until the context
// finishes and everything has stopped.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i, w := range d.workers {
		wg.Add(1)
		go func(id int, wk Worker) {
			defer wg.Done()
			d.supervise(ctx, id, wk)
		}(i, w)
	}
	if d.cfg.SweepInterval > 0 && d.cfg.RetentionTTL > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.sweepLoop(ctx)
		}()
	}
	<-ctx.Done()
	wg.Wait()
}

// Enqueue proxies to the underlying queue.
func (d *Dispatcher) Enqueue(ctx context.Context, job outreach.Job) error {
	if err := d.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("queue enqueue: %w", err)
	}
	return nil
}

// supervise keeps one worker alive: when its Run loop dies, the in-flight
// job is failed so it does not stay running forever, then the worker is
// restarted after a short delay.
func (d *Dispatcher) supervise(ctx context.Context, id int, w Worker) {
	for ctx.Err() == nil {
		crashed := d.runWorker(ctx, id, w)
		if ctx.Err() != nil {
			return
		}
		if !crashed {
			d.logger.Warn("worker loop returned early, restarting", zap.Int("worker", id))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(restartDelay):
		}
	}
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, w Worker) (crashed bool) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		crashed = true
		reason := fmt.Sprintf("worker %d died: %v", id, r)
		d.logger.Error("worker panicked", zap.Int("worker", id), zap.Any("panic", r))
		if orphan := w.CurrentJob(); orphan != "" {
			if err := d.jobs.FailRunning(ctx, orphan, reason); err != nil {
				d.logger.Error("orphan reconciliation failed",
					zap.String("job_id", orphan),
					zap.Error(err))
			}
		}
	}()
	w.Run(ctx)
	return false
}

func (d *Dispatcher) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := d.clock.Now().Add(-d.cfg.RetentionTTL)
			removed, err := d.jobs.Sweep(ctx, cutoff)
			if err != nil {
				d.logger.Error("retention sweep failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				d.logger.Info("retention sweep evicted jobs", zap.Int("removed", removed))
			}
		}
	}
}
