// Package worker implements the generation pipeline execution loop.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tcavaliere/coldreach/internal/outreach"
	"github.com/tcavaliere/coldreach/internal/progress"
)

// Config controls Worker behavior.
type Config struct {
	// Topic names the completion-notification destination.
	Topic string
}

// JobRunner executes one job to a terminal result.
type JobRunner interface {
	Run(ctx context.Context, job outreach.Job) outreach.JobResult
}

// JobScoper is implemented by fetch decorators that tag artifacts with the
// active job ID.
type JobScoper interface {
	SetJob(jobID string)
}

// Notification is the payload published when a job reaches a terminal state.
type Notification struct {
	JobID      string `json:"job_id"`
	State      string `json:"state"`
	TargetURL  string `json:"target_url,omitempty"`
	TargetName string `json:"target_company_name,omitempty"`
	Subject    string `json:"subject,omitempty"`
}

// Worker consumes queued jobs and records their results. Draft archival,
// completion publishing, and progress emission happen after the terminal
// state is stored; their failures are logged, never propagated.
type Worker struct {
	id        int
	queue     outreach.Queue
	jobs      outreach.JobStore
	runner    JobRunner
	drafts    outreach.DraftStore
	publisher outreach.Publisher
	emitter   progress.Emitter
	scoper    JobScoper
	clock     outreach.Clock
	cfg       Config
	logger    *zap.Logger

	mu         sync.RWMutex
	heartbeat  time.Time
	currentJob string
}

// New constructs a Worker. Draft store, publisher, emitter, and scoper are
// optional; nil disables the corresponding side effect.
func New(
	id int,
	queue outreach.Queue,
	jobs outreach.JobStore,
	runner JobRunner,
	drafts outreach.DraftStore,
	publisher outreach.Publisher,
	emitter progress.Emitter,
	scoper JobScoper,
	clock outreach.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		id:        id,
		queue:     queue,
		jobs:      jobs,
		runner:    runner,
		drafts:    drafts,
		publisher: publisher,
		emitter:   emitter,
		scoper:    scoper,
		clock:     clock,
		cfg:       cfg,
		logger:    logger.With(zap.Int("worker", id)),
	}
}

// Run blocks, consuming queued jobs until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		w.beat("")
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.processJob(ctx, job)
	}
}

// Heartbeat reports the last time the worker made progress.
func (w *Worker) Heartbeat() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.heartbeat
}

// CurrentJob reports the job the worker is executing, empty when idle. The
// dispatcher uses it to reconcile orphans after a worker death.
func (w *Worker) CurrentJob() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.currentJob
}

func (w *Worker) beat(jobID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.heartbeat = w.clock.Now()
	w.currentJob = jobID
}

func (w *Worker) processJob(ctx context.Context, job outreach.Job) {
	w.beat(job.ID)
	defer w.beat("")

	if w.scoper != nil {
		w.scoper.SetJob(job.ID)
	}

	if err := w.jobs.MarkRunning(ctx, job.ID); err != nil {
		w.logger.Error("mark running failed",
			zap.String("job_id", job.ID),
			zap.Error(err))
		return
	}
	started := w.clock.Now()
	w.emit(progress.Event{
		JobID: job.ID,
		TS:    started,
		Stage: progress.StageJobStart,
	})
	w.logger.Info("job started",
		zap.String("job_id", job.ID),
		zap.String("target_url", job.Request.TargetURL))

	result := w.runSafely(ctx, job)

	if err := w.jobs.Complete(ctx, job.ID, result); err != nil {
		w.logger.Error("record terminal result failed",
			zap.String("job_id", job.ID),
			zap.Error(err))
	}

	w.afterTerminal(ctx, job, result, w.clock.Now().Sub(started))
}

// runSafely is the backstop around the runner: the orchestrator recovers its
// own panics, but a worker must survive even a broken runner.
func (w *Worker) runSafely(ctx context.Context, job outreach.Job) (result outreach.JobResult) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("job runner panicked",
				zap.String("job_id", job.ID),
				zap.Any("panic", r))
			result = outreach.JobResult{
				State:     outreach.StateFailed,
				TargetURL: job.Request.TargetURL,
				Error:     fmt.Sprintf("job runner panicked: %v", r),
			}
		}
	}()
	return w.runner.Run(ctx, job)
}

// afterTerminal performs the fire-and-forget side effects: draft archival,
// completion notification, and telemetry.
func (w *Worker) afterTerminal(ctx context.Context, job outreach.Job, result outreach.JobResult, dur time.Duration) {
	if result.State == outreach.StateCompleted && result.Draft != nil && w.drafts != nil {
		rec := outreach.DraftRecord{
			JobID:       job.ID,
			SenderID:    job.Request.SenderID,
			TargetName:  result.TargetName,
			TargetURL:   result.TargetURL,
			Subject:     result.Draft.Subject,
			Body:        result.Draft.Body,
			ContactInfo: result.ContactInfo,
			CreatedAt:   w.clock.Now(),
		}
		if err := w.drafts.SaveDraft(ctx, rec); err != nil {
			w.logger.Error("draft archive failed",
				zap.String("job_id", job.ID),
				zap.Error(err))
		}
	}

	if w.publisher != nil {
		note := Notification{
			JobID:      job.ID,
			State:      string(result.State),
			TargetURL:  result.TargetURL,
			TargetName: result.TargetName,
		}
		if result.Draft != nil {
			note.Subject = result.Draft.Subject
		}
		if _, err := w.publisher.Publish(ctx, w.cfg.Topic, note); err != nil {
			w.logger.Error("completion publish failed",
				zap.String("job_id", job.ID),
				zap.Error(err))
		}
	}

	stage := progress.StageJobDone
	note := ""
	if result.State == outreach.StateFailed {
		stage = progress.StageJobError
		note = result.Error
	}
	w.emit(progress.Event{
		JobID: job.ID,
		TS:    w.clock.Now(),
		Stage: stage,
		Dur:   dur,
		Note:  note,
	})
	w.logger.Info("job finished",
		zap.String("job_id", job.ID),
		zap.String("state", string(result.State)),
		zap.Duration("dur", dur))
}

func (w *Worker) emit(evt progress.Event) {
	if w.emitter == nil {
		return
	}
	w.emitter.Emit(evt)
}
