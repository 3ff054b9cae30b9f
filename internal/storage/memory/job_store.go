// Package memory provides in-process implementations of the job registry
// and the sender/draft stores for development and testing.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tcavaliere/coldreach/internal/outreach"
)

type jobEntry struct {
	status   outreach.JobStatus
	result   *outreach.JobResult
	doneAt   time.Time
	terminal bool
}

// JobStore is the in-process job registry. Statuses and results live here
// until the retention sweep evicts terminal entries; IDs that were never
// issued or have been evicted resolve to the unknown state.
type JobStore struct {
	clock outreach.Clock

	mu   sync.RWMutex
	jobs map[string]*jobEntry
}

// NewJobStore constructs a JobStore.
func NewJobStore(clock outreach.Clock) *JobStore {
	return &JobStore{
		clock: clock,
		jobs:  make(map[string]*jobEntry),
	}
}

// Create registers a job in queued state.
func (s *JobStore) Create(_ context.Context, job outreach.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	s.jobs[job.ID] = &jobEntry{
		status: outreach.JobStatus{
			State:    outreach.StateQueued,
			Progress: 0,
			Message:  "Task queued",
		},
	}
	return nil
}

// MarkRunning transitions a queued job to running.
func (s *JobStore) MarkRunning(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("job %s: %w", jobID, outreach.ErrNotFound)
	}
	if entry.terminal {
		return fmt.Errorf("job %s is already terminal", jobID)
	}
	entry.status.State = outreach.StateRunning
	entry.status.Message = "Task started"
	return nil
}

// UpdateProgress records a stage transition. Progress is clamped to [0,100]
// and never moves backwards.
func (s *JobStore) UpdateProgress(_ context.Context, jobID string, percent int, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("job %s: %w", jobID, outreach.ErrNotFound)
	}
	if entry.terminal {
		return fmt.Errorf("job %s is already terminal", jobID)
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if percent > entry.status.Progress {
		entry.status.Progress = percent
	}
	entry.status.Message = message
	return nil
}

// Complete records the terminal result exactly once. The result's own state
// decides whether the job finished completed or failed.
func (s *JobStore) Complete(_ context.Context, jobID string, result outreach.JobResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("job %s: %w", jobID, outreach.ErrNotFound)
	}
	if entry.terminal {
		return fmt.Errorf("job %s already has a result", jobID)
	}

	switch result.State {
	case outreach.StateCompleted:
		entry.status = outreach.JobStatus{
			State:    outreach.StateCompleted,
			Progress: 100,
			Message:  "Email generation completed",
		}
	case outreach.StateFailed:
		entry.status.State = outreach.StateFailed
		entry.status.Progress = 100
		entry.status.Message = result.Error
	default:
		return fmt.Errorf("job %s: result state %q is not terminal", jobID, result.State)
	}

	res := result
	entry.result = &res
	entry.terminal = true
	entry.doneAt = s.clock.Now()
	return nil
}

// Fail records a failed terminal state when no richer result exists.
func (s *JobStore) Fail(ctx context.Context, jobID string, errText string) error {
	return s.Complete(ctx, jobID, outreach.JobResult{
		State: outreach.StateFailed,
		Error: errText,
	})
}

// FailRunning fails a job only if it is currently running. Used to reconcile
// jobs orphaned by a dead worker; a no-op for jobs in any other state.
func (s *JobStore) FailRunning(_ context.Context, jobID string, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.jobs[jobID]
	if !ok || entry.terminal || entry.status.State != outreach.StateRunning {
		return nil
	}
	entry.status.State = outreach.StateFailed
	entry.status.Progress = 100
	entry.status.Message = reason
	entry.result = &outreach.JobResult{
		State: outreach.StateFailed,
		Error: reason,
	}
	entry.terminal = true
	entry.doneAt = s.clock.Now()
	return nil
}

// Status returns the current status snapshot. Unissued or evicted IDs
// resolve to the unknown sentinel, never an error.
func (s *JobStore) Status(_ context.Context, jobID string) (outreach.JobStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.jobs[jobID]
	if !ok {
		return outreach.JobStatus{
			State:   outreach.StateUnknown,
			Message: "Task not found",
		}, nil
	}
	return entry.status, nil
}

// Result returns the terminal result if one has been recorded.
func (s *JobStore) Result(_ context.Context, jobID string) (outreach.JobResult, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.jobs[jobID]
	if !ok || entry.result == nil {
		return outreach.JobResult{}, false, nil
	}
	return *entry.result, true, nil
}

// Sweep evicts terminal entries whose completion time is before the cutoff.
func (s *JobStore) Sweep(_ context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, entry := range s.jobs {
		if entry.terminal && entry.doneAt.Before(olderThan) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of tracked jobs. Test helper.
func (s *JobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

var _ outreach.JobStore = (*JobStore)(nil)
