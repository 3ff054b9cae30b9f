package outreach

import (
	"context"
	"io"
	"time"
)

// JobStore is the process-wide registry mapping job IDs to statuses and
// results. Implementations must be safe for concurrent use; there is exactly
// one writer per job ID at a time (the executing worker).
type JobStore interface {
	Create(ctx context.Context, job Job) error
	MarkRunning(ctx context.Context, jobID string) error
	UpdateProgress(ctx context.Context, jobID string, percent int, message string) error
	Complete(ctx context.Context, jobID string, result JobResult) error
	Fail(ctx context.Context, jobID string, errText string) error
	Status(ctx context.Context, jobID string) (JobStatus, error)
	Result(ctx context.Context, jobID string) (JobResult, bool, error)
	// FailRunning reconciles a job orphaned by a dead worker so it does not
	// stay "running" forever.
	FailRunning(ctx context.Context, jobID string, reason string) error
	// Sweep evicts terminal entries older than the cutoff and reports how
	// many were removed.
	Sweep(ctx context.Context, olderThan time.Time) (int, error)
}

// Queue carries submitted jobs from the API to the worker pool in FIFO order.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Dequeue(ctx context.Context) (Job, error)
}

// Fetcher retrieves raw page content for a URL. Implementations apply a hard
// timeout and return an explicit error instead of propagating raw transport
// failures. Single attempt, no retries.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// TextGenerator invokes the external text-generation service with a system
// directive and a rendered prompt, returning the raw response text.
type TextGenerator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// SenderStore resolves sender profiles from the entity store.
type SenderStore interface {
	GetSenderProfile(ctx context.Context, id string) (SenderProfile, error)
}

// DraftStore archives completed drafts.
type DraftStore interface {
	SaveDraft(ctx context.Context, rec DraftRecord) error
}

// BlobStore persists raw page snapshots.
type BlobStore interface {
	PutObject(ctx context.Context, path, contentType string, data io.Reader) (string, error)
}

// Publisher sends completion notifications to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher produces content hashes for snapshot paths.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock abstracts time.Now for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator issues opaque unique job identifiers.
type IDGenerator interface {
	NewID() (string, error)
}
