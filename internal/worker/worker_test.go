package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tcavaliere/coldreach/internal/outreach"
	"github.com/tcavaliere/coldreach/internal/progress"
	memorypub "github.com/tcavaliere/coldreach/internal/publisher/memory"
	"github.com/tcavaliere/coldreach/internal/queue/memory"
	memorystore "github.com/tcavaliere/coldreach/internal/storage/memory"
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

type stubRunner struct {
	result outreach.JobResult
	panics bool
}

func (r *stubRunner) Run(context.Context, outreach.Job) outreach.JobResult {
	if r.panics {
		panic("runner exploded")
	}
	return r.result
}

type captureEmitter struct {
	mu     sync.Mutex
	events []progress.Event
}

func (e *captureEmitter) Emit(evt progress.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, evt)
}

func (e *captureEmitter) stages() []progress.Stage {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]progress.Stage, 0, len(e.events))
	for _, evt := range e.events {
		out = append(out, evt.Stage)
	}
	return out
}

func queuedJob(t *testing.T, jobs outreach.JobStore, q outreach.Queue, id string) outreach.Job {
	t.Helper()
	job := outreach.Job{
		ID: id,
		Request: outreach.JobRequest{
			SenderID:  "sender-1",
			TargetURL: "https://globex.com",
		},
		Sender:    outreach.SenderProfile{ID: "sender-1", Name: "Acme"},
		Submitted: time.Now().UTC(),
	}
	require.NoError(t, jobs.Create(context.Background(), job))
	require.NoError(t, q.Enqueue(context.Background(), job))
	return job
}

func TestWorkerProcessesJobToCompletion(t *testing.T) {
	t.Parallel()

	q := memory.NewQueue(4)
	jobs := memorystore.NewJobStore(systemClock{})
	drafts := memorystore.NewDraftStore()
	pub := memorypub.New()
	emitter := &captureEmitter{}

	draft := outreach.EmailDraft{Subject: "Hi", Body: "Hello."}
	runner := &stubRunner{result: outreach.JobResult{
		State:      outreach.StateCompleted,
		Draft:      &draft,
		TargetName: "Globex",
		TargetURL:  "https://globex.com",
	}}

	w := New(1, q, jobs, runner, drafts, pub, emitter, nil, systemClock{},
		Config{Topic: "drafts-done"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	queuedJob(t, jobs, q, "job-1")

	require.Eventually(t, func() bool {
		status, _ := jobs.Status(context.Background(), "job-1")
		return status.State == outreach.StateCompleted
	}, 2*time.Second, 10*time.Millisecond)

	result, ok, err := jobs.Result(context.Background(), "job-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Hi", result.Draft.Subject)

	require.Eventually(t, func() bool {
		return len(drafts.Drafts()) == 1 && len(pub.Messages()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	rec := drafts.Drafts()[0]
	require.Equal(t, "job-1", rec.JobID)
	require.Equal(t, "sender-1", rec.SenderID)
	require.Equal(t, "Globex", rec.TargetName)

	msg := pub.Messages()[0]
	require.Equal(t, "drafts-done", msg.Topic)
	note, isNote := msg.Payload.(Notification)
	require.True(t, isNote)
	require.Equal(t, "job-1", note.JobID)
	require.Equal(t, "completed", note.State)

	require.Eventually(t, func() bool {
		stages := emitter.stages()
		return len(stages) == 2 && stages[0] == progress.StageJobStart && stages[1] == progress.StageJobDone
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorkerSurvivesRunnerPanic(t *testing.T) {
	t.Parallel()

	q := memory.NewQueue(4)
	jobs := memorystore.NewJobStore(systemClock{})
	emitter := &captureEmitter{}

	w := New(1, q, jobs, &stubRunner{panics: true}, nil, nil, emitter, nil,
		systemClock{}, Config{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	queuedJob(t, jobs, q, "job-1")

	require.Eventually(t, func() bool {
		status, _ := jobs.Status(context.Background(), "job-1")
		return status.State == outreach.StateFailed
	}, 2*time.Second, 10*time.Millisecond)

	// the worker keeps consuming after a panic
	queuedJob(t, jobs, q, "job-2")
	require.Eventually(t, func() bool {
		status, _ := jobs.Status(context.Background(), "job-2")
		return status.State == outreach.StateFailed
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorkerFailedResultSkipsDraftArchive(t *testing.T) {
	t.Parallel()

	q := memory.NewQueue(4)
	jobs := memorystore.NewJobStore(systemClock{})
	drafts := memorystore.NewDraftStore()
	pub := memorypub.New()

	runner := &stubRunner{result: outreach.JobResult{
		State: outreach.StateFailed,
		Error: "exploded",
	}}

	w := New(1, q, jobs, runner, drafts, pub, nil, nil, systemClock{}, Config{Topic: "drafts-done"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	queuedJob(t, jobs, q, "job-1")

	require.Eventually(t, func() bool {
		return len(pub.Messages()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.Empty(t, drafts.Drafts())
	note := pub.Messages()[0].Payload.(Notification)
	require.Equal(t, "failed", note.State)
}
