package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/pneo/internal/debuglog"
)

// JobKind names a class of background work.
type JobKind string

// JobStatus is the terminal state of a job.
type JobStatus string

const (
	JobSearch   JobKind = "search"
	JobDownload JobKind = "download"
)

const (
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// JobSnapshot describes a finished job.
type JobSnapshot struct {
	ID          string
	Kind        JobKind
	Status      JobStatus
	StartedAt   time.Time
	CompletedAt time.Time
	Err         string
	Duration    time.Duration
}

// JobDone is delivered to the session loop when a job returns. Payload is
// the job's own completion message and must be applied by the receiver.
type JobDone struct {
	Snapshot JobSnapshot
	Payload  tea.Msg
}

type jobRunner func(context.Context) (tea.Msg, error)

type jobBus struct {
	counter int64
}

func newJobBus() *jobBus {
	return &jobBus{}
}

func (b *jobBus) nextID(kind JobKind) string {
	idx := atomic.AddInt64(&b.counter, 1)
	return fmt.Sprintf("%s-%d", kind, idx)
}

// Start wraps runner in a command. The runner executes on its own goroutine
// and never touches session state; its result comes back as a JobDone.
func (b *jobBus) Start(kind JobKind, runner jobRunner) tea.Cmd {
	id := b.nextID(kind)
	return func() tea.Msg {
		started := time.Now()
		payload, err := runner(context.Background())
		snapshot := JobSnapshot{
			ID:          id,
			Kind:        kind,
			StartedAt:   started,
			CompletedAt: time.Now(),
		}
		if err != nil {
			snapshot.Status = JobFailed
			snapshot.Err = err.Error()
		} else {
			snapshot.Status = JobSucceeded
		}
		snapshot.Duration = snapshot.CompletedAt.Sub(started)
		debuglog.Infof("[jobs] %s %s %s (duration=%s, err=%v)", id, kind, snapshot.Status, snapshot.Duration, err)
		return JobDone{Snapshot: snapshot, Payload: payload}
	}
}
