package tasks

import (
	"context"
	"sync"
	"time"

	"nucleusd/pkg/types"
)

// Status is the lifecycle state of one task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Func is one unit of submitted work. The context is cancelled when the
// manager gives up waiting for running tasks at shutdown.
type Func func(ctx context.Context) (any, error)

// task is the tracked record for one submission. Transitions are
// guarded by mu; done closes exactly once, on reaching a final state.
type task struct {
	id        string
	name      string
	submitter string
	priority  int
	fn        Func

	mu          sync.Mutex
	status      Status
	createdAt   time.Time
	startedAt   time.Time
	completedAt time.Time
	result      any
	err         error
	done        chan struct{}
}

// claim moves the task to running if a worker gets to it before
// cancellation. A false return means the worker must skip it.
func (t *task) claim() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusPending {
		return false
	}
	t.status = StatusRunning
	t.startedAt = time.Now().UTC()
	return true
}

func (t *task) finish(result any, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completedAt = time.Now().UTC()
	if err != nil {
		t.status = StatusFailed
		t.err = err
	} else {
		t.status = StatusCompleted
		t.result = result
	}
	close(t.done)
}

// cancel succeeds only while the task is still waiting for a worker.
func (t *task) cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusPending {
		return false
	}
	t.status = StatusCancelled
	t.completedAt = time.Now().UTC()
	close(t.done)
	return true
}

func (t *task) currentStatus() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// info projects the record into the external view type.
func (t *task) info() types.TaskInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	info := types.TaskInfo{
		ID:        t.id,
		Name:      t.name,
		Status:    string(t.status),
		Submitter: t.submitter,
		Priority:  t.priority,
		CreatedAt: t.createdAt,
	}
	if !t.startedAt.IsZero() {
		ts := t.startedAt
		info.StartedAt = &ts
	}
	if !t.completedAt.IsZero() {
		ts := t.completedAt
		info.CompletedAt = &ts
	}
	if t.err != nil {
		info.Error = t.err.Error()
	}
	return info
}
