package tasks

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"nucleusd/pkg/types"
)

// SubmitOption customizes one submission.
type SubmitOption func(*task)

// WithName names the task for logs and listings.
func WithName(name string) SubmitOption {
	return func(t *task) { t.name = name }
}

// WithSubmitter records who asked for the work.
func WithSubmitter(submitter string) SubmitOption {
	return func(t *task) { t.submitter = submitter }
}

// WithPriority records a priority hint. It is reported, not enforced.
func WithPriority(priority int) SubmitOption {
	return func(t *task) { t.priority = priority }
}

// Submit registers fn as a pending task and hands it to the pool. It
// returns the task id immediately and never blocks on pool capacity.
func (m *Manager) Submit(fn Func, opts ...SubmitOption) (string, error) {
	if !m.running.Load() {
		return "", &notRunningError{op: "submit"}
	}
	if fn == nil {
		return "", errors.New("submit: nil function")
	}
	t := &task{
		id:        uuid.NewString(),
		submitter: "unknown",
		fn:        fn,
		status:    StatusPending,
		createdAt: time.Now().UTC(),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.name == "" {
		t.name = "task-" + t.id[:8]
	}

	m.mu.Lock()
	m.tasks[t.id] = t
	m.mu.Unlock()

	m.qmu.Lock()
	m.backlog = append(m.backlog, t)
	depth := len(m.backlog)
	m.qmu.Unlock()
	m.qcond.Signal()

	if depth > m.queueSize {
		if !m.overLimit.Swap(true) {
			m.log.Warn().Int("backlog", depth).Int("queue_size", m.queueSize).Msg("task backlog exceeds configured queue size")
		}
	} else {
		m.overLimit.Store(false)
	}

	m.submitted.Add(1)
	m.log.Debug().Str("task_id", t.id).Str("name", t.name).Str("submitter", t.submitter).Msg("task submitted")
	return t.id, nil
}

// Cancel stops a task that no worker has picked up yet. It reports
// whether the task actually moved to cancelled.
func (m *Manager) Cancel(id string) bool {
	m.mu.RLock()
	t, ok := m.tasks[id]
	m.mu.RUnlock()
	if !ok || !t.cancel() {
		return false
	}
	m.cancelled.Add(1)
	m.log.Debug().Str("task_id", id).Msg("task cancelled")
	return true
}

// Result blocks until the task reaches a final state or ctx expires.
// A failed task yields its captured error; a cancelled one yields an
// error matched by IsCancelled.
func (m *Manager) Result(ctx context.Context, id string) (any, error) {
	m.mu.RLock()
	t, ok := m.tasks[id]
	m.mu.RUnlock()
	if !ok {
		return nil, &unknownTaskError{id: id}
	}
	select {
	case <-t.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.status {
	case StatusCompleted:
		return t.result, nil
	case StatusFailed:
		return nil, t.err
	default:
		return nil, &cancelledError{id: id}
	}
}

// Info returns the tracked view of one task.
func (m *Manager) Info(id string) (types.TaskInfo, bool) {
	m.mu.RLock()
	t, ok := m.tasks[id]
	m.mu.RUnlock()
	if !ok {
		return types.TaskInfo{}, false
	}
	return t.info(), true
}

// Tasks lists every tracked task, oldest first.
func (m *Manager) Tasks() []types.TaskInfo {
	m.mu.RLock()
	out := make([]types.TaskInfo, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t.info())
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
