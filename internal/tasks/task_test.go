package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/google/uuid"
)

func newRunningManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	cfg.Logger = zerolog.Nop()
	m := New(cfg)
	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	return m
}

func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", d)
}

// blockWorkers occupies every worker until the returned release func is
// called, so later submissions stay pending.
func blockWorkers(t *testing.T, m *Manager, n int) func() {
	t.Helper()
	entered := make(chan struct{}, n)
	release := make(chan struct{})
	for i := 0; i < n; i++ {
		_, err := m.Submit(func(context.Context) (any, error) {
			entered <- struct{}{}
			<-release
			return nil, nil
		}, WithName("blocker"))
		if err != nil {
			t.Fatalf("submit blocker: %v", err)
		}
	}
	for i := 0; i < n; i++ {
		select {
		case <-entered:
		case <-time.After(5 * time.Second):
			t.Fatal("workers did not pick up blockers")
		}
	}
	var once atomic.Bool
	return func() {
		if !once.Swap(true) {
			close(release)
		}
	}
}

func TestTaskCompletes(t *testing.T) {
	m := newRunningManager(t, Config{Workers: 2})
	id, err := m.Submit(func(context.Context) (any, error) {
		return 42, nil
	}, WithName("answer"), WithSubmitter("tester"), WithPriority(3))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("task id %q is not a uuid: %v", id, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := m.Result(ctx, id)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if result != 42 {
		t.Fatalf("result = %v, want 42", result)
	}
	info, ok := m.Info(id)
	if !ok {
		t.Fatal("task not tracked after completion")
	}
	if info.Status != string(StatusCompleted) {
		t.Fatalf("status = %s", info.Status)
	}
	if info.Name != "answer" || info.Submitter != "tester" || info.Priority != 3 {
		t.Fatalf("options not applied: %+v", info)
	}
	if info.StartedAt == nil || info.CompletedAt == nil {
		t.Fatalf("timestamps missing: %+v", info)
	}
	if info.CompletedAt.Before(*info.StartedAt) {
		t.Fatalf("completed %v before started %v", info.CompletedAt, info.StartedAt)
	}
}

func TestTaskFailureRetrievable(t *testing.T) {
	m := newRunningManager(t, Config{})
	boom := errors.New("boom")
	id, err := m.Submit(func(context.Context) (any, error) {
		return nil, boom
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := m.Result(ctx, id); !errors.Is(err, boom) {
		t.Fatalf("result err = %v, want the captured failure", err)
	}
	info, _ := m.Info(id)
	if info.Status != string(StatusFailed) || info.Error != "boom" {
		t.Fatalf("failed task view: %+v", info)
	}
}

func TestTaskPanicBecomesFailure(t *testing.T) {
	m := newRunningManager(t, Config{})
	id, err := m.Submit(func(context.Context) (any, error) {
		panic("kaboom")
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = m.Result(ctx, id)
	if err == nil || err.Error() != "task panicked: kaboom" {
		t.Fatalf("result err = %v", err)
	}
	if snap := m.Snapshot(); snap.Failures != 1 {
		t.Fatalf("failures = %d, want 1", snap.Failures)
	}
}

func TestCancelPendingTask(t *testing.T) {
	m := newRunningManager(t, Config{Workers: 1})
	release := blockWorkers(t, m, 1)
	defer release()

	var ran atomic.Bool
	id, err := m.Submit(func(context.Context) (any, error) {
		ran.Store(true)
		return nil, nil
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !m.Cancel(id) {
		t.Fatal("cancel of pending task reported false")
	}
	if info, _ := m.Info(id); info.Status != string(StatusCancelled) {
		t.Fatalf("status = %s, want cancelled", info.Status)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := m.Result(ctx, id); !IsCancelled(err) {
		t.Fatalf("result err = %v, want cancellation", err)
	}

	release()
	time.Sleep(50 * time.Millisecond)
	if ran.Load() {
		t.Fatal("cancelled task still ran")
	}
}

func TestCancelRunningTaskFails(t *testing.T) {
	m := newRunningManager(t, Config{Workers: 1})
	release := blockWorkers(t, m, 1)
	defer release()

	// The blocker itself is the running task; find its id.
	var id string
	for _, info := range m.Tasks() {
		if info.Status == string(StatusRunning) {
			id = info.ID
		}
	}
	if id == "" {
		t.Fatal("no running task found")
	}
	if m.Cancel(id) {
		t.Fatal("cancel of a running task reported true")
	}
	if m.Cancel("no-such-task") {
		t.Fatal("cancel of unknown task reported true")
	}
}

func TestResultUnknownAndTimeout(t *testing.T) {
	m := newRunningManager(t, Config{Workers: 1})
	if _, err := m.Result(context.Background(), "ghost"); !IsUnknownTask(err) {
		t.Fatalf("expected unknown-task error, got %v", err)
	}

	release := blockWorkers(t, m, 1)
	defer release()
	id, err := m.Submit(func(context.Context) (any, error) { return nil, nil })
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := m.Result(ctx, id); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestFIFOExecutionOrder(t *testing.T) {
	m := newRunningManager(t, Config{Workers: 1})
	release := blockWorkers(t, m, 1)

	var order []int
	done := make(chan struct{})
	const n = 10
	for i := 0; i < n; i++ {
		i := i
		if _, err := m.Submit(func(context.Context) (any, error) {
			order = append(order, i) // single worker: no concurrent append
			if len(order) == n {
				close(done)
			}
			return nil, nil
		}); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	release()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("tasks did not finish")
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("task %d ran out of order (got %d)", i, got)
		}
	}
}
