package tasks

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"nucleusd/internal/config"
	"nucleusd/pkg/types"
)

// ManagerName is the key the orchestrator registers this manager under.
const ManagerName = "thread_pool"

const (
	// DefaultWorkers is the pool size when none is configured.
	DefaultWorkers = 4
	// DefaultQueueSize is the backlog depth above which submissions
	// start logging warnings.
	DefaultQueueSize = 256
	// DefaultJoinTimeout bounds the shutdown wait for running tasks.
	DefaultJoinTimeout = 5 * time.Second

	// schedulerTick is how often the periodic loop checks for due
	// registrations.
	schedulerTick = 100 * time.Millisecond
)

// Config carries the tunables for a Manager. Zero values fall back to
// the package defaults.
type Config struct {
	Workers     int
	QueueSize   int
	JoinTimeout time.Duration
	Logger      zerolog.Logger
}

// Manager owns the worker pool, the task table, and the periodic
// scheduler. The table and the backlog are each guarded by their own
// lock; nothing holds both at once.
type Manager struct {
	log         zerolog.Logger
	workers     int
	queueSize   int
	joinTimeout time.Duration

	mu    sync.RWMutex
	tasks map[string]*task

	qmu      sync.Mutex
	qcond    *sync.Cond
	backlog  []*task
	stopping bool

	pmu      sync.Mutex
	periodic map[string]*periodicEntry

	baseCtx    context.Context
	baseCancel context.CancelFunc
	schedStop  chan struct{}
	schedDone  chan struct{}
	wg         sync.WaitGroup
	running    atomic.Bool
	overLimit  atomic.Bool

	submitted atomic.Uint64
	completed atomic.Uint64
	failures  atomic.Uint64
	cancelled atomic.Uint64
	active    atomic.Int64
}

// New builds a stopped Manager, applying defaults for unset values.
func New(cfg Config) *Manager {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = DefaultJoinTimeout
	}
	m := &Manager{
		log:         cfg.Logger,
		workers:     cfg.Workers,
		queueSize:   cfg.QueueSize,
		joinTimeout: cfg.JoinTimeout,
		tasks:       make(map[string]*task),
		periodic:    make(map[string]*periodicEntry),
	}
	m.qcond = sync.NewCond(&m.qmu)
	return m
}

// FromManager builds a Manager from the thread_pool.* configuration
// section. Pool sizing cannot be changed on a live pool, so every
// runtime edit in the section logs a restart warning.
func FromManager(cfg *config.Manager, log zerolog.Logger) *Manager {
	s := cfg.Settings()
	m := New(Config{
		Workers:     s.ThreadPool.WorkerThreads,
		QueueSize:   s.ThreadPool.MaxQueueSize,
		JoinTimeout: s.ThreadPool.JoinTimeout,
		Logger:      log,
	})
	cfg.RegisterListener("thread_pool.", func(key string, _, _ any) {
		log.Warn().Str("key", key).Msg("thread pool change requires restart")
	})
	return m
}

// Name implements the manager contract.
func (m *Manager) Name() string { return ManagerName }

// Initialize starts the workers and the periodic scheduler.
func (m *Manager) Initialize(ctx context.Context) error {
	if m.running.Load() {
		return nil
	}
	m.baseCtx, m.baseCancel = context.WithCancel(context.Background())
	m.schedStop = make(chan struct{})
	m.schedDone = make(chan struct{})
	m.qmu.Lock()
	m.stopping = false
	m.qmu.Unlock()
	for i := 0; i < m.workers; i++ {
		m.wg.Add(1)
		go m.worker()
	}
	go m.schedule()
	m.running.Store(true)
	m.log.Debug().Int("workers", m.workers).Msg("task manager started")
	return nil
}

// Shutdown stops the scheduler, cancels everything still pending, and
// waits (bounded by the join timeout and ctx) for running tasks to
// finish. Stragglers get their context cancelled and are logged, never
// waited on indefinitely. The task table is dropped.
func (m *Manager) Shutdown(ctx context.Context) error {
	if !m.running.Swap(false) {
		return nil
	}
	close(m.schedStop)
	<-m.schedDone

	var pending int
	m.mu.RLock()
	for _, t := range m.tasks {
		if t.cancel() {
			pending++
			m.cancelled.Add(1)
		}
	}
	m.mu.RUnlock()
	if pending > 0 {
		m.log.Debug().Int("cancelled", pending).Msg("pending tasks cancelled at shutdown")
	}

	m.qmu.Lock()
	m.stopping = true
	m.qmu.Unlock()
	m.qcond.Broadcast()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	timer := time.NewTimer(m.joinTimeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-ctx.Done():
		m.log.Warn().Int64("running", m.active.Load()).Msg("task manager shutdown cancelled before workers drained")
	case <-timer.C:
		m.log.Warn().Int64("running", m.active.Load()).Msg("task manager workers did not drain in time")
	}
	m.baseCancel()

	m.mu.Lock()
	m.tasks = make(map[string]*task)
	m.mu.Unlock()
	m.pmu.Lock()
	m.periodic = make(map[string]*periodicEntry)
	m.pmu.Unlock()
	m.log.Debug().Msg("task manager stopped")
	return nil
}

// Snapshot is a point-in-time view of the pool.
type Snapshot struct {
	Running    bool
	Workers    int
	QueueDepth int
	QueueSize  int
	Active     int64
	Tracked    int
	Periodic   int
	Submitted  uint64
	Completed  uint64
	Failures   uint64
	Cancelled  uint64
	ByStatus   map[string]int
}

// Snapshot reports the current pool state.
func (m *Manager) Snapshot() Snapshot {
	m.qmu.Lock()
	depth := len(m.backlog)
	m.qmu.Unlock()

	byStatus := make(map[string]int)
	m.mu.RLock()
	tracked := len(m.tasks)
	for _, t := range m.tasks {
		byStatus[string(t.currentStatus())]++
	}
	m.mu.RUnlock()

	m.pmu.Lock()
	periodic := len(m.periodic)
	m.pmu.Unlock()

	return Snapshot{
		Running:    m.running.Load(),
		Workers:    m.workers,
		QueueDepth: depth,
		QueueSize:  m.queueSize,
		Active:     m.active.Load(),
		Tracked:    tracked,
		Periodic:   periodic,
		Submitted:  m.submitted.Load(),
		Completed:  m.completed.Load(),
		Failures:   m.failures.Load(),
		Cancelled:  m.cancelled.Load(),
		ByStatus:   byStatus,
	}
}

// Status implements the manager contract.
func (m *Manager) Status() types.ManagerStatus {
	snap := m.Snapshot()
	return types.ManagerStatus{
		Name:        ManagerName,
		Initialized: snap.Running,
		Healthy:     snap.Running,
		Details: map[string]any{
			"workers":     snap.Workers,
			"queue_depth": snap.QueueDepth,
			"queue_size":  snap.QueueSize,
			"active":      snap.Active,
			"tracked":     snap.Tracked,
			"periodic":    snap.Periodic,
			"submitted":   snap.Submitted,
			"completed":   snap.Completed,
			"failures":    snap.Failures,
			"cancelled":   snap.Cancelled,
			"by_status":   snap.ByStatus,
		},
	}
}
