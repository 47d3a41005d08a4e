package monitor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"nucleusd/internal/config"
	"nucleusd/internal/eventbus"
	"nucleusd/internal/plugin"
	"nucleusd/internal/tasks"
	"nucleusd/pkg/types"
)

// ManagerName is the key the orchestrator registers this manager under.
const ManagerName = "monitoring"

// DefaultInterval is the sampling period when monitoring.interval is
// not configured.
const DefaultInterval = 30 * time.Second

// Config carries the collaborators a Manager samples. Health is
// optional; when set (usually to the orchestrator's Statuses method)
// every manager's health lands in the nucleus_manager_healthy gauge.
type Config struct {
	Conf    *config.Manager
	Bus     *eventbus.Bus
	Tasks   *tasks.Manager
	Plugins *plugin.Manager
	Logger  zerolog.Logger
	Health  func() []types.ManagerStatus
}

// Manager owns the private prometheus registry and the periodic sample
// pass that feeds it.
type Manager struct {
	log     zerolog.Logger
	cfg     *config.Manager
	bus     *eventbus.Bus
	tasks   *tasks.Manager
	plugins *plugin.Manager
	health  func() []types.ManagerStatus

	registry *prometheus.Registry
	col      *collectors

	interval      time.Duration
	maxGoroutines atomic.Int64
	maxHeapMB     atomic.Int64

	periodicID string
	enabled    bool
	running    atomic.Bool
	samples    atomic.Uint64
	alertCount atomic.Uint64

	overGoroutines atomic.Bool
	overHeap       atomic.Bool

	lastMu         sync.Mutex
	lastGoroutines int
	lastHeapMB     float64
}

// New builds a stopped Manager. The registry and collectors exist from
// construction so the ops surface can mount /metrics before Initialize
// runs.
func New(cfg Config) *Manager {
	reg := prometheus.NewRegistry()
	return &Manager{
		log:      cfg.Logger,
		cfg:      cfg.Conf,
		bus:      cfg.Bus,
		tasks:    cfg.Tasks,
		plugins:  cfg.Plugins,
		health:   cfg.Health,
		registry: reg,
		col:      newCollectors(reg),
	}
}

// Name implements the manager contract.
func (m *Manager) Name() string { return ManagerName }

// Gatherer exposes the private registry for the /metrics handler.
func (m *Manager) Gatherer() prometheus.Gatherer { return m.registry }

// Initialize reads the monitoring.* configuration, takes one immediate
// sample, and schedules the periodic pass through the task manager.
func (m *Manager) Initialize(ctx context.Context) error {
	if m.running.Load() {
		return nil
	}
	s := m.cfg.Settings().Monitoring
	m.enabled = s.Enabled
	m.interval = s.Interval
	if m.interval <= 0 {
		m.interval = DefaultInterval
	}
	m.maxGoroutines.Store(int64(s.MaxGoroutines))
	m.maxHeapMB.Store(int64(s.MaxHeapMB))
	m.cfg.RegisterListener("monitoring.", m.onConfigChange)
	m.running.Store(true)

	if !m.enabled {
		m.log.Info().Msg("monitoring disabled")
		return nil
	}

	if _, err := m.sample(ctx); err != nil {
		m.log.Warn().Err(err).Msg("initial sample failed")
	}
	id, err := m.tasks.SchedulePeriodic(m.interval, m.sample, tasks.WithPeriodicName(ManagerName))
	if err != nil {
		m.running.Store(false)
		return fmt.Errorf("schedule monitoring sample: %w", err)
	}
	m.periodicID = id
	m.log.Info().Dur("interval", m.interval).Msg("monitoring started")
	return nil
}

// onConfigChange hot-applies the thresholds; resampling cadence is
// fixed once scheduled.
func (m *Manager) onConfigChange(key string, _, _ any) {
	switch key {
	case "monitoring.max_goroutines":
		v := m.cfg.Int(key, int(m.maxGoroutines.Load()))
		m.maxGoroutines.Store(int64(v))
		m.log.Info().Int("max_goroutines", v).Msg("goroutine threshold updated")
	case "monitoring.max_heap_mb":
		v := m.cfg.Int(key, int(m.maxHeapMB.Load()))
		m.maxHeapMB.Store(int64(v))
		m.log.Info().Int("max_heap_mb", v).Msg("heap threshold updated")
	case "monitoring.interval", "monitoring.enabled":
		m.log.Warn().Str("key", key).Msg("monitoring change requires restart")
	}
}

// Shutdown cancels the periodic sample.
func (m *Manager) Shutdown(ctx context.Context) error {
	if !m.running.Load() {
		return nil
	}
	if m.periodicID != "" {
		m.tasks.CancelPeriodic(m.periodicID)
		m.periodicID = ""
	}
	m.running.Store(false)
	m.log.Debug().Msg("monitoring stopped")
	return nil
}

// Status implements the manager contract.
func (m *Manager) Status() types.ManagerStatus {
	m.lastMu.Lock()
	goroutines := m.lastGoroutines
	heapMB := m.lastHeapMB
	m.lastMu.Unlock()
	running := m.running.Load()
	return types.ManagerStatus{
		Name:        ManagerName,
		Initialized: running,
		Healthy:     running,
		Details: map[string]any{
			"enabled":    m.enabled,
			"interval":   m.interval.String(),
			"samples":    m.samples.Load(),
			"alerts":     m.alertCount.Load(),
			"goroutines": goroutines,
			"heap_mb":    heapMB,
		},
	}
}
