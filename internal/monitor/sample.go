package monitor

import (
	"context"
	"runtime"
	"sync/atomic"

	"nucleusd/internal/plugin"
	"nucleusd/internal/tasks"
)

var taskStatuses = []tasks.Status{
	tasks.StatusPending,
	tasks.StatusRunning,
	tasks.StatusCompleted,
	tasks.StatusFailed,
	tasks.StatusCancelled,
}

var pluginStates = []plugin.State{
	plugin.StateDiscovered,
	plugin.StateActive,
	plugin.StateInactive,
	plugin.StateFailed,
	plugin.StateDisabled,
}

// sample is one pass: runtime stats, manager counters, health gauges,
// then the threshold checks. It runs as a periodic task, so a slow
// pass occupies a pool worker rather than its own timer goroutine.
func (m *Manager) sample(ctx context.Context) (any, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	goroutines := runtime.NumGoroutine()
	heapMB := float64(ms.HeapAlloc) / (1 << 20)

	c := m.col
	c.goroutines.Set(float64(goroutines))
	c.heapBytes.Set(float64(ms.HeapAlloc))
	c.gcCycles.Set(float64(ms.NumGC))

	ts := m.tasks.Snapshot()
	c.taskBacklog.Set(float64(ts.QueueDepth))
	c.tasksSubmitted.Set(float64(ts.Submitted))
	c.tasksCompleted.Set(float64(ts.Completed))
	c.tasksFailed.Set(float64(ts.Failures))
	c.tasksCancelled.Set(float64(ts.Cancelled))
	for _, st := range taskStatuses {
		c.tasksByStatus.WithLabelValues(string(st)).Set(float64(ts.ByStatus[string(st)]))
	}

	bs := m.bus.Snapshot()
	c.busQueueDepth.Set(float64(bs.QueueLen))
	c.busSubscriptions.Set(float64(bs.Subscriptions))
	c.busPublished.Set(float64(bs.Published))
	c.busDelivered.Set(float64(bs.Delivered))
	c.busRejected.Set(float64(bs.Rejected))
	c.busCallbackFails.Set(float64(bs.CallbackFailures))

	if m.plugins != nil {
		counts := make(map[string]int)
		for _, info := range m.plugins.All() {
			counts[info.State]++
		}
		for _, st := range pluginStates {
			c.pluginsByState.WithLabelValues(string(st)).Set(float64(counts[string(st)]))
		}
	}

	if m.health != nil {
		for _, st := range m.health() {
			v := 0.0
			if st.Healthy {
				v = 1
			}
			c.managerHealthy.WithLabelValues(st.Name).Set(v)
		}
	}

	m.checkThreshold(ctx, "goroutines", float64(goroutines), float64(m.maxGoroutines.Load()), &m.overGoroutines)
	m.checkThreshold(ctx, "heap_mb", heapMB, float64(m.maxHeapMB.Load()), &m.overHeap)

	m.lastMu.Lock()
	m.lastGoroutines = goroutines
	m.lastHeapMB = heapMB
	m.lastMu.Unlock()
	m.samples.Add(1)
	c.samples.Inc()
	return nil, nil
}

// checkThreshold publishes one monitoring/alert per crossing; the
// latch resets once the value falls back under the limit. A zero limit
// disables the check.
func (m *Manager) checkThreshold(ctx context.Context, metric string, value, limit float64, latch *atomic.Bool) {
	if limit <= 0 {
		return
	}
	if value <= limit {
		latch.Store(false)
		return
	}
	if latch.Swap(true) {
		return
	}
	m.alertCount.Add(1)
	m.col.alerts.WithLabelValues(metric).Inc()
	m.log.Warn().Str("metric", metric).Float64("value", value).Float64("limit", limit).Msg("monitoring threshold breached")
	if _, err := m.bus.Publish(ctx, "monitoring/alert", ManagerName, map[string]any{
		"metric": metric,
		"value":  value,
		"limit":  limit,
	}); err != nil {
		m.log.Debug().Err(err).Msg("alert not published")
	}
}
