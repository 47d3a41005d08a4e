package core

import (
	"fmt"
	"time"

	"nucleusd/pkg/types"
	"nucleusd/pkg/version"
)

// Ready reports whether the host is fully initialized and not shut
// down.
func (a *App) Ready() bool {
	return a.initialized.Load() && !a.stopped.Load()
}

// Statuses snapshots every manager in initialization order. A Status
// call that panics yields an unhealthy entry carrying the panic text
// instead of propagating.
func (a *App) Statuses() []types.ManagerStatus {
	out := make([]types.ManagerStatus, 0, len(a.order))
	for _, m := range a.order {
		out = append(out, safeStatus(m))
	}
	return out
}

// Status aggregates the per-manager snapshots into the externally
// reported view.
func (a *App) Status() types.StatusReport {
	r := types.StatusReport{
		Running:        a.Ready(),
		Version:        version.String(),
		ServerTimeUnix: time.Now().Unix(),
		Managers:       a.Statuses(),
	}
	if !a.started.IsZero() {
		r.UptimeSeconds = int64(time.Since(a.started).Seconds())
	}
	return r
}

// Plugins lists every discovered plugin; empty before initialization.
func (a *App) Plugins() []types.PluginInfo {
	if a.plugins == nil {
		return nil
	}
	return a.plugins.All()
}

// Plugin returns one plugin's view.
func (a *App) Plugin(name string) (types.PluginInfo, bool) {
	if a.plugins == nil {
		return types.PluginInfo{}, false
	}
	return a.plugins.Info(name)
}

// Tasks lists every tracked task.
func (a *App) Tasks() []types.TaskInfo {
	if a.tasks == nil {
		return nil
	}
	return a.tasks.Tasks()
}

func safeStatus(m Manager) (st types.ManagerStatus) {
	defer func() {
		if r := recover(); r != nil {
			st = types.ManagerStatus{
				Name:        m.Name(),
				Initialized: true,
				Healthy:     false,
				Error:       fmt.Sprintf("status panicked: %v", r),
			}
		}
	}()
	return m.Status()
}
