package plugin

import "fmt"

// Unload deactivates a plugin. It refuses while another active plugin
// still depends on it, leaving both unchanged. Unloading a plugin that
// is not active is a no-op.
func (m *Manager) Unload(name string) error {
	if !m.running.Load() {
		return &notRunningError{op: "unload"}
	}
	rec := m.record(name)
	if rec == nil {
		return &unknownPluginError{name: name}
	}
	if m.state(rec) != StateActive {
		m.log.Debug().Str("plugin", name).Msg("plugin not loaded")
		return nil
	}
	if dependents := m.activeDependents(name); len(dependents) > 0 {
		m.log.Warn().Str("plugin", name).Strs("dependents", dependents).Msg("unload blocked by active dependents")
		return &blockedError{name: name, dependents: dependents}
	}

	if err := m.stopInstance(rec); err != nil {
		err = fmt.Errorf("plugin %q: %w", name, err)
		m.log.Error().Err(err).Str("plugin", name).Msg("plugin failed to unload")
		m.publish("plugin/error", map[string]any{"plugin_name": name, "error": err.Error()})
		return err
	}

	m.mu.Lock()
	rec.instance = nil
	rec.state = StateInactive
	m.mu.Unlock()

	m.log.Info().Str("plugin", name).Msg("plugin unloaded")
	m.publish("plugin/unloaded", map[string]any{"plugin_name": name})
	return nil
}

// Reload is unload, reconstruct, load: the factory runs again, the old
// instance is discarded.
func (m *Manager) Reload(name string) error {
	if !m.running.Load() {
		return &notRunningError{op: "reload"}
	}
	if err := m.Unload(name); err != nil {
		return err
	}
	return m.Load(name)
}

// activeDependents lists the active plugins declaring name as a
// dependency.
func (m *Manager) activeDependents(name string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for _, other := range m.order {
		rec := m.records[other]
		if other == name || rec.state != StateActive {
			continue
		}
		for _, dep := range rec.manifest.Dependencies {
			if dep == name {
				out = append(out, other)
				break
			}
		}
	}
	return out
}

// stopInstance runs the shutdown hook with panic containment. On
// failure the record keeps its active state so the condition stays
// visible.
func (m *Manager) stopInstance(rec *record) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("shutdown panicked: %v", r)
		}
	}()
	m.mu.RLock()
	inst := rec.instance
	m.mu.RUnlock()
	if inst == nil {
		return nil
	}
	if err := inst.Shutdown(); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// unloadAll empties the active set at manager shutdown: leaves first
// (nothing active depends on them), then the remainder in
// reverse-discovery order. Failures are logged and skipped so one
// broken plugin cannot block the rest.
func (m *Manager) unloadAll() {
	var active []string
	m.mu.RLock()
	for _, name := range m.order {
		if m.records[name].state == StateActive {
			active = append(active, name)
		}
	}
	m.mu.RUnlock()

	isLeaf := func(name string) bool {
		for _, other := range active {
			if other == name {
				continue
			}
			for _, dep := range m.record(other).manifest.Dependencies {
				if dep == name {
					return false
				}
			}
		}
		return true
	}

	var leaves, rest []string
	for _, name := range active {
		if isLeaf(name) {
			leaves = append(leaves, name)
		} else {
			rest = append(rest, name)
		}
	}
	order := leaves
	for i := len(rest) - 1; i >= 0; i-- {
		order = append(order, rest[i])
	}

	for _, name := range order {
		if err := m.Unload(name); err != nil {
			m.log.Error().Err(err).Str("plugin", name).Msg("plugin unload failed during shutdown")
		}
	}
}
