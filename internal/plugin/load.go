package plugin

import (
	"errors"
	"fmt"
	"time"
)

// Load brings a plugin to the active state, recursively loading its
// declared dependencies first. Loading an already-active plugin is a
// no-op. A missing or failing dependency fails the whole operation and
// marks this plugin failed with the recorded cause; cyclic declarations
// fail fast instead of recursing forever.
func (m *Manager) Load(name string) error {
	if !m.running.Load() {
		return &notRunningError{op: "load"}
	}
	return m.load(name, nil)
}

// load carries the in-progress chain for cycle detection.
func (m *Manager) load(name string, path []string) error {
	rec := m.record(name)
	if rec == nil {
		return &unknownPluginError{name: name}
	}
	if m.state(rec) == StateActive {
		m.log.Debug().Str("plugin", name).Msg("plugin already loaded")
		return nil
	}
	if m.onDisabledList(name) {
		return &disabledError{name: name}
	}
	for _, seen := range path {
		if seen == name {
			return &cycleError{path: append(append([]string(nil), path...), name)}
		}
	}
	path = append(path, name)

	for _, dep := range rec.manifest.Dependencies {
		depRec := m.record(dep)
		if depRec == nil {
			derr := &dependencyError{plugin: name, dependency: dep}
			m.fail(rec, derr.Error())
			m.log.Error().Str("plugin", name).Str("dependency", dep).Msg("plugin dependency not found")
			return derr
		}
		if m.state(depRec) == StateActive {
			continue
		}
		if err := m.load(dep, path); err != nil {
			derr := &dependencyError{plugin: name, dependency: dep, cause: err}
			m.fail(rec, derr.Error())
			m.log.Error().Err(err).Str("plugin", name).Str("dependency", dep).Msg("plugin dependency failed to load")
			return derr
		}
	}

	if rec.factory == nil {
		err := fmt.Errorf("plugin %q: factory %q not registered", name, rec.factoryName)
		m.fail(rec, err.Error())
		m.log.Error().Err(err).Str("plugin", name).Msg("plugin failed to load")
		m.publish("plugin/error", map[string]any{"plugin_name": name, "error": err.Error()})
		return err
	}

	instance, err := m.instantiate(rec)
	if err != nil {
		err = fmt.Errorf("plugin %q: %w", name, err)
		m.fail(rec, err.Error())
		m.log.Error().Err(err).Str("plugin", name).Msg("plugin failed to load")
		m.publish("plugin/error", map[string]any{"plugin_name": name, "error": err.Error()})
		return err
	}

	m.mu.Lock()
	rec.instance = instance
	rec.state = StateActive
	rec.lastErr = ""
	rec.loadedAt = time.Now().UTC()
	m.mu.Unlock()

	m.log.Info().Str("plugin", name).Str("version", rec.manifest.Version).Msg("plugin loaded")
	m.publish("plugin/loaded", map[string]any{
		"plugin_name": name,
		"version":     rec.manifest.Version,
		"description": rec.manifest.Description,
		"author":      rec.manifest.Author,
	})
	return nil
}

func (m *Manager) state(rec *record) State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return rec.state
}

func (m *Manager) fail(rec *record, cause string) {
	m.mu.Lock()
	rec.state = StateFailed
	rec.lastErr = cause
	m.mu.Unlock()
}

// instantiate constructs the instance and runs its initialize hook,
// containing panics so a broken plugin cannot take the host down.
func (m *Manager) instantiate(rec *record) (inst Instance, err error) {
	defer func() {
		if r := recover(); r != nil {
			inst = nil
			err = fmt.Errorf("initialize panicked: %v", r)
		}
	}()
	inst = rec.factory()
	if inst == nil {
		return nil, errors.New("factory returned nil instance")
	}
	host := Host{
		Bus:    m.bus,
		Config: m.cfg,
		Tasks:  m.tasks,
		Log:    m.log.With().Str("plugin", rec.manifest.Name).Logger(),
	}
	if err := inst.Initialize(host); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	return inst, nil
}
