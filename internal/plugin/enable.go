package plugin

import (
	"fmt"

	"nucleusd/internal/config"
	"nucleusd/internal/eventbus"
)

// Enable removes the plugin from the persisted disabled list and adds
// it to the enabled list, independent of its current load state. The
// lists are written back through the configuration manager.
func (m *Manager) Enable(name string) error {
	if !m.running.Load() {
		return &notRunningError{op: "enable"}
	}
	if m.record(name) == nil {
		return &unknownPluginError{name: name}
	}
	p := m.cfg.Settings().Plugins
	if err := m.persistLists(addName(p.Enabled, name), removeName(p.Disabled, name)); err != nil {
		return fmt.Errorf("enable %q: %w", name, err)
	}
	m.log.Info().Str("plugin", name).Msg("plugin enabled")
	m.publish("plugin/enabled", map[string]any{"plugin_name": name})
	return nil
}

// Disable forces an unload first when the plugin is active — failing
// loudly if that unload is blocked — then moves the plugin to the
// persisted disabled list and marks it disabled.
func (m *Manager) Disable(name string) error {
	if !m.running.Load() {
		return &notRunningError{op: "disable"}
	}
	rec := m.record(name)
	if rec == nil {
		return &unknownPluginError{name: name}
	}
	if m.state(rec) == StateActive {
		if err := m.Unload(name); err != nil {
			return fmt.Errorf("disable %q: %w", name, err)
		}
	}
	p := m.cfg.Settings().Plugins
	if err := m.persistLists(removeName(p.Enabled, name), addName(p.Disabled, name)); err != nil {
		return fmt.Errorf("disable %q: %w", name, err)
	}
	m.mu.Lock()
	rec.state = StateDisabled
	m.mu.Unlock()
	m.log.Info().Str("plugin", name).Msg("plugin disabled")
	m.publish("plugin/disabled", map[string]any{"plugin_name": name})
	return nil
}

// persistLists writes both lists through the configuration manager and
// saves the file. Running without a config file keeps the lists
// in-memory only, which is fine for ephemeral hosts.
func (m *Manager) persistLists(enabled, disabled []string) error {
	if err := m.cfg.Set("plugins.enabled", enabled); err != nil {
		return err
	}
	if err := m.cfg.Set("plugins.disabled", disabled); err != nil {
		return err
	}
	if err := m.cfg.Save(); err != nil {
		if config.IsNoFile(err) {
			m.log.Debug().Msg("plugin lists not persisted, no config file")
			return nil
		}
		m.log.Warn().Err(err).Msg("plugin lists not persisted")
	}
	return nil
}

func addName(list []string, name string) []string {
	for _, n := range list {
		if n == name {
			return list
		}
	}
	return append(append([]string(nil), list...), name)
}

func removeName(list []string, name string) []string {
	out := make([]string, 0, len(list))
	for _, n := range list {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}

// onEnableCommand lets collaborators enable and load a plugin over the
// bus: payload {"plugin_name": ...}.
func (m *Manager) onEnableCommand(ev eventbus.Event) {
	name := payloadName(ev)
	if name == "" {
		m.log.Error().Str("event_id", ev.ID).Msg("plugin enable event missing plugin_name")
		return
	}
	if err := m.Enable(name); err != nil {
		m.log.Error().Err(err).Str("plugin", name).Msg("plugin enable command failed")
		return
	}
	if err := m.Load(name); err != nil {
		m.log.Error().Err(err).Str("plugin", name).Msg("plugin load after enable failed")
	}
}

// onDisableCommand is the bus-driven Disable: payload {"plugin_name": ...}.
func (m *Manager) onDisableCommand(ev eventbus.Event) {
	name := payloadName(ev)
	if name == "" {
		m.log.Error().Str("event_id", ev.ID).Msg("plugin disable event missing plugin_name")
		return
	}
	if err := m.Disable(name); err != nil {
		m.log.Error().Err(err).Str("plugin", name).Msg("plugin disable command failed")
	}
}

func payloadName(ev eventbus.Event) string {
	name, _ := ev.Payload["plugin_name"].(string)
	return name
}
