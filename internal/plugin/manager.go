package plugin

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"nucleusd/internal/common/fsutil"
	"nucleusd/internal/config"
	"nucleusd/internal/eventbus"
	"nucleusd/internal/tasks"
	"nucleusd/pkg/types"
)

// ManagerName is the key the orchestrator registers this manager under.
const ManagerName = "plugins"

// Config carries the collaborators a Manager needs. Builtins defaults
// to the package registry when nil.
type Config struct {
	Conf     *config.Manager
	Bus      *eventbus.Bus
	Tasks    *tasks.Manager
	Logger   zerolog.Logger
	Builtins []Builtin
}

// Manager owns the plugin table. The table's shape is fixed after
// discovery; record fields are guarded by mu.
type Manager struct {
	log      zerolog.Logger
	cfg      *config.Manager
	bus      *eventbus.Bus
	tasks    *tasks.Manager
	builtins []Builtin

	mu      sync.RWMutex
	records map[string]*record
	order   []string

	dir      string
	autoload atomic.Bool
	running  atomic.Bool
}

// New builds a stopped Manager.
func New(cfg Config) *Manager {
	if cfg.Builtins == nil {
		cfg.Builtins = Builtins()
	}
	return &Manager{
		log:      cfg.Logger,
		cfg:      cfg.Conf,
		bus:      cfg.Bus,
		tasks:    cfg.Tasks,
		builtins: cfg.Builtins,
		records:  make(map[string]*record),
	}
}

// Name implements the manager contract.
func (m *Manager) Name() string { return ManagerName }

// Initialize reads the plugins.* configuration, wires the bus command
// handlers, discovers plugins from both sources, and autoloads enabled
// ones. Individual autoload failures leave that plugin failed without
// failing initialization.
func (m *Manager) Initialize(ctx context.Context) error {
	if m.running.Load() {
		return nil
	}
	s := m.cfg.Settings()
	dir, err := fsutil.ExpandHome(s.Plugins.Directory)
	if err != nil {
		return fmt.Errorf("plugin directory: %w", err)
	}
	m.dir = dir
	m.autoload.Store(s.Plugins.Autoload)
	if err := fsutil.EnsureDir(m.dir); err != nil {
		return fmt.Errorf("plugin directory: %w", err)
	}

	if _, err := m.bus.Subscribe("plugin/enable", m.onEnableCommand, eventbus.WithSubscriberID(ManagerName)); err != nil {
		return fmt.Errorf("subscribe plugin/enable: %w", err)
	}
	if _, err := m.bus.Subscribe("plugin/disable", m.onDisableCommand, eventbus.WithSubscriberID(ManagerName)); err != nil {
		return fmt.Errorf("subscribe plugin/disable: %w", err)
	}

	m.discover()
	m.cfg.RegisterListener("plugins.", m.onConfigChange)
	m.running.Store(true)

	if m.autoload.Load() {
		m.loadEnabled()
	}
	m.mu.RLock()
	count := len(m.records)
	m.mu.RUnlock()
	m.log.Info().Int("plugins", count).Msg("plugin manager initialized")
	m.publish("plugins/initialized", map[string]any{"plugin_count": count})
	return nil
}

// discover merges the builtin registry and the directory scan, first
// discovery wins.
func (m *Manager) discover() {
	for _, b := range m.builtins {
		m.addRecord(&record{
			manifest:    b.Manifest,
			factoryName: b.Manifest.Name,
			factory:     b.Factory,
			origin:      OriginBuiltin,
		})
	}
	found, errs, err := scanDir(m.dir)
	if err != nil {
		m.log.Warn().Err(err).Str("directory", m.dir).Msg("plugin directory scan failed")
		return
	}
	for _, e := range errs {
		m.log.Error().Err(e).Msg("plugin manifest rejected")
	}
	for _, c := range found {
		name := c.manifest.Factory
		if name == "" {
			name = c.manifest.Name
		}
		m.addRecord(&record{
			manifest:     c.manifest,
			factoryName:  name,
			factory:      m.factoryFor(name),
			origin:       OriginDirectory,
			manifestPath: c.path,
		})
	}
}

func (m *Manager) factoryFor(name string) Factory {
	for _, b := range m.builtins {
		if b.Manifest.Name == name {
			return b.Factory
		}
	}
	return nil
}

func (m *Manager) addRecord(rec *record) {
	name := rec.manifest.Name
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[name]; exists {
		m.log.Debug().Str("plugin", name).Str("origin", string(rec.origin)).Msg("duplicate plugin ignored, first discovery wins")
		return
	}
	rec.state = StateDiscovered
	if m.onDisabledList(name) {
		rec.state = StateDisabled
	}
	m.records[name] = rec
	m.order = append(m.order, name)
	m.log.Debug().Str("plugin", name).Str("version", rec.manifest.Version).Str("origin", string(rec.origin)).Msg("plugin discovered")
}

// loadEnabled runs the two autoload passes: dependency-free plugins
// first, then the rest, both in discovery order.
func (m *Manager) loadEnabled() {
	for _, withDeps := range []bool{false, true} {
		for _, name := range m.orderedNames() {
			rec := m.record(name)
			if rec == nil || (len(rec.manifest.Dependencies) > 0) != withDeps {
				continue
			}
			if !m.isEnabled(name) {
				continue
			}
			if err := m.load(name, nil); err != nil {
				m.log.Warn().Err(err).Str("plugin", name).Msg("autoload failed")
			}
		}
	}
}

// isEnabled applies the persisted lists: the disabled list always
// wins, the enabled list opts in, and everything else follows the
// autoload flag.
func (m *Manager) isEnabled(name string) bool {
	p := m.cfg.Settings().Plugins
	for _, n := range p.Disabled {
		if n == name {
			return false
		}
	}
	for _, n := range p.Enabled {
		if n == name {
			return true
		}
	}
	return m.autoload.Load()
}

func (m *Manager) onDisabledList(name string) bool {
	for _, n := range m.cfg.Settings().Plugins.Disabled {
		if n == name {
			return true
		}
	}
	return false
}

func (m *Manager) onConfigChange(key string, _, newVal any) {
	switch key {
	case "plugins.autoload":
		v := m.cfg.Bool(key, m.autoload.Load())
		m.autoload.Store(v)
		m.log.Info().Bool("autoload", v).Msg("plugin autoload updated")
	case "plugins.enabled", "plugins.disabled":
		m.log.Info().Str("key", key).Interface("value", newVal).Msg("plugin list updated")
	case "plugins.directory":
		m.log.Warn().Msg("plugin directory change requires restart")
	}
}

// record returns the table entry, nil when unknown.
func (m *Manager) record(name string) *record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.records[name]
}

func (m *Manager) orderedNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

// publish announces a lifecycle transition. Announcements are
// best-effort; a saturated or stopped bus only costs a log line.
func (m *Manager) publish(eventType string, payload map[string]any) {
	if _, err := m.bus.Publish(context.Background(), eventType, ManagerName, payload); err != nil {
		m.log.Debug().Err(err).Str("event_type", eventType).Msg("plugin event not published")
	}
}

// Shutdown unloads active plugins (leaves first, then the remainder in
// reverse-discovery order), tolerating individual failures, and drops
// the bus command subscriptions.
func (m *Manager) Shutdown(ctx context.Context) error {
	if !m.running.Load() {
		return nil
	}
	m.unloadAll()
	m.bus.Unsubscribe(ManagerName)
	m.running.Store(false)
	m.log.Debug().Msg("plugin manager stopped")
	return nil
}

// Info returns the view of one plugin.
func (m *Manager) Info(name string) (types.PluginInfo, bool) {
	rec := m.record(name)
	if rec == nil {
		return types.PluginInfo{}, false
	}
	enabled := m.isEnabled(name)
	m.mu.RLock()
	defer m.mu.RUnlock()
	return rec.view(enabled), true
}

// All lists every discovered plugin in discovery order.
func (m *Manager) All() []types.PluginInfo {
	out := make([]types.PluginInfo, 0, len(m.orderedNames()))
	for _, name := range m.orderedNames() {
		if info, ok := m.Info(name); ok {
			out = append(out, info)
		}
	}
	return out
}

// Active lists the plugins currently in the active state.
func (m *Manager) Active() []types.PluginInfo {
	var out []types.PluginInfo
	for _, info := range m.All() {
		if info.State == string(StateActive) {
			out = append(out, info)
		}
	}
	return out
}

// Status implements the manager contract.
func (m *Manager) Status() types.ManagerStatus {
	byState := make(map[string]int)
	m.mu.RLock()
	total := len(m.records)
	for _, rec := range m.records {
		byState[string(rec.state)]++
	}
	m.mu.RUnlock()
	running := m.running.Load()
	return types.ManagerStatus{
		Name:        ManagerName,
		Initialized: running,
		Healthy:     running,
		Details: map[string]any{
			"total":     total,
			"by_state":  byState,
			"directory": m.dir,
			"autoload":  m.autoload.Load(),
		},
	}
}
