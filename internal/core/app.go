package core

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"nucleusd/internal/config"
	"nucleusd/internal/eventbus"
	"nucleusd/internal/logging"
	"nucleusd/internal/monitor"
	"nucleusd/internal/plugin"
	"nucleusd/internal/tasks"
	"nucleusd/pkg/types"
	"nucleusd/pkg/version"
)

// Manager is the contract every subsystem tracked by the orchestrator
// fulfills. Name must be unique across the host.
type Manager interface {
	Name() string
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
	Status() types.ManagerStatus
}

// DefaultShutdownTimeout bounds the reverse-order drain when Run's
// context is cancelled.
const DefaultShutdownTimeout = 30 * time.Second

// Options tunes App construction. The zero value runs with defaults
// only: no config file, builtin plugins from the package registry.
type Options struct {
	// ConfigFile is the optional backing file for the configuration
	// manager (YAML, JSON, or TOML by extension).
	ConfigFile string
	// ConfigWatch enables fsnotify reload of ConfigFile.
	ConfigWatch bool
	// Builtins overrides the compiled-in plugin registry; nil means the
	// package registry.
	Builtins []plugin.Builtin
	// LogOutput overrides the logging manager's output (tests).
	LogOutput io.Writer
	// ShutdownTimeout bounds Run's teardown; zero means the default.
	ShutdownTimeout time.Duration
}

// App owns every manager and is the only holder of their strong
// references. Destruction order is the reverse of construction order.
type App struct {
	opts Options
	log  zerolog.Logger

	conf    *config.Manager
	logm    *logging.Manager
	bus     *eventbus.Bus
	tasks   *tasks.Manager
	plugins *plugin.Manager
	mon     *monitor.Manager

	order  []Manager
	byName map[string]Manager

	started     time.Time
	initialized atomic.Bool
	stopped     atomic.Bool
}

// New builds an App. Managers are constructed and started by
// Initialize, not here, so a failed construction never leaves
// half-started goroutines behind.
func New(opts Options) *App {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}
	return &App{
		opts:   opts,
		log:    logging.Bootstrap(),
		byName: make(map[string]Manager),
	}
}

// Initialize constructs and initializes the managers in dependency
// order, wiring collaborators as constructor arguments. On any
// failure it tears down what was already started, in reverse order,
// and returns a wrapped error naming the failing manager.
func (a *App) Initialize(ctx context.Context) error {
	if a.initialized.Load() {
		return nil
	}

	copts := []config.Option{config.WithEnvPrefix("NUCLEUS_")}
	if a.opts.ConfigFile != "" {
		copts = append(copts, config.WithFile(a.opts.ConfigFile))
	}
	if a.opts.ConfigWatch {
		copts = append(copts, config.WithWatch())
	}
	a.conf = config.New(copts...)
	if err := a.start(ctx, a.conf); err != nil {
		return err
	}

	lopts := []logging.Option{}
	if a.opts.LogOutput != nil {
		lopts = append(lopts, logging.WithOutput(a.opts.LogOutput))
	}
	a.logm = logging.New(a.conf, lopts...)
	if err := a.start(ctx, a.logm); err != nil {
		return err
	}
	a.log = a.logm.Component("core")
	a.conf.SetLogger(a.logm.Component(config.ManagerName))

	a.bus = eventbus.FromManager(a.conf, a.logm.Component(eventbus.ManagerName))
	if err := a.start(ctx, a.bus); err != nil {
		return err
	}

	a.tasks = tasks.FromManager(a.conf, a.logm.Component(tasks.ManagerName))
	if err := a.start(ctx, a.tasks); err != nil {
		return err
	}

	a.plugins = plugin.New(plugin.Config{
		Conf:     a.conf,
		Bus:      a.bus,
		Tasks:    a.tasks,
		Logger:   a.logm.Component(plugin.ManagerName),
		Builtins: a.opts.Builtins,
	})
	if err := a.start(ctx, a.plugins); err != nil {
		return err
	}

	a.mon = monitor.New(monitor.Config{
		Conf:    a.conf,
		Bus:     a.bus,
		Tasks:   a.tasks,
		Plugins: a.plugins,
		Logger:  a.logm.Component(monitor.ManagerName),
		Health:  a.Statuses,
	})
	if err := a.start(ctx, a.mon); err != nil {
		return err
	}

	a.started = time.Now()
	a.initialized.Store(true)
	a.log.Info().Int("managers", len(a.order)).Str("version", version.String()).Msg("host initialized")
	if _, err := a.bus.Publish(ctx, "core/started", "core", map[string]any{
		"managers": len(a.order),
		"version":  version.String(),
	}); err != nil {
		a.log.Warn().Err(err).Msg("could not announce start")
	}
	return nil
}

// start initializes one manager and registers it, rolling back every
// already-started manager when it fails.
func (a *App) start(ctx context.Context, m Manager) error {
	if err := m.Initialize(ctx); err != nil {
		a.log.Error().Err(err).Str("manager", m.Name()).Msg("manager initialization failed")
		a.teardown(ctx)
		return &initError{manager: m.Name(), cause: err}
	}
	a.order = append(a.order, m)
	a.byName[m.Name()] = m
	return nil
}

// Manager returns the live manager registered under name.
func (a *App) Manager(name string) (Manager, bool) {
	m, ok := a.byName[name]
	return m, ok
}

// Config exposes the configuration manager for collaborators wired
// outside the core (the ops HTTP surface reads http.* from it).
func (a *App) Config() *config.Manager { return a.conf }

// Bus exposes the event bus.
func (a *App) Bus() *eventbus.Bus { return a.bus }

// TaskManager exposes the task manager.
func (a *App) TaskManager() *tasks.Manager { return a.tasks }

// PluginManager exposes the plugin runtime.
func (a *App) PluginManager() *plugin.Manager { return a.plugins }

// Monitor exposes the monitoring manager.
func (a *App) Monitor() *monitor.Manager { return a.mon }

// Logger returns a component-tagged logger from the logging manager,
// or the bootstrap logger before it is up.
func (a *App) Logger(component string) zerolog.Logger {
	if a.logm == nil {
		return logging.Bootstrap().With().Str("component", component).Logger()
	}
	return a.logm.Component(component)
}
