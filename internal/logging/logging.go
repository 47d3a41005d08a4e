// Package logging implements the logging manager: it builds the root
// zerolog logger from configuration (level, console/JSON format,
// optional file sink) and hands per-component child loggers to the rest
// of the host. The level hot-applies on config changes through the
// global zerolog level; format and file changes require a restart.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"nucleusd/internal/common/fsutil"
	"nucleusd/internal/config"
	"nucleusd/pkg/types"
)

// ManagerName is the key the orchestrator registers this manager under.
const ManagerName = "logging"

// Manager owns the root logger. Components must not construct their own
// zerolog instances; they receive children via Component.
type Manager struct {
	cfg *config.Manager

	mu     sync.RWMutex
	root   zerolog.Logger
	level  zerolog.Level
	format string
	file   string
	sink   *os.File

	out         io.Writer // test override; nil means stderr
	initialized atomic.Bool
}

// Option tunes Manager construction.
type Option func(*Manager)

// WithOutput redirects log output, bypassing terminal detection. Used
// by tests.
func WithOutput(w io.Writer) Option {
	return func(m *Manager) { m.out = w }
}

// New constructs the logging manager over the configuration manager.
func New(cfg *config.Manager, opts ...Option) *Manager {
	m := &Manager{cfg: cfg, root: Bootstrap()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Bootstrap returns the logger used before the manager is initialized:
// same output selection as the manager, info level, no file sink.
func Bootstrap() zerolog.Logger {
	return build("auto", os.Stderr, nil)
}

// Name implements the manager contract.
func (m *Manager) Name() string { return ManagerName }

// Initialize builds the root logger from configuration and registers
// the hot-reload listener for the logging.* keys.
func (m *Manager) Initialize(ctx context.Context) error {
	if m.initialized.Load() {
		return nil
	}
	s := m.cfg.Settings()
	level, err := zerolog.ParseLevel(s.Logging.Level)
	if err != nil {
		return fmt.Errorf("logging level %q: %w", s.Logging.Level, err)
	}

	var fileSink *os.File
	if s.Logging.File != "" {
		path, err := fsutil.ExpandHome(s.Logging.File)
		if err != nil {
			return fmt.Errorf("logging file: %w", err)
		}
		if err := fsutil.EnsureDir(filepath.Dir(path)); err != nil {
			return err
		}
		fileSink, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
	}

	base := m.out
	if base == nil {
		base = os.Stderr
	}

	m.mu.Lock()
	m.level = level
	m.format = s.Logging.Format
	m.file = s.Logging.File
	m.sink = fileSink
	m.root = build(s.Logging.Format, base, fileSink)
	m.mu.Unlock()

	zerolog.SetGlobalLevel(level)
	m.cfg.RegisterListener("logging.", m.onConfigChange)
	m.initialized.Store(true)
	log := m.Component(ManagerName)
	log.Debug().
		Str("level", level.String()).
		Str("format", s.Logging.Format).
		Str("file", s.Logging.File).
		Msg("logging configured")
	return nil
}

// Shutdown closes the file sink. The root logger keeps working on the
// base writer so late shutdown messages still land somewhere.
func (m *Manager) Shutdown(ctx context.Context) error {
	if !m.initialized.Swap(false) {
		return nil
	}
	m.mu.Lock()
	sink := m.sink
	m.sink = nil
	m.mu.Unlock()
	if sink != nil {
		if err := sink.Close(); err != nil {
			return fmt.Errorf("close log file: %w", err)
		}
	}
	return nil
}

// Status implements the manager contract.
func (m *Manager) Status() types.ManagerStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	init := m.initialized.Load()
	return types.ManagerStatus{
		Name:        ManagerName,
		Initialized: init,
		Healthy:     init,
		Details: map[string]any{
			"level":  zerolog.GlobalLevel().String(),
			"format": m.format,
			"file":   m.file,
		},
	}
}

// Component returns a child logger tagged with the component name.
func (m *Manager) Component(name string) zerolog.Logger {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.root.With().Str("component", name).Logger()
}

// onConfigChange hot-applies logging.level; everything else under
// logging.* takes effect on the next start.
func (m *Manager) onConfigChange(key string, old, new any) {
	log := m.Component(ManagerName)
	if key != "logging.level" {
		log.Warn().Str("key", key).Msg("logging change requires restart")
		return
	}
	s, _ := new.(string)
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		log.Warn().Str("value", s).Msg("ignoring invalid log level")
		return
	}
	zerolog.SetGlobalLevel(level)
	m.mu.Lock()
	m.level = level
	m.mu.Unlock()
	log.Info().Str("level", level.String()).Msg("log level changed")
}

// build assembles a logger: console rendering when the format asks for
// it (or auto-detects a terminal), raw JSON otherwise, with an optional
// file sink that always receives JSON.
func build(format string, base io.Writer, fileSink io.Writer) zerolog.Logger {
	var out io.Writer = base
	console := format == "console"
	if format == "auto" || format == "" {
		if f, ok := base.(*os.File); ok {
			console = isatty.IsTerminal(f.Fd())
		}
	}
	if console {
		out = zerolog.ConsoleWriter{Out: base, TimeFormat: time.RFC3339}
	}
	if fileSink != nil {
		out = zerolog.MultiLevelWriter(out, fileSink)
	}
	return zerolog.New(out).With().Timestamp().Logger()
}
