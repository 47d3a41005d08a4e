package config

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"nucleusd/internal/common/fsutil"
	"nucleusd/pkg/types"
)

// ManagerName is the key the orchestrator registers this manager under.
const ManagerName = "config"

// Manager owns the layered configuration tree. All access goes through
// dotted keys ("event_bus.max_queue_size"); the tree itself is never
// handed out.
type Manager struct {
	mu      sync.RWMutex
	tree    map[string]any
	file    string
	lastSum [sha256.Size]byte
	haveSum bool

	lmu       sync.RWMutex
	listeners []listener

	logMu sync.RWMutex
	log   zerolog.Logger

	envPrefix string
	watch     bool
	watcher   *fsnotify.Watcher
	watchDone chan struct{}

	initialized atomic.Bool
}

// Option tunes Manager construction.
type Option func(*Manager)

// WithFile points the manager at a backing file to load and persist to.
func WithFile(path string) Option {
	return func(m *Manager) { m.file = path }
}

// WithEnvPrefix overrides the environment override prefix (default NUCLEUS_).
func WithEnvPrefix(prefix string) Option {
	return func(m *Manager) { m.envPrefix = prefix }
}

// WithWatch enables fsnotify reloading of the backing file.
func WithWatch() Option {
	return func(m *Manager) { m.watch = true }
}

// WithLogger sets the bootstrap logger used until the logging manager
// takes over via SetLogger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// New constructs a Manager holding the default tree. Initialize layers
// the backing file and environment on top.
func New(opts ...Option) *Manager {
	m := &Manager{
		tree:      defaultTree(),
		envPrefix: defaultEnvPrefix,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name implements the manager contract.
func (m *Manager) Name() string { return ManagerName }

// Initialize layers the backing file and environment over the defaults,
// validates the result, and starts the file watcher when enabled.
func (m *Manager) Initialize(ctx context.Context) error {
	if m.initialized.Load() {
		return nil
	}
	if m.file != "" {
		expanded, err := fsutil.ExpandHome(m.file)
		if err != nil {
			return fmt.Errorf("config file path: %w", err)
		}
		m.file = expanded
	}

	tree := defaultTree()
	if m.file != "" && fsutil.PathExists(m.file) {
		loaded, err := decodeFile(m.file)
		if err != nil {
			return fmt.Errorf("load config %s: %w", m.file, err)
		}
		deepMerge(tree, loaded)
	} else if m.file != "" {
		m.logger().Warn().Str("file", m.file).Msg("config file not found, using defaults")
	}
	applied := overlayEnv(tree, os.Environ(), m.envPrefix)
	if err := validateTree(tree); err != nil {
		return err
	}

	m.mu.Lock()
	m.tree = tree
	m.mu.Unlock()

	if m.watch && m.file != "" && fsutil.PathExists(m.file) {
		if err := m.startWatch(); err != nil {
			return err
		}
	}
	m.initialized.Store(true)
	m.logger().Debug().
		Str("file", m.file).
		Int("env_overrides", len(applied)).
		Bool("watching", m.watcher != nil).
		Msg("configuration loaded")
	return nil
}

// Shutdown stops the watcher and drops all listeners.
func (m *Manager) Shutdown(ctx context.Context) error {
	if !m.initialized.Swap(false) {
		return nil
	}
	m.stopWatch()
	m.lmu.Lock()
	m.listeners = nil
	m.lmu.Unlock()
	return nil
}

// Status implements the manager contract.
func (m *Manager) Status() types.ManagerStatus {
	m.mu.RLock()
	flat := map[string]any{}
	flatten(m.tree, "", flat)
	file := m.file
	watching := m.watcher != nil
	m.mu.RUnlock()
	m.lmu.RLock()
	listeners := len(m.listeners)
	m.lmu.RUnlock()
	init := m.initialized.Load()
	return types.ManagerStatus{
		Name:        ManagerName,
		Initialized: init,
		Healthy:     init,
		Details: map[string]any{
			"file":      file,
			"keys":      len(flat),
			"listeners": listeners,
			"watching":  watching,
		},
	}
}

// SetLogger swaps the bootstrap logger for the real one once the
// logging manager is up.
func (m *Manager) SetLogger(l zerolog.Logger) {
	m.logMu.Lock()
	m.log = l
	m.logMu.Unlock()
}

func (m *Manager) logger() *zerolog.Logger {
	m.logMu.RLock()
	defer m.logMu.RUnlock()
	l := m.log
	return &l
}

// File returns the backing file path, empty when running on defaults.
func (m *Manager) File() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.file
}
