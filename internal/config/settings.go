package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Settings is the typed projection of the tree that the host validates
// at startup and after every reload.
type Settings struct {
	Logging struct {
		Level  string `validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
		Format string `validate:"omitempty,oneof=auto json console"`
		File   string
	}
	EventBus struct {
		ThreadPoolSize int           `validate:"gte=1,lte=256"`
		MaxQueueSize   int           `validate:"gte=1"`
		PublishTimeout time.Duration `validate:"gte=0"`
	}
	ThreadPool struct {
		WorkerThreads int           `validate:"gte=1,lte=1024"`
		MaxQueueSize  int           `validate:"gte=1"`
		JoinTimeout   time.Duration `validate:"gte=0"`
	}
	Plugins struct {
		Directory string
		Autoload  bool
		Enabled   []string
		Disabled  []string
	}
	Monitoring struct {
		Enabled       bool
		Interval      time.Duration `validate:"gte=0"`
		MaxGoroutines int           `validate:"gte=0"`
		MaxHeapMB     int           `validate:"gte=0"`
	}
	HTTP struct {
		Enabled bool
		Addr    string `validate:"omitempty,hostname_port"`
	}
}

var validate = validator.New()

// Settings builds the typed view from the current tree.
func (m *Manager) Settings() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return settingsFromTree(m.tree)
}

func settingsFromTree(tree map[string]any) Settings {
	var s Settings
	get := func(key string) (any, bool) { return lookup(tree, key) }
	str := func(key, def string) string {
		if v, ok := get(key); ok {
			return coerceString(v, def)
		}
		return def
	}
	num := func(key string, def int) int {
		if v, ok := get(key); ok {
			return coerceInt(v, def)
		}
		return def
	}
	boolean := func(key string, def bool) bool {
		if v, ok := get(key); ok {
			if b, isBool := v.(bool); isBool {
				return b
			}
		}
		return def
	}
	dur := func(key string, def time.Duration) time.Duration {
		if v, ok := get(key); ok {
			return coerceDuration(v, def)
		}
		return def
	}
	strs := func(key string) []string {
		if v, ok := get(key); ok {
			return coerceStrings(v)
		}
		return nil
	}

	s.Logging.Level = str("logging.level", "info")
	s.Logging.Format = str("logging.format", "auto")
	s.Logging.File = str("logging.file", "")
	s.EventBus.ThreadPoolSize = num("event_bus.thread_pool_size", 4)
	s.EventBus.MaxQueueSize = num("event_bus.max_queue_size", 1000)
	s.EventBus.PublishTimeout = dur("event_bus.publish_timeout", 5*time.Second)
	s.ThreadPool.WorkerThreads = num("thread_pool.worker_threads", 4)
	s.ThreadPool.MaxQueueSize = num("thread_pool.max_queue_size", 256)
	s.ThreadPool.JoinTimeout = dur("thread_pool.join_timeout", 5*time.Second)
	s.Plugins.Directory = str("plugins.directory", "./plugins")
	s.Plugins.Autoload = boolean("plugins.autoload", true)
	s.Plugins.Enabled = strs("plugins.enabled")
	s.Plugins.Disabled = strs("plugins.disabled")
	s.Monitoring.Enabled = boolean("monitoring.enabled", true)
	s.Monitoring.Interval = dur("monitoring.interval", 30*time.Second)
	s.Monitoring.MaxGoroutines = num("monitoring.max_goroutines", 5000)
	s.Monitoring.MaxHeapMB = num("monitoring.max_heap_mb", 1024)
	s.HTTP.Enabled = boolean("http.enabled", true)
	s.HTTP.Addr = str("http.addr", "127.0.0.1:8420")
	return s
}

// validateTree rejects configurations the host cannot run with.
func validateTree(tree map[string]any) error {
	if err := validate.Struct(settingsFromTree(tree)); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
