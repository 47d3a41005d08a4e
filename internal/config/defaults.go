package config

// defaultEnvPrefix is the prefix for environment overrides.
const defaultEnvPrefix = "NUCLEUS_"

// defaultTree is the single source of truth for tunables; the file and
// environment layers override it.
func defaultTree() map[string]any {
	return map[string]any{
		"logging": map[string]any{
			"level":  "info",
			"format": "auto",
			"file":   "",
		},
		"event_bus": map[string]any{
			"thread_pool_size": 4,
			"max_queue_size":   1000,
			"publish_timeout":  "5s",
		},
		"thread_pool": map[string]any{
			"worker_threads": 4,
			"max_queue_size": 256,
			"join_timeout":   "5s",
		},
		"plugins": map[string]any{
			"directory": "./plugins",
			"autoload":  true,
			"enabled":   []any{},
			"disabled":  []any{},
		},
		"monitoring": map[string]any{
			"enabled":        true,
			"interval":       "30s",
			"max_goroutines": 5000,
			"max_heap_mb":    1024,
		},
		"http": map[string]any{
			"enabled": true,
			"addr":    "127.0.0.1:8420",
		},
	}
}
