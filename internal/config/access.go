package config

import (
	"crypto/sha256"
	"fmt"
	"os"
	"strings"
	"time"
)

// Get returns the value at the dotted key.
func (m *Manager) Get(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lookup(m.tree, key)
}

// GetOr returns the value at the dotted key, or def when absent.
func (m *Manager) GetOr(key string, def any) any {
	if v, ok := m.Get(key); ok {
		return v
	}
	return def
}

// String returns the string at key, or def when absent or not a string.
func (m *Manager) String(key, def string) string {
	v, ok := m.Get(key)
	if !ok {
		return def
	}
	return coerceString(v, def)
}

// Int returns the integer at key, or def when absent or non-numeric.
func (m *Manager) Int(key string, def int) int {
	v, ok := m.Get(key)
	if !ok {
		return def
	}
	return coerceInt(v, def)
}

// Bool returns the boolean at key, or def when absent or not a bool.
func (m *Manager) Bool(key string, def bool) bool {
	v, ok := m.Get(key)
	if !ok {
		return def
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

// Duration returns the duration at key. String values use
// time.ParseDuration syntax; bare numbers are taken as seconds.
func (m *Manager) Duration(key string, def time.Duration) time.Duration {
	v, ok := m.Get(key)
	if !ok {
		return def
	}
	return coerceDuration(v, def)
}

// Strings returns the string slice at key, or nil when absent.
func (m *Manager) Strings(key string) []string {
	v, ok := m.Get(key)
	if !ok {
		return nil
	}
	return coerceStrings(v)
}

// Set stores value at the dotted key, creating intermediate maps (and
// replacing non-map intermediates), then notifies matching listeners.
func (m *Manager) Set(key string, value any) error {
	if key == "" {
		return fmt.Errorf("config: empty key")
	}
	m.mu.Lock()
	parts := strings.Split(key, ".")
	cur := m.tree
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[p] = next
		}
		cur = next
	}
	leaf := parts[len(parts)-1]
	old := cur[leaf]
	cur[leaf] = value
	m.mu.Unlock()
	m.notify(key, old, value)
	return nil
}

// Save writes the current tree back to the backing file atomically and
// records the content hash so the watcher skips our own write.
func (m *Manager) Save() error {
	m.mu.RLock()
	file := m.file
	if file == "" {
		m.mu.RUnlock()
		return noFileError{}
	}
	b, err := encodeTree(file, m.tree)
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	tmp := file + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, file); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	m.mu.Lock()
	m.lastSum = sha256.Sum256(b)
	m.haveSum = true
	m.mu.Unlock()
	return nil
}

func lookup(tree map[string]any, key string) (any, bool) {
	if key == "" {
		return nil, false
	}
	cur := any(tree)
	for _, p := range strings.Split(key, ".") {
		node, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = node[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func coerceString(v any, def string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

// coerceInt handles the numeric types the three codecs produce
// (yaml: int, json: float64, toml: int64).
func coerceInt(v any, def int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	case float32:
		return int(n)
	}
	return def
}

func coerceDuration(v any, def time.Duration) time.Duration {
	switch d := v.(type) {
	case string:
		if parsed, err := time.ParseDuration(d); err == nil {
			return parsed
		}
		return def
	case int:
		return time.Duration(d) * time.Second
	case int64:
		return time.Duration(d) * time.Second
	case float64:
		return time.Duration(d * float64(time.Second))
	}
	return def
}

func coerceStrings(v any) []string {
	switch list := v.(type) {
	case []string:
		out := make([]string, len(list))
		copy(out, list)
		return out
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
