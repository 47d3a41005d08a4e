package config

import "strings"

// ListenerFunc observes one changed key. old is nil for new keys, new
// is nil for removed keys.
type ListenerFunc func(key string, old, new any)

type listener struct {
	prefix string
	fn     ListenerFunc
}

// RegisterListener calls fn for every Set or watched-file change whose
// key starts with prefix. An empty prefix matches every key.
func (m *Manager) RegisterListener(prefix string, fn ListenerFunc) {
	m.lmu.Lock()
	defer m.lmu.Unlock()
	m.listeners = append(m.listeners, listener{prefix: prefix, fn: fn})
}

// notify runs outside the tree lock so listeners can call Get/Set. A
// listener that panics is logged and does not stop the others.
func (m *Manager) notify(key string, old, new any) {
	m.lmu.RLock()
	ls := make([]listener, len(m.listeners))
	copy(ls, m.listeners)
	m.lmu.RUnlock()
	for _, l := range ls {
		if l.prefix != "" && !strings.HasPrefix(key, l.prefix) {
			continue
		}
		m.invokeListener(l, key, old, new)
	}
}

func (m *Manager) invokeListener(l listener, key string, old, new any) {
	defer func() {
		if r := recover(); r != nil {
			m.logger().Error().Str("key", key).Interface("panic", r).Msg("config listener panicked")
		}
	}()
	l.fn(key, old, new)
}
