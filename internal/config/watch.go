package config

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/fsnotify/fsnotify"
)

// startWatch watches the backing file's directory (editors replace
// files, which would drop a watch on the file itself) and reloads on
// writes to the file.
func (m *Manager) startWatch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	dir := filepath.Dir(m.file)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	done := make(chan struct{})
	m.mu.Lock()
	m.watcher = w
	m.watchDone = done
	m.mu.Unlock()
	go m.watchLoop(w, done)
	return nil
}

func (m *Manager) stopWatch() {
	m.mu.Lock()
	w, done := m.watcher, m.watchDone
	m.watcher = nil
	m.watchDone = nil
	m.mu.Unlock()
	if w == nil {
		return
	}
	_ = w.Close()
	<-done
}

func (m *Manager) watchLoop(w *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(m.File()) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			m.reloadFile()
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			m.logger().Warn().Err(err).Msg("config watcher error")
		}
	}
}

// reloadFile re-layers defaults, the changed file, and the environment,
// keeps the previous tree when the new one fails validation, and fires
// listeners for every key whose value changed.
func (m *Manager) reloadFile() {
	file := m.File()
	b, err := os.ReadFile(file)
	if err != nil {
		m.logger().Warn().Err(err).Str("file", file).Msg("config reload read failed")
		return
	}
	sum := sha256.Sum256(b)
	m.mu.RLock()
	unchanged := m.haveSum && sum == m.lastSum
	m.mu.RUnlock()
	if unchanged {
		return
	}
	loaded, err := decodeBytes(file, b)
	if err != nil {
		m.logger().Error().Err(err).Str("file", file).Msg("config reload failed, keeping previous configuration")
		return
	}
	tree := defaultTree()
	deepMerge(tree, loaded)
	overlayEnv(tree, os.Environ(), m.envPrefix)
	if err := validateTree(tree); err != nil {
		m.logger().Error().Err(err).Str("file", file).Msg("config reload rejected, keeping previous configuration")
		return
	}

	m.mu.Lock()
	oldFlat := map[string]any{}
	flatten(m.tree, "", oldFlat)
	m.tree = tree
	m.lastSum = sum
	m.haveSum = true
	newFlat := map[string]any{}
	flatten(m.tree, "", newFlat)
	m.mu.Unlock()

	changed := 0
	for key, nv := range newFlat {
		ov, had := oldFlat[key]
		if !had || !reflect.DeepEqual(ov, nv) {
			changed++
			m.notify(key, ov, nv)
		}
	}
	for key, ov := range oldFlat {
		if _, still := newFlat[key]; !still {
			changed++
			m.notify(key, ov, nil)
		}
	}
	m.logger().Info().Str("file", file).Int("changed_keys", changed).Msg("configuration reloaded")
}
