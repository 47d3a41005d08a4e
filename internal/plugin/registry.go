package plugin

import (
	"fmt"
	"sync"
)

// Builtin pairs a compiled-in manifest with its factory.
type Builtin struct {
	Manifest Manifest
	Factory  Factory
}

var (
	regMu    sync.Mutex
	registry []Builtin
)

// Register adds a compiled-in plugin to the package registry, usually
// from the plugin package's init. It panics on an empty name, a nil
// factory, or a duplicate registration, all of which are programmer
// errors.
func Register(m Manifest, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	if m.Name == "" {
		panic("plugin: Register with empty name")
	}
	if f == nil {
		panic(fmt.Sprintf("plugin: Register %q with nil factory", m.Name))
	}
	for _, b := range registry {
		if b.Manifest.Name == m.Name {
			panic(fmt.Sprintf("plugin: Register called twice for %q", m.Name))
		}
	}
	registry = append(registry, Builtin{Manifest: m, Factory: f})
}

// Builtins snapshots the package registry in registration order.
func Builtins() []Builtin {
	regMu.Lock()
	defer regMu.Unlock()
	return append([]Builtin(nil), registry...)
}
