package plugin

import (
	"time"

	"github.com/rs/zerolog"

	"nucleusd/internal/config"
	"nucleusd/internal/eventbus"
	"nucleusd/internal/tasks"
	"nucleusd/pkg/types"
)

// State is the lifecycle state of one plugin.
type State string

const (
	StateDiscovered State = "discovered"
	StateActive     State = "active"
	StateInactive   State = "inactive"
	StateFailed     State = "failed"
	StateDisabled   State = "disabled"
)

// Origin records which discovery source produced a plugin.
type Origin string

const (
	OriginBuiltin   Origin = "builtin"
	OriginDirectory Origin = "directory"
)

// Manifest describes a plugin: identity, authorship, and the names of
// the plugins it depends on. Directory manifests may name a registered
// factory; when Factory is empty the plugin name is used.
type Manifest struct {
	Name         string   `yaml:"name" json:"name"`
	Version      string   `yaml:"version" json:"version"`
	Description  string   `yaml:"description" json:"description"`
	Author       string   `yaml:"author" json:"author"`
	Dependencies []string `yaml:"dependencies" json:"dependencies"`
	Factory      string   `yaml:"factory" json:"factory"`
}

// Host carries the collaborator handles a plugin instance receives at
// initialization.
type Host struct {
	Bus    *eventbus.Bus
	Config *config.Manager
	Tasks  *tasks.Manager
	Log    zerolog.Logger
}

// Instance is the contract a loaded plugin implementation fulfills.
type Instance interface {
	Initialize(host Host) error
	Shutdown() error
}

// Factory constructs a fresh instance. Reload calls it again instead of
// reusing the old instance.
type Factory func() Instance

// record is the tracked entry for one discovered plugin. The manifest,
// factory, and origin are fixed at discovery; the mutable fields are
// guarded by the manager's lock.
type record struct {
	manifest     Manifest
	factoryName  string
	factory      Factory
	origin       Origin
	manifestPath string

	state    State
	instance Instance
	lastErr  string
	loadedAt time.Time
}

// view projects the record into the external view type. Callers hold
// the manager lock.
func (r *record) view(enabled bool) types.PluginInfo {
	info := types.PluginInfo{
		Name:         r.manifest.Name,
		Version:      r.manifest.Version,
		Description:  r.manifest.Description,
		Author:       r.manifest.Author,
		Dependencies: append([]string(nil), r.manifest.Dependencies...),
		State:        string(r.state),
		Error:        r.lastErr,
		Origin:       string(r.origin),
		Enabled:      enabled,
	}
	if !r.loadedAt.IsZero() {
		ts := r.loadedAt
		info.LoadedAt = &ts
	}
	return info
}
