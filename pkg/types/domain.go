package types

import "time"

// TaskInfo is the external view of one tracked task.
type TaskInfo struct {
	// Unique task id.
	// example: 6f1c0a2e-7f39-4af5-9a0b-2d1f9f2b8c11
	ID string `json:"id" example:"6f1c0a2e-7f39-4af5-9a0b-2d1f9f2b8c11"`
	// Human-friendly task name.
	// example: periodic-monitor-sample
	Name string `json:"name" example:"periodic-monitor-sample"`
	// Lifecycle status (pending, running, completed, failed, cancelled).
	// example: completed
	Status string `json:"status" example:"completed"`
	// Identity of the submitter.
	// example: monitoring
	Submitter string `json:"submitter,omitempty" example:"monitoring"`
	// Priority hint; higher runs sooner when the pool is contended.
	// example: 0
	Priority int `json:"priority,omitempty" example:"0"`
	// Submission time.
	CreatedAt time.Time `json:"created_at"`
	// Time the worker picked the task up.
	StartedAt *time.Time `json:"started_at,omitempty"`
	// Time the task reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// Captured failure text for failed tasks.
	Error string `json:"error,omitempty"`
}

// PluginInfo is the external view of one discovered plugin.
type PluginInfo struct {
	// Unique plugin name.
	// example: pulse
	Name string `json:"name" example:"pulse"`
	// Semantic version string from the manifest.
	// example: 1.0.0
	Version string `json:"version" example:"1.0.0"`
	// Human description.
	Description string `json:"description,omitempty"`
	// Author from the manifest.
	Author string `json:"author,omitempty"`
	// Names of plugins this one depends on.
	Dependencies []string `json:"dependencies,omitempty"`
	// Lifecycle state (discovered, active, inactive, failed, disabled).
	// example: active
	State string `json:"state" example:"active"`
	// Last load error, retained until a successful load.
	Error string `json:"error,omitempty"`
	// Where the plugin was discovered (builtin or directory).
	// example: builtin
	Origin string `json:"origin" example:"builtin"`
	// Whether the plugin is on the persisted enabled list.
	// example: true
	Enabled bool `json:"enabled" example:"true"`
	// Time of the last successful load.
	LoadedAt *time.Time `json:"loaded_at,omitempty"`
}
