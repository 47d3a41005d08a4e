package types

// ManagerStatus is one manager's health snapshot as reported by its
// Status method.
type ManagerStatus struct {
	// Unique manager name.
	// example: event_bus
	Name string `json:"name" example:"event_bus"`
	// Whether Initialize completed successfully.
	// example: true
	Initialized bool `json:"initialized" example:"true"`
	// Whether the manager considers itself healthy.
	// example: true
	Healthy bool `json:"healthy" example:"true"`
	// Error text when the manager is unhealthy or its status call failed.
	Error string `json:"error,omitempty"`
	// Manager-specific counters and gauges.
	Details map[string]any `json:"details,omitempty"`
}

// StatusReport aggregates every manager's snapshot.
type StatusReport struct {
	// Whether the host is fully initialized and not shut down.
	// example: true
	Running bool `json:"running" example:"true"`
	// Host version string.
	// example: 0.3.0
	Version string `json:"version,omitempty" example:"0.3.0"`
	// Uptime of the host in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Host time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Per-manager snapshots in initialization order.
	Managers []ManagerStatus `json:"managers"`
}
