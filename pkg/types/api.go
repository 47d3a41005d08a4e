package types

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: plugin not found
	Error string `json:"error" example:"plugin not found"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}

// PluginsResponse wraps the list of plugins returned by GET /plugins.
type PluginsResponse struct {
	// All discovered plugins with their current state.
	Plugins []PluginInfo `json:"plugins"`
}

// TasksResponse wraps the list of tasks returned by GET /tasks.
type TasksResponse struct {
	// All tracked tasks, terminal ones included.
	Tasks []TaskInfo `json:"tasks"`
}

// HealthResponse is returned by GET /healthz and GET /readyz.
type HealthResponse struct {
	// Overall verdict: ok or degraded.
	// example: ok
	Status string `json:"status" example:"ok"`
}
