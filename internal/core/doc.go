// Package core is the lifecycle orchestrator. It constructs the
// managers in a fixed dependency order (config → logging → event bus →
// tasks → plugins → monitoring), initializes them one by one, and on
// shutdown drains them in reverse. It is structured into small files by
// concern:
//
//   - app.go: App type, Options, construction and the init sequence.
//   - run.go: Run (context-driven lifetime), Shutdown, signal-free teardown.
//   - status.go: per-manager snapshots and the aggregated report.
//   - errors.go: initialization error type and helpers.
//
// The orchestrator is meant to be driven from a single control
// goroutine; Initialize and Shutdown are not safe to call concurrently
// with each other. Shutdown is idempotent.
package core
