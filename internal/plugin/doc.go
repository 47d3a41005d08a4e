// Package plugin discovers, loads, and unloads extension units and
// tracks each one through an explicit lifecycle state machine.
//
// Files:
//   - plugin.go: manifest, instance contract, host handles, record
//   - registry.go: the builtin factory registry
//   - discovery.go: directory manifest scan and source merging
//   - manager.go: Manager type, lifecycle, views, status
//   - load.go: depth-first dependency-closure loading
//   - unload.go: unload, reload, shutdown ordering
//   - enable.go: persisted enable/disable lists and bus commands
//   - errors.go: typed errors and their predicates
//
// Load, Unload, Enable, and Disable run synchronously on the calling
// goroutine and are meant to be driven from one control goroutine;
// they are not re-entrant against concurrent operations on the same
// plugin name. Record fields are lock-guarded so concurrent readers
// (Status, Info) always see a consistent view.
package plugin
