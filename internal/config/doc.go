// Package config implements the configuration manager: layered defaults,
// an optional backing file (YAML/JSON/TOML by extension), NUCLEUS_*
// environment overrides, dotted-key access, prefix change listeners, and
// an optional fsnotify reload of the backing file. It is structured into
// small files by concern:
//
//   - config.go: Manager type, options, lifecycle (Initialize/Shutdown/Status).
//   - defaults.go: the default configuration tree.
//   - codec.go: file decode/encode by extension, deep merge, flatten.
//   - access.go: Get/Set and typed accessors over the dotted-key tree.
//   - env.go: environment variable overlay.
//   - listeners.go: prefix-registered change listeners.
//   - watch.go: backing-file watching and reload.
//   - settings.go: typed Settings projection with validation.
//   - errors.go: error types and helpers.
//
// The plugin enable/disable lists are the only state the host persists;
// they are written back through Set + Save. Consumers register listeners
// for their key prefix and decide per key whether a change hot-applies
// or only logs that a restart is required.
package config
