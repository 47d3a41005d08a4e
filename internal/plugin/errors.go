package plugin

import (
	"errors"
	"fmt"
	"strings"
)

type notRunningError struct {
	op string
}

func (e *notRunningError) Error() string {
	return fmt.Sprintf("plugin manager is not running: %s rejected", e.op)
}

// IsNotRunning reports whether err came from an operation attempted
// before Initialize or after Shutdown.
func IsNotRunning(err error) bool {
	var e *notRunningError
	return errors.As(err, &e)
}

type unknownPluginError struct {
	name string
}

func (e *unknownPluginError) Error() string {
	return fmt.Sprintf("unknown plugin %q", e.name)
}

// IsUnknownPlugin reports whether err names a plugin no discovery
// source produced.
func IsUnknownPlugin(err error) bool {
	var e *unknownPluginError
	return errors.As(err, &e)
}

type disabledError struct {
	name string
}

func (e *disabledError) Error() string {
	return fmt.Sprintf("plugin %q is disabled", e.name)
}

// IsPluginDisabled reports whether err came from loading a plugin on
// the persisted disabled list.
func IsPluginDisabled(err error) bool {
	var e *disabledError
	return errors.As(err, &e)
}

type dependencyError struct {
	plugin     string
	dependency string
	cause      error
}

func (e *dependencyError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("plugin %q dependency %q not found", e.plugin, e.dependency)
	}
	return fmt.Sprintf("plugin %q dependency %q failed to load: %v", e.plugin, e.dependency, e.cause)
}

func (e *dependencyError) Unwrap() error { return e.cause }

// IsDependencyFailure reports whether err came from a missing or
// failing dependency during a load.
func IsDependencyFailure(err error) bool {
	var e *dependencyError
	return errors.As(err, &e)
}

type cycleError struct {
	path []string
}

func (e *cycleError) Error() string {
	return fmt.Sprintf("plugin dependency cycle: %s", strings.Join(e.path, " -> "))
}

// IsDependencyCycle reports whether err came from cyclic dependency
// declarations.
func IsDependencyCycle(err error) bool {
	var e *cycleError
	return errors.As(err, &e)
}

type blockedError struct {
	name       string
	dependents []string
}

func (e *blockedError) Error() string {
	return fmt.Sprintf("cannot unload plugin %q: still required by %s", e.name, strings.Join(e.dependents, ", "))
}

// IsUnloadBlocked reports whether err came from unloading a plugin that
// active plugins still depend on.
func IsUnloadBlocked(err error) bool {
	var e *blockedError
	return errors.As(err, &e)
}
