package tasks

import (
	"errors"
	"fmt"
)

type notRunningError struct {
	op string
}

func (e *notRunningError) Error() string {
	return fmt.Sprintf("task manager is not running: %s rejected", e.op)
}

// IsNotRunning reports whether err came from an operation attempted
// before Initialize or after Shutdown.
func IsNotRunning(err error) bool {
	var e *notRunningError
	return errors.As(err, &e)
}

type unknownTaskError struct {
	id string
}

func (e *unknownTaskError) Error() string {
	return fmt.Sprintf("unknown task %q", e.id)
}

// IsUnknownTask reports whether err came from a lookup of a task id the
// manager is not tracking.
func IsUnknownTask(err error) bool {
	var e *unknownTaskError
	return errors.As(err, &e)
}

type cancelledError struct {
	id string
}

func (e *cancelledError) Error() string {
	return fmt.Sprintf("task %q was cancelled before execution", e.id)
}

// IsCancelled reports whether err signals that the task was cancelled
// while still pending.
func IsCancelled(err error) bool {
	var e *cancelledError
	return errors.As(err, &e)
}
