package eventbus

import (
	"errors"
	"fmt"
	"time"
)

// notRunningError signals use of the bus before Initialize or after Shutdown.
type notRunningError struct{ op string }

func (e *notRunningError) Error() string { return "event bus not running: " + e.op }

// IsNotRunning reports whether err means the bus was not initialized.
func IsNotRunning(err error) bool {
	var e *notRunningError
	return errors.As(err, &e)
}

// queueFullError signals publish backpressure: the queue stayed full for
// the whole configured wait.
type queueFullError struct {
	size int
	wait time.Duration
}

func (e *queueFullError) Error() string {
	return fmt.Sprintf("event queue full (%d entries) after %s", e.size, e.wait)
}

// IsQueueFull reports whether err indicates publish backpressure.
func IsQueueFull(err error) bool {
	var e *queueFullError
	return errors.As(err, &e)
}
