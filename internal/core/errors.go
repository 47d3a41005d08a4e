package core

import (
	"errors"
	"fmt"
)

type initError struct {
	manager string
	cause   error
}

func (e *initError) Error() string {
	return fmt.Sprintf("core: initialize manager %q: %v", e.manager, e.cause)
}

func (e *initError) Unwrap() error { return e.cause }

// IsInitFailed reports whether err is an orchestrator initialization
// failure.
func IsInitFailed(err error) bool {
	var e *initError
	return errors.As(err, &e)
}

// FailedManager returns the name of the manager whose initialization
// failed, or "" when err is not an initialization failure.
func FailedManager(err error) string {
	var e *initError
	if errors.As(err, &e) {
		return e.manager
	}
	return ""
}
