// Package eventbus implements the in-process publish/subscribe manager:
// exact and wildcard subscriptions with optional payload filters,
// synchronous delivery on the publisher's goroutine, and asynchronous
// delivery through a bounded queue drained by a fixed worker pool. It is
// structured into small files by concern:
//
//   - bus.go: Bus type, Config and defaults, lifecycle (Initialize/Shutdown/Status).
//   - event.go: the immutable Event record.
//   - subscription.go: subscription records and filter matching.
//   - publish.go: Publish entry point, options, queue admission.
//   - subscribe.go: Subscribe/Unsubscribe and options.
//   - worker.go: worker loop and panic-contained delivery.
//   - errors.go: error types and helpers (IsNotRunning, IsQueueFull).
//
// Ordering: synchronous publish preserves the publisher goroutine's
// program order. Asynchronous delivery preserves enqueue order per
// worker only; with more than one worker there is no cross-worker
// ordering guarantee.
package eventbus
