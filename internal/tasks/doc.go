// Package tasks runs submitted work on a fixed worker pool and tracks
// every task through an explicit lifecycle.
//
// Files:
//   - manager.go: Manager type, construction, lifecycle, status
//   - task.go: task record and its state transitions
//   - submit.go: submission, cancellation, result retrieval, lookups
//   - worker.go: the pool loop
//   - periodic.go: the recurring-submission scheduler
//   - errors.go: typed errors and their predicates
//
// Submission never blocks: the backlog is unbounded and
// thread_pool.max_queue_size only marks the depth at which the manager
// starts warning. The task table is likewise unbounded — records stay
// until Shutdown so results and history remain queryable, which trades
// memory growth for inspectability. Priority is recorded and reported
// but execution order is FIFO.
package tasks
