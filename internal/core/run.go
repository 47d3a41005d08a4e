package core

import (
	"context"
	"fmt"
	"time"

	"nucleusd/internal/eventbus"
)

// Run blocks until ctx is cancelled, then drains the host bounded by
// the shutdown timeout. The command layer derives ctx from
// SIGINT/SIGTERM; tests cancel it programmatically and get the same
// path.
func (a *App) Run(ctx context.Context) error {
	<-ctx.Done()
	a.log.Info().Msg("termination requested")
	sctx, cancel := context.WithTimeout(context.Background(), a.opts.ShutdownTimeout)
	defer cancel()
	return a.Shutdown(sctx)
}

// Shutdown drains every initialized manager in reverse order. It is
// idempotent: a second call is a no-op returning nil. Individual
// manager failures are logged and never abort the rest of the
// sequence.
func (a *App) Shutdown(ctx context.Context) error {
	if a.stopped.Swap(true) {
		return nil
	}
	a.initialized.Store(false)
	if a.bus != nil {
		// Best-effort, synchronous so subscribers see it before the bus
		// itself goes down.
		if _, err := a.bus.Publish(ctx, "core/stopping", "core", map[string]any{
			"uptime": time.Since(a.started).String(),
		}, eventbus.Sync()); err != nil {
			a.log.Debug().Err(err).Msg("could not announce stop")
		}
	}
	a.teardown(ctx)
	a.log.Info().Msg("host stopped")
	return nil
}

// teardown shuts the started managers down in reverse order, swallowing
// (but logging) per-manager failures. Also the rollback path for a
// failed Initialize.
func (a *App) teardown(ctx context.Context) {
	for i := len(a.order) - 1; i >= 0; i-- {
		m := a.order[i]
		if err := a.shutdownOne(ctx, m); err != nil {
			a.log.Error().Err(err).Str("manager", m.Name()).Msg("manager shutdown failed")
		}
	}
	a.order = nil
	a.byName = make(map[string]Manager)
}

// shutdownOne contains a panicking Shutdown so one broken manager
// cannot stop the drain.
func (a *App) shutdownOne(ctx context.Context, m Manager) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return m.Shutdown(ctx)
}
