package silex

import (
	"context"
	"log/slog"
	"time"

	"github.com/BranchIntl/silex/core"
)

// livenessInterval is how often Wait checks whether the workers are gone
const livenessInterval = 100 * time.Millisecond

// Wait blocks until ctx is done, a shutdown signal arrives, or every worker
// of a started engine has returned on its own. It does not stop the engine.
func Wait(ctx context.Context, engine core.Engine) {
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	exited := make(chan struct{})
	go func() {
		if core.AwaitStopped(waitCtx, engine, livenessInterval) == nil {
			close(exited)
			cancel()
		}
	}()

	sig := WaitForShutdown(waitCtx)
	select {
	case <-exited:
		slog.Info("All workers exited", "engine", engine.Name())
	default:
		if sig != nil {
			slog.Info("Received signal, shutting down...", "signal", sig, "engine", engine.Name())
		} else {
			slog.Info("Context cancelled, shutting down...", "engine", engine.Name())
		}
	}
}

// Run starts engine, waits as described by Wait and then stops it
// gracefully. It returns the first error from Start or Stop.
func Run(ctx context.Context, engine core.Engine) error {
	if err := engine.Start(); err != nil {
		return err
	}

	Wait(ctx, engine)
	return engine.Stop(false)
}
