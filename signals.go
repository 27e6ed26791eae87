package silex

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// WaitForShutdown blocks until ctx is done or the process receives SIGINT,
// SIGTERM or SIGQUIT. It returns the received signal, or nil when ctx ended
// first.
func WaitForShutdown(ctx context.Context) os.Signal {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGQUIT, syscall.SIGTERM, os.Interrupt)
	defer signal.Stop(signals)

	select {
	case sig := <-signals:
		return sig
	case <-ctx.Done():
		return nil
	}
}
