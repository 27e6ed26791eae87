package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/BranchIntl/silex/errors"
	"github.com/google/uuid"
)

// engine holds the state machine and worker pool shared by SingleEngine and
// MultiEngine. The number of workers is fixed when the engine is built.
type engine struct {
	config *Config
	id     string
	loop   WorkerLoop
	names  []string

	status atomic.Int32
	signal *Signal
	pool   *WorkerPool
	logger *slog.Logger
}

func newEngine(loop WorkerLoop, config *Config, names []string) *engine {
	id := uuid.NewString()
	logger := config.Logger.With("engine", config.Name, "engine_id", id)

	return &engine{
		config: config,
		id:     id,
		loop:   loop,
		names:  names,
		signal: newSignal(),
		pool:   NewWorkerPool(logger),
		logger: logger,
	}
}

// Name returns the engine name
func (e *engine) Name() string {
	return e.config.Name
}

// ID returns the unique identifier of this engine instance
func (e *engine) ID() string {
	return e.id
}

// Status returns the current lifecycle status
func (e *engine) Status() Status {
	return Status(e.status.Load())
}

// IsRunning reports whether the engine has been started and not stopped
func (e *engine) IsRunning() bool {
	return e.Status() == StatusRunning
}

// Signal returns the cancellation signal shared by the engine's workers
func (e *engine) Signal() *Signal {
	return e.signal
}

// Start spawns the workers and returns immediately. An engine can be started
// once; starting it again, including after Stop, returns ErrAlreadyStarted.
func (e *engine) Start() error {
	if e.loop == nil {
		return errors.ErrNilWorkerLoop
	}

	if !e.status.CompareAndSwap(int32(StatusReady), int32(StatusRunning)) {
		return errors.ErrAlreadyStarted
	}

	e.pool.Start(e.loop, e.signal, e.names)

	e.logger.Info("Engine started", "workers", len(e.names))
	return nil
}

// Stop raises the cancellation signal and marks the engine stopped. Workers
// observe the signal at their next iteration boundary.
//
// With force true Stop returns right away. With force false it waits for the
// workers to exit, up to the shutdown timeout, and returns an error wrapping
// ErrTimeout if some are still running. Stop before Start returns
// ErrNotStarted; stopping a stopped engine is a no-op.
func (e *engine) Stop(force bool) error {
	switch e.Status() {
	case StatusReady:
		return errors.ErrNotStarted
	case StatusStopped:
		return nil
	}

	// The signal is raised before the status flips so a stopped engine
	// always has its signal set.
	e.signal.raise()
	if !e.status.CompareAndSwap(int32(StatusRunning), int32(StatusStopped)) {
		return nil
	}

	if force {
		e.logger.Info("Engine stopped", "force", true)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.config.ShutdownTimeout)
	defer cancel()

	if err := e.pool.Wait(ctx); err != nil {
		active := e.pool.ActiveWorkers()
		e.logger.Warn("Engine shutdown timeout exceeded", "active_workers", active)
		return fmt.Errorf("%w: %d workers still running", errors.ErrTimeout, active)
	}

	e.logger.Info("Engine stopped gracefully")
	return nil
}

// AwaitStopped polls e.IsThreadAlive every interval until it reports false
// or ctx ends.
func AwaitStopped(ctx context.Context, e Engine, interval time.Duration) error {
	if !e.IsThreadAlive() {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !e.IsThreadAlive() {
				return nil
			}
		}
	}
}
