package core

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/BranchIntl/silex/errors"
)

// LoopResult tells a worker whether to run its loop again
type LoopResult int

const (
	// Continue runs another iteration unless the signal is set
	Continue LoopResult = iota
	// Exit ends the worker goroutine
	Exit
)

// WorkerLoop is the unit of work every worker goroutine executes repeatedly.
//
// RunOnce performs one iteration, typically a bounded pop from a queue
// followed by processing of the retrieved item. It should return within a
// bounded time so the worker observes the engine's signal; a loop blocked in
// an unbounded call is never interrupted by Stop.
//
// A multi-worker engine calls the same WorkerLoop value from every worker
// concurrently, so implementations must keep mutable state per worker or
// synchronize it.
type WorkerLoop interface {
	RunOnce(w *Worker) (LoopResult, error)
}

// WorkerLoopFunc adapts a function to the WorkerLoop interface
type WorkerLoopFunc func(w *Worker) (LoopResult, error)

// RunOnce calls f(w)
func (f WorkerLoopFunc) RunOnce(w *Worker) (LoopResult, error) {
	return f(w)
}

// Worker is the handle of one worker goroutine. Handles are created when an
// engine starts and are never recreated.
type Worker struct {
	name     string
	index    int
	hostname string
	pid      int
	signal   *Signal
	logger   *slog.Logger

	startTime time.Time
	done      chan struct{}
}

func newWorker(name string, index int, signal *Signal, logger *slog.Logger) *Worker {
	hostname, _ := os.Hostname()

	return &Worker{
		name:     name,
		index:    index,
		hostname: hostname,
		pid:      os.Getpid(),
		signal:   signal,
		logger:   logger.With("worker", name),
		done:     make(chan struct{}),
	}
}

// Name returns the worker's name
func (w *Worker) Name() string {
	return w.name
}

// Index returns the worker's position in its engine
func (w *Worker) Index() int {
	return w.index
}

// ID returns a process-wide unique identifier
func (w *Worker) ID() string {
	return fmt.Sprintf("%s:%d-%s", w.hostname, w.pid, w.name)
}

// Signal returns the engine's cancellation signal
func (w *Worker) Signal() *Signal {
	return w.signal
}

// Stopping reports whether the engine asked its workers to stop
func (w *Worker) Stopping() bool {
	return w.signal.IsSet()
}

// Context is cancelled when the engine stops
func (w *Worker) Context() context.Context {
	return w.signal.Context()
}

// Logger returns a logger scoped to this worker
func (w *Worker) Logger() *slog.Logger {
	return w.logger
}

// StartTime returns when the worker goroutine was spawned
func (w *Worker) StartTime() time.Time {
	return w.startTime
}

// IsAlive reports whether the worker goroutine is still executing
func (w *Worker) IsAlive() bool {
	if w.startTime.IsZero() {
		return false
	}
	select {
	case <-w.done:
		return false
	default:
		return true
	}
}

// Done is closed when the worker goroutine returns
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// work runs the loop until the signal is set or the loop exits. It must be
// called on its own goroutine.
func (w *Worker) work(loop WorkerLoop) {
	defer close(w.done)

	w.logger.Debug("Worker started", "id", w.ID())

	for !w.signal.IsSet() {
		result, crashed, err := w.runOnce(loop)
		if crashed {
			w.logger.Error("Worker crashed", "error", err)
			return
		}
		if err != nil {
			w.logger.Error("Worker iteration failed", "error", err)
		}
		if result == Exit {
			w.logger.Debug("Worker loop exited")
			return
		}
	}

	w.logger.Debug("Worker stopping", "id", w.ID())
}

// runOnce executes one iteration with panic recovery
func (w *Worker) runOnce(loop WorkerLoop) (result LoopResult, crashed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = Exit
			err = errors.NewWorkerError(w.name, fmt.Errorf("panic: %v", r))
			crashed = true
		}
	}()

	result, err = loop.RunOnce(w)
	return result, false, err
}
