package core

import (
	"context"
	"time"
)

// Engine is the lifecycle surface shared by single- and multi-worker engines
type Engine interface {
	// Start moves the engine from ready to running and spawns its workers.
	// It does not wait for them.
	Start() error

	// Stop moves the engine to stopped and raises the cancellation signal.
	// With force false it also waits for the workers to exit, bounded by
	// the shutdown timeout.
	Stop(force bool) error

	// IsRunning reports whether the status is running
	IsRunning() bool

	// IsThreadAlive reports whether any worker goroutine is still executing
	IsThreadAlive() bool

	Status() Status
	Name() string
}

// Queue is what worker loops need from an external durable queue
type Queue interface {
	// Push appends message to the named queue
	Push(ctx context.Context, queue string, message string) error

	// Pop removes the oldest message of the named queue, waiting up to
	// timeout for one to arrive. It returns ok == false and a nil error
	// when the wait times out.
	Pop(ctx context.Context, queue string, timeout time.Duration) (message string, ok bool, err error)
}

// Broker is a Queue with connection management
type Broker interface {
	Queue

	Connect(ctx context.Context) error
	Close() error
	Health() error
	Type() string
}
