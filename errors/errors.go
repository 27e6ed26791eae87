// Package errors provides error types and utilities for the silex library.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	ErrNotConnected    = errors.New("not connected")
	ErrQueueFull       = errors.New("queue is full")
	ErrTimeout         = errors.New("operation timed out")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrEmptyQueueName  = errors.New("queue name cannot be empty")
	ErrNilWorkerLoop   = errors.New("worker loop cannot be nil")
	ErrNilHandler      = errors.New("handler cannot be nil")
	ErrAlreadyStarted  = errors.New("engine already started")
	ErrNotStarted      = errors.New("engine not started")
	ErrUnexpectedReply = errors.New("unexpected reply")
	ErrChannelClosed   = errors.New("channel closed")
)

// QueueError represents queue collaborator errors
type QueueError struct {
	Op    string // operation being performed
	Queue string // queue name (if applicable)
	Err   error  // underlying error
}

func (e *QueueError) Error() string {
	if e.Queue != "" {
		return fmt.Sprintf("queue %s on %s: %v", e.Op, e.Queue, e.Err)
	}
	return fmt.Sprintf("queue %s: %v", e.Op, e.Err)
}

func (e *QueueError) Unwrap() error {
	return e.Err
}

// WorkerError represents a failure inside a worker loop
type WorkerError struct {
	Worker string // worker name
	Err    error  // underlying error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("worker %s: %v", e.Worker, e.Err)
}

func (e *WorkerError) Unwrap() error {
	return e.Err
}

// ConnectionError represents connection-related errors
type ConnectionError struct {
	Addr string // connection address (never includes credentials)
	Err  error  // underlying error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

func (e *ConnectionError) Temporary() bool {
	// Implement net.Error interface for timeout detection
	if t, ok := e.Err.(interface{ Temporary() bool }); ok {
		return t.Temporary()
	}
	return false
}

func (e *ConnectionError) Timeout() bool {
	// Implement net.Error interface for timeout detection
	if t, ok := e.Err.(interface{ Timeout() bool }); ok {
		return t.Timeout()
	}
	return false
}

// Helper functions for creating errors

// NewQueueError creates a new queue error
func NewQueueError(op, queue string, err error) error {
	return &QueueError{Op: op, Queue: queue, Err: err}
}

// NewWorkerError creates a new worker error
func NewWorkerError(worker string, err error) error {
	return &WorkerError{Worker: worker, Err: err}
}

// NewConnectionError creates a new connection error
func NewConnectionError(addr string, err error) error {
	return &ConnectionError{Addr: addr, Err: err}
}

// IsTemporary checks if an error is temporary and retryable
func IsTemporary(err error) bool {
	var t interface{ Temporary() bool }
	if errors.As(err, &t) && t.Temporary() {
		return true
	}

	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrQueueFull)
}

// IsTimeout checks if an error is a timeout
func IsTimeout(err error) bool {
	var t interface{ Timeout() bool }
	if errors.As(err, &t) && t.Timeout() {
		return true
	}
	return errors.Is(err, ErrTimeout)
}
