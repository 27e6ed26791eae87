package memory

import (
	"context"
	"sync"
	"time"

	"github.com/BranchIntl/silex/core"
	"github.com/BranchIntl/silex/errors"
)

// MemoryBroker implements core.Broker with buffered channels. It is meant for
// tests and single-process setups.
type MemoryBroker struct {
	mu        sync.RWMutex
	queues    map[string]chan string
	queueSize int
	connected bool
	closed    chan struct{}
	options   Options
}

var _ core.Broker = (*MemoryBroker)(nil)

// NewBroker creates a new in-memory broker
func NewBroker(options Options) *MemoryBroker {
	if options.QueueSize < 1 {
		options.QueueSize = DefaultOptions().QueueSize
	}
	return &MemoryBroker{
		queues:    make(map[string]chan string),
		queueSize: options.QueueSize,
		options:   options,
	}
}

// Connect establishes connection (no-op for memory broker)
func (m *MemoryBroker) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		m.connected = true
		m.closed = make(chan struct{})
	}
	return nil
}

// Close drops every queue and wakes blocked pops
func (m *MemoryBroker) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		close(m.closed)
	}
	m.queues = make(map[string]chan string)
	m.connected = false
	return nil
}

// Health checks the broker health
func (m *MemoryBroker) Health() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return errors.ErrNotConnected
	}
	return nil
}

// Type returns the broker type
func (m *MemoryBroker) Type() string {
	return "memory"
}

// Push appends a message to the queue, creating it on demand
func (m *MemoryBroker) Push(ctx context.Context, queue string, message string) error {
	if queue == "" {
		return errors.ErrEmptyQueueName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return errors.ErrNotConnected
	}

	ch := m.queueLocked(queue)

	select {
	case ch <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.NewQueueError("push", queue, errors.ErrQueueFull)
	}
}

// Pop removes the oldest message from the queue, waiting up to timeout for
// one to arrive. A timeout of zero or less does not wait.
func (m *MemoryBroker) Pop(ctx context.Context, queue string, timeout time.Duration) (string, bool, error) {
	if queue == "" {
		return "", false, errors.ErrEmptyQueueName
	}

	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return "", false, errors.ErrNotConnected
	}
	ch := m.queueLocked(queue)
	closed := m.closed
	m.mu.Unlock()

	if timeout <= 0 {
		select {
		case message := <-ch:
			return message, true, nil
		default:
			return "", false, nil
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case message := <-ch:
		return message, true, nil
	case <-timer.C:
		return "", false, nil
	case <-closed:
		return "", false, errors.ErrNotConnected
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}

// DeleteQueue removes a queue and every message in it
func (m *MemoryBroker) DeleteQueue(ctx context.Context, queue string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return errors.ErrNotConnected
	}

	delete(m.queues, queue)
	return nil
}

// QueueLength returns the number of messages in a queue
func (m *MemoryBroker) QueueLength(ctx context.Context, queue string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return 0, errors.ErrNotConnected
	}

	ch, exists := m.queues[queue]
	if !exists {
		return 0, nil
	}

	return int64(len(ch)), nil
}

// queueLocked returns the channel for queue, creating it if needed. The
// caller must hold the write lock.
func (m *MemoryBroker) queueLocked(queue string) chan string {
	ch, exists := m.queues[queue]
	if !exists {
		ch = make(chan string, m.queueSize)
		m.queues[queue] = ch
	}
	return ch
}
