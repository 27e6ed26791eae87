package pollers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BranchIntl/silex/core"
)

// MockQueue implements core.Queue for testing
type MockQueue struct {
	mu       sync.Mutex
	popError error
	messages map[string][]string
	pops     atomic.Int64
}

func NewMockQueue() *MockQueue {
	return &MockQueue{
		messages: make(map[string][]string),
	}
}

func (m *MockQueue) Push(ctx context.Context, queue string, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages[queue] = append(m.messages[queue], message)
	return nil
}

// Pop returns immediately when a message or error is available, otherwise it
// waits for the timeout or the context like a blocking broker would
func (m *MockQueue) Pop(ctx context.Context, queue string, timeout time.Duration) (string, bool, error) {
	m.pops.Add(1)

	m.mu.Lock()
	if m.popError != nil {
		err := m.popError
		m.mu.Unlock()
		return "", false, err
	}
	if messages := m.messages[queue]; len(messages) > 0 {
		m.messages[queue] = messages[1:]
		m.mu.Unlock()
		return messages[0], true, nil
	}
	m.mu.Unlock()

	select {
	case <-time.After(timeout):
		return "", false, nil
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}

func (m *MockQueue) SetPopError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.popError = err
}

func (m *MockQueue) Pops() int64 {
	return m.pops.Load()
}

func (m *MockQueue) Len(queue string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages[queue])
}

// recorder collects handled messages
type recorder struct {
	mu       sync.Mutex
	messages []string
}

func (r *recorder) handle(ctx context.Context, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return nil
}

func (r *recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

// countingQueue counts the pops forwarded to a real queue
type countingQueue struct {
	core.Queue
	pops atomic.Int64
}

func (c *countingQueue) Pop(ctx context.Context, queue string, timeout time.Duration) (string, bool, error) {
	c.pops.Add(1)
	return c.Queue.Pop(ctx, queue, timeout)
}

func (c *countingQueue) Pops() int64 {
	return c.pops.Load()
}
