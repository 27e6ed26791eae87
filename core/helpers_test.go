package core

import (
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// testLogger only shows errors to keep test output quiet
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError + 4,
	}))
}

// MockLoop is a WorkerLoop that simulates a bounded blocking pop: each
// iteration waits up to Interval or until the signal is raised.
type MockLoop struct {
	Interval time.Duration
	Result   LoopResult
	Err      error

	// ExitFor makes the named workers return Exit on their first iteration
	ExitFor map[string]bool
	// PanicFor makes the named workers panic on their first iteration
	PanicFor map[string]bool
	// IgnoreSignal makes iterations sleep the full Interval
	IgnoreSignal bool

	calls   int64
	mu      sync.Mutex
	workers map[string]int
}

func NewMockLoop(interval time.Duration) *MockLoop {
	return &MockLoop{
		Interval: interval,
		workers:  make(map[string]int),
	}
}

func (m *MockLoop) RunOnce(w *Worker) (LoopResult, error) {
	atomic.AddInt64(&m.calls, 1)

	m.mu.Lock()
	m.workers[w.Name()]++
	m.mu.Unlock()

	if m.PanicFor[w.Name()] {
		panic("mock loop panic")
	}
	if m.ExitFor[w.Name()] {
		return Exit, nil
	}

	if m.IgnoreSignal {
		time.Sleep(m.Interval)
	} else {
		select {
		case <-w.Signal().Done():
		case <-time.After(m.Interval):
		}
	}

	return m.Result, m.Err
}

func (m *MockLoop) Calls() int64 {
	return atomic.LoadInt64(&m.calls)
}

// SeenWorkers returns the names of workers that ran at least one iteration
func (m *MockLoop) SeenWorkers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.workers))
	for name := range m.workers {
		names = append(names, name)
	}
	return names
}

const (
	eventuallyWait = 2 * time.Second
	eventuallyTick = 5 * time.Millisecond
)
