package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// WorkerPool owns the fixed set of worker handles of one engine
type WorkerPool struct {
	mu            sync.RWMutex
	workers       []*Worker
	activeWorkers int32
	wg            sync.WaitGroup
	logger        *slog.Logger
}

// NewWorkerPool creates an empty worker pool
func NewWorkerPool(logger *slog.Logger) *WorkerPool {
	return &WorkerPool{logger: logger}
}

// Start spawns one goroutine per name, each running loop until signal is
// raised. Names are used as worker names in order. Start returns without
// waiting for the workers.
func (wp *WorkerPool) Start(loop WorkerLoop, signal *Signal, names []string) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	wp.logger.Info("Starting worker pool", "workers", len(names))

	workers := make([]*Worker, 0, len(names))
	for i, name := range names {
		workers = append(workers, newWorker(name, i, signal, wp.logger))
	}

	for _, worker := range workers {
		worker.startTime = time.Now()
		wp.wg.Add(1)
		atomic.AddInt32(&wp.activeWorkers, 1)
		go func(w *Worker) {
			defer wp.wg.Done()
			defer atomic.AddInt32(&wp.activeWorkers, -1)

			w.work(loop)
		}(worker)
	}

	wp.workers = workers
}

// Workers returns the worker handles in start order
func (wp *WorkerPool) Workers() []*Worker {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	return append([]*Worker(nil), wp.workers...)
}

// Size returns the number of handles created at start
func (wp *WorkerPool) Size() int {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	return len(wp.workers)
}

// AnyAlive reports whether at least one worker goroutine is still running
func (wp *WorkerPool) AnyAlive() bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	for _, w := range wp.workers {
		if w.IsAlive() {
			return true
		}
	}
	return false
}

// ActiveWorkers returns the number of running worker goroutines
func (wp *WorkerPool) ActiveWorkers() int {
	return int(atomic.LoadInt32(&wp.activeWorkers))
}

// Wait blocks until every worker has returned or ctx ends
func (wp *WorkerPool) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wp.logger.Info("Worker pool stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// workerNames returns name-0 .. name-(n-1)
func workerNames(name string, n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("%s-%d", name, i)
	}
	return names
}
