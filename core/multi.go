package core

// MultiEngine runs a fixed number of identical worker goroutines that share
// one cancellation signal. Which worker receives which item from a shared
// queue is not deterministic.
type MultiEngine struct {
	*engine
}

var _ Engine = (*MultiEngine)(nil)

// NewMultiEngine creates a ready engine that will run loop on PoolSize
// workers named <name>-0 .. <name>-(PoolSize-1). The pool size defaults to
// DefaultPoolSize.
func NewMultiEngine(loop WorkerLoop, options ...EngineOption) *MultiEngine {
	config := defaultConfig("MultiEngine")
	for _, opt := range options {
		opt(config)
	}

	return &MultiEngine{
		engine: newEngine(loop, config, workerNames(config.Name, config.PoolSize)),
	}
}

// PoolSize returns the number of workers the engine runs
func (e *MultiEngine) PoolSize() int {
	return e.config.PoolSize
}

// Workers returns the worker handles in start order; empty before Start
func (e *MultiEngine) Workers() []*Worker {
	return e.pool.Workers()
}

// ActiveWorkers returns the number of worker goroutines still running
func (e *MultiEngine) ActiveWorkers() int {
	return e.pool.ActiveWorkers()
}

// IsThreadAlive reports whether any worker goroutine is still running, so
// the engine reads as alive until its last worker exits.
func (e *MultiEngine) IsThreadAlive() bool {
	return e.pool.AnyAlive()
}
