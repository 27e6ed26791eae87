package core

// SingleEngine runs exactly one worker goroutine
type SingleEngine struct {
	*engine
}

var _ Engine = (*SingleEngine)(nil)

// NewSingleEngine creates a ready engine that will run loop on one worker
// named after the engine.
func NewSingleEngine(loop WorkerLoop, options ...EngineOption) *SingleEngine {
	config := defaultConfig("SingleEngine")
	for _, opt := range options {
		opt(config)
	}
	config.PoolSize = 1

	return &SingleEngine{
		engine: newEngine(loop, config, []string{config.Name}),
	}
}

// Worker returns the worker handle, or nil before Start
func (e *SingleEngine) Worker() *Worker {
	workers := e.pool.Workers()
	if len(workers) == 0 {
		return nil
	}
	return workers[0]
}

// IsThreadAlive reports whether the worker goroutine has not yet returned.
// It is false before Start.
func (e *SingleEngine) IsThreadAlive() bool {
	w := e.Worker()
	return w != nil && w.IsAlive()
}
