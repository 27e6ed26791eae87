// Package engines provides pre-configured queue consumers. Each engine
// combines a broker, a pollers.QueuePoller and a single- or multi-worker
// core engine with sensible defaults.
//
// The engines package offers three configurations:
//
//   - NewRedisEngine: Redis lists with blocking pops
//   - NewRabbitMQEngine: durable RabbitMQ queues
//   - NewMemoryEngine: in-process channels, for tests and demos
//
// Example usage:
//
//	options := engines.DefaultRedisOptions()
//	options.Queue.Name = "emails"
//	engine, err := engines.NewRedisEngine(options, sendEmail)
//	if err != nil {
//		return err
//	}
//	return engine.Run(ctx)
package engines

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BranchIntl/silex"
	"github.com/BranchIntl/silex/core"
	"github.com/BranchIntl/silex/pollers"
)

// QueueOptions configures the consuming side of a queue engine
type QueueOptions struct {
	// Name is the queue to consume
	Name string
	// Workers is the number of worker goroutines. One selects a
	// SingleEngine, zero selects core.DefaultPoolSize.
	Workers int
	// PopTimeout bounds each pop and therefore how quickly workers notice
	// a stop request. Zero or less selects pollers.DefaultPopTimeout.
	PopTimeout time.Duration
	// ErrorBackoff is the pause after a failed pop
	ErrorBackoff time.Duration
	// ExitOnEmpty makes each worker return after a pop that times out, so
	// Run returns once the queue is drained
	ExitOnEmpty bool
	// EngineOptions are passed to the core engine
	EngineOptions []core.EngineOption
}

// DefaultQueueOptions returns default consumer options
func DefaultQueueOptions() QueueOptions {
	return QueueOptions{
		Name:          "silex",
		Workers:       1,
		PopTimeout:    time.Second,
		ErrorBackoff:  time.Second,
		EngineOptions: []core.EngineOption{},
	}
}

// WorkerCount resolves Workers to the number of goroutines the engine runs
func (o QueueOptions) WorkerCount() int {
	if o.Workers < 1 {
		return core.DefaultPoolSize()
	}
	return o.Workers
}

// lengther is implemented by brokers that can report a queue's backlog
type lengther interface {
	QueueLength(ctx context.Context, queue string) (int64, error)
}

// HealthStatus is a point-in-time view of a queue engine
type HealthStatus struct {
	Healthy      bool
	BrokerHealth error
	Status       core.Status
	ThreadAlive  bool
	Processed    int64
	Failed       int64
	// QueueLength is -1 when the broker cannot report it
	QueueLength int64
	LastCheck   time.Time
}

// QueueEngine consumes one queue with a pool of workers
type QueueEngine struct {
	engine core.Engine
	broker core.Broker
	poller *pollers.QueuePoller
	queue  string

	mu        sync.Mutex
	connected bool
}

func newQueueEngine(broker core.Broker, options QueueOptions, handler pollers.Handler) (*QueueEngine, error) {
	pollerOptions := []pollers.PollerOption{
		pollers.WithPopTimeout(options.PopTimeout),
		pollers.WithErrorBackoff(options.ErrorBackoff),
	}
	if options.ExitOnEmpty {
		pollerOptions = append(pollerOptions, pollers.WithExitOnEmpty())
	}

	poller, err := pollers.NewQueuePoller(broker, options.Name, handler, pollerOptions...)
	if err != nil {
		return nil, err
	}

	engineOptions := append([]core.EngineOption{}, options.EngineOptions...)

	var engine core.Engine
	if workers := options.WorkerCount(); workers == 1 {
		engine = core.NewSingleEngine(poller, engineOptions...)
	} else {
		engineOptions = append(engineOptions, core.WithPoolSize(workers))
		engine = core.NewMultiEngine(poller, engineOptions...)
	}

	return &QueueEngine{
		engine: engine,
		broker: broker,
		poller: poller,
		queue:  options.Name,
	}, nil
}

// Start connects the broker and starts the workers
func (e *QueueEngine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.connected {
		if err := e.broker.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect broker: %w", err)
		}
		e.connected = true
	}

	if err := e.engine.Start(); err != nil {
		return err
	}

	slog.Info("Queue engine started",
		"engine", e.engine.Name(),
		"broker", e.broker.Type(),
		"queue", e.queue)
	return nil
}

// Stop stops the workers and closes the broker. With force false it waits
// for in-flight messages first.
func (e *QueueEngine) Stop(force bool) error {
	stopErr := e.engine.Stop(force)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.connected {
		e.connected = false
		if err := e.broker.Close(); err != nil && stopErr == nil {
			return fmt.Errorf("failed to close broker: %w", err)
		}
	}
	return stopErr
}

// Run starts the engine and blocks until ctx is done, the process receives
// a shutdown signal or every worker has exited. It then stops gracefully.
func (e *QueueEngine) Run(ctx context.Context) error {
	if err := e.Start(ctx); err != nil {
		return err
	}

	silex.Wait(ctx, e.engine)
	return e.Stop(false)
}

// MustRun starts the engine and panics on error
func (e *QueueEngine) MustRun(ctx context.Context) {
	if err := e.Run(ctx); err != nil {
		panic(fmt.Sprintf("QueueEngine.Run failed: %v", err))
	}
}

// MustStart begins processing and panics on error
func (e *QueueEngine) MustStart(ctx context.Context) {
	if err := e.Start(ctx); err != nil {
		panic(fmt.Sprintf("QueueEngine.Start failed: %v", err))
	}
}

// Push enqueues a message on the consumed queue
func (e *QueueEngine) Push(ctx context.Context, message string) error {
	return e.broker.Push(ctx, e.queue, message)
}

// Health returns the engine health status
func (e *QueueEngine) Health(ctx context.Context) HealthStatus {
	brokerHealth := e.broker.Health()

	queueLength := int64(-1)
	if l, ok := e.broker.(lengther); ok && brokerHealth == nil {
		if length, err := l.QueueLength(ctx, e.queue); err == nil {
			queueLength = length
		}
	}

	return HealthStatus{
		Healthy:      brokerHealth == nil && e.engine.IsRunning() && e.engine.IsThreadAlive(),
		BrokerHealth: brokerHealth,
		Status:       e.engine.Status(),
		ThreadAlive:  e.engine.IsThreadAlive(),
		Processed:    e.poller.Processed(),
		Failed:       e.poller.Failed(),
		QueueLength:  queueLength,
		LastCheck:    time.Now(),
	}
}

// IsRunning reports whether the engine has been started and not stopped
func (e *QueueEngine) IsRunning() bool {
	return e.engine.IsRunning()
}

// IsThreadAlive reports whether any worker is still executing
func (e *QueueEngine) IsThreadAlive() bool {
	return e.engine.IsThreadAlive()
}

// Component accessors

// GetEngine returns the underlying core engine
func (e *QueueEngine) GetEngine() core.Engine {
	return e.engine
}

// GetBroker returns the broker
func (e *QueueEngine) GetBroker() core.Broker {
	return e.broker
}

// GetPoller returns the worker loop
func (e *QueueEngine) GetPoller() *pollers.QueuePoller {
	return e.poller
}
