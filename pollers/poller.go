package pollers

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/BranchIntl/silex/core"
	"github.com/BranchIntl/silex/errors"
)

// DefaultPopTimeout is used when a poller is configured with a
// non-positive pop timeout
const DefaultPopTimeout = time.Second

// Handler processes one message. The context is not cancelled when the
// engine stops, so a graceful stop lets the handler finish.
type Handler func(ctx context.Context, message string) error

// QueuePoller is a core.WorkerLoop that pops one message per iteration from
// a queue and passes it to a handler. A single QueuePoller may be shared by
// every worker of a multi-worker engine.
type QueuePoller struct {
	source       core.Queue
	queue        string
	handler      Handler
	popTimeout   time.Duration
	errorBackoff time.Duration
	exitOnEmpty  bool

	processed atomic.Int64
	failed    atomic.Int64
}

var _ core.WorkerLoop = (*QueuePoller)(nil)

// PollerOption configures a QueuePoller
type PollerOption func(*QueuePoller)

// WithPopTimeout sets how long each iteration waits for a message. This
// bounds how quickly a worker notices a stop request. Values of zero or less
// select DefaultPopTimeout so an empty queue never turns the loop into a
// busy spin.
func WithPopTimeout(timeout time.Duration) PollerOption {
	return func(p *QueuePoller) {
		p.popTimeout = timeout
	}
}

// WithErrorBackoff sets the pause after a failed pop. The pause ends early
// when the engine stops.
func WithErrorBackoff(backoff time.Duration) PollerOption {
	return func(p *QueuePoller) {
		p.errorBackoff = backoff
	}
}

// WithExitOnEmpty makes the worker exit after the first pop that times out
func WithExitOnEmpty() PollerOption {
	return func(p *QueuePoller) {
		p.exitOnEmpty = true
	}
}

// NewQueuePoller creates a poller reading from the named queue
func NewQueuePoller(source core.Queue, queue string, handler Handler, options ...PollerOption) (*QueuePoller, error) {
	if queue == "" {
		return nil, errors.ErrEmptyQueueName
	}
	if handler == nil {
		return nil, errors.ErrNilHandler
	}

	p := &QueuePoller{
		source:       source,
		queue:        queue,
		handler:      handler,
		popTimeout:   DefaultPopTimeout,
		errorBackoff: time.Second,
	}
	for _, option := range options {
		option(p)
	}
	if p.popTimeout <= 0 {
		p.popTimeout = DefaultPopTimeout
	}
	return p, nil
}

// PopTimeout returns how long each pop waits for a message
func (p *QueuePoller) PopTimeout() time.Duration {
	return p.popTimeout
}

// Queue returns the name of the queue being polled
func (p *QueuePoller) Queue() string {
	return p.queue
}

// Processed returns the number of messages handled successfully
func (p *QueuePoller) Processed() int64 {
	return p.processed.Load()
}

// Failed returns the number of messages whose handler returned an error or
// panicked
func (p *QueuePoller) Failed() int64 {
	return p.failed.Load()
}

// RunOnce pops at most one message and handles it
func (p *QueuePoller) RunOnce(w *core.Worker) (core.LoopResult, error) {
	message, ok, err := p.source.Pop(w.Context(), p.queue, p.popTimeout)
	if err != nil {
		// A pop interrupted by Stop is not a failure
		if w.Stopping() {
			return core.Continue, nil
		}
		p.backoff(w)
		return core.Continue, err
	}

	if !ok {
		if p.exitOnEmpty {
			return core.Exit, nil
		}
		return core.Continue, nil
	}

	if err := p.handle(w, message); err != nil {
		p.failed.Add(1)
		return core.Continue, err
	}

	p.processed.Add(1)
	return core.Continue, nil
}

func (p *QueuePoller) handle(w *core.Worker, message string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.NewQueueError("handle", p.queue, fmt.Errorf("handler panic: %v", r))
		}
	}()

	start := time.Now()
	if err := p.handler(context.WithoutCancel(w.Context()), message); err != nil {
		return errors.NewQueueError("handle", p.queue, err)
	}

	w.Logger().Debug("Message processed",
		"queue", p.queue,
		"duration", time.Since(start))
	return nil
}

func (p *QueuePoller) backoff(w *core.Worker) {
	if p.errorBackoff <= 0 {
		return
	}

	timer := time.NewTimer(p.errorBackoff)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-w.Signal().Done():
	}
}
