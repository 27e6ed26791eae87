package redis

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/BranchIntl/silex/core"
	"github.com/BranchIntl/silex/errors"
	redisUtils "github.com/BranchIntl/silex/internal/redis"
	"github.com/gomodule/redigo/redis"
)

// RedisBroker implements core.Broker on Redis lists: LPUSH to push and
// BRPOP to pop, which gives FIFO order per queue.
type RedisBroker struct {
	mu        sync.RWMutex
	pool      *redis.Pool
	namespace string
	options   Options
}

var _ core.Broker = (*RedisBroker)(nil)

// NewBroker creates a new Redis broker
func NewBroker(options Options) *RedisBroker {
	return &RedisBroker{
		namespace: options.Namespace,
		options:   options,
	}
}

// Connect establishes connection to Redis. It is a no-op when already
// connected.
func (r *RedisBroker) Connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pool != nil {
		return nil
	}

	pool, err := redisUtils.CreatePool(r.options)
	if err != nil {
		return err
	}

	// Test connection
	conn, err := pool.GetContext(ctx)
	if err != nil {
		pool.Close()
		return errors.NewConnectionError(r.options.GetAddress(), err)
	}
	defer conn.Close()

	if _, err := conn.Do("PING"); err != nil {
		pool.Close()
		return errors.NewConnectionError(r.options.GetAddress(),
			fmt.Errorf("ping failed: %w", err))
	}

	r.pool = pool
	return nil
}

// Close closes the Redis connection pool
func (r *RedisBroker) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pool != nil {
		pool := r.pool
		r.pool = nil
		return pool.Close()
	}
	return nil
}

// Health checks the Redis connection health
func (r *RedisBroker) Health() error {
	pool := r.getPool()
	if pool == nil {
		return errors.ErrNotConnected
	}

	conn := pool.Get()
	defer conn.Close()

	if _, err := conn.Do("PING"); err != nil {
		return errors.NewConnectionError(r.options.GetAddress(),
			fmt.Errorf("health check failed: %w", err))
	}

	return nil
}

// Type returns the broker type
func (r *RedisBroker) Type() string {
	return "redis"
}

// Push adds a message to the head of the queue list
func (r *RedisBroker) Push(ctx context.Context, queue string, message string) error {
	if queue == "" {
		return errors.ErrEmptyQueueName
	}
	pool := r.getPool()
	if pool == nil {
		return errors.ErrNotConnected
	}

	conn, err := pool.GetContext(ctx)
	if err != nil {
		return errors.NewQueueError("push", queue, err)
	}
	defer conn.Close()

	if _, err := conn.Do("LPUSH", r.queueKey(queue), message); err != nil {
		return errors.NewQueueError("push", queue, err)
	}

	return nil
}

// Pop removes the message at the tail of the queue list, blocking up to
// timeout. A timeout of zero or less does not block.
func (r *RedisBroker) Pop(ctx context.Context, queue string, timeout time.Duration) (string, bool, error) {
	if queue == "" {
		return "", false, errors.ErrEmptyQueueName
	}
	pool := r.getPool()
	if pool == nil {
		return "", false, errors.ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	conn, err := pool.GetContext(ctx)
	if err != nil {
		return "", false, errors.NewQueueError("pop", queue, err)
	}
	defer conn.Close()

	key := r.queueKey(queue)

	if timeout <= 0 {
		message, err := redis.String(conn.Do("RPOP", key))
		if err == redis.ErrNil {
			return "", false, nil
		}
		if err != nil {
			return "", false, errors.NewQueueError("pop", queue, err)
		}
		return message, true, nil
	}

	// The read deadline must outlast the server-side wait
	reply, err := redis.Strings(redis.DoWithTimeout(conn, r.options.ReadTimeout+timeout,
		"BRPOP", key, formatTimeout(timeout)))
	if err == redis.ErrNil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.NewQueueError("pop", queue, err)
	}

	// BRPOP replies with [key, value]
	if len(reply) != 2 {
		return "", false, errors.NewQueueError("pop", queue,
			fmt.Errorf("%w: %d elements", errors.ErrUnexpectedReply, len(reply)))
	}

	return reply[1], true, nil
}

// QueueLength returns the number of messages in a queue
func (r *RedisBroker) QueueLength(ctx context.Context, queue string) (int64, error) {
	pool := r.getPool()
	if pool == nil {
		return 0, errors.ErrNotConnected
	}

	conn, err := pool.GetContext(ctx)
	if err != nil {
		return 0, errors.NewQueueError("queue_length", queue, err)
	}
	defer conn.Close()

	length, err := redis.Int64(conn.Do("LLEN", r.queueKey(queue)))
	if err != nil {
		return 0, errors.NewQueueError("queue_length", queue, err)
	}

	return length, nil
}

// DeleteQueue removes a queue and every message in it
func (r *RedisBroker) DeleteQueue(ctx context.Context, queue string) error {
	pool := r.getPool()
	if pool == nil {
		return errors.ErrNotConnected
	}

	conn, err := pool.GetContext(ctx)
	if err != nil {
		return errors.NewQueueError("delete_queue", queue, err)
	}
	defer conn.Close()

	if _, err := conn.Do("DEL", r.queueKey(queue)); err != nil {
		return errors.NewQueueError("delete_queue", queue, err)
	}

	return nil
}

// Options returns the options the broker was created with
func (r *RedisBroker) Options() Options {
	return r.options
}

// Pool returns the underlying connection pool for commands the broker does
// not wrap. It is nil until Connect succeeds.
func (r *RedisBroker) Pool() *redis.Pool {
	return r.getPool()
}

func (r *RedisBroker) getPool() *redis.Pool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pool
}

func (r *RedisBroker) queueKey(queue string) string {
	return r.namespace + queue
}

// formatTimeout renders a BRPOP timeout in seconds. Fractional values need
// Redis 6 or later.
func formatTimeout(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
