package engines

import (
	"github.com/BranchIntl/silex/brokers/redis"
	"github.com/BranchIntl/silex/pollers"
)

// RedisOptions holds configuration for a Redis-backed queue engine
type RedisOptions struct {
	Queue QueueOptions
	Redis redis.Options
}

// DefaultRedisOptions returns default options for a Redis engine
func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		Queue: DefaultQueueOptions(),
		Redis: redis.DefaultOptions(),
	}
}

// NewRedisEngine creates an engine consuming a Redis list. The connection
// pool is grown so every worker can hold a blocking pop while one more
// connection stays free for pushes and health checks.
func NewRedisEngine(options RedisOptions, handler pollers.Handler) (*QueueEngine, error) {
	if minimum := options.Queue.WorkerCount() + 1; options.Redis.MaxConnections < minimum {
		options.Redis.MaxConnections = minimum
	}

	broker := redis.NewBroker(options.Redis)
	return newQueueEngine(broker, options.Queue, handler)
}
