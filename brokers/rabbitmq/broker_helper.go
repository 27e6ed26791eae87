package rabbitmq

import (
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// buildQueueArgs creates the AMQP arguments table from options
func buildQueueArgs(options QueueOptions) amqp.Table {
	args := amqp.Table{}

	if options.MessageTTL > 0 {
		args["x-message-ttl"] = int64(options.MessageTTL / time.Millisecond)
	}

	// Dead-lettered messages are routed through the default exchange
	if options.DeadLetterQueue != "" {
		args["x-dead-letter-exchange"] = ""
		args["x-dead-letter-routing-key"] = options.DeadLetterQueue
	}

	if options.MaxRetries > 0 {
		args["x-max-retries"] = options.MaxRetries
		// Quorum queues only honour x-delivery-limit
		args["x-delivery-limit"] = options.MaxRetries
	}

	if options.QueueType != "" {
		args["x-queue-type"] = options.QueueType
	}

	return args
}

// pollDelay returns how long Pop sleeps before the next basic.get, never
// past the deadline
func pollDelay(interval time.Duration, deadline time.Time) time.Duration {
	remaining := time.Until(deadline)
	if remaining < interval {
		return remaining
	}
	return interval
}
