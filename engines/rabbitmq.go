package engines

import (
	"github.com/BranchIntl/silex/brokers/rabbitmq"
	"github.com/BranchIntl/silex/pollers"
)

// RabbitMQOptions holds configuration for a RabbitMQ-backed queue engine
type RabbitMQOptions struct {
	Queue    QueueOptions
	RabbitMQ rabbitmq.Options
}

// DefaultRabbitMQOptions returns default options for a RabbitMQ engine
func DefaultRabbitMQOptions() RabbitMQOptions {
	return RabbitMQOptions{
		Queue:    DefaultQueueOptions(),
		RabbitMQ: rabbitmq.DefaultOptions(),
	}
}

// NewRabbitMQEngine creates an engine consuming a durable RabbitMQ queue
func NewRabbitMQEngine(options RabbitMQOptions, handler pollers.Handler) (*QueueEngine, error) {
	broker := rabbitmq.NewBroker(options.RabbitMQ)
	return newQueueEngine(broker, options.Queue, handler)
}
