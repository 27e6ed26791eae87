package engines

import (
	"github.com/BranchIntl/silex/brokers/memory"
	"github.com/BranchIntl/silex/pollers"
)

// MemoryOptions holds configuration for an in-memory queue engine
type MemoryOptions struct {
	Queue  QueueOptions
	Memory memory.Options
}

// DefaultMemoryOptions returns default options for an in-memory engine
func DefaultMemoryOptions() MemoryOptions {
	return MemoryOptions{
		Queue:  DefaultQueueOptions(),
		Memory: memory.DefaultOptions(),
	}
}

// NewMemoryEngine creates an engine backed by an in-process broker.
// Messages are lost when the process exits.
func NewMemoryEngine(options MemoryOptions, handler pollers.Handler) (*QueueEngine, error) {
	broker := memory.NewBroker(options.Memory)
	return newQueueEngine(broker, options.Queue, handler)
}
