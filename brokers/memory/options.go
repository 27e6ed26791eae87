package memory

// Options holds configuration for the in-memory broker
type Options struct {
	// QueueSize is the capacity of each queue. Push fails once a queue holds
	// this many messages.
	QueueSize int
}

// DefaultOptions returns default in-memory broker options
func DefaultOptions() Options {
	return Options{
		QueueSize: 1000,
	}
}
