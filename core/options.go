package core

import (
	"log/slog"
	"runtime"
	"time"
)

// Config holds engine configuration
type Config struct {
	Name            string
	PoolSize        int
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

// EngineOption is a function that modifies engine configuration
type EngineOption func(*Config)

// defaultConfig returns default configuration
func defaultConfig(name string) *Config {
	return &Config{
		Name:            name,
		PoolSize:        DefaultPoolSize(),
		ShutdownTimeout: 30 * time.Second,
		Logger:          slog.Default(),
	}
}

// DefaultPoolSize sizes a multi-worker engine for I/O-bound loops that spend
// most of their time blocked on a queue pop: twice the CPU count plus one.
func DefaultPoolSize() int {
	return runtime.NumCPU()*2 + 1
}

// WithName sets the engine name. Worker names derive from it.
func WithName(name string) EngineOption {
	return func(c *Config) {
		if name != "" {
			c.Name = name
		}
	}
}

// WithPoolSize sets the number of workers of a multi-worker engine. Values
// below one keep the default.
func WithPoolSize(n int) EngineOption {
	return func(c *Config) {
		if n > 0 {
			c.PoolSize = n
		}
	}
}

// WithShutdownTimeout bounds how long a graceful Stop waits for workers
func WithShutdownTimeout(d time.Duration) EngineOption {
	return func(c *Config) {
		c.ShutdownTimeout = d
	}
}

// WithLogger sets the logger used by the engine and its workers
func WithLogger(logger *slog.Logger) EngineOption {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}
