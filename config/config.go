// Package config loads process configuration for silex consumers and
// producers from a YAML file with SILEX_* environment overrides.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BranchIntl/silex/brokers/memory"
	"github.com/BranchIntl/silex/brokers/rabbitmq"
	"github.com/BranchIntl/silex/brokers/redis"
	"github.com/BranchIntl/silex/core"
	"github.com/BranchIntl/silex/engines"
	"github.com/BranchIntl/silex/errors"
	"github.com/BranchIntl/silex/pollers"
	"gopkg.in/yaml.v3"
)

// BrokerType represents the type of broker
type BrokerType string

const (
	// Redis broker type
	Redis BrokerType = "redis"
	// RabbitMQ broker type
	RabbitMQ BrokerType = "rabbitmq"
	// Memory broker type
	Memory BrokerType = "memory"
)

// Config is the main configuration structure
type Config struct {
	Broker   BrokerType     `yaml:"broker"`
	Redis    RedisConfig    `yaml:"redis"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Memory   MemoryConfig   `yaml:"memory"`
	Engine   EngineConfig   `yaml:"engine"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// RedisConfig contains Redis connection configuration
type RedisConfig struct {
	Host           string          `yaml:"host"`
	Port           int             `yaml:"port"`
	Password       string          `yaml:"password"`
	DB             int             `yaml:"db"`
	Namespace      string          `yaml:"namespace"`
	MaxConnections int             `yaml:"max_connections"`
	ConnectTimeout time.Duration   `yaml:"connect_timeout"`
	ReadTimeout    time.Duration   `yaml:"read_timeout"`
	WriteTimeout   time.Duration   `yaml:"write_timeout"`
	KeepAlive      KeepAliveConfig `yaml:"keep_alive"`
	UseTLS         bool            `yaml:"use_tls"`
	TLSSkipVerify  bool            `yaml:"tls_skip_verify"`
	TLSCertPath    string          `yaml:"tls_cert_path"`
}

// KeepAliveConfig tunes TCP keep-alive on Redis connections
type KeepAliveConfig struct {
	Idle     time.Duration `yaml:"idle"`
	Interval time.Duration `yaml:"interval"`
	Count    int           `yaml:"count"`
}

// RabbitMQConfig contains RabbitMQ connection configuration
type RabbitMQConfig struct {
	URI            string        `yaml:"uri"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	QueueType      string        `yaml:"queue_type"`
}

// MemoryConfig contains in-memory broker configuration
type MemoryConfig struct {
	QueueSize int `yaml:"queue_size"`
}

// EngineConfig contains engine-specific configuration
type EngineConfig struct {
	Name string `yaml:"name"`
	// Queue is consumed by workers and is the default target for pushes
	Queue           string        `yaml:"queue"`
	Workers         int           `yaml:"workers"`
	PopTimeout      time.Duration `yaml:"pop_timeout"`
	ErrorBackoff    time.Duration `yaml:"error_backoff"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	ExitOnEmpty     bool          `yaml:"exit_on_empty"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	redisOptions := redis.DefaultOptions()
	rabbitOptions := rabbitmq.DefaultOptions()

	return &Config{
		Broker: Redis,
		Redis: RedisConfig{
			Host:           redisOptions.Host,
			Port:           redisOptions.Port,
			DB:             redisOptions.DB,
			Namespace:      redisOptions.Namespace,
			MaxConnections: redisOptions.MaxConnections,
			ConnectTimeout: redisOptions.ConnectTimeout,
			ReadTimeout:    redisOptions.ReadTimeout,
			WriteTimeout:   redisOptions.WriteTimeout,
			KeepAlive: KeepAliveConfig{
				Idle:     redisOptions.KeepAlive.Idle,
				Interval: redisOptions.KeepAlive.Interval,
				Count:    redisOptions.KeepAlive.Count,
			},
		},
		RabbitMQ: RabbitMQConfig{
			URI:            rabbitOptions.URI,
			ConnectTimeout: rabbitOptions.ConnectTimeout,
			PollInterval:   rabbitOptions.PollInterval,
		},
		Memory: MemoryConfig{
			QueueSize: memory.DefaultOptions().QueueSize,
		},
		Engine: EngineConfig{
			Name:            "silex",
			Queue:           "test",
			Workers:         1,
			PopTimeout:      time.Second,
			ErrorBackoff:    time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads configuration from path on top of the defaults, applies
// environment overrides and validates the result. An empty path skips the
// file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := cfg.Parse(data); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML into the configuration. Keys missing from data keep
// their current values.
func (c *Config) Parse(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
	}
	return nil
}

// ApplyEnv overrides fields from SILEX_* environment variables
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var err error
	str := func(key string, dst *string) {
		if value, ok := lookup(key); ok && value != "" {
			*dst = value
		}
	}
	num := func(key string, dst *int) {
		if value, ok := lookup(key); ok && value != "" && err == nil {
			n, convErr := strconv.Atoi(value)
			if convErr != nil {
				err = fmt.Errorf("%w: %s: %v", errors.ErrInvalidConfig, key, convErr)
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if value, ok := lookup(key); ok && value != "" && err == nil {
			d, parseErr := time.ParseDuration(value)
			if parseErr != nil {
				err = fmt.Errorf("%w: %s: %v", errors.ErrInvalidConfig, key, parseErr)
				return
			}
			*dst = d
		}
	}

	broker := string(c.Broker)
	str("SILEX_BROKER", &broker)
	c.Broker = BrokerType(strings.ToLower(broker))

	str("SILEX_REDIS_HOST", &c.Redis.Host)
	num("SILEX_REDIS_PORT", &c.Redis.Port)
	str("SILEX_REDIS_PASSWORD", &c.Redis.Password)
	num("SILEX_REDIS_DB", &c.Redis.DB)
	str("SILEX_REDIS_NAMESPACE", &c.Redis.Namespace)

	str("SILEX_RABBITMQ_URI", &c.RabbitMQ.URI)

	str("SILEX_ENGINE_NAME", &c.Engine.Name)
	str("SILEX_QUEUE", &c.Engine.Queue)
	num("SILEX_WORKERS", &c.Engine.Workers)
	duration("SILEX_POP_TIMEOUT", &c.Engine.PopTimeout)
	duration("SILEX_SHUTDOWN_TIMEOUT", &c.Engine.ShutdownTimeout)

	str("SILEX_LOG_LEVEL", &c.Logging.Level)
	str("SILEX_LOG_FORMAT", &c.Logging.Format)

	return err
}

// Validate validates the configuration
func (c *Config) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", errors.ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	switch c.Broker {
	case Redis:
		if c.Redis.Host == "" {
			return invalid("redis host is required")
		}
		if c.Redis.Port < 1 || c.Redis.Port > 65535 {
			return invalid("redis port %d out of range", c.Redis.Port)
		}
		if c.Redis.DB < 0 {
			return invalid("redis db must not be negative")
		}
	case RabbitMQ:
		if c.RabbitMQ.URI == "" {
			return invalid("rabbitmq uri is required")
		}
	case Memory:
	default:
		return invalid("unknown broker type %q", c.Broker)
	}

	if c.Engine.Queue == "" {
		return invalid("queue name cannot be empty")
	}
	if c.Engine.Workers < 0 {
		return invalid("workers must not be negative")
	}
	if c.Engine.PopTimeout <= 0 {
		return invalid("pop timeout must be positive")
	}

	if _, err := parseLevel(c.Logging.Level); err != nil {
		return invalid("%v", err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return invalid("unknown log format %q", c.Logging.Format)
	}

	return nil
}

// RedisOptions converts the Redis section to broker options
func (c *Config) RedisOptions() redis.Options {
	options := redis.DefaultOptions()
	options.Host = c.Redis.Host
	options.Port = c.Redis.Port
	options.Password = c.Redis.Password
	options.DB = c.Redis.DB
	options.Namespace = c.Redis.Namespace
	if c.Redis.MaxConnections > 0 {
		options.MaxConnections = c.Redis.MaxConnections
	}
	if c.Redis.ConnectTimeout > 0 {
		options.ConnectTimeout = c.Redis.ConnectTimeout
	}
	if c.Redis.ReadTimeout > 0 {
		options.ReadTimeout = c.Redis.ReadTimeout
	}
	if c.Redis.WriteTimeout > 0 {
		options.WriteTimeout = c.Redis.WriteTimeout
	}
	options.KeepAlive = redis.KeepAlive{
		Idle:     c.Redis.KeepAlive.Idle,
		Interval: c.Redis.KeepAlive.Interval,
		Count:    c.Redis.KeepAlive.Count,
	}
	options.UseTLS = c.Redis.UseTLS
	options.TLSSkipVerify = c.Redis.TLSSkipVerify
	options.TLSCertPath = c.Redis.TLSCertPath
	return options
}

// RabbitMQOptions converts the RabbitMQ section to broker options
func (c *Config) RabbitMQOptions() rabbitmq.Options {
	options := rabbitmq.DefaultOptions()
	options.URI = c.RabbitMQ.URI
	if c.RabbitMQ.ConnectTimeout > 0 {
		options.ConnectTimeout = c.RabbitMQ.ConnectTimeout
	}
	if c.RabbitMQ.PollInterval > 0 {
		options.PollInterval = c.RabbitMQ.PollInterval
	}
	options.Queue.QueueType = c.RabbitMQ.QueueType
	return options
}

// MemoryOptions converts the memory section to broker options
func (c *Config) MemoryOptions() memory.Options {
	return memory.Options{QueueSize: c.Memory.QueueSize}
}

// QueueOptions converts the engine section to consumer options
func (c *Config) QueueOptions(logger *slog.Logger) engines.QueueOptions {
	options := engines.DefaultQueueOptions()
	options.Name = c.Engine.Queue
	options.Workers = c.Engine.Workers
	options.PopTimeout = c.Engine.PopTimeout
	options.ErrorBackoff = c.Engine.ErrorBackoff
	options.ExitOnEmpty = c.Engine.ExitOnEmpty
	options.EngineOptions = []core.EngineOption{
		core.WithName(c.Engine.Name),
		core.WithShutdownTimeout(c.Engine.ShutdownTimeout),
		core.WithLogger(logger),
	}
	return options
}

// NewBroker creates the configured broker without connecting it
func (c *Config) NewBroker() (core.Broker, error) {
	switch c.Broker {
	case Redis:
		return redis.NewBroker(c.RedisOptions()), nil
	case RabbitMQ:
		return rabbitmq.NewBroker(c.RabbitMQOptions()), nil
	case Memory:
		return memory.NewBroker(c.MemoryOptions()), nil
	default:
		return nil, fmt.Errorf("%w: unknown broker type %q", errors.ErrInvalidConfig, c.Broker)
	}
}

// NewEngine creates a queue engine for the configured broker
func (c *Config) NewEngine(handler pollers.Handler, logger *slog.Logger) (*engines.QueueEngine, error) {
	queue := c.QueueOptions(logger)

	switch c.Broker {
	case Redis:
		return engines.NewRedisEngine(engines.RedisOptions{Queue: queue, Redis: c.RedisOptions()}, handler)
	case RabbitMQ:
		rabbitOptions := c.RabbitMQOptions()
		rabbitOptions.Logger = logger
		return engines.NewRabbitMQEngine(engines.RabbitMQOptions{Queue: queue, RabbitMQ: rabbitOptions}, handler)
	case Memory:
		return engines.NewMemoryEngine(engines.MemoryOptions{Queue: queue, Memory: c.MemoryOptions()}, handler)
	default:
		return nil, fmt.Errorf("%w: unknown broker type %q", errors.ErrInvalidConfig, c.Broker)
	}
}

// NewLogger builds a slog logger from the logging section
func (c *Config) NewLogger() (*slog.Logger, error) {
	level, err := parseLevel(c.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
	}

	var output io.Writer
	switch strings.ToLower(c.Logging.Output) {
	case "", "stderr":
		output = os.Stderr
	case "stdout":
		output = os.Stdout
	default:
		file, err := os.OpenFile(c.Logging.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log output: %w", err)
		}
		output = file
	}

	handlerOptions := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Logging.Format, "json") {
		return slog.New(slog.NewJSONHandler(output, handlerOptions)), nil
	}
	return slog.New(slog.NewTextHandler(output, handlerOptions)), nil
}

func parseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return l, fmt.Errorf("unknown log level %q", level)
	}
	return l, nil
}
