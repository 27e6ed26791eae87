package redis

import (
	"net"
	"strconv"
	"time"

	redisUtils "github.com/BranchIntl/silex/internal/redis"
)

// KeepAlive tunes TCP keep-alive probing on every pooled connection
type KeepAlive = redisUtils.KeepAlive

// Options for the Redis queue client
type Options struct {
	// Host and Port of the Redis server
	Host string
	Port int

	// Password is sent with AUTH when not empty
	Password string

	// DB is the database index selected after connecting
	DB int

	// Namespace is prepended to queue names to build list keys
	Namespace string

	// MaxConnections is the maximum number of connections in the pool
	MaxConnections int

	// MaxIdle is the maximum number of idle connections
	MaxIdle int

	// IdleTimeout is the timeout for idle connections
	IdleTimeout time.Duration

	// ConnectTimeout is the timeout for establishing connections
	ConnectTimeout time.Duration

	// ReadTimeout is the timeout for read operations. Blocking pops extend
	// it by the pop timeout.
	ReadTimeout time.Duration

	// WriteTimeout is the timeout for write operations
	WriteTimeout time.Duration

	// KeepAlive detects half-open connections
	KeepAlive KeepAlive

	// TLS options
	UseTLS        bool
	TLSSkipVerify bool
	TLSCertPath   string
}

// ConnectionOptions interface implementation
func (o Options) GetAddress() string               { return net.JoinHostPort(o.Host, strconv.Itoa(o.Port)) }
func (o Options) GetPassword() string              { return o.Password }
func (o Options) GetDB() int                       { return o.DB }
func (o Options) GetMaxConnections() int           { return o.MaxConnections }
func (o Options) GetMaxIdle() int                  { return o.MaxIdle }
func (o Options) GetIdleTimeout() time.Duration    { return o.IdleTimeout }
func (o Options) GetConnectTimeout() time.Duration { return o.ConnectTimeout }
func (o Options) GetReadTimeout() time.Duration    { return o.ReadTimeout }
func (o Options) GetWriteTimeout() time.Duration   { return o.WriteTimeout }
func (o Options) GetKeepAlive() KeepAlive          { return o.KeepAlive }
func (o Options) GetUseTLS() bool                  { return o.UseTLS }
func (o Options) GetTLSSkipVerify() bool           { return o.TLSSkipVerify }
func (o Options) GetTLSCertPath() string           { return o.TLSCertPath }

// DefaultOptions returns default Redis options
func DefaultOptions() Options {
	return Options{
		Host:      "localhost",
		Port:      6379,
		DB:        0,
		Namespace: "",

		MaxConnections: 10,
		MaxIdle:        2,
		IdleTimeout:    240 * time.Second,
		ConnectTimeout: 15 * time.Second,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,

		// No traffic for 60s, then a probe every 5s; three unanswered
		// probes fail the connection.
		KeepAlive: KeepAlive{
			Idle:     60 * time.Second,
			Interval: 5 * time.Second,
			Count:    3,
		},
	}
}
