package redis

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	silexErrors "github.com/BranchIntl/silex/errors"
	"github.com/gomodule/redigo/redis"
)

var (
	// ErrInvalidAddress is returned when host or port are missing
	ErrInvalidAddress = errors.New("invalid Redis address")
)

// KeepAlive tunes TCP keep-alive probing so a half-open connection is
// detected after roughly Idle + Interval*Count instead of hanging inside a
// blocking pop.
type KeepAlive struct {
	// Idle is the time without traffic before the first probe
	Idle time.Duration
	// Interval is the time between unanswered probes. Not settable on darwin.
	Interval time.Duration
	// Count is the number of unanswered probes before the connection fails
	Count int
}

// Enabled reports whether keep-alive probing should be turned on
func (k KeepAlive) Enabled() bool {
	return k.Idle > 0
}

// ConnectionOptions defines the interface for Redis connection options
type ConnectionOptions interface {
	GetAddress() string
	GetPassword() string
	GetDB() int
	GetMaxConnections() int
	GetMaxIdle() int
	GetIdleTimeout() time.Duration
	GetConnectTimeout() time.Duration
	GetReadTimeout() time.Duration
	GetWriteTimeout() time.Duration
	GetKeepAlive() KeepAlive
	GetUseTLS() bool
	GetTLSSkipVerify() bool
	GetTLSCertPath() string
}

// CreatePool creates a Redis connection pool using the provided options.
// The pool is safe for concurrent use; every borrower gets its own
// connection.
func CreatePool(options ConnectionOptions) (*redis.Pool, error) {
	if _, _, err := net.SplitHostPort(options.GetAddress()); err != nil {
		return nil, silexErrors.NewConnectionError(options.GetAddress(),
			fmt.Errorf("%w: %v", ErrInvalidAddress, err))
	}

	return &redis.Pool{
		MaxActive:   options.GetMaxConnections(),
		MaxIdle:     options.GetMaxIdle(),
		IdleTimeout: options.GetIdleTimeout(),
		Wait:        true,
		Dial: func() (redis.Conn, error) {
			return DialRedis(options)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}, nil
}

// DialRedis establishes a Redis connection using the provided options
func DialRedis(options ConnectionOptions) (redis.Conn, error) {
	addr := options.GetAddress()
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return nil, silexErrors.NewConnectionError(addr,
			fmt.Errorf("%w: %v", ErrInvalidAddress, err))
	}

	keepAlive := options.GetKeepAlive()
	dialer := &net.Dialer{
		Timeout: options.GetConnectTimeout(),
		// Keep-alive is applied by hand after dialing
		KeepAlive: -1,
	}

	dialOptions := []redis.DialOption{
		redis.DialConnectTimeout(options.GetConnectTimeout()),
		redis.DialReadTimeout(options.GetReadTimeout()),
		redis.DialWriteTimeout(options.GetWriteTimeout()),
		redis.DialDatabase(options.GetDB()),
		redis.DialNetDial(func(network, address string) (net.Conn, error) {
			conn, err := dialer.Dial(network, address)
			if err != nil {
				return nil, err
			}
			if err := ApplyKeepAlive(conn, keepAlive); err != nil {
				conn.Close()
				return nil, err
			}
			return conn, nil
		}),
	}

	if password := options.GetPassword(); password != "" {
		dialOptions = append(dialOptions, redis.DialPassword(password))
	}

	if options.GetUseTLS() {
		host, _, _ := net.SplitHostPort(addr)
		tlsConfig := &tls.Config{
			InsecureSkipVerify: options.GetTLSSkipVerify(),
			ServerName:         host,
		}

		if options.GetTLSCertPath() != "" {
			pool, err := LoadCertPool(options.GetTLSCertPath())
			if err != nil {
				return nil, err
			}
			tlsConfig.RootCAs = pool
		}

		dialOptions = append(dialOptions,
			redis.DialUseTLS(true),
			redis.DialTLSConfig(tlsConfig),
			redis.DialTLSSkipVerify(options.GetTLSSkipVerify()),
		)
	}

	conn, err := redis.Dial("tcp", addr, dialOptions...)
	if err != nil {
		return nil, silexErrors.NewConnectionError(addr,
			fmt.Errorf("failed to connect: %w", err))
	}

	return conn, nil
}

// ApplyKeepAlive enables TCP keep-alive on conn with the given tuning. It is
// a no-op for non-TCP connections or when keep-alive is disabled.
func ApplyKeepAlive(conn net.Conn, keepAlive KeepAlive) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok || !keepAlive.Enabled() {
		return nil
	}

	if err := tcpConn.SetKeepAlive(true); err != nil {
		return fmt.Errorf("enable keep-alive: %w", err)
	}

	raw, err := tcpConn.SyscallConn()
	if err != nil {
		return fmt.Errorf("keep-alive: %w", err)
	}

	var sockErr error
	if err := raw.Control(func(fd uintptr) {
		sockErr = setKeepAliveOptions(fd, keepAlive)
	}); err != nil {
		return fmt.Errorf("keep-alive: %w", err)
	}
	if sockErr == errKeepAliveUnsupported {
		return tcpConn.SetKeepAlivePeriod(keepAlive.Idle)
	}
	if sockErr != nil {
		return fmt.Errorf("keep-alive: %w", sockErr)
	}
	return nil
}

var errKeepAliveUnsupported = errors.New("keep-alive tuning unsupported")

// LoadCertPool loads a certificate pool from a file
func LoadCertPool(certPath string) (*x509.CertPool, error) {
	rootCAs, _ := x509.SystemCertPool()
	if rootCAs == nil {
		rootCAs = x509.NewCertPool()
	}

	certs, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read cert file %q: %w", certPath, err)
	}

	if ok := rootCAs.AppendCertsFromPEM(certs); !ok {
		return nil, fmt.Errorf("failed to append certs from %q", certPath)
	}

	return rootCAs, nil
}
