package redis

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	silexErrors "github.com/BranchIntl/silex/errors"
	"github.com/gomodule/redigo/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockOpts struct {
	addr, password, certPath                            string
	db, maxConn, maxIdle                                int
	idleTimeout, connTimeout, readTimeout, writeTimeout time.Duration
	keepAlive                                           KeepAlive
	useTLS, tlsSkipVerify                               bool
}

func (m mockOpts) GetAddress() string               { return m.addr }
func (m mockOpts) GetPassword() string              { return m.password }
func (m mockOpts) GetDB() int                       { return m.db }
func (m mockOpts) GetMaxConnections() int           { return m.maxConn }
func (m mockOpts) GetMaxIdle() int                  { return m.maxIdle }
func (m mockOpts) GetIdleTimeout() time.Duration    { return m.idleTimeout }
func (m mockOpts) GetConnectTimeout() time.Duration { return m.connTimeout }
func (m mockOpts) GetReadTimeout() time.Duration    { return m.readTimeout }
func (m mockOpts) GetWriteTimeout() time.Duration   { return m.writeTimeout }
func (m mockOpts) GetKeepAlive() KeepAlive          { return m.keepAlive }
func (m mockOpts) GetUseTLS() bool                  { return m.useTLS }
func (m mockOpts) GetTLSSkipVerify() bool           { return m.tlsSkipVerify }
func (m mockOpts) GetTLSCertPath() string           { return m.certPath }

func defaultOpts() mockOpts {
	return mockOpts{
		addr: "localhost:6379", maxConn: 10, maxIdle: 5,
		idleTimeout: 5 * time.Minute, connTimeout: 10 * time.Second,
		readTimeout: 10 * time.Second, writeTimeout: 10 * time.Second,
		keepAlive: KeepAlive{Idle: 60 * time.Second, Interval: 5 * time.Second, Count: 3},
	}
}

// unreachableOpts points at a local port nothing listens on
func unreachableOpts() mockOpts {
	opts := defaultOpts()
	opts.addr = "127.0.0.1:1"
	opts.connTimeout = 100 * time.Millisecond
	return opts
}

func assertConnError(t *testing.T, err error) {
	require.Error(t, err)
	var connErr *silexErrors.ConnectionError
	assert.ErrorAs(t, err, &connErr)
}

func TestCreatePool(t *testing.T) {
	tests := []struct {
		name string
		opts mockOpts
	}{
		{"default options", defaultOpts()},
		{"custom settings", mockOpts{
			addr: "localhost:6379", maxConn: 20, maxIdle: 10,
			idleTimeout: 10 * time.Minute, connTimeout: 5 * time.Second,
			readTimeout: 15 * time.Second, writeTimeout: 15 * time.Second,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, err := CreatePool(tt.opts)

			require.NoError(t, err)
			require.NotNil(t, pool)
			assert.Equal(t, tt.opts.maxConn, pool.MaxActive)
			assert.Equal(t, tt.opts.maxIdle, pool.MaxIdle)
			assert.Equal(t, tt.opts.idleTimeout, pool.IdleTimeout)
			assert.True(t, pool.Wait)
			assert.NotNil(t, pool.Dial, "Dial function should be set")
			assert.NotNil(t, pool.TestOnBorrow, "TestOnBorrow function should be set")

			err = pool.TestOnBorrow(nil, time.Now())
			assert.NoError(t, err, "TestOnBorrow should return nil for recent connections")
		})
	}
}

func TestCreatePool_InvalidAddress(t *testing.T) {
	opts := defaultOpts()
	opts.addr = "localhost"

	_, err := CreatePool(opts)
	assertConnError(t, err)
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestDialRedis_Errors(t *testing.T) {
	tests := []struct {
		name    string
		opts    mockOpts
		invalid bool
	}{
		{"missing port", mockOpts{addr: "localhost"}, true},
		{"empty address", mockOpts{addr: ""}, true},
		{"connection refused", unreachableOpts(), false},
		{"with password", func() mockOpts {
			o := unreachableOpts()
			o.password = "secret"
			return o
		}(), false},
		{"with database", func() mockOpts {
			o := unreachableOpts()
			o.db = 2
			return o
		}(), false},
		{"TLS explicit", func() mockOpts {
			o := unreachableOpts()
			o.useTLS = true
			return o
		}(), false},
		{"TLS skip verify", func() mockOpts {
			o := unreachableOpts()
			o.useTLS = true
			o.tlsSkipVerify = true
			return o
		}(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DialRedis(tt.opts)

			assertConnError(t, err)
			if tt.invalid {
				assert.ErrorIs(t, err, ErrInvalidAddress)
			}
		})
	}
}

func TestDialRedis_ErrorDoesNotLeakPassword(t *testing.T) {
	opts := unreachableOpts()
	opts.password = "hunter2"

	_, err := DialRedis(opts)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "hunter2")
}

func TestDialRedis_Server(t *testing.T) {
	server := miniredis.RunT(t)
	server.RequireAuth("secret")

	opts := defaultOpts()
	opts.addr = server.Addr()
	opts.password = "secret"
	opts.db = 3

	conn, err := DialRedis(opts)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Do("SET", "key", "value")
	require.NoError(t, err)

	server.Select(3)
	value, err := server.Get("key")
	require.NoError(t, err)
	assert.Equal(t, "value", value)
}

func TestDialRedis_WrongPassword(t *testing.T) {
	server := miniredis.RunT(t)
	server.RequireAuth("secret")

	opts := defaultOpts()
	opts.addr = server.Addr()
	opts.password = "wrong"

	_, err := DialRedis(opts)
	assertConnError(t, err)
}

func TestCreatePool_Server(t *testing.T) {
	server := miniredis.RunT(t)

	opts := defaultOpts()
	opts.addr = server.Addr()

	pool, err := CreatePool(opts)
	require.NoError(t, err)
	defer pool.Close()

	conn := pool.Get()
	defer conn.Close()

	pong, err := redis.String(conn.Do("PING"))
	require.NoError(t, err)
	assert.Equal(t, "PONG", pong)
}

func TestApplyKeepAlive(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	go func() {
		conn, err := listener.Accept()
		if err == nil {
			defer conn.Close()
			time.Sleep(100 * time.Millisecond)
		}
	}()

	conn, err := net.Dial("tcp", listener.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	keepAlive := KeepAlive{Idle: 60 * time.Second, Interval: 5 * time.Second, Count: 3}
	require.NoError(t, ApplyKeepAlive(conn, keepAlive))

	assertKeepAlive(t, conn, keepAlive)
}

func TestApplyKeepAlive_Disabled(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	assert.NoError(t, ApplyKeepAlive(client, KeepAlive{Idle: time.Minute}), "non-TCP connections are skipped")
	assert.False(t, KeepAlive{}.Enabled())
}

func TestSeconds(t *testing.T) {
	assert.Equal(t, 1, seconds(0))
	assert.Equal(t, 1, seconds(300*time.Millisecond))
	assert.Equal(t, 5, seconds(5*time.Second))
	assert.Equal(t, 6, seconds(5*time.Second+time.Millisecond))
}

func TestLoadCertPool(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		path    string
		content string
		expect  string
	}{
		{"file not found", "/nonexistent/path/cert.pem", "", "failed to read cert file"},
		{"empty cert", filepath.Join(tmpDir, "empty.crt"), "", "failed to append certs"},
		{"invalid cert", filepath.Join(tmpDir, "invalid.crt"), "invalid content", "failed to append certs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.name != "file not found" {
				err := os.WriteFile(tt.path, []byte(tt.content), 0644)
				require.NoError(t, err)
			}

			_, err := LoadCertPool(tt.path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expect)
		})
	}
}

func TestDialRedis_WithCerts(t *testing.T) {
	tmpDir := t.TempDir()
	certPath := filepath.Join(tmpDir, "test.crt")
	require.NoError(t, os.WriteFile(certPath, []byte("invalid certificate content"), 0644))

	opts := unreachableOpts()
	opts.useTLS = true
	opts.certPath = certPath

	_, err := DialRedis(opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to append certs")
}
