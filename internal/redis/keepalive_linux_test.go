//go:build linux

package redis

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func assertKeepAlive(t *testing.T, conn net.Conn, keepAlive KeepAlive) {
	t.Helper()

	raw, err := conn.(*net.TCPConn).SyscallConn()
	require.NoError(t, err)

	var enabled, idle, interval, count int
	var sockErr error
	require.NoError(t, raw.Control(func(fd uintptr) {
		s := int(fd)
		if enabled, sockErr = unix.GetsockoptInt(s, unix.SOL_SOCKET, unix.SO_KEEPALIVE); sockErr != nil {
			return
		}
		if idle, sockErr = unix.GetsockoptInt(s, unix.IPPROTO_TCP, unix.TCP_KEEPIDLE); sockErr != nil {
			return
		}
		if interval, sockErr = unix.GetsockoptInt(s, unix.IPPROTO_TCP, unix.TCP_KEEPINTVL); sockErr != nil {
			return
		}
		count, sockErr = unix.GetsockoptInt(s, unix.IPPROTO_TCP, unix.TCP_KEEPCNT)
	}))
	require.NoError(t, sockErr)

	assert.NotZero(t, enabled)
	assert.Equal(t, seconds(keepAlive.Idle), idle)
	assert.Equal(t, seconds(keepAlive.Interval), interval)
	assert.Equal(t, keepAlive.Count, count)
}
