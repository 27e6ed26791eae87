//go:build !linux

package redis

import (
	"net"
	"testing"
)

func assertKeepAlive(t *testing.T, conn net.Conn, keepAlive KeepAlive) {
	t.Helper()
}
