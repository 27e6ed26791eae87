//go:build darwin

package redis

import (
	"golang.org/x/sys/unix"
)

// The probe interval is left at the system default on darwin.
func setKeepAliveOptions(fd uintptr, k KeepAlive) error {
	s := int(fd)
	if err := unix.SetsockoptInt(s, unix.IPPROTO_TCP, unix.TCP_KEEPALIVE, seconds(k.Idle)); err != nil {
		return err
	}
	if k.Count > 0 {
		if err := unix.SetsockoptInt(s, unix.IPPROTO_TCP, unix.TCP_KEEPCNT, k.Count); err != nil {
			return err
		}
	}
	return nil
}
