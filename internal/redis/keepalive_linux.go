//go:build linux

package redis

import (
	"golang.org/x/sys/unix"
)

func setKeepAliveOptions(fd uintptr, k KeepAlive) error {
	s := int(fd)
	if err := unix.SetsockoptInt(s, unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, seconds(k.Idle)); err != nil {
		return err
	}
	if k.Interval > 0 {
		if err := unix.SetsockoptInt(s, unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, seconds(k.Interval)); err != nil {
			return err
		}
	}
	if k.Count > 0 {
		if err := unix.SetsockoptInt(s, unix.IPPROTO_TCP, unix.TCP_KEEPCNT, k.Count); err != nil {
			return err
		}
	}
	return nil
}
