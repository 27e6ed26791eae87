//go:build !linux && !darwin

package redis

func setKeepAliveOptions(fd uintptr, k KeepAlive) error {
	return errKeepAliveUnsupported
}
