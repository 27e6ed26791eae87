package redis

import "time"

// seconds rounds d up to whole seconds, the unit of the TCP keep-alive
// socket options, with a floor of one.
func seconds(d time.Duration) int {
	s := int((d + time.Second - 1) / time.Second)
	if s < 1 {
		return 1
	}
	return s
}
