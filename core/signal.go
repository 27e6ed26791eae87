package core

import (
	"context"
	"sync/atomic"
)

// Signal is a latching cancellation flag shared by every worker of one
// engine. It is written once, by Stop, and read by all workers.
type Signal struct {
	set    atomic.Bool
	ctx    context.Context
	cancel context.CancelFunc
}

func newSignal() *Signal {
	ctx, cancel := context.WithCancel(context.Background())
	return &Signal{ctx: ctx, cancel: cancel}
}

// IsSet reports whether the signal has been raised
func (s *Signal) IsSet() bool {
	return s.set.Load()
}

// Done returns a channel that is closed once the signal is raised
func (s *Signal) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Context returns a context cancelled when the signal is raised. Worker
// loops pass it to blocking calls that accept a context.
func (s *Signal) Context() context.Context {
	return s.ctx
}

// raise sets the flag and reports whether this call was the one that set it
func (s *Signal) raise() bool {
	if !s.set.CompareAndSwap(false, true) {
		return false
	}
	s.cancel()
	return true
}
