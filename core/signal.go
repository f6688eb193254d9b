package core

import (
	"sync"
	"time"
)

// signalSlot holds at most one pending signal per engine.  A second
// Signal before a Listen overwrites the first; a Signal before the
// Listen even starts is kept and consumed immediately (the early
// arrival case).
type signalSlot struct {
	mu      sync.Mutex
	pending interface{}
	has     bool
	wake    chan struct{}
}

func newSignalSlot() *signalSlot {
	return &signalSlot{wake: make(chan struct{}, 1)}
}

func (s *signalSlot) deposit(result interface{}) {
	s.mu.Lock()
	s.pending = result
	s.has = true
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *signalSlot) take() (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.has {
		return nil, false
	}
	result := s.pending
	s.pending = nil
	s.has = false
	return result, true
}

// Signal deposits an out-of-band result (from a callback, a socket
// listener, an async hook) for a later Listen.  The signal also
// propagates up to the parent, so a child scope signaling reaches the
// scenario that is actually listening.
func (e *Engine) Signal(result interface{}) {
	e.Logger.Tracef("signal called: %v", result)
	e.signal.deposit(result)
	if e.parent != nil {
		e.parent.Signal(result)
	}
}

// Listen blocks until a signal arrives or the timeout elapses, and
// returns the signaled value (nil on timeout).  An optional producer is
// started on its own goroutine first, for the common pattern of
// arming the thing that will eventually signal.
func (e *Engine) Listen(timeout time.Duration, producer func()) interface{} {
	if producer != nil {
		go producer()
	}
	if result, ok := e.signal.take(); ok {
		// signal arrived before we started listening
		return result
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		select {
		case <-e.signal.wake:
			if result, ok := e.signal.take(); ok {
				return result
			}
			// consumed by an earlier take; keep waiting
		case <-deadline.C:
			e.Logger.Warnf("listen timed out after %s", timeout)
			return nil
		}
	}
}
