package flows

import (
	"errors"
	"sync"
)

var (
	// ErrAbandoned is returned when a response arrives after the flow was closed.
	ErrAbandoned = errors.New("flow abandoned")
)

// Lifecycle is the abandonment token of one flow instance.
type Lifecycle struct {
	mu     sync.Mutex
	closed bool
}

// Close marks the flow as gone. It is safe to call more than once.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
}

// Closed reports whether Close was called.
func (l *Lifecycle) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Apply runs fn unless the flow was closed. Close waits for a running fn.
func (l *Lifecycle) Apply(fn func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrAbandoned
	}
	fn()
	return nil
}
