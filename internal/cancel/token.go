// Package cancel provides a process-wide cancellation token and the
// process-tree termination primitive used by every blocking component in
// the scheduler.
package cancel

import "sync"

// Token is a shareable, monotonic cancellation signal. Once Cancel is
// called, Cancelled and the Done channel report cancelled for the rest of
// the token's lifetime — it never resets. Cloning a Token (passing the
// pointer around) does not create independent cancellation state; every
// holder observes the same signal.
type Token struct {
	once sync.Once
	done chan struct{}
}

// New returns a fresh, non-cancelled Token.
func New() *Token {
	return &Token{done: make(chan struct{})}
}

// Cancel marks the token cancelled. Safe to call multiple times or
// concurrently; only the first call has effect.
func (t *Token) Cancel() {
	t.once.Do(func() { close(t.done) })
}

// Cancelled reports whether Cancel has been called. Non-blocking.
func (t *Token) Cancelled() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Done returns a channel that is closed when the token is cancelled. Any
// number of goroutines may select on it concurrently.
func (t *Token) Done() <-chan struct{} {
	return t.done
}

// Await blocks until the token is cancelled.
func (t *Token) Await() {
	<-t.done
}
