// Package lock provides a cancellable advisory file lock rooted at a
// sentinel path, used to serialize JSON section writes under
// internal/results against concurrent readers and writers.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"

	"github.com/robotmk/scheduler/internal/cancel"
)

// ErrCancelled is returned by WaitForReadLock/WaitForWriteLock when the
// supplied token is cancelled before the lock is granted.
var ErrCancelled = errors.New("lock: cancelled")

// pollInterval is how often a blocked acquisition attempt is retried.
// flock's TryRLock/TryLock never block the calling goroutine, so polling
// is the only portable way to race acquisition against cancellation.
const pollInterval = 25 * time.Millisecond

// Locker holds the path to a sentinel file and a cancellation token. All
// writers and readers that share a Locker pointed at the same path
// serialize against one another; a Locker only ever locks, never reads or
// writes the sentinel file's content.
type Locker struct {
	path  string
	token *cancel.Token
}

// New returns a Locker rooted at path, cancellable via token.
func New(path string, token *cancel.Token) *Locker {
	return &Locker{path: path, token: token}
}

// Path returns the sentinel file the Locker locks.
func (l *Locker) Path() string { return l.path }

// Handle is a held lock; call Release to drop it explicitly.
type Handle struct {
	fl *flock.Flock
}

// Release drops the lock and surfaces any error unlocking the underlying
// file.
func (h *Handle) Release() error {
	if h == nil || h.fl == nil {
		return nil
	}
	return h.fl.Unlock()
}

// WaitForReadLock blocks until a shared lock on the sentinel file is
// granted or the Locker's token is cancelled.
func (l *Locker) WaitForReadLock(ctx context.Context) (*Handle, error) {
	return l.wait(ctx, (*flock.Flock).TryRLock)
}

// WaitForWriteLock blocks until an exclusive lock on the sentinel file is
// granted or the Locker's token is cancelled.
func (l *Locker) WaitForWriteLock(ctx context.Context) (*Handle, error) {
	return l.wait(ctx, (*flock.Flock).TryLock)
}

func (l *Locker) wait(ctx context.Context, try func(*flock.Flock) (bool, error)) (*Handle, error) {
	fl := flock.New(l.path)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		ok, err := try(fl)
		if err != nil {
			return nil, fmt.Errorf("lock: acquire %s: %w", l.path, err)
		}
		if ok {
			return &Handle{fl: fl}, nil
		}

		select {
		case <-l.token.Done():
			return nil, ErrCancelled
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
