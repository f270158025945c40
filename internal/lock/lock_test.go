package lock

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotmk/scheduler/internal/cancel"
)

func TestWriteLockExcludesSecondWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.lock")
	token := cancel.New()
	locker := New(path, token)

	h1, err := locker.WaitForWriteLock(context.Background())
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		h2, err := locker.WaitForWriteLock(context.Background())
		if err == nil {
			close(acquired)
			_ = h2.Release()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second writer acquired the lock while the first still held it")
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, h1.Release())

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second writer never acquired the lock after release")
	}
}

func TestWaitForWriteLockUnblocksOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.lock")
	token := cancel.New()
	locker := New(path, token)

	h1, err := locker.WaitForWriteLock(context.Background())
	require.NoError(t, err)
	defer h1.Release()

	done := make(chan error, 1)
	go func() {
		_, err := locker.WaitForWriteLock(context.Background())
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	token.Cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrCancelled)
	case <-time.After(time.Second):
		t.Fatal("WaitForWriteLock did not unblock after token cancellation")
	}
}

func TestWaitForWriteLockUnblocksOnContextCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.lock")
	token := cancel.New()
	locker := New(path, token)

	h1, err := locker.WaitForWriteLock(context.Background())
	require.NoError(t, err)
	defer h1.Release()

	ctx, cancelCtx := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := locker.WaitForWriteLock(ctx)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancelCtx()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("WaitForWriteLock did not unblock after context cancellation")
	}
}

func TestReadLocksAreShared(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.lock")
	token := cancel.New()
	locker := New(path, token)

	h1, err := locker.WaitForReadLock(context.Background())
	require.NoError(t, err)
	defer h1.Release()

	h2, err := locker.WaitForReadLock(context.Background())
	require.NoError(t, err)
	defer h2.Release()
}
