package cancel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCancelIsIdempotentAndMonotonic(t *testing.T) {
	tok := New()
	assert.False(t, tok.Cancelled())

	tok.Cancel()
	assert.True(t, tok.Cancelled())

	// Cancelling again must not panic or un-cancel.
	tok.Cancel()
	assert.True(t, tok.Cancelled())
}

func TestTokenDoneClosesOnCancel(t *testing.T) {
	tok := New()
	select {
	case <-tok.Done():
		t.Fatal("Done channel closed before Cancel")
	default:
	}

	tok.Cancel()
	select {
	case <-tok.Done():
	case <-time.After(time.Second):
		t.Fatal("Done channel did not close after Cancel")
	}
}

func TestTokenAwaitUnblocksOnCancel(t *testing.T) {
	tok := New()
	done := make(chan struct{})
	go func() {
		tok.Await()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Await returned before Cancel")
	case <-time.After(50 * time.Millisecond):
	}

	tok.Cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Await did not unblock after Cancel")
	}
}

func TestTokenSharedAcrossHolders(t *testing.T) {
	tok := New()
	holderA := tok
	holderB := tok

	holderA.Cancel()
	require.True(t, holderB.Cancelled(), "cancelling through one holder must be observed by every holder of the same Token")
}
