package session

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotmk/scheduler/internal/cancel"
	"github.com/robotmk/scheduler/internal/command"
)

func TestCurrentRunReturnsExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on a POSIX shell")
	}
	base := filepath.Join(t.TempDir(), "run")
	out, err := Current{}.Run(RunSpec{
		CommandSpec:     command.New("sh").AddArguments("-c", "echo out; echo err 1>&2; exit 5"),
		RuntimeBasePath: base,
		Token:           cancel.New(),
	})
	require.NoError(t, err)
	code, ok := out.IsCompleted()
	require.True(t, ok)
	assert.Equal(t, 5, code)

	stdout, err := os.ReadFile(base + ".stdout")
	require.NoError(t, err)
	assert.Equal(t, "out\n", string(stdout))
}

func TestCurrentRunTimesOutAndKillsProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on a POSIX shell")
	}
	base := filepath.Join(t.TempDir(), "run")
	out, err := Current{}.Run(RunSpec{
		CommandSpec:     command.New("sleep").AddArgument("30"),
		RuntimeBasePath: base,
		TimeoutSecs:     1,
		Token:           cancel.New(),
	})
	require.NoError(t, err)
	assert.True(t, out.IsTimeout())
}

func TestCurrentRunCancelsOnToken(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on a POSIX shell")
	}
	base := filepath.Join(t.TempDir(), "run")
	token := cancel.New()

	done := make(chan Outcome[int], 1)
	go func() {
		out, _ := Current{}.Run(RunSpec{
			CommandSpec:     command.New("sleep").AddArgument("30"),
			RuntimeBasePath: base,
			Token:           token,
		})
		done <- out
	}()

	time.Sleep(100 * time.Millisecond)
	token.Cancel()

	select {
	case out := <-done:
		assert.True(t, out.IsCancel())
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not unblock on token cancellation")
	}
}

func TestCurrentRunSpawnFailureReturnsError(t *testing.T) {
	base := filepath.Join(t.TempDir(), "run")
	_, err := Current{}.Run(RunSpec{
		CommandSpec:     command.New(filepath.Join(t.TempDir(), "does-not-exist")),
		RuntimeBasePath: base,
		Token:           cancel.New(),
	})
	require.Error(t, err)
}
