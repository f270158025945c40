package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotmk/scheduler/internal/cancel"
	"github.com/robotmk/scheduler/internal/command"
)

func TestDescriptorIDAndIsCurrent(t *testing.T) {
	current := Descriptor{}
	assert.True(t, current.IsCurrent())
	assert.Equal(t, "current_user", current.ID())

	user := Descriptor{UserName: "alice"}
	assert.False(t, user.IsCurrent())
	assert.Equal(t, "user_alice", user.ID())
}

func TestSessionRunDispatchesToCurrentRunner(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns a real process")
	}
	sess := Session{Descriptor: Descriptor{}, CurrentRunner: Current{}}
	base := t.TempDir() + "/run"

	out, err := sess.Run(context.Background(), RunSpec{
		CommandSpec:     command.New("true"),
		RuntimeBasePath: base,
		Token:           cancel.New(),
	})
	require.NoError(t, err)
	code, ok := out.IsCompleted()
	require.True(t, ok)
	assert.Equal(t, 0, code)
}

func TestSessionRunErrorsWithoutTaskSchedulerAPI(t *testing.T) {
	sess := Session{Descriptor: Descriptor{UserName: "alice"}}
	_, err := sess.Run(context.Background(), RunSpec{
		CommandSpec: command.New("true"),
		Token:       cancel.New(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no task-scheduler API")
}
