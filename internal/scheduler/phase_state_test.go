package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotmk/scheduler/internal/cancel"
	"github.com/robotmk/scheduler/internal/lock"
	"github.com/robotmk/scheduler/internal/results"
)

func TestPublishPhaseWritesReadableEnvelope(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scheduler_phase.json")
	token := cancel.New()
	locker := lock.New(filepath.Join(dir, ".lock"), token)

	require.NoError(t, PublishPhase(context.Background(), locker, path, PhaseSetup))

	var state PhaseState
	env, err := results.Read(context.Background(), locker, path, &state)
	require.NoError(t, err)
	assert.Equal(t, results.NameSchedulerPhase, env.Name)
	assert.Equal(t, PhaseSetup, state.Phase)
	assert.NotZero(t, state.TimestampUnix)

	require.NoError(t, PublishPhase(context.Background(), locker, path, PhaseCancelled))
	_, err = results.Read(context.Background(), locker, path, &state)
	require.NoError(t, err)
	assert.Equal(t, PhaseCancelled, state.Phase)

	_, statErr := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(statErr), "temp file should not linger after rename")
}
