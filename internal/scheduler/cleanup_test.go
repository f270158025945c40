package scheduler

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotmk/scheduler/internal/config"
)

func touchWithMTime(t *testing.T, dir, name string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func TestCleanupPlanDirMaxAgeRemovesOnlyStaleEntries(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	oldPath := touchWithMTime(t, dir, "old.json", now.Add(-2*time.Hour))
	newPath := touchWithMTime(t, dir, "new.json", now.Add(-time.Minute))

	require.NoError(t, cleanupPlanDir(dir, config.CleanupPolicy{MaxAgeSecs: 3600}, now))

	_, err := os.Stat(oldPath)
	assert.True(t, os.IsNotExist(err), "entry older than MaxAgeSecs should be removed")
	_, err = os.Stat(newPath)
	assert.NoError(t, err, "entry within MaxAgeSecs should be kept")
}

func TestCleanupPlanDirMaxAgePreservesFutureMTime(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	futurePath := touchWithMTime(t, dir, "future.json", now.Add(time.Hour))

	require.NoError(t, cleanupPlanDir(dir, config.CleanupPolicy{MaxAgeSecs: 1}, now))

	_, err := os.Stat(futurePath)
	assert.NoError(t, err, "entries with a future mtime must never be pruned")
}

func TestCleanupPlanDirMaxExecutionsKeepsNewestK(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	p1 := touchWithMTime(t, dir, "1.json", now.Add(-3*time.Minute))
	p2 := touchWithMTime(t, dir, "2.json", now.Add(-2*time.Minute))
	p3 := touchWithMTime(t, dir, "3.json", now.Add(-time.Minute))

	require.NoError(t, cleanupPlanDir(dir, config.CleanupPolicy{MaxExecutions: 2}, now))

	_, err := os.Stat(p1)
	assert.True(t, os.IsNotExist(err), "oldest entry beyond the retained count should be removed")
	_, err = os.Stat(p2)
	assert.NoError(t, err)
	_, err = os.Stat(p3)
	assert.NoError(t, err)
}

func TestCleanupPlanDirMissingDirIsNoop(t *testing.T) {
	err := cleanupPlanDir(filepath.Join(t.TempDir(), "missing"), config.CleanupPolicy{MaxAgeSecs: 60}, time.Now())
	assert.NoError(t, err)
}

func TestSelectByMaxExecutionsNoopWhenUnderLimit(t *testing.T) {
	infos := []dirEntryInfo{{name: "a", modTime: time.Now()}}
	assert.Empty(t, selectByMaxExecutions(infos, 5))
}
