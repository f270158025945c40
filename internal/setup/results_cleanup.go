package setup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/robotmk/scheduler/internal/config"
	"github.com/robotmk/scheduler/internal/lock"
)

// CleanResultsDir implements the tail of spec.md §4.11: after setup, any
// per-plan result file no longer expected by a surviving plan is deleted,
// and any other file directly under the results root is deleted too —
// stray sections from a previous, differently-configured run are not
// left behind for the monitoring agent to misread. Subdirectories (the
// plans/ tree itself) are left in place; only their stale file contents
// are pruned. The whole pass runs under one exclusive results-lock
// acquisition, matching §5's "acquire the results lock only around the
// write" discipline.
func CleanResultsDir(ctx context.Context, g config.GlobalConfig, locker *lock.Locker, survivors []config.Plan) error {
	handle, err := locker.WaitForWriteLock(ctx)
	if err != nil {
		return fmt.Errorf("setup: acquire results lock for cleanup: %w", err)
	}
	defer handle.Release()

	expected := make(map[string]bool, len(survivors))
	for _, p := range survivors {
		expected[p.ID] = true
	}

	if err := pruneUnexpectedPlanResults(g, expected); err != nil {
		return err
	}
	return pruneStrayResultsRootFiles(g, locker.Path())
}

func pruneUnexpectedPlanResults(g config.GlobalConfig, expected map[string]bool) error {
	plansDir := filepath.Join(g.ResultsDir(), "plans")
	entries, err := os.ReadDir(plansDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("setup: list results plans dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		planID := trimJSONExt(entry.Name())
		if expected[planID] {
			continue
		}
		if err := os.Remove(filepath.Join(plansDir, entry.Name())); err != nil {
			return fmt.Errorf("setup: remove stale plan result %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// pruneStrayResultsRootFiles deletes every file directly under the
// results root except the lock sentinel itself — the caller is holding
// it, and removing it out from under concurrent waiters would let a
// later acquisition open a fresh inode and bypass the serialization it
// exists for.
func pruneStrayResultsRootFiles(g config.GlobalConfig, sentinelPath string) error {
	entries, err := os.ReadDir(g.ResultsDir())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("setup: list results dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(g.ResultsDir(), entry.Name())
		if path == sentinelPath {
			continue
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("setup: remove stray results file %s: %w", entry.Name(), err)
		}
	}
	return nil
}

func trimJSONExt(name string) string {
	const ext = ".json"
	if len(name) > len(ext) && name[len(name)-len(ext):] == ext {
		return name[:len(name)-len(ext)]
	}
	return name
}
