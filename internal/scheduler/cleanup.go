package scheduler

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/robotmk/scheduler/internal/config"
)

// runCleanup prunes every plan's working directory per its cleanup
// policy, per spec.md §4.13. A symlink entry is never followed — it is
// removed (or kept) as itself, via os.Lstat, matching the documented
// choice for spec.md §9 open question (b).
func (s Scheduler) runCleanup(plans []config.Plan) {
	now := time.Now()
	for _, plan := range plans {
		if err := cleanupPlanDir(plan.WorkingDir, plan.Cleanup, now); err != nil {
			s.logger().Error(fmt.Sprintf("cleanup plan %s: %v", plan.ID, err))
		}
	}
}

type dirEntryInfo struct {
	name    string
	path    string
	modTime time.Time
}

func cleanupPlanDir(dir string, policy config.CleanupPolicy, now time.Time) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("list %s: %w", dir, err)
	}

	infos := make([]dirEntryInfo, 0, len(entries))
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		fi, err := os.Lstat(path)
		if err != nil {
			continue
		}
		infos = append(infos, dirEntryInfo{name: e.Name(), path: path, modTime: fi.ModTime()})
	}

	var toRemove []dirEntryInfo
	if policy.IsMaxAge() {
		toRemove = selectByMaxAge(infos, policy.MaxAgeSecs, now)
	} else if policy.MaxExecutions > 0 {
		toRemove = selectByMaxExecutions(infos, policy.MaxExecutions)
	}

	for _, entry := range toRemove {
		if err := os.RemoveAll(entry.path); err != nil {
			return fmt.Errorf("remove %s: %w", entry.path, err)
		}
	}
	return nil
}

// selectByMaxAge removes any entry whose mtime precedes now - maxAgeSecs.
// Entries with a future mtime are always preserved, per spec.md §4.13 and
// §8's MaxAgeSecs testable property.
func selectByMaxAge(infos []dirEntryInfo, maxAgeSecs int, now time.Time) []dirEntryInfo {
	cutoff := now.Add(-time.Duration(maxAgeSecs) * time.Second)
	var stale []dirEntryInfo
	for _, e := range infos {
		if e.modTime.After(now) {
			continue
		}
		if e.modTime.Before(cutoff) {
			stale = append(stale, e)
		}
	}
	return stale
}

// selectByMaxExecutions sorts entries by mtime ascending and returns every
// entry beyond the newest k, per spec.md §4.13 and §8's MaxExecutions
// testable property.
func selectByMaxExecutions(infos []dirEntryInfo, k int) []dirEntryInfo {
	sorted := append([]dirEntryInfo{}, infos...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].modTime.Before(sorted[j].modTime) })
	if len(sorted) <= k {
		return nil
	}
	return sorted[:len(sorted)-k]
}
