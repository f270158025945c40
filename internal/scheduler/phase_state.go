package scheduler

import (
	"context"
	"time"

	"github.com/robotmk/scheduler/internal/lock"
	"github.com/robotmk/scheduler/internal/results"
)

// RunPhase names the run's current lifecycle stage, published to the
// robotmk_scheduler_phase section so the monitoring agent can tell a
// stalled setup/build stage apart from a healthy, ticking scheduler.
// Unrelated to PhaseAlignedDelay's per-group tick alignment.
type RunPhase string

const (
	PhaseSetup            RunPhase = "setup"
	PhaseEnvironmentBuild RunPhase = "environment_build"
	PhaseScheduling       RunPhase = "scheduling"
	PhaseCancelled        RunPhase = "cancelled"
)

// PhaseState is the persisted content of the robotmk_scheduler_phase
// section.
type PhaseState struct {
	Phase         RunPhase `json:"phase"`
	TimestampUnix int64    `json:"timestamp_unix"`
}

// PublishPhase writes the current run phase to path under locker,
// satisfying spec.md §7's "every run ... produces ... a scheduler-phase
// section" regardless of whether the run eventually succeeds, is
// cancelled, or drops every plan in setup.
func PublishPhase(ctx context.Context, locker *lock.Locker, path string, phase RunPhase) error {
	return results.Write(ctx, locker, path, results.NameSchedulerPhase, results.Host{}, PhaseState{
		Phase:         phase,
		TimestampUnix: time.Now().Unix(),
	})
}
