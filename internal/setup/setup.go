// Package setup orders the pre-flight pipeline — unpacking managed
// sources, creating directories, granting session access, and
// initializing the RCC toolchain — as a sequence of steps. Each step
// reports the plans it affects; a failing step drops those plans and
// records a SetupFailure, but does not abort the remaining steps or
// plans (C11).
package setup

import (
	"context"
	"fmt"
	"runtime"

	"github.com/robotmk/scheduler/internal/archive"
	"github.com/robotmk/scheduler/internal/cancel"
	"github.com/robotmk/scheduler/internal/config"
)

// Failure is a setup step's localized failure, recorded against one plan.
type Failure struct {
	PlanID  string
	Summary string
	Details string
}

// Step is one named unit of the setup pipeline. Run receives the plans
// still surviving when the step executes and returns the subset that
// failed (with a Failure each); every plan not returned is considered to
// have passed the step.
type Step struct {
	Name string
	// WindowsOnly steps are skipped entirely on non-Windows platforms,
	// mirroring spec.md §4.11's "platform-gated steps are skipped on
	// non-applicable platforms."
	WindowsOnly bool
	Run         func(ctx context.Context, plans []config.Plan) []Failure
}

// Pipeline is the canonical, ordered list of setup steps from spec.md
// §4.11 steps 1–9.
func Pipeline(g config.GlobalConfig, runner *SessionRunner) []Step {
	return []Step{
		unpackManagedArchivesStep(g),
		createRuntimeRootStep(g, runner),
		perPlanWorkingDirStep(g, runner),
		perPlanEnvironmentBuildDirStep(g, runner),
		rccSetupBaseStep(g, runner),
		rccHomeBaseStep(g, runner),
		perUserRCCHomeStep(g, runner),
		rccBinaryAccessStep(g, runner),
		rccConfigureStep(g, runner),
	}
}

// RunSteps executes steps in order against plans, dropping any plan that a
// step fails for and recording its Failure. Between steps, token is
// checked for cancellation: a cancelled run stops issuing further steps
// and returns immediately with whatever failures/survivors have
// accumulated so far along with a cancellation indicator.
func RunSteps(ctx context.Context, token *cancel.Token, steps []Step, plans []config.Plan) (survivors []config.Plan, failures []Failure, cancelled bool) {
	survivors = plans
	for _, step := range steps {
		if token.Cancelled() {
			return survivors, failures, true
		}
		if step.WindowsOnly && runtime.GOOS != "windows" {
			continue
		}

		stepFailures := step.Run(ctx, survivors)
		if len(stepFailures) == 0 {
			continue
		}

		failed := make(map[string]bool, len(stepFailures))
		for _, f := range stepFailures {
			failed[f.PlanID] = true
			failures = append(failures, f)
		}

		remaining := survivors[:0:0]
		for _, p := range survivors {
			if !failed[p.ID] {
				remaining = append(remaining, p)
			}
		}
		survivors = remaining
	}
	return survivors, failures, false
}

func failuref(planID, summary, format string, args ...any) Failure {
	return Failure{PlanID: planID, Summary: summary, Details: fmt.Sprintf(format, args...)}
}

func unpackManagedArchivesStep(g config.GlobalConfig) Step {
	return Step{
		Name: "unpack_managed_archives",
		Run: func(ctx context.Context, plans []config.Plan) []Failure {
			var failures []Failure
			for _, p := range plans {
				if !p.Source.IsManaged() {
					continue
				}
				if err := archive.Extract(p.Source.ArchivePath, p.Source.TargetDir); err != nil {
					if tooLarge, ok := err.(*archive.ErrTooLarge); ok {
						failures = append(failures, failuref(p.ID, "managed archive exceeds the 50 MiB size limit",
							"archive %s summed to %d bytes", p.Source.ArchivePath, tooLarge.TotalBytes))
					} else {
						failures = append(failures, failuref(p.ID, "failed to unpack managed archive", "%v", err))
					}
				}
			}
			return failures
		},
	}
}
