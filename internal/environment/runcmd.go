package environment

import (
	"context"
	"fmt"
	"time"

	"github.com/robotmk/scheduler/internal/cancel"
	"github.com/robotmk/scheduler/internal/command"
	"github.com/robotmk/scheduler/internal/session"
)

// runStep runs spec (unwrapped — callers pass the already-wrapped command
// when wrapping applies) to completion under sess within the given
// timeout, returning elapsed wall time and the outcome. It is the shared
// primitive every Builder implementation uses to run its phases
// (holotree import, no-op task, micromamba create/unpack, post-build
// commands) against the residual time budget.
func runStep(ctx context.Context, sess session.Session, token *cancel.Token, runtimeBasePath string, spec command.Spec, timeout time.Duration) (time.Duration, session.Outcome[int], error) {
	start := time.Now()
	out, err := sess.Run(ctx, session.RunSpec{
		ID:              runtimeBasePath,
		CommandSpec:     spec,
		RuntimeBasePath: runtimeBasePath,
		TimeoutSecs:     int(timeout.Seconds()),
		Token:           token,
	})
	return time.Since(start), out, err
}

// budgetExceeded reports whether a step consumed more than the remaining
// budget, in which case the caller should report BuildTimeout rather than
// attempt the next phase.
func budgetExceeded(remaining time.Duration) bool {
	return remaining <= 0
}

func buildErrorf(format string, args ...any) BuildOutcome {
	return BuildError(fmt.Sprintf(format, args...))
}
