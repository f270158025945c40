package planrunner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/robotmk/scheduler/internal/cancel"
	"github.com/robotmk/scheduler/internal/config"
	"github.com/robotmk/scheduler/internal/environment"
	"github.com/robotmk/scheduler/internal/lock"
	"github.com/robotmk/scheduler/internal/results"
	"github.com/robotmk/scheduler/internal/robot"
	"github.com/robotmk/scheduler/internal/session"
)

// ErrCancelled is returned by Run when the plan's cancellation token fires
// mid-attempt; it is the only error that unwinds past the plan runner,
// per spec.md §7.
var ErrCancelled = errors.New("planrunner: cancelled")

// OutputDirTimeFormat is the UTC timestamp format used to name each
// scheduling tick's output directory (spec.md §9 open question (c)).
const OutputDirTimeFormat = "2006-01-02T15.04.05.000Z"

// Runner executes one plan's attempts, merges them, and persists a
// PlanExecutionReport. Token is the cancellation token observed by every
// attempt and the rebot merge; it is process-wide per spec.md §3
// Ownership, shared (not cloned) across every Runner the scheduler
// constructs.
type Runner struct {
	Sess   session.Session
	Env    environment.Environment
	Locker *lock.Locker
	Token  *cancel.Token
}

// Run executes plan to completion for one scheduling tick.
func (r Runner) Run(ctx context.Context, plan config.Plan) error {
	runID := uuid.NewString()
	outputDir := filepath.Join(plan.WorkingDir, time.Now().UTC().Format(OutputDirTimeFormat))
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("planrunner: create output dir for plan %s: %w", plan.ID, err)
	}

	attemptSpecs := robot.BuildAttempts(plan.Robot, outputDir)

	var reports []AttemptReport
	var retainedXMLs []string

	for _, attempt := range attemptSpecs {
		start := time.Now()
		wrapped := r.Env.Wrap(attempt.CommandSpec)

		out, runErr := r.Sess.Run(ctx, session.RunSpec{
			ID:              fmt.Sprintf("%s-%d", plan.ID, attempt.Index),
			CommandSpec:     wrapped,
			RuntimeBasePath: filepath.Join(outputDir, fmt.Sprint(attempt.Index)),
			TimeoutSecs:     plan.OverallTimeoutSecs,
			Token:           r.Token,
		})

		runtimeSecs := time.Since(start).Seconds()

		switch {
		case runErr != nil:
			reports = append(reports, AttemptReport{Index: attempt.Index, Outcome: outcomeOtherError(runErr.Error()), RuntimeSecs: runtimeSecs})
			continue

		case out.IsCancel():
			return ErrCancelled

		case out.IsTimeout():
			reports = append(reports, AttemptReport{Index: attempt.Index, Outcome: outcomeTimedOut(), RuntimeSecs: runtimeSecs})
			continue
		}

		code, _ := out.IsCompleted()
		rc := r.Env.CreateResultCode(code)

		var outcome AttemptOutcome
		stop := false
		switch {
		case rc.Success:
			outcome = outcomeAllTestsPassed()
			retainedXMLs = append(retainedXMLs, attempt.OutputXMLFile)
			stop = true

		case rc.EnvironmentFailed:
			outcome = outcomeEnvironmentFailure()

		case rc.WrappedCommandFailed:
			if _, statErr := os.Stat(attempt.OutputXMLFile); statErr == nil {
				outcome = outcomeTestFailures()
				retainedXMLs = append(retainedXMLs, attempt.OutputXMLFile)
			} else {
				outcome = outcomeRobotFailure()
			}

		default:
			outcome = outcomeOtherError(rc.Err)
		}

		reports = append(reports, AttemptReport{Index: attempt.Index, Outcome: outcome, RuntimeSecs: runtimeSecs})

		if stop {
			break
		}
	}

	var rebotOutcome *robot.RebotOutcome
	if len(retainedXMLs) > 0 {
		out := robot.Rebot(ctx, r.Sess, r.Env, r.Token, outputDir, retainedXMLs)
		if out.Cancelled {
			return ErrCancelled
		}
		rebotOutcome = &out
	}

	report := PlanExecutionReport{
		PlanID:        plan.ID,
		TimestampUnix: time.Now().Unix(),
		Attempts:      reports,
		Rebot:         rebotOutcome,
		Config: ExecutionConfig{
			IntervalSecs: plan.ExecutionIntervalSecs,
			TimeoutSecs:  plan.OverallTimeoutSecs,
			MaxAttempts:  plan.Robot.MaxAttempts,
		},
		Metadata: map[string]string{"run_id": runID},
	}

	host := results.Host{Piggyback: plan.Host.Piggyback}
	return results.Write(ctx, r.Locker, plan.ResultsFile, results.NamePlanExecutionReport, host, report)
}

