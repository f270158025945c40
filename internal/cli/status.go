package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/robotmk/scheduler/internal/cancel"
	"github.com/robotmk/scheduler/internal/config"
	"github.com/robotmk/scheduler/internal/display"
	"github.com/robotmk/scheduler/internal/lock"
	"github.com/robotmk/scheduler/internal/planrunner"
	"github.com/robotmk/scheduler/internal/results"
	"github.com/robotmk/scheduler/internal/robot"
)

var statusVerbose bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print a summary of the published results tree",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVarP(&statusVerbose, "verbose", "v", false, "print per-attempt detail for every plan")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if cfgFile == "" {
		return fmt.Errorf("--config is required")
	}
	global, plans, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	d := display.NewWithOptions(noColor)
	ctx := context.Background()
	token := cancel.New()
	locker := lock.New(filepath.Join(global.ResultsDir(), ".lock"), token)

	for _, p := range plans {
		var report planrunner.PlanExecutionReport
		if _, err := results.Read(ctx, locker, global.PlanResultsPath(p.ID), &report); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				d.Warning(fmt.Sprintf("plan %s: no result yet", p.ID))
			} else {
				d.Error(fmt.Sprintf("plan %s: %v", p.ID, err))
			}
			continue
		}
		printPlanSummary(d, report)
	}
	return nil
}

func printPlanSummary(d *display.Display, report planrunner.PlanExecutionReport) {
	if len(report.Attempts) == 0 {
		d.Warning(fmt.Sprintf("plan %s: no attempts recorded", report.PlanID))
		return
	}
	last := report.Attempts[len(report.Attempts)-1]
	switch {
	case last.Outcome.AllTestsPassed:
		d.Success(fmt.Sprintf("plan %s: all tests passed (%d attempts)", report.PlanID, len(report.Attempts)))
	case last.Outcome.TestFailures:
		d.Warning(fmt.Sprintf("plan %s: test failures after %d attempts", report.PlanID, len(report.Attempts)))
	default:
		d.Error(fmt.Sprintf("plan %s: did not complete cleanly after %d attempts", report.PlanID, len(report.Attempts)))
	}

	if !statusVerbose {
		return
	}
	for _, a := range report.Attempts {
		d.Attempt(report.PlanID, a.Index, attemptOutcomeLabel(a.Outcome), a.Outcome.AllTestsPassed)
	}
	if report.Rebot != nil {
		d.Rebot(report.PlanID, report.Rebot.OK, rebotLabel(*report.Rebot))
	}
}

func attemptOutcomeLabel(o planrunner.AttemptOutcome) string {
	switch {
	case o.AllTestsPassed:
		return "all tests passed"
	case o.TestFailures:
		return "test failures"
	case o.RobotFailure:
		return "robot failure"
	case o.EnvironmentFailure:
		return "environment failure"
	case o.TimedOut:
		return "timed out"
	default:
		return "error: " + o.OtherError
	}
}

func rebotLabel(r robot.RebotOutcome) string {
	if r.OK {
		return "merged"
	}
	if r.Cancelled {
		return "cancelled"
	}
	return r.Err
}
