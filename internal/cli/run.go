package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/robotmk/scheduler/internal/config"
	"github.com/robotmk/scheduler/internal/display"
	"github.com/robotmk/scheduler/internal/envbuild"
	"github.com/robotmk/scheduler/internal/results"
	"github.com/robotmk/scheduler/internal/runflag"
	"github.com/robotmk/scheduler/internal/scheduler"
	"github.com/robotmk/scheduler/internal/session"
	"github.com/robotmk/scheduler/internal/setup"
)

var runFlagPath string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run setup, environment build, and the periodic scheduler until cancelled",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runFlagPath, "run-flag", "", "path to a run-flag file; its deletion cancels the scheduler")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if cfgFile == "" {
		return fmt.Errorf("--config is required")
	}

	d := display.NewWithOptions(noColor)

	global, plans, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	phasePath := global.ResultsSectionPath(results.NameSchedulerPhase)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		d.Cancelled()
		global.Token.Cancel()
		if err := scheduler.PublishPhase(context.Background(), global.Locker, phasePath, scheduler.PhaseCancelled); err != nil {
			d.Error(fmt.Sprintf("failed to publish scheduler-phase section: %v", err))
		}
		cancelCtx()
	}()

	if runFlagPath != "" {
		go runflag.Watch(runFlagPath, global.Token)
	}

	sessions := buildSessions(plans)

	acl := setup.ACLGranter(setup.NoopACL{})
	if runtime.GOOS == "windows" {
		acl = setup.ICACLSGranter{}
	}
	sessionRunner := &setup.SessionRunner{ACL: acl, Sessions: sessions, Token: global.Token}

	if err := scheduler.PublishPhase(ctx, global.Locker, phasePath, scheduler.PhaseSetup); err != nil {
		d.Error(fmt.Sprintf("failed to publish scheduler-phase section: %v", err))
	}

	survivors, failures, cancelled := setup.RunSteps(ctx, global.Token, setup.Pipeline(global, sessionRunner), plans)
	for _, f := range failures {
		d.SetupFailure(f.PlanID, f.Summary)
	}
	if err := results.Write(ctx, global.Locker, global.ResultsSectionPath(results.NameSetupFailures),
		results.NameSetupFailures, results.Host{}, failures); err != nil {
		d.Error(fmt.Sprintf("failed to publish setup-failures section: %v", err))
	}
	if cancelled {
		if err := scheduler.PublishPhase(context.Background(), global.Locker, phasePath, scheduler.PhaseCancelled); err != nil {
			d.Error(fmt.Sprintf("failed to publish scheduler-phase section: %v", err))
		}
		return scheduler.ErrCancelled
	}

	if err := setup.CleanResultsDir(ctx, global, global.Locker, survivors); err != nil {
		d.Error(fmt.Sprintf("failed to clean stale results: %v", err))
	}

	if err := scheduler.PublishPhase(ctx, global.Locker, phasePath, scheduler.PhaseEnvironmentBuild); err != nil {
		d.Error(fmt.Sprintf("failed to publish scheduler-phase section: %v", err))
	}

	buildRunner := envbuild.Runner{Global: global, Sessions: sessions, Locker: global.Locker, Token: global.Token}
	built, err := buildRunner.Run(ctx, survivors)
	if err != nil {
		return fmt.Errorf("run: environment build stage: %w", err)
	}

	d.Banner(fmt.Sprintf("%d of %d plans entering scheduling", len(built), len(plans)))

	if err := scheduler.PublishPhase(ctx, global.Locker, phasePath, scheduler.PhaseScheduling); err != nil {
		d.Error(fmt.Sprintf("failed to publish scheduler-phase section: %v", err))
	}

	sched := scheduler.Scheduler{Global: global, Sessions: sessions, Locker: global.Locker, Token: global.Token, Logger: d}
	return sched.Run(ctx, built)
}

// buildSessions constructs one session.Session per distinct session
// descriptor among plans, keyed by session.Descriptor.ID() — the same
// key setup.SessionRunner, envbuild.Runner, and scheduler.Scheduler all
// use to resolve which runner a plan executes under.
func buildSessions(plans []config.Plan) map[string]session.Session {
	sessions := make(map[string]session.Session)
	for _, p := range plans {
		id := p.Session.ID()
		if _, ok := sessions[id]; ok {
			continue
		}
		sessions[id] = session.Session{
			Descriptor:    p.Session,
			CurrentRunner: session.Current{},
			UserRunner:    session.TaskScheduler{API: session.SchtasksAPI{}},
		}
	}
	return sessions
}
