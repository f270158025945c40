package setup

import (
	"context"
	"fmt"

	"github.com/robotmk/scheduler/internal/cancel"
	"github.com/robotmk/scheduler/internal/command"
	"github.com/robotmk/scheduler/internal/config"
	"github.com/robotmk/scheduler/internal/session"
)

// rccConfigureCommandTimeoutSecs bounds each individual "rcc configure"
// invocation; these are local, non-interactive CLI calls and never take
// more than a few seconds in practice.
const rccConfigureCommandTimeoutSecs = 60

// rccRevokeAlreadyNotSharedExitCode is the exit code RCC reports when
// asked to revoke a holotree that was never shared in the first place —
// treated as success alongside a plain 0, per spec.md §4.11 step 9.
const rccRevokeAlreadyNotSharedExitCode = 5

// rccConfigureStep implements spec.md §4.11 step 9: run a sequence of RCC
// "configure" commands under each relevant session — disable telemetry,
// switch to the default or a custom profile, enable long-path support
// (once, in the current session only), and revoke any shared holotree.
func rccConfigureStep(g config.GlobalConfig, runner *SessionRunner) Step {
	return Step{
		Name: "rcc_configure",
		Run: func(ctx context.Context, plans []config.Plan) []Failure {
			var failures []Failure
			longPathDone := false
			seenSessions := make(map[string]bool)

			for _, p := range plans {
				if p.Environment.Kind != config.EnvRCC || seenSessions[p.Session.ID()] {
					continue
				}
				seenSessions[p.Session.ID()] = true

				sess := runner.sessionFor(p.Session)
				base := g.RCCSetupDir() + "/" + p.Session.ID()
				bin := p.Environment.RCCBinaryPath

				if err := runConfigureCommand(ctx, sess, runner.Token, base+"/telemetry",
					command.New(bin).AddArguments("configure", "identity", "--do-not-track")); err != nil {
					failures = append(failures, configureFailures(plans, p.Session, "failed to disable RCC telemetry", err)...)
					continue
				}

				if p.Environment.RCCProfilePath != "" {
					if err := runConfigureCommand(ctx, sess, runner.Token, base+"/profile_import",
						command.New(bin).AddArguments("configure", "import", "--filename", p.Environment.RCCProfilePath)); err != nil {
						failures = append(failures, configureFailures(plans, p.Session, "failed to import RCC profile", err)...)
						continue
					}
					if err := runConfigureCommand(ctx, sess, runner.Token, base+"/profile_switch",
						command.New(bin).AddArguments("configure", "switch", "--profile", p.Environment.RCCProfileName)); err != nil {
						failures = append(failures, configureFailures(plans, p.Session, "failed to switch RCC profile", err)...)
						continue
					}
				} else {
					if err := runConfigureCommand(ctx, sess, runner.Token, base+"/profile_switch",
						command.New(bin).AddArguments("configure", "switch", "--default")); err != nil {
						failures = append(failures, configureFailures(plans, p.Session, "failed to switch RCC profile", err)...)
						continue
					}
				}

				if !longPathDone && p.Session.IsCurrent() {
					if err := runConfigureCommand(ctx, sess, runner.Token, base+"/longpaths",
						command.New(bin).AddArguments("configure", "longpaths", "--enable")); err != nil {
						failures = append(failures, configureFailures(plans, p.Session, "failed to enable RCC long-path support", err)...)
						continue
					}
					longPathDone = true
				}

				if err := runRevokeHolotree(ctx, sess, runner.Token, base+"/holotree_revoke", bin); err != nil {
					failures = append(failures, configureFailures(plans, p.Session, "failed to revoke shared RCC holotree", err)...)
				}
			}
			return failures
		},
	}
}

// runConfigureCommand runs spec to completion, treating anything other
// than a clean zero exit (including timeout or cancellation) as failure.
func runConfigureCommand(ctx context.Context, sess session.Session, token *cancel.Token, runtimeBasePath string, spec command.Spec) error {
	out, err := sess.Run(ctx, session.RunSpec{
		ID:              runtimeBasePath,
		CommandSpec:     spec,
		RuntimeBasePath: runtimeBasePath,
		TimeoutSecs:     rccConfigureCommandTimeoutSecs,
		Token:           token,
	})
	if err != nil {
		return err
	}
	if out.IsCancel() {
		return fmt.Errorf("cancelled")
	}
	if out.IsTimeout() {
		return fmt.Errorf("timed out")
	}
	code, _ := out.IsCompleted()
	if code != 0 {
		return fmt.Errorf("%s exited with code %d", spec.Executable, code)
	}
	return nil
}

// runRevokeHolotree runs "rcc holotree shared --revoke", accepting exit
// code 5 ("already not shared") as success alongside 0.
func runRevokeHolotree(ctx context.Context, sess session.Session, token *cancel.Token, runtimeBasePath, bin string) error {
	spec := command.New(bin).AddArguments("holotree", "shared", "--revoke")
	out, err := sess.Run(ctx, session.RunSpec{
		ID:              runtimeBasePath,
		CommandSpec:     spec,
		RuntimeBasePath: runtimeBasePath,
		TimeoutSecs:     rccConfigureCommandTimeoutSecs,
		Token:           token,
	})
	if err != nil {
		return err
	}
	if out.IsCancel() {
		return fmt.Errorf("cancelled")
	}
	if out.IsTimeout() {
		return fmt.Errorf("timed out")
	}
	code, _ := out.IsCompleted()
	if code == 0 || code == rccRevokeAlreadyNotSharedExitCode {
		return nil
	}
	return fmt.Errorf("holotree revoke exited with code %d", code)
}

// configureFailures records the same configure failure against every
// surviving plan that shares sessionID, since a configure command runs
// once per session on behalf of all of that session's plans.
func configureFailures(plans []config.Plan, desc session.Descriptor, summary string, err error) []Failure {
	var out []Failure
	for _, p := range plans {
		if p.Session.ID() == desc.ID() {
			out = append(out, failuref(p.ID, summary, "%v", err))
		}
	}
	return out
}
