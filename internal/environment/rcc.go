package environment

import (
	"context"
	"time"

	"github.com/robotmk/scheduler/internal/cancel"
	"github.com/robotmk/scheduler/internal/command"
	"github.com/robotmk/scheduler/internal/session"
)

// RCC wraps commands to run inside an rcc-managed holotree space.
type RCC struct {
	BinaryPath     string
	RobotYamlPath  string
	PlanID         string
	EnvironmentJSON string // optional, "" if unset
	RobocorpHome   string

	// CatalogZip, if non-empty, is imported into the holotree before the
	// no-op materialization task runs during Build. Supplements spec.md
	// §4.7's RCC build description with the holotree-import detail from
	// original_source/src/env/rcc.rs.
	CatalogZip string

	// WorkingDir is where Build's stdio artifacts are written
	// (<runtime>/working/environment_building/<plan_id>/<step>.stdout etc,
	// as set by New).
	WorkingDir string
}

func (r RCC) Wrap(cmd command.Spec) command.Spec {
	wrapped := command.New(r.BinaryPath).AddArguments(
		"--bundled", "task", "script",
		"--no-build",
		"--robot", r.RobotYamlPath,
		"--controller", "robotmk",
		"--space", r.PlanID,
	)
	if r.EnvironmentJSON != "" {
		wrapped = wrapped.AddArguments("--environment", r.EnvironmentJSON)
	}
	wrapped = wrapped.AddArguments("--")
	wrapped = wrapped.AddArgument(cmd.Executable)
	wrapped = wrapped.AddArguments(cmd.Arguments...)
	wrapped = wrapped.AddPlainEnv("ROBOCORP_HOME", r.RobocorpHome)
	for _, e := range cmd.EnvsPlain {
		wrapped = wrapped.AddPlainEnv(e.Key, e.Value)
	}
	for _, e := range cmd.EnvsObfuscated {
		wrapped = wrapped.AddObfuscatedEnv(e.Key, e.Value)
	}
	return wrapped
}

func (RCC) CreateResultCode(exitCode int) ResultCode {
	switch exitCode {
	case 0:
		return Success()
	case 10:
		return WrappedCommandFailed()
	default:
		return EnvironmentFailed()
	}
}

// Build optionally imports a holotree catalog, then runs a no-op task
// under the wrapper to materialize the space. Elapsed time from the
// import phase is deducted from the remaining budget before the
// materialization phase runs; exceeding the budget between phases is
// reported as BuildTimeout.
func (r RCC) Build(ctx context.Context, sess session.Session, token *cancel.Token, budget time.Duration) BuildOutcome {
	remaining := budget
	var totalElapsed time.Duration

	if r.CatalogZip != "" {
		importSpec := command.New(r.BinaryPath).AddArguments(
			"holotree", "import", r.CatalogZip,
		).AddPlainEnv("ROBOCORP_HOME", r.RobocorpHome)

		elapsed, out, err := runStep(ctx, sess, token, r.WorkingDir+"/import", importSpec, remaining)
		if err != nil {
			return buildErrorf("rcc build: holotree import: %v", err)
		}
		if out.IsCancel() {
			return BuildError("cancelled")
		}
		if out.IsTimeout() {
			return BuildTimeout()
		}
		code, _ := out.IsCompleted()
		if r.CreateResultCode(code).EnvironmentFailed {
			return buildErrorf("rcc build: holotree import failed with exit code %d", code)
		}

		totalElapsed += elapsed
		remaining -= elapsed
		if budgetExceeded(remaining) {
			return BuildTimeout()
		}
	}

	noop := r.Wrap(command.New("python").AddArguments("-c", "pass"))
	elapsed, out, err := runStep(ctx, sess, token, r.WorkingDir+"/materialize", noop, remaining)
	if err != nil {
		return buildErrorf("rcc build: materialize space: %v", err)
	}
	if out.IsCancel() {
		return BuildError("cancelled")
	}
	if out.IsTimeout() {
		return BuildTimeout()
	}
	code, _ := out.IsCompleted()
	rc := r.CreateResultCode(code)
	totalElapsed += elapsed
	if rc.EnvironmentFailed {
		return buildErrorf("rcc build: materialize space failed with exit code %d", code)
	}
	return BuildSuccess(totalElapsed)
}
