package setup

import (
	"context"
	"os"

	"github.com/robotmk/scheduler/internal/config"
)

// createRuntimeRootStep implements spec.md §4.11 step 2: create the
// shared runtime root, transfer ownership to the invoking identity, reset
// its ACL to defaults. Applies to every surviving plan collectively — a
// failure here drops every plan, since none can proceed without the root.
func createRuntimeRootStep(g config.GlobalConfig, runner *SessionRunner) Step {
	return Step{
		Name: "create_runtime_root",
		Run: func(ctx context.Context, plans []config.Plan) []Failure {
			if err := os.MkdirAll(g.RuntimeDir, 0o755); err != nil {
				return failAll(plans, "failed to create runtime root", err)
			}
			if err := runner.ACL.TakeOwnership(g.RuntimeDir); err != nil {
				return failAll(plans, "failed to take ownership of runtime root", err)
			}
			if err := runner.ACL.ResetToDefaults(g.RuntimeDir); err != nil {
				return failAll(plans, "failed to reset runtime root ACL", err)
			}
			return nil
		},
	}
}

// perPlanWorkingDirStep implements spec.md §4.11 step 3: per-plan working
// directory; grant the plan's session user full access if it runs under a
// UserSession.
func perPlanWorkingDirStep(g config.GlobalConfig, runner *SessionRunner) Step {
	return Step{
		Name: "per_plan_working_dir",
		Run: func(ctx context.Context, plans []config.Plan) []Failure {
			var failures []Failure
			for _, p := range plans {
				dir := g.PlanWorkingDir(p.ID)
				if err := os.MkdirAll(dir, 0o755); err != nil {
					failures = append(failures, failuref(p.ID, "failed to create plan working directory", "%v", err))
					continue
				}
				if !p.Session.IsCurrent() {
					if err := runner.ACL.Grant(dir, p.Session.UserName); err != nil {
						failures = append(failures, failuref(p.ID, "failed to grant session user access to working directory", "%v", err))
					}
				}
			}
			return failures
		},
	}
}

// perPlanEnvironmentBuildDirStep implements spec.md §4.11 step 4: same
// access grant, for the environment-build runtime directory.
func perPlanEnvironmentBuildDirStep(g config.GlobalConfig, runner *SessionRunner) Step {
	return Step{
		Name: "per_plan_environment_build_dir",
		Run: func(ctx context.Context, plans []config.Plan) []Failure {
			var failures []Failure
			for _, p := range plans {
				dir := g.EnvironmentBuildingDir() + "/" + p.ID
				if err := os.MkdirAll(dir, 0o755); err != nil {
					failures = append(failures, failuref(p.ID, "failed to create environment-build directory", "%v", err))
					continue
				}
				if !p.Session.IsCurrent() {
					if err := runner.ACL.Grant(dir, p.Session.UserName); err != nil {
						failures = append(failures, failuref(p.ID, "failed to grant session user access to environment-build directory", "%v", err))
					}
				}
			}
			return failures
		},
	}
}

// rccSetupBaseStep implements spec.md §4.11 step 5: create the RCC setup
// working base, and a per-session subdirectory for each RCC plan.
func rccSetupBaseStep(g config.GlobalConfig, runner *SessionRunner) Step {
	return Step{
		Name: "rcc_setup_base",
		Run: func(ctx context.Context, plans []config.Plan) []Failure {
			if err := os.MkdirAll(g.RCCSetupDir(), 0o755); err != nil {
				return failAll(plans, "failed to create RCC setup base directory", err)
			}
			var failures []Failure
			for _, p := range plans {
				if p.Environment.Kind != config.EnvRCC {
					continue
				}
				dir := g.RCCSetupDir() + "/" + p.Session.ID()
				if err := os.MkdirAll(dir, 0o755); err != nil {
					failures = append(failures, failuref(p.ID, "failed to create per-session RCC setup directory", "%v", err))
				}
			}
			return failures
		},
	}
}

// rccHomeBaseStep implements spec.md §4.11 step 6 (Windows-only): create
// or reset the shared RCC-home base directory, restricted to
// administrative identities.
func rccHomeBaseStep(g config.GlobalConfig, runner *SessionRunner) Step {
	return Step{
		Name:        "rcc_home_base",
		WindowsOnly: true,
		Run: func(ctx context.Context, plans []config.Plan) []Failure {
			// No RCC plan means nothing to prepare.
			hasRCC := false
			for _, p := range plans {
				if p.Environment.Kind == config.EnvRCC {
					hasRCC = true
					break
				}
			}
			if !hasRCC {
				return nil
			}
			base := g.RuntimeDir + "/rcc_home"
			if err := os.MkdirAll(base, 0o755); err != nil {
				return failAll(plans, "failed to create RCC home base directory", err)
			}
			if err := runner.ACL.RestrictToAdmins(base); err != nil {
				return failAll(plans, "failed to restrict RCC home base to administrators", err)
			}
			return nil
		},
	}
}

// perUserRCCHomeStep implements spec.md §4.11 step 7 (Windows-only):
// per-user RCC-home directory with user access grant.
func perUserRCCHomeStep(g config.GlobalConfig, runner *SessionRunner) Step {
	return Step{
		Name:        "per_user_rcc_home",
		WindowsOnly: true,
		Run: func(ctx context.Context, plans []config.Plan) []Failure {
			var failures []Failure
			for _, p := range plans {
				if p.Environment.Kind != config.EnvRCC || p.Session.IsCurrent() {
					continue
				}
				dir := g.RuntimeDir + "/rcc_home/" + p.Session.ID()
				if err := os.MkdirAll(dir, 0o755); err != nil {
					failures = append(failures, failuref(p.ID, "failed to create per-user RCC home directory", "%v", err))
					continue
				}
				if err := runner.ACL.Grant(dir, p.Session.UserName); err != nil {
					failures = append(failures, failuref(p.ID, "failed to grant session user access to RCC home", "%v", err))
				}
			}
			return failures
		},
	}
}

// rccBinaryAccessStep implements spec.md §4.11 step 8: grant each
// user-session RCC plan's user access to the RCC binary and to any custom
// RCC profile. Both grants go through ACLGranter.Grant, which gives full
// access; no narrower read or read+execute grant is made.
func rccBinaryAccessStep(g config.GlobalConfig, runner *SessionRunner) Step {
	return Step{
		Name: "rcc_binary_access",
		Run: func(ctx context.Context, plans []config.Plan) []Failure {
			var failures []Failure
			for _, p := range plans {
				if p.Environment.Kind != config.EnvRCC || p.Session.IsCurrent() {
					continue
				}
				if err := runner.ACL.Grant(g.RCCPath, p.Session.UserName); err != nil {
					failures = append(failures, failuref(p.ID, "failed to grant RCC binary access", "%v", err))
					continue
				}
				if p.Environment.RCCProfilePath != "" {
					if err := runner.ACL.Grant(p.Environment.RCCProfilePath, p.Session.UserName); err != nil {
						failures = append(failures, failuref(p.ID, "failed to grant RCC profile access", "%v", err))
					}
				}
			}
			return failures
		},
	}
}

func failAll(plans []config.Plan, summary string, err error) []Failure {
	failures := make([]Failure, 0, len(plans))
	for _, p := range plans {
		failures = append(failures, failuref(p.ID, summary, "%v", err))
	}
	return failures
}
