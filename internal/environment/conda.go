package environment

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/robotmk/scheduler/internal/archive"
	"github.com/robotmk/scheduler/internal/cancel"
	"github.com/robotmk/scheduler/internal/command"
	"github.com/robotmk/scheduler/internal/session"
)

// Conda wraps commands to run inside a micromamba-managed prefix.
type Conda struct {
	MicromambaPath string
	RootPrefix     string
	Prefix         string

	// Source selects how the prefix is built: exactly one of Manifest or
	// Archive should be set.
	ManifestPath string // From-manifest build
	ArchivePath  string // From-archive build

	// SSLVerify controls --ssl-verify for the manifest build: empty means
	// omit the flag, "false" passes --ssl-verify false, anything else is
	// treated as a CA bundle path.
	SSLVerify   string
	SSLNoRevoke bool

	// Proxy env vars, obfuscated in every wrapped/build command per
	// spec.md §4.7.
	NoProxy, HTTPProxy, HTTPSProxy string

	// PostBuildCommands are additional commands run, each wrapped, in
	// order after the prefix is created/unpacked. Supplements spec.md
	// §4.7 with the post-build-manifest detail from
	// original_source/src/env/conda.rs.
	PostBuildCommands []command.Spec

	WorkingDir string
}

func (c Conda) Wrap(cmd command.Spec) command.Spec {
	wrapped := command.New(c.MicromambaPath).AddArguments(
		"run", "--root-prefix", c.RootPrefix, "--prefix", c.Prefix,
	)
	wrapped = wrapped.AddArgument(cmd.Executable)
	wrapped = wrapped.AddArguments(cmd.Arguments...)
	for _, e := range cmd.EnvsPlain {
		wrapped = wrapped.AddPlainEnv(e.Key, e.Value)
	}
	for _, e := range cmd.EnvsObfuscated {
		wrapped = wrapped.AddObfuscatedEnv(e.Key, e.Value)
	}
	return c.withProxyEnv(wrapped)
}

func (c Conda) withProxyEnv(cmd command.Spec) command.Spec {
	if c.NoProxy != "" {
		cmd = cmd.AddObfuscatedEnv("NO_PROXY", c.NoProxy)
	}
	if c.HTTPProxy != "" {
		cmd = cmd.AddObfuscatedEnv("HTTP_PROXY", c.HTTPProxy)
	}
	if c.HTTPSProxy != "" {
		cmd = cmd.AddObfuscatedEnv("HTTPS_PROXY", c.HTTPSProxy)
	}
	return cmd
}

func (Conda) CreateResultCode(exitCode int) ResultCode {
	if exitCode == 0 {
		return Success()
	}
	return Error(fmt.Sprintf("Failure with exit code %d", exitCode))
}

// Build dispatches to the from-manifest or from-archive path, then runs
// any post-build commands with the residual timeout budget.
func (c Conda) Build(ctx context.Context, sess session.Session, token *cancel.Token, budget time.Duration) BuildOutcome {
	remaining := budget
	var totalElapsed time.Duration

	var phaseOutcome BuildOutcome
	var elapsed time.Duration

	switch {
	case c.ArchivePath != "":
		elapsed, phaseOutcome = c.buildFromArchive(ctx, sess, token, remaining)
	case c.ManifestPath != "":
		elapsed, phaseOutcome = c.buildFromManifest(ctx, sess, token, remaining)
	default:
		return BuildError("conda build: neither manifest nor archive source configured")
	}

	totalElapsed += elapsed
	remaining -= elapsed
	if phaseOutcome.TimedOut || phaseOutcome.Err != "" {
		return phaseOutcome
	}
	if len(c.PostBuildCommands) == 0 {
		return BuildSuccess(totalElapsed)
	}
	if budgetExceeded(remaining) {
		return BuildTimeout()
	}

	for i, post := range c.PostBuildCommands {
		wrapped := c.withProxyEnv(c.Wrap(post))
		el, out, err := runStep(ctx, sess, token, postBuildPath(c.WorkingDir, i), wrapped, remaining)
		if err != nil {
			return buildErrorf("conda build: post-build command %d: %v", i, err)
		}
		if out.IsCancel() {
			return BuildError("cancelled")
		}
		if out.IsTimeout() {
			return BuildTimeout()
		}
		code, _ := out.IsCompleted()
		if rc := (Conda{}).CreateResultCode(code); !rc.Success {
			return buildErrorf("conda build: post-build command %d failed: %s", i, rc.Err)
		}
		totalElapsed += el
		remaining -= el
		if budgetExceeded(remaining) && i < len(c.PostBuildCommands)-1 {
			return BuildTimeout()
		}
	}

	return BuildSuccess(totalElapsed)
}

func (c Conda) buildFromManifest(ctx context.Context, sess session.Session, token *cancel.Token, budget time.Duration) (time.Duration, BuildOutcome) {
	spec := command.New(c.MicromambaPath).AddArguments(
		"create", "--file", c.ManifestPath, "--yes",
		"--root-prefix", c.RootPrefix, "--prefix", c.Prefix,
	)
	switch c.SSLVerify {
	case "":
	case "false":
		spec = spec.AddArguments("--ssl-verify", "false")
	default:
		spec = spec.AddArguments("--ssl-verify", c.SSLVerify)
	}
	if c.SSLNoRevoke {
		spec = spec.AddArguments("--ssl-no-revoke")
	}
	spec = c.withProxyEnv(spec)

	elapsed, out, err := runStep(ctx, sess, token, c.WorkingDir+"/create", spec, budget)
	if err != nil {
		return elapsed, buildErrorf("conda build: create from manifest: %v", err)
	}
	if out.IsCancel() {
		return elapsed, BuildError("cancelled")
	}
	if out.IsTimeout() {
		return elapsed, BuildTimeout()
	}
	code, _ := out.IsCompleted()
	if rc := (Conda{}).CreateResultCode(code); !rc.Success {
		return elapsed, buildErrorf("conda build: create from manifest failed: %s", rc.Err)
	}
	return elapsed, BuildSuccess(elapsed)
}

func (c Conda) buildFromArchive(ctx context.Context, sess session.Session, token *cancel.Token, budget time.Duration) (time.Duration, BuildOutcome) {
	start := time.Now()
	if err := archive.Extract(c.ArchivePath, c.Prefix); err != nil {
		return time.Since(start), buildErrorf("conda build: unpack archive: %v", err)
	}
	elapsed := time.Since(start)
	remaining := budget - elapsed
	if budgetExceeded(remaining) {
		return elapsed, BuildTimeout()
	}

	unpackSpec := c.Wrap(command.New("conda-unpack"))
	unpackElapsed, out, err := runStep(ctx, sess, token, c.WorkingDir+"/unpack", unpackSpec, remaining)
	total := elapsed + unpackElapsed
	if err != nil {
		return total, buildErrorf("conda build: conda-unpack: %v", err)
	}
	if out.IsCancel() {
		return total, BuildError("cancelled")
	}
	if out.IsTimeout() {
		return total, BuildTimeout()
	}
	code, _ := out.IsCompleted()
	if rc := (Conda{}).CreateResultCode(code); !rc.Success {
		return total, buildErrorf("conda build: conda-unpack failed: %s", rc.Err)
	}
	return total, BuildSuccess(total)
}

func postBuildPath(workDir string, i int) string {
	return workDir + "/post_build_" + strconv.Itoa(i)
}
