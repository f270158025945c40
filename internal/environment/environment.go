// Package environment wraps a command.Spec so it executes inside an
// isolated Python/toolchain sandbox (plain system Python, an RCC-managed
// holotree space, or a micromamba-managed conda prefix) and maps the
// wrapped tool's exit code back to a ResultCode.
package environment

import (
	"context"
	"time"

	"github.com/robotmk/scheduler/internal/cancel"
	"github.com/robotmk/scheduler/internal/command"
	"github.com/robotmk/scheduler/internal/session"
)

// ResultCode is the outcome of interpreting a wrapped command's numeric
// exit code. Only numeric comparison is used — no stdout/stderr parsing.
type ResultCode struct {
	Success              bool
	WrappedCommandFailed  bool
	EnvironmentFailed     bool
	Err                   string // non-empty iff neither flag above applies
}

// Success, WrappedCommandFailed, EnvironmentFailed, and Error are the four
// ResultCode constructors named in spec.md §3.
func Success() ResultCode             { return ResultCode{Success: true} }
func WrappedCommandFailed() ResultCode { return ResultCode{WrappedCommandFailed: true} }
func EnvironmentFailed() ResultCode    { return ResultCode{EnvironmentFailed: true} }
func Error(msg string) ResultCode     { return ResultCode{Err: msg} }

// BuildOutcome is the result of preparing an environment (RCC holotree
// space or conda prefix) ahead of any plan attempts.
type BuildOutcome struct {
	NotNeeded    bool
	DurationSecs float64
	TimedOut     bool
	Err          string
}

func NotNeeded() BuildOutcome                { return BuildOutcome{NotNeeded: true} }
func BuildSuccess(d time.Duration) BuildOutcome { return BuildOutcome{DurationSecs: d.Seconds()} }
func BuildTimeout() BuildOutcome             { return BuildOutcome{TimedOut: true} }
func BuildError(msg string) BuildOutcome     { return BuildOutcome{Err: msg} }

// IsSurviving reports whether a plan survives the environment-build stage
// given this outcome (spec.md §4.12: NotNeeded or Success).
func (b BuildOutcome) IsSurviving() bool {
	return b.NotNeeded || (!b.TimedOut && b.Err == "")
}

// Environment is implemented by System, RCC, and Conda. Wrap rewrites cmd
// to run inside the environment; CreateResultCode interprets the wrapped
// command's numeric exit code.
type Environment interface {
	Wrap(cmd command.Spec) command.Spec
	CreateResultCode(exitCode int) ResultCode
}

// Builder is implemented by environments that require preparation before
// first use (RCC, Conda). System has no build step. sess is the session
// the build's subprocesses run under; token cancels them; budget is the
// overall time allotted across every phase of the build.
type Builder interface {
	Build(ctx context.Context, sess session.Session, token *cancel.Token, budget time.Duration) BuildOutcome
}
