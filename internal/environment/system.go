package environment

import "github.com/robotmk/scheduler/internal/command"

// System runs commands directly, with no sandboxing. It has no Build
// step: it always survives the environment-build stage as NotNeeded.
type System struct{}

func (System) Wrap(cmd command.Spec) command.Spec { return cmd }

func (System) CreateResultCode(exitCode int) ResultCode {
	if exitCode == 0 {
		return Success()
	}
	return WrappedCommandFailed()
}
