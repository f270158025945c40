package session

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/robotmk/scheduler/internal/cancel"
)

// Current supervises a command in the scheduler's own process session:
// stdio redirected to RuntimeBasePath.stdout/.stderr, awaited under a
// timeout and cancellation token, with the whole process tree killed on
// timeout or cancel (a spawn error leaves no process to kill).
type Current struct{}

// Run spawns spec's command, races its exit against the timeout and the
// token, and returns the corresponding Outcome. A spawn failure is
// returned as an error; the caller has no process to kill in that case. On
// exit, the integer exit code is required — a process that exited without
// one (e.g. killed by a signal on the runtime's behalf) is reported as an
// error, never silently folded into a code.
func (Current) Run(spec RunSpec) (Outcome[int], error) {
	cmd := spec.CommandSpec.ToExecCmd()

	stdout, err := os.Create(spec.RuntimeBasePath + ".stdout")
	if err != nil {
		return Outcome[int]{}, fmt.Errorf("session: open stdout file: %w", err)
	}
	defer stdout.Close()
	stderr, err := os.Create(spec.RuntimeBasePath + ".stderr")
	if err != nil {
		return Outcome[int]{}, fmt.Errorf("session: open stderr file: %w", err)
	}
	defer stderr.Close()

	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return Outcome[int]{}, fmt.Errorf("session: spawn %s: %w", spec.CommandSpec.Executable, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var timer *time.Timer
	var timerC <-chan time.Time
	if spec.TimeoutSecs > 0 {
		timer = time.NewTimer(time.Duration(spec.TimeoutSecs) * time.Second)
		timerC = timer.C
		defer timer.Stop()
	}

	select {
	case waitErr := <-done:
		code, ok := exitCode(waitErr)
		if !ok {
			cancel.KillTree(int32(cmd.Process.Pid))
			return Outcome[int]{}, fmt.Errorf("session: no exit code for %s", spec.CommandSpec.Executable)
		}
		return Completed(code), nil

	case <-timerC:
		cancel.KillTree(int32(cmd.Process.Pid))
		<-done
		return Timeout[int](), nil

	case <-spec.Token.Done():
		cancel.KillTree(int32(cmd.Process.Pid))
		<-done
		return Cancel[int](), nil
	}
}

// exitCode extracts the integer exit code from cmd.Wait's return value.
// A nil error means a clean zero exit. A process terminated by a signal
// (no code available on this platform) reports ok=false.
func exitCode(waitErr error) (int, bool) {
	if waitErr == nil {
		return 0, true
	}
	exitErr, ok := waitErr.(*exec.ExitError)
	if !ok {
		return 0, false
	}
	if exitErr.ProcessState == nil {
		return 0, false
	}
	code := exitErr.ExitCode()
	if code < 0 {
		// Negative means terminated by signal rather than a normal exit.
		return 0, false
	}
	return code, true
}
