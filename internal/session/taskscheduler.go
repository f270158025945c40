package session

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robotmk/scheduler/internal/cancel"
)

// taskSchedulerPoll is how often TaskScheduler polls for task completion.
// It must yield to the runtime between polls rather than block it, per the
// cooperative-runtime requirement in spec.md §4.5/§9.
const taskSchedulerPoll = 250 * time.Millisecond

// SchedulerAPI abstracts the OS task-scheduler facility (Windows Task
// Scheduler in production; a fake in tests) so TaskScheduler's polling and
// cancellation logic can be exercised without the real COM/schtasks
// surface.
type SchedulerAPI interface {
	// SessionExists reports whether an interactive session for userName
	// is currently active.
	SessionExists(userName string) (bool, error)
	// CreateTask registers a one-shot, interactive, limited-privilege task
	// bound to userName that runs wrapperPath.
	CreateTask(taskName, userName, wrapperPath string) error
	// Start begins the task.
	Start(taskName string) error
	// Running reports whether the task still has a running instance, and
	// if so, the PID of its top-level engine process.
	Running(taskName string) (running bool, enginePID int32, err error)
	// Stop halts a running task instance.
	Stop(taskName string) error
	// Delete removes the task definition. Errors are logged, not
	// propagated, per spec.md §4.5 step 6.
	Delete(taskName string) error
}

// TaskScheduler runs a command under another interactive user session via
// the OS task scheduler, matching the Current supervisor's Outcome
// contract.
type TaskScheduler struct {
	API SchedulerAPI
}

// Run executes spec under userName's session.
func (t TaskScheduler) Run(ctx context.Context, userName string, spec RunSpec) (Outcome[int], error) {
	exists, err := t.API.SessionExists(userName)
	if err != nil {
		return Outcome[int]{}, fmt.Errorf("session: query session for %s: %w", userName, err)
	}
	if !exists {
		return Outcome[int]{}, fmt.Errorf("session: no active session for user %s", userName)
	}

	taskName := "robotmk-" + spec.ID
	wrapperPath := spec.RuntimeBasePath + ".bat"
	exitCodePath := spec.RuntimeBasePath + ".exit_code"

	if err := writeWrapperScript(wrapperPath, taskName, spec); err != nil {
		return Outcome[int]{}, fmt.Errorf("session: write wrapper script: %w", err)
	}

	if err := t.API.CreateTask(taskName, userName, wrapperPath); err != nil {
		return Outcome[int]{}, fmt.Errorf("session: create task: %w", err)
	}
	if err := t.API.Start(taskName); err != nil {
		return Outcome[int]{}, fmt.Errorf("session: start task: %w", err)
	}

	var timer *time.Timer
	var timerC <-chan time.Time
	if spec.TimeoutSecs > 0 {
		timer = time.NewTimer(time.Duration(spec.TimeoutSecs) * time.Second)
		timerC = timer.C
		defer timer.Stop()
	}

	ticker := time.NewTicker(taskSchedulerPoll)
	defer ticker.Stop()

	for {
		select {
		case <-timerC:
			t.terminate(taskName)
			return Timeout[int](), nil

		case <-spec.Token.Done():
			t.terminate(taskName)
			return Cancel[int](), nil

		case <-ctx.Done():
			t.terminate(taskName)
			return Outcome[int]{}, ctx.Err()

		case <-ticker.C:
			running, _, err := t.API.Running(taskName)
			if err != nil {
				return Outcome[int]{}, fmt.Errorf("session: poll task: %w", err)
			}
			if running {
				continue
			}
			if err := t.API.Delete(taskName); err != nil {
				// Logged, never propagated.
				log.Printf("session: delete task %s: %v", taskName, err)
			}
			code, err := readExitCode(exitCodePath)
			if err != nil {
				return Outcome[int]{}, fmt.Errorf("session: read exit code: %w", err)
			}
			return Completed(code), nil
		}
	}
}

// terminate stops the scheduled task and kills the process tree rooted at
// its reported engine pid, best-effort.
func (t TaskScheduler) terminate(taskName string) {
	_, enginePID, err := t.API.Running(taskName)
	_ = t.API.Stop(taskName)
	if err == nil && enginePID > 0 {
		cancel.KillTree(enginePID)
	}
}

// writeWrapperScript materializes the content-exact batch wrapper
// described in spec.md §6: a banner, the redirected command, and the
// trailing exit-code line.
func writeWrapperScript(path, taskName string, spec RunSpec) error {
	var b strings.Builder
	b.WriteString("@echo off\n")
	fmt.Fprintf(&b, "echo Robotmk: running task %s. Please do not close this window.\n", taskName)
	fmt.Fprintf(&b, "%s > %s.stdout 2> %s.stderr\n",
		spec.CommandSpec.String(), spec.RuntimeBasePath, spec.RuntimeBasePath)
	fmt.Fprintf(&b, "echo %%errorlevel%% > %s.exit_code\n", spec.RuntimeBasePath)
	return os.WriteFile(path, []byte(b.String()), 0o755)
}

// readExitCode parses the first whitespace-delimited token of path as a
// signed integer.
func readExitCode(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Split(bufio.ScanWords)
	if !scanner.Scan() {
		return 0, fmt.Errorf("empty exit code file %s", path)
	}
	return strconv.Atoi(scanner.Text())
}
