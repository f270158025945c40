package session

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// SchtasksAPI implements SchedulerAPI against the real Windows Task
// Scheduler via schtasks.exe and query.exe, the same facility spec.md
// §4.5 describes. Like internal/setup's ICACLSGranter, it shells out to an
// OS-specific CLI rather than composing a command.Spec for a plan — the
// task-scheduler facility itself, not a plan's command, is being
// manipulated here.
type SchtasksAPI struct{}

func (SchtasksAPI) SessionExists(userName string) (bool, error) {
	out, err := exec.Command("query", "user").CombinedOutput()
	if err != nil {
		// query user exits non-zero when no sessions exist at all; that
		// is a legitimate "not found" rather than a failure to query.
		if len(out) == 0 {
			return false, nil
		}
	}
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		name := strings.TrimPrefix(fields[0], ">")
		if strings.EqualFold(name, userName) {
			return true, nil
		}
	}
	return false, nil
}

// CreateTask passes no power or battery option to schtasks, so the task
// keeps schtasks' default power conditions.
func (SchtasksAPI) CreateTask(taskName, userName, wrapperPath string) error {
	cmd := exec.Command("schtasks", "/Create",
		"/TN", taskName,
		"/TR", wrapperPath,
		"/RU", userName,
		"/IT",      // interactive
		"/RL", "LIMITED",
		"/SC", "ONCE",
		"/ST", "00:00",
		"/F", // overwrite any stale task of the same name
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("schtasks create: %w: %s", err, out)
	}
	return nil
}

func (SchtasksAPI) Start(taskName string) error {
	if out, err := exec.Command("schtasks", "/Run", "/TN", taskName).CombinedOutput(); err != nil {
		return fmt.Errorf("schtasks run: %w: %s", err, out)
	}
	return nil
}

func (SchtasksAPI) Running(taskName string) (bool, int32, error) {
	out, err := exec.Command("schtasks", "/Query", "/TN", taskName, "/FO", "LIST", "/V").CombinedOutput()
	if err != nil {
		return false, 0, fmt.Errorf("schtasks query: %w: %s", err, out)
	}

	status := ""
	enginePID := int32(0)
	for _, line := range strings.Split(string(out), "\n") {
		key, val, ok := splitColon(line)
		if !ok {
			continue
		}
		switch key {
		case "Status":
			status = val
		case "Process ID", "PID":
			if n, err := strconv.Atoi(val); err == nil {
				enginePID = int32(n)
			}
		}
	}
	return strings.EqualFold(status, "Running"), enginePID, nil
}

func (SchtasksAPI) Stop(taskName string) error {
	if out, err := exec.Command("schtasks", "/End", "/TN", taskName).CombinedOutput(); err != nil {
		return fmt.Errorf("schtasks end: %w: %s", err, out)
	}
	return nil
}

func (SchtasksAPI) Delete(taskName string) error {
	if out, err := exec.Command("schtasks", "/Delete", "/TN", taskName, "/F").CombinedOutput(); err != nil {
		return fmt.Errorf("schtasks delete: %w: %s", err, out)
	}
	return nil
}

func splitColon(line string) (key, val string, ok bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]), true
}
