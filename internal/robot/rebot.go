package robot

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robotmk/scheduler/internal/cancel"
	"github.com/robotmk/scheduler/internal/command"
	"github.com/robotmk/scheduler/internal/environment"
	"github.com/robotmk/scheduler/internal/session"
)

// rebotTimeout is the fixed 120-second budget for the merge step, per
// spec.md §4.9.
const rebotTimeout = 120 * time.Second

// RebotOutcome is the result of merging one or more attempt XMLs.
type RebotOutcome struct {
	OK          bool
	XML         string
	HTMLBase64  string
	TimestampUnix int64
	Err         string
	Cancelled   bool
}

// Rebot invokes `python -m robot.rebot` over xmls to produce a merged
// OUT.xml/OUT.html pair under outputDir, through sess/env so it inherits
// the plan's environment and session.
func Rebot(ctx context.Context, sess session.Session, env environment.Environment, token *cancel.Token, outputDir string, xmls []string) RebotOutcome {
	outXML := filepath.Join(outputDir, "rebot.xml")
	outHTML := filepath.Join(outputDir, "rebot.html")

	cmd := command.New("python").AddArguments("-m", "robot.rebot",
		"--output", outXML,
		"--log", outHTML,
		"--report", "NONE",
		"--merge",
	)
	cmd = cmd.AddArguments(xmls...)
	wrapped := env.Wrap(cmd)

	out, err := sess.Run(ctx, session.RunSpec{
		ID:              "rebot",
		CommandSpec:     wrapped,
		RuntimeBasePath: filepath.Join(outputDir, "rebot"),
		TimeoutSecs:     int(rebotTimeout.Seconds()),
		Token:           token,
	})
	if err != nil {
		return RebotOutcome{Err: fmt.Sprintf("rebot: spawn failed: %v", err)}
	}
	if out.IsCancel() {
		return RebotOutcome{Cancelled: true}
	}
	if out.IsTimeout() {
		return RebotOutcome{Err: "rebot: timed out"}
	}

	code, _ := out.IsCompleted()
	rc := env.CreateResultCode(code)

	_, xmlStatErr := os.Stat(outXML)
	xmlExists := xmlStatErr == nil

	if rc.Success || (rc.WrappedCommandFailed && xmlExists) {
		return readMergedOutputs(outXML, outHTML)
	}
	if rc.WrappedCommandFailed {
		return RebotOutcome{Err: "rebot: wrapped command failed and no merged XML was produced"}
	}
	if rc.EnvironmentFailed {
		return RebotOutcome{Err: "rebot: environment failure"}
	}
	return RebotOutcome{Err: fmt.Sprintf("rebot: %s", rc.Err)}
}

func readMergedOutputs(outXML, outHTML string) RebotOutcome {
	xmlBytes, err := os.ReadFile(outXML)
	if err != nil {
		return RebotOutcome{Err: fmt.Sprintf("rebot: read merged xml: %v", err)}
	}
	htmlBytes, err := os.ReadFile(outHTML)
	if err != nil {
		return RebotOutcome{Err: fmt.Sprintf("rebot: read merged html: %v", err)}
	}
	return RebotOutcome{
		OK:            true,
		XML:           string(xmlBytes),
		HTMLBase64:    base64.StdEncoding.EncodeToString(htmlBytes),
		TimestampUnix: time.Now().Unix(),
	}
}
