// Package robot builds the Robot Framework command sequence for one
// plan's attempts (C8) and merges their outputs with rebot (C9).
package robot

import (
	"path/filepath"
	"strconv"

	"github.com/robotmk/scheduler/internal/command"
	"github.com/robotmk/scheduler/internal/config"
)

// Attempt is one concrete command for one attempt index of a plan.
type Attempt struct {
	Index         int // 1-based
	CommandSpec   command.Spec
	OutputXMLFile string
}

// BuildAttempts produces the full sequence of attempts for spec, writing
// output into outputDir. Complete retries are N identical commands
// differing only by output index; Incremental retries additionally pass
// --rerunfailed <outputDir>/<i-1>.xml for i>1.
func BuildAttempts(spec config.RobotSpec, outputDir string) []Attempt {
	n := spec.MaxAttempts
	if n < 1 {
		n = 1
	}

	attempts := make([]Attempt, 0, n)
	for i := 1; i <= n; i++ {
		outputXML := filepath.Join(outputDir, strconv.Itoa(i)+".xml")
		outputLog := filepath.Join(outputDir, strconv.Itoa(i)+".html")

		cmd := command.New("python").AddArguments("-m", "robot")
		cmd = cmd.AddArguments(spec.RenderedArgs...)

		if spec.Retry == config.RetryIncremental && i > 1 {
			prevXML := filepath.Join(outputDir, strconv.Itoa(i-1)+".xml")
			cmd = cmd.AddArguments("--rerunfailed", prevXML)
		}

		cmd = cmd.AddArguments(
			"--outputdir", outputDir,
			"--output", outputXML,
			"--log", outputLog,
			"--report", "NONE",
			spec.TargetPath,
		)

		for _, e := range spec.ObfuscatedEnvs {
			cmd = cmd.AddObfuscatedEnv(e.Key, e.Value)
		}

		attempts = append(attempts, Attempt{
			Index:         i,
			CommandSpec:   cmd,
			OutputXMLFile: outputXML,
		})
	}
	return attempts
}

// Note: per spec.md §4.8, the rendered argument vector
// (name/suite/test/include/exclude tags/variables/variablefile/
// argumentfile/exitonfailure) is not derived here: the external
// configuration loader (internal/config.Load) copies it verbatim from the
// plan's robot_rendered_args list, and the core only consumes that
// already-rendered vector in config.RobotSpec.RenderedArgs.
