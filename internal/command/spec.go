// Package command describes external commands independently of how they
// are eventually executed, so that environments (internal/environment)
// can rewrite them and supervisors (internal/session) can run them without
// either side knowing about the other.
package command

import (
	"fmt"
	"os/exec"
	"strings"
)

// EnvVar is one environment variable assignment.
type EnvVar struct {
	Key   string
	Value string
}

// Spec is an immutable description of an external command: the
// executable, its argument vector, and environment variables split into
// plain (safe to print) and obfuscated (never printed in full) groups.
// Builder methods return a new Spec; none mutate the receiver in place for
// the slice fields, so a Spec can be safely shared and reused as a
// template for several commands.
type Spec struct {
	Executable      string
	Arguments       []string
	EnvsPlain       []EnvVar
	EnvsObfuscated  []EnvVar
}

// New returns a Spec for executable with no arguments or env vars.
func New(executable string) Spec {
	return Spec{Executable: executable}
}

// AddArgument returns a copy of s with arg appended.
func (s Spec) AddArgument(arg string) Spec {
	s.Arguments = append(append([]string{}, s.Arguments...), arg)
	return s
}

// AddArguments returns a copy of s with args appended in order.
func (s Spec) AddArguments(args ...string) Spec {
	s.Arguments = append(append([]string{}, s.Arguments...), args...)
	return s
}

// AddPlainEnv returns a copy of s with a plain (loggable) env var added.
func (s Spec) AddPlainEnv(key, value string) Spec {
	s.EnvsPlain = append(append([]EnvVar{}, s.EnvsPlain...), EnvVar{Key: key, Value: value})
	return s
}

// AddObfuscatedEnv returns a copy of s with an obfuscated env var added.
// Its value is never included in String's output.
func (s Spec) AddObfuscatedEnv(key, value string) Spec {
	s.EnvsObfuscated = append(append([]EnvVar{}, s.EnvsObfuscated...), EnvVar{Key: key, Value: value})
	return s
}

// String renders a display form suitable for logs: the executable and
// each argument quoted, plain envs as K=V, obfuscated envs as K=***.
func (s Spec) String() string {
	var b strings.Builder
	b.WriteString(quote(s.Executable))
	for _, a := range s.Arguments {
		b.WriteByte(' ')
		b.WriteString(quote(a))
	}
	for _, e := range s.EnvsPlain {
		fmt.Fprintf(&b, " %s=%s", e.Key, e.Value)
	}
	for _, e := range s.EnvsObfuscated {
		fmt.Fprintf(&b, " %s=***", e.Key)
	}
	return b.String()
}

func quote(s string) string {
	if !strings.ContainsAny(s, " \t\"'") {
		return s
	}
	return fmt.Sprintf("%q", s)
}

// ToExecCmd converts s into a concrete *exec.Cmd with all plain and
// obfuscated env vars merged into its environment alongside the inherited
// process environment. This is a pure function: it does not start the
// command.
func (s Spec) ToExecCmd() *exec.Cmd {
	cmd := exec.Command(s.Executable, s.Arguments...)
	if len(s.EnvsPlain) > 0 || len(s.EnvsObfuscated) > 0 {
		env := append([]string{}, envLines(s.EnvsPlain)...)
		env = append(env, envLines(s.EnvsObfuscated)...)
		cmd.Env = append(cmd.Environ(), env...)
	}
	return cmd
}

func envLines(vars []EnvVar) []string {
	lines := make([]string, 0, len(vars))
	for _, e := range vars {
		lines = append(lines, e.Key+"="+e.Value)
	}
	return lines
}
