package environment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/robotmk/scheduler/internal/command"
)

func TestSystemWrapIsIdentity(t *testing.T) {
	cmd := command.New("python").AddArguments("-m", "robot")
	assert.Equal(t, cmd, System{}.Wrap(cmd))
}

func TestSystemCreateResultCode(t *testing.T) {
	assert.Equal(t, Success(), System{}.CreateResultCode(0))
	assert.Equal(t, WrappedCommandFailed(), System{}.CreateResultCode(1))
}

func TestBuildOutcomeIsSurviving(t *testing.T) {
	assert.True(t, NotNeeded().IsSurviving())
	assert.True(t, BuildSuccess(0).IsSurviving())
	assert.False(t, BuildTimeout().IsSurviving())
	assert.False(t, BuildError("boom").IsSurviving())
}

func TestRCCWrapBuildsExpectedArgumentVector(t *testing.T) {
	rcc := RCC{
		BinaryPath:      "/usr/bin/rcc",
		RobotYamlPath:   "/plans/p1/robot.yaml",
		PlanID:          "p1",
		EnvironmentJSON: "/plans/p1/env.json",
		RobocorpHome:    "/runtime/rcc_home/p1",
	}
	cmd := command.New("python").AddArguments("-m", "robot").AddObfuscatedEnv("TOKEN", "secret")
	wrapped := rcc.Wrap(cmd)

	assert.Equal(t, "/usr/bin/rcc", wrapped.Executable)
	assert.Equal(t, []string{
		"--bundled", "task", "script",
		"--no-build",
		"--robot", "/plans/p1/robot.yaml",
		"--controller", "robotmk",
		"--space", "p1",
		"--environment", "/plans/p1/env.json",
		"--",
		"python", "-m", "robot",
	}, wrapped.Arguments)
	assert.Contains(t, wrapped.EnvsPlain, command.EnvVar{Key: "ROBOCORP_HOME", Value: "/runtime/rcc_home/p1"})
	assert.Contains(t, wrapped.EnvsObfuscated, command.EnvVar{Key: "TOKEN", Value: "secret"})
}

func TestRCCWrapOmitsEnvironmentFlagWhenUnset(t *testing.T) {
	rcc := RCC{BinaryPath: "rcc", RobotYamlPath: "robot.yaml", PlanID: "p1", RobocorpHome: "home"}
	wrapped := rcc.Wrap(command.New("python"))
	assert.NotContains(t, wrapped.Arguments, "--environment")
}

func TestRCCCreateResultCode(t *testing.T) {
	assert.Equal(t, Success(), RCC{}.CreateResultCode(0))
	assert.Equal(t, WrappedCommandFailed(), RCC{}.CreateResultCode(10))
	assert.Equal(t, EnvironmentFailed(), RCC{}.CreateResultCode(1))
}

func TestCondaWrapAddsProxyEnvAndRunPrefix(t *testing.T) {
	conda := Conda{
		MicromambaPath: "/usr/bin/micromamba",
		RootPrefix:     "/runtime/conda_root",
		Prefix:         "/runtime/conda/p1",
		HTTPProxy:      "http://proxy:8080",
		NoProxy:        "localhost",
	}
	wrapped := conda.Wrap(command.New("python").AddArgument("-m"))

	assert.Equal(t, "/usr/bin/micromamba", wrapped.Executable)
	assert.Equal(t, []string{"run", "--root-prefix", "/runtime/conda_root", "--prefix", "/runtime/conda/p1", "python", "-m"}, wrapped.Arguments)
	assert.Contains(t, wrapped.EnvsObfuscated, command.EnvVar{Key: "HTTP_PROXY", Value: "http://proxy:8080"})
	assert.Contains(t, wrapped.EnvsObfuscated, command.EnvVar{Key: "NO_PROXY", Value: "localhost"})
}

func TestCondaCreateResultCode(t *testing.T) {
	assert.Equal(t, Success(), Conda{}.CreateResultCode(0))
	rc := Conda{}.CreateResultCode(7)
	assert.False(t, rc.Success)
	assert.Contains(t, rc.Err, "7")
}
