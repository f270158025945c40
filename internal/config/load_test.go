package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
runtime_dir: /var/lib/robotmk
rcc_path: /usr/bin/rcc
micromamba_path: /usr/bin/micromamba
plans:
  - id: plan1
    source_manual_base_dir: /plans/plan1
    working_dir: /var/lib/robotmk/working/plans/plan1
    results_file: /var/lib/robotmk/results/plans/plan1.json
    overall_timeout_secs: 120
    robot_target_path: /plans/plan1/tests
    robot_rendered_args: ["--name", "Plan1"]
    robot_max_attempts: 2
    robot_retry: incremental
    environment_kind: rcc
    environment_robot_yaml_path: /plans/plan1/robot.yaml
    session_user_name: alice
    cleanup_max_age_secs: 3600
    group_index: 0
    position_in_group: 0
    execution_interval_secs: 60
  - id: plan2
    working_dir: /var/lib/robotmk/working/plans/plan2
    results_file: /var/lib/robotmk/results/plans/plan2.json
    robot_target_path: /plans/plan2/tests
    environment_kind: system
    group_index: 1
    position_in_group: 0
`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadParsesGlobalAndPlanFields(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)

	global, plans, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/robotmk", global.RuntimeDir)
	assert.Equal(t, "/usr/bin/rcc", global.RCCPath)
	require.NotNil(t, global.Token)
	require.NotNil(t, global.Locker)

	require.Len(t, plans, 2)

	p1 := plans[0]
	assert.Equal(t, "plan1", p1.ID)
	assert.Equal(t, "/plans/plan1", p1.Source.BaseDir)
	assert.False(t, p1.Source.IsManaged())
	assert.Equal(t, 120, p1.OverallTimeoutSecs)
	assert.Equal(t, []string{"--name", "Plan1"}, p1.Robot.RenderedArgs)
	assert.Equal(t, RetryIncremental, p1.Robot.Retry)
	assert.Equal(t, EnvRCC, p1.Environment.Kind)
	assert.Equal(t, "/usr/bin/rcc", p1.Environment.RCCBinaryPath, "plan without an explicit RCC path should inherit the global default")
	assert.Equal(t, "alice", p1.Session.UserName)
	assert.True(t, p1.Cleanup.IsMaxAge())

	p2 := plans[1]
	assert.Equal(t, EnvSystem, p2.Environment.Kind)
	assert.Equal(t, RetryComplete, p2.Robot.Retry, "unset robot_retry defaults to complete")
}

func TestLoadPlanPrefersExplicitRCCPathOverGlobal(t *testing.T) {
	yaml := `
runtime_dir: /var/lib/robotmk
rcc_path: /usr/bin/rcc
plans:
  - id: plan1
    working_dir: /var/lib/robotmk/working/plans/plan1
    results_file: /var/lib/robotmk/results/plans/plan1.json
    robot_target_path: /plans/plan1/tests
    environment_kind: rcc
    environment_rcc_binary_path: /opt/rcc/rcc
`
	path := writeTempConfig(t, yaml)
	_, plans, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/rcc/rcc", plans[0].Environment.RCCBinaryPath)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "a", firstNonEmpty("a", "b"))
	assert.Equal(t, "b", firstNonEmpty("", "b"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}

func TestLoadResolvesPostBuildManifestIntoCommands(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "post_build.yaml")
	require.NoError(t, os.WriteFile(manifestPath, []byte(`
commands:
  - executable: conda-unpack
    arguments: ["--verbose"]
  - executable: python
    arguments: ["-c", "pass"]
`), 0o644))

	yaml := `
runtime_dir: ` + dir + `
plans:
  - id: plan1
    working_dir: ` + dir + `/working
    results_file: ` + dir + `/results/plans/plan1.json
    robot_target_path: ` + dir + `/tests
    environment_kind: conda_manifest
    environment_manifest_path: ` + dir + `/env.yaml
    environment_post_build_manifest: ` + manifestPath + `
`
	path := writeTempConfig(t, yaml)

	_, plans, err := Load(path)
	require.NoError(t, err)
	require.Len(t, plans, 1)

	cmds := plans[0].Environment.PostBuildCommands
	require.Len(t, cmds, 2)
	assert.Equal(t, "conda-unpack", cmds[0].Executable)
	assert.Equal(t, []string{"--verbose"}, cmds[0].Arguments)
	assert.Equal(t, "python", cmds[1].Executable)
	assert.Equal(t, []string{"-c", "pass"}, cmds[1].Arguments)
}

func TestLoadPostBuildManifestMissingFileReturnsError(t *testing.T) {
	dir := t.TempDir()
	yaml := `
runtime_dir: ` + dir + `
plans:
  - id: plan1
    working_dir: ` + dir + `/working
    results_file: ` + dir + `/results/plans/plan1.json
    robot_target_path: ` + dir + `/tests
    environment_kind: conda_manifest
    environment_post_build_manifest: ` + dir + `/missing.yaml
`
	path := writeTempConfig(t, yaml)
	_, _, err := Load(path)
	require.Error(t, err)
}
