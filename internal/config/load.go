package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/robotmk/scheduler/internal/cancel"
	"github.com/robotmk/scheduler/internal/command"
	"github.com/robotmk/scheduler/internal/lock"
	"github.com/robotmk/scheduler/internal/session"
)

// Load reads a YAML configuration file into the typed, process-wide
// GlobalConfig and Plan values the core consumes. This is the one
// external-collaborator seam spec.md §1 calls out — "configuration
// deserialization from persisted form" is explicitly out of the core's
// scope — so Load lives here, just outside internal/setup,
// internal/envbuild, and internal/scheduler, and produces nothing those
// packages couldn't have been handed directly by a test.
//
// A fresh cancel.Token and an internal/lock.Locker rooted at
// <runtime_dir>/results/.lock are constructed here, since neither is a
// YAML-representable value.
func Load(path string) (GlobalConfig, []Plan, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return GlobalConfig{}, nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var raw fileConfig
	if err := v.Unmarshal(&raw); err != nil {
		return GlobalConfig{}, nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	token := cancel.New()
	global := GlobalConfig{
		RuntimeDir:     raw.RuntimeDir,
		RCCPath:        raw.RCCPath,
		MicromambaPath: raw.MicromambaPath,
		Token:          token,
		Locker:         lock.New(filepath.Join(raw.RuntimeDir, "results", ".lock"), token),
	}

	plans := make([]Plan, 0, len(raw.Plans))
	for _, p := range raw.Plans {
		plan, err := p.toPlan(global)
		if err != nil {
			return GlobalConfig{}, nil, fmt.Errorf("config: plan %s: %w", p.ID, err)
		}
		plans = append(plans, plan)
	}
	return global, plans, nil
}

// fileConfig mirrors GlobalConfig's persisted form: the handful of fields
// that come from disk rather than being constructed at load time.
type fileConfig struct {
	RuntimeDir     string     `mapstructure:"runtime_dir"`
	RCCPath        string     `mapstructure:"rcc_path"`
	MicromambaPath string     `mapstructure:"micromamba_path"`
	Plans          []filePlan `mapstructure:"plans"`
}

// filePlan mirrors Plan's persisted form field-for-field, using plain
// strings/ints/bools in place of the tagged-variant helper types so Viper
// can decode it directly via mapstructure.
type filePlan struct {
	ID string `mapstructure:"id"`

	SourceManualBaseDir     string `mapstructure:"source_manual_base_dir"`
	SourceManagedArchive    string `mapstructure:"source_managed_archive_path"`
	SourceManagedTargetDir  string `mapstructure:"source_managed_target_dir"`
	SourceManagedVersionNum int    `mapstructure:"source_managed_version_number"`
	SourceManagedVersionTag string `mapstructure:"source_managed_version_label"`

	WorkingDir         string `mapstructure:"working_dir"`
	ResultsFile        string `mapstructure:"results_file"`
	OverallTimeoutSecs int    `mapstructure:"overall_timeout_secs"`

	RobotTargetPath     string   `mapstructure:"robot_target_path"`
	RobotRenderedArgs   []string `mapstructure:"robot_rendered_args"`
	RobotObfuscatedEnvs []EnvVar `mapstructure:"robot_obfuscated_envs"`
	RobotMaxAttempts    int      `mapstructure:"robot_max_attempts"`
	RobotRetry          string   `mapstructure:"robot_retry"` // "complete" | "incremental"

	EnvironmentKind            string `mapstructure:"environment_kind"`
	EnvironmentRCCBinaryPath   string `mapstructure:"environment_rcc_binary_path"`
	EnvironmentRobotYamlPath   string `mapstructure:"environment_robot_yaml_path"`
	EnvironmentJSON            string `mapstructure:"environment_json"`
	EnvironmentCatalogZip      string `mapstructure:"environment_catalog_zip"`
	EnvironmentRCCProfilePath  string `mapstructure:"environment_rcc_profile_path"`
	EnvironmentRCCProfileName  string `mapstructure:"environment_rcc_profile_name"`
	EnvironmentMicromambaPath  string `mapstructure:"environment_micromamba_path"`
	EnvironmentManifestPath    string `mapstructure:"environment_manifest_path"`
	EnvironmentArchivePath     string `mapstructure:"environment_archive_path"`
	EnvironmentSSLVerify       string `mapstructure:"environment_ssl_verify"`
	EnvironmentSSLNoRevoke     bool   `mapstructure:"environment_ssl_no_revoke"`
	EnvironmentNoProxy         string `mapstructure:"environment_no_proxy"`
	EnvironmentHTTPProxy       string `mapstructure:"environment_http_proxy"`
	EnvironmentHTTPSProxy      string `mapstructure:"environment_https_proxy"`
	EnvironmentPostBuildManifest string `mapstructure:"environment_post_build_manifest"`

	SessionUserName string `mapstructure:"session_user_name"` // empty means CurrentSession

	CleanupMaxAgeSecs    int `mapstructure:"cleanup_max_age_secs"`
	CleanupMaxExecutions int `mapstructure:"cleanup_max_executions"`

	HostPiggyback string `mapstructure:"host_piggyback"` // empty means Source

	GroupIndex            int `mapstructure:"group_index"`
	PositionInGroup       int `mapstructure:"position_in_group"`
	ExecutionIntervalSecs int `mapstructure:"execution_interval_secs"`
}

// EnvVar mirrors command.EnvVar's shape for YAML decoding of obfuscated
// env pairs declared in a plan's robot spec.
type EnvVar struct {
	Key   string `mapstructure:"key"`
	Value string `mapstructure:"value"`
}

func (p filePlan) toPlan(g GlobalConfig) (Plan, error) {
	retry := RetryComplete
	if p.RobotRetry == "incremental" {
		retry = RetryIncremental
	}

	obfuscated := make([]command.EnvVar, 0, len(p.RobotObfuscatedEnvs))
	for _, e := range p.RobotObfuscatedEnvs {
		obfuscated = append(obfuscated, command.EnvVar{Key: e.Key, Value: e.Value})
	}

	var postBuild []command.Spec
	if p.EnvironmentPostBuildManifest != "" {
		var err error
		postBuild, err = loadPostBuildManifest(p.EnvironmentPostBuildManifest)
		if err != nil {
			return Plan{}, err
		}
	}

	return Plan{
		ID: p.ID,
		Source: Source{
			BaseDir:       p.SourceManualBaseDir,
			ArchivePath:   p.SourceManagedArchive,
			TargetDir:     p.SourceManagedTargetDir,
			VersionNumber: p.SourceManagedVersionNum,
			VersionLabel:  p.SourceManagedVersionTag,
		},
		WorkingDir:         p.WorkingDir,
		ResultsFile:        p.ResultsFile,
		OverallTimeoutSecs: p.OverallTimeoutSecs,
		Robot: RobotSpec{
			TargetPath:     p.RobotTargetPath,
			RenderedArgs:   p.RobotRenderedArgs,
			ObfuscatedEnvs: obfuscated,
			MaxAttempts:    p.RobotMaxAttempts,
			Retry:          retry,
		},
		Environment: EnvironmentSpec{
			Kind:              EnvironmentKind(p.EnvironmentKind),
			RCCBinaryPath:     firstNonEmpty(p.EnvironmentRCCBinaryPath, g.RCCPath),
			RobotYamlPath:     p.EnvironmentRobotYamlPath,
			EnvironmentJSON:   p.EnvironmentJSON,
			CatalogZip:        p.EnvironmentCatalogZip,
			RCCProfilePath:    p.EnvironmentRCCProfilePath,
			RCCProfileName:    p.EnvironmentRCCProfileName,
			MicromambaPath:    firstNonEmpty(p.EnvironmentMicromambaPath, g.MicromambaPath),
			ManifestPath:      p.EnvironmentManifestPath,
			ArchivePath:       p.EnvironmentArchivePath,
			SSLVerify:         p.EnvironmentSSLVerify,
			SSLNoRevoke:       p.EnvironmentSSLNoRevoke,
			NoProxy:           p.EnvironmentNoProxy,
			HTTPProxy:         p.EnvironmentHTTPProxy,
			HTTPSProxy:        p.EnvironmentHTTPSProxy,
			PostBuildManifest: p.EnvironmentPostBuildManifest,
			PostBuildCommands: postBuild,
		},
		Session:               session.Descriptor{UserName: p.SessionUserName},
		Cleanup:               CleanupPolicy{MaxAgeSecs: p.CleanupMaxAgeSecs, MaxExecutions: p.CleanupMaxExecutions},
		Host:                  HostDescriptor{Piggyback: p.HostPiggyback},
		GroupIndex:            p.GroupIndex,
		PositionInGroup:       p.PositionInGroup,
		ExecutionIntervalSecs: p.ExecutionIntervalSecs,
	}, nil
}

// postBuildManifest mirrors the auxiliary YAML file spec.md §4.7
// describes: a flat list of commands run in order after a conda prefix
// is created or unpacked.
type postBuildManifest struct {
	Commands []struct {
		Executable string   `mapstructure:"executable"`
		Arguments  []string `mapstructure:"arguments"`
	} `mapstructure:"commands"`
}

// loadPostBuildManifest reads path (a small YAML file, not the main plan
// configuration) via its own Viper instance and converts each declared
// command into a command.Spec.
func loadPostBuildManifest(path string) ([]command.Spec, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read post-build manifest %s: %w", path, err)
	}

	var raw postBuildManifest
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("config: parse post-build manifest %s: %w", path, err)
	}

	specs := make([]command.Spec, 0, len(raw.Commands))
	for _, c := range raw.Commands {
		specs = append(specs, command.New(c.Executable).AddArguments(c.Arguments...))
	}
	return specs, nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
