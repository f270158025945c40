// Package config holds the typed, process-wide configuration the core
// scheduler consumes: GlobalConfig and the list of Plan values it
// schedules. Deserializing these from a persisted YAML form (Load, in
// load.go) is an external-collaborator concern per spec.md §1 — the core
// itself only ever operates on the typed values in this file.
package config

import (
	"path/filepath"

	"github.com/robotmk/scheduler/internal/cancel"
	"github.com/robotmk/scheduler/internal/command"
	"github.com/robotmk/scheduler/internal/lock"
	"github.com/robotmk/scheduler/internal/session"
)

// RetryStrategy selects how subsequent attempts of a failed plan relate to
// prior ones.
type RetryStrategy string

const (
	RetryComplete    RetryStrategy = "complete"
	RetryIncremental RetryStrategy = "incremental"
)

// EnvironmentKind tags which sandbox a plan's commands run inside.
type EnvironmentKind string

const (
	EnvSystem            EnvironmentKind = "system"
	EnvRCC               EnvironmentKind = "rcc"
	EnvCondaFromManifest EnvironmentKind = "conda_manifest"
	EnvCondaFromArchive  EnvironmentKind = "conda_archive"
)

// EnvironmentSpec carries the fields needed to construct whichever
// environment.Environment EnvironmentKind selects.
type EnvironmentSpec struct {
	Kind EnvironmentKind

	// RCC fields.
	RCCBinaryPath   string
	RobotYamlPath   string
	EnvironmentJSON string
	CatalogZip      string

	// RCCProfilePath, if non-empty, names a custom RCC configuration
	// profile imported and switched to during setup step 9 (spec.md
	// §4.11); empty means the default profile. RCCProfileName is the
	// profile's name as registered by "rcc configure import".
	RCCProfilePath string
	RCCProfileName string

	// Conda fields.
	MicromambaPath string
	ManifestPath   string
	ArchivePath    string
	SSLVerify      string
	SSLNoRevoke    bool
	NoProxy        string
	HTTPProxy      string
	HTTPSProxy     string

	// PostBuildManifest is the path to the auxiliary YAML file declaring
	// PostBuildCommands, kept only for diagnostics; Load resolves it into
	// PostBuildCommands at load time so the core never touches disk again
	// to discover them.
	PostBuildManifest string
	PostBuildCommands []command.Spec
}

// RobotSpec is the Robot Framework invocation shape for one plan: target
// file, rendered argument vector, obfuscated env pairs, retry policy.
type RobotSpec struct {
	TargetPath     string
	RenderedArgs   []string
	ObfuscatedEnvs []command.EnvVar
	MaxAttempts    int
	Retry          RetryStrategy
}

// Source is the tagged variant describing where a plan's Robot suite
// comes from.
type Source struct {
	// Manual fields.
	BaseDir string

	// Managed fields — non-empty ArchivePath means Managed.
	ArchivePath   string
	TargetDir     string
	VersionNumber int
	VersionLabel  string
}

// IsManaged reports whether this Source is the Managed variant.
func (s Source) IsManaged() bool { return s.ArchivePath != "" }

// CleanupPolicy selects how a plan's working directory is pruned by the
// cleanup task.
type CleanupPolicy struct {
	MaxAgeSecs    int // > 0 selects MaxAgeSecs
	MaxExecutions int // > 0 selects MaxExecutions (checked only if MaxAgeSecs == 0)
}

// IsMaxAge reports whether this policy is the MaxAgeSecs variant.
func (c CleanupPolicy) IsMaxAge() bool { return c.MaxAgeSecs > 0 }

// HostDescriptor is the tagged variant for where a plan's result section
// is published: the scheduler's own host (Source) or a named piggyback
// host.
type HostDescriptor struct {
	Piggyback string // empty means Source
}

// Plan is the unit of scheduling, per spec.md §3.
type Plan struct {
	ID                 string
	Source             Source
	WorkingDir         string
	ResultsFile        string
	OverallTimeoutSecs int
	Robot              RobotSpec
	Environment        EnvironmentSpec
	Session            session.Descriptor
	Cleanup            CleanupPolicy
	Host               HostDescriptor
	GroupIndex            int
	PositionInGroup       int
	ExecutionIntervalSecs int
}

// GlobalConfig is the process-wide configuration, per spec.md §3.
type GlobalConfig struct {
	RuntimeDir string

	RCCPath        string
	MicromambaPath string

	Token  *cancel.Token
	Locker *lock.Locker
}

// WorkingDir returns <runtime>/working.
func (g GlobalConfig) WorkingDir() string { return filepath.Join(g.RuntimeDir, "working") }

// ResultsDir returns <runtime>/results.
func (g GlobalConfig) ResultsDir() string { return filepath.Join(g.RuntimeDir, "results") }

// ManagedDir returns <runtime>/managed.
func (g GlobalConfig) ManagedDir() string { return filepath.Join(g.RuntimeDir, "managed") }

// EnvironmentBuildingDir returns <runtime>/working/environment_building.
func (g GlobalConfig) EnvironmentBuildingDir() string {
	return filepath.Join(g.WorkingDir(), "environment_building")
}

// RCCSetupDir returns <runtime>/working/rcc_setup.
func (g GlobalConfig) RCCSetupDir() string { return filepath.Join(g.WorkingDir(), "rcc_setup") }

// PlanWorkingDir returns <runtime>/working/plans/<plan_id>.
func (g GlobalConfig) PlanWorkingDir(planID string) string {
	return filepath.Join(g.WorkingDir(), "plans", planID)
}

// ResultsSectionPath returns the path of a fixed (non-per-plan) results
// section file.
func (g GlobalConfig) ResultsSectionPath(name string) string {
	return filepath.Join(g.ResultsDir(), name+".json")
}

// PlanResultsPath returns <runtime>/results/plans/<plan_id>.json.
func (g GlobalConfig) PlanResultsPath(planID string) string {
	return filepath.Join(g.ResultsDir(), "plans", planID+".json")
}
