package environment

import (
	"path/filepath"

	"github.com/robotmk/scheduler/internal/config"
)

// New constructs the concrete Environment a plan's EnvironmentSpec
// selects. planID and sessionID locate the environment's working
// directory under <runtime>/working/environment_building/<plan_id> and,
// for RCC, its ROBOCORP_HOME under <runtime>/rcc_home/<session_id>
// (spec.md §6, §4.11 steps 6–7).
func New(spec config.EnvironmentSpec, g config.GlobalConfig, planID, sessionID string) Environment {
	buildDir := filepath.Join(g.EnvironmentBuildingDir(), planID)

	switch spec.Kind {
	case config.EnvRCC:
		return RCC{
			BinaryPath:      spec.RCCBinaryPath,
			RobotYamlPath:   spec.RobotYamlPath,
			PlanID:          planID,
			EnvironmentJSON: spec.EnvironmentJSON,
			RobocorpHome:    filepath.Join(g.RuntimeDir, "rcc_home", sessionID),
			CatalogZip:      spec.CatalogZip,
			WorkingDir:      buildDir,
		}
	case config.EnvCondaFromManifest:
		return Conda{
			MicromambaPath:    spec.MicromambaPath,
			RootPrefix:        filepath.Join(g.RuntimeDir, "conda", "root"),
			Prefix:            filepath.Join(g.RuntimeDir, "conda", planID),
			ManifestPath:      spec.ManifestPath,
			SSLVerify:         spec.SSLVerify,
			SSLNoRevoke:       spec.SSLNoRevoke,
			NoProxy:           spec.NoProxy,
			HTTPProxy:         spec.HTTPProxy,
			HTTPSProxy:        spec.HTTPSProxy,
			PostBuildCommands: spec.PostBuildCommands,
			WorkingDir:        buildDir,
		}
	case config.EnvCondaFromArchive:
		return Conda{
			MicromambaPath:    spec.MicromambaPath,
			RootPrefix:        filepath.Join(g.RuntimeDir, "conda", "root"),
			Prefix:            filepath.Join(g.RuntimeDir, "conda", planID),
			ArchivePath:       spec.ArchivePath,
			NoProxy:           spec.NoProxy,
			HTTPProxy:         spec.HTTPProxy,
			HTTPSProxy:        spec.HTTPSProxy,
			PostBuildCommands: spec.PostBuildCommands,
			WorkingDir:        buildDir,
		}
	default:
		return System{}
	}
}

// AsBuilder returns env's Builder (for RCC/Conda) or ok=false for System,
// which has no build step.
func AsBuilder(env Environment) (Builder, bool) {
	b, ok := env.(Builder)
	return b, ok
}
