package config

import (
	"github.com/mrz1836/slipway/internal/constants"
)

// DefaultConfig returns a new Config with sensible default values. These
// defaults are the base layer that config files, environment variables, and
// CLI flags override.
func DefaultConfig() *Config {
	return &Config{
		Project: ProjectConfig{
			// RepoPath: empty means the current directory.
			RepoPath: "",
		},
		Build: BuildConfig{
			NativeCommand: "cargo",
			CrossCommand:  "cross",
			NativeTimeout: constants.DefaultNativeBuildTimeout,
			CrossTimeout:  constants.DefaultCrossBuildTimeout,
			Parallelism:   constants.DefaultBuildParallelism,
			TargetDir:     "target",
		},
		Package: PackageConfig{
			OutputDir:    constants.DistDir,
			ChecksumTool: "auto",
		},
		Release: ReleaseConfig{
			Timeout: constants.DefaultPublishTimeout,
			// LocalNotes: false lets the release host generate notes, which
			// matches what operators see when they cut a release by hand.
			LocalNotes: false,
		},
		Container: ContainerConfig{
			Enabled: false,
			Timeout: constants.DefaultPublishTimeout,
		},
		Registry: RegistryConfig{
			Enabled: false,
			Tool:    "cargo",
			Timeout: constants.DefaultPublishTimeout,
		},
		Notifications: NotificationsConfig{
			Enabled: false,
			Timeout: constants.DefaultNotifyTimeout,
		},
	}
}
