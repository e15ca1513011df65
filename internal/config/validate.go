package config

import (
	"github.com/mrz1836/slipway/internal/constants"
	"github.com/mrz1836/slipway/internal/errors"
)

// checksumTools are the accepted package.checksum_tool values.
var checksumTools = map[string]struct{}{
	"auto":      {},
	"sha256sum": {},
	"shasum":    {},
	"native":    {},
}

// Validate checks the configuration for invalid or inconsistent values.
// It returns an error describing the first validation failure found.
//
// Matrix entry contents are validated separately at resolution time; here we
// only bound the declared size so a typo cannot fan out hundreds of builds.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.ErrConfigNil
	}

	if len(cfg.Matrix) > constants.MaxMatrixEntries {
		return errors.Wrapf(errors.ErrConfiguration,
			"matrix declares %d entries, maximum is %d", len(cfg.Matrix), constants.MaxMatrixEntries)
	}

	if err := validateBuildConfig(&cfg.Build); err != nil {
		return err
	}
	if err := validatePackageConfig(&cfg.Package); err != nil {
		return err
	}
	if cfg.Release.Timeout <= 0 {
		return errors.Wrapf(errors.ErrConfiguration,
			"release.timeout must be positive, got %s", cfg.Release.Timeout)
	}
	if err := validateContainerConfig(&cfg.Container); err != nil {
		return err
	}
	if cfg.Registry.Enabled && cfg.Registry.Tool == "" {
		return errors.Wrap(errors.ErrConfiguration, "registry.tool must not be empty")
	}

	return nil
}

func validateBuildConfig(cfg *BuildConfig) error {
	if cfg.NativeCommand == "" || cfg.CrossCommand == "" {
		return errors.Wrap(errors.ErrConfiguration,
			"build.native_command and build.cross_command must not be empty")
	}
	if cfg.NativeTimeout <= 0 || cfg.CrossTimeout <= 0 {
		return errors.Wrap(errors.ErrConfiguration, "build timeouts must be positive")
	}
	if cfg.Parallelism < 1 || cfg.Parallelism > constants.MaxMatrixEntries {
		return errors.Wrapf(errors.ErrConfiguration,
			"build.parallelism must be between 1 and %d, got %d",
			constants.MaxMatrixEntries, cfg.Parallelism)
	}
	return nil
}

func validatePackageConfig(cfg *PackageConfig) error {
	if cfg.OutputDir == "" {
		return errors.Wrap(errors.ErrConfiguration, "package.output_dir must not be empty")
	}
	if _, ok := checksumTools[cfg.ChecksumTool]; !ok {
		return errors.Wrapf(errors.ErrConfiguration,
			"package.checksum_tool must be one of auto, sha256sum, shasum, native; got %q",
			cfg.ChecksumTool)
	}
	return nil
}

func validateContainerConfig(cfg *ContainerConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Repository == "" {
		return errors.Wrap(errors.ErrConfiguration,
			"container.repository must be set when the container branch is enabled")
	}
	if cfg.Timeout <= 0 {
		return errors.Wrapf(errors.ErrConfiguration,
			"container.timeout must be positive, got %s", cfg.Timeout)
	}
	return nil
}
