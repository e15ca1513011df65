package config

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/mrz1836/slipway/internal/errors"
)

// newViperInstance creates a new Viper instance with standard slipway
// configuration: defaults, the SLIPWAY_ environment prefix, and a key
// replacer so SLIPWAY_BUILD_PARALLELISM maps to build.parallelism.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("SLIPWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// isConfigNotFoundError returns true if the error is a viper config file not
// found error.
func isConfigNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var configNotFoundErr viper.ConfigFileNotFoundError
	return stderrors.As(err, &configNotFoundErr)
}

// Load reads configuration from all available sources with proper precedence.
// Missing config files are not an error; many invocations run on defaults
// plus a project slipway.yaml.
func Load(ctx context.Context) (*Config, error) {
	v := newViperInstance()

	if err := loadGlobalConfig(v); err != nil {
		return nil, err
	}
	if err := loadProjectConfig(v, ProjectConfigPath()); err != nil {
		return nil, err
	}

	cfg, err := unmarshalAndValidate(v)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx).With().Str("component", "config").Logger()
	logger.Debug().
		Int("matrix_entries", len(cfg.Matrix)).
		Int("build.parallelism", cfg.Build.Parallelism).
		Dur("build.native_timeout", cfg.Build.NativeTimeout).
		Dur("build.cross_timeout", cfg.Build.CrossTimeout).
		Msg("configuration loaded")

	return cfg, nil
}

// LoadFromPaths loads configuration from specific file paths. Used by tests
// and by the --config flag. Either path can be empty to skip that level.
func LoadFromPaths(_ context.Context, projectConfigPath, globalConfigPath string) (*Config, error) {
	v := newViperInstance()

	if globalConfigPath != "" {
		v.SetConfigFile(globalConfigPath)
		if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "read global config %s", globalConfigPath)
		}
	}
	if projectConfigPath != "" {
		if err := loadProjectConfig(v, projectConfigPath); err != nil {
			return nil, err
		}
	}

	return unmarshalAndValidate(v)
}

// loadGlobalConfig attempts to load the global config file
// (~/.slipway/config.yaml). Missing files are skipped silently.
func loadGlobalConfig(v *viper.Viper) error {
	dir, err := GlobalConfigDir()
	if err != nil {
		return nil //nolint:nilerr // no home directory means no global config
	}
	path := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) {
		return errors.Wrapf(err, "read global config %s", path)
	}
	return nil
}

// loadProjectConfig merges the project config file over what was already read.
func loadProjectConfig(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) {
		return errors.Wrapf(err, "read project config %s", path)
	}
	return nil
}

// unmarshalAndValidate unmarshals viper state into a Config and validates it.
func unmarshalAndValidate(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// viperDecoderOption returns the decoder options for Viper unmarshal.
// Durations in YAML are written as strings like "20m".
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	)
}

// setDefaults configures all default values on the Viper instance. Keys must
// match the YAML tag names exactly, and values must match DefaultConfig.
func setDefaults(v *viper.Viper) {
	def := DefaultConfig()

	v.SetDefault("project.name", def.Project.Name)
	v.SetDefault("project.repo_path", def.Project.RepoPath)

	v.SetDefault("build.native_command", def.Build.NativeCommand)
	v.SetDefault("build.cross_command", def.Build.CrossCommand)
	v.SetDefault("build.native_timeout", def.Build.NativeTimeout)
	v.SetDefault("build.cross_timeout", def.Build.CrossTimeout)
	v.SetDefault("build.parallelism", def.Build.Parallelism)
	v.SetDefault("build.target_dir", def.Build.TargetDir)

	v.SetDefault("package.output_dir", def.Package.OutputDir)
	v.SetDefault("package.checksum_tool", def.Package.ChecksumTool)

	v.SetDefault("release.timeout", def.Release.Timeout)
	v.SetDefault("release.local_notes", def.Release.LocalNotes)

	v.SetDefault("container.enabled", def.Container.Enabled)
	v.SetDefault("container.repository", def.Container.Repository)
	v.SetDefault("container.dockerfile", def.Container.Dockerfile)
	v.SetDefault("container.context_dir", def.Container.ContextDir)
	v.SetDefault("container.cache_ref", def.Container.CacheRef)
	v.SetDefault("container.timeout", def.Container.Timeout)

	v.SetDefault("registry.enabled", def.Registry.Enabled)
	v.SetDefault("registry.tool", def.Registry.Tool)
	v.SetDefault("registry.timeout", def.Registry.Timeout)

	v.SetDefault("notifications.enabled", def.Notifications.Enabled)
	v.SetDefault("notifications.timeout", def.Notifications.Timeout)
}
