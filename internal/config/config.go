// Package config provides configuration management for slipway with layered
// precedence.
//
// Configuration sources are loaded in the following order (highest precedence
// first):
//  1. CLI flags (passed via LoadWithOverrides)
//  2. Environment variables (SLIPWAY_* prefix)
//  3. Project config (slipway.yaml in the working directory)
//  4. Global config (~/.slipway/config.yaml)
//  5. Built-in defaults
//
// Secrets are never part of this configuration. Tokens are read from the
// environment at the CLI boundary and passed to publishers as an explicit
// credentials object.
package config

import (
	"time"

	"github.com/mrz1836/slipway/internal/domain"
)

// Config is the root configuration structure for slipway.
type Config struct {
	// Project identifies the product being released.
	Project ProjectConfig `yaml:"project" mapstructure:"project"`

	// Matrix declares the target platforms to build, one entry per target triple.
	Matrix []domain.MatrixEntry `yaml:"matrix" mapstructure:"matrix"`

	// Build contains settings for the per-target build step.
	Build BuildConfig `yaml:"build" mapstructure:"build"`

	// Package contains settings for the archive and checksum step.
	Package PackageConfig `yaml:"package" mapstructure:"package"`

	// Release contains settings for the source-control release publish.
	Release ReleaseConfig `yaml:"release" mapstructure:"release"`

	// Container contains settings for the container image publish branch.
	Container ContainerConfig `yaml:"container" mapstructure:"container"`

	// Registry contains settings for the language package registry publish.
	Registry RegistryConfig `yaml:"registry" mapstructure:"registry"`

	// Notifications contains settings for the best-effort release comments.
	Notifications NotificationsConfig `yaml:"notifications" mapstructure:"notifications"`
}

// ProjectConfig identifies the product and its source tree.
type ProjectConfig struct {
	// Name is the product name, used for logging and defaults.
	Name string `yaml:"name" mapstructure:"name"`

	// RepoPath is the path to the git repository the release is cut from.
	// Empty means the current directory.
	RepoPath string `yaml:"repo_path" mapstructure:"repo_path"`
}

// BuildConfig contains settings for the per-target build step.
type BuildConfig struct {
	// NativeCommand is the host toolchain executable. Default: "cargo".
	NativeCommand string `yaml:"native_command" mapstructure:"native_command"`

	// CrossCommand is the cross-compilation executable. Default: "cross".
	CrossCommand string `yaml:"cross_command" mapstructure:"cross_command"`

	// NativeTimeout is the wall-clock ceiling for one native build.
	NativeTimeout time.Duration `yaml:"native_timeout" mapstructure:"native_timeout"`

	// CrossTimeout is the wall-clock ceiling for one cross build. Cross builds
	// run under emulation and need a longer ceiling than native builds.
	CrossTimeout time.Duration `yaml:"cross_timeout" mapstructure:"cross_timeout"`

	// Parallelism caps how many matrix builds run concurrently.
	Parallelism int `yaml:"parallelism" mapstructure:"parallelism"`

	// TargetDir is the toolchain output directory relative to the work dir.
	TargetDir string `yaml:"target_dir" mapstructure:"target_dir"`
}

// PackageConfig contains settings for the archive and checksum step.
type PackageConfig struct {
	// OutputDir is where archives and digest files are written.
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`

	// ChecksumTool selects the digest backend: "auto", "sha256sum", "shasum",
	// or "native". "auto" probes the host for an available tool and falls
	// back to the built-in implementation.
	ChecksumTool string `yaml:"checksum_tool" mapstructure:"checksum_tool"`
}

// ReleaseConfig contains settings for the source-control release publish.
type ReleaseConfig struct {
	// Timeout bounds each release host invocation.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// LocalNotes renders release notes from the local commit history instead
	// of letting the release host generate them.
	LocalNotes bool `yaml:"local_notes" mapstructure:"local_notes"`
}

// ContainerConfig contains settings for the container image publish branch.
type ContainerConfig struct {
	// Enabled turns the container branch on.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Repository is the full image repository path, e.g. "ghcr.io/org/rainfrog".
	Repository string `yaml:"repository" mapstructure:"repository"`

	// Dockerfile is the build definition path relative to the context dir.
	Dockerfile string `yaml:"dockerfile" mapstructure:"dockerfile"`

	// ContextDir is the image build context. Empty means the current directory.
	ContextDir string `yaml:"context_dir" mapstructure:"context_dir"`

	// CacheRef is the remote build cache reference. Empty disables the cache.
	CacheRef string `yaml:"cache_ref" mapstructure:"cache_ref"`

	// Timeout bounds the build-and-push invocation.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// RegistryConfig contains settings for the language package registry publish.
type RegistryConfig struct {
	// Enabled turns the registry publish on.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Tool is the publishing executable. Default: "cargo".
	Tool string `yaml:"tool" mapstructure:"tool"`

	// Timeout bounds the publish invocation.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// NotificationsConfig contains settings for the best-effort release comments.
type NotificationsConfig struct {
	// Enabled turns release comments on.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Timeout bounds each comment invocation.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}
