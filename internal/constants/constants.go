// Package constants provides centralized constant values used throughout slipway.
// This package is the single source of truth for all shared constants and MUST NOT
// import any other internal packages.
package constants

import "time"

// Directory names and paths used by slipway for organizing data.
const (
	// SlipwayHome is the hidden directory name where slipway stores all its data.
	// This directory is created in the user's home directory.
	SlipwayHome = ".slipway"

	// LogsDir is the directory name where log files are stored.
	LogsDir = "logs"

	// DistDir is the default directory name where packaged release artifacts are written.
	DistDir = "dist"

	// CLILogFileName is the name of the rotating CLI log file.
	CLILogFileName = "slipway.log"

	// ProjectConfigFileName is the name of the per-project pipeline configuration file.
	ProjectConfigFileName = "slipway.yaml"
)

// Timeout configurations for pipeline operations.
//
// Cross builds run under emulation or a foreign linker and are markedly slower
// than native builds, so they get a separate, longer ceiling.
const (
	// DefaultNativeBuildTimeout is the default wall-clock ceiling for a native
	// toolchain build of a single matrix entry.
	DefaultNativeBuildTimeout = 20 * time.Minute

	// DefaultCrossBuildTimeout is the default wall-clock ceiling for a
	// cross-compilation build of a single matrix entry.
	DefaultCrossBuildTimeout = 60 * time.Minute

	// DefaultPublishTimeout is the default ceiling for a single publish
	// invocation (release upload, registry publish, container push).
	DefaultPublishTimeout = 15 * time.Minute

	// DefaultNotifyTimeout is the default ceiling for a single notification
	// comment post.
	DefaultNotifyTimeout = 2 * time.Minute
)

// Pipeline limits.
const (
	// DefaultBuildParallelism is the default number of matrix builds allowed
	// to run concurrently on one host.
	DefaultBuildParallelism = 4

	// MaxMatrixEntries bounds the size of a declared target matrix.
	MaxMatrixEntries = 64
)

// Log rotation settings for the CLI log file.
const (
	// LogMaxSizeMB is the maximum size in megabytes before log rotation.
	LogMaxSizeMB = 10

	// LogMaxBackups is the maximum number of rotated log files to keep.
	LogMaxBackups = 5

	// LogMaxAgeDays is the maximum age in days before rotated logs are deleted.
	LogMaxAgeDays = 30

	// LogCompress controls whether rotated log files are gzip compressed.
	LogCompress = true
)

// Well-known stage names in the release pipeline graph.
const (
	// StageRelease is the join stage that uploads artifacts to the release host.
	StageRelease = "release"

	// StageContainer is the independent container image publish stage.
	StageContainer = "container"

	// StageRegistry is the package registry publish stage, gated on StageRelease.
	StageRegistry = "registry"

	// StageNotify is the best-effort notification stage, gated on StageRegistry.
	StageNotify = "notify"

	// BuildStagePrefix prefixes the per-target build stage names, which are
	// formed as BuildStagePrefix + target triple.
	BuildStagePrefix = "build:"
)

// Environment variable names for secrets consumed by the pipeline.
// Values are opaque tokens and are never logged.
const (
	// EnvReleaseToken is the release-host (GitHub) token variable.
	EnvReleaseToken = "GH_TOKEN"

	// EnvReleaseTokenFallback is the fallback release-host token variable.
	EnvReleaseTokenFallback = "GITHUB_TOKEN"

	// EnvRegistryToken is the language package registry token variable.
	EnvRegistryToken = "CARGO_REGISTRY_TOKEN"

	// EnvContainerUser is the container registry username variable.
	EnvContainerUser = "CONTAINER_REGISTRY_USER"

	// EnvContainerToken is the container registry token variable.
	EnvContainerToken = "CONTAINER_REGISTRY_TOKEN"

	// EnvCacheToken is the remote build cache key variable.
	EnvCacheToken = "BUILD_CACHE_TOKEN"
)
