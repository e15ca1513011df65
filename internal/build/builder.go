// Package build selects and runs the per-entry build strategy.
//
// Every matrix entry is built either by the native toolchain scoped to the
// target triple, or by a cross-compilation backend that emulates or
// cross-links for the foreign target. Both paths honor the entry's feature
// string identically and report failures as BuildError without retrying; the
// orchestrator surfaces the failure and the release join blocks on it.
package build

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/slipway/internal/command"
	"github.com/mrz1836/slipway/internal/constants"
	"github.com/mrz1836/slipway/internal/ctxutil"
	"github.com/mrz1836/slipway/internal/domain"
	"github.com/mrz1836/slipway/internal/errors"
)

// Options configures the build strategies.
type Options struct {
	// NativeCommand is the native toolchain executable. Default "cargo".
	NativeCommand string

	// CrossCommand is the cross-compilation executable. Default "cross".
	CrossCommand string

	// NativeTimeout is the wall-clock ceiling for one native build.
	NativeTimeout time.Duration

	// CrossTimeout is the wall-clock ceiling for one cross build. Cross
	// builds run emulated and need a longer ceiling than native builds.
	CrossTimeout time.Duration

	// WorkDir is the project root the toolchain runs in.
	WorkDir string

	// TargetDir is the toolchain output directory relative to WorkDir.
	// Default "target".
	TargetDir string
}

// withDefaults fills unset options.
func (o Options) withDefaults() Options {
	if o.NativeCommand == "" {
		o.NativeCommand = "cargo"
	}
	if o.CrossCommand == "" {
		o.CrossCommand = "cross"
	}
	if o.NativeTimeout <= 0 {
		o.NativeTimeout = constants.DefaultNativeBuildTimeout
	}
	if o.CrossTimeout <= 0 {
		o.CrossTimeout = constants.DefaultCrossBuildTimeout
	}
	if o.TargetDir == "" {
		o.TargetDir = "target"
	}
	return o
}

// Builder builds one matrix entry with a specific strategy.
type Builder interface {
	// Build compiles the entry's binary. On failure it returns a BuildError
	// carrying the target and strategy; the returned BuildResult preserves
	// tool output for reporting either way.
	Build(ctx context.Context, entry domain.MatrixEntry) (*domain.BuildResult, error)

	// Strategy identifies the build path.
	Strategy() domain.Strategy

	// Timeout is the per-entry wall-clock ceiling for this strategy.
	Timeout() time.Duration
}

// Selector chooses the builder for a matrix entry based on its UseCross flag.
type Selector struct {
	native Builder
	cross  Builder
}

// NewSelector creates a Selector with both strategies backed by the given runner.
func NewSelector(runner command.Runner, opts Options) *Selector {
	opts = opts.withDefaults()
	return &Selector{
		native: &toolchainBuilder{
			strategy: domain.StrategyNative,
			command:  opts.NativeCommand,
			timeout:  opts.NativeTimeout,
			runner:   runner,
			opts:     opts,
		},
		cross: &toolchainBuilder{
			strategy: domain.StrategyCross,
			command:  opts.CrossCommand,
			timeout:  opts.CrossTimeout,
			runner:   runner,
			opts:     opts,
		},
	}
}

// ForEntry returns the builder selected by the entry's UseCross flag.
func (s *Selector) ForEntry(entry domain.MatrixEntry) Builder {
	if entry.UseCross {
		return s.cross
	}
	return s.native
}

// toolchainBuilder runs one external build tool. The native and cross paths
// differ only in the executable and the timeout ceiling; argument rendering
// is shared so both honor the feature spec identically.
type toolchainBuilder struct {
	strategy domain.Strategy
	command  string
	timeout  time.Duration
	runner   command.Runner
	opts     Options
}

// Strategy implements Builder.
func (b *toolchainBuilder) Strategy() domain.Strategy {
	return b.strategy
}

// Timeout implements Builder.
func (b *toolchainBuilder) Timeout() time.Duration {
	return b.timeout
}

// Build implements Builder.
func (b *toolchainBuilder) Build(ctx context.Context, entry domain.MatrixEntry) (*domain.BuildResult, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}
	logger := zerolog.Ctx(ctx)

	buildCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	args := buildArgs(entry)
	logger.Info().
		Str("target", entry.Target).
		Str("strategy", b.strategy.String()).
		Str("features", entry.Features).
		Msg("building target")

	res, err := b.runner.Run(buildCtx, command.Spec{
		Name: b.command,
		Args: args,
		Dir:  b.opts.WorkDir,
	})

	result := &domain.BuildResult{
		Target:   entry.Target,
		Strategy: b.strategy,
	}
	if res != nil {
		result.Output = res.CombinedOutput()
	}

	if err != nil {
		logger.Error().
			Str("target", entry.Target).
			Str("strategy", b.strategy.String()).
			Err(err).
			Msg("build failed")
		return result, &errors.BuildError{Target: entry.Target, Strategy: b.strategy.String(), Err: err}
	}

	result.Success = true
	result.BinaryPath = b.binaryPath(entry)
	logger.Info().
		Str("target", entry.Target).
		Str("binary", result.BinaryPath).
		Msg("build succeeded")
	return result, nil
}

// binaryPath is where the toolchain leaves the release binary for a target.
func (b *toolchainBuilder) binaryPath(entry domain.MatrixEntry) string {
	return filepath.Join(b.opts.WorkDir, b.opts.TargetDir, entry.Target, "release", entry.BinaryFileName())
}

// buildArgs renders the toolchain argument list for an entry. Used by both
// strategies.
func buildArgs(entry domain.MatrixEntry) []string {
	args := []string{"build", "--release", "--locked", "--target", entry.Target}
	return append(args, domain.ParseFeatureSpec(entry.Features).BuildArgs()...)
}
