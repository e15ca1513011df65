// Package domain defines the core entities of the release pipeline: the target
// matrix, build results, packaged artifacts, the release run, and the
// credentials parameter object passed to publishers.
//
// This package may import internal/constants and internal/errors, but MUST NOT
// import other internal packages.
package domain

import "strings"

// Strategy identifies which build path produced a binary.
type Strategy string

const (
	// StrategyNative invokes the host toolchain directly, scoped to the target.
	StrategyNative Strategy = "native"

	// StrategyCross invokes a cross-compilation backend that emulates or
	// cross-links for the foreign target.
	StrategyCross Strategy = "cross"
)

// String returns the strategy name.
func (s Strategy) String() string {
	return string(s)
}

// MatrixEntry is one declared target platform in the release matrix.
//
// Target is the unique key within a run; BinaryName is constant across
// entries; UseCross is immutable once declared.
type MatrixEntry struct {
	// OS is the execution host class the build job runs on (informational in
	// a single-host run, e.g. "ubuntu-22.04" or "macos-14").
	OS string `yaml:"os" mapstructure:"os"`

	// Target is the platform triple, e.g. "x86_64-unknown-linux-musl".
	Target string `yaml:"target" mapstructure:"target"`

	// BinaryPostfix is appended to the binary filename. Empty for most
	// platforms, ".exe" on Windows targets.
	BinaryPostfix string `yaml:"binary_postfix" mapstructure:"binary_postfix"`

	// BinaryName is the logical product name, constant across entries.
	BinaryName string `yaml:"binary_name" mapstructure:"binary_name"`

	// UseCross selects the cross-compilation build strategy for this entry.
	UseCross bool `yaml:"use_cross" mapstructure:"use_cross"`

	// Features describes which optional capabilities to compile in. It may
	// encode multiple tokens, e.g. "termux --no-default-features".
	Features string `yaml:"features" mapstructure:"features"`
}

// Strategy returns the build strategy selected by the entry's UseCross flag.
func (e MatrixEntry) Strategy() Strategy {
	if e.UseCross {
		return StrategyCross
	}
	return StrategyNative
}

// BinaryFileName returns the file name of the compiled binary, including the
// platform postfix.
func (e MatrixEntry) BinaryFileName() string {
	return e.BinaryName + e.BinaryPostfix
}

// ReleaseName computes the deterministic artifact base name
// {binaryName}-{tag}-{target} used for archive and checksum files.
func (e MatrixEntry) ReleaseName(tag Tag) string {
	return e.BinaryName + "-" + tag.String() + "-" + e.Target
}

// FeatureSpec is the parsed form of a MatrixEntry feature string.
//
// A feature string of the form "X --no-default-features" means: enable only
// the named optional feature X and suppress every feature enabled by default.
// Both build strategies must honor the spec identically.
type FeatureSpec struct {
	// Names lists the optional features to enable.
	Names []string

	// NoDefault suppresses every default-enabled feature when true.
	NoDefault bool
}

// ParseFeatureSpec parses a matrix entry's feature string. Tokens beginning
// with "--no-default-features" set NoDefault; all other tokens are feature
// names. An empty string yields a zero FeatureSpec.
func ParseFeatureSpec(features string) FeatureSpec {
	var spec FeatureSpec
	for _, tok := range strings.Fields(features) {
		if tok == "--no-default-features" {
			spec.NoDefault = true
			continue
		}
		spec.Names = append(spec.Names, tok)
	}
	return spec
}

// BuildArgs renders the feature spec as toolchain arguments. The rendering is
// shared by the native and cross builders so both honor the spec identically.
func (s FeatureSpec) BuildArgs() []string {
	var args []string
	if s.NoDefault {
		args = append(args, "--no-default-features")
	}
	if len(s.Names) > 0 {
		args = append(args, "--features", strings.Join(s.Names, ","))
	}
	return args
}

// Empty reports whether the spec selects nothing beyond the defaults.
func (s FeatureSpec) Empty() bool {
	return !s.NoDefault && len(s.Names) == 0
}
