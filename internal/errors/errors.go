// Package errors provides centralized error handling for slipway.
//
// This package defines sentinel errors used for programmatic error categorization
// throughout the application, plus structured error types that carry the failing
// target or artifact. All error types can be checked using errors.Is() and
// errors.As().
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import "errors"

// Sentinel errors for error categorization.
// These allow callers to check error types with errors.Is().
// All errors use lowercase descriptions per Go conventions.
var (
	// ErrConfiguration indicates a malformed or colliding matrix declaration.
	// This is fatal at resolution time and blocks the entire run before any
	// build starts.
	ErrConfiguration = errors.New("invalid pipeline configuration")

	// ErrDuplicateTarget indicates two matrix entries declared the same target triple.
	ErrDuplicateTarget = errors.New("duplicate target in matrix")

	// ErrMissingField indicates a required matrix entry field was empty.
	ErrMissingField = errors.New("missing required matrix field")

	// ErrInvalidTag indicates the trigger tag does not match the release
	// version pattern.
	ErrInvalidTag = errors.New("invalid version tag")

	// ErrBuildFailed indicates a single platform's compilation failed.
	ErrBuildFailed = errors.New("build failed")

	// ErrPackagingFailed indicates the archive/checksum step failed after a
	// successful build.
	ErrPackagingFailed = errors.New("packaging failed")

	// ErrBinaryNotFound indicates the compiled binary was not found in the
	// strategy's release output directory.
	ErrBinaryNotFound = errors.New("compiled binary not found")

	// ErrPublishFailed indicates an upload to a distribution channel failed.
	ErrPublishFailed = errors.New("publish failed")

	// ErrReleaseIncomplete indicates the release publisher finished with some
	// but not all artifact uploads succeeding.
	ErrReleaseIncomplete = errors.New("release publish incomplete")

	// ErrRegistryPublish indicates the package registry publish failed.
	// This is terminal for the run; registry publishes are not retried.
	ErrRegistryPublish = errors.New("registry publish failed")

	// ErrContainerPublish indicates the container image build or push failed.
	ErrContainerPublish = errors.New("container publish failed")

	// ErrNotification indicates a best-effort notification comment failed.
	// This error is logged only and never fails the run.
	ErrNotification = errors.New("notification failed")

	// ErrCommandFailed indicates an external command returned a non-zero exit code.
	ErrCommandFailed = errors.New("command failed")

	// ErrCommandTimeout indicates an external command exceeded its wall-clock ceiling.
	ErrCommandTimeout = errors.New("command timeout exceeded")

	// ErrStageSkipped indicates a stage was not run because a predecessor
	// finished in a non-success state.
	ErrStageSkipped = errors.New("stage skipped")

	// ErrUnknownStage indicates a stage declared a dependency on a stage that
	// does not exist in the graph.
	ErrUnknownStage = errors.New("unknown stage")

	// ErrStageCycle indicates the declared stage dependencies form a cycle.
	ErrStageCycle = errors.New("stage dependency cycle")

	// ErrConfigNil indicates a nil config was passed to validation.
	ErrConfigNil = errors.New("config is nil")

	// ErrMissingCredential indicates a publisher was constructed without the
	// credential its channel requires.
	ErrMissingCredential = errors.New("missing credential")

	// ErrInvalidOutputFormat indicates an invalid output format was specified.
	ErrInvalidOutputFormat = errors.New("invalid output format")

	// ErrChecksumMismatch indicates a recomputed digest did not match the
	// digest recorded in a checksum file.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrChecksumToolOutput indicates a checksum tool produced output that
	// could not be normalized to the canonical digest-file format.
	ErrChecksumToolOutput = errors.New("unrecognized checksum tool output")
)
