package testutil

import "errors"

// Mock errors for testing purposes.
// These errors are used to simulate various failure scenarios in tests.
var (
	// ErrMockBuildTool indicates a mock toolchain invocation failed (used in tests).
	ErrMockBuildTool = errors.New("build tool failed")

	// ErrMockUpload indicates a mock artifact upload failed (used in tests).
	ErrMockUpload = errors.New("upload failed")

	// ErrMockPushRejected indicates a mock registry push was rejected (used in tests).
	ErrMockPushRejected = errors.New("push rejected")

	// ErrMockNetwork indicates a mock network error occurred (used in tests).
	ErrMockNetwork = errors.New("network error")
)
