package errors

import "fmt"

// BuildError reports a failed platform build. It carries the target triple and
// the build strategy so the join stage can name the failing entry.
type BuildError struct {
	// Target is the target triple of the failed matrix entry.
	Target string
	// Strategy is the build strategy that was used ("native" or "cross").
	Strategy string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	return fmt.Sprintf("build failed for %s (%s): %v", e.Target, e.Strategy, e.Err)
}

// Unwrap returns the underlying error.
func (e *BuildError) Unwrap() error {
	return e.Err
}

// Is reports whether this error matches the ErrBuildFailed sentinel.
func (e *BuildError) Is(target error) bool {
	return target == ErrBuildFailed
}

// PackagingError reports a failed archive or checksum step for one target.
type PackagingError struct {
	// Target is the target triple of the failed matrix entry.
	Target string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *PackagingError) Error() string {
	return fmt.Sprintf("packaging failed for %s: %v", e.Target, e.Err)
}

// Unwrap returns the underlying error.
func (e *PackagingError) Unwrap() error {
	return e.Err
}

// Is reports whether this error matches the ErrPackagingFailed sentinel.
func (e *PackagingError) Is(target error) bool {
	return target == ErrPackagingFailed
}

// PublishError reports a failed upload of one artifact to a distribution channel.
type PublishError struct {
	// Artifact is the file name of the artifact that failed to upload.
	Artifact string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *PublishError) Error() string {
	return fmt.Sprintf("publish failed for %s: %v", e.Artifact, e.Err)
}

// Unwrap returns the underlying error.
func (e *PublishError) Unwrap() error {
	return e.Err
}

// Is reports whether this error matches the ErrPublishFailed sentinel.
func (e *PublishError) Is(target error) bool {
	return target == ErrPublishFailed
}
