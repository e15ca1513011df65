package domain

// BuildResult is produced per MatrixEntry after a build attempt. It is
// consumed immediately by the packager and never persisted beyond the run.
type BuildResult struct {
	// Target is the target triple of the matrix entry that produced this result.
	Target string

	// Strategy is the build strategy that was used.
	Strategy Strategy

	// BinaryPath is the path to the compiled binary on success.
	BinaryPath string

	// Success reports whether the build completed with a zero exit code.
	Success bool

	// Output holds combined tool output, kept for failure reporting.
	Output string
}

// Artifact is a packaged release unit: the compressed archive plus its
// checksum file. Archive and checksum always correspond to the same
// BuildResult; the checksum is computed over the exact bytes of the archive,
// not the raw binary.
type Artifact struct {
	// ReleaseName is the deterministic base name {binaryName}-{tag}-{target}.
	ReleaseName string

	// Target is the target triple, the foreign key back to the matrix entry.
	Target string

	// ArchivePath is the path of the .tar.gz archive.
	ArchivePath string

	// ChecksumPath is the path of the .sha256 digest file.
	ChecksumPath string

	// Digest is the hex SHA-256 of the archive bytes.
	Digest string
}
