package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/mrz1836/slipway/internal/domain"
	"github.com/mrz1836/slipway/internal/errors"
)

// Packager turns one successful BuildResult into a release Artifact.
type Packager struct {
	computer  ChecksumComputer
	outputDir string
}

// NewPackager creates a Packager writing archives and digest files to outputDir.
func NewPackager(computer ChecksumComputer, outputDir string) *Packager {
	if computer == nil {
		computer = NativeComputer{}
	}
	return &Packager{computer: computer, outputDir: outputDir}
}

// Package compresses the entry's compiled binary into
// {binaryName}-{tag}-{target}.tar.gz and writes the companion .sha256 digest
// file. The checksum is computed over the exact bytes of the archive, not the
// raw binary. A missing binary or any archive/digest failure is a
// PackagingError for the entry's target, which blocks the release join the
// same way a build failure does.
func (p *Packager) Package(ctx context.Context, entry domain.MatrixEntry, tag domain.Tag, result *domain.BuildResult) (*domain.Artifact, error) {
	logger := zerolog.Ctx(ctx)

	if _, err := os.Stat(result.BinaryPath); err != nil {
		return nil, &errors.PackagingError{
			Target: entry.Target,
			Err:    errors.Wrapf(errors.ErrBinaryNotFound, "%s", result.BinaryPath),
		}
	}

	if err := os.MkdirAll(p.outputDir, 0o750); err != nil {
		return nil, &errors.PackagingError{Target: entry.Target, Err: errors.Wrap(err, "create output dir")}
	}

	releaseName := entry.ReleaseName(tag)
	archivePath := filepath.Join(p.outputDir, releaseName+".tar.gz")
	checksumPath := filepath.Join(p.outputDir, releaseName+".sha256")

	if err := writeTarGz(archivePath, result.BinaryPath, entry.BinaryFileName()); err != nil {
		return nil, &errors.PackagingError{Target: entry.Target, Err: err}
	}

	digest, err := p.computer.Compute(ctx, archivePath)
	if err != nil {
		return nil, &errors.PackagingError{Target: entry.Target, Err: err}
	}
	if err := WriteChecksumFile(checksumPath, digest, filepath.Base(archivePath)); err != nil {
		return nil, &errors.PackagingError{Target: entry.Target, Err: err}
	}

	logger.Info().
		Str("target", entry.Target).
		Str("archive", filepath.Base(archivePath)).
		Str("sha256", digest).
		Msg("packaged artifact")

	return &domain.Artifact{
		ReleaseName:  releaseName,
		Target:       entry.Target,
		ArchivePath:  archivePath,
		ChecksumPath: checksumPath,
		Digest:       digest,
	}, nil
}

// writeTarGz writes a single-file gzip-compressed tar archive. The entry name
// inside the archive is the binary's file name, not its build path.
func writeTarGz(archivePath, binaryPath, entryName string) error {
	info, err := os.Stat(binaryPath)
	if err != nil {
		return errors.Wrapf(err, "stat %s", binaryPath)
	}

	src, err := os.Open(binaryPath) //#nosec G304 -- path comes from the build stage
	if err != nil {
		return errors.Wrapf(err, "open %s", binaryPath)
	}
	defer func() { _ = src.Close() }()

	out, err := os.Create(archivePath) //#nosec G304 -- path is derived from the release name
	if err != nil {
		return errors.Wrapf(err, "create %s", archivePath)
	}

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	header := &tar.Header{
		Name:    entryName,
		Mode:    0o755,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	if err := tw.WriteHeader(header); err != nil {
		_ = out.Close()
		return errors.Wrap(err, "write tar header")
	}
	if _, err := io.Copy(tw, src); err != nil {
		_ = out.Close()
		return errors.Wrap(err, "write tar body")
	}

	// Close order matters: tar footer, then gzip trailer, then the file.
	if err := tw.Close(); err != nil {
		_ = out.Close()
		return errors.Wrap(err, "close tar writer")
	}
	if err := gz.Close(); err != nil {
		_ = out.Close()
		return errors.Wrap(err, "close gzip writer")
	}
	return errors.Wrap(out.Close(), "close archive")
}
