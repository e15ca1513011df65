// Package archive packages successful builds into release artifacts: a
// compressed archive per target plus a checksum digest file in the canonical
// `<hex digest>  <filename>` format understood by standard verification tools.
package archive

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mrz1836/slipway/internal/command"
	"github.com/mrz1836/slipway/internal/errors"
)

// hexDigestPattern matches a SHA-256 digest in hex, either case.
var hexDigestPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// ChecksumComputer computes the SHA-256 digest of a file's exact bytes.
//
// Hosts differ in which checksum tool they carry (sha256sum on Linux,
// shasum on macOS) and in the shape of its output; every implementation
// must return the bare lowercase hex digest so the written digest file is
// identical regardless of host.
type ChecksumComputer interface {
	// Compute returns the lowercase hex SHA-256 of the file at path.
	Compute(ctx context.Context, path string) (string, error)

	// Name identifies the implementation for logging.
	Name() string
}

// NativeComputer computes digests in-process with crypto/sha256.
// It is always available and is the default.
type NativeComputer struct{}

// Name implements ChecksumComputer.
func (NativeComputer) Name() string { return "native" }

// Compute implements ChecksumComputer.
func (NativeComputer) Compute(_ context.Context, path string) (string, error) {
	f, err := os.Open(path) //#nosec G304 -- path is a pipeline-produced artifact
	if err != nil {
		return "", errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, bufio.NewReader(f)); err != nil {
		return "", errors.Wrapf(err, "hash %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ToolComputer shells out to a host checksum tool. Output shapes differ per
// tool (`sha256sum` prints "hex  name", `shasum -a 256` the same, other hosts
// may print the raw hex alone), so the output is normalized to the bare
// lowercase digest before use.
type ToolComputer struct {
	runner command.Runner
	tool   string
	args   []string
}

// NewSha256sumComputer returns a ToolComputer backed by GNU sha256sum.
func NewSha256sumComputer(runner command.Runner) *ToolComputer {
	return &ToolComputer{runner: runner, tool: "sha256sum"}
}

// NewShasumComputer returns a ToolComputer backed by BSD shasum.
func NewShasumComputer(runner command.Runner) *ToolComputer {
	return &ToolComputer{runner: runner, tool: "shasum", args: []string{"-a", "256"}}
}

// Name implements ChecksumComputer.
func (t *ToolComputer) Name() string { return t.tool }

// Compute implements ChecksumComputer.
func (t *ToolComputer) Compute(ctx context.Context, path string) (string, error) {
	res, err := t.runner.Run(ctx, command.Spec{
		Name: t.tool,
		Args: append(append([]string{}, t.args...), path),
	})
	if err != nil {
		return "", errors.Wrapf(err, "%s %s", t.tool, path)
	}
	digest, err := NormalizeDigest(res.Stdout)
	if err != nil {
		return "", errors.Wrapf(err, "%s output for %s", t.tool, path)
	}
	return digest, nil
}

// DetectComputer selects a checksum implementation by host capability:
// sha256sum if present, then shasum, falling back to the in-process
// implementation. The returned computer always honors the same output
// contract, so the digest file format never varies by host.
func DetectComputer(ctx context.Context, runner command.Runner) ChecksumComputer {
	if _, err := runner.Run(ctx, command.Spec{Name: "sha256sum", Args: []string{"--version"}}); err == nil {
		return NewSha256sumComputer(runner)
	}
	if _, err := runner.Run(ctx, command.Spec{Name: "shasum", Args: []string{"--version"}}); err == nil {
		return NewShasumComputer(runner)
	}
	return NativeComputer{}
}

// NormalizeDigest extracts the bare lowercase hex digest from checksum tool
// output. It accepts the "hex  filename" line format, a raw hex line, or a
// "(file) = hex" BSD format, and returns ErrChecksumToolOutput for anything
// else.
func NormalizeDigest(output string) (string, error) {
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		for _, field := range strings.Fields(line) {
			field = strings.TrimPrefix(field, "\\")
			if hexDigestPattern.MatchString(field) {
				return strings.ToLower(field), nil
			}
		}
	}
	return "", errors.Wrapf(errors.ErrChecksumToolOutput, "%q", firstLine(output))
}

// WriteChecksumFile writes the canonical digest file `<hex>  <filename>` for
// an archive. The recorded filename is the archive's base name so the file
// verifies from the directory it is downloaded to.
func WriteChecksumFile(path, digest, archiveName string) error {
	content := fmt.Sprintf("%s  %s\n", digest, archiveName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil { //#nosec G306 -- checksum files are published artifacts
		return errors.Wrapf(err, "write checksum file %s", path)
	}
	return nil
}

// VerifyChecksumFile recomputes the digest of the archive referenced by a
// checksum file and compares it to the recorded digest. Returns
// ErrChecksumMismatch when they differ.
func VerifyChecksumFile(ctx context.Context, computer ChecksumComputer, checksumPath string) error {
	content, err := os.ReadFile(checksumPath) //#nosec G304 -- path is a pipeline-produced artifact
	if err != nil {
		return errors.Wrapf(err, "read checksum file %s", checksumPath)
	}

	fields := strings.Fields(string(content))
	if len(fields) < 2 || !hexDigestPattern.MatchString(fields[0]) {
		return errors.Wrapf(errors.ErrChecksumToolOutput, "checksum file %s", checksumPath)
	}
	recorded := strings.ToLower(fields[0])
	archivePath := filepath.Join(filepath.Dir(checksumPath), fields[1])

	actual, err := computer.Compute(ctx, archivePath)
	if err != nil {
		return err
	}
	if actual != recorded {
		return errors.Wrapf(errors.ErrChecksumMismatch, "%s: recorded %s, computed %s",
			filepath.Base(archivePath), recorded, actual)
	}
	return nil
}

// firstLine trims output to its first line for compact error messages.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
