package archive_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/slipway/internal/archive"
	"github.com/mrz1836/slipway/internal/command"
	"github.com/mrz1836/slipway/internal/errors"
	"github.com/mrz1836/slipway/internal/testutil"
)

func TestNormalizeDigest(t *testing.T) {
	t.Parallel()

	digest := strings.Repeat("a1", 32)

	tests := []struct {
		name    string
		output  string
		want    string
		wantErr bool
	}{
		{
			name:   "gnu sha256sum line",
			output: digest + "  rainfrog-v1.2.3-x86_64-unknown-linux-gnu.tar.gz",
			want:   digest,
		},
		{
			name:   "bsd shasum line",
			output: digest + "  archive.tar.gz\n",
			want:   digest,
		},
		{
			name:   "raw hex only",
			output: digest,
			want:   digest,
		},
		{
			name:   "uppercase digest normalized to lowercase",
			output: strings.ToUpper(digest) + "  archive.tar.gz",
			want:   digest,
		},
		{
			name:   "bsd tag format",
			output: "SHA256 (archive.tar.gz) = " + digest,
			want:   digest,
		},
		{
			name:   "escaped filename marker",
			output: "\\" + digest + "  weird\\nname.tar.gz",
			want:   digest,
		},
		{
			name:    "no digest present",
			output:  "sha256sum: archive.tar.gz: No such file or directory",
			wantErr: true,
		},
		{
			name:    "short hex rejected",
			output:  "abcdef  archive.tar.gz",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := archive.NormalizeDigest(tt.output)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, errors.ErrChecksumToolOutput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNativeComputer(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "archive.tar.gz")
	payload := []byte("deterministic archive payload")
	require.NoError(t, os.WriteFile(path, payload, 0o644))

	sum := sha256.Sum256(payload)
	want := hex.EncodeToString(sum[:])

	got, err := archive.NativeComputer{}.Compute(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestToolComputerNormalizesHostOutput(t *testing.T) {
	t.Parallel()

	digest := strings.Repeat("0f", 32)

	t.Run("sha256sum output", func(t *testing.T) {
		t.Parallel()
		runner := testutil.NewMockRunner()
		runner.Respond("sha256sum", testutil.Response{
			Result: &command.Result{Stdout: digest + "  /tmp/archive.tar.gz"},
		})
		got, err := archive.NewSha256sumComputer(runner).Compute(context.Background(), "/tmp/archive.tar.gz")
		require.NoError(t, err)
		assert.Equal(t, digest, got)
	})

	t.Run("shasum output with uppercase hex", func(t *testing.T) {
		t.Parallel()
		runner := testutil.NewMockRunner()
		runner.Respond("shasum", testutil.Response{
			Result: &command.Result{Stdout: strings.ToUpper(digest) + "  /tmp/archive.tar.gz"},
		})
		computer := archive.NewShasumComputer(runner)
		got, err := computer.Compute(context.Background(), "/tmp/archive.tar.gz")
		require.NoError(t, err)
		// Both hosts converge on the same canonical form.
		assert.Equal(t, digest, got)
		assert.Equal(t, "shasum", computer.Name())
	})

	t.Run("garbage output is rejected", func(t *testing.T) {
		t.Parallel()
		runner := testutil.NewMockRunner()
		runner.Respond("sha256sum", testutil.Response{
			Result: &command.Result{Stdout: "not a digest"},
		})
		_, err := archive.NewSha256sumComputer(runner).Compute(context.Background(), "/tmp/archive.tar.gz")
		assert.ErrorIs(t, err, errors.ErrChecksumToolOutput)
	})
}

func TestDetectComputer(t *testing.T) {
	t.Parallel()

	t.Run("prefers sha256sum", func(t *testing.T) {
		t.Parallel()
		runner := testutil.NewMockRunner()
		got := archive.DetectComputer(context.Background(), runner)
		assert.Equal(t, "sha256sum", got.Name())
	})

	t.Run("falls back to shasum", func(t *testing.T) {
		t.Parallel()
		runner := testutil.NewMockRunner()
		runner.Fail("sha256sum --version", errors.ErrCommandFailed)
		got := archive.DetectComputer(context.Background(), runner)
		assert.Equal(t, "shasum", got.Name())
	})

	t.Run("falls back to native", func(t *testing.T) {
		t.Parallel()
		runner := testutil.NewMockRunner()
		runner.Fail("sha256sum --version", errors.ErrCommandFailed)
		runner.Fail("shasum --version", errors.ErrCommandFailed)
		got := archive.DetectComputer(context.Background(), runner)
		assert.Equal(t, "native", got.Name())
	})
}
