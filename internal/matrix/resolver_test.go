package matrix_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/slipway/internal/domain"
	"github.com/mrz1836/slipway/internal/errors"
	"github.com/mrz1836/slipway/internal/matrix"
)

func validMatrix() []domain.MatrixEntry {
	return []domain.MatrixEntry{
		{OS: "ubuntu-22.04", Target: "x86_64-unknown-linux-gnu", BinaryName: "rainfrog"},
		{OS: "ubuntu-22.04", Target: "x86_64-unknown-linux-musl", BinaryName: "rainfrog", UseCross: true},
		{OS: "ubuntu-22.04", Target: "aarch64-unknown-linux-gnu", BinaryName: "rainfrog", UseCross: true},
		{OS: "ubuntu-22.04", Target: "aarch64-linux-android", BinaryName: "rainfrog", UseCross: true, Features: "termux --no-default-features"},
		{OS: "macos-14", Target: "x86_64-apple-darwin", BinaryName: "rainfrog"},
		{OS: "macos-14", Target: "aarch64-apple-darwin", BinaryName: "rainfrog"},
		{OS: "windows-2022", Target: "x86_64-pc-windows-msvc", BinaryName: "rainfrog", BinaryPostfix: ".exe"},
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	t.Run("valid matrix resolves in declaration order", func(t *testing.T) {
		t.Parallel()
		entries, err := matrix.Resolve(validMatrix())
		require.NoError(t, err)
		require.Len(t, entries, 7)
		assert.Equal(t, "x86_64-unknown-linux-gnu", entries[0].Target)
		assert.Equal(t, "x86_64-pc-windows-msvc", entries[6].Target)
	})

	t.Run("returned slice is a copy", func(t *testing.T) {
		t.Parallel()
		declared := validMatrix()
		entries, err := matrix.Resolve(declared)
		require.NoError(t, err)
		declared[0].Target = "mutated"
		assert.Equal(t, "x86_64-unknown-linux-gnu", entries[0].Target)
	})

	t.Run("duplicate target fails resolution", func(t *testing.T) {
		t.Parallel()
		declared := validMatrix()
		declared[3].Target = declared[0].Target
		_, err := matrix.Resolve(declared)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrConfiguration)
		assert.ErrorIs(t, err, errors.ErrDuplicateTarget)
		assert.Contains(t, err.Error(), "x86_64-unknown-linux-gnu")
	})

	t.Run("empty matrix fails", func(t *testing.T) {
		t.Parallel()
		_, err := matrix.Resolve(nil)
		assert.ErrorIs(t, err, errors.ErrConfiguration)
	})

	t.Run("missing target fails", func(t *testing.T) {
		t.Parallel()
		declared := validMatrix()
		declared[2].Target = ""
		_, err := matrix.Resolve(declared)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrConfiguration)
		assert.ErrorIs(t, err, errors.ErrMissingField)
	})

	t.Run("missing os fails", func(t *testing.T) {
		t.Parallel()
		declared := validMatrix()
		declared[0].OS = ""
		_, err := matrix.Resolve(declared)
		assert.ErrorIs(t, err, errors.ErrMissingField)
	})

	t.Run("missing binary name fails", func(t *testing.T) {
		t.Parallel()
		declared := validMatrix()
		declared[5].BinaryName = ""
		_, err := matrix.Resolve(declared)
		assert.ErrorIs(t, err, errors.ErrMissingField)
	})

	t.Run("inconsistent binary name fails", func(t *testing.T) {
		t.Parallel()
		declared := validMatrix()
		declared[1].BinaryName = "toadpool"
		_, err := matrix.Resolve(declared)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrConfiguration)
		assert.Contains(t, err.Error(), "toadpool")
	})
}
