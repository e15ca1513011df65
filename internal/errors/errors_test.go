package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"ErrConfiguration", ErrConfiguration, "invalid pipeline configuration"},
		{"ErrDuplicateTarget", ErrDuplicateTarget, "duplicate target in matrix"},
		{"ErrMissingField", ErrMissingField, "missing required matrix field"},
		{"ErrInvalidTag", ErrInvalidTag, "invalid version tag"},
		{"ErrBuildFailed", ErrBuildFailed, "build failed"},
		{"ErrPackagingFailed", ErrPackagingFailed, "packaging failed"},
		{"ErrPublishFailed", ErrPublishFailed, "publish failed"},
		{"ErrReleaseIncomplete", ErrReleaseIncomplete, "release publish incomplete"},
		{"ErrNotification", ErrNotification, "notification failed"},
		{"ErrStageSkipped", ErrStageSkipped, "stage skipped"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestBuildError(t *testing.T) {
	t.Parallel()

	cause := stderrors.New("linker exploded")
	err := &BuildError{Target: "aarch64-unknown-linux-musl", Strategy: "cross", Err: cause}

	assert.Contains(t, err.Error(), "aarch64-unknown-linux-musl")
	assert.Contains(t, err.Error(), "cross")
	assert.ErrorIs(t, err, ErrBuildFailed)
	assert.ErrorIs(t, err, cause)

	var be *BuildError
	require.ErrorAs(t, Wrap(err, "job failed"), &be)
	assert.Equal(t, "aarch64-unknown-linux-musl", be.Target)
}

func TestPackagingError(t *testing.T) {
	t.Parallel()

	err := &PackagingError{Target: "x86_64-apple-darwin", Err: ErrBinaryNotFound}
	assert.ErrorIs(t, err, ErrPackagingFailed)
	assert.ErrorIs(t, err, ErrBinaryNotFound)
	assert.NotErrorIs(t, err, ErrBuildFailed)
}

func TestPublishError(t *testing.T) {
	t.Parallel()

	err := &PublishError{Artifact: "rainfrog-v1.2.3-x86_64-unknown-linux-gnu.tar.gz", Err: ErrCommandFailed}
	assert.ErrorIs(t, err, ErrPublishFailed)
	assert.Contains(t, err.Error(), "rainfrog-v1.2.3")

	var pe *PublishError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "rainfrog-v1.2.3-x86_64-unknown-linux-gnu.tar.gz", pe.Artifact)
}

func TestWrap(t *testing.T) {
	t.Parallel()

	t.Run("nil error returns nil", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, Wrap(nil, "context"))
		assert.NoError(t, Wrapf(nil, "context %d", 1))
	})

	t.Run("preserves error chain", func(t *testing.T) {
		t.Parallel()
		wrapped := Wrap(ErrConfiguration, "loading pipeline")
		assert.ErrorIs(t, wrapped, ErrConfiguration)
		assert.Equal(t, "loading pipeline: invalid pipeline configuration", wrapped.Error())
	})

	t.Run("wrapf interpolates", func(t *testing.T) {
		t.Parallel()
		wrapped := Wrapf(ErrDuplicateTarget, "entry %d", 3)
		assert.ErrorIs(t, wrapped, ErrDuplicateTarget)
		assert.Contains(t, wrapped.Error(), "entry 3")
	})
}
