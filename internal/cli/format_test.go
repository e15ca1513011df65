package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/slipway/internal/domain"
	"github.com/mrz1836/slipway/internal/errors"
)

func sampleSummary() *RunSummary {
	return &RunSummary{
		RunID:  "3f1c9f2e-run",
		Tag:    "v1.2.3",
		Status: domain.RunComplete,
		Stages: []StageSummary{
			{Name: "build:x86_64-unknown-linux-gnu", Status: "succeeded", Duration: "1.5s"},
			{Name: "release", Status: "succeeded", Duration: "800ms"},
		},
		Artifacts: []ArtifactSummary{
			{Target: "x86_64-unknown-linux-gnu", Archive: "dist/rainfrog-v1.2.3-x86_64-unknown-linux-gnu.tar.gz", SHA256: strings.Repeat("ab", 32)},
		},
	}
}

func TestWriteOutput(t *testing.T) {
	t.Parallel()

	t.Run("text", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		require.NoError(t, WriteOutput(&buf, OutputText, sampleSummary()))
		out := buf.String()
		assert.Contains(t, out, "release v1.2.3: complete")
		assert.Contains(t, out, "build:x86_64-unknown-linux-gnu")
		assert.Contains(t, out, "artifacts:")
	})

	t.Run("json round-trips", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		require.NoError(t, WriteOutput(&buf, OutputJSON, sampleSummary()))

		var decoded RunSummary
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, "v1.2.3", decoded.Tag)
		assert.Equal(t, domain.RunComplete, decoded.Status)
		assert.Len(t, decoded.Stages, 2)
	})

	t.Run("yaml round-trips", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		require.NoError(t, WriteOutput(&buf, OutputYAML, sampleSummary()))

		var decoded RunSummary
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, "v1.2.3", decoded.Tag)
		require.Len(t, decoded.Artifacts, 1)
		assert.Equal(t, "x86_64-unknown-linux-gnu", decoded.Artifacts[0].Target)
	})

	t.Run("unknown format", func(t *testing.T) {
		t.Parallel()
		err := WriteOutput(&bytes.Buffer{}, "xml", sampleSummary())
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrInvalidOutputFormat)
	})
}
