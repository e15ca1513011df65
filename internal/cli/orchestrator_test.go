package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/slipway/internal/config"
	"github.com/mrz1836/slipway/internal/domain"
	"github.com/mrz1836/slipway/internal/errors"
	"github.com/mrz1836/slipway/internal/matrix"
	"github.com/mrz1836/slipway/internal/testutil"
)

// stubRetagger stands in for the registry-backed retagger.
type stubRetagger struct {
	calls int
	err   error
}

func (s *stubRetagger) Retag(_ context.Context, _, _, _ string) (digest.Digest, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "sha256:feedface", nil
}

func orchestratorCredentials() domain.Credentials {
	return domain.Credentials{
		ReleaseToken:      "ghp_orchestrator_token",
		RegistryToken:     "registry-token",
		ContainerUsername: "publisher",
		ContainerToken:    "container-token",
		CacheToken:        "cache-token",
	}
}

// orchestratorConfig lays out a workspace with prebuilt fake binaries so the
// packaging step finds what the mocked build "produced".
func orchestratorConfig(t *testing.T, targets ...string) *config.Config {
	t.Helper()
	workDir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Project.Name = "rainfrog"
	cfg.Project.RepoPath = workDir
	cfg.Package.OutputDir = filepath.Join(workDir, "dist")
	cfg.Package.ChecksumTool = "native"
	cfg.Build.Parallelism = 2

	for i, target := range targets {
		cfg.Matrix = append(cfg.Matrix, domain.MatrixEntry{
			OS:         "ubuntu-22.04",
			Target:     target,
			BinaryName: "rainfrog",
			UseCross:   i%2 == 1,
		})
		binDir := filepath.Join(workDir, "target", target, "release")
		require.NoError(t, os.MkdirAll(binDir, 0o750))
		require.NoError(t, os.WriteFile(filepath.Join(binDir, "rainfrog"), []byte("fake binary "+target), 0o755))
	}
	return cfg
}

func executeOrchestrator(t *testing.T, cfg *config.Config, runner *testutil.MockRunner, retagger *stubRetagger) (*RunSummary, error) {
	t.Helper()
	tag, err := domain.ParseTag("v1.2.3")
	require.NoError(t, err)
	entries, err := matrix.Resolve(cfg.Matrix)
	require.NoError(t, err)

	orch := newOrchestrator(cfg, orchestratorCredentials(), runner, zerolog.Nop())
	orch.retagger = retagger
	return orch.Execute(context.Background(), tag, entries)
}

func TestOrchestratorCompleteRun(t *testing.T) {
	t.Parallel()

	cfg := orchestratorConfig(t, "x86_64-unknown-linux-gnu", "aarch64-unknown-linux-musl")
	cfg.Registry.Enabled = true
	cfg.Container.Enabled = true
	cfg.Container.Repository = "ghcr.io/achristmascarl/rainfrog"

	runner := testutil.NewMockRunner()
	retagger := &stubRetagger{}

	summary, err := executeOrchestrator(t, cfg, runner, retagger)
	require.NoError(t, err)
	require.NotNil(t, summary)

	assert.Equal(t, domain.RunComplete, summary.Status)
	assert.Len(t, summary.Artifacts, 2)
	assert.Empty(t, summary.Failures)

	assert.Equal(t, 1, runner.CountPrefix("cargo build --release --locked --target x86_64"))
	assert.Equal(t, 2, runner.CountPrefix("gh release upload v1.2.3"))
	assert.Equal(t, 1, runner.CountPrefix("cargo publish"))
	assert.Equal(t, 1, runner.CountPrefix("docker buildx build"))
	assert.Equal(t, 1, retagger.calls)

	// One cross entry went through the cross tool, not the native one.
	assert.Equal(t, 1, runner.CountPrefix("cross build --release --locked --target aarch64"))

	for _, artifact := range summary.Artifacts {
		assert.FileExists(t, artifact.Archive)
	}
}

func TestOrchestratorBuildFailureBlocksPublish(t *testing.T) {
	t.Parallel()

	cfg := orchestratorConfig(t, "x86_64-unknown-linux-gnu", "aarch64-unknown-linux-musl", "x86_64-apple-darwin")
	cfg.Registry.Enabled = true
	cfg.Container.Enabled = true
	cfg.Container.Repository = "ghcr.io/achristmascarl/rainfrog"

	runner := testutil.NewMockRunner()
	runner.Fail("cargo build --release --locked --target x86_64-apple-darwin", testutil.ErrMockBuildTool)
	retagger := &stubRetagger{}

	summary, err := executeOrchestrator(t, cfg, runner, retagger)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrBuildFailed)
	require.NotNil(t, summary)

	assert.Equal(t, domain.RunFailed, summary.Status)
	assert.Contains(t, summary.Failures, "x86_64-apple-darwin")

	// The join blocked: nothing downstream of the matrix ran.
	assert.Zero(t, runner.CountPrefix("gh release"))
	assert.Zero(t, runner.CountPrefix("cargo publish"))

	// The container branch is causally independent and still published.
	assert.Equal(t, 1, runner.CountPrefix("docker buildx build"))
	assert.Equal(t, 1, retagger.calls)

	// Sibling builds were not crashed by the failing entry.
	assert.Len(t, summary.Artifacts, 2)
}

func TestOrchestratorContainerIsolation(t *testing.T) {
	t.Parallel()

	cfg := orchestratorConfig(t, "x86_64-unknown-linux-gnu")
	cfg.Registry.Enabled = true
	cfg.Container.Enabled = true
	cfg.Container.Repository = "ghcr.io/achristmascarl/rainfrog"

	runner := testutil.NewMockRunner()
	runner.Fail("docker buildx build", testutil.ErrMockPushRejected)

	summary, err := executeOrchestrator(t, cfg, runner, &stubRetagger{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrContainerPublish)
	require.NotNil(t, summary)

	// The container failure did not gate the release or registry branches.
	assert.Equal(t, 1, runner.CountPrefix("gh release upload"))
	assert.Equal(t, 1, runner.CountPrefix("cargo publish"))
	assert.Equal(t, domain.RunFailed, summary.Status)

	for _, st := range summary.Stages {
		switch st.Name {
		case "release", "registry":
			assert.Equal(t, "succeeded", st.Status, st.Name)
		case "container":
			assert.Equal(t, "failed", st.Status)
		}
	}
}

func TestOrchestratorPartialReleaseSkipsRegistry(t *testing.T) {
	t.Parallel()

	cfg := orchestratorConfig(t, "x86_64-unknown-linux-gnu", "aarch64-unknown-linux-musl")
	cfg.Registry.Enabled = true

	runner := testutil.NewMockRunner()
	runner.Fail("gh release upload v1.2.3 "+filepath.Join(cfg.Package.OutputDir, "rainfrog-v1.2.3-aarch64-unknown-linux-musl.tar.gz"), testutil.ErrMockUpload)

	summary, err := executeOrchestrator(t, cfg, runner, &stubRetagger{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrReleaseIncomplete)
	require.NotNil(t, summary)

	// Partial is reported distinctly from failed, and the registry publish
	// never proceeded on a partial release.
	assert.Equal(t, domain.RunPartial, summary.Status)
	assert.Zero(t, runner.CountPrefix("cargo publish"))
}

func TestOrchestratorPartialReleaseOutrankedByContainerFailure(t *testing.T) {
	t.Parallel()

	cfg := orchestratorConfig(t, "x86_64-unknown-linux-gnu", "aarch64-unknown-linux-musl")
	cfg.Registry.Enabled = true
	cfg.Container.Enabled = true
	cfg.Container.Repository = "ghcr.io/achristmascarl/rainfrog"

	runner := testutil.NewMockRunner()
	runner.Fail("gh release upload v1.2.3 "+filepath.Join(cfg.Package.OutputDir, "rainfrog-v1.2.3-aarch64-unknown-linux-musl.tar.gz"), testutil.ErrMockUpload)
	runner.Fail("docker buildx build", testutil.ErrMockPushRejected)

	summary, err := executeOrchestrator(t, cfg, runner, &stubRetagger{})
	require.Error(t, err)
	require.NotNil(t, summary)

	// An independent branch failure outranks the partial upload at the run
	// level; the stage table still carries the incomplete release.
	assert.Equal(t, domain.RunFailed, summary.Status)
	assert.ErrorIs(t, err, errors.ErrContainerPublish)
	assert.NotErrorIs(t, err, errors.ErrReleaseIncomplete)

	var releaseErr string
	for _, st := range summary.Stages {
		if st.Name == "release" {
			releaseErr = st.Error
		}
	}
	assert.Contains(t, releaseErr, "1 of 2 artifacts uploaded")
	assert.Zero(t, runner.CountPrefix("cargo publish"))
}

func TestBuildPlanShape(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Matrix = []domain.MatrixEntry{
		{OS: "ubuntu-22.04", Target: "x86_64-unknown-linux-gnu", BinaryName: "rainfrog"},
	}
	cfg.Registry.Enabled = true
	cfg.Notifications.Enabled = true

	tag, err := domain.ParseTag("v2.0.0")
	require.NoError(t, err)

	plan := buildPlan(cfg, tag, cfg.Matrix)
	require.Len(t, plan.Targets, 1)
	assert.Equal(t, "rainfrog-v2.0.0-x86_64-unknown-linux-gnu", plan.Targets[0].Archive)

	var notifyNeeds []string
	for _, st := range plan.Stages {
		if st.Name == "notify" {
			notifyNeeds = st.Needs
		}
	}
	assert.Equal(t, []string{"registry"}, notifyNeeds)
}
