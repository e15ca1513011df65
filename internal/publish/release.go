// Package publish implements the distribution channels of a release run: the
// source-control release page, the container registry, and the language
// package registry.
//
// Each publisher shells out to the operator's existing tooling (gh, docker,
// cargo) through command.Runner and receives its credentials as an explicit
// parameter object at construction time. Tokens travel in the child process
// environment or on stdin, never on an argument list.
package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/slipway/internal/command"
	"github.com/mrz1836/slipway/internal/constants"
	"github.com/mrz1836/slipway/internal/ctxutil"
	"github.com/mrz1836/slipway/internal/domain"
	"github.com/mrz1836/slipway/internal/errors"
)

// ReleaseReport is the per-artifact outcome of one release publish.
type ReleaseReport struct {
	// Tag is the release tag the artifacts were attached to.
	Tag string

	// Uploaded lists the release names that uploaded successfully, in matrix
	// declaration order.
	Uploaded []string

	// Failed holds one PublishError per artifact that did not upload.
	Failed []*errors.PublishError
}

// Complete reports whether every artifact uploaded.
func (r *ReleaseReport) Complete() bool {
	return len(r.Failed) == 0
}

// ReleasePublisher uploads packaged artifacts to a tagged release on the
// source-control host via the gh CLI.
type ReleasePublisher struct {
	runner  command.Runner
	creds   domain.Credentials
	timeout time.Duration
}

// NewReleasePublisher creates a ReleasePublisher. Returns ErrMissingCredential
// when no release-host token is available.
func NewReleasePublisher(runner command.Runner, creds domain.Credentials, timeout time.Duration) (*ReleasePublisher, error) {
	if err := creds.RequireRelease(); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = constants.DefaultPublishTimeout
	}
	return &ReleasePublisher{runner: runner, creds: creds, timeout: timeout}, nil
}

// Publish creates the tagged release if it does not exist and uploads every
// artifact's archive and checksum file to it. Uploads replace any existing
// asset of the same name, so re-running against the same tag is safe. Notes
// may carry locally generated release notes; when empty the host generates
// notes from the commit history itself.
//
// Upload failures are collected per artifact, never silently dropped. The
// returned report is partial when some but not all uploads succeeded, in
// which case the error wraps ErrReleaseIncomplete; when nothing uploaded the
// error wraps ErrPublishFailed.
func (p *ReleasePublisher) Publish(ctx context.Context, run *domain.ReleaseRun, notes string) (*ReleaseReport, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}
	logger := zerolog.Ctx(ctx)
	tag := run.Tag.String()

	if err := p.ensureRelease(ctx, tag, notes); err != nil {
		return nil, err
	}

	report := &ReleaseReport{Tag: tag}
	for _, artifact := range run.Artifacts() {
		if err := p.uploadArtifact(ctx, tag, artifact); err != nil {
			report.Failed = append(report.Failed, &errors.PublishError{
				Artifact: artifact.ReleaseName,
				Err:      err,
			})
			logger.Error().
				Str("artifact", artifact.ReleaseName).
				Err(err).
				Msg("artifact upload failed")
			continue
		}
		report.Uploaded = append(report.Uploaded, artifact.ReleaseName)
		logger.Info().
			Str("artifact", artifact.ReleaseName).
			Str("sha256", artifact.Digest).
			Msg("artifact uploaded")
	}

	switch {
	case report.Complete():
		return report, nil
	case len(report.Uploaded) > 0:
		return report, errors.Wrapf(errors.ErrReleaseIncomplete,
			"%d of %d artifacts uploaded", len(report.Uploaded), len(report.Uploaded)+len(report.Failed))
	default:
		return report, errors.Wrapf(errors.ErrPublishFailed, "no artifacts uploaded to %s", tag)
	}
}

// ensureRelease creates the release for tag when it does not already exist.
func (p *ReleasePublisher) ensureRelease(ctx context.Context, tag, notes string) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	_, err := p.runner.Run(ctx, command.Spec{
		Name: "gh",
		Args: []string{"release", "view", tag},
		Env:  p.env(),
	})
	if err == nil {
		return nil
	}

	args := []string{"release", "create", tag, "--title", tag, "--verify-tag"}
	if notes != "" {
		args = append(args, "--notes", notes)
	} else {
		args = append(args, "--generate-notes")
	}
	if _, err := p.runner.Run(ctx, command.Spec{
		Name: "gh",
		Args: args,
		Env:  p.env(),
	}); err != nil {
		return errors.Wrapf(err, "create release %s", tag)
	}
	return nil
}

// uploadArtifact attaches one archive and its checksum file to the release.
// --clobber makes the upload an idempotent replace keyed by tag and filename.
func (p *ReleasePublisher) uploadArtifact(ctx context.Context, tag string, artifact domain.Artifact) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	_, err := p.runner.Run(ctx, command.Spec{
		Name: "gh",
		Args: []string{"release", "upload", tag, artifact.ArchivePath, artifact.ChecksumPath, "--clobber"},
		Env:  p.env(),
	})
	return err
}

func (p *ReleasePublisher) env() []string {
	return []string{fmt.Sprintf("%s=%s", constants.EnvReleaseToken, p.creds.ReleaseToken)}
}
