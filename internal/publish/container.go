package publish

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/rs/zerolog"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/retry"

	"github.com/mrz1836/slipway/internal/command"
	"github.com/mrz1836/slipway/internal/constants"
	"github.com/mrz1836/slipway/internal/domain"
	"github.com/mrz1836/slipway/internal/errors"
)

// Retagger reassigns an existing manifest to another tag in the same
// repository without rebuilding or re-pushing layers.
type Retagger interface {
	Retag(ctx context.Context, repository, fromTag, toTag string) (digest.Digest, error)
}

// ContainerOptions configures a ContainerPublisher.
type ContainerOptions struct {
	// Repository is the full image repository path, e.g. "ghcr.io/org/rainfrog".
	Repository string

	// ContextDir is the build context directory. Empty means the current directory.
	ContextDir string

	// Dockerfile is the build definition path relative to ContextDir.
	// Empty lets the build tool use its default.
	Dockerfile string

	// CacheRef is the remote build cache reference. Empty disables the
	// remote cache.
	CacheRef string

	// Timeout bounds the build-and-push invocation.
	Timeout time.Duration
}

// ContainerPublisher builds the repository's container image and pushes it
// under the exact release tag, then reassigns the floating "latest" tag to
// the same manifest.
//
// The publisher is an isolated branch of the run: its failure never gates the
// matrix builds, the release upload, or the registry publish.
type ContainerPublisher struct {
	runner   command.Runner
	creds    domain.Credentials
	retagger Retagger
	opts     ContainerOptions
}

// NewContainerPublisher creates a ContainerPublisher. Returns
// ErrMissingCredential when the container registry username or token is
// missing.
func NewContainerPublisher(runner command.Runner, creds domain.Credentials, retagger Retagger, opts ContainerOptions) (*ContainerPublisher, error) {
	if err := creds.RequireContainer(); err != nil {
		return nil, err
	}
	if opts.Repository == "" {
		return nil, errors.Wrap(errors.ErrConfiguration, "container repository is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = constants.DefaultPublishTimeout
	}
	if retagger == nil {
		retagger = NewORASRetagger(creds)
	}
	return &ContainerPublisher{runner: runner, creds: creds, retagger: retagger, opts: opts}, nil
}

// Publish logs in to the registry, builds and pushes {repo}:{tag}, then moves
// the floating latest tag onto the freshly pushed manifest. The remote build
// cache reference is only used when a cache token is configured, so runs
// without cache access still build, just cold.
func (p *ContainerPublisher) Publish(ctx context.Context, tag domain.Tag) error {
	logger := zerolog.Ctx(ctx)

	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	if err := p.login(ctx); err != nil {
		return errors.Wrapf(errors.ErrContainerPublish, "registry login: %v", err)
	}

	versioned := fmt.Sprintf("%s:%s", p.opts.Repository, tag)
	if _, err := p.runner.Run(ctx, command.Spec{
		Name: "docker",
		Args: p.buildArgs(versioned),
		Dir:  p.opts.ContextDir,
	}); err != nil {
		return errors.Wrapf(errors.ErrContainerPublish, "build and push %s: %v", versioned, err)
	}

	manifest, err := p.retagger.Retag(ctx, p.opts.Repository, tag.String(), "latest")
	if err != nil {
		return errors.Wrapf(errors.ErrContainerPublish, "retag latest: %v", err)
	}

	logger.Info().
		Str("image", versioned).
		Str("manifest", manifest.String()).
		Msg("container image published")
	return nil
}

// login authenticates the build tool against the image registry. The token
// travels on stdin, never on the argument list.
func (p *ContainerPublisher) login(ctx context.Context) error {
	_, err := p.runner.Run(ctx, command.Spec{
		Name:  "docker",
		Args:  []string{"login", registryHost(p.opts.Repository), "--username", p.creds.ContainerUsername, "--password-stdin"},
		Stdin: p.creds.ContainerToken,
	})
	return err
}

// buildArgs assembles the buildx invocation for the versioned tag.
func (p *ContainerPublisher) buildArgs(versioned string) []string {
	args := []string{"buildx", "build", "--push", "--tag", versioned}
	if p.opts.Dockerfile != "" {
		args = append(args, "--file", p.opts.Dockerfile)
	}
	if p.opts.CacheRef != "" && p.creds.CacheToken != "" {
		args = append(args,
			"--cache-from", "type=registry,ref="+p.opts.CacheRef,
			"--cache-to", "type=registry,ref="+p.opts.CacheRef+",mode=max",
		)
	}
	return append(args, ".")
}

// orasRetagger implements Retagger against the registry's OCI API directly,
// so the latest tag moves server-side without pulling the image.
type orasRetagger struct {
	creds domain.Credentials
}

// NewORASRetagger creates the default Retagger backed by the registry OCI API.
func NewORASRetagger(creds domain.Credentials) Retagger {
	return &orasRetagger{creds: creds}
}

// Retag copies the manifest referenced by fromTag onto toTag within the same
// repository. Layers already present server-side are not re-transferred.
func (r *orasRetagger) Retag(ctx context.Context, repository, fromTag, toTag string) (digest.Digest, error) {
	repo, err := remote.NewRepository(repository)
	if err != nil {
		return "", errors.Wrapf(err, "repository %s", repository)
	}
	repo.Client = &auth.Client{
		Client: retry.DefaultClient,
		Cache:  auth.NewCache(),
		Credential: auth.StaticCredential(repo.Reference.Registry, auth.Credential{
			Username: r.creds.ContainerUsername,
			Password: r.creds.ContainerToken,
		}),
	}

	desc, err := oras.Copy(ctx, repo, fromTag, repo, toTag, oras.DefaultCopyOptions)
	if err != nil {
		return "", errors.Wrapf(err, "copy %s:%s to %s", repository, fromTag, toTag)
	}
	if desc.MediaType != ocispec.MediaTypeImageManifest && desc.MediaType != ocispec.MediaTypeImageIndex {
		zerolog.Ctx(ctx).Debug().
			Str("mediaType", desc.MediaType).
			Msg("retagged non-image manifest")
	}
	return desc.Digest, nil
}

// registryHost extracts the registry hostname from a repository path.
func registryHost(repository string) string {
	if i := strings.IndexByte(repository, '/'); i >= 0 {
		return repository[:i]
	}
	return repository
}
