package domain

import "github.com/mrz1836/slipway/internal/errors"

// Credentials is the explicit parameter object holding the opaque tokens the
// publishers need. It replaces ambient environment lookups inside publisher
// code: the CLI boundary reads the environment once and passes this object to
// each publisher at construction time.
//
// Credentials must never be logged. String and GoString return a redacted
// placeholder so accidental formatting cannot leak a token.
type Credentials struct {
	// ReleaseToken authenticates against the source-control release host.
	ReleaseToken string

	// RegistryToken authenticates the language package registry publish.
	RegistryToken string

	// ContainerUsername is the container registry username.
	ContainerUsername string

	// ContainerToken is the container registry token or password.
	ContainerToken string

	// CacheToken keys the remote build cache for container image builds.
	CacheToken string
}

// String implements fmt.Stringer with a redacted placeholder.
func (Credentials) String() string {
	return "credentials{[REDACTED]}"
}

// GoString implements fmt.GoStringer with a redacted placeholder, covering %#v.
func (Credentials) GoString() string {
	return "domain.Credentials{[REDACTED]}"
}

// RequireRelease returns ErrMissingCredential if no release-host token is set.
func (c Credentials) RequireRelease() error {
	if c.ReleaseToken == "" {
		return errors.Wrap(errors.ErrMissingCredential, "release host token")
	}
	return nil
}

// RequireRegistry returns ErrMissingCredential if no package registry token is set.
func (c Credentials) RequireRegistry() error {
	if c.RegistryToken == "" {
		return errors.Wrap(errors.ErrMissingCredential, "package registry token")
	}
	return nil
}

// RequireContainer returns ErrMissingCredential if the container registry
// username or token is missing.
func (c Credentials) RequireContainer() error {
	if c.ContainerUsername == "" || c.ContainerToken == "" {
		return errors.Wrap(errors.ErrMissingCredential, "container registry username/token")
	}
	return nil
}
