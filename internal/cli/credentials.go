package cli

import (
	"os"

	"github.com/mrz1836/slipway/internal/constants"
	"github.com/mrz1836/slipway/internal/domain"
)

// CredentialsFromEnv reads publisher tokens from the environment once, at the
// CLI boundary. Publishers never look at the environment themselves; they
// receive this object at construction time.
func CredentialsFromEnv() domain.Credentials {
	release := os.Getenv(constants.EnvReleaseToken)
	if release == "" {
		release = os.Getenv(constants.EnvReleaseTokenFallback)
	}
	return domain.Credentials{
		ReleaseToken:      release,
		RegistryToken:     os.Getenv(constants.EnvRegistryToken),
		ContainerUsername: os.Getenv(constants.EnvContainerUser),
		ContainerToken:    os.Getenv(constants.EnvContainerToken),
		CacheToken:        os.Getenv(constants.EnvCacheToken),
	}
}
