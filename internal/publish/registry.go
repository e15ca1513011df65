package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/slipway/internal/command"
	"github.com/mrz1836/slipway/internal/constants"
	"github.com/mrz1836/slipway/internal/domain"
	"github.com/mrz1836/slipway/internal/errors"
)

// RegistryPublisher publishes the source tree's package manifest to the
// language package registry.
//
// Registry publishes are not retried: the registry's own duplicate-version
// rejection is the concurrency safety mechanism, and a failure here is
// terminal for the run until an operator re-invokes.
type RegistryPublisher struct {
	runner  command.Runner
	creds   domain.Credentials
	tool    string
	workDir string
	timeout time.Duration
}

// NewRegistryPublisher creates a RegistryPublisher running tool (default
// "cargo") in workDir. Returns ErrMissingCredential when no registry token is
// available.
func NewRegistryPublisher(runner command.Runner, creds domain.Credentials, tool, workDir string, timeout time.Duration) (*RegistryPublisher, error) {
	if err := creds.RequireRegistry(); err != nil {
		return nil, err
	}
	if tool == "" {
		tool = "cargo"
	}
	if timeout <= 0 {
		timeout = constants.DefaultPublishTimeout
	}
	return &RegistryPublisher{runner: runner, creds: creds, tool: tool, workDir: workDir, timeout: timeout}, nil
}

// Publish runs the registry publish with the token in the child environment.
func (p *RegistryPublisher) Publish(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	result, err := p.runner.Run(ctx, command.Spec{
		Name: p.tool,
		Args: []string{"publish", "--locked"},
		Dir:  p.workDir,
		Env:  []string{fmt.Sprintf("%s=%s", constants.EnvRegistryToken, p.creds.RegistryToken)},
	})
	if err != nil {
		return errors.Wrapf(errors.ErrRegistryPublish, "%v", err)
	}

	logger.Info().
		Dur("duration", result.Duration).
		Msg("package registry publish succeeded")
	return nil
}
