package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mrz1836/slipway/internal/command"
	"github.com/mrz1836/slipway/internal/config"
	"github.com/mrz1836/slipway/internal/domain"
	"github.com/mrz1836/slipway/internal/matrix"
)

// AddRunCommand registers the run command on the root command.
func AddRunCommand(root *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "run <tag>",
		Short: "Execute the release pipeline for a tag",
		Long: `Run builds every declared target in parallel, packages each binary into a
checksummed archive, uploads all artifacts to the tagged release, and fans out
to the enabled publish branches.

The tag may be given bare (v1.2.3) or as a full ref (refs/tags/v1.2.3).
Tokens are read from the environment: GH_TOKEN (or GITHUB_TOKEN),
CARGO_REGISTRY_TOKEN, CONTAINER_REGISTRY_USER, CONTAINER_REGISTRY_TOKEN, and
BUILD_CACHE_TOKEN. They are never logged and never appear on a command line.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()
			ctx := logger.WithContext(cmd.Context())

			tag, err := domain.ParseTag(args[0])
			if err != nil {
				return err
			}

			cfg, err := loadConfig(ctx, flags)
			if err != nil {
				return err
			}
			entries, err := matrix.Resolve(cfg.Matrix)
			if err != nil {
				return err
			}

			orch := newOrchestrator(cfg, CredentialsFromEnv(), &command.ExecRunner{}, logger)
			summary, runErr := orch.Execute(ctx, tag, entries)
			if summary != nil {
				if err := WriteOutput(cmd.OutOrStdout(), flags.Output, summary); err != nil {
					return err
				}
			}
			return runErr
		},
	}

	root.AddCommand(cmd)
}

// loadConfig loads the pipeline configuration, honoring an explicit --config
// path when given.
func loadConfig(ctx context.Context, flags *GlobalFlags) (*config.Config, error) {
	if flags.ConfigPath != "" {
		return config.LoadFromPaths(ctx, flags.ConfigPath, "")
	}
	return config.Load(ctx)
}
