package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/slipway/internal/command"
	"github.com/mrz1836/slipway/internal/config"
	"github.com/mrz1836/slipway/internal/errors"
	"github.com/mrz1836/slipway/internal/matrix"
)

// ValidationReport is the result of checking the config and the host tooling.
type ValidationReport struct {
	ConfigValid bool        `json:"config_valid" yaml:"config_valid"`
	Targets     int         `json:"targets" yaml:"targets"`
	Tools       []ToolCheck `json:"tools" yaml:"tools"`
}

// ToolCheck is the probe result for one required external tool.
type ToolCheck struct {
	Name      string `json:"name" yaml:"name"`
	Available bool   `json:"available" yaml:"available"`
}

// renderText writes the human-readable validation report.
func (r *ValidationReport) renderText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "config: ok (%d targets)\n", r.Targets); err != nil {
		return err
	}
	for _, tool := range r.Tools {
		state := "ok"
		if !tool.Available {
			state = "MISSING"
		}
		if _, err := fmt.Fprintf(w, "  %-12s %s\n", tool.Name, state); err != nil {
			return err
		}
	}
	return nil
}

// AddValidateCommand registers the validate command on the root command.
func AddValidateCommand(root *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the pipeline config and host tooling",
		Long: `Validate loads the configuration, resolves the target matrix, and probes the
host for every external tool a run would invoke. It does not build or publish
anything.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := GetLogger()
			ctx := logger.WithContext(cmd.Context())

			cfg, err := loadConfig(ctx, flags)
			if err != nil {
				return err
			}
			entries, err := matrix.Resolve(cfg.Matrix)
			if err != nil {
				return err
			}

			report := &ValidationReport{ConfigValid: true, Targets: len(entries)}
			report.Tools = probeTools(ctx, &command.ExecRunner{}, requiredTools(cfg))

			if err := WriteOutput(cmd.OutOrStdout(), flags.Output, report); err != nil {
				return err
			}
			for _, tool := range report.Tools {
				if !tool.Available {
					return errors.Wrapf(errors.ErrConfiguration, "required tool %q not found", tool.Name)
				}
			}
			return nil
		},
	}

	root.AddCommand(cmd)
}

// requiredTools lists the external executables a run with this config invokes.
func requiredTools(cfg *config.Config) []string {
	tools := map[string]struct{}{"gh": {}}
	for _, entry := range cfg.Matrix {
		if entry.UseCross {
			tools[cfg.Build.CrossCommand] = struct{}{}
		} else {
			tools[cfg.Build.NativeCommand] = struct{}{}
		}
	}
	if cfg.Container.Enabled {
		tools["docker"] = struct{}{}
	}
	if cfg.Registry.Enabled {
		tools[cfg.Registry.Tool] = struct{}{}
	}

	out := make([]string, 0, len(tools))
	for name := range tools {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// probeTools checks tool availability concurrently. A probe failure marks the
// tool missing; it never aborts the other probes.
func probeTools(ctx context.Context, runner command.Runner, tools []string) []ToolCheck {
	checks := make([]ToolCheck, len(tools))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for i, name := range tools {
		g.Go(func() error {
			_, err := runner.Run(ctx, command.Spec{Name: name, Args: []string{"--version"}})
			mu.Lock()
			checks[i] = ToolCheck{Name: name, Available: err == nil}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return checks
}
