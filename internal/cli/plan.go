package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mrz1836/slipway/internal/config"
	"github.com/mrz1836/slipway/internal/constants"
	"github.com/mrz1836/slipway/internal/domain"
	"github.com/mrz1836/slipway/internal/matrix"
)

// Plan is the dry-run report: what a release run for the tag would do,
// without building or publishing anything.
type Plan struct {
	Tag     string       `json:"tag" yaml:"tag"`
	Targets []PlanTarget `json:"targets" yaml:"targets"`
	Stages  []PlanStage  `json:"stages" yaml:"stages"`
}

// PlanTarget describes one matrix entry in the plan.
type PlanTarget struct {
	Target   string `json:"target" yaml:"target"`
	Strategy string `json:"strategy" yaml:"strategy"`
	Archive  string `json:"archive" yaml:"archive"`
	Features string `json:"features,omitempty" yaml:"features,omitempty"`
}

// PlanStage describes one stage and its predecessors in the plan.
type PlanStage struct {
	Name  string   `json:"name" yaml:"name"`
	Needs []string `json:"needs,omitempty" yaml:"needs,omitempty"`
}

// renderText writes the human-readable plan.
func (p *Plan) renderText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "release plan for %s\n", p.Tag); err != nil {
		return err
	}
	for _, t := range p.Targets {
		line := fmt.Sprintf("  %-40s %-6s -> %s.tar.gz", t.Target, t.Strategy, t.Archive)
		if t.Features != "" {
			line += fmt.Sprintf(" [features: %s]", t.Features)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, "stages:"); err != nil {
		return err
	}
	for _, st := range p.Stages {
		line := "  " + st.Name
		if len(st.Needs) > 0 {
			line += fmt.Sprintf("  (after %v)", st.Needs)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// AddPlanCommand registers the plan command on the root command.
func AddPlanCommand(root *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "plan <tag>",
		Short: "Show what a release run for a tag would do",
		Long: `Plan resolves the target matrix and prints the stage graph a run would
execute, including the deterministic artifact names, without building or
publishing anything.`,
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

			return WriteOutput(cmd.OutOrStdout(), flags.Output, buildPlan(cfg, tag, entries))
		},
	}

	root.AddCommand(cmd)
}

// buildPlan renders the stage graph the orchestrator would execute.
func buildPlan(cfg *config.Config, tag domain.Tag, entries []domain.MatrixEntry) *Plan {
	plan := &Plan{Tag: tag.String()}

	releaseNeeds := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := constants.BuildStagePrefix + entry.Target
		releaseNeeds = append(releaseNeeds, name)
		plan.Targets = append(plan.Targets, PlanTarget{
			Target:   entry.Target,
			Strategy: entry.Strategy().String(),
			Archive:  entry.ReleaseName(tag),
			Features: entry.Features,
		})
		plan.Stages = append(plan.Stages, PlanStage{Name: name})
	}

	plan.Stages = append(plan.Stages, PlanStage{Name: constants.StageRelease, Needs: releaseNeeds})
	if cfg.Registry.Enabled {
		plan.Stages = append(plan.Stages, PlanStage{Name: constants.StageRegistry, Needs: []string{constants.StageRelease}})
	}
	if cfg.Container.Enabled {
		plan.Stages = append(plan.Stages, PlanStage{Name: constants.StageContainer})
	}
	if cfg.Notifications.Enabled {
		gate := constants.StageRelease
		if cfg.Registry.Enabled {
			gate = constants.StageRegistry
		}
		plan.Stages = append(plan.Stages, PlanStage{Name: constants.StageNotify, Needs: []string{gate}})
	}
	return plan
}
