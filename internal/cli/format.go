package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/slipway/internal/domain"
	"github.com/mrz1836/slipway/internal/errors"
)

// RunSummary is the user-facing report of one release run.
type RunSummary struct {
	RunID     string            `json:"run_id" yaml:"run_id"`
	Tag       string            `json:"tag" yaml:"tag"`
	Status    domain.RunStatus  `json:"status" yaml:"status"`
	Stages    []StageSummary    `json:"stages" yaml:"stages"`
	Artifacts []ArtifactSummary `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
	Failures  map[string]string `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// StageSummary is the terminal record of one stage in the report.
type StageSummary struct {
	Name     string `json:"name" yaml:"name"`
	Status   string `json:"status" yaml:"status"`
	Duration string `json:"duration,omitempty" yaml:"duration,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ArtifactSummary describes one packaged artifact in the report.
type ArtifactSummary struct {
	Target  string `json:"target" yaml:"target"`
	Archive string `json:"archive" yaml:"archive"`
	SHA256  string `json:"sha256" yaml:"sha256"`
}

// renderText writes the human-readable summary.
func (s *RunSummary) renderText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "release %s: %s (run %s)\n", s.Tag, s.Status, s.RunID); err != nil {
		return err
	}
	for _, st := range s.Stages {
		line := fmt.Sprintf("  %-40s %s", st.Name, st.Status)
		if st.Duration != "" && st.Duration != "0s" {
			line += " (" + st.Duration + ")"
		}
		if st.Error != "" {
			line += "\n      " + st.Error
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if len(s.Artifacts) > 0 {
		if _, err := fmt.Fprintln(w, "artifacts:"); err != nil {
			return err
		}
		for _, a := range s.Artifacts {
			if _, err := fmt.Fprintf(w, "  %s  %s\n", a.SHA256, a.Archive); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteOutput renders v to w in the requested format. Text rendering is
// delegated to the value's renderText method when it has one.
func WriteOutput(w io.Writer, format string, v any) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case OutputYAML:
		enc := yaml.NewEncoder(w)
		defer func() { _ = enc.Close() }()
		return enc.Encode(v)
	case OutputText:
		if t, ok := v.(interface{ renderText(io.Writer) error }); ok {
			return t.renderText(w)
		}
		_, err := fmt.Fprintf(w, "%v\n", v)
		return err
	default:
		return errors.Wrapf(errors.ErrInvalidOutputFormat, "%q", format)
	}
}
