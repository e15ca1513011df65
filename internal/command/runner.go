// Package command provides external command execution for the pipeline.
//
// Build, publish, and notification steps all shell out to existing tools
// (cargo, cross, docker, gh). Commands are executed with an explicit argv,
// never through a shell, and secrets are passed via the environment so they
// never appear in an argument list or a log line.
package command

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	sliperrors "github.com/mrz1836/slipway/internal/errors"
	"github.com/mrz1836/slipway/internal/logging"
)

// Spec describes one external command invocation.
type Spec struct {
	// Name is the executable to run.
	Name string

	// Args is the argument list, not including the executable name.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env holds extra KEY=VALUE pairs appended to the inherited environment.
	// Secrets belong here, never in Args.
	Env []string

	// Stdin is written to the command's standard input when non-empty. Used
	// for tools that read a secret from stdin instead of the environment.
	Stdin string
}

// Result captures the outcome of a single command invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// CombinedOutput returns stdout and stderr joined for failure reporting.
func (r *Result) CombinedOutput() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// Runner defines the interface for executing external commands.
// This allows for testing by injecting mock implementations.
type Runner interface {
	// Run executes the command and returns its captured output. A non-zero
	// exit code yields a Result with ExitCode set and an error wrapping
	// ErrCommandFailed; a deadline hit yields ErrCommandTimeout.
	Run(ctx context.Context, spec Spec) (*Result, error)
}

// ExecRunner implements Runner using os/exec.
type ExecRunner struct{}

// Run executes the command described by spec.
func (r *ExecRunner) Run(ctx context.Context, spec Spec) (*Result, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().
		Str("command", spec.Name).
		Str("args", logging.FilterSensitiveValue(strings.Join(spec.Args, " "))).
		Str("dir", spec.Dir).
		Msg("running command")

	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...) //#nosec G204 -- argv comes from pipeline configuration, same trust model as a Makefile
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	if spec.Stdin != "" {
		cmd.Stdin = strings.NewReader(spec.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := &Result{
		Stdout:   strings.TrimRight(stdout.String(), "\n"),
		Stderr:   strings.TrimRight(stderr.String(), "\n"),
		Duration: time.Since(start),
	}

	if err == nil {
		return result, nil
	}

	// Deadline and cancellation take precedence over the exit status the
	// killed process happens to report.
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			result.ExitCode = -1
			return result, sliperrors.Wrapf(sliperrors.ErrCommandTimeout, "%s", spec.Name)
		}
		return result, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
	} else {
		result.ExitCode = -1
	}

	if result.Stderr != "" {
		return result, sliperrors.Wrapf(sliperrors.ErrCommandFailed,
			"%s: %s", spec.Name, logging.FilterSensitiveValue(firstLine(result.Stderr)))
	}
	return result, sliperrors.Wrapf(sliperrors.ErrCommandFailed, "%s", spec.Name)
}

// firstLine trims output to its first line for compact error messages.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// Ensure ExecRunner implements Runner.
var _ Runner = (*ExecRunner)(nil)
