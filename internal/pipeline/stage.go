// Package pipeline executes the release run as a directed acyclic graph of
// named stages with declared predecessors.
//
// A stage runs only when every predecessor reached terminal success; if any
// predecessor failed or was skipped, the stage is skipped, cascading down the
// graph. This makes the release join an explicit barrier rather than an
// annotation side effect: the release stage declares every build stage as a
// predecessor, the registry stage declares the release stage, and so on.
package pipeline

import (
	"context"
	"time"
)

// Status is the lifecycle state of one stage.
type Status string

const (
	// StatusPending means the stage has not been dispatched.
	StatusPending Status = "pending"

	// StatusRunning means the stage is executing.
	StatusRunning Status = "running"

	// StatusSucceeded means the stage completed without error.
	StatusSucceeded Status = "succeeded"

	// StatusFailed means the stage returned an error.
	StatusFailed Status = "failed"

	// StatusSkipped means the stage never ran because a predecessor finished
	// in a non-success state or the run was canceled first.
	StatusSkipped Status = "skipped"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusSkipped
}

// Stage is one node in the pipeline graph.
type Stage struct {
	// Name uniquely identifies the stage.
	Name string

	// Needs lists the names of predecessor stages. The stage runs only when
	// all of them succeeded.
	Needs []string

	// Limited marks the stage as subject to the scheduler's concurrency
	// limit. Build stages are limited; publisher stages are not.
	Limited bool

	// BestEffort marks a stage whose failure is recorded but downgraded to
	// success for gating purposes, so dependents still run and the run's
	// outcome is unaffected. Used by the notification stage.
	BestEffort bool

	// Run executes the stage's work.
	Run func(ctx context.Context) error
}

// Result is the terminal record of one stage.
type Result struct {
	// Name is the stage name.
	Name string

	// Status is the terminal status.
	Status Status

	// Err is the stage error for failed stages, or the gating explanation
	// for skipped stages.
	Err error

	// Duration is the wall-clock execution time. Zero for skipped stages.
	Duration time.Duration
}
