package domain

import (
	"sync"

	"github.com/google/uuid"
)

// RunStatus is the overall status of a release run.
type RunStatus string

const (
	// RunPending means the run has been created but no stage has started.
	RunPending RunStatus = "pending"

	// RunRunning means at least one stage is executing.
	RunRunning RunStatus = "running"

	// RunComplete means every matrix entry produced a successful artifact and
	// every gated publisher succeeded.
	RunComplete RunStatus = "complete"

	// RunPartial means the release publisher uploaded some but not all
	// artifacts; downstream gated stages were skipped.
	RunPartial RunStatus = "partial"

	// RunFailed means at least one matrix entry failed, which blocks the
	// release join entirely, or a gated publisher failed outright.
	RunFailed RunStatus = "failed"
)

// ReleaseRun is one whole pipeline invocation. It owns the per-entry results
// for its lifetime; nothing outlives the run except published artifacts,
// which become external side effects.
//
// ReleaseRun is safe for concurrent use by parallel build jobs.
type ReleaseRun struct {
	// ID uniquely identifies this invocation in logs and reports.
	ID string

	// Tag is the validated trigger tag.
	Tag Tag

	// Entries is the resolved target matrix, in declaration order.
	Entries []MatrixEntry

	mu        sync.Mutex
	artifacts map[string]Artifact
	failures  map[string]error
	status    RunStatus
}

// NewReleaseRun creates a pending run for the given tag and resolved matrix.
func NewReleaseRun(tag Tag, entries []MatrixEntry) *ReleaseRun {
	return &ReleaseRun{
		ID:        uuid.NewString(),
		Tag:       tag,
		Entries:   entries,
		artifacts: make(map[string]Artifact, len(entries)),
		failures:  make(map[string]error, len(entries)),
		status:    RunPending,
	}
}

// RecordArtifact stores the successful artifact for a target.
func (r *ReleaseRun) RecordArtifact(a Artifact) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.artifacts[a.Target] = a
}

// RecordFailure stores the terminal error for a target's build or packaging.
func (r *ReleaseRun) RecordFailure(target string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[target] = err
}

// Artifacts returns the successful artifacts in matrix declaration order.
func (r *ReleaseRun) Artifacts() []Artifact {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Artifact, 0, len(r.artifacts))
	for _, e := range r.Entries {
		if a, ok := r.artifacts[e.Target]; ok {
			out = append(out, a)
		}
	}
	return out
}

// Failures returns the per-target terminal errors keyed by target triple.
func (r *ReleaseRun) Failures() map[string]error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]error, len(r.failures))
	for k, v := range r.failures {
		out[k] = v
	}
	return out
}

// AllEntriesSucceeded reports whether every matrix entry has a successful
// artifact. This is the join condition for the release publisher: a single
// missing or failed entry blocks the entire publish step.
func (r *ReleaseRun) AllEntriesSucceeded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.failures) > 0 {
		return false
	}
	for _, e := range r.Entries {
		if _, ok := r.artifacts[e.Target]; !ok {
			return false
		}
	}
	return true
}

// SetStatus sets the overall run status.
func (r *ReleaseRun) SetStatus(s RunStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = s
}

// Status returns the overall run status.
func (r *ReleaseRun) Status() RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}
