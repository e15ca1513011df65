// Package testutil provides testing utilities for slipway.
//
// This package contains a scriptable command runner and mock errors used
// across test files. It should only be imported by test files (*_test.go).
package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/mrz1836/slipway/internal/command"
)

// Response scripts the outcome of one matched command invocation.
type Response struct {
	Result *command.Result
	Err    error
}

// MockRunner implements command.Runner with scripted responses keyed by a
// prefix of "name args...". Unmatched invocations succeed with empty output,
// so tests only script the calls they care about.
//
// MockRunner is safe for concurrent use by parallel pipeline stages.
type MockRunner struct {
	mu        sync.Mutex
	responses map[string]Response
	calls     []command.Spec
}

// NewMockRunner creates an empty MockRunner.
func NewMockRunner() *MockRunner {
	return &MockRunner{responses: make(map[string]Response)}
}

// Respond scripts a response for any invocation whose "name args..." string
// begins with prefix.
func (m *MockRunner) Respond(prefix string, res Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prefix] = res
}

// Fail is shorthand for scripting a failed invocation.
func (m *MockRunner) Fail(prefix string, err error) {
	m.Respond(prefix, Response{Result: &command.Result{ExitCode: 1}, Err: err})
}

// Run implements command.Runner.
func (m *MockRunner) Run(_ context.Context, spec command.Spec) (*command.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, spec)

	line := spec.Name
	if len(spec.Args) > 0 {
		line += " " + strings.Join(spec.Args, " ")
	}
	// Longest matching prefix wins so overlapping scripts stay deterministic.
	var best string
	found := false
	for prefix := range m.responses {
		if strings.HasPrefix(line, prefix) && (!found || len(prefix) > len(best)) {
			best = prefix
			found = true
		}
	}
	if found {
		res := m.responses[best]
		result := res.Result
		if result == nil {
			result = &command.Result{}
		}
		return result, res.Err
	}
	return &command.Result{}, nil
}

// Calls returns a copy of every recorded invocation in order.
func (m *MockRunner) Calls() []command.Spec {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]command.Spec, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallLines renders every recorded invocation as "name args..." strings.
func (m *MockRunner) CallLines() []string {
	calls := m.Calls()
	lines := make([]string, 0, len(calls))
	for _, c := range calls {
		line := c.Name
		if len(c.Args) > 0 {
			line += " " + strings.Join(c.Args, " ")
		}
		lines = append(lines, line)
	}
	return lines
}

// CountPrefix returns how many recorded invocations begin with prefix.
func (m *MockRunner) CountPrefix(prefix string) int {
	n := 0
	for _, line := range m.CallLines() {
		if strings.HasPrefix(line, prefix) {
			n++
		}
	}
	return n
}

// Ensure MockRunner implements command.Runner.
var _ command.Runner = (*MockRunner)(nil)
