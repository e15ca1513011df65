package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/mrz1836/slipway/internal/constants"
	"github.com/mrz1836/slipway/internal/errors"
)

// Scheduler executes a validated stage graph.
//
// Stages with no unfinished predecessors are dispatched concurrently, each in
// its own goroutine; build stages additionally contend on a semaphore so a
// wide matrix does not oversubscribe the host. A failed stage never crashes
// its siblings: the failure is recorded, dependents are skipped, and every
// other branch runs to its own terminal state.
type Scheduler struct {
	stages      map[string]*stageState
	order       []string
	parallelism int64
	logger      zerolog.Logger
}

// stageState tracks one stage through execution.
type stageState struct {
	stage      Stage
	dependents []string
	pending    int  // predecessors not yet terminal
	blocked    bool // some predecessor finished non-success
	status     Status
	err        error
	duration   time.Duration
}

// NewScheduler validates the graph and creates a scheduler for it.
// Returns ErrUnknownStage for a dependency on an undeclared stage and
// ErrStageCycle if the declared dependencies are circular.
func NewScheduler(stages []Stage, parallelism int, logger zerolog.Logger) (*Scheduler, error) {
	if parallelism <= 0 {
		parallelism = constants.DefaultBuildParallelism
	}

	s := &Scheduler{
		stages:      make(map[string]*stageState, len(stages)),
		parallelism: int64(parallelism),
		logger:      logger,
	}
	for _, st := range stages {
		if _, ok := s.stages[st.Name]; ok {
			return nil, errors.Wrapf(errors.ErrConfiguration, "stage %q declared twice", st.Name)
		}
		s.stages[st.Name] = &stageState{stage: st, pending: len(st.Needs), status: StatusPending}
		s.order = append(s.order, st.Name)
	}

	for _, name := range s.order {
		state := s.stages[name]
		for _, need := range state.stage.Needs {
			pred, ok := s.stages[need]
			if !ok {
				return nil, errors.Wrapf(errors.ErrUnknownStage, "stage %q needs %q", name, need)
			}
			pred.dependents = append(pred.dependents, name)
		}
	}

	if err := s.detectCycles(); err != nil {
		return nil, err
	}
	return s, nil
}

// detectCycles runs a depth-first search with the classic three-color marking.
func (s *Scheduler) detectCycles() error {
	const (
		unvisited = iota
		temporary
		permanent
	)
	marks := make(map[string]int, len(s.stages))

	var visit func(name string) error
	visit = func(name string) error {
		switch marks[name] {
		case permanent:
			return nil
		case temporary:
			return errors.Wrapf(errors.ErrStageCycle, "through stage %q", name)
		}
		marks[name] = temporary
		for _, need := range s.stages[name].stage.Needs {
			if err := visit(need); err != nil {
				return err
			}
		}
		marks[name] = permanent
		return nil
	}

	for _, name := range s.order {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

// completion is what a stage goroutine reports back to the dispatch loop.
type completion struct {
	name     string
	err      error
	duration time.Duration
}

// Execute runs the graph to completion and returns the terminal result of
// every stage keyed by name. Execute itself returns an error only when the
// context was canceled; per-stage failures are reported through the results.
func (s *Scheduler) Execute(ctx context.Context) (map[string]Result, error) {
	sem := semaphore.NewWeighted(s.parallelism)
	done := make(chan completion)

	var wg sync.WaitGroup
	remaining := len(s.stages)

	launch := func(st Stage) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if st.Limited {
				if err := sem.Acquire(ctx, 1); err != nil {
					done <- completion{name: st.Name, err: err}
					return
				}
				defer sem.Release(1)
			}
			start := time.Now()
			err := st.Run(ctx)
			done <- completion{name: st.Name, err: err, duration: time.Since(start)}
		}()
	}

	// finish marks a stage terminal and returns the dependents that became
	// ready. Called only from the dispatch loop.
	finish := func(state *stageState) []string {
		remaining--
		success := state.status == StatusSucceeded ||
			(state.stage.BestEffort && state.status == StatusFailed)

		var ready []string
		for _, depName := range state.dependents {
			dep := s.stages[depName]
			if !success {
				dep.blocked = true
			}
			dep.pending--
			if dep.pending == 0 {
				ready = append(ready, depName)
			}
		}
		return ready
	}

	// queue holds stages whose predecessors are all terminal.
	var queue []string
	for _, name := range s.order {
		if s.stages[name].pending == 0 {
			queue = append(queue, name)
		}
	}

	for remaining > 0 {
		// Drain the ready queue before blocking on completions. Skips are
		// resolved synchronously here, so a failure cascades through its
		// whole downstream subgraph without round-tripping the channel.
		for len(queue) > 0 {
			name := queue[0]
			queue = queue[1:]
			state := s.stages[name]

			// A canceled run stops issuing new work; already-running
			// stages finish on their own and published artifacts are
			// never rolled back.
			if state.blocked || ctx.Err() != nil {
				state.status = StatusSkipped
				state.err = skipReason(ctx, state.stage.Name)
				s.logger.Info().
					Str("stage", name).
					AnErr("reason", state.err).
					Msg("stage skipped")
				queue = append(queue, finish(state)...)
				continue
			}

			state.status = StatusRunning
			launch(state.stage)
		}
		if remaining == 0 {
			break
		}

		c := <-done
		state := s.stages[c.name]
		state.duration = c.duration
		if c.err != nil {
			state.err = c.err
			state.status = StatusFailed
			if state.stage.BestEffort {
				// Recorded and logged, deliberately not propagated.
				s.logger.Warn().
					Str("stage", c.name).
					Err(c.err).
					Msg("best-effort stage failed")
			} else {
				s.logger.Error().
					Str("stage", c.name).
					Err(c.err).
					Msg("stage failed")
			}
		} else {
			state.status = StatusSucceeded
			s.logger.Info().
				Str("stage", c.name).
				Dur("duration", c.duration).
				Msg("stage succeeded")
		}
		queue = append(queue, finish(state)...)
	}
	wg.Wait()

	results := make(map[string]Result, len(s.stages))
	for name, state := range s.stages {
		results[name] = Result{
			Name:     name,
			Status:   state.status,
			Err:      state.err,
			Duration: state.duration,
		}
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// skipReason explains why a stage never ran.
func skipReason(ctx context.Context, name string) error {
	if ctx.Err() != nil {
		return errors.Wrapf(errors.ErrStageSkipped, "%s: run canceled", name)
	}
	return errors.Wrapf(errors.ErrStageSkipped, "%s: predecessor did not succeed", name)
}
