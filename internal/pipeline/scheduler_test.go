package pipeline_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/slipway/internal/errors"
	"github.com/mrz1836/slipway/internal/pipeline"
)

// recorder counts invocations per stage so tests can assert which stages ran.
type recorder struct {
	mu    sync.Mutex
	calls map[string]int
}

func newRecorder() *recorder {
	return &recorder{calls: make(map[string]int)}
}

func (r *recorder) stage(name string, needs []string, opts ...func(*pipeline.Stage)) pipeline.Stage {
	st := pipeline.Stage{
		Name:  name,
		Needs: needs,
		Run: func(_ context.Context) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.calls[name]++
			return nil
		},
	}
	for _, opt := range opts {
		opt(&st)
	}
	return st
}

func (r *recorder) failing(name string, needs []string, err error) pipeline.Stage {
	return pipeline.Stage{
		Name:  name,
		Needs: needs,
		Run: func(_ context.Context) error {
			r.mu.Lock()
			r.calls[name]++
			r.mu.Unlock()
			return err
		},
	}
}

func (r *recorder) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[name]
}

func bestEffort(st *pipeline.Stage) { st.BestEffort = true }
func limited(st *pipeline.Stage)    { st.Limited = true }

func TestNewSchedulerValidation(t *testing.T) {
	t.Parallel()

	logger := zerolog.Nop()
	noop := func(_ context.Context) error { return nil }

	t.Run("unknown dependency", func(t *testing.T) {
		t.Parallel()
		_, err := pipeline.NewScheduler([]pipeline.Stage{
			{Name: "release", Needs: []string{"build:missing"}, Run: noop},
		}, 4, logger)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrUnknownStage)
	})

	t.Run("dependency cycle", func(t *testing.T) {
		t.Parallel()
		_, err := pipeline.NewScheduler([]pipeline.Stage{
			{Name: "a", Needs: []string{"b"}, Run: noop},
			{Name: "b", Needs: []string{"c"}, Run: noop},
			{Name: "c", Needs: []string{"a"}, Run: noop},
		}, 4, logger)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrStageCycle)
	})

	t.Run("duplicate stage name", func(t *testing.T) {
		t.Parallel()
		_, err := pipeline.NewScheduler([]pipeline.Stage{
			{Name: "release", Run: noop},
			{Name: "release", Run: noop},
		}, 4, logger)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrConfiguration)
	})
}

func TestExecuteHappyPath(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	builds := make([]string, 0, 4)
	stages := make([]pipeline.Stage, 0, 8)
	for i := 0; i < 4; i++ {
		name := fmt.Sprintf("build:target-%d", i)
		builds = append(builds, name)
		stages = append(stages, rec.stage(name, nil, limited))
	}
	stages = append(stages,
		rec.stage("release", builds),
		rec.stage("registry", []string{"release"}),
		rec.stage("notify", []string{"registry"}, bestEffort),
		rec.stage("container", nil),
	)

	s, err := pipeline.NewScheduler(stages, 2, zerolog.Nop())
	require.NoError(t, err)

	results, err := s.Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 8)

	for name, res := range results {
		assert.Equalf(t, pipeline.StatusSucceeded, res.Status, "stage %s", name)
		assert.NoError(t, res.Err)
		assert.Equal(t, 1, rec.count(name))
	}
}

// A single build failure must keep the release publisher from ever being
// invoked, and the skip must cascade through registry and notify. The
// container branch has no build predecessors and still runs.
func TestExecuteBuildFailureBlocksReleaseJoin(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	builds := make([]string, 0, 10)
	stages := make([]pipeline.Stage, 0, 14)
	for i := 0; i < 10; i++ {
		name := fmt.Sprintf("build:target-%d", i)
		builds = append(builds, name)
		if i == 7 {
			stages = append(stages, rec.failing(name, nil, errors.ErrBuildFailed))
			continue
		}
		stages = append(stages, rec.stage(name, nil, limited))
	}
	stages = append(stages,
		rec.stage("release", builds),
		rec.stage("registry", []string{"release"}),
		rec.stage("notify", []string{"registry"}, bestEffort),
		rec.stage("container", nil),
	)

	s, err := pipeline.NewScheduler(stages, 4, zerolog.Nop())
	require.NoError(t, err)

	results, err := s.Execute(context.Background())
	require.NoError(t, err)

	assert.Zero(t, rec.count("release"), "release must not run with a failed build")
	assert.Zero(t, rec.count("registry"))
	assert.Zero(t, rec.count("notify"))
	assert.Equal(t, 1, rec.count("container"), "container branch is independent of builds")

	assert.Equal(t, pipeline.StatusFailed, results["build:target-7"].Status)
	assert.ErrorIs(t, results["build:target-7"].Err, errors.ErrBuildFailed)

	for _, name := range []string{"release", "registry", "notify"} {
		res := results[name]
		assert.Equalf(t, pipeline.StatusSkipped, res.Status, "stage %s", name)
		assert.ErrorIs(t, res.Err, errors.ErrStageSkipped)
	}
	assert.Equal(t, pipeline.StatusSucceeded, results["container"].Status)

	// The other nine builds all ran to completion despite the failure.
	for i := 0; i < 10; i++ {
		if i == 7 {
			continue
		}
		assert.Equal(t, 1, rec.count(fmt.Sprintf("build:target-%d", i)))
	}
}

func TestExecuteReleaseFailureSkipsRegistry(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	stages := []pipeline.Stage{
		rec.stage("build:only", nil, limited),
		rec.failing("release", []string{"build:only"}, errors.ErrReleaseIncomplete),
		rec.stage("registry", []string{"release"}),
		rec.stage("notify", []string{"registry"}, bestEffort),
	}

	s, err := pipeline.NewScheduler(stages, 4, zerolog.Nop())
	require.NoError(t, err)

	results, err := s.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, rec.count("release"))
	assert.Zero(t, rec.count("registry"), "partial release must not reach the registry")
	assert.Zero(t, rec.count("notify"))

	assert.Equal(t, pipeline.StatusFailed, results["release"].Status)
	assert.ErrorIs(t, results["release"].Err, errors.ErrReleaseIncomplete)
	assert.Equal(t, pipeline.StatusSkipped, results["registry"].Status)
	assert.Equal(t, pipeline.StatusSkipped, results["notify"].Status)
}

// A failed best-effort stage is recorded as failed but does not gate its
// dependents, so notification breakage can never sink a release.
func TestExecuteBestEffortFailureDoesNotCascade(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	stages := []pipeline.Stage{
		rec.failing("notify", nil, errors.ErrNotification),
		rec.stage("after", []string{"notify"}),
	}
	stages[0].BestEffort = true

	s, err := pipeline.NewScheduler(stages, 4, zerolog.Nop())
	require.NoError(t, err)

	results, err := s.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, pipeline.StatusFailed, results["notify"].Status)
	assert.ErrorIs(t, results["notify"].Err, errors.ErrNotification)
	assert.Equal(t, pipeline.StatusSucceeded, results["after"].Status)
	assert.Equal(t, 1, rec.count("after"))
}

func TestExecuteHonorsParallelismLimit(t *testing.T) {
	t.Parallel()

	var running, peak atomic.Int32
	stages := make([]pipeline.Stage, 0, 8)
	for i := 0; i < 8; i++ {
		stages = append(stages, pipeline.Stage{
			Name:    fmt.Sprintf("build:target-%d", i),
			Limited: true,
			Run: func(_ context.Context) error {
				now := running.Add(1)
				for {
					p := peak.Load()
					if now <= p || peak.CompareAndSwap(p, now) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				running.Add(-1)
				return nil
			},
		})
	}

	s, err := pipeline.NewScheduler(stages, 2, zerolog.Nop())
	require.NoError(t, err)

	_, err = s.Execute(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestExecuteCancellationSkipsPendingStages(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	rec := newRecorder()

	gate := make(chan struct{})
	stages := []pipeline.Stage{
		{
			Name: "build:slow",
			Run: func(ctx context.Context) error {
				close(gate)
				<-ctx.Done()
				return ctx.Err()
			},
		},
		rec.stage("release", []string{"build:slow"}),
	}

	go func() {
		<-gate
		cancel()
	}()

	s, err := pipeline.NewScheduler(stages, 4, zerolog.Nop())
	require.NoError(t, err)

	results, err := s.Execute(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, pipeline.StatusFailed, results["build:slow"].Status)
	assert.Equal(t, pipeline.StatusSkipped, results["release"].Status)
	assert.Zero(t, rec.count("release"))
}
