package cli

import (
	"context"
	stderrors "errors"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/slipway/internal/archive"
	"github.com/mrz1836/slipway/internal/build"
	"github.com/mrz1836/slipway/internal/command"
	"github.com/mrz1836/slipway/internal/config"
	"github.com/mrz1836/slipway/internal/constants"
	"github.com/mrz1836/slipway/internal/domain"
	"github.com/mrz1836/slipway/internal/errors"
	"github.com/mrz1836/slipway/internal/notify"
	"github.com/mrz1836/slipway/internal/pipeline"
	"github.com/mrz1836/slipway/internal/publish"
)

// orchestrator wires the resolved configuration into a stage graph and runs
// it. One orchestrator serves one release run.
type orchestrator struct {
	cfg    *config.Config
	creds  domain.Credentials
	runner command.Runner
	logger zerolog.Logger

	// retagger overrides the default registry-backed retagger. Nil selects
	// the real one.
	retagger publish.Retagger
}

func newOrchestrator(cfg *config.Config, creds domain.Credentials, runner command.Runner, logger zerolog.Logger) *orchestrator {
	return &orchestrator{cfg: cfg, creds: creds, runner: runner, logger: logger}
}

// Execute runs the whole pipeline for tag and reports the outcome. The
// returned summary is non-nil whenever the graph executed, even when the run
// failed; the error then describes the run-level failure.
func (o *orchestrator) Execute(ctx context.Context, tag domain.Tag, entries []domain.MatrixEntry) (*RunSummary, error) {
	run := domain.NewReleaseRun(tag, entries)
	o.logger.Info().
		Str("run_id", run.ID).
		Str("tag", tag.String()).
		Int("targets", len(entries)).
		Msg("starting release run")

	// Release notes travel from the release stage to the notify stage. The
	// scheduler orders those stages, so plain variables are safe here.
	var notes *publish.Notes

	stages := o.buildStages(run)
	stages = append(stages, o.releaseStage(run, &notes))
	if o.cfg.Registry.Enabled {
		stages = append(stages, o.registryStage())
	}
	if o.cfg.Container.Enabled {
		stages = append(stages, o.containerStage(tag))
	}
	if o.cfg.Notifications.Enabled {
		stages = append(stages, o.notifyStage(tag, &notes))
	}

	run.SetStatus(domain.RunRunning)
	scheduler, err := pipeline.NewScheduler(stages, o.cfg.Build.Parallelism, o.logger)
	if err != nil {
		return nil, err
	}

	results, execErr := scheduler.Execute(ctx)
	summary := o.summarize(run, results)
	if execErr != nil {
		return summary, execErr
	}
	return summary, runError(summary.Status, results)
}

// buildStages creates one limited stage per matrix entry. Each stage compiles
// the entry and immediately packages the binary, so a packaging failure blocks
// the release join exactly like a build failure.
func (o *orchestrator) buildStages(run *domain.ReleaseRun) []pipeline.Stage {
	selector := build.NewSelector(o.runner, build.Options{
		NativeCommand: o.cfg.Build.NativeCommand,
		CrossCommand:  o.cfg.Build.CrossCommand,
		NativeTimeout: o.cfg.Build.NativeTimeout,
		CrossTimeout:  o.cfg.Build.CrossTimeout,
		WorkDir:       o.cfg.Project.RepoPath,
		TargetDir:     o.cfg.Build.TargetDir,
	})

	stages := make([]pipeline.Stage, 0, len(run.Entries))
	for _, entry := range run.Entries {
		stages = append(stages, pipeline.Stage{
			Name:    constants.BuildStagePrefix + entry.Target,
			Limited: true,
			Run: func(ctx context.Context) error {
				ctx = o.logger.With().Str("target", entry.Target).Logger().WithContext(ctx)

				result, err := selector.ForEntry(entry).Build(ctx, entry)
				if err != nil {
					run.RecordFailure(entry.Target, err)
					return err
				}

				packager := archive.NewPackager(o.checksumComputer(ctx), o.cfg.Package.OutputDir)
				artifact, err := packager.Package(ctx, entry, run.Tag, result)
				if err != nil {
					run.RecordFailure(entry.Target, err)
					return err
				}
				run.RecordArtifact(*artifact)
				return nil
			},
		})
	}
	return stages
}

// releaseStage is the join barrier: it needs every build stage and uploads
// all artifacts to the tagged release.
func (o *orchestrator) releaseStage(run *domain.ReleaseRun, notes **publish.Notes) pipeline.Stage {
	needs := make([]string, 0, len(run.Entries))
	for _, entry := range run.Entries {
		needs = append(needs, constants.BuildStagePrefix+entry.Target)
	}

	return pipeline.Stage{
		Name:  constants.StageRelease,
		Needs: needs,
		Run: func(ctx context.Context) error {
			ctx = o.logger.WithContext(ctx)
			if !run.AllEntriesSucceeded() {
				return errors.Wrap(errors.ErrPublishFailed, "release join requires an artifact per matrix entry")
			}

			localNotes := ""
			if o.cfg.Release.LocalNotes || o.cfg.Notifications.Enabled {
				generated, err := publish.NewNotesGenerator(o.repoPath()).Generate(ctx, run.Tag)
				if err != nil {
					// Notes are an enrichment; the host can still generate
					// its own and notifications degrade to nothing.
					o.logger.Warn().Err(err).Msg("release notes generation failed")
				} else {
					*notes = generated
					if o.cfg.Release.LocalNotes {
						localNotes = generated.Markdown
					}
				}
			}

			publisher, err := publish.NewReleasePublisher(o.runner, o.creds, o.cfg.Release.Timeout)
			if err != nil {
				return err
			}
			_, err = publisher.Publish(ctx, run, localNotes)
			return err
		},
	}
}

func (o *orchestrator) registryStage() pipeline.Stage {
	return pipeline.Stage{
		Name:  constants.StageRegistry,
		Needs: []string{constants.StageRelease},
		Run: func(ctx context.Context) error {
			publisher, err := publish.NewRegistryPublisher(
				o.runner, o.creds, o.cfg.Registry.Tool, o.repoPath(), o.cfg.Registry.Timeout)
			if err != nil {
				return err
			}
			return publisher.Publish(o.logger.WithContext(ctx))
		},
	}
}

// containerStage has no predecessors: the container branch is causally
// independent of the matrix and runs concurrently with it.
func (o *orchestrator) containerStage(tag domain.Tag) pipeline.Stage {
	return pipeline.Stage{
		Name: constants.StageContainer,
		Run: func(ctx context.Context) error {
			publisher, err := publish.NewContainerPublisher(o.runner, o.creds, o.retagger, publish.ContainerOptions{
				Repository: o.cfg.Container.Repository,
				ContextDir: o.cfg.Container.ContextDir,
				Dockerfile: o.cfg.Container.Dockerfile,
				CacheRef:   o.cfg.Container.CacheRef,
				Timeout:    o.cfg.Container.Timeout,
			})
			if err != nil {
				return err
			}
			return publisher.Publish(o.logger.WithContext(ctx), tag)
		},
	}
}

// notifyStage gates on the registry publish when that branch is enabled,
// otherwise directly on the release. It is best-effort: its failure is
// recorded but never sinks the run.
func (o *orchestrator) notifyStage(tag domain.Tag, notes **publish.Notes) pipeline.Stage {
	gate := constants.StageRelease
	if o.cfg.Registry.Enabled {
		gate = constants.StageRegistry
	}

	return pipeline.Stage{
		Name:       constants.StageNotify,
		Needs:      []string{gate},
		BestEffort: true,
		Run: func(ctx context.Context) error {
			if *notes == nil || len((*notes).References) == 0 {
				return nil
			}
			notifier, err := notify.NewNotifier(o.runner, o.creds, o.cfg.Notifications.Timeout)
			if err != nil {
				return err
			}
			return notifier.Announce(o.logger.WithContext(ctx), tag, (*notes).References)
		},
	}
}

// checksumComputer selects the digest backend declared by the config.
func (o *orchestrator) checksumComputer(ctx context.Context) archive.ChecksumComputer {
	switch o.cfg.Package.ChecksumTool {
	case "sha256sum":
		return archive.NewSha256sumComputer(o.runner)
	case "shasum":
		return archive.NewShasumComputer(o.runner)
	case "native":
		return archive.NativeComputer{}
	default:
		return archive.DetectComputer(ctx, o.runner)
	}
}

func (o *orchestrator) repoPath() string {
	if o.cfg.Project.RepoPath != "" {
		return o.cfg.Project.RepoPath
	}
	return "."
}

// summarize folds the terminal stage results into the run summary.
func (o *orchestrator) summarize(run *domain.ReleaseRun, results map[string]pipeline.Result) *RunSummary {
	summary := &RunSummary{
		RunID:    run.ID,
		Tag:      run.Tag.String(),
		Failures: map[string]string{},
	}

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		res := results[name]
		st := StageSummary{
			Name:     name,
			Status:   string(res.Status),
			Duration: res.Duration.Round(time.Millisecond).String(),
		}
		if res.Err != nil {
			st.Error = res.Err.Error()
		}
		summary.Stages = append(summary.Stages, st)
	}

	for _, artifact := range run.Artifacts() {
		summary.Artifacts = append(summary.Artifacts, ArtifactSummary{
			Target:  artifact.Target,
			Archive: artifact.ArchivePath,
			SHA256:  artifact.Digest,
		})
	}
	for target, err := range run.Failures() {
		summary.Failures[target] = err.Error()
	}

	summary.Status = deriveStatus(results)
	run.SetStatus(summary.Status)
	return summary
}

// deriveStatus maps terminal stage results to the run status. A partial
// release is distinguished from an outright failure so operators can tell a
// half-uploaded release page from no release at all. Partial is reported only
// when the incomplete upload is the sole problem: a failure in any other
// branch outranks it, and the per-stage table still shows the partial upload.
func deriveStatus(results map[string]pipeline.Result) domain.RunStatus {
	partial := false
	if release, ok := results[constants.StageRelease]; ok && release.Err != nil {
		partial = stderrors.Is(release.Err, errors.ErrReleaseIncomplete)
	}
	for name, res := range results {
		if name == constants.StageNotify {
			// Best-effort: recorded, never run-fatal.
			continue
		}
		if partial {
			// Stages skipped downstream of the partial release do not flip
			// the run to failed; an independent failure does.
			if name != constants.StageRelease && res.Status == pipeline.StatusFailed {
				return domain.RunFailed
			}
			continue
		}
		if res.Status != pipeline.StatusSucceeded {
			return domain.RunFailed
		}
	}
	if partial {
		return domain.RunPartial
	}
	return domain.RunComplete
}

// runError converts a non-complete run status into the command error.
func runError(status domain.RunStatus, results map[string]pipeline.Result) error {
	switch status {
	case domain.RunComplete:
		return nil
	case domain.RunPartial:
		return results[constants.StageRelease].Err
	default:
		var partialErr error
		for _, name := range []string{constants.StageRelease, constants.StageRegistry, constants.StageContainer} {
			res, ok := results[name]
			if !ok || res.Status != pipeline.StatusFailed {
				continue
			}
			// A partial upload was outranked by another failure; surface
			// that failure and leave the partial visible in the stage table.
			if name == constants.StageRelease && stderrors.Is(res.Err, errors.ErrReleaseIncomplete) {
				partialErr = res.Err
				continue
			}
			return res.Err
		}
		if partialErr != nil {
			return partialErr
		}
		return errors.Wrap(errors.ErrBuildFailed, "one or more matrix entries failed")
	}
}
