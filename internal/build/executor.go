package build

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/docmill/bake/internal/cache"
	"github.com/docmill/bake/internal/fetch"
	"github.com/docmill/bake/internal/pipeline"
	"github.com/docmill/bake/internal/registry"
	"github.com/docmill/bake/internal/runtime"
	"github.com/opencontainers/go-digest"
)

// Name of the exported image archive inside the output directory.
const imageArchive = "image.tar"

// Holds shared state for building all stages of a pipeline.
type executor struct {
	rt         *runtime.Runtime // Container runtime for image and container operations.
	store      *cache.Store     // Persistent build cache.
	puller     *registry.Client // Base image puller.
	fetcher    *fetch.Client    // Pinned artifact downloader.
	resource   string           // Pipeline name, used as a prefix for container IDs.
	output     string           // Output directory for the exported image.
	outputAbs  string           // Absolute output path, excluded from context digests.
	context    string           // Build context, root for resolving copy sources.
	platform   string           // Target platform.
	noCache    bool             // Disables artifact memoization and checkpoint resume.
	entrypoint []string         // OCI entrypoint to set on the output image.

	stages     map[string]*stageSource  // Completed stages by name, for cross-stage copies.
	finals     map[string]digest.Digest // Final chain digests of keyed stages.
	containers []*runtime.Container     // All stage containers, destroyed after the build completes.
}

// The material a completed stage offers to later stages.
//
// A stage that executed has a live container and cross-stage copies read
// from its filesystem. A stage that was skipped through artifact
// memoization only has the cached archive of its declared artifact.
type stageSource struct {
	ctr      *runtime.Container // Live stage container, nil when served from cache.
	artifact string             // Container path the cached archive holds.
	blob     string             // Host path of the cached artifact archive.
}

// Creates a new [executor] from the given options.
func newExecutor(rt *runtime.Runtime, opts Options) *executor {
	outputAbs, err := filepath.Abs(opts.Output)
	if err != nil {
		outputAbs = opts.Output
	}

	return &executor{
		rt:         rt,
		store:      opts.Store,
		puller:     opts.Puller,
		fetcher:    opts.Fetcher,
		resource:   opts.Resource,
		output:     opts.Output,
		outputAbs:  outputAbs,
		context:    opts.Context,
		platform:   opts.Platform,
		noCache:    opts.NoCache,
		entrypoint: opts.Entrypoint,
		stages:     make(map[string]*stageSource),
		finals:     make(map[string]digest.Digest),
	}
}

// Builds the pipeline end-to-end against the container runtime.
//
// Stages are built in declaration order. The final non-transient stage is
// exported as the image archive. All stage containers are destroyed when
// the build completes.
func (e *executor) build(ctx context.Context, stages []pipeline.Stage) (*Result, error) {
	defer e.destroyContainers(ctx)

	for i, stage := range stages {
		if err := e.buildStage(ctx, stage, i); err != nil {
			return nil, fmt.Errorf("%w: stage %s: %w", ErrBuild, stageLabel(stage.Name, i), err)
		}
	}

	return &Result{Output: e.output}, nil
}

// Builds a single stage of the pipeline.
//
// When the stage declares an artifact and the cache holds an archive for
// its final chain digest, the stage is skipped entirely. Otherwise the
// stage starts a container from its base image or from the longest cached
// checkpoint, executes the remaining steps, and harvests its cache
// directory and artifact. Non-transient stages are exported to the output
// directory.
func (e *executor) buildStage(ctx context.Context, stage pipeline.Stage, index int) error {
	label := stageLabel(stage.Name, index)
	slog.Info(fmt.Sprintf("building stage %s", label), "platform", e.platform)

	var keys []digest.Digest
	if !e.noCache && stageNeedsKeys(stage) {
		var err error
		keys, err = e.stageKeys(stage)
		if err != nil {
			return err
		}
		if stage.Name != "" && len(keys) > 0 {
			e.finals[stage.Name] = keys[len(keys)-1]
		}
	}

	if stage.Artifact != "" && len(keys) > 0 {
		key := artifactKey(keys[len(keys)-1], stage.Artifact)
		if blob, ok := e.store.Blob(key); ok {
			slog.Info("stage artifact cached, skipping", "stage", label, "artifact", stage.Artifact)
			e.stages[stage.Name] = &stageSource{artifact: stage.Artifact, blob: blob}
			return nil
		}
	}

	base, skip, err := e.resolveBase(ctx, stage, keys)
	if err != nil {
		return err
	}

	ctr, err := e.rt.StartContainer(ctx, base, e.containerID(stage.Name, index), e.platform)
	if err != nil {
		return fmt.Errorf("%w: %w", runtime.ErrRuntime, err)
	}

	e.containers = append(e.containers, ctr)
	src := &stageSource{ctr: ctr, artifact: stage.Artifact}
	if stage.Name != "" {
		e.stages[stage.Name] = src
	}

	state := newStepState(stage)

	// Modifiers from skipped steps still shape the state for the rest
	// of the stage.
	for i := 0; i < skip; i++ {
		if !isOperation(stage.Steps[i]) {
			state.apply(stage.Steps[i])
		}
	}

	if stage.CacheDir != "" {
		if err := e.seedCacheDir(ctx, ctr, stage); err != nil {
			return err
		}
	}

	for i := skip; i < len(stage.Steps); i++ {
		step := stage.Steps[i]
		if err := e.executeStep(ctx, ctr, step, state); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		if step.Checkpoint && len(keys) > 0 {
			if err := e.exportCheckpoint(ctx, ctr, keys[i]); err != nil {
				return err
			}
		}
	}

	if stage.CacheDir != "" {
		e.harvestCacheDir(ctx, ctr, stage)
	}

	if stage.Artifact != "" && len(keys) > 0 {
		key := artifactKey(keys[len(keys)-1], stage.Artifact)
		if err := e.harvestArtifact(ctx, ctr, stage.Artifact, key, src); err != nil {
			return err
		}
	}

	if !stage.Transient {
		if err := ctr.Stop(ctx); err != nil {
			return fmt.Errorf("%w: %w", runtime.ErrRuntime, err)
		}

		cfg := runtime.ImageConfig{
			Env:         stage.Env,
			PathPrepend: stage.PathPrepend,
			Workdir:     stage.Workdir,
			Entrypoint:  e.entrypoint,
		}
		if err := ctr.Export(ctx, filepath.Join(e.output, imageArchive), cfg); err != nil {
			return fmt.Errorf("%w: %w", runtime.ErrRuntime, err)
		}
	}

	return nil
}

// Resolves the archive a stage's container starts from.
//
// Scans the stage's checkpoints from last to first and resumes from the
// first one with a cached archive, returning the number of leading steps
// already covered. Falls back to pulling the stage's base image.
func (e *executor) resolveBase(ctx context.Context, stage pipeline.Stage, keys []digest.Digest) (string, int, error) {
	if len(keys) > 0 {
		for i := len(stage.Steps) - 1; i >= 0; i-- {
			if !stage.Steps[i].Checkpoint {
				continue
			}
			if blob, ok := e.store.Blob(checkpointKey(keys[i])); ok {
				slog.Info("resuming from checkpoint", "stage", stage.Name, "step", i+1)
				return blob, i + 1, nil
			}
		}
	}

	path, err := e.puller.Pull(ctx, stage.From, e.platform)
	if err != nil {
		return "", 0, err
	}
	return path, 0, nil
}

// Destroys all stage containers.
func (e *executor) destroyContainers(ctx context.Context) {
	for _, ctr := range e.containers {
		ctr.Destroy(ctx)
	}
}

// Returns a unique container ID for a stage, scoped to this pipeline.
func (e *executor) containerID(name string, index int) string {
	if name != "" {
		return fmt.Sprintf("%s-stage-%s", e.resource, name)
	}
	return fmt.Sprintf("%s-stage-%d", e.resource, index+1)
}

// Returns a label for a stage, preferring the name when available and
// falling back to the 1-based index.
func stageLabel(name string, index int) string {
	if name != "" {
		return fmt.Sprintf("%q", name)
	}
	return fmt.Sprintf("%d", index+1)
}
