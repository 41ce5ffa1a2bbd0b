package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/docmill/bake/internal/cache"
	"github.com/docmill/bake/internal/fetch"
	"github.com/docmill/bake/internal/paths"
	"github.com/docmill/bake/internal/pipeline"
	"github.com/docmill/bake/internal/registry"
	"github.com/docmill/bake/internal/runtime"
)

// Controls pipeline execution.
type Options struct {
	Stages     []pipeline.Stage // Compiled stages to execute, in order.
	Resource   string           // Pipeline name, used as a prefix for container IDs.
	Output     string           // Directory for the exported image.
	Context    string           // Build context, root for resolving copy sources.
	Platform   string           // Target platform (e.g. "linux/amd64"). Defaults to host.
	NoCache    bool             // Disables artifact memoization and checkpoint resume.
	Entrypoint []string         // OCI entrypoint for the output image. Usually empty.
	Store      *cache.Store     // Persistent build cache.
	Puller     *registry.Client // Base image puller.
	Fetcher    *fetch.Client    // Pinned artifact downloader.
}

// Returned after successful pipeline execution.
type Result struct {
	Output string // Directory containing the exported image.
}

// Executes compiled stages against the container runtime.
//
// Stages are built in declaration order. Each stage starts a container from
// its base image (or a cached checkpoint), executes the stage's steps, and
// the final non-transient stage is exported as an OCI image archive to the
// output directory.
func Run(ctx context.Context, rt *runtime.Runtime, opts Options) (*Result, error) {
	if opts.Platform == "" {
		opts.Platform = runtime.DefaultPlatform()
	}

	slog.Info("executing pipeline",
		"resource", opts.Resource,
		"output", opts.Output,
		"stages", len(opts.Stages),
		"platform", opts.Platform,
	)

	if err := os.MkdirAll(opts.Output, paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}

	return newExecutor(rt, opts).build(ctx, opts.Stages)
}
