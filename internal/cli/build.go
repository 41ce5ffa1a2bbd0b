package cli

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/docmill/bake/internal/build"
	"github.com/docmill/bake/internal/cache"
	"github.com/docmill/bake/internal/fetch"
	"github.com/docmill/bake/internal/manifest"
	"github.com/docmill/bake/internal/paths"
	"github.com/docmill/bake/internal/pipeline"
	"github.com/docmill/bake/internal/registry"
	"github.com/docmill/bake/internal/runtime"
)

// Represents the 'bake build' command.
type BuildCmd struct {
	Context   string `arg:"" optional:"" default:"." help:"Build context directory."`
	File      string `short:"f" default:"bake.yaml" help:"Pipeline definition file, relative to the context." placeholder:"PATH"`
	Output    string `short:"o" default:"dist" help:"Output directory for the image archive." placeholder:"DIR"`
	Platform  string `help:"Target platform (e.g. linux/amd64). Defaults to the host." placeholder:"OS/ARCH"`
	Address   string `default:"/run/containerd/containerd.sock" help:"containerd socket address." placeholder:"PATH"`
	Namespace string `default:"bake" help:"containerd namespace."`
	NoCache   bool   `help:"Ignore cached artifacts and checkpoints."`

	Entrypoint []string `help:"OCI entrypoint for the exported image; repeat per argument. When omitted the start command is left unset." placeholder:"ARG"`
}

// Executes the build command.
//
// Loads and validates the pipeline definition and the dependency manifest,
// compiles the stages, and runs them against containerd. Everything that
// can fail without a daemon (unpinned references, a missing or empty
// manifest) fails before the runtime connection is opened.
func (c *BuildCmd) Run(ctx context.Context) error {
	cfg, err := pipeline.Load(filepath.Join(c.Context, c.File))
	if err != nil {
		return err
	}

	man, err := manifest.Load(filepath.Join(c.Context, cfg.Builder.Requirements))
	if err != nil {
		return err
	}
	slog.Info("dependency manifest",
		"path", cfg.Builder.Requirements,
		"entries", man.Len(),
		"digest", man.Digest(),
	)

	stages, err := pipeline.Compile(cfg)
	if err != nil {
		return err
	}

	store, err := cache.Open(paths.Cache())
	if err != nil {
		return err
	}

	rt, err := runtime.New(c.Address, c.Namespace)
	if err != nil {
		return err
	}
	defer rt.Close()

	result, err := build.Run(ctx, rt, build.Options{
		Stages:     stages,
		Resource:   cfg.Name,
		Output:     c.Output,
		Context:    c.Context,
		Platform:   c.Platform,
		NoCache:    c.NoCache,
		Entrypoint: c.Entrypoint,
		Store:      store,
		Puller:     registry.New(store),
		Fetcher:    fetch.New(store),
	})
	if err != nil {
		return err
	}

	slog.Info("image ready", "path", filepath.Join(result.Output, "image.tar"))
	return nil
}
