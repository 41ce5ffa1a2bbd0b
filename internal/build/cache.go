package build

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/docmill/bake/internal/pipeline"
	"github.com/docmill/bake/internal/runtime"
	"github.com/opencontainers/go-digest"
)

// Seeds a stage's cache directory from the persistent store.
//
// A previous build's harvest is streamed into the container before the
// stage's steps run, so package manager downloads survive rebuilds. A
// store without prior contents is a no-op.
func (e *executor) seedCacheDir(ctx context.Context, ctr *runtime.Container, stage pipeline.Stage) error {
	name := cacheDirName(stage)
	if !e.store.HasDir(name) {
		return nil
	}

	slog.Debug("seeding cache directory", "stage", stage.Name, "dir", stage.CacheDir)

	parent := filepath.Dir(stage.CacheDir)
	if err := ctr.MkdirAll(ctx, parent); err != nil {
		return err
	}

	pr, pw := io.Pipe()

	go func() {
		tw := tar.NewWriter(pw)
		err := writeDirToTar(tw, e.store.DirPath(name), filepath.Base(stage.CacheDir))
		tw.Close()
		pw.CloseWithError(err)
	}()

	if err := ctr.CopyTo(ctx, pr, parent); err != nil {
		return fmt.Errorf("%w: %w", ErrCopy, err)
	}
	return nil
}

// Harvests a stage's cache directory back into the persistent store.
//
// Harvesting is best-effort. A failure leaves the previous store contents
// in place and the build continues: a failed archive closes the pipe with
// its error so the import aborts before the swap, and the store itself
// rejects an empty stream.
func (e *executor) harvestCacheDir(ctx context.Context, ctr *runtime.Container, stage pipeline.Stage) {
	name := cacheDirName(stage)

	pr, pw := io.Pipe()

	errc := make(chan error, 1)
	go func() {
		err := ctr.CopyFrom(ctx, pw, stage.CacheDir)
		pw.CloseWithError(err)
		errc <- err
	}()

	importErr := e.store.ImportDir(name, pr)
	io.Copy(io.Discard, pr)
	copyErr := <-errc

	if importErr != nil || copyErr != nil {
		slog.Warn("cache directory harvest failed",
			"stage", stage.Name,
			"dir", stage.CacheDir,
			"import", importErr,
			"copy", copyErr,
		)
		return
	}

	slog.Debug("harvested cache directory", "stage", stage.Name, "dir", stage.CacheDir)
}

// Harvests a stage's declared artifact into the persistent store.
//
// The archive serves later builds whose chain digest matches, letting
// them skip the stage entirely.
func (e *executor) harvestArtifact(ctx context.Context, ctr *runtime.Container, artifact string, key digest.Digest, src *stageSource) error {
	tmp, err := e.store.TempFile("artifact-*.tar")
	if err != nil {
		return err
	}

	if err := ctr.CopyFrom(ctx, tmp, artifact); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %w", ErrCopy, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}

	blob, err := e.store.AdoptBlob(key, tmp.Name())
	if err != nil {
		os.Remove(tmp.Name())
		return err
	}

	src.blob = blob
	slog.Debug("harvested stage artifact", "artifact", artifact, "key", key)
	return nil
}

// Exports the container's current state as a checkpoint archive.
//
// The container keeps running; the snapshot diff is taken as-is. Resuming
// from the archive replays the filesystem up to and including the
// checkpointed step.
func (e *executor) exportCheckpoint(ctx context.Context, ctr *runtime.Container, key digest.Digest) error {
	tmp, err := e.store.TempFile("checkpoint-*.tar")
	if err != nil {
		return err
	}
	name := tmp.Name()
	tmp.Close()

	if err := ctr.Export(ctx, name, runtime.ImageConfig{}); err != nil {
		os.Remove(name)
		return fmt.Errorf("%w: %w", runtime.ErrRuntime, err)
	}

	if _, err := e.store.AdoptBlob(checkpointKey(key), name); err != nil {
		os.Remove(name)
		return err
	}

	slog.Debug("exported checkpoint", "key", key)
	return nil
}

// Returns the store directory name for a stage's cache directory.
//
// Combines the stage name with a slug of the container path so two stages
// caching the same path do not collide (e.g. "builder-root-.cache-pip").
func cacheDirName(stage pipeline.Stage) string {
	slug := strings.Trim(strings.ReplaceAll(stage.CacheDir, "/", "-"), "-")
	return stage.Name + "-" + slug
}
