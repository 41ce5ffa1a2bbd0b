package build

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/docmill/bake/internal/pipeline"
	"github.com/docmill/bake/internal/runtime"
)

// Reports whether a step carries an operation rather than being a
// standalone modifier.
func isOperation(step pipeline.Step) bool {
	return step.Run != "" || step.Copy != "" || step.Fetch != nil
}

// Executes a single step, dispatching to operation execution or state
// mutation depending on the step's fields.
func (e *executor) executeStep(ctx context.Context, ctr *runtime.Container, step pipeline.Step, state *stepState) error {
	if !isOperation(step) {
		state.apply(step)
		return nil
	}
	return e.executeOperation(ctx, ctr, step, state)
}

// Executes a run, copy, or fetch operation with scoped modifier overrides.
//
// Step-level modifiers override the persistent state for this operation
// only. The persistent state is not modified.
func (e *executor) executeOperation(ctx context.Context, ctr *runtime.Container, step pipeline.Step, state *stepState) error {
	resolved := state.resolve(step)

	if resolved.workdir != "" {
		if err := ctr.MkdirAll(ctx, resolved.workdir); err != nil {
			return err
		}
	}

	switch {
	case step.Run != "":
		return e.runCommand(ctx, ctr, step.Run, resolved)

	case step.Copy != "":
		return e.executeCopy(ctx, ctr, step.Copy, resolved.workdir)

	case step.Fetch != nil:
		return e.executeFetch(ctx, ctr, step.Fetch, resolved)
	}

	return nil
}

// Runs a shell command inside the build container, treating a non-zero
// exit code as a failure.
func (e *executor) runCommand(ctx context.Context, ctr *runtime.Container, command string, state *stepState) error {
	slog.Debug("run", "command", command, "shell", state.shell)

	result, err := ctr.Exec(ctx, state.shell, command, state.environ(), state.workdir)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("%w: exit code %d: %s", ErrCommandFailed, result.ExitCode, result.Stderr)
	}
	return nil
}

// Executes a fetch step: download, install, clean up, verify.
//
// The artifact is downloaded on the host (hitting the persistent cache),
// streamed into the container under /tmp, installed with the step's
// install command, and deleted. The verify command must then report the
// pinned version, otherwise the stage fails.
func (e *executor) executeFetch(ctx context.Context, ctr *runtime.Container, f *pipeline.Fetch, state *stepState) error {
	blob, err := e.fetcher.Fetch(ctx, f.URL)
	if err != nil {
		return err
	}

	name := downloadName(f.URL)
	temp := "/tmp/" + name

	slog.Debug("installing fetched artifact", "url", f.URL, "path", temp)

	pr, pw := io.Pipe()

	go func() {
		tw := tar.NewWriter(pw)
		err := writeFileToTar(tw, blob, name)
		tw.Close()
		pw.CloseWithError(err)
	}()

	if err := ctr.CopyTo(ctx, pr, "/tmp"); err != nil {
		return fmt.Errorf("%w: %w", ErrCopy, err)
	}

	install := strings.ReplaceAll(f.Install, "{artifact}", temp)
	if err := e.runCommand(ctx, ctr, install, state); err != nil {
		return err
	}

	if err := ctr.Remove(ctx, temp); err != nil {
		return err
	}

	return e.verifyInstall(ctx, ctr, f, state)
}

// Runs a fetch step's verify command and checks the reported version.
//
// The pinned version must appear as an exact whitespace-separated token in
// the command's output. Substring matches are not good enough; "0.12.6"
// must not satisfy a pin of "0.12.6.1".
func (e *executor) verifyInstall(ctx context.Context, ctr *runtime.Container, f *pipeline.Fetch, state *stepState) error {
	result, err := ctr.Exec(ctx, state.shell, f.Verify, state.environ(), state.workdir)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("%w: %q exited %d: %s", ErrVerify, f.Verify, result.ExitCode, result.Stderr)
	}

	if !hasVersionToken(result.Stdout, f.Version) && !hasVersionToken(result.Stderr, f.Version) {
		return fmt.Errorf("%w: version %q not reported by %q: %s",
			ErrVerify, f.Version, f.Verify, strings.TrimSpace(result.Stdout))
	}

	slog.Debug("verified fetched artifact", "version", f.Version)
	return nil
}

// Reports whether output contains version as a whitespace-separated token.
func hasVersionToken(output, version string) bool {
	for _, token := range strings.Fields(output) {
		if token == version {
			return true
		}
	}
	return false
}

// Derives an in-container file name from a download URL.
func downloadName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "download"
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "download"
	}
	return name
}
