package build

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/docmill/bake/internal/pipeline"
	"github.com/opencontainers/go-digest"
)

// Canonical encoding of a step for cache keying.
//
// The checkpoint flag is excluded so toggling it never invalidates the
// chain. Map keys are sorted by the JSON encoder, making the encoding
// deterministic.
type stepKey struct {
	Run     string            `json:"run,omitempty"`
	Copy    string            `json:"copy,omitempty"`
	Fetch   *pipeline.Fetch   `json:"fetch,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	Workdir string            `json:"workdir,omitempty"`
	Shell   string            `json:"shell,omitempty"`
}

// Reports whether a stage participates in content-addressed caching.
//
// Only stages that declare an artifact or contain a checkpoint need chain
// digests; everything else always re-executes.
func stageNeedsKeys(stage pipeline.Stage) bool {
	if stage.Artifact != "" {
		return true
	}
	for _, step := range stage.Steps {
		if step.Checkpoint {
			return true
		}
	}
	return false
}

// Computes one chain digest per step of a stage.
//
// The chain is seeded from the base image reference, target platform, and
// stage-level environment, then extended with each step's canonical
// encoding and external inputs. A change to any step invalidates every
// digest after it while leaving earlier digests stable, which is what
// lets checkpoint resume skip an unchanged prefix.
func (e *executor) stageKeys(stage pipeline.Stage) ([]digest.Digest, error) {
	env, err := json.Marshal(stage.Env)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuild, err)
	}

	key := digest.FromString(strings.Join([]string{
		"from", stage.From, e.platform, string(env), stage.Workdir,
	}, "\n"))

	keys := make([]digest.Digest, len(stage.Steps))
	for i, step := range stage.Steps {
		enc, err := json.Marshal(stepKey{
			Run:     step.Run,
			Copy:    step.Copy,
			Fetch:   step.Fetch,
			Env:     step.Env,
			Workdir: step.Workdir,
			Shell:   step.Shell,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBuild, err)
		}

		input, err := e.stepInput(step)
		if err != nil {
			return nil, err
		}

		key = digest.FromString("step\n" + key.String() + "\n" + string(enc) + "\n" + input)
		keys[i] = key
	}

	return keys, nil
}

// Digests the external input a step consumes.
//
// Host copy sources are digested by content so an edited file invalidates
// the chain from its copy step onward. Cross-stage copy sources take the
// upstream stage's final chain digest. Steps without external inputs
// contribute nothing.
func (e *executor) stepInput(step pipeline.Step) (string, error) {
	if step.Copy == "" {
		return "", nil
	}

	parts := strings.Fields(step.Copy)
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: invalid copy %q", ErrBuild, step.Copy)
	}
	src := parts[0]

	if stage, _, ok := parseStageCopy(src); ok {
		final, ok := e.finals[stage]
		if !ok {
			return "", fmt.Errorf("%w: stage %q has no chain digest", ErrBuild, stage)
		}
		return final.String(), nil
	}

	if !filepath.IsAbs(src) {
		src = filepath.Join(e.context, src)
	}

	d, err := e.hostDigest(src)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBuild, err)
	}
	return d.String(), nil
}

// Digests a host copy source, file or directory.
func (e *executor) hostDigest(path string) (digest.Digest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return digestFile(path)
	}
	return e.digestDir(path)
}

// Digests a file's content.
func digestFile(path string) (digest.Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return digest.FromReader(f)
}

// Digests a directory tree by relative path and file content.
//
// The output directory is excluded so exported archives never feed back
// into the digest of a context rooted above them.
func (e *executor) digestDir(root string) (digest.Digest, error) {
	digester := digest.SHA256.Digester()
	h := digester.Hash()

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if abs, err := filepath.Abs(path); err == nil && abs == e.outputAbs {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		fd, err := digestFile(path)
		if err != nil {
			return err
		}

		fmt.Fprintf(h, "%s\n%s\n", filepath.ToSlash(rel), fd)
		return nil
	})
	if err != nil {
		return "", err
	}

	return digester.Digest(), nil
}

// Returns the cache key for a stage's harvested artifact archive.
func artifactKey(final digest.Digest, artifact string) digest.Digest {
	return digest.FromString("artifact\n" + final.String() + "\n" + artifact)
}

// Returns the cache key for a checkpoint archive.
func checkpointKey(step digest.Digest) digest.Digest {
	return digest.FromString("checkpoint\n" + step.String())
}
