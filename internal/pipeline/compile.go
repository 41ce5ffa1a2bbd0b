package pipeline

import (
	"fmt"
	"strings"
)

// Stage names referenced across the pipeline.
const (
	BuilderStage = "builder"
	RuntimeStage = "runtime"
)

// In-container path the requirements manifest is copied to. Only the
// manifest crosses into the builder stage, so dependency installation is
// invalidated by manifest changes alone, not by arbitrary source edits.
const requirementsDest = "/tmp/requirements.txt"

// PATH of the Debian slim base images, used when a step needs the full
// search path spelled out at build time.
const basePath = "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"

// Compiles a definition into the builder and runtime stages.
//
// The returned stages encode the pipeline's operation order exactly:
// builder — toolchain, environment creation, cache binding, manifest copy,
// dependency install; runtime — shared libraries, renderer fetch and
// verify, environment import, source overlay. The compiled pipeline always
// satisfies [Check].
func Compile(cfg *Config) ([]Stage, error) {
	stages := []Stage{builderStage(cfg), runtimeStage(cfg)}
	if err := Check(stages); err != nil {
		return nil, err
	}
	return stages, nil
}

// Builds the transient builder stage.
//
// The toolchain install and environment creation are checkpointed: a
// manifest change re-runs dependency installation without repeating them.
// The stage's artifact is the dependency environment itself.
func builderStage(cfg *Config) Stage {
	env := cfg.Builder.Environment

	return Stage{
		Name:      BuilderStage,
		From:      cfg.Builder.Base,
		Transient: true,
		Artifact:  env,
		CacheDir:  pipCacheDir,
		Steps: []Step{
			{Run: aptInstall(cfg.Builder.Toolchain), Checkpoint: true},
			{Run: "python -m venv " + env, Checkpoint: true},
			// All subsequent installs resolve pip from the environment and
			// write wheels through the bound cache.
			{Env: map[string]string{
				"PATH":          env + "/bin:" + basePath,
				"PIP_CACHE_DIR": pipCacheDir,
			}},
			{Copy: cfg.Builder.Requirements + " " + requirementsDest},
			{Run: "pip install --requirement " + requirementsDest},
		},
	}
}

// Builds the exported runtime stage.
//
// The renderer is fetched and verified before the dependency environment is
// imported, so an unreachable or corrupt artifact aborts the stage without
// ever touching the builder's output. The start command is deliberately
// left unset on the exported image.
func runtimeStage(cfg *Config) Stage {
	env := cfg.Builder.Environment
	r := cfg.Runtime.Renderer

	imageEnv := map[string]string{
		"PYTHONUNBUFFERED":        "1",
		"PYTHONDONTWRITEBYTECODE": "1",
		"PYTHONPATH":              cfg.App.Workdir,
	}
	for k, v := range cfg.Env {
		imageEnv[k] = v
	}

	return Stage{
		Name:        RuntimeStage,
		From:        cfg.Runtime.Base,
		Env:         imageEnv,
		PathPrepend: []string{env + "/bin"},
		Workdir:     cfg.App.Workdir,
		Steps: []Step{
			{Run: aptInstall(cfg.Runtime.Libraries)},
			{Fetch: &Fetch{
				URL:     r.URL,
				Version: r.Version,
				Install: aptInstallLocal("{artifact}"),
				Verify:  r.Verify,
			}},
			{Copy: fmt.Sprintf("%s:%s %s", BuilderStage, env, env)},
			{Copy: cfg.App.Source + " " + cfg.App.Workdir},
		},
	}
}

// Returns the command installing the given packages without recommends,
// dropping the package lists afterwards so they never land in a layer.
func aptInstall(packages []string) string {
	return "apt-get update && apt-get install -y --no-install-recommends " +
		strings.Join(packages, " ") +
		" && rm -rf /var/lib/apt/lists/*"
}

// Returns the command installing a local package archive, resolving its
// shared library dependencies from the package repository.
func aptInstallLocal(path string) string {
	return "apt-get update && apt-get install -y --no-install-recommends " +
		path +
		" && rm -rf /var/lib/apt/lists/*"
}
