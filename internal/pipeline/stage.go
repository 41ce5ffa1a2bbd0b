package pipeline

// An ordered build context rooted at a base image.
//
// Stages execute in declaration order. A transient stage exists only to
// produce its artifact; it is never exported as an image, and later stages
// reference its output through cross-stage copy steps. The final
// non-transient stage becomes the pipeline's image.
type Stage struct {
	Name        string            // Stage name, referenced by cross-stage copies.
	From        string            // Pinned base image reference.
	Transient   bool              // True when the stage is never exported.
	Artifact    string            // Container path memoized in the build cache when the stage completes.
	CacheDir    string            // Container path seeded from and harvested into the persistent cache.
	Env         map[string]string // Environment applied to steps and, for exported stages, baked into the image config.
	PathPrepend []string          // Directories prepended to the image config's PATH on export.
	Workdir     string            // Working directory for steps and the exported image config.
	Steps       []Step            // Operations applied in order.
}

// A single layer-producing operation or state modifier within a stage.
//
// Exactly one of Run, Copy, or Fetch makes a step an operation; a step with
// none of them is a standalone modifier that persists its Env, Workdir, and
// Shell fields into the stage's step state.
type Step struct {
	Run        string            // Shell command executed inside the stage container.
	Copy       string            // "src dest" host copy or "stage:src dest" cross-stage copy.
	Fetch      *Fetch            // Pinned external binary acquisition.
	Env        map[string]string // Environment overrides.
	Workdir    string            // Working directory override.
	Shell      string            // Shell override for Run steps.
	Checkpoint bool              // True when the stage state after this step is worth caching.
}

// A pinned external binary artifact specification.
//
// The artifact is downloaded outside the stage (and cached), copied into
// the container, installed, and verified. The transient download inside the
// container is deleted after installation. Verification is a hard
// precondition: the verify command's output must contain the pinned version
// as an exact token, otherwise the stage fails and no image is produced.
type Fetch struct {
	URL     string // Fully-qualified, version-pinned download location.
	Version string // Exact version the installed binary must report.
	Install string // Install command; "{artifact}" expands to the in-container download path.
	Verify  string // Command that prints the installed binary's version.
}
