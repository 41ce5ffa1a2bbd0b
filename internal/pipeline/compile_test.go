package pipeline

import (
	"strings"
	"testing"
)

func testConfig() *Config {
	cfg := &Config{
		Builder: Builder{Base: "python:3.12-slim-bookworm"},
		Runtime: Runtime{
			Base: "python:3.12-slim-bookworm",
			Renderer: Renderer{
				URL:     "https://downloads.example.com/wkhtmltox_0.12.6.1-3.bookworm_amd64.deb",
				Version: "0.12.6.1",
			},
		},
	}
	cfg.applyDefaults()
	return cfg
}

func TestCompileStageLayout(t *testing.T) {
	stages, err := Compile(testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(stages) != 2 {
		t.Fatalf("len(stages) = %d, want 2", len(stages))
	}

	builder, runtime := stages[0], stages[1]

	if builder.Name != BuilderStage || !builder.Transient {
		t.Fatalf("builder = %q transient=%v", builder.Name, builder.Transient)
	}
	if builder.Artifact != DefaultEnvironment {
		t.Fatalf("builder.Artifact = %q, want %q", builder.Artifact, DefaultEnvironment)
	}
	if builder.CacheDir == "" {
		t.Fatal("builder has no bound package cache directory")
	}

	if runtime.Name != RuntimeStage || runtime.Transient {
		t.Fatalf("runtime = %q transient=%v", runtime.Name, runtime.Transient)
	}
	if runtime.CacheDir != "" {
		t.Fatal("package cache leaked into the exported stage")
	}
	if runtime.Workdir != DefaultWorkdir {
		t.Fatalf("runtime.Workdir = %q, want %q", runtime.Workdir, DefaultWorkdir)
	}
}

func TestCompileBuilderOrder(t *testing.T) {
	stages, err := Compile(testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	steps := stages[0].Steps

	if len(steps) != 5 {
		t.Fatalf("len(steps) = %d, want 5", len(steps))
	}

	if !strings.Contains(steps[0].Run, "build-essential") {
		t.Fatalf("step 1 = %q, want toolchain install", steps[0].Run)
	}
	if !steps[0].Checkpoint || !steps[1].Checkpoint {
		t.Fatal("toolchain and environment steps must be checkpointed")
	}
	if !strings.Contains(steps[1].Run, "venv") {
		t.Fatalf("step 2 = %q, want environment creation", steps[1].Run)
	}
	if steps[2].Env["PIP_CACHE_DIR"] == "" {
		t.Fatal("cache not bound before dependency install")
	}
	if !strings.HasPrefix(steps[2].Env["PATH"], DefaultEnvironment+"/bin:") {
		t.Fatalf("PATH = %q does not resolve the environment first", steps[2].Env["PATH"])
	}
	// Only the manifest crosses into the stage, and it does so after the
	// checkpointed steps so a manifest edit re-runs the install alone.
	if !strings.HasPrefix(steps[3].Copy, "requirements.txt ") {
		t.Fatalf("step 4 = %q, want manifest copy", steps[3].Copy)
	}
	if steps[3].Checkpoint {
		t.Fatal("manifest copy must not be checkpointed")
	}
	if !strings.Contains(steps[4].Run, "pip install") {
		t.Fatalf("step 5 = %q, want dependency install", steps[4].Run)
	}
}

func TestCompileRuntimeOrder(t *testing.T) {
	stages, err := Compile(testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	runtime := stages[1]
	steps := runtime.Steps

	if len(steps) != 4 {
		t.Fatalf("len(steps) = %d, want 4", len(steps))
	}

	if !strings.Contains(steps[0].Run, "libpq5") || strings.Contains(steps[0].Run, "build-essential") {
		t.Fatalf("step 1 = %q, want shared libraries only", steps[0].Run)
	}

	// Fetch and verify precede the environment import: a broken artifact
	// must abort the stage before the builder's output is touched.
	if steps[1].Fetch == nil {
		t.Fatal("step 2 is not the renderer fetch")
	}
	if steps[1].Fetch.Version != "0.12.6.1" {
		t.Fatalf("fetch version = %q", steps[1].Fetch.Version)
	}
	if !strings.Contains(steps[1].Fetch.Install, "{artifact}") {
		t.Fatalf("install command %q has no artifact placeholder", steps[1].Fetch.Install)
	}

	if steps[2].Copy != "builder:/opt/venv /opt/venv" {
		t.Fatalf("step 3 = %q, want environment import", steps[2].Copy)
	}
	if steps[3].Copy != ". /app" {
		t.Fatalf("step 4 = %q, want source overlay", steps[3].Copy)
	}
}

func TestCompileImageEnv(t *testing.T) {
	cfg := testConfig()
	cfg.Env = map[string]string{"DJANGO_SETTINGS_MODULE": "config.settings"}

	stages, err := Compile(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	runtime := stages[1]

	want := map[string]string{
		"PYTHONUNBUFFERED":        "1",
		"PYTHONDONTWRITEBYTECODE": "1",
		"PYTHONPATH":              "/app",
		"DJANGO_SETTINGS_MODULE":  "config.settings",
	}
	for k, v := range want {
		if runtime.Env[k] != v {
			t.Errorf("Env[%q] = %q, want %q", k, runtime.Env[k], v)
		}
	}

	if len(runtime.PathPrepend) != 1 || runtime.PathPrepend[0] != "/opt/venv/bin" {
		t.Fatalf("PathPrepend = %v, want [/opt/venv/bin]", runtime.PathPrepend)
	}
}

func TestCheckRejectsCacheOnExportedStage(t *testing.T) {
	stages := []Stage{
		{Name: "builder", Transient: true},
		{Name: "runtime", CacheDir: "/root/.cache/pip"},
	}
	if err := Check(stages); err == nil {
		t.Fatal("expected error for cache directory on exported stage")
	}
}

func TestCheckRejectsUndeclaredStageCopy(t *testing.T) {
	stages := []Stage{
		{Name: "runtime", Steps: []Step{{Copy: "builder:/opt/venv /opt/venv"}}},
	}
	if err := Check(stages); err == nil {
		t.Fatal("expected error for copy from undeclared stage")
	}
}

func TestCheckRejectsExportedStageNotLast(t *testing.T) {
	stages := []Stage{
		{Name: "runtime"},
		{Name: "builder", Transient: true},
	}
	if err := Check(stages); err == nil {
		t.Fatal("expected error for exported stage before a later stage")
	}
}
