package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
name: docrender
builder:
  base: docker.io/library/python:3.12-slim-bookworm
runtime:
  base: docker.io/library/python:3.12-slim-bookworm
  renderer:
    url: https://downloads.example.com/wkhtmltox_0.12.6.1-3.bookworm_amd64.deb
    version: 0.12.6.1
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bake.yaml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Name != "docrender" {
		t.Fatalf("Name = %q, want docrender", cfg.Name)
	}
	if cfg.App.Source != "." {
		t.Fatalf("App.Source = %q, want .", cfg.App.Source)
	}
	if cfg.App.Workdir != DefaultWorkdir {
		t.Fatalf("App.Workdir = %q, want %q", cfg.App.Workdir, DefaultWorkdir)
	}
	if cfg.Builder.Environment != DefaultEnvironment {
		t.Fatalf("Builder.Environment = %q, want %q", cfg.Builder.Environment, DefaultEnvironment)
	}
	if cfg.Builder.Requirements != "requirements.txt" {
		t.Fatalf("Builder.Requirements = %q", cfg.Builder.Requirements)
	}
	if len(cfg.Builder.Toolchain) == 0 || len(cfg.Runtime.Libraries) == 0 {
		t.Fatal("default package lists not applied")
	}
	if cfg.Runtime.Renderer.Verify != "wkhtmltopdf --version" {
		t.Fatalf("Renderer.Verify = %q", cfg.Runtime.Renderer.Verify)
	}
}

func TestLoadRejectsUnpinned(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "latest base",
			yaml: `
builder:
  base: python:latest
runtime:
  base: python:3.12-slim
  renderer: {url: "https://example.com/a.deb", version: "1.0"}
`,
		},
		{
			name: "untagged base",
			yaml: `
builder:
  base: python:3.12-slim
runtime:
  base: python
  renderer: {url: "https://example.com/a.deb", version: "1.0"}
`,
		},
		{
			name: "latest renderer version",
			yaml: `
builder:
  base: python:3.12-slim
runtime:
  base: python:3.12-slim
  renderer: {url: "https://example.com/a.deb", version: "latest"}
`,
		},
		{
			name: "relative renderer url",
			yaml: `
builder:
  base: python:3.12-slim
runtime:
  base: python:3.12-slim
  renderer: {url: "downloads/a.deb", version: "1.0"}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			if !errors.Is(err, ErrConfig) {
				t.Fatalf("err = %v, want ErrConfig", err)
			}
		})
	}
}
