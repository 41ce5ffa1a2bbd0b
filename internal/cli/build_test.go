package cli

import (
	"testing"

	"github.com/alecthomas/kong"
)

func buildParser(t *testing.T) (*kong.Kong, *BuildCmd) {
	t.Helper()

	var root struct {
		Build BuildCmd `cmd:""`
	}
	parser, err := kong.New(&root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return parser, &root.Build
}

func TestBuildCmdDefaults(t *testing.T) {
	parser, cmd := buildParser(t)

	if _, err := parser.Parse([]string{"build"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cmd.Context != "." {
		t.Fatalf("context = %q, want .", cmd.Context)
	}
	if cmd.File != "bake.yaml" {
		t.Fatalf("file = %q, want bake.yaml", cmd.File)
	}
	if cmd.Output != "dist" {
		t.Fatalf("output = %q, want dist", cmd.Output)
	}
	if cmd.Address != "/run/containerd/containerd.sock" {
		t.Fatalf("address = %q", cmd.Address)
	}
	if cmd.Namespace != "bake" {
		t.Fatalf("namespace = %q, want bake", cmd.Namespace)
	}
	if len(cmd.Entrypoint) != 0 {
		t.Fatalf("entrypoint = %v, want unset", cmd.Entrypoint)
	}
}

func TestBuildCmdEntrypoint(t *testing.T) {
	parser, cmd := buildParser(t)

	_, err := parser.Parse([]string{
		"build", "services/tara",
		"--entrypoint", "/opt/venv/bin/gunicorn",
		"--entrypoint", "app.wsgi:application",
		"--no-cache",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cmd.Context != "services/tara" {
		t.Fatalf("context = %q", cmd.Context)
	}
	if len(cmd.Entrypoint) != 2 ||
		cmd.Entrypoint[0] != "/opt/venv/bin/gunicorn" ||
		cmd.Entrypoint[1] != "app.wsgi:application" {
		t.Fatalf("entrypoint = %v", cmd.Entrypoint)
	}
	if !cmd.NoCache {
		t.Fatal("no-cache flag not set")
	}
}
