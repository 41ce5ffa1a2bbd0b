package build

import (
	"testing"

	"github.com/docmill/bake/internal/pipeline"
)

func TestHasVersionToken(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		version string
		want    bool
	}{
		{
			name:    "exact token",
			output:  "wkhtmltopdf 0.12.6.1-3 (with patched qt)",
			version: "0.12.6.1-3",
			want:    true,
		},
		{
			name:    "substring is not enough",
			output:  "wkhtmltopdf 0.12.6.1-3 (with patched qt)",
			version: "0.12.6",
			want:    false,
		},
		{
			name:    "version alone",
			output:  "0.12.6.1-3\n",
			version: "0.12.6.1-3",
			want:    true,
		},
		{
			name:    "empty output",
			output:  "",
			version: "0.12.6.1-3",
			want:    false,
		},
		{
			name:    "multiline output",
			output:  "some banner\nversion: 0.12.6.1-3\n",
			version: "0.12.6.1-3",
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasVersionToken(tt.output, tt.version); got != tt.want {
				t.Fatalf("hasVersionToken(%q, %q) = %v, want %v", tt.output, tt.version, got, tt.want)
			}
		})
	}
}

func TestDownloadName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/releases/wkhtmltox_0.12.6.1-3.bookworm_amd64.deb", "wkhtmltox_0.12.6.1-3.bookworm_amd64.deb"},
		{"https://example.com/file.deb?token=abc", "file.deb"},
		{"https://example.com/", "download"},
		{"https://example.com", "download"},
	}

	for _, tt := range tests {
		if got := downloadName(tt.url); got != tt.want {
			t.Fatalf("downloadName(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestIsOperation(t *testing.T) {
	if isOperation(pipeline.Step{Env: map[string]string{"A": "1"}}) {
		t.Fatal("modifier step classified as operation")
	}
	if !isOperation(pipeline.Step{Run: "true"}) {
		t.Fatal("run step not classified as operation")
	}
	if !isOperation(pipeline.Step{Copy: "a b"}) {
		t.Fatal("copy step not classified as operation")
	}
	if !isOperation(pipeline.Step{Fetch: &pipeline.Fetch{}}) {
		t.Fatal("fetch step not classified as operation")
	}
}

func TestCacheDirName(t *testing.T) {
	stage := pipeline.Stage{Name: "builder", CacheDir: "/root/.cache/pip"}
	if got := cacheDirName(stage); got != "builder-root-.cache-pip" {
		t.Fatalf("cacheDirName = %q", got)
	}
}

func TestStageLabel(t *testing.T) {
	if got := stageLabel("builder", 0); got != `"builder"` {
		t.Fatalf("stageLabel = %q", got)
	}
	if got := stageLabel("", 1); got != "2" {
		t.Fatalf("stageLabel = %q", got)
	}
}
