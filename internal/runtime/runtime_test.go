package runtime

import (
	"strings"
	"testing"

	"github.com/containerd/platforms"
)

func TestImageTag(t *testing.T) {
	// Archives arrive as cache blob paths whose names are bare digests,
	// which are not valid OCI references themselves.
	blob := "/home/ci/.cache/bake/blobs/" + strings.Repeat("ab", 32)
	tag := imageTag(blob)

	body, ok := strings.CutPrefix(tag, "import/")
	if !ok {
		t.Fatalf("tag %q missing import/ prefix", tag)
	}
	body, ok = strings.CutSuffix(body, ":latest")
	if !ok {
		t.Fatalf("tag %q missing :latest suffix", tag)
	}

	if len(body) != 64 {
		t.Fatalf("tag body %q is not a sha256 hex digest", body)
	}
	for _, r := range body {
		if !strings.ContainsRune("0123456789abcdef", r) {
			t.Fatalf("tag body %q contains reference-unsafe character %q", body, r)
		}
	}

	if imageTag(blob) != tag {
		t.Fatal("imageTag is not deterministic")
	}
	if imageTag("/home/ci/.cache/bake/tmp/checkpoint-1.tar") == tag {
		t.Fatal("different archives share a tag")
	}
}

func TestDefaultPlatform(t *testing.T) {
	p, err := platforms.Parse(DefaultPlatform())
	if err != nil {
		t.Fatalf("DefaultPlatform is not a valid platform specifier: %v", err)
	}
	if p.OS != "linux" {
		t.Fatalf("OS = %q, want linux", p.OS)
	}
	if p.Architecture == "" {
		t.Fatal("platform missing architecture")
	}
}
