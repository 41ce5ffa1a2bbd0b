package manifest

import (
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	input := `# web framework
Django==5.0.6

psycopg2-binary==2.9.9
celery[redis]>=5.3,<6
gunicorn
`
	m, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []Entry{
		{Name: "Django", Constraint: "==5.0.6"},
		{Name: "psycopg2-binary", Constraint: "==2.9.9"},
		{Name: "celery", Constraint: "[redis]>=5.3,<6"},
		{Name: "gunicorn"},
	}

	if m.Len() != len(want) {
		t.Fatalf("Len() = %d, want %d", m.Len(), len(want))
	}
	for i, e := range m.Entries {
		if e != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, e, want[i])
		}
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := Parse(strings.NewReader("# only comments\n\n")); err == nil {
		t.Fatal("expected error for manifest without specifiers")
	}
}

func TestDigestStable(t *testing.T) {
	a, err := Parse(strings.NewReader("Django==5.0.6\ngunicorn\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Comments and surrounding whitespace are cosmetic.
	b, err := Parse(strings.NewReader("# pinned\nDjango==5.0.6\n\n  gunicorn  \n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if a.Digest() != b.Digest() {
		t.Fatalf("digest changed on cosmetic edit: %s != %s", a.Digest(), b.Digest())
	}
}

func TestDigestSensitive(t *testing.T) {
	base, _ := Parse(strings.NewReader("Django==5.0.6\ngunicorn\n"))
	bumped, _ := Parse(strings.NewReader("Django==5.0.7\ngunicorn\n"))
	reordered, _ := Parse(strings.NewReader("gunicorn\nDjango==5.0.6\n"))

	if base.Digest() == bumped.Digest() {
		t.Fatal("version bump did not change the digest")
	}
	if base.Digest() == reordered.Digest() {
		t.Fatal("reordering did not change the digest")
	}
}
