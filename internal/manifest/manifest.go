package manifest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/opencontainers/go-digest"
)

var ErrManifest = errors.New("invalid requirements manifest")

// Characters that end the package name within a specifier. Everything from
// the first of these onward is the version constraint.
const constraintChars = "=<>!~,;[ \t"

// A single dependency declaration.
type Entry struct {
	Name       string // Package name.
	Constraint string // Raw version constraint, may be empty.
}

// An ordered list of dependency declarations.
type Manifest struct {
	Entries []Entry  // Declarations in file order.
	lines   []string // Raw specifier lines, for digest computation.
}

// Loads a requirements manifest from a file.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifest, err)
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrManifest, path, err)
	}
	return m, nil
}

// Parses a requirements manifest.
//
// Each non-blank, non-comment line is one specifier. Order is preserved:
// the digest of a manifest with reordered lines differs, because install
// order is part of the declared input.
func Parse(r io.Reader) (*Manifest, error) {
	m := &Manifest{}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m.lines = append(m.lines, line)
		m.Entries = append(m.Entries, parseEntry(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(m.Entries) == 0 {
		return nil, errors.New("no dependency specifiers")
	}

	return m, nil
}

// Splits a specifier line into a name and the trailing constraint.
func parseEntry(line string) Entry {
	if i := strings.IndexAny(line, constraintChars); i >= 0 {
		return Entry{
			Name:       line[:i],
			Constraint: strings.TrimSpace(line[i:]),
		}
	}
	return Entry{Name: line}
}

// Returns the content digest of the manifest.
//
// The digest covers the ordered specifier lines with comments and blank
// lines removed, so cosmetic edits do not invalidate caches keyed on it.
func (m *Manifest) Digest() digest.Digest {
	return digest.FromString(strings.Join(m.lines, "\n"))
}

// Returns the number of declared dependencies.
func (m *Manifest) Len() int {
	return len(m.Entries)
}
