// Package manifest reads requirements manifests.
//
// A manifest is a plain-text file with one dependency specifier per line,
// in installation order. Blank lines and comments are skipped. The specifier
// syntax beyond "name followed by an optional version constraint" belongs to
// the dependency installer; this package only splits the name off for
// reporting and computes a content digest over the ordered specifiers for
// cache keying.
package manifest
