// Package fetch downloads pinned external binary artifacts.
//
// Artifacts are addressed by a fully-qualified, version-pinned URL and
// cached in the build store keyed by that URL, so an unchanged pin is never
// downloaded twice. Failures are fatal and never retried at this layer;
// timeout and retry policy belong to the invoking build system.
package fetch
