// Package pipeline defines the two-stage image build pipeline.
//
// A pipeline produces the runtime image for a document-rendering web
// service from a small YAML definition. Compilation turns the definition
// into two stages:
//
//   - a transient builder stage that installs the native toolchain, creates
//     an isolated dependency environment, and installs the declared
//     requirements into it using the persistent package cache;
//   - a runtime stage that installs only shared runtime libraries, fetches
//     and verifies the pinned PDF renderer, imports the dependency
//     environment from the builder, and overlays the application source.
//
// The builder's toolchain never reaches the runtime stage; the dependency
// environment crosses the stage boundary as a single directory copy. The
// exported image carries the environment variables that make the installed
// dependencies resolvable without an activation step, and deliberately
// leaves the start command unset.
//
// Example usage:
//
//	cfg, err := pipeline.Load("bake.yaml")
//	if err != nil {
//	    return err
//	}
//
//	stages, err := pipeline.Compile(cfg)
package pipeline
