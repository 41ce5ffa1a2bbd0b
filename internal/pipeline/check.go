package pipeline

import (
	"fmt"
	"strings"
)

// Verifies structural invariants of a compiled pipeline.
//
// Exactly one stage may be exported, and it must be the last one. Persistent
// cache directories and memoized artifacts are restricted to transient
// stages: a cache directory on an exported stage would be baked into a
// final image layer, and the exported stage is rebuilt every run by
// definition. Cross-stage copies may only reference earlier stages.
func Check(stages []Stage) error {
	if len(stages) == 0 {
		return fmt.Errorf("%w: no stages", ErrConfig)
	}

	seen := make(map[string]bool, len(stages))

	for i, stage := range stages {
		if stage.Name == "" {
			return fmt.Errorf("%w: stage %d has no name", ErrConfig, i+1)
		}
		if seen[stage.Name] {
			return fmt.Errorf("%w: duplicate stage %q", ErrConfig, stage.Name)
		}

		if !stage.Transient {
			if i != len(stages)-1 {
				return fmt.Errorf("%w: exported stage %q is not last", ErrConfig, stage.Name)
			}
			if stage.CacheDir != "" {
				return fmt.Errorf("%w: stage %q: cache directory on an exported stage", ErrConfig, stage.Name)
			}
			if stage.Artifact != "" {
				return fmt.Errorf("%w: stage %q: artifact on an exported stage", ErrConfig, stage.Name)
			}
		}

		for j, step := range stage.Steps {
			if err := checkStep(step, seen); err != nil {
				return fmt.Errorf("%w: stage %q, step %d: %w", ErrConfig, stage.Name, j+1, err)
			}
		}

		seen[stage.Name] = true
	}

	return nil
}

// Verifies a single step declares at most one operation and that any
// cross-stage copy source has already been declared.
func checkStep(step Step, seen map[string]bool) error {
	ops := 0
	if step.Run != "" {
		ops++
	}
	if step.Copy != "" {
		ops++
	}
	if step.Fetch != nil {
		ops++
	}
	if ops > 1 {
		return fmt.Errorf("multiple operations in one step")
	}

	if step.Copy != "" {
		src, _, ok := strings.Cut(step.Copy, " ")
		if !ok {
			return fmt.Errorf("copy %q: expected source and destination", step.Copy)
		}
		if stage, _, ok := strings.Cut(src, ":"); ok && stage != "" && !strings.Contains(stage, "/") {
			if !seen[stage] {
				return fmt.Errorf("copy from undeclared stage %q", stage)
			}
		}
	}

	if f := step.Fetch; f != nil {
		if f.URL == "" || f.Version == "" {
			return fmt.Errorf("fetch is missing url or version pin")
		}
		if f.Verify == "" {
			return fmt.Errorf("fetch has no verify command")
		}
	}

	return nil
}
