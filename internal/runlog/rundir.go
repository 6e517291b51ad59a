// Package runlog implements the experiment logging side of a run: the
// auto-incrementing run directory, the persisted run configuration, and
// the append-only scalar/image event sink the trainer reports into.
package runlog

import (
	"fmt"
	"os"
	"path/filepath"
)

// IncrementDir resolves and creates the run directory <root>/<name>.
// If that directory already exists the name is suffixed with the first
// free counter (exp, exp2, exp3, ...), unless reuse is set, in which
// case the existing directory is returned as is.
func IncrementDir(root, name string, reuse bool) (string, error) {
	if name == "" {
		return "", fmt.Errorf("run name must not be empty")
	}

	dir := filepath.Join(root, name)
	if _, err := os.Stat(dir); os.IsNotExist(err) || reuse {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create run directory: %w", err)
		}
		return dir, nil
	}

	for n := 2; ; n++ {
		candidate := filepath.Join(root, fmt.Sprintf("%s%d", name, n))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			if err := os.MkdirAll(candidate, 0o755); err != nil {
				return "", fmt.Errorf("failed to create run directory: %w", err)
			}
			return candidate, nil
		}
	}
}
