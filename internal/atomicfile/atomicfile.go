// Package atomicfile writes files atomically via temp-file-then-rename,
// the pattern both the prompt registry pointer (spec §4.11) and the
// object store's _latest pointer (spec §4.12) require. Grounded on the
// temp+rename idiom used throughout the example pack's CLI tooling
// (e.g. cmd/bd/setup/utils.go's atomicWriteFile).
package atomicfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// Write writes data to path atomically: it creates a temp file in path's
// directory, writes and closes it, then renames over path. Never leaves a
// partially written file at path.
func Write(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("atomicfile: create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("atomicfile: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("atomicfile: close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("atomicfile: set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("atomicfile: rename temp file over %s: %w", path, err)
	}
	return nil
}
