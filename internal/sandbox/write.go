package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFile creates parent directories as needed and overwrites the
// target file without prompting, returning "Wrote N chars to P" per
// spec.md §4.4.
func (s *Sandbox) WriteFile(path, content string) string {
	resolved := s.resolvePath(path)

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errResult("creating parent directories for %s: %s", path, err)
	}

	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return errResult("writing %s: %s", path, err)
	}

	return fmt.Sprintf("Wrote %d chars to %s", len(content), path)
}
