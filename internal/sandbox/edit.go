package sandbox

import (
	"fmt"
	"os"
	"strings"
)

// EditFile performs an exact, single-occurrence string replacement,
// returning "Edited P: replaced 1 occurrence" per spec.md §4.4. Fails if
// oldString occurs zero times or more than once.
func (s *Sandbox) EditFile(path, oldString, newString string) string {
	resolved := s.resolvePath(path)

	info, err := os.Stat(resolved)
	if err != nil || info.IsDir() {
		return errResult("File not found: %s", path)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return errResult("reading %s: %s", path, err)
	}

	content := string(data)
	count := strings.Count(content, oldString)

	switch {
	case count == 0:
		return "Error: old_string not found in file"
	case count > 1:
		return fmt.Sprintf("Error: old_string found %d times, must be unique. Add more context.", count)
	}

	newContent := strings.Replace(content, oldString, newString, 1)
	if err := os.WriteFile(resolved, []byte(newContent), 0o644); err != nil {
		return errResult("writing %s: %s", path, err)
	}

	return fmt.Sprintf("Edited %s: replaced 1 occurrence", path)
}
