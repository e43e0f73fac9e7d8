package sandbox

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const maxListEntries = 500

// ListFiles implements spec.md §4.4's list_files: a path containing `*`
// or `?` is treated as a recursive glob relative to the working
// directory; otherwise the directory's entries are listed, with
// subdirectory names suffixed by "/". Both are capped at 500 entries.
func (s *Sandbox) ListFiles(path string) string {
	if strings.ContainsAny(path, "*?") {
		return s.listByGlob(path)
	}
	return s.listDirectory(path)
}

func (s *Sandbox) listByGlob(pattern string) string {
	resolved := s.resolvePath(pattern)
	relPattern, err := filepath.Rel(s.workDir, resolved)
	if err != nil {
		relPattern = pattern
	}
	relPattern = filepath.ToSlash(relPattern)

	matches, err := doublestar.Glob(os.DirFS(s.workDir), relPattern)
	if err != nil {
		return errResult("glob %s: %s", pattern, err)
	}
	if len(matches) == 0 {
		return "No files matched the pattern."
	}

	sort.Strings(matches)
	if len(matches) > maxListEntries {
		matches = matches[:maxListEntries]
	}
	return strings.Join(matches, "\n")
}

func (s *Sandbox) listDirectory(path string) string {
	resolved := s.resolvePath(path)

	info, err := os.Stat(resolved)
	if err != nil || !info.IsDir() {
		return errResult("Not a directory or pattern: %s", path)
	}

	entries, err := os.ReadDir(resolved)
	if err != nil {
		return errResult("reading directory %s: %s", path, err)
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	sort.Strings(names)

	if len(names) > maxListEntries {
		names = names[:maxListEntries]
	}

	result := make([]string, len(names))
	for i, name := range names {
		full := filepath.Join(resolved, name)
		if fi, err := os.Stat(full); err == nil && fi.IsDir() {
			result[i] = name + "/"
		} else {
			result[i] = name
		}
	}
	return strings.Join(result, "\n")
}
