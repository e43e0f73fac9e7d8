// Package sandbox implements the seven fixed tools of spec.md §4.4, each
// rooted at a working directory fixed at session start. Every tool
// returns a single string; failures are returned as strings beginning
// with "Error:", never as a Go error crossing the tool boundary.
package sandbox

import (
	"fmt"
	"path/filepath"
)

// Sandbox roots all tool operations at a working directory.
type Sandbox struct {
	workDir string
}

// New returns a Sandbox rooted at workDir. workDir is made absolute so
// resolvePath's absolute/relative distinction is unambiguous.
func New(workDir string) (*Sandbox, error) {
	abs, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("sandbox: resolve working directory: %w", err)
	}
	return &Sandbox{workDir: abs}, nil
}

// WorkDir returns the sandbox's absolute working directory.
func (s *Sandbox) WorkDir() string { return s.workDir }

// resolvePath implements spec.md §4.4's path rule: absolute paths pass
// through, relative paths are joined to the working directory. No path
// traversal restriction is imposed beyond what the host OS enforces.
func (s *Sandbox) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.workDir, path)
}

func errResult(format string, args ...any) string {
	return "Error: " + fmt.Sprintf(format, args...)
}
