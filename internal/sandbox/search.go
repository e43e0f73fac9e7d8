package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const (
	searchTimeout      = 15 * time.Second
	maxSearchMatchLines = 100
)

// SearchFiles implements spec.md §4.4's search_files: an external
// recursive regex search (grep), capped at 100 match lines and a 15s
// timeout, grounded on original_source/agent/tools.py's subprocess grep
// invocation.
func (s *Sandbox) SearchFiles(pattern, path, include string) string {
	searchDir := s.workDir
	if path != "" {
		searchDir = s.resolvePath(path)
	}

	args := []string{"-rn"}
	if include != "" {
		args = append(args, "--include", include)
	}
	args = append(args, "-E", pattern, searchDir)

	ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "grep", args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	_ = cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return "Error: Search timed out"
	}

	output := strings.TrimSpace(stdout.String())
	if output == "" {
		return "No matches found."
	}

	lines := strings.Split(output, "\n")
	if len(lines) > maxSearchMatchLines {
		return fmt.Sprintf("%s\n... (%d total matches)", strings.Join(lines[:maxSearchMatchLines], "\n"), len(lines))
	}
	return output
}
