package orchestra

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// runGit runs a git subcommand in dir, returning its stdout. On failure
// the error carries stderr.
func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git command failed: %s", stderr.String())
	}
	return stdout.String(), nil
}
