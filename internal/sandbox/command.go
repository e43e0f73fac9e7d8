package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/creack/pty"
)

const (
	defaultCommandTimeout = 30 * time.Second
	maxCommandTimeout     = 120 * time.Second
)

// RunCommand executes command in the working directory with a
// PTY-backed shell, falling back to CombinedOutput if the PTY cannot
// start, per the teacher's Bash tool. Timeout is clamped to 120s;
// returns "(no output)" when both streams are empty, per spec.md §4.4.
func (s *Sandbox) RunCommand(command string, timeoutSeconds int) string {
	timeout := time.Duration(timeoutSeconds) * time.Second
	if timeoutSeconds <= 0 {
		timeout = defaultCommandTimeout
	}
	if timeout > maxCommandTimeout {
		timeout = maxCommandTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "bash", "-c", command)
	cmd.Dir = s.workDir

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return s.runWithoutPTY(ctx, command, timeoutSeconds)
	}
	defer ptmx.Close()

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, ptmx)

	waitErr := cmd.Wait()
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Sprintf("Error: Command timed out after %ds", timeoutSeconds)
	}

	output := strings.TrimSpace(buf.String())
	return formatCommandOutput(output, "", waitErr)
}

func (s *Sandbox) runWithoutPTY(ctx context.Context, command string, timeoutSeconds int) string {
	cmd := exec.CommandContext(ctx, "bash", "-c", command)
	cmd.Dir = s.workDir

	output, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Sprintf("Error: Command timed out after %ds", timeoutSeconds)
	}

	return formatCommandOutput(strings.TrimSpace(string(output)), "", err)
}

func formatCommandOutput(combined, _ string, waitErr error) string {
	output := combined
	if exitErr, ok := waitErr.(*exec.ExitError); ok && exitErr.ExitCode() != 0 {
		if output != "" {
			output += "\n"
		}
		output += fmt.Sprintf("(exit code: %d)", exitErr.ExitCode())
	}

	if output == "" {
		return "(no output)"
	}
	return output
}
