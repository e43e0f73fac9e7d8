// Package jobwrapper wraps an external worker CLI behind a simple
// Submit/Poll/Watch/Cancel interface, abstracting its async job-id and
// polling pattern so the orchestrator sees a plain task-to-result flow.
// Grounded on original_source/lib/jules_wrapper.py.
package jobwrapper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// State is the finite job-status set, terminal at Completed/Failed/Cancelled.
type State string

const (
	StatePending     State = "PENDING"
	StateRunning     State = "RUNNING"
	StateCompleted   State = "COMPLETED"
	StateFailed      State = "FAILED"
	StateRateLimited State = "RATE_LIMITED"
	StateCancelled   State = "CANCELLED"
)

// IsTerminal reports whether the state will never change again.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Status is a worker job's current state.
type Status struct {
	JobID       string
	State       State
	CurrentStep string
	PRLink      string
	BranchName  string
	Error       string
}

// Config parameterizes polling cadence and rate-limit backoff.
type Config struct {
	CLIName          string
	PollInterval     time.Duration
	RateLimitBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.CLIName == "" {
		c.CLIName = "jules"
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.RateLimitBackoff <= 0 {
		c.RateLimitBackoff = 30 * time.Second
	}
	return c
}

const maxConsecutivePollErrors = 3

// Wrapper drives an external worker CLI as a subprocess.
type Wrapper struct {
	cfg Config
}

// New builds a Wrapper from a Config, applying defaults for zero fields.
func New(cfg Config) *Wrapper {
	return &Wrapper{cfg: cfg.withDefaults()}
}

// Submit creates a dedicated branch in repo, then submits prompt to the
// worker CLI targeting that branch, returning the parsed job id.
func (w *Wrapper) Submit(ctx context.Context, prompt, repo string, contextFiles []string) (jobID string, branchName string, err error) {
	branchName = fmt.Sprintf("polecat-%s", uuid.New().String()[:8])

	if _, err := w.runGit(ctx, repo, "checkout", "-b", branchName); err != nil {
		return "", "", fmt.Errorf("jobwrapper: create branch: %w", err)
	}

	args := []string{"start"}
	for _, f := range contextFiles {
		args = append(args, "--context", f)
	}
	args = append(args, "--prompt", prompt, "--branch", branchName)

	out, err := w.runCLI(ctx, args...)
	if err != nil {
		return "", "", fmt.Errorf("jobwrapper: submit: %w", err)
	}

	return parseJobID(out), branchName, nil
}

// Poll fetches a job's current status, JSON-first with a regex/keyword
// fallback when the CLI emits plain text.
func (w *Wrapper) Poll(ctx context.Context, jobID string) (Status, error) {
	out, err := w.runCLI(ctx, "status", jobID, "--format", "json")
	if err != nil {
		return Status{}, fmt.Errorf("jobwrapper: poll: %w", err)
	}

	var data struct {
		State       string `json:"state"`
		CurrentStep string `json:"current_step"`
		PRURL       string `json:"pr_url"`
		Branch      string `json:"branch"`
	}
	if err := json.Unmarshal([]byte(out), &data); err == nil && data.State != "" {
		return Status{
			JobID:       jobID,
			State:       State(data.State),
			CurrentStep: data.CurrentStep,
			PRLink:      data.PRURL,
			BranchName:  data.Branch,
		}, nil
	}

	return parseStatusText(jobID, out), nil
}

// Watch polls until the job reaches a terminal state, calling onUpdate
// for every observed status. It tolerates up to three consecutive
// polling errors before giving up and reporting Failed, and backs off
// on RATE_LIMITED instead of the normal poll interval.
func (w *Wrapper) Watch(ctx context.Context, jobID string, onUpdate func(Status)) Status {
	consecutiveErrors := 0

	for {
		select {
		case <-ctx.Done():
			return Status{JobID: jobID, State: StateFailed, Error: ctx.Err().Error()}
		default:
		}

		status, err := w.Poll(ctx, jobID)
		if err != nil {
			consecutiveErrors++
			if consecutiveErrors >= maxConsecutivePollErrors {
				return Status{JobID: jobID, State: StateFailed, CurrentStep: "Polling failed", Error: err.Error()}
			}
			if !sleepCtx(ctx, w.cfg.PollInterval) {
				return Status{JobID: jobID, State: StateFailed, Error: ctx.Err().Error()}
			}
			continue
		}
		consecutiveErrors = 0

		if onUpdate != nil {
			onUpdate(status)
		}

		if status.State.IsTerminal() {
			return status
		}

		wait := w.cfg.PollInterval
		if status.State == StateRateLimited {
			wait = w.cfg.RateLimitBackoff
		}
		if !sleepCtx(ctx, wait) {
			return Status{JobID: jobID, State: StateFailed, Error: ctx.Err().Error()}
		}
	}
}

// Cancel asks the worker CLI to cancel a running job.
func (w *Wrapper) Cancel(ctx context.Context, jobID string) error {
	if _, err := w.runCLI(ctx, "cancel", jobID); err != nil {
		return fmt.Errorf("jobwrapper: cancel: %w", err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (w *Wrapper) runCLI(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, w.cfg.CLIName, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s command failed: %s", w.cfg.CLIName, stderr.String())
	}
	return stdout.String(), nil
}

func (w *Wrapper) runGit(ctx context.Context, dir string, args ...string) (string, error) {
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

var jobIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)job\s*id:\s*(\S+)`),
	regexp.MustCompile(`(?i)started\s+job:\s*(\S+)`),
	regexp.MustCompile(`^([a-f0-9-]{36})$`),
}

// parseJobID extracts a job id, trying JSON first, then a set of regex
// patterns, then falling back to the first whitespace-separated token of
// the output, then a fresh UUID.
func parseJobID(output string) string {
	var data struct {
		JobID string `json:"job_id"`
		ID    string `json:"id"`
	}
	if err := json.Unmarshal([]byte(output), &data); err == nil {
		if data.JobID != "" {
			return data.JobID
		}
		if data.ID != "" {
			return data.ID
		}
	}

	for _, pattern := range jobIDPatterns {
		if m := pattern.FindStringSubmatch(output); len(m) > 1 {
			return m[1]
		}
	}

	trimmed := strings.TrimSpace(output)
	if trimmed != "" {
		return strings.Fields(trimmed)[0]
	}

	return uuid.New().String()
}

// parseStatusText infers a State from keywords when the CLI output is
// not JSON.
func parseStatusText(jobID, output string) Status {
	lower := strings.ToLower(output)

	var state State
	switch {
	case strings.Contains(lower, "complete"), strings.Contains(lower, "success"):
		state = StateCompleted
	case strings.Contains(lower, "fail"), strings.Contains(lower, "error"):
		state = StateFailed
	case strings.Contains(lower, "running"), strings.Contains(lower, "progress"):
		state = StateRunning
	case strings.Contains(lower, "rate") && strings.Contains(lower, "limit"):
		state = StateRateLimited
	default:
		state = StatePending
	}

	step := strings.TrimSpace(output)
	if len(step) > 100 {
		step = step[:100]
	}

	return Status{JobID: jobID, State: state, CurrentStep: step}
}
