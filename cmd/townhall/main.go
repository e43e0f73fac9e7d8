// Command townhall is the multi-worker orchestrator CLI of spec.md §6:
// workspace init, rig management, single-worker and swarm dispatch,
// convoy bundles, job status, PR checkout, and the non-interactive
// mayor control loop.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/foremanhq/foreman/internal/jobwrapper"
	"github.com/foremanhq/foreman/internal/orchconfig"
	"github.com/foremanhq/foreman/internal/orchestra"
	"github.com/foremanhq/foreman/internal/taskplan"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var workspace string

	root := &cobra.Command{
		Use:   "townhall",
		Short: "Orchestrate multiple coding workers against a task plan",
	}
	root.PersistentFlags().StringVar(&workspace, "workspace", ".", "orchestrator workspace directory")

	root.AddCommand(
		newInitCommand(&workspace),
		newRigCommand(&workspace),
		newSpawnCommand(&workspace),
		newSwarmCommand(&workspace),
		newConvoyCommand(&workspace),
		newJobCommand(&workspace),
		newPRCommand(&workspace),
		newMayorCommand(&workspace),
	)
	return root
}

func configPath(workspace string) string {
	return filepath.Join(workspace, ".foreman", "config.yaml")
}

func tasksPath(workspace string) string {
	return filepath.Join(workspace, "TASKS.md")
}

func newInitCommand(workspace *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a new orchestrator workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(filepath.Join(*workspace, ".foreman"), 0o755); err != nil {
				return err
			}
			if _, err := orchestra.NewRigManager(*workspace, orchestra.NewGitCloner()); err != nil {
				return err
			}
			if _, err := orchestra.NewConvoyManager(*workspace); err != nil {
				return err
			}
			if _, err := os.Stat(tasksPath(*workspace)); os.IsNotExist(err) {
				if err := os.WriteFile(tasksPath(*workspace), []byte("# Tasks\n"), 0o644); err != nil {
					return err
				}
			}
			fmt.Printf("initialized workspace at %s\n", *workspace)
			return nil
		},
	}
}

func newRigCommand(workspace *string) *cobra.Command {
	rig := &cobra.Command{Use: "rig", Short: "Manage project rigs"}

	add := &cobra.Command{
		Use:   "add NAME REPO",
		Short: "Clone a repository as a new rig",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := orchestra.NewRigManager(*workspace, orchestra.NewGitCloner())
			if err != nil {
				return err
			}
			r, err := mgr.Add(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("added rig %s -> %s (%s)\n", r.Name, r.LocalPath, r.DefaultBranch)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List known rigs",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := orchestra.NewRigManager(*workspace, orchestra.NewGitCloner())
			if err != nil {
				return err
			}
			for _, r := range mgr.List() {
				fmt.Printf("%-16s %-40s %s\n", r.Name, r.Repo, r.LocalPath)
			}
			return nil
		},
	}

	rig.AddCommand(add, list)
	return rig
}

func newJobWrapper(workspace string) (*jobwrapper.Wrapper, error) {
	cfg, err := orchconfig.Load(configPath(workspace))
	if err != nil {
		return nil, err
	}
	return jobwrapper.New(jobwrapper.Config{
		PollInterval:     cfg.PollInterval(),
		RateLimitBackoff: cfg.RateLimitBackoff(),
	}), nil
}

func newSpawnCommand(workspace *string) *cobra.Command {
	var rigName string

	cmd := &cobra.Command{
		Use:   "spawn TASK",
		Short: "Dispatch a single task to one worker and wait for it to finish",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return spawnTask(cmd.Context(), *workspace, args[0], rigName)
		},
	}
	cmd.Flags().StringVar(&rigName, "rig", "", "rig to run the task against (defaults to the first known rig)")
	return cmd
}

func resolveRig(workspace, rigName string) (orchestra.Rig, error) {
	mgr, err := orchestra.NewRigManager(workspace, orchestra.NewGitCloner())
	if err != nil {
		return orchestra.Rig{}, err
	}
	if rigName != "" {
		r, ok := mgr.Get(rigName)
		if !ok {
			return orchestra.Rig{}, fmt.Errorf("no such rig %q", rigName)
		}
		return r, nil
	}
	r, ok := mgr.First()
	if !ok {
		return orchestra.Rig{}, fmt.Errorf("no rigs registered, run 'townhall rig add' first")
	}
	return r, nil
}

func spawnTask(ctx context.Context, workspace, task, rigName string) error {
	rig, err := resolveRig(workspace, rigName)
	if err != nil {
		return err
	}
	wrapper, err := newJobWrapper(workspace)
	if err != nil {
		return err
	}

	jobID, branch, err := wrapper.Submit(ctx, task, rig.LocalPath, nil)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fmt.Printf("submitted job %s (branch %s)\n", jobID, branch)

	final := wrapper.Watch(ctx, jobID, func(s jobwrapper.Status) {
		fmt.Printf("  [%s] %s\n", s.State, s.CurrentStep)
	})
	fmt.Printf("job %s finished: %s\n", jobID, final.State)
	if final.PRLink != "" {
		fmt.Printf("pr: %s\n", final.PRLink)
	}
	if final.State == jobwrapper.StateFailed {
		return fmt.Errorf("job %s failed: %s", jobID, final.Error)
	}
	return nil
}

func newSwarmCommand(workspace *string) *cobra.Command {
	var rigName string
	var maxConcurrent int

	cmd := &cobra.Command{
		Use:   "swarm",
		Short: "Drain the task plan across several concurrently active workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSwarm(cmd.Context(), *workspace, rigName, maxConcurrent)
		},
	}
	cmd.Flags().StringVar(&rigName, "rig", "", "rig to run tasks against (defaults to the first known rig)")
	cmd.Flags().IntVar(&maxConcurrent, "max-concurrent", 4, "maximum simultaneously active jobs")
	return cmd
}

type printSink struct{}

func (printSink) OnDispatch(taskText, jobID string) {
	fmt.Printf("dispatch: %s -> job %s\n", taskText, jobID)
}
func (printSink) OnDispatchFailed(taskText string, err error) {
	fmt.Printf("dispatch failed: %s: %v\n", taskText, err)
}
func (printSink) OnJobCompleted(jobID, taskText string) {
	fmt.Printf("completed: job %s (%s)\n", jobID, taskText)
}
func (printSink) OnJobFailed(jobID, taskText string, state jobwrapper.State) {
	fmt.Printf("failed: job %s (%s): %s\n", jobID, taskText, state)
}
func (printSink) OnError(err error) {
	fmt.Fprintf(os.Stderr, "orchestrator error: %v\n", err)
}

func runSwarm(ctx context.Context, workspace, rigName string, maxConcurrent int) error {
	rig, err := resolveRig(workspace, rigName)
	if err != nil {
		return err
	}
	wrapper, err := newJobWrapper(workspace)
	if err != nil {
		return err
	}

	plan := taskplan.New(tasksPath(workspace))
	rigMgr, err := orchestra.NewRigManager(workspace, orchestra.NewGitCloner())
	if err != nil {
		return err
	}

	submitter := &rigBoundSubmitter{wrapper: wrapper, repo: rig.LocalPath}
	mayor := orchestra.New(plan, rigMgr, submitter, maxConcurrent, printSink{})

	for {
		tasks, err := plan.Tasks()
		if err != nil {
			return err
		}
		pending := false
		for _, t := range tasks {
			if t.Status != taskplan.StatusDone {
				pending = true
				break
			}
		}
		if !pending && mayor.ActiveCount() == 0 {
			fmt.Println("swarm: all tasks done")
			return nil
		}
		if err := mayor.Tick(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

// rigBoundSubmitter adapts jobwrapper.Wrapper to orchestra.JobSubmitter,
// pinning every submission to one rig's checkout.
type rigBoundSubmitter struct {
	wrapper *jobwrapper.Wrapper
	repo    string
}

func (s *rigBoundSubmitter) Submit(ctx context.Context, prompt, _ string, contextFiles []string) (string, string, error) {
	return s.wrapper.Submit(ctx, prompt, s.repo, contextFiles)
}

func (s *rigBoundSubmitter) Poll(ctx context.Context, jobID string) (jobwrapper.Status, error) {
	return s.wrapper.Poll(ctx, jobID)
}

func newConvoyCommand(workspace *string) *cobra.Command {
	convoy := &cobra.Command{Use: "convoy", Short: "Manage convoy task bundles"}

	var rigName string
	create := &cobra.Command{
		Use:   "create NAME ISSUE...",
		Short: "Create a convoy bundling one or more issues",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := orchestra.NewConvoyManager(*workspace)
			if err != nil {
				return err
			}
			id, err := mgr.Create(args[0], rigName, args[1:])
			if err != nil {
				return err
			}
			fmt.Printf("created convoy %s\n", id)
			return nil
		},
	}
	create.Flags().StringVar(&rigName, "rig", "", "rig the convoy's tasks run against")

	status := &cobra.Command{
		Use:   "status CONVOY_ID",
		Short: "Show a convoy's task status rollup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := orchestra.NewConvoyManager(*workspace)
			if err != nil {
				return err
			}
			c, summary, ok := mgr.Status(args[0])
			if !ok {
				return fmt.Errorf("no such convoy %q", args[0])
			}
			fmt.Printf("convoy %s (%s): %s\n", c.ID, c.Name, c.Status)
			fmt.Printf("  pending=%d assigned=%d running=%d completed=%d failed=%d\n",
				summary.Pending, summary.Assigned, summary.Running, summary.Completed, summary.Failed)
			for _, t := range c.Tasks {
				fmt.Printf("  [%s] %s\n", t.Status, t.Description)
			}
			return nil
		},
	}

	convoy.AddCommand(create, status)
	return convoy
}

func newJobCommand(workspace *string) *cobra.Command {
	job := &cobra.Command{Use: "job", Short: "Inspect worker jobs"}

	status := &cobra.Command{
		Use:   "status JOB_ID",
		Short: "Poll a job's current status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wrapper, err := newJobWrapper(*workspace)
			if err != nil {
				return err
			}
			s, err := wrapper.Poll(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("job %s: %s (%s)\n", s.JobID, s.State, s.CurrentStep)
			if s.PRLink != "" {
				fmt.Printf("pr: %s\n", s.PRLink)
			}
			return nil
		},
	}

	job.AddCommand(status)
	return job
}

func newPRCommand(workspace *string) *cobra.Command {
	pr := &cobra.Command{Use: "pr", Short: "Work with worker-produced pull requests"}

	var rigName string
	checkout := &cobra.Command{
		Use:   "checkout JOB_ID",
		Short: "Check out the branch a finished job pushed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rig, err := resolveRig(*workspace, rigName)
			if err != nil {
				return err
			}
			wrapper, err := newJobWrapper(*workspace)
			if err != nil {
				return err
			}
			s, err := wrapper.Poll(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if s.BranchName == "" {
				return fmt.Errorf("job %s has no branch yet (state %s)", args[0], s.State)
			}
			return checkoutBranch(cmd.Context(), rig.LocalPath, s.BranchName)
		},
	}
	checkout.Flags().StringVar(&rigName, "rig", "", "rig whose checkout to update (defaults to the first known rig)")

	pr.AddCommand(checkout)
	return pr
}

func newMayorCommand(workspace *string) *cobra.Command {
	var rigName string
	var maxConcurrent int

	cmd := &cobra.Command{
		Use:   "mayor",
		Short: "Run the orchestrator control loop until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMayor(cmd.Context(), *workspace, rigName, maxConcurrent)
		},
	}
	cmd.Flags().StringVar(&rigName, "rig", "", "rig to run tasks against (defaults to the first known rig)")
	cmd.Flags().IntVar(&maxConcurrent, "max-concurrent", 0, "maximum simultaneously active jobs (defaults to config)")
	return cmd
}

func runMayor(ctx context.Context, workspace, rigName string, maxConcurrent int) error {
	cfg, err := orchconfig.Load(configPath(workspace))
	if err != nil {
		return err
	}
	if maxConcurrent <= 0 {
		maxConcurrent = cfg.MaxConcurrentAgents
	}

	rig, err := resolveRig(workspace, rigName)
	if err != nil {
		return err
	}
	wrapper, err := newJobWrapper(workspace)
	if err != nil {
		return err
	}
	plan := taskplan.New(tasksPath(workspace))
	rigMgr, err := orchestra.NewRigManager(workspace, orchestra.NewGitCloner())
	if err != nil {
		return err
	}

	submitter := &rigBoundSubmitter{wrapper: wrapper, repo: rig.LocalPath}
	mayor := orchestra.New(plan, rigMgr, submitter, maxConcurrent, printSink{})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("mayor: running against %s, polling every %s\n", rig.Name, cfg.PollInterval())
	err = mayor.RunLoop(ctx, cfg.PollInterval())
	if err == context.Canceled {
		fmt.Println("mayor: stopped")
		return nil
	}
	return err
}

func checkoutBranch(ctx context.Context, dir, branch string) error {
	if err := runGit(ctx, dir, "fetch", "origin", branch); err != nil {
		return err
	}
	return runGit(ctx, dir, "checkout", branch)
}

func runGit(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git %s: %w: %s", args, err, out)
	}
	return nil
}
