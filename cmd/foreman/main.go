// Command foreman is the agent CLI of spec.md §6: run a single budgeted
// coding task, estimate its cost without executing it, or list the
// routable model catalog.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	agent "github.com/foremanhq/foreman"
	"github.com/foremanhq/foreman/internal/budget"
	"github.com/foremanhq/foreman/internal/logctx"
	"github.com/foremanhq/foreman/internal/provider"
	"github.com/foremanhq/foreman/internal/router"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "foreman",
		Short: "Run a single budget-aware coding agent task",
	}
	root.AddCommand(newRunCommand(), newEstimateCommand(), newModelsCommand())
	return root
}

func newRunCommand() *cobra.Command {
	var budgetUSD float64
	var dir string

	cmd := &cobra.Command{
		Use:   "run TASK",
		Short: "Run a coding task under a fixed USD budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTask(cmd.Context(), args[0], budgetUSD, dir)
		},
	}
	cmd.Flags().Float64Var(&budgetUSD, "budget", 0, "total USD budget for the run (required, > 0)")
	cmd.Flags().StringVar(&dir, "dir", ".", "working directory for tool execution")
	return cmd
}

func runTask(ctx context.Context, task string, budgetUSD float64, dir string) error {
	if budgetUSD <= 0 {
		return fmt.Errorf("--budget must be positive, got %v", budgetUSD)
	}
	if len(provider.DetectAvailable(nil)) == 0 {
		return fmt.Errorf("no provider credentials found in the environment")
	}

	logger := logctx.New(os.Stderr, zerolog.InfoLevel)
	a := agent.NewAgent(
		agent.WithBudget(decimal.NewFromFloat(budgetUSD)),
		agent.WithWorkDir(dir),
		agent.WithLogger(logger),
	)

	stream := a.Run(ctx, task)
	var runErr error
	for stream.Next() {
		switch e := stream.Current().(type) {
		case *agent.StepEvent:
			fmt.Printf("[step %d] %s (%s)\n", e.Step, e.ModelID, e.StepType)
		case *agent.AssistantTextEvent:
			if e.Text != "" {
				fmt.Println(e.Text)
			}
		case *agent.ToolCallEvent:
			fmt.Printf("  -> %s %s\n", e.Name, string(e.Input))
		case *agent.ToolResultEvent:
			fmt.Printf("  <- %s\n", e.Result)
		case *agent.CompleteEvent:
			fmt.Printf("done: %s\n", e.Summary)
		case *agent.BudgetExhaustedEvent:
			fmt.Println("budget exhausted")
		case *agent.ErrorEvent:
			runErr = e.Err
		}
	}

	printCostLog(stream.Session().Summary.Records)
	fmt.Printf("total cost: $%s over %d step(s)\n",
		stream.Session().Summary.TotalCost.StringFixed(4), stream.Session().Summary.Steps)

	return runErr
}

func printCostLog(records []budget.Record) {
	if len(records) == 0 {
		return
	}
	fmt.Println("step  model                  input   output  cost")
	for _, r := range records {
		fmt.Printf("%-5d %-22s %-7d %-7d $%s\n", r.Step, r.ModelID, r.InputTokens, r.OutputTokens, r.Cost.StringFixed(4))
	}
}

func newEstimateCommand() *cobra.Command {
	var budgetUSD float64

	cmd := &cobra.Command{
		Use:   "estimate TASK",
		Short: "Project the step count and per-step budget for a task, without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return estimateTask(args[0], budgetUSD)
		},
	}
	cmd.Flags().Float64Var(&budgetUSD, "budget", 0, "total USD budget to evaluate (required, > 0)")
	return cmd
}

func estimateTask(task string, budgetUSD float64) error {
	if budgetUSD <= 0 {
		return fmt.Errorf("--budget must be positive, got %v", budgetUSD)
	}

	wordCount := len(splitWords(task))
	steps := budget.EstimateInitialSteps(wordCount)
	tracker := budget.NewTracker(decimal.NewFromFloat(budgetUSD), steps)

	fmt.Printf("estimated steps:   %d\n", steps)
	fmt.Printf("budget per step:   $%s\n", tracker.BudgetPerStep().StringFixed(4))
	fmt.Printf("total budget:      $%s\n", tracker.Total().StringFixed(4))
	return nil
}

func splitWords(s string) []string {
	var words []string
	start := -1
	for i, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if start >= 0 {
				words = append(words, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, s[start:])
	}
	return words
}

func newModelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the routable model catalog and which providers are available",
		RunE: func(cmd *cobra.Command, args []string) error {
			available := make(map[string]bool)
			for _, name := range provider.DetectAvailable(nil) {
				available[name] = true
			}
			fmt.Println("model                    provider    tier       input/M    output/M   available")
			for _, m := range router.Catalog {
				fmt.Printf("%-24s %-11s %-10s $%-9s $%-9s %v\n",
					m.ID, m.Provider, m.Tier,
					m.Pricing.InputPerMTok.StringFixed(2),
					m.Pricing.OutputPerMTok.StringFixed(2),
					available[m.Provider])
			}
			return nil
		},
	}
}
