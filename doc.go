// Package agent implements a budget-aware, provider-agnostic coding
// agent: a single-shot loop that interleaves LLM calls with sandboxed
// tool execution, routing every step to the model that best trades
// capability against cost within its per-step share of a fixed USD budget.
//
// # Quick Start
//
//	a := agent.NewAgent(agent.WithBudget(decimal.NewFromFloat(5)), agent.WithWorkDir("."))
//	stream := a.Run(ctx, "Add error handling to main.go")
//	for stream.Next() {
//	    switch e := stream.Current().(type) {
//	    case *agent.AssistantTextEvent:
//	        fmt.Println(e.Text)
//	    case *agent.CompleteEvent:
//	        fmt.Println("done:", e.Summary)
//	    }
//	}
//
// # Sub-packages
//
//   - internal/budget tracks spend and projects remaining steps.
//   - internal/router picks a model per step under the budget.
//   - internal/provider adapts Anthropic, OpenAI, Bedrock, and Gemini to
//     one shared completion contract.
//   - internal/sandbox implements the fixed seven-tool execution surface.
//   - internal/steploop drives the per-step state machine.
//   - internal/orchestra runs the multi-worker dispatch loop that farms
//     tasks out to external coding-agent jobs.
package agent
