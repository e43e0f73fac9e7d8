// Package steploop drives the twelve-step agent turn machine of
// spec.md §4.5: prepare messages, pick a model, call the provider,
// execute any tool calls in the sandbox, record cost, and decide whether
// to continue.
package steploop

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/foremanhq/foreman/internal/budget"
	"github.com/foremanhq/foreman/internal/provider"
	"github.com/foremanhq/foreman/internal/router"
	"github.com/foremanhq/foreman/internal/sandbox"
)

// MaxSteps is the step ceiling S of spec.md §4.5.
const MaxSteps = 200

// fallbackMaxOutputTokens is the fixed ceiling used when falling back to
// another provider after a Complete failure.
const fallbackMaxOutputTokens = 1024

// floorInputTokens/floorOutputTokens compute the minimum cost floor
// checked at the top of every step.
const (
	floorInputTokens  = 500
	floorOutputTokens = 100
)

// ToolExecutor runs a normalized tool call and returns its result text,
// matching the sandbox's string-based contract. It returns no separate
// error flag; the loop treats a result starting with "Error:" as an error.
type ToolExecutor interface {
	Execute(name string, input json.RawMessage) string
}

// EventSink receives step-loop events. The loop calls these instead of
// depending on a concrete event type, mirroring the teacher's EventSink
// split between loop and presentation.
type EventSink interface {
	OnStep(step int, stepType router.StepType, modelID string)
	OnAssistantText(text string)
	OnToolCall(name string, input json.RawMessage)
	OnToolResult(name, result string)
	OnComplete(summary string)
	OnBudgetExhausted()
	OnError(err error)
}

// Providers resolves a provider name to its adapter.
type Providers interface {
	Get(name string) (provider.Adapter, bool)
	Names() []string
}

// Loop holds everything one agent session's step machine needs.
type Loop struct {
	Router    *router.Router
	Tracker   *budget.Tracker
	Sandbox   ToolExecutor
	Providers Providers
	Sink      EventSink
	WorkDir   string

	modelByID map[string]router.ModelInfo
}

// Result is the terminal outcome of Run.
type Result struct {
	Completed bool
	Summary   string
	Steps     int
}

// Run executes the step loop against an initial task text, mutating
// messages in place and returning the terminal result.
func (l *Loop) Run(ctx context.Context, task string, messages *[]provider.Entry) Result {
	*messages = append(*messages, provider.Entry{Role: provider.RoleUser, Text: task})

	step := 0
	completed := false
	var summary string

	for {
		if completed || step > MaxSteps {
			break
		}
		step++

		cheapest := l.Router.CheapestModel()
		floor := cheapest.Pricing.CostForCall(floorInputTokens, floorOutputTokens)
		if !l.Tracker.CanAfford(floor) {
			l.Sink.OnBudgetExhausted()
			break
		}

		stepType := router.StepPlan
		if step > 1 {
			stepType = router.StepExecute
		}

		estimatedInputTokens := estimateInputTokens(*messages)
		model := l.Router.Select(stepType, estimatedInputTokens, floorOutputTokens)
		maxOutputTokens := l.Tracker.MaxOutputTokens(model.Pricing, estimatedInputTokens)

		l.Sink.OnStep(step, stepType, model.ID)

		systemText := renderSystemPrompt(l.WorkDir, l.Tracker)

		req := provider.CompletionRequest{
			Messages:        *messages,
			Tools:           sandbox.Definitions(),
			ModelID:         model.ID,
			SystemText:      systemText,
			MaxOutputTokens: maxOutputTokens,
		}

		result, err := l.callWithFallback(ctx, model, req)
		if err != nil {
			l.Sink.OnError(err)
			break
		}

		l.Tracker.Record(model.ID, result.InputTokens, result.OutputTokens, model.Pricing, step)

		if result.Text != "" {
			l.Sink.OnAssistantText(result.Text)
		}
		*messages = append(*messages, provider.Entry{
			Role:      provider.RoleAssistant,
			Text:      result.Text,
			ToolCalls: result.ToolCalls,
		})

		var toolResults []provider.ToolResult
		for _, call := range result.ToolCalls {
			l.Sink.OnToolCall(call.Name, call.Input)

			if call.Name == "task_complete" {
				summary = extractSummary(call.Input)
				completed = true
				l.Sink.OnComplete(summary)
				break
			}

			text := l.Sandbox.Execute(call.Name, call.Input)
			l.Sink.OnToolResult(call.Name, text)
			toolResults = append(toolResults, provider.ToolResult{
				CallID:  call.CallID,
				Content: text,
				IsError: len(text) >= 6 && text[:6] == "Error:",
			})
		}

		if len(toolResults) > 0 {
			*messages = append(*messages, provider.Entry{Role: provider.RoleUser, ToolResults: toolResults})
		}

		if !completed && len(result.ToolCalls) == 0 && result.StopReason == provider.StopEndTurn && step > 1 {
			completed = true
		}

		if !completed {
			l.Tracker.DecrementEstimatedSteps()
		}
	}

	return Result{Completed: completed, Summary: summary, Steps: step}
}

// callWithFallback invokes the chosen model's provider; on failure it
// tries every other available provider with the globally cheapest model
// and a fixed 1024-token ceiling, per spec.md §4.5 step 8.
func (l *Loop) callWithFallback(ctx context.Context, model router.ModelInfo, req provider.CompletionRequest) (provider.CompletionResult, error) {
	adapter, ok := l.Providers.Get(model.Provider)
	if !ok {
		return provider.CompletionResult{}, fmt.Errorf("steploop: no adapter registered for provider %q", model.Provider)
	}

	result, err := adapter.Complete(ctx, req)
	if err == nil {
		return result, nil
	}

	cheapest := l.Router.CheapestModel()
	fallbackReq := req
	fallbackReq.ModelID = cheapest.ID
	fallbackReq.MaxOutputTokens = fallbackMaxOutputTokens

	var lastErr = err
	for _, name := range l.Providers.Names() {
		if name == model.Provider {
			continue
		}
		fallbackAdapter, ok := l.Providers.Get(name)
		if !ok {
			continue
		}
		result, err := fallbackAdapter.Complete(ctx, fallbackReq)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}

	return provider.CompletionResult{}, fmt.Errorf("steploop: all providers failed, last error: %w", lastErr)
}

// estimateInputTokens implements spec.md §4.5 step 4's coarse heuristic:
// total message-content characters / 4, plus 500 headroom.
func estimateInputTokens(messages []provider.Entry) int {
	chars := 0
	for _, e := range messages {
		chars += len(e.Text)
		for _, tr := range e.ToolResults {
			chars += len(tr.Content)
		}
	}
	return chars/4 + floorInputTokens
}

func renderSystemPrompt(workDir string, tracker *budget.Tracker) string {
	return fmt.Sprintf(
		"You are an autonomous coding agent working in %s.\n"+
			"Budget: total=%s spent=%s remaining=%s estimated-steps-remaining=%d\n"+
			"Call task_complete with a summary when the task is finished.",
		workDir,
		tracker.Total().StringFixed(4),
		tracker.Spent().StringFixed(4),
		tracker.Remaining().StringFixed(4),
		tracker.EstimatedRemainingSteps(),
	)
}

func extractSummary(input json.RawMessage) string {
	var args struct {
		Summary string `json:"summary"`
	}
	_ = json.Unmarshal(input, &args)
	return args.Summary
}
