package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/foremanhq/foreman/internal/budget"
	"github.com/foremanhq/foreman/internal/logctx"
	"github.com/foremanhq/foreman/internal/provider"
	"github.com/foremanhq/foreman/internal/provider/anthropic"
	"github.com/foremanhq/foreman/internal/provider/gemini"
	"github.com/foremanhq/foreman/internal/provider/openai"
	"github.com/foremanhq/foreman/internal/router"
	"github.com/foremanhq/foreman/internal/sandbox"
	"github.com/foremanhq/foreman/internal/steploop"
)

// Agent is a stateless execution engine: one budget-routed, sandboxed
// coding-agent run per Run call. Unlike the teacher's Agent, it holds no
// tool registry and no multi-turn client wraps it — spec.md §3 scopes
// the budget tracker and message history to a single run.
type Agent struct {
	opts     agentOptions
	registry *provider.Registry
	buildErr error
}

// NewAgent creates a new Agent with the given options. Provider adapters
// are constructed immediately (from WithProviders, or else by detecting
// credentials in the environment) so that configuration errors surface
// before Run rather than mid-stream; a construction failure is instead
// replayed as the stream's first and only ErrorEvent, matching the
// teacher's "construction never panics" contract.
func NewAgent(opts ...AgentOption) *Agent {
	resolved := resolveOptions(opts)
	a := &Agent{opts: resolved}

	adapters := resolved.providers
	if len(adapters) == 0 {
		adapters = autoDetectProviders(resolved.lookupEnv)
	}
	if len(adapters) == 0 {
		a.buildErr = ErrNoProviders
		return a
	}
	a.registry = provider.NewRegistry(adapters...)

	// Validate the catalog/provider combination now, so a misconfiguration
	// surfaces at construction rather than silently at the first Run call.
	if _, err := router.New(resolved.catalog, a.registry.Names(), budget.NewTracker(resolved.budget, 1)); err != nil {
		a.buildErr = err
		return a
	}

	return a
}

// autoDetectProviders builds adapters for every provider whose credentials
// are present in the environment. Bedrock needs an aws.Config the plain
// environment-variable heuristic can't assemble without pulling in the
// config-resolution chain here, so it is only ever available via
// WithProviders; see DESIGN.md.
func autoDetectProviders(lookupEnv func(string) (string, bool)) []provider.Adapter {
	var adapters []provider.Adapter
	for _, name := range provider.DetectAvailable(lookupEnv) {
		switch name {
		case "anthropic":
			adapters = append(adapters, anthropic.New())
		case "openai":
			adapters = append(adapters, openai.New())
		case "gemini":
			key, _ := lookupEnv("GEMINI_API_KEY")
			if key == "" {
				key, _ = lookupEnv("GOOGLE_API_KEY")
			}
			adapters = append(adapters, gemini.New(key, nil))
		}
	}
	return adapters
}

// Run starts a single-shot agent execution against a fresh session.
// Returns an AgentStream for iterating over events.
func (a *Agent) Run(ctx context.Context, task string) *AgentStream {
	session := newSession()

	if a.opts.budget.Sign() <= 0 {
		return a.errorStream(session, fmt.Errorf("agent: budget must be positive, got %s", a.opts.budget))
	}
	if a.buildErr != nil {
		return a.errorStream(session, a.buildErr)
	}

	sbox, err := sandbox.New(a.opts.workDir)
	if err != nil {
		return a.errorStream(session, fmt.Errorf("agent: sandbox setup: %w", err))
	}

	wordCount := len(splitWords(task))
	tracker := budget.NewTracker(a.opts.budget, budget.EstimateInitialSteps(wordCount))

	rtr, err := router.New(a.opts.catalog, a.registry.Names(), tracker)
	if err != nil {
		return a.errorStream(session, err)
	}

	eventCh := make(chan Event, DefaultStreamBufferSize)
	stream := newStream(eventCh, session)
	sink := &channelSink{ch: eventCh}

	loop := &steploop.Loop{
		Router:    rtr,
		Tracker:   tracker,
		Sandbox:   sbox,
		Providers: a.registry,
		Sink:      sink,
		WorkDir:   a.opts.workDir,
	}

	ctx = logctx.With(ctx, a.opts.logger)

	go func() {
		defer close(eventCh)
		result := loop.Run(ctx, task, &session.Messages)
		session.Summary = SessionSummary{
			TotalCost:  tracker.Spent(),
			Records:    tracker.Records(),
			Steps:      result.Steps,
			Completed:  result.Completed,
			TaskResult: result.Summary,
		}
		if !result.Completed && !sink.budgetExhausted && result.Steps > steploop.MaxSteps {
			sink.OnError(ErrMaxStepsExceeded)
		}
	}()

	return stream
}

// errorStream returns a stream that immediately yields a single
// ErrorEvent and closes.
func (a *Agent) errorStream(session *Session, err error) *AgentStream {
	ch := make(chan Event, 1)
	ch <- &ErrorEvent{Err: err}
	close(ch)
	return newStream(ch, session)
}

// splitWords is the coarse whitespace tokenizer budget.EstimateInitialSteps'
// word-count heuristic expects.
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

// channelSink adapts steploop.EventSink to the channel-based AgentStream,
// mirroring the teacher's own channelSink. It remembers whether the run
// ended by exhausting its budget, so Run can avoid also reporting
// ErrMaxStepsExceeded for the same terminal step.
type channelSink struct {
	ch              chan Event
	budgetExhausted bool
}

func (s *channelSink) OnStep(step int, stepType router.StepType, modelID string) {
	s.ch <- &StepEvent{Step: step, StepType: stepType, ModelID: modelID}
}

func (s *channelSink) OnAssistantText(text string) {
	s.ch <- &AssistantTextEvent{Text: text}
}

func (s *channelSink) OnToolCall(name string, input json.RawMessage) {
	s.ch <- &ToolCallEvent{Name: name, Input: input}
}

func (s *channelSink) OnToolResult(name, result string) {
	s.ch <- &ToolResultEvent{Name: name, Result: result}
}

func (s *channelSink) OnComplete(summary string) {
	s.ch <- &CompleteEvent{Summary: summary}
}

func (s *channelSink) OnBudgetExhausted() {
	s.budgetExhausted = true
	s.ch <- &BudgetExhaustedEvent{}
}

func (s *channelSink) OnError(err error) {
	s.ch <- &ErrorEvent{Err: err}
}
