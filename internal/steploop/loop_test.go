package steploop

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foremanhq/foreman/internal/budget"
	"github.com/foremanhq/foreman/internal/provider"
	"github.com/foremanhq/foreman/internal/router"
)

var testPricing = budget.Pricing{InputPerMTok: decimal.NewFromInt(1), OutputPerMTok: decimal.NewFromInt(2)}

var testCatalog = []router.ModelInfo{
	{ID: "test-model", Provider: "test", Tier: budget.TierStandard, Pricing: testPricing},
}

type fakeAdapter struct {
	name      string
	responses []provider.CompletionResult
	calls     int
	err       error
}

func (f *fakeAdapter) Name() string                             { return f.name }
func (f *fakeAdapter) ConvertTools(_ []provider.ToolDefinition) any { return nil }
func (f *fakeAdapter) Complete(_ context.Context, _ provider.CompletionRequest) (provider.CompletionResult, error) {
	if f.err != nil {
		return provider.CompletionResult{}, f.err
	}
	r := f.responses[f.calls]
	if f.calls < len(f.responses)-1 {
		f.calls++
	}
	return r, nil
}

type fakeProviders struct {
	adapters map[string]provider.Adapter
}

func (p *fakeProviders) Get(name string) (provider.Adapter, bool) {
	a, ok := p.adapters[name]
	return a, ok
}
func (p *fakeProviders) Names() []string {
	names := make([]string, 0, len(p.adapters))
	for n := range p.adapters {
		names = append(names, n)
	}
	return names
}

type fakeSandbox struct{}

func (fakeSandbox) Execute(name string, input json.RawMessage) string {
	return "ok"
}

type recordingSink struct {
	completedSummary string
	budgetExhausted  bool
	errors           []error
}

func (s *recordingSink) OnStep(step int, stepType router.StepType, modelID string) {}
func (s *recordingSink) OnAssistantText(text string)                               {}
func (s *recordingSink) OnToolCall(name string, input json.RawMessage)             {}
func (s *recordingSink) OnToolResult(name, result string)                          {}
func (s *recordingSink) OnComplete(summary string)                                 { s.completedSummary = summary }
func (s *recordingSink) OnBudgetExhausted()                                        { s.budgetExhausted = true }
func (s *recordingSink) OnError(err error)                                         { s.errors = append(s.errors, err) }

func newTestLoop(t *testing.T, adapter *fakeAdapter, tracker *budget.Tracker) *Loop {
	t.Helper()
	r, err := router.New(testCatalog, []string{"test"}, tracker)
	require.NoError(t, err)

	return &Loop{
		Router:    r,
		Tracker:   tracker,
		Sandbox:   fakeSandbox{},
		Providers: &fakeProviders{adapters: map[string]provider.Adapter{"test": adapter}},
		Sink:      &recordingSink{},
		WorkDir:   t.TempDir(),
	}
}

func TestRun_CompletesOnTaskComplete(t *testing.T) {
	adapter := &fakeAdapter{
		name: "test",
		responses: []provider.CompletionResult{
			{
				Text:       "working on it",
				ToolCalls:  []provider.ToolCallRequest{{CallID: "1", Name: "task_complete", Input: []byte(`{"summary":"all done"}`)}},
				StopReason: provider.StopToolUse,
			},
		},
	}
	tracker := budget.NewTracker(decimal.NewFromInt(100), 10)
	loop := newTestLoop(t, adapter, tracker)

	var messages []provider.Entry
	result := loop.Run(context.Background(), "do the thing", &messages)

	assert.True(t, result.Completed)
	assert.Equal(t, "all done", result.Summary)
	assert.Equal(t, 1, result.Steps)
}

func TestRun_GracefulEarlyTerminationAfterStepOne(t *testing.T) {
	adapter := &fakeAdapter{
		name: "test",
		responses: []provider.CompletionResult{
			{Text: "let me plan", StopReason: provider.StopEndTurn},
			{Text: "done thinking", StopReason: provider.StopEndTurn},
		},
	}
	tracker := budget.NewTracker(decimal.NewFromInt(100), 10)
	loop := newTestLoop(t, adapter, tracker)

	var messages []provider.Entry
	result := loop.Run(context.Background(), "do the thing", &messages)

	assert.True(t, result.Completed)
	assert.Equal(t, 2, result.Steps, "step 1 end-turn must NOT terminate; step 2 end-turn must")
}

func TestRun_BudgetExhaustedStopsImmediately(t *testing.T) {
	adapter := &fakeAdapter{name: "test", responses: []provider.CompletionResult{{StopReason: provider.StopEndTurn}}}
	tracker := budget.NewTracker(decimal.NewFromFloat(0.0000001), 1)
	loop := newTestLoop(t, adapter, tracker)
	sink := loop.Sink.(*recordingSink)

	var messages []provider.Entry
	result := loop.Run(context.Background(), "anything", &messages)

	assert.False(t, result.Completed)
	assert.True(t, sink.budgetExhausted)
}

func TestRun_ExecutesToolCallsAndAppendsResults(t *testing.T) {
	adapter := &fakeAdapter{
		name: "test",
		responses: []provider.CompletionResult{
			{
				Text:       "reading a file",
				ToolCalls:  []provider.ToolCallRequest{{CallID: "1", Name: "read_file", Input: []byte(`{"path":"x"}`)}},
				StopReason: provider.StopToolUse,
			},
			{Text: "all good", StopReason: provider.StopEndTurn},
		},
	}
	tracker := budget.NewTracker(decimal.NewFromInt(100), 10)
	loop := newTestLoop(t, adapter, tracker)

	var messages []provider.Entry
	result := loop.Run(context.Background(), "do the thing", &messages)

	assert.True(t, result.Completed)
	require.GreaterOrEqual(t, len(messages), 3)

	found := false
	for _, m := range messages {
		for _, tr := range m.ToolResults {
			if tr.Content == "ok" {
				found = true
			}
		}
	}
	assert.True(t, found, "tool result must be appended to message history")
}

func TestRun_FallsBackToOtherProviderOnFailure(t *testing.T) {
	failing := &fakeAdapter{name: "failing", err: assertError("boom")}
	fallback := &fakeAdapter{
		name: "fallback",
		responses: []provider.CompletionResult{
			{ToolCalls: []provider.ToolCallRequest{{CallID: "1", Name: "task_complete", Input: []byte(`{"summary":"recovered"}`)}}, StopReason: provider.StopToolUse},
		},
	}

	tracker := budget.NewTracker(decimal.NewFromInt(100), 10)
	catalog := []router.ModelInfo{
		{ID: "primary", Provider: "failing", Tier: budget.TierStandard, Pricing: testPricing},
		{ID: "cheap", Provider: "fallback", Tier: budget.TierBudget, Pricing: testPricing},
	}
	r, err := router.New(catalog, []string{"failing", "fallback"}, tracker)
	require.NoError(t, err)

	loop := &Loop{
		Router:  r,
		Tracker: tracker,
		Sandbox: fakeSandbox{},
		Providers: &fakeProviders{adapters: map[string]provider.Adapter{
			"failing":  failing,
			"fallback": fallback,
		}},
		Sink:    &recordingSink{},
		WorkDir: t.TempDir(),
	}

	var messages []provider.Entry
	result := loop.Run(context.Background(), "do the thing", &messages)
	assert.True(t, result.Completed)
	assert.Equal(t, "recovered", result.Summary)
}

type assertError string

func (e assertError) Error() string { return string(e) }
