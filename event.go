package agent

import (
	"encoding/json"

	"github.com/foremanhq/foreman/internal/router"
)

// EventType identifies the kind of event emitted by an AgentStream.
type EventType string

const (
	EventStep            EventType = "step"
	EventAssistantText   EventType = "assistant_text"
	EventToolCall        EventType = "tool_call"
	EventToolResult      EventType = "tool_result"
	EventComplete        EventType = "complete"
	EventBudgetExhausted EventType = "budget_exhausted"
	EventError           EventType = "error"
)

// Event is the interface implemented by all events emitted through AgentStream.
type Event interface {
	Type() EventType
}

// StepEvent is emitted at the start of every step loop iteration.
type StepEvent struct {
	Step     int
	StepType router.StepType
	ModelID  string
}

func (e *StepEvent) Type() EventType { return EventStep }

// AssistantTextEvent carries the model's text output for one step.
type AssistantTextEvent struct {
	Text string
}

func (e *AssistantTextEvent) Type() EventType { return EventAssistantText }

// ToolCallEvent is emitted when the model requests a tool call.
type ToolCallEvent struct {
	Name  string
	Input json.RawMessage
}

func (e *ToolCallEvent) Type() EventType { return EventToolCall }

// ToolResultEvent carries a tool's result text back to the caller.
type ToolResultEvent struct {
	Name   string
	Result string
}

func (e *ToolResultEvent) Type() EventType { return EventToolResult }

// CompleteEvent is emitted once, when the model calls task_complete.
type CompleteEvent struct {
	Summary string
}

func (e *CompleteEvent) Type() EventType { return EventComplete }

// BudgetExhaustedEvent is emitted when the tracker can't afford another step.
type BudgetExhaustedEvent struct{}

func (e *BudgetExhaustedEvent) Type() EventType { return EventBudgetExhausted }

// ErrorEvent carries a terminal error from the step loop or provider calls.
type ErrorEvent struct {
	Err error
}

func (e *ErrorEvent) Type() EventType { return EventError }
