// Package provider defines the shared contract every model family adapter
// implements (spec.md §4.3) plus the provider-agnostic wire types used to
// describe a completion request and its result. Each concrete adapter
// lives in its own subpackage and owns no state shared with its peers.
package provider

import (
	"context"
	"errors"
)

// Role identifies who produced a message-history entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ToolCallRequest is a normalized tool invocation emitted by a model, with
// a stable call id the adapter invents if the underlying API does not
// supply one, so a later ToolResult can reference it unambiguously.
type ToolCallRequest struct {
	CallID string
	Name   string
	Input  []byte // raw JSON object
}

// ToolResult is the outcome of executing a ToolCallRequest, threaded back
// into the next request's message history.
type ToolResult struct {
	CallID  string
	Content string
	IsError bool
}

// Entry is one turn in the shared, provider-agnostic message history.
// An assistant entry carrying ToolCalls is re-serialized by the adapter
// so the API sees the same call ids the following ToolResults reference.
type Entry struct {
	Role      Role
	Text      string
	ToolCalls []ToolCallRequest
	ToolResults []ToolResult
}

// ToolDefinition describes one sandbox tool in provider-agnostic form; the
// adapter's ConvertTools translates the slice into the native tool schema.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// StopReason is the adapter-normalized completion stop reason, per
// spec.md §4.3: every provider's native finish reason collapses into one
// of these three.
type StopReason string

const (
	StopEndTurn   StopReason = "end-turn"
	StopToolUse   StopReason = "tool-use"
	StopMaxTokens StopReason = "max-tokens"
)

// CompletionRequest is the provider-agnostic input to Complete.
type CompletionRequest struct {
	Messages        []Entry
	Tools           []ToolDefinition
	ModelID         string
	SystemText      string
	MaxOutputTokens int
}

// CompletionResult is the provider-agnostic, normalized output of Complete.
// Token counts come from the provider's usage metadata; zero is acceptable
// only when the provider does not report a given count.
type CompletionResult struct {
	Text         string
	ToolCalls    []ToolCallRequest
	StopReason   StopReason
	InputTokens  int
	OutputTokens int
}

// ErrProviderCall wraps a provider-specific failure. Adapters do not
// retry; the step loop decides whether to fall back to another provider.
var ErrProviderCall = errors.New("provider: completion call failed")

// Adapter is implemented once per external model family (spec.md §4.3).
// Implementations must not share state with one another.
type Adapter interface {
	// Complete translates req into the native API shape, invokes the
	// API, and normalizes the response.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error)
	// ConvertTools returns the native tool list for this provider, used
	// internally by Complete and exposed for adapters that need it ahead
	// of a call (e.g. to estimate tokens).
	ConvertTools(tools []ToolDefinition) any
	// Name identifies the provider family, matching router.ModelInfo.Provider.
	Name() string
}
