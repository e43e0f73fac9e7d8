// Package anthropic adapts github.com/anthropics/anthropic-sdk-go to the
// shared provider.Adapter contract.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/foremanhq/foreman/internal/provider"
)

// Adapter wraps an *anthropicsdk.Client. It holds no state shared with
// other provider adapters.
type Adapter struct {
	client *anthropicsdk.Client
}

// New builds an Adapter from client options, passed straight through to
// anthropic.NewClient. The root package's auto-detection calls it with no
// options, so the client reads its credentials from the environment.
func New(opts ...option.RequestOption) *Adapter {
	client := anthropicsdk.NewClient(opts...)
	return &Adapter{client: &client}
}

func (a *Adapter) Name() string { return "anthropic" }

// ConvertTools returns []anthropicsdk.ToolUnionParam for the given tool
// definitions.
func (a *Adapter) ConvertTools(tools []provider.ToolDefinition) any {
	out := make([]anthropicsdk.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, anthropicsdk.ToolUnionParam{
			OfTool: &anthropicsdk.ToolParam{
				Name:        t.Name,
				Description: anthropicsdk.String(t.Description),
				InputSchema: schemaFromMap(t.InputSchema),
			},
		})
	}
	return out
}

func schemaFromMap(m map[string]any) anthropicsdk.ToolInputSchemaParam {
	schema := anthropicsdk.ToolInputSchemaParam{Type: "object"}
	if props, ok := m["properties"]; ok {
		schema.Properties = props
	}
	if req, ok := m["required"].([]string); ok {
		schema.Required = req
	}
	return schema
}

// Complete translates req into an anthropicsdk.MessageNewParams call,
// invokes Messages.New, and normalizes the result. Re-serializes assistant
// tool-call entries and batches consecutive tool results into a single
// user turn, per spec.md §4.3.
func (a *Adapter) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResult, error) {
	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(req.ModelID),
		MaxTokens: int64(req.MaxOutputTokens),
	}
	if req.SystemText != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: req.SystemText}}
	}
	if tools, ok := a.ConvertTools(req.Tools).([]anthropicsdk.ToolUnionParam); ok && len(tools) > 0 {
		params.Tools = tools
	}

	params.Messages = convertMessages(req.Messages)

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return provider.CompletionResult{}, fmt.Errorf("%w: %s", provider.ErrProviderCall, err)
	}

	return normalizeMessage(msg), nil
}

func convertMessages(entries []provider.Entry) []anthropicsdk.MessageParam {
	var out []anthropicsdk.MessageParam
	for _, e := range entries {
		switch e.Role {
		case provider.RoleUser:
			blocks := userBlocks(e)
			out = append(out, anthropicsdk.NewUserMessage(blocks...))
		case provider.RoleAssistant:
			blocks := assistantBlocks(e)
			out = append(out, anthropicsdk.NewAssistantMessage(blocks...))
		}
	}
	return out
}

func userBlocks(e provider.Entry) []anthropicsdk.ContentBlockParamUnion {
	var blocks []anthropicsdk.ContentBlockParamUnion
	if e.Text != "" {
		blocks = append(blocks, anthropicsdk.NewTextBlock(e.Text))
	}
	// Consecutive tool results are batched into this single user turn.
	for _, tr := range e.ToolResults {
		blocks = append(blocks, anthropicsdk.NewToolResultBlock(tr.CallID, tr.Content, tr.IsError))
	}
	return blocks
}

func assistantBlocks(e provider.Entry) []anthropicsdk.ContentBlockParamUnion {
	var blocks []anthropicsdk.ContentBlockParamUnion
	if e.Text != "" {
		blocks = append(blocks, anthropicsdk.NewTextBlock(e.Text))
	}
	for _, tc := range e.ToolCalls {
		var input any
		_ = json.Unmarshal(tc.Input, &input)
		blocks = append(blocks, anthropicsdk.NewToolUseBlock(tc.CallID, input, tc.Name))
	}
	return blocks
}

func normalizeMessage(msg *anthropicsdk.Message) provider.CompletionResult {
	result := provider.CompletionResult{
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}

	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			result.Text += block.AsText().Text
		case "tool_use":
			tu := block.AsToolUse()
			input, _ := json.Marshal(tu.Input)
			result.ToolCalls = append(result.ToolCalls, provider.ToolCallRequest{
				CallID: tu.ID,
				Name:   tu.Name,
				Input:  input,
			})
		}
	}

	switch msg.StopReason {
	case anthropicsdk.StopReasonToolUse:
		result.StopReason = provider.StopToolUse
	case anthropicsdk.StopReasonMaxTokens:
		result.StopReason = provider.StopMaxTokens
	default:
		result.StopReason = provider.StopEndTurn
	}

	return result
}
