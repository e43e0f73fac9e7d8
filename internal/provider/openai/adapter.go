// Package openai adapts github.com/openai/openai-go to the shared
// provider.Adapter contract.
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/foremanhq/foreman/internal/provider"
)

// Adapter wraps an openai.Client. It holds no state shared with other
// provider adapters.
type Adapter struct {
	client openai.Client
}

// New builds an Adapter from client options.
func New(opts ...option.RequestOption) *Adapter {
	return &Adapter{client: openai.NewClient(opts...)}
}

func (a *Adapter) Name() string { return "openai" }

// ConvertTools returns []openai.ChatCompletionToolParam for the given
// tool definitions.
func (a *Adapter) ConvertTools(tools []provider.ToolDefinition) any {
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  t.InputSchema,
			},
		})
	}
	return out
}

// Complete translates req into a chat.completions call, invokes the API,
// and normalizes the response. OpenAI's API already pairs each assistant
// tool call with its own result message, so no extra batching is done: a
// user Entry becomes a user message when it has text, plus one tool
// message per tool result.
func (a *Adapter) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResult, error) {
	params := openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(req.ModelID),
		MaxTokens: openai.Int(int64(req.MaxOutputTokens)),
	}

	if req.SystemText != "" {
		params.Messages = append(params.Messages, openai.SystemMessage(req.SystemText))
	}
	params.Messages = append(params.Messages, convertMessages(req.Messages)...)

	if tools, ok := a.ConvertTools(req.Tools).([]openai.ChatCompletionToolParam); ok && len(tools) > 0 {
		params.Tools = tools
	}

	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return provider.CompletionResult{}, fmt.Errorf("%w: %s", provider.ErrProviderCall, err)
	}

	return normalizeResponse(resp), nil
}

func convertMessages(entries []provider.Entry) []openai.ChatCompletionMessageParamUnion {
	var out []openai.ChatCompletionMessageParamUnion
	for _, e := range entries {
		switch e.Role {
		case provider.RoleUser:
			if e.Text != "" {
				out = append(out, openai.UserMessage(e.Text))
			}
			for _, tr := range e.ToolResults {
				out = append(out, openai.ToolMessage(tr.Content, tr.CallID))
			}
		case provider.RoleAssistant:
			msg := openai.ChatCompletionAssistantMessageParam{}
			if e.Text != "" {
				msg.Content.OfString = openai.String(e.Text)
			}
			for _, tc := range e.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: tc.CallID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: string(tc.Input),
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &msg})
		}
	}
	return out
}

func normalizeResponse(resp *openai.ChatCompletion) provider.CompletionResult {
	result := provider.CompletionResult{
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}
	if len(resp.Choices) == 0 {
		result.StopReason = provider.StopEndTurn
		return result
	}

	choice := resp.Choices[0]
	result.Text = choice.Message.Content

	for _, tc := range choice.Message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, provider.ToolCallRequest{
			CallID: tc.ID,
			Name:   tc.Function.Name,
			Input:  json.RawMessage(tc.Function.Arguments),
		})
	}

	switch choice.FinishReason {
	case "tool_calls":
		result.StopReason = provider.StopToolUse
	case "length":
		result.StopReason = provider.StopMaxTokens
	default:
		result.StopReason = provider.StopEndTurn
	}

	return result
}
