// Package bedrock adapts github.com/aws/aws-sdk-go-v2/service/bedrockruntime
// (the Converse API) to the shared provider.Adapter contract, exposing
// Claude-family models through AWS's managed runtime as a fourth
// registry provider.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go/document"

	"github.com/foremanhq/foreman/internal/provider"
)

// Adapter wraps a *bedrockruntime.Client.
type Adapter struct {
	client *bedrockruntime.Client
}

// New builds an Adapter from an already-configured bedrockruntime.Client
// (aws.Config resolution is the caller's concern, mirroring how the
// teacher leaves anthropic.NewClient's transport options to its callers).
func New(client *bedrockruntime.Client) *Adapter {
	return &Adapter{client: client}
}

func (a *Adapter) Name() string { return "bedrock" }

// ConvertTools returns a []types.Tool for the Converse API's toolConfig.
func (a *Adapter) ConvertTools(tools []provider.ToolDefinition) any {
	out := make([]types.Tool, 0, len(tools))
	for _, t := range tools {
		schemaBytes, _ := json.Marshal(t.InputSchema)
		out = append(out, &types.ToolMemberToolSpec{
			Value: types.ToolSpecification{
				Name:        aws.String(t.Name),
				Description: aws.String(t.Description),
				InputSchema: &types.ToolInputSchemaMemberJson{
					Value: document.NewLazyDocument(json.RawMessage(schemaBytes)),
				},
			},
		})
	}
	return out
}

// Complete invokes bedrockruntime.Converse and normalizes the response.
func (a *Adapter) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResult, error) {
	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(req.ModelID),
		Messages: convertMessages(req.Messages),
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens: aws.Int32(int32(req.MaxOutputTokens)),
		},
	}
	if req.SystemText != "" {
		input.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: req.SystemText},
		}
	}
	if tools, ok := a.ConvertTools(req.Tools).([]types.Tool); ok && len(tools) > 0 {
		input.ToolConfig = &types.ToolConfiguration{Tools: tools}
	}

	out, err := a.client.Converse(ctx, input)
	if err != nil {
		return provider.CompletionResult{}, fmt.Errorf("%w: %s", provider.ErrProviderCall, err)
	}

	return normalizeOutput(out), nil
}

func convertMessages(entries []provider.Entry) []types.Message {
	var out []types.Message
	for _, e := range entries {
		var blocks []types.ContentBlock
		if e.Text != "" {
			blocks = append(blocks, &types.ContentBlockMemberText{Value: e.Text})
		}
		for _, tr := range e.ToolResults {
			status := types.ToolResultStatusSuccess
			if tr.IsError {
				status = types.ToolResultStatusError
			}
			blocks = append(blocks, &types.ContentBlockMemberToolResult{
				Value: types.ToolResultBlock{
					ToolUseId: aws.String(tr.CallID),
					Status:    status,
					Content: []types.ToolResultContentBlock{
						&types.ToolResultContentBlockMemberText{Value: tr.Content},
					},
				},
			})
		}
		for _, tc := range e.ToolCalls {
			var input any
			_ = json.Unmarshal(tc.Input, &input)
			blocks = append(blocks, &types.ContentBlockMemberToolUse{
				Value: types.ToolUseBlock{
					ToolUseId: aws.String(tc.CallID),
					Name:      aws.String(tc.Name),
					Input:     document.NewLazyDocument(input),
				},
			})
		}

		role := types.ConversationRoleUser
		if e.Role == provider.RoleAssistant {
			role = types.ConversationRoleAssistant
		}
		out = append(out, types.Message{Role: role, Content: blocks})
	}
	return out
}

func normalizeOutput(out *bedrockruntime.ConverseOutput) provider.CompletionResult {
	result := provider.CompletionResult{}
	if out.Usage != nil {
		result.InputTokens = int(aws.ToInt32(out.Usage.InputTokens))
		result.OutputTokens = int(aws.ToInt32(out.Usage.OutputTokens))
	}

	if msgOutput, ok := out.Output.(*types.ConverseOutputMemberMessage); ok {
		for _, block := range msgOutput.Value.Content {
			switch b := block.(type) {
			case *types.ContentBlockMemberText:
				result.Text += b.Value
			case *types.ContentBlockMemberToolUse:
				var input []byte
				_ = b.Value.Input.UnmarshalSmithyDocument(&input)
				result.ToolCalls = append(result.ToolCalls, provider.ToolCallRequest{
					CallID: aws.ToString(b.Value.ToolUseId),
					Name:   aws.ToString(b.Value.Name),
					Input:  input,
				})
			}
		}
	}

	switch out.StopReason {
	case types.StopReasonToolUse:
		result.StopReason = provider.StopToolUse
	case types.StopReasonMaxTokens:
		result.StopReason = provider.StopMaxTokens
	default:
		result.StopReason = provider.StopEndTurn
	}

	return result
}
