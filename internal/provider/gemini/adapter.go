// Package gemini adapts the Generative Language API's generateContent
// REST endpoint to the shared provider.Adapter contract. No repository in
// the retrieval pack imports a Gemini/GenAI Go SDK, so this adapter's
// transport is built on net/http rather than a third-party client; see
// DESIGN.md for the scope of that exception.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/foremanhq/foreman/internal/provider"
)

const baseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// baseURLOverride lets tests point Complete at an httptest server instead
// of the real API host.
var baseURLOverride string

// Adapter talks to the Generative Language API over HTTP.
type Adapter struct {
	apiKey     string
	httpClient *http.Client
}

// New builds an Adapter. httpClient may be nil, in which case
// http.DefaultClient is used.
func New(apiKey string, httpClient *http.Client) *Adapter {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Adapter{apiKey: apiKey, httpClient: httpClient}
}

func (a *Adapter) Name() string { return "gemini" }

type geminiFunctionDecl struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type geminiTool struct {
	FunctionDeclarations []geminiFunctionDecl `json:"functionDeclarations"`
}

// ConvertTools returns a single-element []geminiTool, the shape the
// generateContent request body expects.
func (a *Adapter) ConvertTools(tools []provider.ToolDefinition) any {
	if len(tools) == 0 {
		return nil
	}
	decls := make([]geminiFunctionDecl, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, geminiFunctionDecl{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.InputSchema,
		})
	}
	return []geminiTool{{FunctionDeclarations: decls}}
}

type geminiPart struct {
	Text             string          `json:"text,omitempty"`
	FunctionCall     *geminiFuncCall `json:"functionCall,omitempty"`
	FunctionResponse *geminiFuncResp `json:"functionResponse,omitempty"`
}

type geminiFuncCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type geminiFuncResp struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type generateContentRequest struct {
	Contents          []geminiContent `json:"contents"`
	Tools             any             `json:"tools,omitempty"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	GenerationConfig  struct {
		MaxOutputTokens int `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// Complete POSTs a generateContent request and normalizes the response.
// The call-id for a function call is built from the function name and the
// part's index ("name-index") since the API does not supply one.
func (a *Adapter) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResult, error) {
	body := generateContentRequest{Contents: convertMessages(req.Messages)}
	body.GenerationConfig.MaxOutputTokens = req.MaxOutputTokens
	if req.SystemText != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.SystemText}}}
	}
	if tools := a.ConvertTools(req.Tools); tools != nil {
		body.Tools = tools
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return provider.CompletionResult{}, fmt.Errorf("%w: marshal request: %s", provider.ErrProviderCall, err)
	}

	base := baseURL
	if baseURLOverride != "" {
		base = baseURLOverride
	}
	url := fmt.Sprintf("%s/%s:generateContent?key=%s", base, req.ModelID, a.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return provider.CompletionResult{}, fmt.Errorf("%w: build request: %s", provider.ErrProviderCall, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return provider.CompletionResult{}, fmt.Errorf("%w: %s", provider.ErrProviderCall, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return provider.CompletionResult{}, fmt.Errorf("%w: read response: %s", provider.ErrProviderCall, err)
	}
	if resp.StatusCode != http.StatusOK {
		return provider.CompletionResult{}, fmt.Errorf("%w: status %d: %s", provider.ErrProviderCall, resp.StatusCode, respBody)
	}

	var parsed generateContentResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return provider.CompletionResult{}, fmt.Errorf("%w: unmarshal response: %s", provider.ErrProviderCall, err)
	}

	return normalizeResponse(parsed), nil
}

func convertMessages(entries []provider.Entry) []geminiContent {
	var out []geminiContent
	for _, e := range entries {
		role := "user"
		var parts []geminiPart

		switch e.Role {
		case provider.RoleUser:
			if e.Text != "" {
				parts = append(parts, geminiPart{Text: e.Text})
			}
			for _, tr := range e.ToolResults {
				parts = append(parts, geminiPart{
					FunctionResponse: &geminiFuncResp{
						Name:     tr.CallID,
						Response: map[string]any{"result": tr.Content, "isError": tr.IsError},
					},
				})
			}
		case provider.RoleAssistant:
			role = "model"
			if e.Text != "" {
				parts = append(parts, geminiPart{Text: e.Text})
			}
			for _, tc := range e.ToolCalls {
				var args map[string]any
				_ = json.Unmarshal(tc.Input, &args)
				parts = append(parts, geminiPart{
					FunctionCall: &geminiFuncCall{Name: tc.Name, Args: args},
				})
			}
		}

		out = append(out, geminiContent{Role: role, Parts: parts})
	}
	return out
}

func normalizeResponse(resp generateContentResponse) provider.CompletionResult {
	result := provider.CompletionResult{
		InputTokens:  resp.UsageMetadata.PromptTokenCount,
		OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
	}
	if len(resp.Candidates) == 0 {
		result.StopReason = provider.StopEndTurn
		return result
	}

	candidate := resp.Candidates[0]
	for i, part := range candidate.Content.Parts {
		if part.Text != "" {
			result.Text += part.Text
		}
		if part.FunctionCall != nil {
			input, _ := json.Marshal(part.FunctionCall.Args)
			result.ToolCalls = append(result.ToolCalls, provider.ToolCallRequest{
				CallID: fmt.Sprintf("%s-%d", part.FunctionCall.Name, i),
				Name:   part.FunctionCall.Name,
				Input:  input,
			})
		}
	}

	switch candidate.FinishReason {
	case "MAX_TOKENS":
		result.StopReason = provider.StopMaxTokens
	default:
		if len(result.ToolCalls) > 0 {
			result.StopReason = provider.StopToolUse
		} else {
			result.StopReason = provider.StopEndTurn
		}
	}

	return result
}
