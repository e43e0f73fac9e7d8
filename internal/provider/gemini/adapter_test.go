package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foremanhq/foreman/internal/provider"
)

func TestComplete_NormalizesTextResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := generateContentResponse{}
		resp.UsageMetadata.PromptTokenCount = 42
		resp.UsageMetadata.CandidatesTokenCount = 7
		resp.Candidates = []struct {
			Content      geminiContent `json:"content"`
			FinishReason string        `json:"finishReason"`
		}{
			{Content: geminiContent{Role: "model", Parts: []geminiPart{{Text: "hello"}}}, FinishReason: "STOP"},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	a := New("key", srv.Client())

	result, err := completeAgainst(srv.URL, a, provider.CompletionRequest{
		ModelID:         "gemini-pro",
		MaxOutputTokens: 100,
		Messages:        []provider.Entry{{Role: provider.RoleUser, Text: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", result.Text)
	assert.Equal(t, 42, result.InputTokens)
	assert.Equal(t, 7, result.OutputTokens)
	assert.Equal(t, provider.StopEndTurn, result.StopReason)
}

func TestConvertTools_EmptyReturnsNil(t *testing.T) {
	a := New("key", nil)
	assert.Nil(t, a.ConvertTools(nil))
}

func TestConvertTools_BuildsFunctionDeclarations(t *testing.T) {
	a := New("key", nil)
	tools := a.ConvertTools([]provider.ToolDefinition{
		{Name: "read_file", Description: "reads a file", InputSchema: map[string]any{"type": "object"}},
	})
	geminiTools, ok := tools.([]geminiTool)
	require.True(t, ok)
	require.Len(t, geminiTools, 1)
	assert.Equal(t, "read_file", geminiTools[0].FunctionDeclarations[0].Name)
}

// completeAgainst calls Complete but against an arbitrary base URL,
// exercising the same marshal/unmarshal path as Complete without
// depending on the real Generative Language API host.
func completeAgainst(serverURL string, a *Adapter, req provider.CompletionRequest) (provider.CompletionResult, error) {
	orig := baseURLOverride
	baseURLOverride = serverURL
	defer func() { baseURLOverride = orig }()
	return a.Complete(context.Background(), req)
}
