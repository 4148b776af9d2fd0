package providers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihaisavezi/claude-code-open/internal/config"
	"github.com/mihaisavezi/claude-code-open/internal/transform"
	"github.com/mihaisavezi/claude-code-open/internal/unified"
)

func TestBuildChain_ProviderNameStages(t *testing.T) {
	openaiChain := BuildChain("openai", config.Provider{Name: "openai"})
	names := stageNames(openaiChain)
	assert.Contains(t, names, "gpt5")
	assert.NotContains(t, names, "openrouter")

	orChain := BuildChain("openrouter", config.Provider{Name: "openrouter"})
	names = stageNames(orChain)
	assert.Contains(t, names, "openrouter")
	assert.NotContains(t, names, "gpt5")
}

func TestBuildChain_TransformerListStages(t *testing.T) {
	chain := BuildChain("moonshot", config.Provider{Name: "moonshot", Transformer: []string{"kimi-k2"}})
	names := stageNames(chain)
	assert.Contains(t, names, "kimi-k2")
	assert.NotContains(t, names, "minimax-m2")

	chain = BuildChain("minimax", config.Provider{Name: "minimax", Transformer: []string{"minimax-m2"}})
	names = stageNames(chain)
	assert.Contains(t, names, "minimax-m2")
}

func TestBuildChain_AlwaysCarriesDeepseekStage(t *testing.T) {
	chain := BuildChain("anything", config.Provider{Name: "anything"})
	assert.Contains(t, stageNames(chain), "deepseek")
}

func stageNames(c transform.Chain) []string {
	names := make([]string, 0, len(c.Stages))
	for _, s := range c.Stages {
		names = append(names, s.Name)
	}
	return names
}

func TestAdaptGPT5RequestBody_RenamesMaxTokensAndDropsNonDefaultTemperature(t *testing.T) {
	body := map[string]any{
		"max_tokens":  float64(512),
		"temperature": float64(0.4),
	}
	out := AdaptGPT5RequestBody("gpt-5", body)

	assert.Equal(t, float64(512), out["max_completion_tokens"])
	_, hasMaxTokens := out["max_tokens"]
	assert.False(t, hasMaxTokens)
	_, hasTemp := out["temperature"]
	assert.False(t, hasTemp)
}

func TestAdaptGPT5RequestBody_KeepsDefaultTemperature(t *testing.T) {
	body := map[string]any{"temperature": float64(1)}
	out := AdaptGPT5RequestBody("gpt-5", body)
	assert.Equal(t, float64(1), out["temperature"])
}

func TestAdaptGPT5RequestBody_LiftsReasoningEffort(t *testing.T) {
	body := map[string]any{
		"reasoning": map[string]any{"effort": "high"},
	}
	out := AdaptGPT5RequestBody("gpt-5", body)
	assert.Equal(t, "high", out["reasoning_effort"])
	_, hasReasoning := out["reasoning"]
	assert.False(t, hasReasoning)
}

func TestAdaptGPT5RequestBody_InvalidVerbosityDropped(t *testing.T) {
	body := map[string]any{"verbosity": "extreme"}
	out := AdaptGPT5RequestBody("gpt-5", body)
	_, ok := out["verbosity"]
	assert.False(t, ok)
}

func TestAdaptGPT5RequestBody_NonGPT5ModelUntouched(t *testing.T) {
	body := map[string]any{"max_tokens": float64(100)}
	out := AdaptGPT5RequestBody("gpt-4o", body)
	assert.Equal(t, float64(100), out["max_tokens"])
}

func TestAdaptGPT5ResponseMessage_WrapsReasoningContent(t *testing.T) {
	out := AdaptGPT5ResponseMessage("gpt-5", "hello", "thinking...")
	assert.Equal(t, "<reasoning>thinking...</reasoning>hello", out)
}

func TestAdaptGPT5ResponseMessage_NoReasoningLeavesTextAlone(t *testing.T) {
	out := AdaptGPT5ResponseMessage("gpt-5", "hello", "")
	assert.Equal(t, "hello", out)
}

func TestAdaptOpenRouterRequestBody_AddsProviderOrder(t *testing.T) {
	body := map[string]any{"model": "test"}
	out := AdaptOpenRouterRequestBody("some-model", body, []string{"fireworks", "together"})
	provider, ok := out["provider"].(map[string]any)
	require.True(t, ok)
	order, ok := provider["order"].([]any)
	require.True(t, ok)
	assert.Equal(t, []any{"fireworks", "together"}, order)
}

func TestAdaptOpenRouterRequestBody_StripsCacheControlForNonClaudeModel(t *testing.T) {
	body := map[string]any{
		"messages": []any{
			map[string]any{
				"cache_control": map[string]any{"type": "ephemeral"},
				"content": []any{
					map[string]any{"type": "text", "text": "hi", "cache_control": map[string]any{"type": "ephemeral"}},
				},
			},
		},
	}
	out := AdaptOpenRouterRequestBody("deepseek/deepseek-chat", body, nil)
	messages := out["messages"].([]any)
	msg := messages[0].(map[string]any)
	_, hasCacheControl := msg["cache_control"]
	assert.False(t, hasCacheControl)
	part := msg["content"].([]any)[0].(map[string]any)
	_, hasPartCacheControl := part["cache_control"]
	assert.False(t, hasPartCacheControl)
}

func TestAdaptOpenRouterRequestBody_LeavesClaudeModelUntouched(t *testing.T) {
	body := map[string]any{
		"messages": []any{
			map[string]any{"cache_control": map[string]any{"type": "ephemeral"}},
		},
	}
	out := AdaptOpenRouterRequestBody("anthropic/claude-3-5-sonnet", body, nil)
	msg := out["messages"].([]any)[0].(map[string]any)
	_, hasCacheControl := msg["cache_control"]
	assert.True(t, hasCacheControl)
}

func TestAdaptOpenRouterHeaders(t *testing.T) {
	header := http.Header{}
	AdaptOpenRouterHeaders(header, "https://example.com", "My App")
	assert.Equal(t, "https://example.com", header.Get("HTTP-Referer"))
	assert.Equal(t, "My App", header.Get("X-Title"))
}

func TestAdaptOpenRouterHeaders_EmptyValuesOmitted(t *testing.T) {
	header := http.Header{}
	AdaptOpenRouterHeaders(header, "", "")
	assert.Empty(t, header.Get("HTTP-Referer"))
	assert.Empty(t, header.Get("X-Title"))
}

func TestOpenRouterQuirkState_RemapsNumericToolID(t *testing.T) {
	state := &OpenRouterQuirkState{}
	events := []unified.StreamEvent{{ToolID: "12345"}}
	out := state.Apply(events)
	assert.Equal(t, "call_12345", out[0].ToolID)
}

func TestOpenRouterQuirkState_RelabelsFinishReasonAfterToolUse(t *testing.T) {
	state := &OpenRouterQuirkState{}
	events := []unified.StreamEvent{
		{Type: unified.EventContentBlockStart, Block: unified.BlockToolUse},
	}
	state.Apply(events)

	events = []unified.StreamEvent{
		{Type: unified.EventMessageDelta, FinishReason: unified.FinishEndTurn},
	}
	out := state.Apply(events)
	assert.Equal(t, unified.FinishToolUse, out[0].FinishReason)
}

func TestOpenRouterStage_AuthHookAddsNoHeadersWithoutValues(t *testing.T) {
	stage := openRouterStage()
	req, err := http.NewRequest(http.MethodPost, "https://openrouter.ai/api/v1/chat/completions", nil)
	require.NoError(t, err)
	require.NoError(t, stage.Auth(context.Background(), req, "openrouter"))
	assert.Empty(t, req.Header.Get("HTTP-Referer"))
}
