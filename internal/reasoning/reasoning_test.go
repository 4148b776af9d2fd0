package reasoning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihaisavezi/claude-code-open/internal/unified"
)

func userReq(text string) *unified.UnifiedChatRequest {
	return &unified.UnifiedChatRequest{
		Messages: []unified.UnifiedMessage{
			{Role: unified.RoleUser, Text: text},
		},
	}
}

func TestApplyTokens_PrefixToken(t *testing.T) {
	req := userReq("Deep: explain TCP")
	out := ApplyTokens(req)

	require.NotNil(t, out.ReasoningEffort)
	assert.Equal(t, unified.ReasoningHigh, *out.ReasoningEffort)
	require.NotNil(t, out.Verbosity)
	assert.Equal(t, unified.VerbosityMedium, *out.Verbosity)
	assert.Equal(t, "explain TCP", out.Messages[0].Text)

	// original untouched
	assert.Equal(t, "Deep: explain TCP", req.Messages[0].Text)
	assert.Nil(t, req.ReasoningEffort)
}

func TestApplyTokens_HashtagToken(t *testing.T) {
	req := userReq("what is TCP #quick please")
	out := ApplyTokens(req)

	require.NotNil(t, out.ReasoningEffort)
	assert.Equal(t, unified.ReasoningLow, *out.ReasoningEffort)
	assert.Equal(t, "what is TCP  please", out.Messages[0].Text)
}

func TestApplyTokens_DoesNotOverrideAlreadySetFields(t *testing.T) {
	req := userReq("Brief: hi")
	medium := unified.ReasoningMedium
	req.ReasoningEffort = &medium

	out := ApplyTokens(req)
	assert.Equal(t, unified.ReasoningMedium, *out.ReasoningEffort)
}

func TestApplyTokens_NoMatchReturnsSameRequest(t *testing.T) {
	req := userReq("plain text, no tokens")
	out := ApplyTokens(req)
	assert.Same(t, req, out)
}

func TestNormalizeRequest_AnthropicThinkingBudget(t *testing.T) {
	req := &unified.UnifiedChatRequest{
		Extra: map[string]any{"anthropic_thinking_budget": float64(2000)},
	}
	out := NormalizeRequest(req)

	require.NotNil(t, out.ReasoningEffort)
	assert.Equal(t, unified.ReasoningHigh, *out.ReasoningEffort)
	_, stillPresent := out.Extra["anthropic_thinking_budget"]
	assert.False(t, stillPresent)
}

func TestNormalizeRequest_ReasoningMaxTokensThresholds(t *testing.T) {
	cases := []struct {
		maxTokens float64
		want      unified.ReasoningEffort
	}{
		{1500, unified.ReasoningHigh},
		{800, unified.ReasoningMedium},
		{100, unified.ReasoningMinimal},
	}

	for _, tc := range cases {
		req := &unified.UnifiedChatRequest{
			Extra: map[string]any{"reasoning": map[string]any{"max_tokens": tc.maxTokens}},
		}
		out := NormalizeRequest(req)
		require.NotNil(t, out.ReasoningEffort)
		assert.Equal(t, tc.want, *out.ReasoningEffort)
	}
}

func TestNormalizeRequest_ReasoningEffortPassthrough(t *testing.T) {
	req := &unified.UnifiedChatRequest{
		Extra: map[string]any{"reasoning": map[string]any{"effort": "high"}},
	}
	out := NormalizeRequest(req)
	require.NotNil(t, out.ReasoningEffort)
	assert.Equal(t, unified.ReasoningHigh, *out.ReasoningEffort)
}

func TestNormalizeResponse_ConvertsReasoningContentToTwoPartArray(t *testing.T) {
	msg := &unified.UnifiedMessage{
		Text:        "final answer",
		Annotations: map[string]any{"reasoning_content": "thought process"},
	}
	NormalizeResponse(msg)

	require.Len(t, msg.Content, 2)
	assert.Equal(t, unified.ContentThinking, msg.Content[0].Type)
	assert.Equal(t, "thought process", msg.Content[0].Thinking)
	assert.Equal(t, unified.ContentText, msg.Content[1].Type)
	assert.Equal(t, "final answer", msg.Content[1].Text)
	_, stillPresent := msg.Annotations["reasoning_content"]
	assert.False(t, stillPresent)
}

func TestAccumulator_ObserveThenFinish(t *testing.T) {
	a := NewAccumulator(0)

	first := a.Observe("thinking a")
	require.Len(t, first, 2)
	assert.Equal(t, unified.EventContentBlockStart, first[0].Type)
	assert.Equal(t, unified.EventContentBlockDelta, first[1].Type)

	second := a.Observe("thinking b")
	require.Len(t, second, 1)
	assert.Equal(t, "thinking b", second[0].Text)

	assert.True(t, a.Active())
	finish := a.Finish()
	require.Len(t, finish, 2)
	assert.Equal(t, unified.DeltaThinkingSignature, finish[0].Delta)
	assert.NotEmpty(t, finish[0].Signature)
	assert.Equal(t, unified.EventContentBlockStop, finish[1].Type)
	assert.False(t, a.Active())
}

func TestAccumulator_FinishWithoutObserveReturnsNil(t *testing.T) {
	a := NewAccumulator(0)
	assert.Nil(t, a.Finish())
}
