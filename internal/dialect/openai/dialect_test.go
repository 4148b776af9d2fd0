package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihaisavezi/claude-code-open/internal/unified"
)

func TestRequestIn_PlainStringContent(t *testing.T) {
	body := []byte(`{
		"model": "gpt-4o",
		"messages": [
			{"role":"system","content":"be terse"},
			{"role":"user","content":"hello"}
		]
	}`)

	req, err := RequestIn(context.Background(), body)
	require.NoError(t, err)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, unified.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, "be terse", req.Messages[0].Text)
	assert.Equal(t, unified.RoleUser, req.Messages[1].Role)
	assert.Equal(t, "hello", req.Messages[1].Text)
}

func TestRequestIn_DeveloperRoleNormalizedToSystem(t *testing.T) {
	body := []byte(`{"model":"gpt-5","messages":[{"role":"developer","content":"be terse"}]}`)
	req, err := RequestIn(context.Background(), body)
	require.NoError(t, err)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, unified.RoleSystem, req.Messages[0].Role)
}

func TestRequestIn_ToolCallsAndToolResult(t *testing.T) {
	body := []byte(`{
		"model": "gpt-4o",
		"messages": [
			{"role":"assistant","content":null,"tool_calls":[
				{"id":"call_1","type":"function","function":{"name":"get_weather","arguments":"{\"city\":\"SF\"}"}}
			]},
			{"role":"tool","tool_call_id":"call_1","content":"72F and sunny"}
		]
	}`)

	req, err := RequestIn(context.Background(), body)
	require.NoError(t, err)
	require.Len(t, req.Messages, 2)

	assistant := req.Messages[0]
	require.Len(t, assistant.ToolCalls, 1)
	assert.Equal(t, "call_1", assistant.ToolCalls[0].ID)
	assert.Equal(t, "get_weather", assistant.ToolCalls[0].Name)

	toolMsg := req.Messages[1]
	assert.Equal(t, unified.RoleTool, toolMsg.Role)
	require.Len(t, toolMsg.Content, 1)
	assert.Equal(t, unified.ContentToolResult, toolMsg.Content[0].Type)
	assert.Equal(t, "call_1", toolMsg.Content[0].ToolResultFor)
	assert.Equal(t, "72F and sunny", toolMsg.Content[0].ToolResult)
}

func TestRequestIn_ContentPartsArray(t *testing.T) {
	body := []byte(`{
		"model": "gpt-4o",
		"messages": [
			{"role":"user","content":[
				{"type":"text","text":"what is this"},
				{"type":"image_url","image_url":{"url":"https://example.com/cat.png"}}
			]}
		]
	}`)
	req, err := RequestIn(context.Background(), body)
	require.NoError(t, err)
	require.Len(t, req.Messages, 1)
	msg := req.Messages[0]
	require.Len(t, msg.Content, 2)
	assert.Equal(t, unified.ContentText, msg.Content[0].Type)
	assert.Equal(t, "what is this", msg.Content[0].Text)
	assert.Equal(t, unified.ContentImage, msg.Content[1].Type)
	require.NotNil(t, msg.Content[1].Image)
	assert.Equal(t, "https://example.com/cat.png", msg.Content[1].Image.URL)
}

func TestRequestIn_ToolChoiceVariants(t *testing.T) {
	base := `{"model":"gpt-4o","messages":[{"role":"user","content":"hi"}],"tool_choice":%s}`

	req, err := RequestIn(context.Background(), []byte(fmt.Sprintf(base, `"required"`)))
	require.NoError(t, err)
	require.NotNil(t, req.ToolChoice)
	assert.Equal(t, unified.ToolChoiceRequired, req.ToolChoice.Kind)

	req, err = RequestIn(context.Background(), []byte(fmt.Sprintf(base, `"none"`)))
	require.NoError(t, err)
	assert.Equal(t, unified.ToolChoiceNone, req.ToolChoice.Kind)

	req, err = RequestIn(context.Background(), []byte(fmt.Sprintf(base, `{"type":"function","function":{"name":"get_weather"}}`)))
	require.NoError(t, err)
	assert.Equal(t, unified.ToolChoiceFunction, req.ToolChoice.Kind)
	assert.Equal(t, "get_weather", req.ToolChoice.FunctionName)
}

func TestRequestIn_ReasoningEffort(t *testing.T) {
	body := []byte(`{"model":"gpt-5","messages":[{"role":"user","content":"hi"}],"reasoning_effort":"high"}`)
	req, err := RequestIn(context.Background(), body)
	require.NoError(t, err)
	require.NotNil(t, req.ReasoningEffort)
	assert.Equal(t, unified.ReasoningEffort("high"), *req.ReasoningEffort)
}

func TestResponseOut_TextMessage(t *testing.T) {
	resp := &unified.UnifiedResponse{
		ID:           "resp_1",
		Model:        "gpt-4o",
		Message:      unified.UnifiedMessage{Role: unified.RoleAssistant, Text: "hello there"},
		FinishReason: unified.FinishEndTurn,
		Usage:        unified.Usage{InputTokens: 10, OutputTokens: 5},
	}

	data, err := ResponseOut(context.Background(), resp)
	require.NoError(t, err)

	var out wireResponse
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "chat.completion", out.Object)
	assert.Equal(t, "gpt-4o", out.Model)
	require.Len(t, out.Choices, 1)
	assert.Equal(t, "stop", out.Choices[0].FinishReason)
	assert.Equal(t, "hello there", out.Choices[0].Message.Content)
	assert.Equal(t, 15, out.Usage.TotalTokens)
}

func TestResponseOut_ToolCalls(t *testing.T) {
	resp := &unified.UnifiedResponse{
		ID:    "resp_2",
		Model: "gpt-4o",
		Message: unified.UnifiedMessage{
			Role: unified.RoleAssistant,
			ToolCalls: []unified.ToolCall{
				{ID: "call_1", Type: "function", Name: "get_weather", Arguments: `{"city":"SF"}`},
			},
		},
		FinishReason: unified.FinishToolUse,
	}

	data, err := ResponseOut(context.Background(), resp)
	require.NoError(t, err)

	var out wireResponse
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "tool_calls", out.Choices[0].FinishReason)
	require.Len(t, out.Choices[0].Message.ToolCalls, 1)
	assert.Equal(t, "get_weather", out.Choices[0].Message.ToolCalls[0].Function.Name)
	assert.Nil(t, out.Choices[0].Message.Content)
}

func TestStreamResponseOut_TextDeltaSequence(t *testing.T) {
	encode := StreamResponseOut(context.Background())

	startChunk := encode(unified.StreamEvent{Type: unified.EventMessageStart, MessageID: "msg_1", Model: "gpt-4o"})
	assert.Contains(t, string(startChunk), `"role":"assistant"`)

	deltaChunk := encode(unified.StreamEvent{
		Type:  unified.EventContentBlockDelta,
		Delta: unified.DeltaText,
		Text:  "hi",
	})
	assert.Contains(t, string(deltaChunk), `"content":"hi"`)

	doneChunk := encode(unified.StreamEvent{Type: unified.EventMessageStop})
	assert.Equal(t, "data: [DONE]\n\n", string(doneChunk))
}

func TestStreamResponseOut_ToolCallFragments(t *testing.T) {
	encode := StreamResponseOut(context.Background())
	encode(unified.StreamEvent{Type: unified.EventMessageStart, MessageID: "msg_1", Model: "gpt-4o"})

	startChunk := encode(unified.StreamEvent{
		Type:     unified.EventContentBlockStart,
		Index:    0,
		Block:    unified.BlockToolUse,
		ToolID:   "call_1",
		ToolName: "get_weather",
	})
	assert.Contains(t, string(startChunk), `"name":"get_weather"`)

	fragChunk := encode(unified.StreamEvent{
		Type:        unified.EventContentBlockDelta,
		Index:       0,
		Delta:       unified.DeltaInputJSON,
		PartialJSON: `{"city":`,
	})
	assert.Contains(t, string(fragChunk), `"arguments":"{\"city\":"`)
}
