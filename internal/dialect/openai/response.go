package openai

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mihaisavezi/claude-code-open/internal/unified"
)

type wireResponseMessage struct {
	Role      string         `json:"role"`
	Content   any            `json:"content"`
	ToolCalls []wireToolCall `json:"tool_calls,omitempty"`
}

type wireChoice struct {
	Index        int                  `json:"index"`
	Message      wireResponseMessage  `json:"message"`
	FinishReason string               `json:"finish_reason"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type wireResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []wireChoice `json:"choices"`
	Usage   wireUsage    `json:"usage"`
}

// ResponseOut renders a unified response as a non-streaming chat/completions
// body (spec.md §6).
func ResponseOut(_ context.Context, resp *unified.UnifiedResponse) ([]byte, error) {
	msg := resp.Message

	out := wireResponse{
		ID:      resp.ID,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   resp.Model,
		Choices: []wireChoice{{
			Index: 0,
			Message: wireResponseMessage{
				Role:    "assistant",
				Content: messageContent(msg),
			},
			FinishReason: openAIFinishReason(resp.FinishReason),
		}},
		Usage: wireUsage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}

	for _, tc := range msg.ToolCalls {
		wtc := wireToolCall{ID: tc.ID, Type: "function"}
		wtc.Function.Name = tc.Name
		wtc.Function.Arguments = tc.Arguments
		out.Choices[0].Message.ToolCalls = append(out.Choices[0].Message.ToolCalls, wtc)
	}

	return json.Marshal(out)
}

func messageContent(msg unified.UnifiedMessage) any {
	if msg.HasStructuredContent() {
		var text string
		for _, p := range msg.Content {
			if p.Type == unified.ContentText {
				text += p.Text
			}
		}
		return text
	}
	if msg.Text == "" && len(msg.ToolCalls) > 0 {
		return nil
	}
	return msg.Text
}

func openAIFinishReason(r unified.FinishReason) string {
	switch r {
	case unified.FinishMaxTokens:
		return "length"
	case unified.FinishToolUse:
		return "tool_calls"
	default:
		return "stop"
	}
}
