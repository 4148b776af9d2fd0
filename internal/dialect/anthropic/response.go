package anthropic

import (
	"context"
	"encoding/json"

	"github.com/mihaisavezi/claude-code-open/internal/unified"
)

type wireResponseContent struct {
	Type string `json:"type"`

	Text string `json:"text,omitempty"`

	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Input any    `json:"input,omitempty"`

	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   any    `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`

	Thinking  string `json:"thinking,omitempty"`
	Signature string `json:"signature,omitempty"`
}

type wireResponse struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Role       string                 `json:"role"`
	Model      string                 `json:"model"`
	Content    []wireResponseContent  `json:"content"`
	StopReason string                 `json:"stop_reason"`
	Usage      map[string]int         `json:"usage"`
}

// ResponseOut renders a unified response as a non-streaming Anthropic
// Messages API body (§4.5.3).
func ResponseOut(_ context.Context, resp *unified.UnifiedResponse) ([]byte, error) {
	out := wireResponse{
		ID:         resp.ID,
		Type:       "message",
		Role:       "assistant",
		Model:      resp.Model,
		StopReason: anthropicStopReason(resp.FinishReason),
		Usage: map[string]int{
			"input_tokens":  resp.Usage.InputTokens,
			"output_tokens": resp.Usage.OutputTokens,
		},
	}

	if resp.Usage.CacheReadTokens > 0 {
		out.Usage["cache_read_input_tokens"] = resp.Usage.CacheReadTokens
	}
	if resp.Usage.CacheWriteTokens > 0 {
		out.Usage["cache_creation_input_tokens"] = resp.Usage.CacheWriteTokens
	}

	msg := resp.Message
	if msg.HasStructuredContent() {
		for _, p := range msg.Content {
			out.Content = append(out.Content, partToWire(p))
		}
	} else if msg.Text != "" {
		out.Content = append(out.Content, wireResponseContent{Type: "text", Text: msg.Text})
	}

	for _, tc := range msg.ToolCalls {
		var input any
		if tc.Arguments != "" {
			_ = json.Unmarshal([]byte(tc.Arguments), &input)
		}
		out.Content = append(out.Content, wireResponseContent{
			Type:  "tool_use",
			ID:    tc.ID,
			Name:  tc.Name,
			Input: input,
		})
	}

	if len(out.Content) == 0 {
		out.Content = append(out.Content, wireResponseContent{Type: "text", Text: ""})
	}

	return json.Marshal(out)
}

func partToWire(p unified.ContentPart) wireResponseContent {
	switch p.Type {
	case unified.ContentText:
		return wireResponseContent{Type: "text", Text: p.Text}
	case unified.ContentThinking:
		return wireResponseContent{Type: "thinking", Thinking: p.Thinking, Signature: p.ThinkingSignature}
	case unified.ContentToolUse:
		var input any
		if p.ToolInput != nil {
			input = p.ToolInput
		} else if p.RawToolArgs != "" {
			_ = json.Unmarshal([]byte(p.RawToolArgs), &input)
		}
		return wireResponseContent{Type: "tool_use", ID: p.ToolUseID, Name: p.ToolName, Input: input}
	case unified.ContentToolResult:
		return wireResponseContent{Type: "tool_result", ToolUseID: p.ToolResultFor, Content: p.ToolResult, IsError: p.ToolIsError}
	default:
		return wireResponseContent{Type: "text", Text: p.Text}
	}
}
