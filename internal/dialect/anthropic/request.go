// Package anthropic bridges the Anthropic /v1/messages dialect to and from
// the gateway's unified request/response/event model (spec.md §4.5.1-3).
// It is grounded on the JSON shapes the teacher's former
// internal/providers/base.go and openai.go converted between, generalized into
// the requestIn/responseIn/responseOut transformer hooks.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mihaisavezi/claude-code-open/internal/unified"
)

type wireRequest struct {
	Model         string          `json:"model"`
	System        json.RawMessage `json:"system,omitempty"`
	Messages      []wireMessage   `json:"messages"`
	MaxTokens     *int            `json:"max_tokens,omitempty"`
	Temperature   *float64        `json:"temperature,omitempty"`
	TopP          *float64        `json:"top_p,omitempty"`
	TopK          *int            `json:"top_k,omitempty"`
	StopSequences []string        `json:"stop_sequences,omitempty"`
	Stream        bool            `json:"stream,omitempty"`
	Tools         []wireTool      `json:"tools,omitempty"`
	ToolChoice    json.RawMessage `json:"tool_choice,omitempty"`
	Thinking      *wireThinking   `json:"thinking,omitempty"`
}

type wireThinking struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens,omitempty"`
}

type wireMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type wireContentBlock struct {
	Type string `json:"type"`

	Text string `json:"text,omitempty"`

	Source *wireImageSource `json:"source,omitempty"`

	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Input any    `json:"input,omitempty"`

	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`

	Thinking  string `json:"thinking,omitempty"`
	Signature string `json:"signature,omitempty"`
}

type wireImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

type wireTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}

// RequestIn parses an Anthropic Messages API body into the unified
// request. Rules applied (§4.5.1):
//   - `system` (string or content-block array) becomes the first unified
//     message with RoleSystem.
//   - Each `messages[i].content` may be a plain string or a content-block
//     array; both are normalized into ContentPart slices.
//   - `thinking.type == "enabled"` sets ReasoningEffort unset and instead
//     records the budget via Extra["anthropic_thinking_budget"], since the
//     unified model's reasoning fields are the OpenAI-style knob (§3 I5:
//     exactly one of reasoning_effort/thinking/structured-reasoning
//     survives per message, chosen at the dialect boundary).
//   - `tool_choice` maps {"type":"auto"|"any"|"tool","name":...} onto
//     ToolChoice.
func RequestIn(_ context.Context, body []byte) (*unified.UnifiedChatRequest, error) {
	var wire wireRequest
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("anthropic requestIn: %w", err)
	}

	req := &unified.UnifiedChatRequest{
		Model:       wire.Model,
		Stream:      wire.Stream,
		Temperature: wire.Temperature,
		TopP:        wire.TopP,
		TopK:        wire.TopK,
		MaxTokens:   wire.MaxTokens,
		Stop:        wire.StopSequences,
	}

	if len(wire.System) > 0 {
		sysText, sysParts, err := decodeContent(wire.System)
		if err != nil {
			return nil, fmt.Errorf("anthropic requestIn: system: %w", err)
		}
		req.Messages = append(req.Messages, unified.UnifiedMessage{
			Role:    unified.RoleSystem,
			Text:    sysText,
			Content: sysParts,
		})
	}

	for i, m := range wire.Messages {
		text, parts, err := decodeContent(m.Content)
		if err != nil {
			return nil, fmt.Errorf("anthropic requestIn: messages[%d]: %w", i, err)
		}
		msg := unified.UnifiedMessage{
			Role:    unified.Role(m.Role),
			Text:    text,
			Content: parts,
		}
		for _, p := range parts {
			if p.Type == unified.ContentToolUse {
				msg.ToolCalls = append(msg.ToolCalls, unified.ToolCall{
					ID:        p.ToolUseID,
					Type:      "function",
					Name:      p.ToolName,
					Arguments: p.RawToolArgs,
				})
			}
			if p.Type == unified.ContentToolResult {
				msg.ToolCallID = p.ToolResultFor
			}
		}
		req.Messages = append(req.Messages, msg)
	}

	for _, t := range wire.Tools {
		req.Tools = append(req.Tools, unified.UnifiedTool{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.InputSchema,
		})
	}

	if len(wire.ToolChoice) > 0 {
		tc, err := decodeToolChoice(wire.ToolChoice)
		if err != nil {
			return nil, fmt.Errorf("anthropic requestIn: tool_choice: %w", err)
		}
		req.ToolChoice = &tc
	}

	if wire.Thinking != nil && wire.Thinking.Type == "enabled" {
		if req.Extra == nil {
			req.Extra = make(map[string]any)
		}
		req.Extra["anthropic_thinking_budget"] = wire.Thinking.BudgetTokens
	}

	return req, nil
}

func decodeToolChoice(raw json.RawMessage) (unified.ToolChoice, error) {
	var tc struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &tc); err != nil {
		return unified.ToolChoice{}, err
	}
	switch tc.Type {
	case "auto":
		return unified.ToolChoice{Kind: unified.ToolChoiceAuto}, nil
	case "any":
		return unified.ToolChoice{Kind: unified.ToolChoiceRequired}, nil
	case "tool":
		return unified.ToolChoice{Kind: unified.ToolChoiceFunction, FunctionName: tc.Name}, nil
	default:
		return unified.ToolChoice{Kind: unified.ToolChoiceAuto}, nil
	}
}

// decodeContent normalizes an Anthropic content field, which may be a bare
// JSON string or an array of typed content blocks, into (plain text, content
// parts). Plain-string content has no parts; block-array content has no
// flattened text (Text is left empty, callers use HasStructuredContent).
func decodeContent(raw json.RawMessage) (string, []unified.ContentPart, error) {
	if len(raw) == 0 {
		return "", nil, nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString, nil, nil
	}

	var blocks []wireContentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return "", nil, err
	}

	parts := make([]unified.ContentPart, 0, len(blocks))
	for _, b := range blocks {
		switch b.Type {
		case "text":
			parts = append(parts, unified.ContentPart{Type: unified.ContentText, Text: b.Text})
		case "image":
			img := &unified.ImageSource{}
			if b.Source != nil {
				img.MediaType = b.Source.MediaType
				img.Data = b.Source.Data
				img.URL = b.Source.URL
			}
			parts = append(parts, unified.ContentPart{Type: unified.ContentImage, Image: img})
		case "tool_use":
			var argsJSON string
			var inputMap map[string]any
			if b.Input != nil {
				if enc, err := json.Marshal(b.Input); err == nil {
					argsJSON = string(enc)
				}
				if m, ok := b.Input.(map[string]any); ok {
					inputMap = m
				}
			}
			parts = append(parts, unified.ContentPart{
				Type:        unified.ContentToolUse,
				ToolUseID:   b.ID,
				ToolName:    b.Name,
				ToolInput:   inputMap,
				RawToolArgs: argsJSON,
			})
		case "tool_result":
			text, nested, err := decodeContent(b.Content)
			if err != nil {
				return "", nil, err
			}
			result := any(text)
			if len(nested) > 0 {
				result = nested
			}
			parts = append(parts, unified.ContentPart{
				Type:          unified.ContentToolResult,
				ToolResultFor: b.ToolUseID,
				ToolResult:    result,
				ToolIsError:   b.IsError,
			})
		case "thinking":
			parts = append(parts, unified.ContentPart{
				Type:              unified.ContentThinking,
				Thinking:          b.Thinking,
				ThinkingSignature: b.Signature,
			})
		}
	}

	return "", parts, nil
}
