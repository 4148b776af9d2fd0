// Package openai bridges the OpenAI Chat Completions client dialect
// (POST /v1/chat/completions, spec.md §6) to and from the gateway's unified
// request/response/event model, the same role internal/dialect/anthropic
// plays for the Anthropic dialect. It is grounded on
// internal/providers/openaiwire.go's wireChat* types, which already carry
// the identical shape on the upstream leg; this package duplicates rather
// than imports them so the client-facing dialect can evolve independently
// of the upstream wire bridge (spec.md §4.5 keeps every dialect boundary a
// separate, self-contained package).
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mihaisavezi/claude-code-open/internal/unified"
)

type wireMessage struct {
	Role       string          `json:"role"`
	Content    json.RawMessage `json:"content"`
	ToolCalls  []wireToolCall  `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
}

type wireToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type wireContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url,omitempty"`
}

type wireTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description,omitempty"`
		Parameters  map[string]any `json:"parameters,omitempty"`
	} `json:"function"`
}

type wireRequest struct {
	Model       string          `json:"model"`
	Messages    []wireMessage   `json:"messages"`
	Stream      bool            `json:"stream,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	TopP        *float64        `json:"top_p,omitempty"`
	MaxTokens   *int            `json:"max_tokens,omitempty"`
	Stop        []string        `json:"stop,omitempty"`
	Tools       []wireTool      `json:"tools,omitempty"`
	ToolChoice  json.RawMessage `json:"tool_choice,omitempty"`

	ReasoningEffort string `json:"reasoning_effort,omitempty"`
}

// RequestIn parses an OpenAI chat/completions body into the unified
// request. Unlike the Anthropic dialect there is no separate `system`
// field; a "system" or "developer" role message is carried straight
// through as a RoleSystem unified message.
func RequestIn(_ context.Context, body []byte) (*unified.UnifiedChatRequest, error) {
	var wire wireRequest
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("openai requestIn: %w", err)
	}

	req := &unified.UnifiedChatRequest{
		Model:       wire.Model,
		Stream:      wire.Stream,
		Temperature: wire.Temperature,
		TopP:        wire.TopP,
		MaxTokens:   wire.MaxTokens,
		Stop:        wire.Stop,
	}

	for i, m := range wire.Messages {
		msg, err := decodeMessage(m)
		if err != nil {
			return nil, fmt.Errorf("openai requestIn: messages[%d]: %w", i, err)
		}
		req.Messages = append(req.Messages, msg)
	}

	for _, t := range wire.Tools {
		req.Tools = append(req.Tools, unified.UnifiedTool{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Parameters:  t.Function.Parameters,
		})
	}

	if len(wire.ToolChoice) > 0 {
		tc, err := decodeToolChoice(wire.ToolChoice)
		if err != nil {
			return nil, fmt.Errorf("openai requestIn: tool_choice: %w", err)
		}
		req.ToolChoice = tc
	}

	if wire.ReasoningEffort != "" {
		effort := unified.ReasoningEffort(wire.ReasoningEffort)
		req.ReasoningEffort = &effort
	}

	return req, nil
}

func decodeMessage(m wireMessage) (unified.UnifiedMessage, error) {
	role := unified.Role(m.Role)
	if role == "developer" {
		role = unified.RoleSystem
	}

	msg := unified.UnifiedMessage{Role: role, ToolCallID: m.ToolCallID}

	text, parts, err := decodeContent(m.Content)
	if err != nil {
		return msg, err
	}
	msg.Text = text
	msg.Content = parts

	for _, tc := range m.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, unified.ToolCall{
			ID:        tc.ID,
			Type:      "function",
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	if role == unified.RoleTool {
		msg.Content = []unified.ContentPart{{
			Type:          unified.ContentToolResult,
			ToolResultFor: m.ToolCallID,
			ToolResult:    text,
		}}
	}

	return msg, nil
}

// decodeContent normalizes a chat/completions content field, which may be
// a bare string or an array of {type:"text"|"image_url"} parts.
func decodeContent(raw json.RawMessage) (string, []unified.ContentPart, error) {
	if len(raw) == 0 {
		return "", nil, nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString, nil, nil
	}

	var items []wireContentPart
	if err := json.Unmarshal(raw, &items); err != nil {
		return "", nil, err
	}

	parts := make([]unified.ContentPart, 0, len(items))
	for _, it := range items {
		switch it.Type {
		case "text":
			parts = append(parts, unified.ContentPart{Type: unified.ContentText, Text: it.Text})
		case "image_url":
			if it.ImageURL == nil {
				continue
			}
			parts = append(parts, unified.ContentPart{
				Type:  unified.ContentImage,
				Image: &unified.ImageSource{URL: it.ImageURL.URL},
			})
		}
	}
	return "", parts, nil
}

func decodeToolChoice(raw json.RawMessage) (*unified.ToolChoice, error) {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		switch asString {
		case "required":
			return &unified.ToolChoice{Kind: unified.ToolChoiceRequired}, nil
		case "none":
			return &unified.ToolChoice{Kind: unified.ToolChoiceNone}, nil
		default:
			return &unified.ToolChoice{Kind: unified.ToolChoiceAuto}, nil
		}
	}

	var typed struct {
		Type     string `json:"type"`
		Function struct {
			Name string `json:"name"`
		} `json:"function"`
	}
	if err := json.Unmarshal(raw, &typed); err != nil {
		return nil, err
	}
	if typed.Type == "function" {
		return &unified.ToolChoice{Kind: unified.ToolChoiceFunction, FunctionName: typed.Function.Name}, nil
	}
	return &unified.ToolChoice{Kind: unified.ToolChoiceAuto}, nil
}
