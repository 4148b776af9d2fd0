// Package openairesp bridges OpenAI's Responses API dialect
// (`/v1/responses`) to and from the Chat-Completions-shaped internal
// representation the rest of the gateway's OpenAI-family adapters already
// speak (spec.md §4.5.4). It does not go through internal/unified: the
// Responses API and Chat Completions are both OpenAI dialects, so this
// bridge is a direct JSON-to-JSON transform, mirroring how the teacher's
// former base.go TransformAnthropicToOpenAI stayed within one family
// instead of routing through the dialect-neutral model.
package openairesp

import (
	"encoding/json"
	"fmt"
)

type responsesRequest struct {
	Model        string          `json:"model"`
	Instructions string          `json:"instructions,omitempty"`
	Input        []responsesItem `json:"input"`
	Tools        []responsesTool `json:"tools,omitempty"`
	Stream       bool            `json:"stream,omitempty"`
}

type responsesItem struct {
	Type    string          `json:"type,omitempty"`
	Role    string          `json:"role,omitempty"`
	Content []responsesPart `json:"content,omitempty"`

	// function_call / function_call_output
	CallID    string `json:"call_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	Output    string `json:"output,omitempty"`
}

type responsesPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

type responsesTool struct {
	Type        string         `json:"type"`
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type chatMessage struct {
	Role       string         `json:"role"`
	Content    any            `json:"content,omitempty"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type chatToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function chatFunctionCall `json:"function"`
}

type chatFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatContentPart struct {
	Type     string             `json:"type"`
	Text     string             `json:"text,omitempty"`
	ImageURL *chatImageURLField `json:"image_url,omitempty"`
}

type chatImageURLField struct {
	URL string `json:"url"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Tools    []chatTool     `json:"tools,omitempty"`
	Stream   bool           `json:"stream,omitempty"`
	Extra    map[string]any `json:"-"`
}

// RequestToChatCompletions converts a Responses-API request body into a
// Chat-Completions body: top-level instructions become a leading system
// message, function_call_output items become tool messages, function_call
// items become assistant messages carrying one tool call, input_text and
// output_text parts become text (a lone text part becomes a plain string),
// input_image parts become image_url parts, and tools become
// {type:"function", function:{...}} entries, except web_search, which
// becomes a web_search_preview tool. Only model, instructions, input,
// tools and stream are read; temperature, max_tokens and other fields are
// not carried over. The package has no conversion in the other direction
// (Chat-Completions request to Responses-API request).
func RequestToChatCompletions(body []byte) ([]byte, error) {
	var req responsesRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("openairesp requestIn: %w", err)
	}

	out := chatRequest{Model: req.Model, Stream: req.Stream}

	if req.Instructions != "" {
		out.Messages = append(out.Messages, chatMessage{Role: "system", Content: req.Instructions})
	}

	for _, item := range req.Input {
		switch item.Type {
		case "function_call_output":
			out.Messages = append(out.Messages, chatMessage{
				Role:       "tool",
				Content:    item.Output,
				ToolCallID: item.CallID,
			})
		case "function_call":
			out.Messages = append(out.Messages, chatMessage{
				Role: "assistant",
				ToolCalls: []chatToolCall{{
					ID:   item.CallID,
					Type: "function",
					Function: chatFunctionCall{
						Name:      item.Name,
						Arguments: item.Arguments,
					},
				}},
			})
		default:
			role := item.Role
			if role == "" {
				role = "user"
			}
			out.Messages = append(out.Messages, chatMessage{
				Role:    role,
				Content: partsToChatContent(item.Content),
			})
		}
	}

	for _, t := range req.Tools {
		if t.Type == "web_search" {
			out.Tools = append(out.Tools, chatTool{Type: "web_search_preview"})
			continue
		}
		out.Tools = append(out.Tools, chatTool{
			Type: "function",
			Function: chatFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	return json.Marshal(out)
}

func partsToChatContent(parts []responsesPart) any {
	if len(parts) == 0 {
		return ""
	}
	if len(parts) == 1 && (parts[0].Type == "input_text" || parts[0].Type == "output_text") {
		return parts[0].Text
	}

	converted := make([]chatContentPart, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case "input_text", "output_text":
			converted = append(converted, chatContentPart{Type: "text", Text: p.Text})
		case "input_image":
			converted = append(converted, chatContentPart{Type: "image_url", ImageURL: &chatImageURLField{URL: p.ImageURL}})
		}
	}
	return converted
}
