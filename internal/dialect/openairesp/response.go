package openairesp

import (
	"encoding/json"
	"fmt"
)

type responsesOutputItem struct {
	Type string `json:"type"`

	// message-shaped items
	Content []responsesOutputContent `json:"content,omitempty"`

	// function_call items
	CallID    string `json:"call_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

type responsesOutputContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

type responsesNonStreamBody struct {
	ID     string                `json:"id"`
	Model  string                `json:"model"`
	Output []responsesOutputItem `json:"output"`
	Usage  *responsesUsage       `json:"usage,omitempty"`
}

type responsesUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type chatCompletionBody struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
}

type chatChoice struct {
	Index        int          `json:"index"`
	Message      *chatMessage `json:"message,omitempty"`
	FinishReason string       `json:"finish_reason"`
}

// ResponseToChatCompletions reassembles a non-streaming Responses-API body
// into a Chat Completions body (§4.5.4 "Response (non-streaming)").
func ResponseToChatCompletions(body []byte) ([]byte, error) {
	var resp responsesNonStreamBody
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("openairesp responseIn: %w", err)
	}

	msg := &chatMessage{Role: "assistant"}

	var textParts []chatContentPart
	var plainText string
	var toolCalls []chatToolCall

	for _, item := range resp.Output {
		switch item.Type {
		case "function_call":
			toolCalls = append(toolCalls, chatToolCall{
				ID:   item.CallID,
				Type: "function",
				Function: chatFunctionCall{
					Name:      item.Name,
					Arguments: item.Arguments,
				},
			})
		case "message":
			for _, c := range item.Content {
				switch c.Type {
				case "output_text":
					plainText += c.Text
					textParts = append(textParts, chatContentPart{Type: "text", Text: c.Text})
				case "output_image":
					textParts = append(textParts, chatContentPart{Type: "image_url", ImageURL: &chatImageURLField{URL: c.ImageURL}})
				}
			}
		}
	}

	hasImage := false
	for _, p := range textParts {
		if p.Type == "image_url" {
			hasImage = true
		}
	}
	if hasImage {
		msg.Content = textParts
	} else {
		msg.Content = plainText
	}

	if len(toolCalls) > 0 {
		msg.ToolCalls = toolCalls
	}

	finishReason := "stop"
	if len(toolCalls) > 0 {
		finishReason = "tool_calls"
	}

	out := chatCompletionBody{
		ID:     resp.ID,
		Object: "chat.completion",
		Model:  resp.Model,
		Choices: []chatChoice{
			{Index: 0, Message: msg, FinishReason: finishReason},
		},
	}
	if resp.Usage != nil {
		out.Usage = &chatUsage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
		}
	}

	return json.Marshal(out)
}
