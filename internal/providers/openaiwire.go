package providers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mihaisavezi/claude-code-open/internal/reasoning"
	"github.com/mihaisavezi/claude-code-open/internal/transform"
	"github.com/mihaisavezi/claude-code-open/internal/unified"
)

// This file is the OpenAI chat-completions wire bridge shared by every
// C6 adapter that speaks OpenAI's dialect upstream (openai, openrouter,
// nvidia): it carries requests/responses between the unified model and
// the `{choices:[{message|delta, finish_reason}], usage}` shape, playing
// the same role for the OpenAI family that internal/dialect/anthropic
// plays for Anthropic's wire format. Grounded on the teacher's former
// base.go (CommonResponse/CommonMessage) and registry.go (StreamState),
// both since deleted from this package (see DESIGN.md), generalized to go through unified.UnifiedChatRequest/StreamEvent
// instead of raw map[string]any.

type wireChatMessage struct {
	Role             string             `json:"role"`
	Content          any                `json:"content,omitempty"`
	ToolCalls        []wireChatToolCall `json:"tool_calls,omitempty"`
	ToolCallID       string             `json:"tool_call_id,omitempty"`
	ReasoningContent string             `json:"reasoning_content,omitempty"`
}

type wireChatToolCall struct {
	Index    int                  `json:"index,omitempty"`
	ID       string               `json:"id"`
	Type     string               `json:"type"`
	Function wireChatFunctionCall `json:"function"`
}

type wireChatFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type wireChatContentPart struct {
	Type     string             `json:"type"`
	Text     string             `json:"text,omitempty"`
	ImageURL *wireChatImageURL  `json:"image_url,omitempty"`
}

type wireChatImageURL struct {
	URL string `json:"url"`
}

type wireChatTool struct {
	Type     string           `json:"type"`
	Function wireChatFunction `json:"function"`
}

type wireChatFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type wireChatRequest struct {
	Model       string          `json:"model"`
	Messages    []wireChatMessage `json:"messages"`
	Stream      bool            `json:"stream,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	TopP        *float64        `json:"top_p,omitempty"`
	MaxTokens   *int            `json:"max_tokens,omitempty"`
	Stop        []string        `json:"stop,omitempty"`
	Tools       []wireChatTool  `json:"tools,omitempty"`
	ToolChoice  any             `json:"tool_choice,omitempty"`

	ReasoningEffort string `json:"reasoning_effort,omitempty"`
	Verbosity       string `json:"verbosity,omitempty"`
}

// ToOpenAIChatRequest renders req into the `{model, messages, ...}` wire
// shape OpenAI-compatible chat/completions endpoints expect, as a mutable
// map so a C6 adapter (openai.go's GPT-5 quirks, openrouter.go's header
// fields, deepseek's reasoning_content requirement) can rename or add keys
// before the gateway marshals and sends it.
func ToOpenAIChatRequest(req *unified.UnifiedChatRequest) (map[string]any, error) {
	wire := wireChatRequest{
		Model:       req.Model,
		Stream:      req.Stream,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
		Stop:        req.Stop,
	}

	for _, m := range req.Messages {
		wire.Messages = append(wire.Messages, messageToWire(m))
	}

	for _, t := range req.Tools {
		wire.Tools = append(wire.Tools, wireChatTool{
			Type: "function",
			Function: wireChatFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	if req.ToolChoice != nil {
		wire.ToolChoice = toolChoiceToWire(*req.ToolChoice)
	}

	if req.ReasoningEffort != nil {
		wire.ReasoningEffort = string(*req.ReasoningEffort)
	}
	if req.Verbosity != nil {
		wire.Verbosity = string(*req.Verbosity)
	}

	encoded, err := json.Marshal(wire)
	if err != nil {
		return nil, err
	}

	var asMap map[string]any
	if err := json.Unmarshal(encoded, &asMap); err != nil {
		return nil, err
	}
	return asMap, nil
}

func toolChoiceToWire(tc unified.ToolChoice) any {
	switch tc.Kind {
	case unified.ToolChoiceFunction:
		return map[string]any{
			"type":     "function",
			"function": map[string]any{"name": tc.FunctionName},
		}
	case unified.ToolChoiceRequired:
		return "required"
	case unified.ToolChoiceNone:
		return "none"
	default:
		return "auto"
	}
}

func messageToWire(m unified.UnifiedMessage) wireChatMessage {
	wire := wireChatMessage{Role: string(m.Role)}

	if m.Role == unified.RoleTool {
		wire.ToolCallID = m.ToolCallID
		wire.Content = toolResultContent(m)
		return wire
	}

	if len(m.ToolCalls) > 0 {
		for _, tc := range m.ToolCalls {
			wire.ToolCalls = append(wire.ToolCalls, wireChatToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: wireChatFunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
	}

	if m.HasStructuredContent() {
		wire.Content = contentPartsToWire(m.Content)
	} else {
		wire.Content = m.Text
	}

	return wire
}

func toolResultContent(m unified.UnifiedMessage) string {
	if m.Text != "" {
		return m.Text
	}
	for _, p := range m.Content {
		if p.Type == unified.ContentToolResult {
			if s, ok := p.ToolResult.(string); ok {
				return s
			}
			if b, err := json.Marshal(p.ToolResult); err == nil {
				return string(b)
			}
		}
	}
	return ""
}

func contentPartsToWire(parts []unified.ContentPart) []wireChatContentPart {
	var out []wireChatContentPart
	for _, p := range parts {
		switch p.Type {
		case unified.ContentText:
			out = append(out, wireChatContentPart{Type: "text", Text: p.Text})
		case unified.ContentImage:
			if p.Image == nil {
				continue
			}
			out = append(out, wireChatContentPart{Type: "image_url", ImageURL: &wireChatImageURL{URL: p.Image.DataURL()}})
		}
	}
	return out
}

// wireChatResponse is the non-streaming `{choices:[...], usage}` shape.
type wireChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      wireChatMessage `json:"message"`
		FinishReason string          `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		PromptTokensDetails struct {
			CachedTokens int `json:"cached_tokens"`
		} `json:"prompt_tokens_details"`
		CompletionTokensDetails struct {
			ReasoningTokens int `json:"reasoning_tokens"`
		} `json:"completion_tokens_details"`
	} `json:"usage"`
}

// FromOpenAIChatResponse parses a non-streaming chat-completions body
// into a UnifiedResponse.
func FromOpenAIChatResponse(body []byte) (*unified.UnifiedResponse, error) {
	var wire wireChatResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("parse openai chat response: %w", err)
	}
	if len(wire.Choices) == 0 {
		return nil, fmt.Errorf("openai chat response has no choices")
	}

	choice := wire.Choices[0]
	msg := unified.UnifiedMessage{Role: unified.RoleAssistant}

	switch c := choice.Message.Content.(type) {
	case string:
		msg.Text = c
	case []any:
		for _, raw := range c {
			b, _ := json.Marshal(raw)
			var part wireChatContentPart
			if json.Unmarshal(b, &part) == nil && part.Type == "text" {
				msg.Text += part.Text
			}
		}
	}

	for _, tc := range choice.Message.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, unified.ToolCall{
			ID:        tc.ID,
			Type:      "function",
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	if choice.Message.ReasoningContent != "" {
		msg.Annotations = map[string]any{"reasoning_content": choice.Message.ReasoningContent}
	}

	return &unified.UnifiedResponse{
		ID:           wire.ID,
		Model:        wire.Model,
		Message:      msg,
		FinishReason: unified.StopReasonFromUpstream(choice.FinishReason),
		Usage: unified.Usage{
			InputTokens:     wire.Usage.PromptTokens,
			OutputTokens:    wire.Usage.CompletionTokens,
			CacheReadTokens: wire.Usage.PromptTokensDetails.CachedTokens,
			ReasoningTokens: wire.Usage.CompletionTokensDetails.ReasoningTokens,
		},
	}, nil
}

// wireChatChunk is one streamed chat-completions SSE data payload.
type wireChatChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content          string             `json:"content"`
			ReasoningContent string             `json:"reasoning_content"`
			ToolCalls        []wireChatToolCall `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// StreamBridge converts OpenAI-shaped chat-completions stream chunks into
// unified.StreamEvent sequences, tracking the minimal per-stream state
// (message_start-sent flag, open text block, open tool-call blocks) the
// way the deleted legacy registry.go's StreamState/ContentBlockState did
// in map[string]any form.
type StreamBridge struct {
	messageStartSent bool
	messageID        string
	model            string
	textOpen         bool
	toolIndexToBlock map[int]int
	nextBlockIndex   int
	reasoning        *reasoning.Accumulator
	repairer         transform.StreamToolCallRepairer
}

func NewStreamBridge() *StreamBridge {
	return &StreamBridge{toolIndexToBlock: make(map[int]int)}
}

// SetToolCallRepairer attaches a C7 streaming subsystem (Kimi's Assembler,
// MiniMax's Buffer, wrapped to satisfy transform.StreamToolCallRepairer) to
// this bridge. Must be called before the first Observe.
func (b *StreamBridge) SetToolCallRepairer(r transform.StreamToolCallRepairer) {
	b.repairer = r
}

// Observe parses one SSE data payload (raw JSON, without the `data: `
// prefix) and returns the unified.StreamEvent sequence it produces.
func (b *StreamBridge) Observe(raw []byte) ([]unified.StreamEvent, error) {
	var chunk wireChatChunk
	if err := json.Unmarshal(raw, &chunk); err != nil {
		return nil, fmt.Errorf("parse openai stream chunk: %w", err)
	}

	if chunk.ID != "" {
		b.messageID = chunk.ID
	}
	if chunk.Model != "" {
		b.model = chunk.Model
	}

	var events []unified.StreamEvent

	if !b.messageStartSent {
		events = append(events, unified.StreamEvent{
			Type:      unified.EventMessageStart,
			MessageID: b.messageID,
			Model:     b.model,
		})
		b.messageStartSent = true
	}

	if len(chunk.Choices) == 0 {
		return events, nil
	}
	choice := chunk.Choices[0]

	if choice.Delta.ReasoningContent != "" {
		events = append(events, b.reasoningEvents(choice.Delta.ReasoningContent)...)
	} else if b.reasoning != nil && b.reasoning.Active() {
		events = append(events, b.reasoning.Finish()...)
	}

	if len(choice.Delta.ToolCalls) > 0 {
		if b.repairer != nil && b.repairer.HandlesToolCalls() {
			for _, tc := range choice.Delta.ToolCalls {
				b.repairer.ObserveToolCall(tc.Index, tc.ID, tc.Function.Name, tc.Function.Arguments)
			}
		} else {
			events = append(events, b.toolCallEvents(choice.Delta.ToolCalls)...)
		}
	} else if choice.Delta.Content != "" {
		if b.repairer != nil && b.repairer.BuffersText() {
			b.repairer.ObserveText(choice.Delta.Content)
		} else {
			events = append(events, b.textEvents(choice.Delta.Content)...)
		}
	}

	if choice.FinishReason != "" {
		if b.reasoning != nil && b.reasoning.Active() {
			events = append(events, b.reasoning.Finish()...)
		}
		events = append(events, b.closeEvents()...)

		finishReason := unified.StopReasonFromUpstream(choice.FinishReason)
		if b.repairer != nil {
			repaired, hasToolCalls := b.repairedEvents(b.repairer.Finish())
			events = append(events, repaired...)
			if hasToolCalls {
				finishReason = unified.FinishToolUse
			}
		}

		events = append(events, unified.StreamEvent{
			Type:         unified.EventMessageDelta,
			FinishReason: finishReason,
		})
	}

	return events, nil
}

// repairedEvents renders a C7 repairer's Finish() result as fresh content
// blocks (a text block for any leftover non-tool-call text, then one
// tool_use block per repaired call), claiming new block indices since the
// original streamed fragments were withheld rather than emitted live.
func (b *StreamBridge) repairedEvents(msg *unified.UnifiedMessage) ([]unified.StreamEvent, bool) {
	if msg == nil {
		return nil, false
	}

	var events []unified.StreamEvent

	if msg.Text != "" {
		idx := b.nextBlockIndex
		b.nextBlockIndex++
		events = append(events,
			unified.StreamEvent{Type: unified.EventContentBlockStart, Index: idx, Block: unified.BlockText},
			unified.StreamEvent{Type: unified.EventContentBlockDelta, Index: idx, Delta: unified.DeltaText, Text: msg.Text},
			unified.StreamEvent{Type: unified.EventContentBlockStop, Index: idx},
		)
	}

	for _, tc := range msg.ToolCalls {
		idx := b.nextBlockIndex
		b.nextBlockIndex++
		events = append(events,
			unified.StreamEvent{Type: unified.EventContentBlockStart, Index: idx, Block: unified.BlockToolUse, ToolID: tc.ID, ToolName: tc.Name},
			unified.StreamEvent{Type: unified.EventContentBlockDelta, Index: idx, Delta: unified.DeltaInputJSON, PartialJSON: tc.Arguments},
			unified.StreamEvent{Type: unified.EventContentBlockStop, Index: idx},
		)
	}

	return events, len(msg.ToolCalls) > 0
}

// reasoningEvents threads a reasoning_content fragment through a lazily
// created reasoning.Accumulator, producing the thinking-block stream
// events the Anthropic dialect encoder renders as thinking_delta chunks.
// On the first reasoning fragment the accumulator claims the current
// nextBlockIndex (0 when reasoning arrives before any other block) and
// nextBlockIndex advances past it, so later text/tool blocks get higher
// indices.
func (b *StreamBridge) reasoningEvents(fragment string) []unified.StreamEvent {
	firstReasoning := b.reasoning == nil
	if firstReasoning {
		b.reasoning = reasoning.NewAccumulator(b.nextBlockIndex)
		b.nextBlockIndex++
	}
	return b.reasoning.Observe(fragment)
}

func (b *StreamBridge) textEvents(text string) []unified.StreamEvent {
	var events []unified.StreamEvent
	if !b.textOpen {
		events = append(events, unified.StreamEvent{
			Type:  unified.EventContentBlockStart,
			Index: b.nextBlockIndex,
			Block: unified.BlockText,
		})
		b.textOpen = true
	}
	events = append(events, unified.StreamEvent{
		Type:  unified.EventContentBlockDelta,
		Index: b.nextBlockIndex,
		Delta: unified.DeltaText,
		Text:  text,
	})
	return events
}

func (b *StreamBridge) toolCallEvents(calls []wireChatToolCall) []unified.StreamEvent {
	var events []unified.StreamEvent

	if b.textOpen {
		events = append(events, unified.StreamEvent{Type: unified.EventContentBlockStop, Index: b.nextBlockIndex})
		b.textOpen = false
		b.nextBlockIndex++
	}

	for _, tc := range calls {
		idx := tc.Index
		blockIndex, known := b.toolIndexToBlock[idx]
		if !known {
			blockIndex = b.nextBlockIndex
			b.nextBlockIndex++
			b.toolIndexToBlock[idx] = blockIndex

			id := tc.ID
			if id == "" {
				id = "call_" + strconv.Itoa(idx)
			}
			events = append(events, unified.StreamEvent{
				Type:    unified.EventContentBlockStart,
				Index:   blockIndex,
				Block:   unified.BlockToolUse,
				ToolID:  id,
				ToolName: tc.Function.Name,
			})
		}

		if tc.Function.Arguments != "" {
			events = append(events, unified.StreamEvent{
				Type:        unified.EventContentBlockDelta,
				Index:       blockIndex,
				Delta:       unified.DeltaInputJSON,
				PartialJSON: tc.Function.Arguments,
			})
		}
	}

	return events
}

func (b *StreamBridge) closeEvents() []unified.StreamEvent {
	var events []unified.StreamEvent
	if b.textOpen {
		events = append(events, unified.StreamEvent{Type: unified.EventContentBlockStop, Index: b.nextBlockIndex})
		b.textOpen = false
	}
	for _, idx := range b.toolIndexToBlock {
		events = append(events, unified.StreamEvent{Type: unified.EventContentBlockStop, Index: idx})
	}
	return events
}

// stripJSONSchemaKeys removes the OpenAI-incompatible keys a
// Claude-authored tool schema sometimes carries, used by the OpenAI C6
// adapter's already-OpenAI-shaped-tool cleanup path.
func stripJSONSchemaKeys(schema map[string]any) map[string]any {
	out := make(map[string]any, len(schema))
	for k, v := range schema {
		if k == "$schema" || k == "additionalProperties" {
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			v = stripJSONSchemaKeys(nested)
		}
		out[k] = v
	}
	return out
}

// isDeepseekReasoner reports whether model is Deepseek's reasoning model,
// the only one subject to the reasoning_content round-trip rule below.
func isDeepseekReasoner(model string) bool {
	return strings.Contains(model, "deepseek-reasoner")
}

// AdaptDeepseekRequestBody ensures every assistant message in an outgoing
// Deepseek-reasoner request carries a reasoning_content field (empty
// string if absent), per spec.md §4.6, so a multi-turn conversation that
// already captured reasoning on a prior turn keeps it intact upstream.
func AdaptDeepseekRequestBody(model string, body map[string]any) map[string]any {
	if !isDeepseekReasoner(model) {
		return body
	}
	messages, ok := body["messages"].([]any)
	if !ok {
		return body
	}
	for _, m := range messages {
		msg, ok := m.(map[string]any)
		if !ok || msg["role"] != "assistant" {
			continue
		}
		if _, ok := msg["reasoning_content"]; !ok {
			msg["reasoning_content"] = ""
		}
	}
	return body
}

// AdaptDeepseekResponseAnnotation ensures a Deepseek-reasoner response
// message carries reasoning_content (empty if the upstream omitted it) in
// its annotations, so the next turn's AdaptDeepseekRequestBody round-trips
// it back out.
func AdaptDeepseekResponseAnnotation(model string, annotations map[string]any) map[string]any {
	if !isDeepseekReasoner(model) {
		return annotations
	}
	if annotations == nil {
		annotations = make(map[string]any)
	}
	if _, ok := annotations["reasoning_content"]; !ok {
		annotations["reasoning_content"] = ""
	}
	return annotations
}
