package openairesp

import (
	"encoding/json"
)

// streamChunk mirrors a Chat Completions streaming chunk's shape, the
// format every other OpenAI-family adapter in this gateway already emits.
type streamChunk struct {
	ID      string            `json:"id,omitempty"`
	Object  string            `json:"object"`
	Model   string            `json:"model,omitempty"`
	Choices []streamChunkChoice `json:"choices"`
}

type streamChunkChoice struct {
	Index        int                `json:"index"`
	Delta        streamChunkDelta   `json:"delta"`
	FinishReason *string            `json:"finish_reason"`
}

type streamChunkDelta struct {
	Content   any                 `json:"content,omitempty"`
	ToolCalls []streamChunkToolCall `json:"tool_calls,omitempty"`
}

type streamChunkToolCall struct {
	Index    int    `json:"index"`
	ID       string `json:"id,omitempty"`
	Type     string `json:"type,omitempty"`
	Function *struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
	} `json:"function,omitempty"`
}

// eventEnvelope is the minimal shape needed to dispatch on a Responses-API
// SSE event's `type` field; each handler below re-parses the payload it
// actually needs.
type eventEnvelope struct {
	Type string `json:"type"`
}

// StreamState accumulates the cross-event bookkeeping the Responses-API
// stream needs: whether any tool call has been seen (drives finish_reason
// on completion) and which output-item id maps to which chat tool-call
// slot.
type StreamState struct {
	sawToolCall    bool
	itemIndexToSlot map[string]int
	nextSlot        int
}

func NewStreamState() *StreamState {
	return &StreamState{itemIndexToSlot: make(map[string]int)}
}

// HandleEvent converts one decoded Responses-API SSE event's JSON payload
// into zero or more Chat-Completions-shaped streaming chunk bytes
// (§4.5.4 "Response (streaming)"). Unrecognised event types are forwarded
// unchanged, matching the spec's "tolerate unrecognised event types" rule.
func (s *StreamState) HandleEvent(eventJSON []byte) [][]byte {
	var env eventEnvelope
	if err := json.Unmarshal(eventJSON, &env); err != nil {
		return [][]byte{eventJSON}
	}

	switch env.Type {
	case "response.output_text.delta":
		var payload struct {
			Delta string `json:"delta"`
		}
		if err := json.Unmarshal(eventJSON, &payload); err != nil {
			return [][]byte{eventJSON}
		}
		return [][]byte{s.marshal(streamChunkDelta{Content: payload.Delta}, nil)}

	case "response.output_image.delta":
		var payload struct {
			Delta string `json:"delta"`
		}
		if err := json.Unmarshal(eventJSON, &payload); err != nil {
			return [][]byte{eventJSON}
		}
		content := []chatContentPart{{Type: "image_url", ImageURL: &chatImageURLField{URL: payload.Delta}}}
		return [][]byte{s.marshal(streamChunkDelta{Content: content}, nil)}

	case "response.output_item.added":
		var payload struct {
			Item struct {
				Type   string `json:"type"`
				ID     string `json:"id"`
				CallID string `json:"call_id"`
				Name   string `json:"name"`
			} `json:"item"`
		}
		if err := json.Unmarshal(eventJSON, &payload); err != nil || payload.Item.Type != "function_call" {
			return [][]byte{eventJSON}
		}
		s.sawToolCall = true
		slot := s.nextSlot
		s.nextSlot++
		s.itemIndexToSlot[payload.Item.ID] = slot

		return [][]byte{s.marshal(streamChunkDelta{
			ToolCalls: []streamChunkToolCall{{
				Index: slot,
				ID:    payload.Item.CallID,
				Type:  "function",
				Function: &struct {
					Name      string `json:"name,omitempty"`
					Arguments string `json:"arguments,omitempty"`
				}{Name: payload.Item.Name},
			}},
		}, nil)}

	case "response.function_call_arguments.delta":
		var payload struct {
			ItemID string `json:"item_id"`
			Delta  string `json:"delta"`
		}
		if err := json.Unmarshal(eventJSON, &payload); err != nil {
			return [][]byte{eventJSON}
		}
		slot, ok := s.itemIndexToSlot[payload.ItemID]
		if !ok {
			slot = s.nextSlot
			s.nextSlot++
			s.itemIndexToSlot[payload.ItemID] = slot
		}
		return [][]byte{s.marshal(streamChunkDelta{
			ToolCalls: []streamChunkToolCall{{
				Index: slot,
				Function: &struct {
					Name      string `json:"name,omitempty"`
					Arguments string `json:"arguments,omitempty"`
				}{Arguments: payload.Delta},
			}},
		}, nil)}

	case "response.completed":
		reason := "stop"
		if s.sawToolCall {
			reason = "tool_calls"
		}
		return [][]byte{s.marshal(streamChunkDelta{}, &reason)}

	default:
		return [][]byte{eventJSON}
	}
}

func (s *StreamState) marshal(delta streamChunkDelta, finishReason *string) []byte {
	chunk := streamChunk{
		Object: "chat.completion.chunk",
		Choices: []streamChunkChoice{
			{Index: 0, Delta: delta, FinishReason: finishReason},
		},
	}
	data, err := json.Marshal(chunk)
	if err != nil {
		return nil
	}
	return data
}
