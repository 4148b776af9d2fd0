package anthropic

import (
	"context"
	"encoding/json"

	"github.com/mihaisavezi/claude-code-open/internal/sse"
	"github.com/mihaisavezi/claude-code-open/internal/unified"
)

// blockState tracks one open content_block's wire-visible lifecycle,
// generalizing the deleted legacy registry.go's ContentBlockState from a
// single (text|tool_use) pair to every unified BlockKind.
type blockState struct {
	kind      unified.BlockKind
	startSent bool
	stopSent  bool
}

// streamEncoder is the per-response closure StreamResponseOut builds. All
// of its state is local to one stream, never shared across requests (§5
// "per-stream state lives in response-hook closures").
type streamEncoder struct {
	enc sse.Encoder

	messageStartSent bool
	blocks           map[int]*blockState
	nextIndex        int
}

// StreamResponseOut returns a transform.StreamResponseOut-shaped closure
// builder: a fresh streamEncoder per response, rendering unified
// StreamEvents as Anthropic named SSE events.
func StreamResponseOut(_ context.Context) func(unified.StreamEvent) []byte {
	s := &streamEncoder{blocks: make(map[int]*blockState)}
	return s.handle
}

func (s *streamEncoder) handle(ev unified.StreamEvent) []byte {
	switch ev.Type {
	case unified.EventMessageStart:
		return s.messageStart(ev)
	case unified.EventContentBlockStart:
		return s.blockStart(ev)
	case unified.EventContentBlockDelta:
		return s.blockDelta(ev)
	case unified.EventContentBlockStop:
		return s.blockStop(ev)
	case unified.EventMessageDelta:
		return s.messageDelta(ev)
	case unified.EventMessageStop:
		return s.messageStop()
	case unified.EventError:
		return s.errorEvent(ev)
	default:
		return nil
	}
}

func (s *streamEncoder) messageStart(ev unified.StreamEvent) []byte {
	if s.messageStartSent {
		return nil
	}
	s.messageStartSent = true

	payload := map[string]any{
		"type": "message_start",
		"message": map[string]any{
			"id":            ev.MessageID,
			"type":          "message",
			"role":          "assistant",
			"model":         ev.Model,
			"content":       []any{},
			"stop_reason":   nil,
			"stop_sequence": nil,
			"usage": map[string]any{
				"input_tokens":  ev.Usage.InputTokens,
				"output_tokens": ev.Usage.OutputTokens,
			},
		},
	}
	return s.emit("message_start", payload)
}

func (s *streamEncoder) openBlock(index int, kind unified.BlockKind, header map[string]any) []byte {
	st, ok := s.blocks[index]
	if !ok {
		st = &blockState{kind: kind}
		s.blocks[index] = st
	}
	if st.startSent {
		return nil
	}
	st.startSent = true

	header["type"] = "content_block_start"
	header["index"] = index
	return s.emit("content_block_start", header)
}

func (s *streamEncoder) blockStart(ev unified.StreamEvent) []byte {
	var block map[string]any
	switch ev.Block {
	case unified.BlockText:
		block = map[string]any{"content_block": map[string]any{"type": "text", "text": ""}}
	case unified.BlockThinking:
		block = map[string]any{"content_block": map[string]any{"type": "thinking", "thinking": ""}}
	case unified.BlockToolUse:
		block = map[string]any{"content_block": map[string]any{
			"type":  "tool_use",
			"id":    ev.ToolID,
			"name":  ev.ToolName,
			"input": map[string]any{},
		}}
	case unified.BlockWebSearchResult:
		block = map[string]any{"content_block": map[string]any{"type": "web_search_tool_result"}}
	default:
		return nil
	}
	return s.openBlock(ev.Index, ev.Block, block)
}

func (s *streamEncoder) blockDelta(ev unified.StreamEvent) []byte {
	var delta map[string]any
	switch ev.Delta {
	case unified.DeltaText:
		delta = map[string]any{"type": "text_delta", "text": ev.Text}
	case unified.DeltaThinkingText:
		delta = map[string]any{"type": "thinking_delta", "thinking": ev.Text}
	case unified.DeltaThinkingSignature:
		delta = map[string]any{"type": "signature_delta", "signature": ev.Signature}
	case unified.DeltaInputJSON, unified.DeltaToolCallFragment:
		delta = map[string]any{"type": "input_json_delta", "partial_json": ev.PartialJSON}
	default:
		return nil
	}

	return s.emit("content_block_delta", map[string]any{
		"type":  "content_block_delta",
		"index": ev.Index,
		"delta": delta,
	})
}

func (s *streamEncoder) blockStop(ev unified.StreamEvent) []byte {
	st, ok := s.blocks[ev.Index]
	if !ok || !st.startSent || st.stopSent {
		return nil
	}
	st.stopSent = true
	return s.emit("content_block_stop", map[string]any{
		"type":  "content_block_stop",
		"index": ev.Index,
	})
}

// closeOpenBlocks flushes content_block_stop for every block still open,
// mirroring the deleted legacy base.go's HandleFinishReason loop.
func (s *streamEncoder) closeOpenBlocks() []byte {
	var out []byte
	for index, st := range s.blocks {
		if st.startSent && !st.stopSent {
			st.stopSent = true
			out = append(out, s.emit("content_block_stop", map[string]any{
				"type":  "content_block_stop",
				"index": index,
			})...)
		}
	}
	return out
}

func anthropicStopReason(r unified.FinishReason) string {
	switch r {
	case unified.FinishMaxTokens:
		return "max_tokens"
	case unified.FinishToolUse:
		return "tool_use"
	case unified.FinishStopSequence:
		return "stop_sequence"
	default:
		return "end_turn"
	}
}

func (s *streamEncoder) messageDelta(ev unified.StreamEvent) []byte {
	out := s.closeOpenBlocks()

	payload := map[string]any{
		"type": "message_delta",
		"delta": map[string]any{
			"stop_reason":   anthropicStopReason(ev.FinishReason),
			"stop_sequence": nil,
		},
	}
	if ev.Usage.OutputTokens > 0 || ev.Usage.InputTokens > 0 {
		payload["usage"] = map[string]any{
			"input_tokens":  ev.Usage.InputTokens,
			"output_tokens": ev.Usage.OutputTokens,
		}
	}
	out = append(out, s.emit("message_delta", payload)...)
	return out
}

func (s *streamEncoder) messageStop() []byte {
	return s.emit("message_stop", map[string]any{"type": "message_stop"})
}

func (s *streamEncoder) errorEvent(ev unified.StreamEvent) []byte {
	return s.emit("error", map[string]any{
		"type": "error",
		"error": map[string]any{
			"type":    ev.ErrorKind,
			"message": ev.ErrorMessage,
		},
	})
}

func (s *streamEncoder) emit(name string, payload map[string]any) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return s.enc.EncodeNamed(name, data)
}
