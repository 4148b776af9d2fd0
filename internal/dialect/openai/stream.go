package openai

import (
	"context"
	"encoding/json"

	"github.com/mihaisavezi/claude-code-open/internal/sse"
	"github.com/mihaisavezi/claude-code-open/internal/unified"
)

// streamEncoder renders unified.StreamEvents as OpenAI-dialect
// chat.completion.chunk SSE data payloads, the client-facing half sse.go's
// EncodeData/EncodeDone were already built for but nothing called until
// this package existed.
type streamEncoder struct {
	enc   sse.Encoder
	id    string
	model string

	blockToToolIndex map[int]int
	nextToolIndex    int
	roleSent         bool
}

// StreamResponseOut returns a fresh per-response encoder closure, mirroring
// internal/dialect/anthropic's StreamResponseOut builder.
func StreamResponseOut(_ context.Context) func(unified.StreamEvent) []byte {
	s := &streamEncoder{blockToToolIndex: make(map[int]int)}
	return s.handle
}

func (s *streamEncoder) handle(ev unified.StreamEvent) []byte {
	switch ev.Type {
	case unified.EventMessageStart:
		s.id = ev.MessageID
		s.model = ev.Model
		return s.chunk(map[string]any{"role": "assistant"}, "")
	case unified.EventContentBlockStart:
		return s.blockStart(ev)
	case unified.EventContentBlockDelta:
		return s.blockDelta(ev)
	case unified.EventContentBlockStop:
		return nil
	case unified.EventMessageDelta:
		return s.chunk(map[string]any{}, openAIFinishReason(ev.FinishReason))
	case unified.EventMessageStop:
		return s.enc.EncodeDone()
	case unified.EventError:
		return s.errorChunk(ev)
	default:
		return nil
	}
}

func (s *streamEncoder) blockStart(ev unified.StreamEvent) []byte {
	if ev.Block != unified.BlockToolUse {
		return nil
	}
	idx := s.nextToolIndex
	s.blockToToolIndex[ev.Index] = idx
	s.nextToolIndex++

	tc := map[string]any{
		"index": idx,
		"id":    ev.ToolID,
		"type":  "function",
		"function": map[string]any{
			"name":      ev.ToolName,
			"arguments": "",
		},
	}
	return s.chunk(map[string]any{"tool_calls": []any{tc}}, "")
}

func (s *streamEncoder) blockDelta(ev unified.StreamEvent) []byte {
	switch ev.Delta {
	case unified.DeltaText:
		return s.chunk(map[string]any{"content": ev.Text}, "")
	case unified.DeltaInputJSON, unified.DeltaToolCallFragment:
		idx, ok := s.blockToToolIndex[ev.Index]
		if !ok {
			idx = ev.Index
		}
		tc := map[string]any{
			"index":    idx,
			"function": map[string]any{"arguments": ev.PartialJSON},
		}
		return s.chunk(map[string]any{"tool_calls": []any{tc}}, "")
	default:
		return nil
	}
}

func (s *streamEncoder) chunk(delta map[string]any, finishReason string) []byte {
	payload := map[string]any{
		"id":      s.id,
		"object":  "chat.completion.chunk",
		"model":   s.model,
		"choices": []any{map[string]any{"index": 0, "delta": delta, "finish_reason": finishReasonOrNil(finishReason)}},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return s.enc.EncodeData(data)
}

func finishReasonOrNil(r string) any {
	if r == "" {
		return nil
	}
	return r
}

func (s *streamEncoder) errorChunk(ev unified.StreamEvent) []byte {
	payload := map[string]any{
		"error": map[string]any{
			"type":    ev.ErrorKind,
			"message": ev.ErrorMessage,
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return s.enc.EncodeData(data)
}
