package providers

import (
	"encoding/json"

	"github.com/mihaisavezi/claude-code-open/internal/toolcall/kimi"
	"github.com/mihaisavezi/claude-code-open/internal/toolcall/minimax"
	"github.com/mihaisavezi/claude-code-open/internal/transform"
	"github.com/mihaisavezi/claude-code-open/internal/unified"
)

// kimiStreamRepairer adapts kimi.Assembler to transform.StreamToolCallRepairer:
// it buffers every streamed tool_calls delta and, at stream end, replays
// kimi's repaired/truncated ids as fresh content blocks instead of the
// raw-chunk relay kimi.Assembler.FinalChunk was originally designed to feed
// (spec.md §4.7.1 "Streaming assembly").
type kimiStreamRepairer struct {
	asm *kimi.Assembler
}

// NewKimiStreamRepairer wires kimi.NewAssembler into the StreamBridge
// integration seam.
func NewKimiStreamRepairer(cfg kimi.Config) transform.StreamToolCallRepairer {
	return &kimiStreamRepairer{asm: kimi.NewAssembler(cfg)}
}

func (r *kimiStreamRepairer) HandlesToolCalls() bool { return true }
func (r *kimiStreamRepairer) BuffersText() bool      { return false }
func (r *kimiStreamRepairer) ObserveText(string)     {}

func (r *kimiStreamRepairer) ObserveToolCall(index int, id, name, arguments string) {
	r.asm.Observe(kimi.Delta{Index: index, ID: id, Name: name, Arguments: arguments})
}

func (r *kimiStreamRepairer) Finish() *unified.UnifiedMessage {
	raw := r.asm.FinalChunk()
	if raw == nil {
		return nil
	}

	var chunk wireChatChunk
	if err := json.Unmarshal(raw, &chunk); err != nil || len(chunk.Choices) == 0 {
		return nil
	}

	msg := &unified.UnifiedMessage{Role: unified.RoleAssistant}
	for _, tc := range chunk.Choices[0].Delta.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, unified.ToolCall{
			ID:        tc.ID,
			Type:      "function",
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	if len(msg.ToolCalls) == 0 {
		return nil
	}
	return msg
}

// minimaxStreamRepairer adapts minimax.Buffer to
// transform.StreamToolCallRepairer: MiniMax ships tool invokes as XML
// embedded in ordinary content deltas, so unlike Kimi it claims text
// (BuffersText) rather than structured tool_calls deltas.
type minimaxStreamRepairer struct {
	buf *minimax.Buffer
}

// NewMinimaxStreamRepairer wires minimax.NewBuffer into the StreamBridge
// integration seam.
func NewMinimaxStreamRepairer(cfg minimax.Config) transform.StreamToolCallRepairer {
	return &minimaxStreamRepairer{buf: minimax.NewBuffer(cfg)}
}

func (r *minimaxStreamRepairer) HandlesToolCalls() bool                      { return false }
func (r *minimaxStreamRepairer) BuffersText() bool                          { return true }
func (r *minimaxStreamRepairer) ObserveToolCall(int, string, string, string) {}

func (r *minimaxStreamRepairer) ObserveText(text string) {
	r.buf.Observe(text)
}

func (r *minimaxStreamRepairer) Finish() *unified.UnifiedMessage {
	msg := &unified.UnifiedMessage{Role: unified.RoleAssistant}
	r.buf.FlushToMessage(msg)
	if msg.Text == "" && len(msg.ToolCalls) == 0 {
		return nil
	}
	return msg
}
