package minimax

import (
	"encoding/json"
	"strings"

	"github.com/mihaisavezi/claude-code-open/internal/unified"
)

// Buffer accumulates streamed content deltas into one text buffer; it does
// not consult cfg.BufferIncompleteXML. Buffer itself emits nothing while
// deltas arrive; on stream end, Flush runs the non-streaming parse over the
// accumulated text and returns a synthesised final chunk when tool calls
// were found.
type Buffer struct {
	cfg Config
	buf strings.Builder
}

func NewBuffer(cfg Config) *Buffer {
	return &Buffer{cfg: cfg}
}

// Observe appends one content delta to the buffer.
func (b *Buffer) Observe(textDelta string) {
	b.buf.WriteString(textDelta)
}

// Flush parses the accumulated buffer and, if any invokes were found,
// returns a synthesised Chat-Completions-shaped final chunk carrying them
// with finish_reason "tool_calls". Returns nil if nothing was found.
func (b *Buffer) Flush() []byte {
	parsed := Parse(b.buf.String(), b.cfg)
	if len(parsed.Invokes) == 0 {
		return nil
	}

	var calls []map[string]any
	for _, inv := range parsed.Invokes {
		calls = append(calls, map[string]any{
			"id":   ToolCallID(inv.Name, b.cfg),
			"type": "function",
			"function": map[string]any{
				"name":      inv.Name,
				"arguments": inv.Arguments,
			},
		})
	}

	payload := map[string]any{
		"choices": []map[string]any{
			{
				"delta":         map[string]any{"tool_calls": calls},
				"finish_reason": "tool_calls",
			},
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// FlushToMessage is the unified-model-facing equivalent of Flush, used
// when the stream terminates into a UnifiedResponse rather than a raw
// OpenAI-shaped chunk: it parses the buffered text directly, since msg's
// own Text was never populated chunk-by-chunk in the unified path.
func (b *Buffer) FlushToMessage(msg *unified.UnifiedMessage) {
	msg.Text = b.buf.String()
	Apply(msg, b.cfg)
}
