package kimi

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mihaisavezi/claude-code-open/internal/toolcall"
)

// toolCallBuffer accumulates one streamed tool call's fields across
// multiple chunks (§4.7.1 "Streaming assembly").
type toolCallBuffer struct {
	index     int
	id        string
	name      string
	arguments string
}

// Assembler buffers tool-call deltas across a single stream; it does not
// consult cfg.AssembleToolDeltas. It forwards nothing itself: FinalChunk
// renders the buffered calls as one synthesised chunk once the stream
// ends.
type Assembler struct {
	cfg     Config
	buffers map[int]*toolCallBuffer
	order   []int
}

func NewAssembler(cfg Config) *Assembler {
	return &Assembler{cfg: cfg, buffers: make(map[int]*toolCallBuffer)}
}

// Delta is one upstream tool_calls[i] fragment.
type Delta struct {
	Index     int
	ID        string
	Name      string
	Arguments string
}

// Observe updates the buffer for one delta. Non-empty id/name replace;
// arguments append.
func (a *Assembler) Observe(d Delta) {
	buf, ok := a.buffers[d.Index]
	if !ok {
		buf = &toolCallBuffer{index: d.Index}
		a.buffers[d.Index] = buf
		a.order = append(a.order, d.Index)
	}

	if d.ID != "" {
		buf.id = d.ID
	}
	if d.Name != "" {
		buf.name = d.Name
	}
	buf.arguments += d.Arguments

	if buf.id == "" && buf.name != "" {
		buf.id = fmt.Sprintf("%s.%s:%d", a.cfg.IDPrefix, buf.name, buf.index)
	}
}

// finalToolCall is the wire shape of one repaired call in the synthesised
// final chunk.
type finalToolCall struct {
	Index    int    `json:"index"`
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// FinalChunk renders the synthesised chunk emitted just before the stream
// terminator, containing every buffered call sorted by index.
func (a *Assembler) FinalChunk() []byte {
	calls := make([]finalToolCall, 0, len(a.buffers))
	for _, idx := range a.order {
		buf := a.buffers[idx]
		id := buf.id
		if len(id) > toolcall.MaxOpenAIToolCallIDLen {
			id = toolcall.TruncateToolCallID(id)
		}
		fc := finalToolCall{Index: buf.index, ID: id, Type: "function"}
		fc.Function.Name = buf.name
		fc.Function.Arguments = buf.arguments
		calls = append(calls, fc)
	}
	sort.Slice(calls, func(i, j int) bool { return calls[i].Index < calls[j].Index })

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
