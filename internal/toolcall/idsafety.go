// Package toolcall holds helpers shared by the kimi and minimax tool-call
// subsystems (spec.md §4.7): canonical id handling, length limits imposed
// by upstream OpenAI-compatible APIs, and the argument-delta assembly
// pattern both subsystems use while streaming.
package toolcall

// MaxOpenAIToolCallIDLen is OpenAI's hard limit on tool_call ids; ids
// produced by repair/normalisation or by upstream synthesis must fit,
// grounded on the independent gateway's truncateToolCallID helper
// (_examples/other_examples tingly-box stream converter).
const MaxOpenAIToolCallIDLen = 40

// TruncateToolCallID clips id to MaxOpenAIToolCallIDLen, preserving the
// prefix (which carries the semantically useful part: provider/tool name)
// over the tail.
func TruncateToolCallID(id string) string {
	if len(id) <= MaxOpenAIToolCallIDLen {
		return id
	}
	return id[:MaxOpenAIToolCallIDLen]
}
