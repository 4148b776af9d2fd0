package reasoning

import (
	"github.com/mihaisavezi/claude-code-open/internal/unified"
)

// NormalizeResponse converts a message.reasoning_content (or legacy
// "reasoning") field, carried through in msg.Annotations by the upstream
// adapter, into the two-part content array §4.8 specifies: a leading
// thinking block followed by the original text, then deletes the raw
// field. No-op if neither field is present.
func NormalizeResponse(msg *unified.UnifiedMessage) {
	raw, key := reasoningAnnotation(msg)
	if raw == "" {
		return
	}

	text := msg.Text
	msg.Content = append([]unified.ContentPart{
		{Type: unified.ContentThinking, Thinking: raw},
		{Type: unified.ContentText, Text: text},
	}, msg.Content...)

	delete(msg.Annotations, key)
}

func reasoningAnnotation(msg *unified.UnifiedMessage) (string, string) {
	if msg.Annotations == nil {
		return "", ""
	}
	if v, ok := msg.Annotations["reasoning_content"].(string); ok && v != "" {
		return v, "reasoning_content"
	}
	if v, ok := msg.Annotations["reasoning"].(string); ok && v != "" {
		return v, "reasoning"
	}
	return "", ""
}
