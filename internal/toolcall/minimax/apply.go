package minimax

import (
	"github.com/mihaisavezi/claude-code-open/internal/unified"
)

// Apply parses msg's text for MiniMax XML invoke blocks and attaches the
// resulting tool calls, removing the XML from the visible text. When
// cfg.ThinkingEnabled is set, a <thinking> block is also captured as a
// dedicated thinking content part; otherwise it stays in the text.
func Apply(msg *unified.UnifiedMessage, cfg Config) {
	if msg.Text == "" {
		return
	}

	parsed := Parse(msg.Text, cfg)
	msg.Text = parsed.Text

	if parsed.Thinking != "" {
		msg.Content = append(msg.Content, unified.ContentPart{
			Type:     unified.ContentThinking,
			Thinking: parsed.Thinking,
		})
	}

	for _, inv := range parsed.Invokes {
		msg.ToolCalls = append(msg.ToolCalls, unified.ToolCall{
			ID:        ToolCallID(inv.Name, cfg),
			Type:      "function",
			Name:      inv.Name,
			Arguments: inv.Arguments,
		})
	}
}
