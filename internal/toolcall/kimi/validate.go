package kimi

import (
	"fmt"

	"github.com/mihaisavezi/claude-code-open/internal/apierr"
	"github.com/mihaisavezi/claude-code-open/internal/unified"
)

// ValidateRequest enforces acceptRoleTool (§4.7.1): every role=tool
// message must carry a tool_call_id and non-empty content.
func ValidateRequest(messages []unified.UnifiedMessage, cfg Config) error {
	if !cfg.AcceptRoleTool {
		return nil
	}
	for i, msg := range messages {
		if msg.Role != unified.RoleTool {
			continue
		}
		if msg.ToolCallID == "" {
			return apierr.New(apierr.KindBadRequest, fmt.Sprintf("messages[%d]: role=tool missing tool_call_id", i))
		}
		if msg.Text == "" && !msg.HasStructuredContent() {
			return apierr.New(apierr.KindBadRequest, fmt.Sprintf("messages[%d]: role=tool missing content", i))
		}
	}
	return nil
}
