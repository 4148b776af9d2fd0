package kimi

import (
	"fmt"
	"regexp"

	"github.com/mihaisavezi/claude-code-open/internal/unified"
)

// canonicalID matches "{prefix}.{name}:{n}" with an all-digit n, the shape
// produced by RepairIDs itself — used to detect ids already in canonical
// form so repair is idempotent.
var canonicalID = regexp.MustCompile(`^[^.]+\.[^:]+:(\d+)$`)

// MaxObservedIndex scans every tool_call id across history for ones
// matching the canonical form and returns the highest n found, or -1 if
// none match.
func MaxObservedIndex(history []unified.UnifiedMessage) int {
	max := -1
	for _, msg := range history {
		for _, tc := range msg.ToolCalls {
			if n, ok := canonicalIndex(tc.ID); ok && n > max {
				max = n
			}
		}
	}
	return max
}

func canonicalIndex(id string) (int, bool) {
	m := canonicalID.FindStringSubmatch(id)
	if m == nil {
		return 0, false
	}
	var n int
	_, err := fmt.Sscanf(m[1], "%d", &n)
	if err != nil {
		return 0, false
	}
	return n, true
}

// RepairIDs applies §4.7.1's id repair/normalisation rule to one message's
// tool calls, given the rest of conversation history (used only to seed
// nextIndex). It is idempotent: re-running it over already-canonical ids
// with idNormalization=false and repairOnMismatch=true is a no-op.
//
// nextIndex is seeded from the highest canonical index in history, plus
// the highest canonical index among this message's own calls that will be
// left unchanged (so a freshly assigned id never collides with a sibling
// call that was already canonical and is being kept).
func RepairIDs(msg *unified.UnifiedMessage, history []unified.UnifiedMessage, cfg Config) {
	if !cfg.IDNormalization && !cfg.RepairOnMismatch {
		return
	}
	if len(msg.ToolCalls) == 0 {
		return
	}

	needsRepair := make([]bool, len(msg.ToolCalls))
	base := MaxObservedIndex(history)
	for i, tc := range msg.ToolCalls {
		repair := cfg.IDNormalization
		if !repair && cfg.RepairOnMismatch {
			_, ok := canonicalIndex(tc.ID)
			repair = tc.ID == "" || !ok
		}
		needsRepair[i] = repair

		if !repair {
			if n, ok := canonicalIndex(tc.ID); ok && n > base {
				base = n
			}
		}
	}

	nextIndex := base + 1
	offset := 0
	for i := range msg.ToolCalls {
		if !needsRepair[i] {
			continue
		}
		tc := &msg.ToolCalls[i]
		tc.ID = fmt.Sprintf("%s.%s:%d", cfg.IDPrefix, tc.Name, nextIndex+offset)
		offset++
	}
}
