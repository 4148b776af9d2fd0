package reasoning

import (
	"github.com/mihaisavezi/claude-code-open/internal/unified"
)

// NormalizeRequest folds the anthropic dialect bridge's
// Extra["anthropic_thinking_budget"] (set by internal/dialect/anthropic's
// RequestIn when `thinking.type == "enabled"`) and OpenAI-style structured
// `reasoning` request fields into reasoning_effort, per §4.8, returning a
// modified copy. Both raw fields are dropped once consumed.
func NormalizeRequest(req *unified.UnifiedChatRequest) *unified.UnifiedChatRequest {
	if req.Extra == nil {
		return req
	}

	_, hasBudget := req.Extra["anthropic_thinking_budget"]
	_, hasEnableThinking := req.Extra["enable_thinking"]
	_, hasReasoning := req.Extra["reasoning"]
	if !hasBudget && !hasEnableThinking && !hasReasoning {
		return req
	}

	out := req.Clone()

	if budget, ok := numericValue(out.Extra["anthropic_thinking_budget"]); ok {
		if out.ReasoningEffort == nil {
			effort := budgetToEffort(budget)
			out.ReasoningEffort = &effort
		}
		delete(out.Extra, "anthropic_thinking_budget")
	}

	if boolValue(out.Extra["enable_thinking"]) {
		if out.ReasoningEffort == nil {
			effort := unified.ReasoningMedium
			out.ReasoningEffort = &effort
		}
		delete(out.Extra, "enable_thinking")
	}

	if r, ok := out.Extra["reasoning"]; ok {
		if effort, ok := reasoningToEffort(r); ok {
			if out.ReasoningEffort == nil {
				out.ReasoningEffort = &effort
			}
		}
		delete(out.Extra, "reasoning")
	}

	return out
}

func budgetToEffort(maxTokens float64) unified.ReasoningEffort {
	switch {
	case maxTokens > 1000:
		return unified.ReasoningHigh
	case maxTokens > 500:
		return unified.ReasoningMedium
	default:
		return unified.ReasoningMinimal
	}
}

func boolValue(v any) bool {
	b, _ := v.(bool)
	return b
}

// reasoningToEffort implements §4.8's mapping for a structured `reasoning`
// field: reasoning.max_tokens thresholds, or a flat reasoning.effort
// passthrough. Any other shape is unrecognised and dropped (ok=false).
func reasoningToEffort(v any) (unified.ReasoningEffort, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return "", false
	}

	if effort, ok := m["effort"].(string); ok {
		return unified.ReasoningEffort(effort), true
	}

	if maxTokens, ok := numericValue(m["max_tokens"]); ok {
		switch {
		case maxTokens > 1000:
			return unified.ReasoningHigh, true
		case maxTokens > 500:
			return unified.ReasoningMedium, true
		default:
			return unified.ReasoningMinimal, true
		}
	}

	return "", false
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
