package providers

import "strings"

// This file carries the GPT-5 family's request/response quirks (spec.md
// §4.6), wired into a live chain via chain.go's gpt5Stage. Grounded on this
// package's own openaiwire.go (the shared OpenAI chat-completions bridge
// every C6 adapter renders through) and stripJSONSchemaKeys, which this
// file's requestOut rule reuses rather than duplicating.

// isGPT5Family reports whether model is a GPT-5-generation model subject to
// the requestOut/responseIn quirks below.
func isGPT5Family(model string) bool {
	return strings.HasPrefix(model, "gpt-5")
}

// AdaptGPT5RequestBody applies the GPT-5 family's requestOut rules to an
// OpenAI chat-completions body already rendered by
// providers.ToOpenAIChatRequest: rename max_tokens to
// max_completion_tokens, drop temperature unless it is the default 1, lift
// a structured reasoning.effort to top-level reasoning_effort, clean
// already-OpenAI-shaped tool schemas, and validate verbosity.
func AdaptGPT5RequestBody(model string, body map[string]any) map[string]any {
	if !isGPT5Family(model) {
		return body
	}

	if maxTokens, ok := body["max_tokens"]; ok {
		body["max_completion_tokens"] = maxTokens
		delete(body, "max_tokens")
	}

	if temp, ok := body["temperature"].(float64); !ok || temp != 1 {
		delete(body, "temperature")
	}

	if reasoning, ok := body["reasoning"].(map[string]any); ok {
		if effort, ok := reasoning["effort"].(string); ok {
			body["reasoning_effort"] = effort
		} else if _, already := body["reasoning_effort"]; !already {
			body["reasoning_effort"] = "medium"
		}
		delete(body, "reasoning")
	}

	if tools, ok := body["tools"].([]any); ok {
		for _, t := range tools {
			tool, ok := t.(map[string]any)
			if !ok || tool["type"] == "custom" {
				continue
			}
			if fn, ok := tool["function"].(map[string]any); ok {
				if params, ok := fn["parameters"].(map[string]any); ok {
					fn["parameters"] = stripJSONSchemaKeys(params)
				}
			}
		}
	}

	if v, ok := body["verbosity"].(string); ok {
		switch v {
		case "low", "medium", "high":
		default:
			delete(body, "verbosity")
		}
	}

	return body
}

// AdaptGPT5ResponseMessage applies the GPT-5 family's responseIn rule
// (spec.md §4.6): a choice message's reasoning_content, when present, is
// prepended to the visible text inside <reasoning>...</reasoning> markers,
// with the raw value preserved under a private annotation key.
func AdaptGPT5ResponseMessage(model string, text string, reasoningContent string) string {
	if !isGPT5Family(model) || reasoningContent == "" {
		return text
	}
	return "<reasoning>" + reasoningContent + "</reasoning>" + text
}
