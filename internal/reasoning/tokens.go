// Package reasoning implements the prefix/hashtag token extractor and the
// thinking/reasoning_content normalisation utilities (spec.md §4.8).
package reasoning

import (
	"strings"

	"github.com/mihaisavezi/claude-code-open/internal/unified"
)

// tokenMapping is one entry of the §4.8 prefix/hashtag -> effort/verbosity
// table.
type tokenMapping struct {
	effort    unified.ReasoningEffort
	verbosity unified.Verbosity
}

var prefixTokens = map[string]tokenMapping{
	"Quick:":   {unified.ReasoningLow, unified.VerbosityLow},
	"Deep:":    {unified.ReasoningHigh, unified.VerbosityMedium},
	"Explain:": {unified.ReasoningMedium, unified.VerbosityHigh},
	"Brief:":   {unified.ReasoningMedium, unified.VerbosityLow},
}

var hashtagTokens = map[string]tokenMapping{
	"#quick":   {unified.ReasoningLow, unified.VerbosityLow},
	"#deep":    {unified.ReasoningHigh, unified.VerbosityMedium},
	"#explain": {unified.ReasoningMedium, unified.VerbosityHigh},
	"#brief":   {unified.ReasoningMedium, unified.VerbosityLow},
}

// ApplyTokens strips at most one prefix token and one hashtag token from
// the final user message's text and fills req's reasoning_effort/verbosity
// from the §4.8 table, only where those fields are not already set. It
// returns a modified copy; req itself is left untouched.
func ApplyTokens(req *unified.UnifiedChatRequest) *unified.UnifiedChatRequest {
	idx := lastUserMessageIndex(req.Messages)
	if idx == -1 {
		return req
	}

	text := req.Messages[idx].Text
	var matched []tokenMapping

	for token, mapping := range prefixTokens {
		if strings.HasPrefix(text, token) {
			text = strings.TrimSpace(strings.TrimPrefix(text, token))
			matched = append(matched, mapping)
			break
		}
	}

	for token, mapping := range hashtagTokens {
		if i := strings.Index(text, token); i != -1 {
			text = strings.TrimSpace(text[:i] + text[i+len(token):])
			matched = append(matched, mapping)
			break
		}
	}

	if len(matched) == 0 {
		return req
	}

	out := req.Clone()
	out.Messages[idx].Text = text

	for _, m := range matched {
		if out.ReasoningEffort == nil {
			effort := m.effort
			out.ReasoningEffort = &effort
		}
		if out.Verbosity == nil {
			verbosity := m.verbosity
			out.Verbosity = &verbosity
		}
	}

	return out
}

func lastUserMessageIndex(messages []unified.UnifiedMessage) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == unified.RoleUser {
			return i
		}
	}
	return -1
}
