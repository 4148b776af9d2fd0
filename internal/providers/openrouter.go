package providers

import (
	"fmt"
	"strings"

	"github.com/mihaisavezi/claude-code-open/internal/unified"
)

// This file carries OpenRouter's request/header/streaming quirks (spec.md
// §4.6), wired into a live chain via chain.go's openRouterStage. Grounded
// on this package's openaiwire.go (the shared OpenAI chat-completions
// bridge OpenRouter renders through, since it speaks the same wire dialect
// as the OpenAI upstream).

// AdaptOpenRouterRequestBody contributes the OpenRouter-specific outbound
// fields (spec.md §4.6): an optional provider.order array, and — for
// non-Claude upstream models — stripped cache_control blocks and
// data-URL-rewritten image parts.
func AdaptOpenRouterRequestBody(model string, body map[string]any, providerOrder []string) map[string]any {
	if len(providerOrder) > 0 {
		order := make([]any, len(providerOrder))
		for i, o := range providerOrder {
			order[i] = o
		}
		body["provider"] = map[string]any{"order": order}
	}

	if strings.Contains(model, "claude") {
		return body
	}

	messages, ok := body["messages"].([]any)
	if !ok {
		return body
	}
	for _, m := range messages {
		msg, ok := m.(map[string]any)
		if !ok {
			continue
		}
		delete(msg, "cache_control")
		parts, ok := msg["content"].([]any)
		if !ok {
			continue
		}
		for _, pRaw := range parts {
			part, ok := pRaw.(map[string]any)
			if !ok {
				continue
			}
			delete(part, "cache_control")
			rewriteOpenRouterImagePart(part)
		}
	}
	return body
}

func rewriteOpenRouterImagePart(part map[string]any) {
	if part["type"] != "image_url" {
		return
	}
	imgURL, ok := part["image_url"].(map[string]any)
	if !ok {
		return
	}
	url, _ := imgURL["url"].(string)
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") || strings.HasPrefix(url, "data:") {
		return
	}
	mediaType, _ := part["media_type"].(string)
	if mediaType == "" {
		mediaType = "image/png"
	}
	imgURL["url"] = fmt.Sprintf("data:%s;base64,%s", mediaType, url)
}

// AdaptOpenRouterHeaders attaches the OpenRouter-specific outbound headers
// (spec.md §4.6): HTTP-Referer and X-Title identify the calling
// application in OpenRouter's dashboard.
func AdaptOpenRouterHeaders(header map[string][]string, referer, title string) {
	if referer != "" {
		header["HTTP-Referer"] = []string{referer}
	}
	if title != "" {
		header["X-Title"] = []string{title}
	}
}

// OpenRouterStreamQuirks rewrites a StreamBridge-produced event sequence
// per OpenRouter's streaming quirks (spec.md §4.6): numeric-string
// tool-call ids are remapped so downstream id-sensitive consumers never
// see a bare integer.
func OpenRouterStreamQuirks(events []unified.StreamEvent) []unified.StreamEvent {
	for i := range events {
		if events[i].ToolID != "" && isAllDigits(events[i].ToolID) {
			events[i].ToolID = "call_" + events[i].ToolID
		}
	}
	return events
}

// OpenRouterQuirkState carries the cross-chunk state OpenRouterStreamQuirks
// cannot: whether a tool_use block was opened anywhere in the stream, so
// the eventual message_delta's finish_reason can be relabeled to tool_use
// even when OpenRouter itself reports "stop" (spec.md §4.6). One instance
// is owned per in-flight response stream, mirroring providers.StreamBridge,
// and its Apply method is what chain.go's NewStreamEventFilter hook wraps.
type OpenRouterQuirkState struct {
	sawToolUse bool
}

// Apply runs the id-remap quirk and the finish_reason relabel quirk over
// one chunk's worth of bridge-produced events.
func (s *OpenRouterQuirkState) Apply(events []unified.StreamEvent) []unified.StreamEvent {
	events = OpenRouterStreamQuirks(events)
	for i := range events {
		if events[i].Type == unified.EventContentBlockStart && events[i].Block == unified.BlockToolUse {
			s.sawToolUse = true
		}
		if s.sawToolUse && events[i].Type == unified.EventMessageDelta && events[i].FinishReason != unified.FinishToolUse {
			events[i].FinishReason = unified.FinishToolUse
		}
	}
	return events
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
