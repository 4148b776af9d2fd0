// Package minimax implements the MiniMax-M2 XML tool-call subsystem
// (spec.md §4.7.2): parsing `<invoke name=...><parameter name=...>` blocks
// out of assistant text, generating a tool_call id per the configured
// strategy, and the streaming buffer-then-flush variant.
package minimax

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IDStrategy selects how a parsed invoke's tool_call id is generated.
type IDStrategy string

const (
	IDStrategyUUID           IDStrategy = "uuid"
	IDStrategyCounter        IDStrategy = "counter"
	IDStrategyFunctionBased  IDStrategy = "function-based"
)

// Config holds the per-provider MiniMax options.
type Config struct {
	Prefix              string
	IDStrategy          IDStrategy
	ThinkingEnabled      bool
	BufferIncompleteXML  bool
}

func DefaultConfig() Config {
	return Config{Prefix: "functions", IDStrategy: IDStrategyFunctionBased}
}

// ParsedInvoke is one extracted <invoke> block before id assignment.
type ParsedInvoke struct {
	Name      string
	Arguments string // JSON-stringified parameter map
}

// ParsedMessage is the result of parsing one assistant text blob.
type ParsedMessage struct {
	Thinking string
	Text     string
	Invokes  []ParsedInvoke
}

// Parse implements the §4.7.2 non-streaming grammar: an optional leading
// <thinking> block, then zero or more <invoke> blocks, against the
// remaining plain text.
func Parse(raw string, cfg Config) ParsedMessage {
	out := ParsedMessage{Text: raw}

	if cfg.ThinkingEnabled {
		if thinking, rest, ok := extractTag(out.Text, "thinking"); ok {
			out.Thinking = strings.TrimSpace(thinking)
			out.Text = rest
		}
	}

	invokes, rest := extractInvokes(out.Text)
	out.Invokes = invokes
	out.Text = rest

	return out
}

// extractTag pulls the first <tag>...</tag> block out of s, returning its
// inner content and s with the block removed.
func extractTag(s, tag string) (inner, rest string, ok bool) {
	open := "<" + tag + ">"
	close_ := "</" + tag + ">"

	start := strings.Index(s, open)
	if start == -1 {
		return "", s, false
	}
	end := strings.Index(s[start:], close_)
	if end == -1 {
		return "", s, false
	}
	end += start

	inner = s[start+len(open) : end]
	rest = s[:start] + s[end+len(close_):]
	return inner, rest, true
}

func extractInvokes(s string) ([]ParsedInvoke, string) {
	var invokes []ParsedInvoke
	rest := s

	for {
		start := strings.Index(rest, "<invoke ")
		if start == -1 {
			break
		}
		tagEnd := strings.IndexByte(rest[start:], '>')
		if tagEnd == -1 {
			break
		}
		tagEnd += start

		name := attrValue(rest[start:tagEnd+1], "name")

		closeTag := "</invoke>"
		end := strings.Index(rest[tagEnd:], closeTag)
		if end == -1 {
			break
		}
		end += tagEnd

		body := rest[tagEnd+1 : end]
		params := extractParameters(body)

		argsJSON, _ := json.Marshal(params)
		invokes = append(invokes, ParsedInvoke{Name: name, Arguments: string(argsJSON)})

		rest = rest[:start] + rest[end+len(closeTag):]
	}

	return invokes, rest
}

func extractParameters(body string) map[string]any {
	params := make(map[string]any)
	rest := body

	for {
		start := strings.Index(rest, "<parameter ")
		if start == -1 {
			break
		}
		tagEnd := strings.IndexByte(rest[start:], '>')
		if tagEnd == -1 {
			break
		}
		tagEnd += start

		name := attrValue(rest[start:tagEnd+1], "name")

		closeTag := "</parameter>"
		end := strings.Index(rest[tagEnd:], closeTag)
		if end == -1 {
			break
		}
		end += tagEnd

		value := rest[tagEnd+1 : end]
		value = strings.TrimPrefix(value, "\n")
		value = strings.TrimSuffix(value, "\n")

		params[name] = parseParamValue(value)

		rest = rest[end+len(closeTag):]
	}

	return params
}

func parseParamValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

func attrValue(tag, attr string) string {
	needle := attr + `="`
	i := strings.Index(tag, needle)
	if i == -1 {
		return ""
	}
	i += len(needle)
	j := strings.IndexByte(tag[i:], '"')
	if j == -1 {
		return ""
	}
	return tag[i : i+j]
}

// ToolCallID generates an id for a parsed invoke per the configured
// strategy (§4.7.2). The "counter" strategy is in fact timestamp-keyed,
// per the spec's own definition, despite its name.
func ToolCallID(fn string, cfg Config) string {
	switch cfg.IDStrategy {
	case IDStrategyUUID:
		return fmt.Sprintf("%s.%s.%s", cfg.Prefix, fn, uuid.NewString())
	case IDStrategyCounter:
		return fmt.Sprintf("%s.%s.%s", cfg.Prefix, fn, strconv.FormatInt(time.Now().UnixNano(), 10))
	default: // function-based
		return fmt.Sprintf("%s.%s", cfg.Prefix, fn)
	}
}
