package kimi

import (
	"strconv"
	"strings"

	"github.com/mihaisavezi/claude-code-open/internal/unified"
)

// MarkerSet is the K2 tool-call text-marker vocabulary (§4.7.1's default
// marker set). A provider that emits differently spelled markers can
// override it via config without touching the parser.
type MarkerSet struct {
	SectionBegin  string
	SectionEnd    string
	CallBegin     string
	ArgumentBegin string
	CallEnd       string
}

func DefaultMarkerSet() MarkerSet {
	return MarkerSet{
		SectionBegin:  "<|tool_calls_section_begin|>",
		SectionEnd:    "<|tool_calls_section_end|>",
		CallBegin:     "<|tool_call_begin|>",
		ArgumentBegin: "<|tool_call_argument_begin|>",
		CallEnd:       "<|tool_call_end|>",
	}
}

// ParsedCall is one tool call extracted from a marker section, before id
// repair.
type ParsedCall struct {
	FuncID    string // raw funcId, "<prefix>.<name>:<idx>" or a bare name
	Name      string
	Arguments string
}

// ParseMarkers scans text for a §4.7.1 marker section. It returns the
// calls found (possibly none) and the text with the section removed; if
// no section marker is present, calls is nil and text is returned
// unchanged.
func ParseMarkers(text string, m MarkerSet) (calls []ParsedCall, cleaned string) {
	start := strings.Index(text, m.SectionBegin)
	if start == -1 {
		return nil, text
	}
	end := strings.Index(text, m.SectionEnd)
	if end == -1 || end < start {
		return nil, text
	}

	section := text[start+len(m.SectionBegin) : end]
	cleaned = text[:start] + text[end+len(m.SectionEnd):]

	rest := section
	for {
		cb := strings.Index(rest, m.CallBegin)
		if cb == -1 {
			break
		}
		rest = rest[cb+len(m.CallBegin):]

		ab := strings.Index(rest, m.ArgumentBegin)
		ce := strings.Index(rest, m.CallEnd)
		if ab == -1 || ce == -1 || ce < ab {
			break
		}

		funcID := rest[:ab]
		args := rest[ab+len(m.ArgumentBegin) : ce]
		name := funcID
		if _, parsedName, _, ok := ParseFuncID(funcID); ok {
			name = parsedName
		}

		calls = append(calls, ParsedCall{FuncID: funcID, Name: name, Arguments: args})
		rest = rest[ce+len(m.CallEnd):]
	}

	return calls, cleaned
}

// ParseFuncID splits a canonical "<prefix>.<name>:<idx>" funcId. ok is
// false when the funcId does not conform, in which case callers should
// treat the whole string as the tool name (§4.7.1).
func ParseFuncID(funcID string) (prefix, name string, idx int, ok bool) {
	dot := strings.IndexByte(funcID, '.')
	colon := strings.LastIndexByte(funcID, ':')
	if dot == -1 || colon == -1 || colon < dot {
		return "", "", 0, false
	}

	prefix = funcID[:dot]
	name = funcID[dot+1 : colon]
	n, err := strconv.Atoi(funcID[colon+1:])
	if err != nil {
		return "", "", 0, false
	}
	return prefix, name, n, true
}

// ApplyManualParse implements the non-streaming manual-parse rule: if the
// assistant message's text contains a marker section, extract calls,
// strip the section, and attach the calls to the message. It does not run
// id repair; callers run RepairIDs afterward over the full message list.
func ApplyManualParse(msg *unified.UnifiedMessage, cfg Config) (finishReasonOverride bool) {
	if !cfg.ManualToolParsing || msg.Text == "" {
		return false
	}

	calls, cleaned := ParseMarkers(msg.Text, cfg.Tokens)
	if len(calls) == 0 {
		return false
	}

	msg.Text = cleaned
	for _, c := range calls {
		msg.ToolCalls = append(msg.ToolCalls, unified.ToolCall{
			Type:      "function",
			Name:      c.Name,
			Arguments: c.Arguments,
		})
	}

	return cfg.EnforceFinishReasonLoop
}
