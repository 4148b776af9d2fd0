package kimi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihaisavezi/claude-code-open/internal/unified"
)

func TestParseMarkers_SingleCall(t *testing.T) {
	m := DefaultMarkerSet()
	text := "let me check" + m.SectionBegin +
		m.CallBegin + "functions.get_weather:0" + m.ArgumentBegin + `{"city":"SF"}` + m.CallEnd +
		m.SectionEnd + " done"

	calls, cleaned := ParseMarkers(text, m)
	require.Len(t, calls, 1)
	assert.Equal(t, "get_weather", calls[0].Name)
	assert.Equal(t, `{"city":"SF"}`, calls[0].Arguments)
	assert.Equal(t, "let me check done", cleaned)
}

func TestParseMarkers_MultipleCalls(t *testing.T) {
	m := DefaultMarkerSet()
	text := m.SectionBegin +
		m.CallBegin + "functions.a:0" + m.ArgumentBegin + `{}` + m.CallEnd +
		m.CallBegin + "functions.b:1" + m.ArgumentBegin + `{}` + m.CallEnd +
		m.SectionEnd

	calls, _ := ParseMarkers(text, m)
	require.Len(t, calls, 2)
	assert.Equal(t, "a", calls[0].Name)
	assert.Equal(t, "b", calls[1].Name)
}

func TestParseMarkers_NoSection(t *testing.T) {
	calls, cleaned := ParseMarkers("plain text", DefaultMarkerSet())
	assert.Nil(t, calls)
	assert.Equal(t, "plain text", cleaned)
}

func TestParseFuncID_Canonical(t *testing.T) {
	prefix, name, idx, ok := ParseFuncID("functions.get_weather:3")
	require.True(t, ok)
	assert.Equal(t, "functions", prefix)
	assert.Equal(t, "get_weather", name)
	assert.Equal(t, 3, idx)
}

func TestParseFuncID_Malformed(t *testing.T) {
	_, _, _, ok := ParseFuncID("not_a_func_id")
	assert.False(t, ok)
}

func TestRepairIDs_NormalizesAllWhenEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IDNormalization = true

	msg := unified.UnifiedMessage{
		ToolCalls: []unified.ToolCall{
			{ID: "weird-id", Name: "get_weather"},
			{ID: "functions.other:5", Name: "other"},
		},
	}

	RepairIDs(&msg, nil, cfg)
	assert.Equal(t, "functions.get_weather:0", msg.ToolCalls[0].ID)
	assert.Equal(t, "functions.other:1", msg.ToolCalls[1].ID)
}

func TestRepairIDs_OnlyNonConformingWhenRepairOnMismatch(t *testing.T) {
	cfg := DefaultConfig() // RepairOnMismatch true, IDNormalization false by default

	msg := unified.UnifiedMessage{
		ToolCalls: []unified.ToolCall{
			{ID: "functions.keep:7", Name: "keep"},
			{ID: "bad", Name: "fix_me"},
		},
	}

	RepairIDs(&msg, nil, cfg)
	assert.Equal(t, "functions.keep:7", msg.ToolCalls[0].ID, "already-canonical id left untouched")
	assert.Equal(t, "functions.fix_me:8", msg.ToolCalls[1].ID, "nextIndex seeded from max observed + 1")
}

func TestRepairIDs_Idempotent(t *testing.T) {
	cfg := DefaultConfig()

	msg := unified.UnifiedMessage{
		ToolCalls: []unified.ToolCall{{ID: "functions.f:2", Name: "f"}},
	}

	RepairIDs(&msg, nil, cfg)
	first := msg.ToolCalls[0].ID
	RepairIDs(&msg, nil, cfg)
	assert.Equal(t, first, msg.ToolCalls[0].ID)
}

func TestRepairIDs_CounterScopeSeedsFromHistory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IDNormalization = true

	history := []unified.UnifiedMessage{
		{ToolCalls: []unified.ToolCall{{ID: "functions.prior:4"}}},
	}
	msg := unified.UnifiedMessage{
		ToolCalls: []unified.ToolCall{{ID: "x", Name: "next"}},
	}

	RepairIDs(&msg, history, cfg)
	assert.Equal(t, "functions.next:5", msg.ToolCalls[0].ID)
}

func TestAssembler_AppendsArgumentsAndSynthesisesFinal(t *testing.T) {
	cfg := DefaultConfig()
	a := NewAssembler(cfg)

	a.Observe(Delta{Index: 0, ID: "call_1", Name: "get_weather"})
	a.Observe(Delta{Index: 0, Arguments: `{"city":`})
	a.Observe(Delta{Index: 0, Arguments: `"SF"}`})

	final := a.FinalChunk()
	assert.Contains(t, string(final), `"arguments":"{\"city\":\"SF\"}"`)
	assert.Contains(t, string(final), `"finish_reason":"tool_calls"`)
}

func TestValidateRequest_RejectsMissingToolCallID(t *testing.T) {
	cfg := DefaultConfig()
	err := ValidateRequest([]unified.UnifiedMessage{
		{Role: unified.RoleTool, Text: "result"},
	}, cfg)
	require.Error(t, err)
}

func TestValidateRequest_AllowsWellFormedTool(t *testing.T) {
	cfg := DefaultConfig()
	err := ValidateRequest([]unified.UnifiedMessage{
		{Role: unified.RoleTool, ToolCallID: "call_1", Text: "result"},
	}, cfg)
	assert.NoError(t, err)
}
