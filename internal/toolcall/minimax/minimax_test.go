package minimax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SingleInvoke(t *testing.T) {
	raw := `before <invoke name="get_weather"><parameter name="city">"SF"</parameter></invoke> after`

	parsed := Parse(raw, DefaultConfig())
	require.Len(t, parsed.Invokes, 1)
	assert.Equal(t, "get_weather", parsed.Invokes[0].Name)
	assert.JSONEq(t, `{"city":"SF"}`, parsed.Invokes[0].Arguments)
	assert.Equal(t, "before  after", parsed.Text)
}

func TestParse_NonJSONParameterKeptRaw(t *testing.T) {
	raw := `<invoke name="f"><parameter name="p">not json</parameter></invoke>`
	parsed := Parse(raw, DefaultConfig())
	require.Len(t, parsed.Invokes, 1)
	assert.JSONEq(t, `{"p":"not json"}`, parsed.Invokes[0].Arguments)
}

func TestParse_ThinkingBlockExtracted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ThinkingEnabled = true

	raw := `<thinking>reasoning here</thinking><invoke name="f"><parameter name="p">1</parameter></invoke>`
	parsed := Parse(raw, cfg)

	assert.Equal(t, "reasoning here", parsed.Thinking)
	require.Len(t, parsed.Invokes, 1)
}

func TestParse_TrimsSingleLeadingTrailingNewline(t *testing.T) {
	raw := "<invoke name=\"f\"><parameter name=\"p\">\n\"value\"\n</parameter></invoke>"
	parsed := Parse(raw, DefaultConfig())
	require.Len(t, parsed.Invokes, 1)
	assert.JSONEq(t, `{"p":"value"}`, parsed.Invokes[0].Arguments)
}

func TestToolCallID_FunctionBased(t *testing.T) {
	id := ToolCallID("get_weather", DefaultConfig())
	assert.Equal(t, "functions.get_weather", id)
}

func TestToolCallID_UUID(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IDStrategy = IDStrategyUUID
	id := ToolCallID("f", cfg)
	assert.Contains(t, id, "functions.f.")
	assert.Greater(t, len(id), len("functions.f."))
}

func TestBuffer_FlushSynthesisesFinalChunk(t *testing.T) {
	b := NewBuffer(DefaultConfig())
	b.Observe(`partial <invoke name="f">`)
	b.Observe(`<parameter name="p">1</parameter></invoke>`)

	out := b.Flush()
	require.NotNil(t, out)
	assert.Contains(t, string(out), `"finish_reason":"tool_calls"`)
	assert.Contains(t, string(out), `"f"`)
}

func TestBuffer_FlushNoInvokesReturnsNil(t *testing.T) {
	b := NewBuffer(DefaultConfig())
	b.Observe("just plain text")
	assert.Nil(t, b.Flush())
}
