package transform

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihaisavezi/claude-code-open/internal/unified"
)

func TestChain_ApplyWireRequestOut_RunsEveryStageInOrder(t *testing.T) {
	chain := NewChain(
		Transformer{Name: "a", WireRequestOut: func(_ string, body map[string]any) map[string]any {
			body["a"] = true
			return body
		}},
		Transformer{Name: "b", WireRequestOut: func(_ string, body map[string]any) map[string]any {
			body["b"] = true
			return body
		}},
	)

	out := chain.ApplyWireRequestOut("some-model", map[string]any{})
	assert.Equal(t, true, out["a"])
	assert.Equal(t, true, out["b"])
}

func TestChain_ApplyWireResponseIn_RunsEveryStage(t *testing.T) {
	chain := NewChain(
		Transformer{Name: "a", WireResponseIn: func(resp *unified.UnifiedResponse) {
			resp.Message.Text += "-a"
		}},
		Transformer{Name: "b", WireResponseIn: func(resp *unified.UnifiedResponse) {
			resp.Message.Text += "-b"
		}},
	)

	resp := &unified.UnifiedResponse{Message: unified.UnifiedMessage{Text: "base"}}
	chain.ApplyWireResponseIn(resp)
	assert.Equal(t, "base-a-b", resp.Message.Text)
}

func TestChain_ApplyAuth_StopsOnFirstError(t *testing.T) {
	calledSecond := false
	chain := NewChain(
		Transformer{Name: "a", Auth: func(context.Context, *http.Request, string) error {
			return assert.AnError
		}},
		Transformer{Name: "b", Auth: func(context.Context, *http.Request, string) error {
			calledSecond = true
			return nil
		}},
	)

	req, err := http.NewRequest(http.MethodGet, "https://example.com", nil)
	require.NoError(t, err)

	err = chain.ApplyAuth(context.Background(), req, "provider")
	assert.Error(t, err)
	assert.False(t, calledSecond)
}

func TestChain_EndPoint_ReturnsFirstNonEmpty(t *testing.T) {
	chain := NewChain(
		Transformer{Name: "a"},
		Transformer{Name: "b", EndPoint: "/v1/custom"},
		Transformer{Name: "c", EndPoint: "/v1/other"},
	)
	assert.Equal(t, "/v1/custom", chain.EndPoint())
}

func TestChain_BuildStreamToolCallRepairer_ReturnsFirstStageOnly(t *testing.T) {
	first := &fakeRepairer{}
	second := &fakeRepairer{}
	chain := NewChain(
		Transformer{Name: "a", NewStreamToolCallRepairer: func() StreamToolCallRepairer { return first }},
		Transformer{Name: "b", NewStreamToolCallRepairer: func() StreamToolCallRepairer { return second }},
	)

	got := chain.BuildStreamToolCallRepairer()
	assert.Same(t, first, got)
}

func TestChain_BuildStreamEventFilter_ComposesAllStages(t *testing.T) {
	chain := NewChain(
		Transformer{Name: "a", NewStreamEventFilter: func() StreamEventFilter {
			return func(events []unified.StreamEvent) []unified.StreamEvent {
				for i := range events {
					events[i].Text += "-a"
				}
				return events
			}
		}},
		Transformer{Name: "b", NewStreamEventFilter: func() StreamEventFilter {
			return func(events []unified.StreamEvent) []unified.StreamEvent {
				for i := range events {
					events[i].Text += "-b"
				}
				return events
			}
		}},
	)

	filter := chain.BuildStreamEventFilter()
	out := filter([]unified.StreamEvent{{Text: "base"}})
	require.Len(t, out, 1)
	assert.Equal(t, "base-a-b", out[0].Text)
}

func TestChain_ApplyToolCallPostProcess_RunsEveryStage(t *testing.T) {
	var seen []string
	chain := NewChain(
		Transformer{Name: "a", ToolCallPostProcess: func(_ *unified.UnifiedMessage, _ []unified.UnifiedMessage) {
			seen = append(seen, "a")
		}},
		Transformer{Name: "b", ToolCallPostProcess: func(_ *unified.UnifiedMessage, _ []unified.UnifiedMessage) {
			seen = append(seen, "b")
		}},
	)

	msg := &unified.UnifiedMessage{}
	chain.ApplyToolCallPostProcess(msg, nil)
	assert.Equal(t, []string{"a", "b"}, seen)
}

type fakeRepairer struct{}

func (f *fakeRepairer) HandlesToolCalls() bool                                { return true }
func (f *fakeRepairer) BuffersText() bool                                     { return false }
func (f *fakeRepairer) ObserveToolCall(_ int, _, _, _ string)                 {}
func (f *fakeRepairer) ObserveText(_ string)                                  {}
func (f *fakeRepairer) Finish() *unified.UnifiedMessage                       { return nil }
